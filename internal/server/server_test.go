package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"anoa.com/mindminer/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:             "test",
		AllowedOrigins:     "http://localhost:3000, https://mindminer.app",
		StorageDriver:      "memory",
		HuntDuration:       30 * time.Minute,
		CleanupSchedule:    "@every 5m",
		StartLockTTL:       time.Minute,
		RateLimitPerMinute: 15,
		RateLimitPerDay:    1000,
	}
}

func TestNewServer_MemoryWiring(t *testing.T) {
	s, err := NewServer(testConfig(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"SessionSweepAgent"}, s.scheduler.GetRegisteredAgents())

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/hunts", strings.NewReader(`{"wallet_address":"WALLETA"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "mindminer_hunts_started_total")

	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/users/WALLETA/stats", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/leaderboard?order_by=avg_completion_time", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewServer_InvalidCleanupSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.CleanupSchedule = "whenever"

	_, err := NewServer(cfg, nil, nil)
	assert.Error(t, err)
}
