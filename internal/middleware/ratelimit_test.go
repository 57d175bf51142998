package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"anoa.com/mindminer/pkg/ratelimiter"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubLimiter struct {
	subjects []string
	err      error
}

func (s *stubLimiter) Allow(ctx context.Context, subject string) error {
	s.subjects = append(s.subjects, subject)
	return s.err
}

func setupRouter(limiter Limiter) *gin.Engine {
	mw := NewRateLimitMiddleware(limiter)

	echo := func(c *gin.Context) {
		var body struct {
			WalletAddress string `json:"wallet_address"`
		}
		if err := c.ShouldBindBodyWith(&body, binding.JSON); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"wallet": body.WalletAddress})
	}

	r := gin.New()
	r.POST("/hunts", mw.PerWallet(), echo)
	r.GET("/users/:wallet", mw.PerWallet(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestPerWallet_UsesBodyWalletAndKeepsBody(t *testing.T) {
	limiter := &stubLimiter{}
	r := setupRouter(limiter)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/hunts", strings.NewReader(`{"wallet_address":"WALLETA"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"wallet":"WALLETA"}`, w.Body.String())
	assert.Equal(t, []string{"WALLETA"}, limiter.subjects)
}

func TestPerWallet_UsesRouteParam(t *testing.T) {
	limiter := &stubLimiter{}
	r := setupRouter(limiter)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/WALLETB", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"WALLETB"}, limiter.subjects)
}

func TestPerWallet_Rejects(t *testing.T) {
	limiter := &stubLimiter{err: &ratelimiter.RateLimitError{Message: "Too many requests.", RetryAfter: 1500 * time.Millisecond}}
	r := setupRouter(limiter)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/hunts", strings.NewReader(`{"wallet_address":"WALLETA"}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "Too many requests.")
}

func TestPerWallet_FailsOpen(t *testing.T) {
	limiter := &stubLimiter{err: errors.New("redis: connection refused")}
	r := setupRouter(limiter)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/hunts", strings.NewReader(`not json`))
	r.ServeHTTP(w, req)

	// the handler still runs and rejects the body itself
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.Len(t, limiter.subjects, 1)
	assert.True(t, strings.HasPrefix(limiter.subjects[0], "ip:"))
}
