package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins string

	StorageDriver string
	DatabaseURL   string
	RedisURL      string

	GeminiAPIKey string
	GeminiModel  string

	RedditClientID     string
	RedditClientSecret string
	RedditUserAgent    string

	AlgorandNodeServer     string
	AlgorandNodeToken      string
	AlgorandSenderMnemonic string

	HuntDuration       time.Duration
	SelectorRetryDelay time.Duration
	CleanupSchedule    string
	StartLockTTL       time.Duration

	RateLimitPerMinute int
	RateLimitPerDay    int
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),

		StorageDriver: getEnv("STORAGE_DRIVER", "postgres"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		RedditClientID:     os.Getenv("REDDIT_CLIENT_ID"),
		RedditClientSecret: os.Getenv("REDDIT_CLIENT_SECRET"),
		RedditUserAgent:    getEnv("REDDIT_USER_AGENT", "MindMiner:1.0.0 (by /u/mindminer)"),

		AlgorandNodeServer:     getEnv("ALGORAND_NODE_SERVER", "https://testnet-api.algonode.cloud"),
		AlgorandNodeToken:      os.Getenv("ALGORAND_NODE_TOKEN"),
		AlgorandSenderMnemonic: os.Getenv("ALGORAND_SENDER_MNEMONIC"),

		CleanupSchedule: getEnv("CLEANUP_SCHEDULE", "@every 5m"),
	}

	if cfg.StorageDriver != "postgres" && cfg.StorageDriver != "memory" {
		return nil, fmt.Errorf("invalid STORAGE_DRIVER %q: want postgres or memory", cfg.StorageDriver)
	}

	// Parsing durations
	var err error
	cfg.HuntDuration, err = parseDuration(getEnv("HUNT_DURATION", "30m"))
	if err != nil {
		return nil, fmt.Errorf("invalid HUNT_DURATION: %w", err)
	}
	cfg.SelectorRetryDelay, err = parseDuration(getEnv("SELECTOR_RETRY_DELAY", "1s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SELECTOR_RETRY_DELAY: %w", err)
	}
	cfg.StartLockTTL, err = parseDuration(getEnv("START_LOCK_TTL", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid START_LOCK_TTL: %w", err)
	}

	cfg.RateLimitPerMinute, err = strconv.Atoi(getEnv("RATE_LIMIT_PER_MINUTE", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %w", err)
	}
	cfg.RateLimitPerDay, err = strconv.Atoi(getEnv("RATE_LIMIT_PER_DAY", "1000"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_DAY: %w", err)
	}

	return cfg, nil
}

// RedditConfigured reports whether real Reddit credentials are present.
func (c *Config) RedditConfigured() bool {
	return c.RedditClientID != "" && c.RedditClientSecret != ""
}

func (c *Config) LedgerConfigured() bool {
	return c.AlgorandSenderMnemonic != ""
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}
