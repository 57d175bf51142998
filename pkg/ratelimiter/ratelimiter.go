package ratelimiter

import (
	"context"
	"fmt"
	"time"

	"anoa.com/mindminer/pkg/apperror"
	"github.com/redis/go-redis/v9"
)

// RateLimitError tells the caller how long to wait before retrying.
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return e.Message
}

func (e *RateLimitError) Unwrap() error {
	return apperror.ErrRateLimitExceeded
}

// Limiter enforces fixed per-minute and per-day windows per subject. A nil redis client
// disables limiting.
type Limiter struct {
	rdb       *redis.Client
	prefix    string
	perMinute int64
	perDay    int64
	now       func() time.Time
}

func New(rdb *redis.Client, prefix string, perMinute, perDay int) *Limiter {
	return &Limiter{
		rdb:       rdb,
		prefix:    prefix,
		perMinute: int64(perMinute),
		perDay:    int64(perDay),
		now:       time.Now,
	}
}

// Allow counts one request for subject and returns a *RateLimitError when a window is full.
func (l *Limiter) Allow(ctx context.Context, subject string) error {
	if l == nil || l.rdb == nil {
		return nil
	}

	now := l.now().UTC()
	minuteStart := now.Truncate(time.Minute)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	minuteKey := fmt.Sprintf("rate_limit:%s:%s:m:%d", l.prefix, subject, minuteStart.Unix())
	dayKey := fmt.Sprintf("rate_limit:%s:%s:d:%d", l.prefix, subject, dayStart.Unix())

	pipe := l.rdb.TxPipeline()
	minuteCount := pipe.Incr(ctx, minuteKey)
	pipe.ExpireNX(ctx, minuteKey, time.Minute)
	dayCount := pipe.Incr(ctx, dayKey)
	pipe.ExpireNX(ctx, dayKey, 24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to check rate limit in redis: %w", err)
	}

	return l.evaluate(now, minuteCount.Val(), dayCount.Val())
}

func (l *Limiter) evaluate(now time.Time, minuteCount, dayCount int64) error {
	if l.perMinute > 0 && minuteCount > l.perMinute {
		retry := now.Truncate(time.Minute).Add(time.Minute).Sub(now)
		return &RateLimitError{
			Message:    fmt.Sprintf("Too many requests. Please try again in %.0f seconds.", retry.Seconds()),
			RetryAfter: retry,
		}
	}

	if l.perDay > 0 && dayCount > l.perDay {
		dayEnd := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
		retry := dayEnd.Sub(now)
		return &RateLimitError{
			Message:    fmt.Sprintf("Daily limit exceeded. Please try again in %.0f hours.", retry.Hours()),
			RetryAfter: retry,
		}
	}

	return nil
}
