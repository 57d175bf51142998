package middleware

import (
	"context"
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"

	"anoa.com/mindminer/pkg/ratelimiter"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// Limiter counts one request for subject and returns a *ratelimiter.RateLimitError when the
// subject is over its quota.
type Limiter interface {
	Allow(ctx context.Context, subject string) error
}

type RateLimitMiddleware struct {
	limiter Limiter
}

func NewRateLimitMiddleware(limiter Limiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter}
}

// PerWallet limits requests by the wallet in the ":wallet" route parameter or the JSON body's
// wallet_address, falling back to the client IP. Limiter failures let the request through.
func (m *RateLimitMiddleware) PerWallet() gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := walletSubject(c)

		err := m.limiter.Allow(c.Request.Context(), subject)
		if err == nil {
			c.Next()
			return
		}

		var rlErr *ratelimiter.RateLimitError
		if !errors.As(err, &rlErr) {
			log.Printf("⚠️ [RateLimit] Limiter unavailable, allowing %s: %v", subject, err)
			c.Next()
			return
		}

		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(rlErr.RetryAfter.Seconds()))))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": rlErr.Message})
		c.Abort()
	}
}

func walletSubject(c *gin.Context) string {
	if wallet := strings.TrimSpace(c.Param("wallet")); wallet != "" {
		return wallet
	}

	var body struct {
		WalletAddress string `json:"wallet_address"`
	}
	// ShouldBindBodyWith caches the body so the handler can bind it again
	if err := c.ShouldBindBodyWith(&body, binding.JSON); err == nil {
		if wallet := strings.TrimSpace(body.WalletAddress); wallet != "" {
			return wallet
		}
	}

	return "ip:" + c.ClientIP()
}
