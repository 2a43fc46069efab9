package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/praxis/server/internal/port/outbound"
	apperrors "github.com/praxis/server/internal/shared/errors"
	"github.com/praxis/server/internal/shared/logger"
	"github.com/praxis/server/internal/utils/metrics"
)

const (
	// RateLimitRemaining is the header for remaining requests.
	RateLimitRemaining = "X-RateLimit-Remaining"
	// RateLimitLimit is the header for the limit.
	RateLimitLimit = "X-RateLimit-Limit"
	// RetryAfter is the header for retry time.
	RetryAfter = "Retry-After"
)

// RateLimitConfig holds rate limit configuration.
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
	// KeyFunc derives the limiter key. Defaults to the client IP.
	KeyFunc func(*gin.Context) string
}

// RateLimit rejects callers over budget with 429. Limiter failures let the request through.
func RateLimit(limiter outbound.RateLimiterPort, cfg RateLimitConfig, m *metrics.Metrics) gin.HandlerFunc {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *gin.Context) string { return "ip:" + c.ClientIP() }
	}

	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		allowed, remaining, err := limiter.Allow(ctx, cfg.KeyFunc(c), cfg.Limit, cfg.Window)
		if err != nil {
			logger.FromContext(ctx).WarnContext(ctx, "rate limiter unavailable", logger.Err(err))
			c.Next()
			return
		}

		c.Header(RateLimitLimit, strconv.Itoa(cfg.Limit))
		c.Header(RateLimitRemaining, strconv.Itoa(remaining))

		if !allowed {
			m.RecordRateLimited()
			c.Header(RetryAfter, strconv.Itoa(int(cfg.Window.Seconds())))
			abortWith(c, apperrors.RateLimited("Too many requests, please try again later"))
			return
		}

		c.Next()
	}
}
