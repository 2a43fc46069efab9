package outbound

import (
	"context"
	"time"
)

// RateLimiterPort decides whether a keyed caller may make another request.
type RateLimiterPort interface {
	// Allow consumes one unit for key and reports whether it was allowed
	// and how many units remain in the current window.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, remaining int, err error)
}
