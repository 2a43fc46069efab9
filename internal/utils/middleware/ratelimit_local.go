package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/praxis/server/internal/port/outbound"
	"golang.org/x/time/rate"
)

// LocalRateLimiter is an in-process token bucket per key, used when Redis is not configured.
type LocalRateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	idleTTL  time.Duration
	lastScan time.Time
	now      func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLocalRateLimiter creates a limiter that forgets keys idle for longer than idleTTL.
func NewLocalRateLimiter(idleTTL time.Duration) *LocalRateLimiter {
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &LocalRateLimiter{
		buckets: make(map[string]*bucket),
		idleTTL: idleTTL,
		now:     time.Now,
	}
}

// Allow implements outbound.RateLimiterPort. The bucket holds limit tokens refilled evenly over window.
func (l *LocalRateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	if limit <= 0 {
		return false, 0, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evictIdle(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	allowed := b.limiter.AllowN(now, 1)
	remaining := int(b.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return allowed, remaining, nil
}

func (l *LocalRateLimiter) evictIdle(now time.Time) {
	if now.Sub(l.lastScan) < l.idleTTL {
		return
	}
	l.lastScan = now
	for k, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.idleTTL {
			delete(l.buckets, k)
		}
	}
}

// Compile-time check
var _ outbound.RateLimiterPort = (*LocalRateLimiter)(nil)
