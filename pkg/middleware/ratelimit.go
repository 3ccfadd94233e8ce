package middleware

import (
	"net/http"
	"sync"
	"time"

	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"github.com/trailmux/trailmux/pkg/router"
)

// RateLimitConfig defines configuration for a rate limit bucket.
type RateLimitConfig struct {
	// BucketName identifies this bucket. Layers sharing a BucketName share
	// the same limits.
	BucketName string

	// Limit is the maximum number of requests allowed in the window.
	Limit int

	// Window is the time window for the limit. Zero defaults to one second.
	Window time.Duration

	// KeyFunc derives the per-client key. When nil, the client IP stored by
	// ClientIPMiddleware is used (falling back to RemoteAddr).
	KeyFunc func(*router.Context) string

	// Exceeded runs instead of the default 429 response when the limit is
	// exceeded.
	Exceeded router.Handler
}

// RateLimiter decides whether a request identified by key may proceed.
type RateLimiter interface {
	// Allow reports whether a request for key is within limit per window.
	Allow(key string, limit int, window time.Duration) bool
}

// UberRateLimiter implements RateLimiter on top of Uber's leaky-bucket
// ratelimit library, combined with a per-window counter so that refusals are
// observable instead of merely paced.
type UberRateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	limiter     ratelimit.Limiter
	windowStart time.Time
	count       int
}

// NewUberRateLimiter creates a new rate limiter.
func NewUberRateLimiter() *UberRateLimiter {
	return &UberRateLimiter{buckets: make(map[string]*bucket)}
}

// Allow reports whether a request for key is admitted, counting it if so.
// Admitted requests are additionally paced through the leaky bucket so
// bursts inside a window are smoothed.
func (u *UberRateLimiter) Allow(key string, limit int, window time.Duration) bool {
	if window <= 0 {
		window = time.Second
	}

	u.mu.Lock()
	b, ok := u.buckets[key]
	now := time.Now()
	if !ok || now.Sub(b.windowStart) > window {
		rps := int(float64(limit) / window.Seconds())
		if rps < 1 {
			rps = 1
		}
		if !ok {
			b = &bucket{limiter: ratelimit.New(rps)}
			u.buckets[key] = b
		}
		b.windowStart = now
		b.count = 0
	}
	if b.count >= limit {
		u.mu.Unlock()
		return false
	}
	b.count++
	limiter := b.limiter
	u.mu.Unlock()

	limiter.Take()
	return true
}

// RateLimit enforces a request rate per client key. Refused requests get a
// 429 response (or the configured Exceeded handler); admitted requests
// continue down the chain.
func RateLimit(config *RateLimitConfig, limiter RateLimiter, logger *zap.Logger) router.Handler {
	keyFunc := config.KeyFunc
	if keyFunc == nil {
		keyFunc = func(c *router.Context) string {
			if ip := ClientIP(c.Request); ip != "" {
				return ip
			}
			return c.Request.RemoteAddr
		}
	}

	return func(c *router.Context) error {
		key := config.BucketName + ":" + keyFunc(c)

		if !limiter.Allow(key, config.Limit, config.Window) {
			logger.Warn("Rate limit exceeded",
				zap.String("bucket", config.BucketName),
				zap.String("key", key),
				zap.String("method", c.Method()),
				zap.String("path", c.FullPath()),
			)
			if config.Exceeded != nil {
				return config.Exceeded(c)
			}
			return c.String(http.StatusTooManyRequests, "Too Many Requests")
		}

		return nil
	}
}
