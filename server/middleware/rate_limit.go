package middleware

import (
	"context"
	"sync"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	apierrors "github.com/chitoku-k/hoarder-sub005/server/internal/errors"
	"github.com/chitoku-k/hoarder-sub005/server/internal/observability"
)

// RateLimiter provides rate limiting functionality keyed by client.
type RateLimiter struct {
	mu     sync.Mutex
	limits map[string]*rate.Limiter
	limit  rate.Limit
	burst  int
}

// NewRateLimiter creates a new rate limiter allowing limit requests per second
// with the given burst for every key.
func NewRateLimiter(limit float64, burst int) *RateLimiter {
	return &RateLimiter{
		limits: make(map[string]*rate.Limiter),
		limit:  rate.Limit(limit),
		burst:  burst,
	}
}

// getLimiter gets or creates a limiter for the given key.
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok := rl.limits[key]; ok {
		return limiter
	}

	limiter := rate.NewLimiter(rl.limit, rl.burst)
	rl.limits[key] = limiter
	return limiter
}

// Allow checks if a request is allowed for the given key.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Wait waits for a request to be allowed.
// Returns error if the context is cancelled or rate limit exceeded.
func (rl *RateLimiter) Wait(ctx context.Context, key string) error {
	return rl.getLimiter(key).Wait(ctx)
}

// Middleware rejects requests from clients that exceed their rate with 429.
// metrics may be nil.
func (rl *RateLimiter) Middleware(metrics *observability.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if rl.Allow(c.RealIP()) {
				return next(c)
			}
			if metrics != nil {
				metrics.RateLimitedTotal.Inc()
			}
			err := apierrors.RateLimitExceeded("too many requests")
			return c.JSON(err.HTTPStatus(), map[string]any{
				"code":    err.Code,
				"message": err.Message,
			})
		}
	}
}
