package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/chitoku-k/hoarder-sub005/server/internal/observability"
)

func TestRateLimiterAllowsBurstPerKey(t *testing.T) {
	rl := NewRateLimiter(1, 2)

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
}

func TestRateLimiterMiddleware(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	e := echo.New()
	e.Use(NewRateLimiter(1, 1).Middleware(metrics))
	e.GET("/", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	serve := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, serve().Code)

	rec := serve()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "RATE_LIMIT_EXCEEDED")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RateLimitedTotal))
}
