package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chitoku-k/hoarder-sub005/internal/profile"
	teststore "github.com/chitoku-k/hoarder-sub005/store/test"
)

func newTestServer(t *testing.T, p *profile.Profile) *Server {
	ctx := context.Background()
	ts := teststore.NewTestingStore(ctx, t)
	s, err := NewServer(ctx, p, ts, slog.New(slog.NewTextHandler(io.Discard, nil)), prometheus.NewRegistry())
	require.NoError(t, err)
	return s
}

func serve(s *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = "192.0.2.10:4321"
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthzAndMetrics(t *testing.T) {
	s := newTestServer(t, &profile.Profile{Mode: "dev"})

	rec := serve(s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = serve(s, http.MethodGet, "/api/v1/tags")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(s, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `hoarder_http_requests_total{method="GET",status="200"}`)
	assert.Contains(t, body, `hoarder_tag_operations_total{operation="get_tags",result="ok"} 1`)
}

func TestRateLimitedAPI(t *testing.T) {
	s := newTestServer(t, &profile.Profile{Mode: "dev", RateLimit: 1, RateBurst: 1})

	assert.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/api/v1/tags").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(s, http.MethodGet, "/api/v1/tags").Code)
	// Only the API is throttled.
	assert.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/healthz").Code)
}
