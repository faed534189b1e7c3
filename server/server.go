package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/chitoku-k/hoarder-sub005/internal/profile"
	ratelimit "github.com/chitoku-k/hoarder-sub005/server/middleware"
	"github.com/chitoku-k/hoarder-sub005/server/internal/observability"
	apiv1 "github.com/chitoku-k/hoarder-sub005/server/router/api/v1"
	"github.com/chitoku-k/hoarder-sub005/server/runner/closure"
	"github.com/chitoku-k/hoarder-sub005/server/service/tag"
	"github.com/chitoku-k/hoarder-sub005/store"
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	logger     *slog.Logger
	metrics    *observability.Metrics
	echoServer *echo.Echo

	runnerCancel context.CancelFunc
	runners      *errgroup.Group
}

// NewServer wires the HTTP API, health and metrics endpoints around store.
// Collectors are registered with registry, which also backs /metrics.
func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store, logger *slog.Logger, registry *prometheus.Registry) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		Profile: profile,
		Store:   store,
		logger:  logger,
		metrics: observability.NewMetrics(registry),
	}

	echoServer := echo.New()
	echoServer.Debug = true
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(middleware.Recover())
	echoServer.Use(middleware.RequestID())
	echoServer.Use(s.observe)
	s.echoServer = echoServer

	// Healthz endpoint.
	echoServer.GET("/healthz", func(c echo.Context) error {
		if err := store.GetDriver().GetDB().PingContext(c.Request().Context()); err != nil {
			return c.String(http.StatusServiceUnavailable, "Database unavailable.")
		}
		return c.String(http.StatusOK, "Service ready.")
	})
	echoServer.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	var middlewares []echo.MiddlewareFunc
	if profile.IsRateLimitEnabled() {
		limiter := ratelimit.NewRateLimiter(profile.RateLimit, profile.RateBurst)
		middlewares = append(middlewares, limiter.Middleware(s.metrics))
	}
	tagService := tag.NewService(store, logger, s.metrics)
	apiV1Service := apiv1.NewAPIV1Service(profile, store, tagService, s.metrics)
	apiV1Service.RegisterRoutes(echoServer, middlewares...)

	return s, nil
}

// observe propagates the request ID to the service layer and records HTTP metrics.
func (s *Server) observe(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		s.metrics.HTTPRequestsInFlight.Inc()
		defer s.metrics.HTTPRequestsInFlight.Dec()

		if requestID := c.Response().Header().Get(echo.HeaderXRequestID); requestID != "" {
			ctx := observability.WithRequestID(c.Request().Context(), requestID)
			c.SetRequest(c.Request().WithContext(ctx))
		}

		err := next(c)
		status := c.Response().Status
		if err != nil {
			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				status = httpErr.Code
			}
		}
		s.metrics.HTTPRequestsTotal.WithLabelValues(c.Request().Method, strconv.Itoa(status)).Inc()
		return err
	}
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

func (s *Server) Start(ctx context.Context) error {
	address := net.JoinHostPort(s.Profile.Addr, strconv.Itoa(s.Profile.Port))
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrap(err, "failed to listen")
	}
	s.echoServer.Listener = listener

	s.StartBackgroundRunners(ctx)

	go func() {
		if err := s.echoServer.Start(address); err != nil && err != http.ErrServerClosed {
			s.logger.Error("failed to start echo server", slog.String("error", err.Error()))
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	s.logger.Info("server shutting down")

	// Shutdown echo server.
	if err := s.echoServer.Shutdown(ctx); err != nil {
		s.logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	// Stop background runners and wait for them before closing the store.
	if s.runnerCancel != nil {
		s.runnerCancel()
		if err := s.runners.Wait(); err != nil {
			s.logger.Error("background runner failed", slog.String("error", err.Error()))
		}
	}

	// Close database connection.
	if err := s.Store.Close(); err != nil {
		s.logger.Error("failed to close database", slog.String("error", err.Error()))
	}

	fmt.Printf("hoarder stopped properly\n")
}

func (s *Server) StartBackgroundRunners(ctx context.Context) {
	runnerCtx, cancel := context.WithCancel(ctx)
	s.runnerCancel = cancel
	s.runners, runnerCtx = errgroup.WithContext(runnerCtx)

	closureRunner := closure.NewRunner(s.Store, s.metrics, s.logger)
	s.runners.Go(func() error {
		closureRunner.Run(runnerCtx)
		return nil
	})
}
