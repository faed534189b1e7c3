package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation results used as the "result" label.
const (
	ResultOK = "ok"
	// ResultRejected marks an operation refused by the tag error taxonomy.
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Metrics holds the Prometheus collectors for service operations.
type Metrics struct {
	// Tag operation metrics
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	RateLimitedTotal     prometheus.Counter
	HTTPRequestsInFlight prometheus.Gauge

	// ClosureViolations is the number of findings of the last closure audit.
	ClosureViolations prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{}

	m.OperationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hoarder_tag_operations_total",
			Help: "Total number of tag operations",
		},
		[]string{"operation", "result"},
	)

	m.OperationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hoarder_tag_operation_duration_seconds",
			Help:    "Duration of tag operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hoarder_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "status"},
	)

	m.RateLimitedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "hoarder_http_rate_limited_total",
			Help: "Total number of HTTP requests rejected by the rate limiter",
		},
	)

	m.HTTPRequestsInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "hoarder_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	m.ClosureViolations = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "hoarder_closure_violations",
			Help: "Number of closure table violations found by the last audit",
		},
	)

	return m
}

// RecordOperation records the outcome and duration of a tag operation.
func (m *Metrics) RecordOperation(operation, result string, duration time.Duration) {
	m.OperationsTotal.WithLabelValues(operation, result).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
