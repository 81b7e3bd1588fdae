package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/campus-support/internal/domain"
)

const namespace = "campus_support"

// Sweep outcomes recorded by RecordSweep.
const (
	SweepOutcomeCompleted = "completed"
	SweepOutcomeSkipped   = "skipped"
	SweepOutcomeFailed    = "failed"
)

// Metrics exposes prometheus collectors for HTTP traffic and escalations.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	escalations     *prometheus.CounterVec
	sweepRuns       *prometheus.CounterVec
	sweepDuration   prometheus.Histogram
	sweepFailures   prometheus.Counter
}

// NewMetrics registers collectors on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "HTTP error responses by route, method and error code.",
		}, []string{"route", "method", "code"}),
		escalations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalations_total",
			Help:      "Ticket escalations by trigger.",
		}, []string{"trigger"}),
		sweepRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalation_sweep_runs_total",
			Help:      "Escalation sweep invocations by outcome.",
		}, []string{"outcome"}),
		sweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "escalation_sweep_duration_seconds",
			Help:      "Wall time of completed escalation sweeps.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		}),
		sweepFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalation_sweep_failures_total",
			Help:      "Tickets the sweep failed to escalate.",
		}),
	}
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(route, method, code).Inc()
}

// RecordEscalation counts one applied escalation.
func (m *Metrics) RecordEscalation(trigger domain.EscalationTrigger) {
	if m == nil {
		return
	}
	m.escalations.WithLabelValues(string(trigger)).Inc()
}

// RecordSweep records the outcome of one sweep invocation.
func (m *Metrics) RecordSweep(outcome string, duration time.Duration, failures int) {
	if m == nil {
		return
	}
	m.sweepRuns.WithLabelValues(outcome).Inc()
	if outcome == SweepOutcomeCompleted {
		m.sweepDuration.Observe(duration.Seconds())
	}
	if failures > 0 {
		m.sweepFailures.Add(float64(failures))
	}
}
