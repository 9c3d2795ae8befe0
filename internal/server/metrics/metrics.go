// Package metrics holds the Prometheus collectors of the server and the
// HTTP handler that exposes them.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gatekeeper"

var histogramBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// Metrics records allocator, authentication and transport events.
type Metrics struct {
	idsAllocated     prometheus.Counter
	clockRegressions prometheus.Counter
	authEvents       *prometheus.CounterVec
	requestTotal     *prometheus.CounterVec
	requestLatency   *prometheus.HistogramVec
	gatherer         prometheus.Gatherer
}

// New creates the collectors and registers them on reg. Collectors already
// registered on reg are reused.
func New(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	m := &Metrics{
		idsAllocated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ids_allocated_total",
			Help:      "Number of account ids handed out by the allocator",
		}),
		clockRegressions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "id_clock_regressions_total",
			Help:      "Number of allocations refused because the clock moved backwards",
		}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_events_total",
			Help:      "Identity operations by event and outcome",
		}, []string{"event", "outcome"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_requests_total",
			Help:      "Count of processed gRPC requests",
		}, []string{"method", "code"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grpc_request_duration_seconds",
			Help:      "Latency distribution of gRPC handlers",
			Buckets:   histogramBuckets,
		}, []string{"method"}),
		gatherer: gatherer,
	}

	m.idsAllocated = register(reg, m.idsAllocated)
	m.clockRegressions = register(reg, m.clockRegressions)
	m.authEvents = register(reg, m.authEvents)
	m.requestTotal = register(reg, m.requestTotal)
	m.requestLatency = register(reg, m.requestLatency)

	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func (m *Metrics) IDAllocated() {
	m.idsAllocated.Inc()
}

func (m *Metrics) ClockRegression() {
	m.clockRegressions.Inc()
}

// AuthEvent counts one identity operation, e.g. ("login", "ok").
func (m *Metrics) AuthEvent(event, outcome string) {
	m.authEvents.WithLabelValues(event, outcome).Inc()
}

func (m *Metrics) ObserveRequest(method, code string, d time.Duration) {
	m.requestTotal.WithLabelValues(method, code).Inc()
	m.requestLatency.WithLabelValues(method).Observe(d.Seconds())
}

// Handler serves the gathered metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
