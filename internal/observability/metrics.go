package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "profile_api"

var latencyBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// Metrics holds all Prometheus collectors for the application.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	DBQueryDuration *prometheus.HistogramVec
	// LookupResults counts profile lookups by outcome (found, not_found, ...).
	LookupResults *prometheus.CounterVec

	DiagnosticStages *prometheus.CounterVec
}

// NewMetrics registers the collectors with the default registry. Call it once per process.
func NewMetrics() *Metrics {
	return newMetrics(promauto.With(prometheus.DefaultRegisterer))
}

// NewTestMetrics uses a private registry so tests can build as many as they like.
func NewTestMetrics() *Metrics {
	return newMetrics(promauto.With(prometheus.NewRegistry()))
}

func newMetrics(factory promauto.Factory) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route pattern and status.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   latencyBuckets,
		}, []string{"method", "path"}),
		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Latency of statements sent to the profile store.",
			Buckets:   latencyBuckets,
		}, []string{"operation"}),
		LookupResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profile_lookups_total",
			Help:      "Profile lookups by outcome.",
		}, []string{"status"}),
		DiagnosticStages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnostic_stages_total",
			Help:      "Connectivity diagnostic stage results.",
		}, []string{"stage", "outcome"}),
	}
}
