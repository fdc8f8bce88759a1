// Package metrics exposes prometheus instrumentation for the
// orchestration core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors the dispatch layer and engine report to.
type Metrics struct {
	registry *prometheus.Registry

	// ExternalCalls counts external calls by service and outcome.
	ExternalCalls *prometheus.CounterVec
	// CallDuration observes external call latency by service.
	CallDuration *prometheus.HistogramVec
	// Retries counts retry attempts by service.
	Retries *prometheus.CounterVec
	// Runs counts terminal workflow runs by kind and status.
	Runs *prometheus.CounterVec
	// RateLimitWait observes time spent waiting on token buckets.
	RateLimitWait *prometheus.HistogramVec
}

// New creates a Metrics instance backed by its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ExternalCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sprintbot_external_calls_total",
			Help: "External service calls by service and outcome.",
		}, []string{"service", "outcome"}),
		CallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sprintbot_external_call_seconds",
			Help:    "External call latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"service"}),
		Retries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sprintbot_retries_total",
			Help: "Retry attempts by service.",
		}, []string{"service"}),
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sprintbot_runs_total",
			Help: "Terminal workflow runs by kind and status.",
		}, []string{"kind", "status"}),
		RateLimitWait: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sprintbot_ratelimit_wait_seconds",
			Help:    "Time spent waiting for a rate-limit token.",
			Buckets: []float64{.001, .01, .1, .5, 1, 5, 15, 60},
		}, []string{"service"}),
	}
}

// Handler returns an HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
