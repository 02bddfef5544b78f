// Package metrics holds the Prometheus instruments for browser fetches
// and workflow steps. All methods are safe on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cocosbot"

// Metrics groups the instruments registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	FetchTotal       *prometheus.CounterVec
	FetchDuration    prometheus.Histogram
	WorkflowFailures *prometheus.CounterVec
	TwoFactorTotal   *prometheus.CounterVec
}

// New creates the instruments on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		FetchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_total",
				Help:      "Correlated response fetches by result",
			},
			[]string{"result"},
		),
		FetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Time from trigger to a matched response",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
			},
		),
		WorkflowFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "workflow_failures_total",
				Help:      "Workflow runs that stopped at a step",
			},
			[]string{"workflow", "step"},
		),
		TwoFactorTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "twofactor_total",
				Help:      "Two-factor code retrievals by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// ObserveFetch records a fetch result; result is "ok" or a no-data reason.
func (m *Metrics) ObserveFetch(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.FetchTotal.WithLabelValues(result).Inc()
	m.FetchDuration.Observe(elapsed.Seconds())
}

// WorkflowFailed records a workflow stopping at step.
func (m *Metrics) WorkflowFailed(workflow, step string) {
	if m == nil {
		return
	}
	m.WorkflowFailures.WithLabelValues(workflow, step).Inc()
}

// TwoFactor records a code retrieval outcome ("found", "missing", "error").
func (m *Metrics) TwoFactor(outcome string) {
	if m == nil {
		return
	}
	m.TwoFactorTotal.WithLabelValues(outcome).Inc()
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
