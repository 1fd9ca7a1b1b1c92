// Package telemetry holds the engine's Prometheus metrics and OpenTelemetry setup.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recompute outcomes.
const (
	OutcomeChanged   = "changed"
	OutcomeUnchanged = "unchanged"
	OutcomeFailed    = "failed"
)

// Delivery outcomes.
const (
	DeliverySucceeded = "succeeded"
	DeliveryRetried   = "retried"
	DeliveryDead      = "dead"
)

// Metrics groups the engine's collectors on their own registry.
type Metrics struct {
	Registry *prometheus.Registry

	Recomputations   *prometheus.CounterVec
	RecomputeSeconds prometheus.Histogram
	SignalsEnqueued  *prometheus.CounterVec
	SignalDeliveries *prometheus.CounterVec
}

// NewMetrics creates and registers the engine collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Recomputations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ecoprog_recomputations_total",
				Help: "Total number of progression recomputations",
			},
			[]string{"outcome"},
		),
		RecomputeSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ecoprog_recompute_duration_seconds",
				Help:    "Duration of a single school recompute",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
		),
		SignalsEnqueued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ecoprog_signals_enqueued_total",
				Help: "Total number of progression signals written to the outbox",
			},
			[]string{"type"},
		),
		SignalDeliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ecoprog_signal_deliveries_total",
				Help: "Total number of outbox delivery attempts by outcome",
			},
			[]string{"outcome"},
		),
	}

	m.Registry.MustRegister(m.Recomputations, m.RecomputeSeconds, m.SignalsEnqueued, m.SignalDeliveries)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
