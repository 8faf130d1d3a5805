/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package circuitbreaker

import "github.com/prometheus/client_golang/prometheus"

// MetricsCollector represents a collector of metrics about circuit state and refusals.
type MetricsCollector interface {
	// SetState reports the group's current state.
	SetState(group string, state State)

	// IncRefusals increments the total number of requests blocked by the group's circuit.
	IncRefusals(group string)
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels
}

// PrometheusMetrics represents a Prometheus metrics for the circuit breaker.
type PrometheusMetrics struct {
	CircuitState  *prometheus.GaugeVec
	RefusalsTotal *prometheus.CounterVec
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	return &PrometheusMetrics{
		CircuitState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "circuit_breaker_state",
			Help:        "Current circuit state per group (0 - closed, 1 - open, 2 - half-open).",
			ConstLabels: opts.ConstLabels,
		}, []string{"group"}),
		RefusalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "circuit_breaker_refusals_total",
			Help:        "Number of requests blocked by an open or saturated half-open circuit.",
			ConstLabels: opts.ConstLabels,
		}, []string{"group"}),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.CircuitState, pm.RefusalsTotal)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.CircuitState)
	prometheus.Unregister(pm.RefusalsTotal)
}

// SetState reports the group's current state.
func (pm *PrometheusMetrics) SetState(group string, state State) {
	pm.CircuitState.WithLabelValues(group).Set(float64(state))
}

// IncRefusals increments the total number of requests blocked by the group's circuit.
func (pm *PrometheusMetrics) IncRefusals(group string) {
	pm.RefusalsTotal.WithLabelValues(group).Inc()
}

type disabledMetrics struct{}

func (disabledMetrics) SetState(string, State) {}
func (disabledMetrics) IncRefusals(string)     {}

var disabledMetricsCollector = disabledMetrics{}
