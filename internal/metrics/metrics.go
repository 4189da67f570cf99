// Package metrics exposes supervisor health as Prometheus collectors.
//
// Every method is safe to call on a nil *Metrics, so components can record
// unconditionally and only the binary decides whether metrics are served.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fbug"

// Metrics holds the collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	LinesReceived  *prometheus.CounterVec
	ReadErrors     *prometheus.CounterVec
	Transitions    *prometheus.CounterVec
	Reopens        *prometheus.CounterVec
	ControlErrors  *prometheus.CounterVec
	DroppedBatches prometheus.Counter
	CurrentState   *prometheus.GaugeVec
}

// New registers the fbug collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		LinesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_received_total",
			Help:      "Lines or chunks read from a connection.",
		}, []string{"device"}),
		ReadErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "read_errors_total",
			Help:      "Failed reads on a connection.",
		}, []string{"device"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "State transitions taken.",
		}, []string{"from", "to"}),
		Reopens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reopens_total",
			Help:      "Hot-plug reopen attempts by result.",
		}, []string{"device", "result"}),
		ControlErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "control_errors_total",
			Help:      "Failed control operations (baud, line state).",
		}, []string{"device"}),
		DroppedBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_property_batches_total",
			Help:      "Property batches missed by a slow subscriber.",
		}),
		CurrentState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_state",
			Help:      "1 for the state the device is in, 0 otherwise.",
		}, []string{"state"}),
	}
	m.registry.MustRegister(
		m.LinesReceived,
		m.ReadErrors,
		m.Transitions,
		m.Reopens,
		m.ControlErrors,
		m.DroppedBatches,
		m.CurrentState,
	)
	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) LineReceived(device string) {
	if m == nil {
		return
	}
	m.LinesReceived.WithLabelValues(device).Inc()
}

func (m *Metrics) ReadFailed(device string) {
	if m == nil {
		return
	}
	m.ReadErrors.WithLabelValues(device).Inc()
}

func (m *Metrics) ControlFailed(device string) {
	if m == nil {
		return
	}
	m.ControlErrors.WithLabelValues(device).Inc()
}

// Reopened records a hot-plug reopen attempt.
func (m *Metrics) Reopened(device string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Reopens.WithLabelValues(device, result).Inc()
}

func (m *Metrics) BatchDropped() {
	if m == nil {
		return
	}
	m.DroppedBatches.Inc()
}

// Transitioned counts the transition and moves the current-state gauge.
func (m *Metrics) Transitioned(from, to string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(from, to).Inc()
	if from != "" {
		m.CurrentState.WithLabelValues(from).Set(0)
	}
	m.CurrentState.WithLabelValues(to).Set(1)
}
