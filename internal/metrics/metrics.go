// Package metrics holds the Prometheus instruments for delegation turns.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Turn outcomes.
const (
	OutcomeDelegated = "delegated"
	OutcomeFailed    = "failed"
	OutcomeCrashed   = "crashed"
	OutcomeCancelled = "cancelled"
)

// Classification outcomes.
const (
	ClassifyDelegation = "delegation"
	ClassifyError      = "error"
)

// Metrics holds Prometheus metrics for the command center. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	TurnsTotal       *prometheus.CounterVec   // Turns by final outcome
	DelegationsTotal *prometheus.CounterVec   // Delegations by resolved agent
	RejectionsTotal  *prometheus.CounterVec   // Submissions refused before a turn started
	ClassifyDuration *prometheus.HistogramVec // Backend round trip, by classification outcome
	TurnsInFlight    prometheus.Gauge         // Turns currently running
	SessionsActive   prometheus.Gauge         // Sessions held by the API server
}

// NewMetrics creates and registers the metrics with reg.
// Pass prometheus.NewRegistry() in tests to avoid global state.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TurnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medidesk_turns_total",
			Help: "Total number of completed turns by outcome",
		}, []string{"outcome"}),
		DelegationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medidesk_delegations_total",
			Help: "Total number of requests delegated, by target agent",
		}, []string{"agent"}),
		RejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medidesk_rejections_total",
			Help: "Total number of submissions rejected before processing, by reason",
		}, []string{"reason"}),
		ClassifyDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "medidesk_classify_duration_seconds",
			Help:    "Latency of the coordinator classification call",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"outcome"}),
		TurnsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "medidesk_turns_in_flight",
			Help: "Number of turns currently being processed",
		}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "medidesk_sessions_active",
			Help: "Number of sessions currently held by the API server",
		}),
	}

	reg.MustRegister(m.TurnsTotal)
	reg.MustRegister(m.DelegationsTotal)
	reg.MustRegister(m.RejectionsTotal)
	reg.MustRegister(m.ClassifyDuration)
	reg.MustRegister(m.TurnsInFlight)
	reg.MustRegister(m.SessionsActive)

	return m
}

// TurnStarted increments the in-flight gauge.
func (m *Metrics) TurnStarted() {
	if m == nil {
		return
	}
	m.TurnsInFlight.Inc()
}

// TurnFinished decrements the in-flight gauge and counts the outcome.
func (m *Metrics) TurnFinished(outcome string) {
	if m == nil {
		return
	}
	m.TurnsInFlight.Dec()
	m.TurnsTotal.WithLabelValues(outcome).Inc()
}

// Delegated counts a delegation to agent.
func (m *Metrics) Delegated(agent string) {
	if m == nil {
		return
	}
	m.DelegationsTotal.WithLabelValues(agent).Inc()
}

// Rejected counts a refused submission.
func (m *Metrics) Rejected(reason string) {
	if m == nil {
		return
	}
	m.RejectionsTotal.WithLabelValues(reason).Inc()
}

// ObserveClassify records one classification round trip.
func (m *Metrics) ObserveClassify(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ClassifyDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// SetSessions sets the active session gauge.
func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.SessionsActive.Set(float64(n))
}
