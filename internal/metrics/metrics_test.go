package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.TurnStarted()
	m.TurnFinished(OutcomeDelegated)
	m.Delegated("BILLING")
	m.Rejected("busy")
	m.ObserveClassify(ClassifyDelegation, 250*time.Millisecond)
	m.SetSessions(3)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.ElementsMatch(t, []string{
		"medidesk_turns_total",
		"medidesk_delegations_total",
		"medidesk_rejections_total",
		"medidesk_classify_duration_seconds",
		"medidesk_turns_in_flight",
		"medidesk_sessions_active",
	}, names)
}

func TestMetrics_TurnAccounting(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.TurnStarted()
	m.TurnStarted()
	assert.Equal(t, float64(2), testutil.ToFloat64(m.TurnsInFlight))

	m.TurnFinished(OutcomeDelegated)
	m.TurnFinished(OutcomeFailed)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.TurnsInFlight))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TurnsTotal.WithLabelValues(OutcomeDelegated)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TurnsTotal.WithLabelValues(OutcomeFailed)))
}

func TestMetrics_ClassifyHistogram(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.ObserveClassify(ClassifyError, 3*time.Second)

	expected := `
# HELP medidesk_classify_duration_seconds Latency of the coordinator classification call
# TYPE medidesk_classify_duration_seconds histogram
medidesk_classify_duration_seconds_bucket{outcome="error",le="0.1"} 0
medidesk_classify_duration_seconds_bucket{outcome="error",le="0.25"} 0
medidesk_classify_duration_seconds_bucket{outcome="error",le="0.5"} 0
medidesk_classify_duration_seconds_bucket{outcome="error",le="1"} 0
medidesk_classify_duration_seconds_bucket{outcome="error",le="2"} 0
medidesk_classify_duration_seconds_bucket{outcome="error",le="5"} 1
medidesk_classify_duration_seconds_bucket{outcome="error",le="10"} 1
medidesk_classify_duration_seconds_bucket{outcome="error",le="30"} 1
medidesk_classify_duration_seconds_bucket{outcome="error",le="+Inf"} 1
medidesk_classify_duration_seconds_sum{outcome="error"} 3
medidesk_classify_duration_seconds_count{outcome="error"} 1
`
	assert.NoError(t, testutil.CollectAndCompare(m.ClassifyDuration, strings.NewReader(expected)))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.TurnStarted()
		m.TurnFinished(OutcomeCrashed)
		m.Delegated("BILLING")
		m.Rejected("locked")
		m.ObserveClassify(ClassifyDelegation, time.Second)
		m.SetSessions(1)
	})
}
