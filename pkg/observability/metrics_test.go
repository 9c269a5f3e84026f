package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTransitionCounter(t *testing.T) {
	m := Metrics()
	before := testutil.ToFloat64(m.transitions.WithLabelValues("confirm_completion", "error"))
	m.ObserveTransition("confirm_completion", time.Now(), errors.New("boom"))
	after := testutil.ToFloat64(m.transitions.WithLabelValues("confirm_completion", "error"))
	require.Equal(t, before+1, after)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *EngineMetrics
	require.NotPanics(t, func() {
		m.ObserveRisk("low")
		m.PortError("hold")
		m.MirrorFailure()
		m.RuleCache(true)
	})
}
