package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/fedsql/fedsql/planner"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestPrometheusHookCountsTransitions(t *testing.T) {
	h := NewPrometheusHook(prometheus.NewRegistry())
	h.RequestSubmitted("r1")
	h.RequestCompleted("r1", 10*time.Millisecond)
	h.RequestFailed("r2", "parse", 5*time.Millisecond)

	require.Equal(t, float64(1), counterValue(t, h.submitted))
	require.Equal(t, float64(1), counterValue(t, h.completed))
	require.Equal(t, int64(1), h.SubmissionsPerMinute())
}

func TestRenderQueryPlanPreservesStepOrder(t *testing.T) {
	p := &planner.Plan{Steps: []planner.PlanStep{
		{Stage: "pre-validate", Detail: "ok"},
		{Stage: "prepare-segments", Detail: "resource csv: 2 attribute(s)"},
	}}
	qp := RenderQueryPlan(p)
	require.Len(t, qp.Steps, 2)
	require.Equal(t, "pre-validate", qp.Steps[0].Stage)
	require.Equal(t, "prepare-segments", qp.Steps[1].Stage)
}
