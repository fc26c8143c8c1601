package metrics

import (
	"context"
	"testing"

	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/BearBump/ParcelBox/internal/workflow"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

var testDef = workflow.Definition{
	Name: "metrics-test",
	Edges: map[workflow.State][]workflow.State{
		workflow.StateIdle: {"Remote"},
		"Remote":           {"Local"},
		"Local":            {workflow.StateDone},
	},
	Committed: []workflow.State{"Local"},
}

func TestSubscriber_CountsTransitionsAndResults(t *testing.T) {
	ctx := context.Background()
	sub := Subscriber{}

	m := workflow.New(testDef, "A1", sub)
	require.NoError(t, m.Advance(ctx, "Remote"))
	require.NoError(t, m.Advance(ctx, "Local"))
	m.Fail(ctx, models.ErrBackendRejected)
	m.Finish(ctx, workflow.Outcome{})

	require.Equal(t, 1.0, testutil.ToFloat64(TransitionsTotal.WithLabelValues("metrics-test", "Remote")))
	require.Equal(t, 1.0, testutil.ToFloat64(TransitionsTotal.WithLabelValues("metrics-test", "Errored")))
	require.Equal(t, 1.0, testutil.ToFloat64(AttemptsTotal.WithLabelValues("metrics-test", "Errored", "BackendRejected")))
	require.Equal(t, 1.0, testutil.ToFloat64(InconsistentTotal.WithLabelValues("metrics-test")))

	ok := workflow.New(testDef, "B2", sub)
	require.NoError(t, ok.Advance(ctx, "Remote"))
	require.NoError(t, ok.Advance(ctx, "Local"))
	require.NoError(t, ok.Advance(ctx, workflow.StateDone))
	ok.Finish(ctx, workflow.Outcome{})

	require.Equal(t, 1.0, testutil.ToFloat64(AttemptsTotal.WithLabelValues("metrics-test", "Done", "")))
	require.Equal(t, 1.0, testutil.ToFloat64(InconsistentTotal.WithLabelValues("metrics-test")))
	require.Equal(t, 2.0, testutil.ToFloat64(TransitionsTotal.WithLabelValues("metrics-test", "Local")))
}
