package workflow

import (
	"context"
	"testing"

	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

const (
	stateA State = "A"
	stateB State = "B"
)

var testDef = Definition{
	Name: "test",
	Edges: map[State][]State{
		StateIdle: {stateA},
		stateA:    {stateB},
		stateB:    {StateDone},
	},
	Committed: []State{stateB},
}

type recorder struct {
	trs     []Transition
	results []Result
}

func (r *recorder) OnTransition(ctx context.Context, tr Transition) { r.trs = append(r.trs, tr) }
func (r *recorder) OnResult(ctx context.Context, res Result)        { r.results = append(r.results, res) }

func TestMachine_HappyPath(t *testing.T) {
	rec := &recorder{}
	var funcCalls int
	m := New(testDef, "N1", rec, SubscriberFunc(func(ctx context.Context, tr Transition) { funcCalls++ }))
	ctx := context.Background()

	require.Equal(t, StateIdle, m.State())
	require.NotEmpty(t, m.AttemptID())
	require.NoError(t, m.Advance(ctx, stateA))
	require.NoError(t, m.Advance(ctx, stateB))
	require.NoError(t, m.Advance(ctx, StateDone))

	res := m.Finish(ctx, Outcome{Message: "ok", NextView: models.ViewMonitoredDeliveries})
	require.True(t, res.OK())
	require.False(t, res.Inconsistent)
	require.Equal(t, "", res.Kind)
	require.Len(t, res.History, 3)
	require.Equal(t, StateIdle, res.History[0].From)
	require.Equal(t, StateDone, res.History[2].To)

	require.Len(t, rec.trs, 3)
	require.Equal(t, 3, funcCalls)
	require.Len(t, rec.results, 1)
	require.Equal(t, "N1", rec.results[0].Number)
}

func TestMachine_IllegalTransition(t *testing.T) {
	m := New(testDef, "N1")
	err := m.Advance(context.Background(), stateB)
	require.Error(t, err)
	require.Equal(t, StateIdle, m.State())
}

func TestMachine_FailFromIdle(t *testing.T) {
	m := New(testDef, "")
	m.Fail(context.Background(), errors.Wrap(models.ErrInvalidInput, "empty"))
	require.Equal(t, StateErrored, m.State())

	res := m.Finish(context.Background(), Outcome{Message: "bad"})
	require.False(t, res.OK())
	require.Equal(t, StateIdle, res.FailedIn)
	require.Equal(t, "InvalidInput", res.Kind)
	require.False(t, res.Inconsistent)
}

func TestMachine_FailInCommittedState_IsInconsistent(t *testing.T) {
	ctx := context.Background()
	m := New(testDef, "N1")
	require.NoError(t, m.Advance(ctx, stateA))
	require.NoError(t, m.Advance(ctx, stateB))
	m.Fail(ctx, models.ErrBackendRejected)

	res := m.Finish(ctx, Outcome{})
	require.True(t, res.Inconsistent)
	require.Equal(t, stateB, res.FailedIn)

	att := res.Attempt()
	require.Equal(t, "Errored", att.FinalState)
	require.Equal(t, "B", att.FailedIn)
	require.Equal(t, "BackendRejected", att.ErrorKind)
	require.True(t, att.Inconsistent)
}

func TestMachine_TerminalIsFinal(t *testing.T) {
	ctx := context.Background()
	m := New(testDef, "N1")
	m.Fail(ctx, nil)
	require.Equal(t, StateErrored, m.State())
	require.Error(t, m.Advance(ctx, stateA))

	// повторный Fail ничего не меняет
	m.Fail(ctx, models.ErrNetworkFailure)
	res := m.Finish(ctx, Outcome{})
	require.Len(t, res.History, 1)
	require.Equal(t, "Unexpected", res.Kind)
}
