// Package workflow is the explicit state machine behind one user action
// (register or delete a tracking number). Each attempt gets its own Machine;
// the UI layer observes it through subscribers instead of owning ad-hoc flags.
package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type State string

const (
	StateIdle    State = "Idle"
	StateDone    State = "Done"
	StateErrored State = "Errored"
)

func (s State) Terminal() bool {
	return s == StateDone || s == StateErrored
}

// Definition описывает граф состояний одного workflow.
// Errored достижим из любого нетерминального состояния и в Edges не указывается.
type Definition struct {
	Name  string
	Edges map[State][]State
	// Committed: состояния, в которые входим уже после коммита у провайдера.
	// Ошибка в них оставляет провайдера и бэкенд рассинхронизированными.
	Committed []State
}

func (d Definition) allowed(from, to State) bool {
	for _, s := range d.Edges[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (d Definition) committed(s State) bool {
	for _, c := range d.Committed {
		if c == s {
			return true
		}
	}
	return false
}

type Transition struct {
	Workflow  string
	AttemptID string
	Number    string
	From      State
	To        State
	Err       error
	At        time.Time
}

type Subscriber interface {
	OnTransition(ctx context.Context, tr Transition)
}

// ResultSubscriber дополнительно получает итог попытки.
type ResultSubscriber interface {
	OnResult(ctx context.Context, res Result)
}

type SubscriberFunc func(ctx context.Context, tr Transition)

func (f SubscriberFunc) OnTransition(ctx context.Context, tr Transition) { f(ctx, tr) }

type Machine struct {
	def       Definition
	attemptID string
	number    string

	state    State
	failedIn State
	err      error

	subs    []Subscriber
	history []Transition

	startedAt time.Time
	now       func() time.Time
}

func New(def Definition, number string, subs ...Subscriber) *Machine {
	now := func() time.Time { return time.Now().UTC() }
	return &Machine{
		def:       def,
		attemptID: uuid.NewString(),
		number:    number,
		state:     StateIdle,
		subs:      subs,
		startedAt: now(),
		now:       now,
	}
}

func (m *Machine) State() State      { return m.state }
func (m *Machine) AttemptID() string { return m.attemptID }

// Advance переводит машину по ребру графа. Нелегальный переход считается ошибкой программиста.
func (m *Machine) Advance(ctx context.Context, to State) error {
	if m.state.Terminal() {
		return errors.Errorf("workflow %s: state %s is terminal", m.def.Name, m.state)
	}
	if !m.def.allowed(m.state, to) {
		slog.Error("illegal workflow transition", "workflow", m.def.Name, "from", m.state, "to", to)
		return errors.Errorf("workflow %s: illegal transition %s -> %s", m.def.Name, m.state, to)
	}
	m.move(ctx, to, nil)
	return nil
}

// Fail переводит машину в Errored и запоминает, где случилась ошибка.
func (m *Machine) Fail(ctx context.Context, err error) {
	if m.state.Terminal() {
		return
	}
	if err == nil {
		err = errors.New("unknown error")
	}
	m.failedIn = m.state
	m.err = err
	m.move(ctx, StateErrored, err)
}

func (m *Machine) move(ctx context.Context, to State, err error) {
	tr := Transition{
		Workflow:  m.def.Name,
		AttemptID: m.attemptID,
		Number:    m.number,
		From:      m.state,
		To:        to,
		Err:       err,
		At:        m.now(),
	}
	m.state = to
	m.history = append(m.history, tr)
	for _, s := range m.subs {
		s.OnTransition(ctx, tr)
	}
}

// Finish собирает итог попытки и отдаёт его подписчикам. Вызывается один раз, в терминальном состоянии.
func (m *Machine) Finish(ctx context.Context, out Outcome) Result {
	res := Result{
		AttemptID:    m.attemptID,
		Workflow:     m.def.Name,
		Number:       m.number,
		State:        m.state,
		FailedIn:     m.failedIn,
		Err:          m.err,
		Kind:         models.ErrorKind(m.err),
		Message:      out.Message,
		NextView:     out.NextView,
		ClearDetails: out.ClearDetails,
		Inconsistent: m.state == StateErrored && m.def.committed(m.failedIn),
		History:      append([]Transition(nil), m.history...),
		StartedAt:    m.startedAt,
		FinishedAt:   m.now(),
	}
	if res.Inconsistent {
		slog.Warn("workflow left provider and backend out of sync",
			"workflow", res.Workflow, "attempt_id", res.AttemptID, "number", res.Number, "failed_in", res.FailedIn)
	}
	for _, s := range m.subs {
		if rs, ok := s.(ResultSubscriber); ok {
			rs.OnResult(ctx, res)
		}
	}
	return res
}

// Outcome: то, что workflow сообщает пользователю по итогам.
type Outcome struct {
	Message      string
	NextView     string
	ClearDetails bool
}

type Result struct {
	AttemptID string
	Workflow  string
	Number    string

	State    State
	FailedIn State
	Err      error
	Kind     string

	Message      string
	NextView     string
	ClearDetails bool

	Inconsistent bool
	History      []Transition

	StartedAt  time.Time
	FinishedAt time.Time
}

func (r Result) OK() bool { return r.State == StateDone }

func (r Result) Attempt() models.Attempt {
	steps := make([]models.AttemptStep, 0, len(r.History))
	for _, tr := range r.History {
		st := models.AttemptStep{From: string(tr.From), To: string(tr.To), At: tr.At}
		if tr.Err != nil {
			msg := tr.Err.Error()
			st.Error = &msg
		}
		steps = append(steps, st)
	}
	return models.Attempt{
		ID:             r.AttemptID,
		Workflow:       r.Workflow,
		TrackingNumber: r.Number,
		FinalState:     string(r.State),
		FailedIn:       string(r.FailedIn),
		ErrorKind:      r.Kind,
		Message:        r.Message,
		Inconsistent:   r.Inconsistent,
		StartedAt:      r.StartedAt,
		FinishedAt:     r.FinishedAt,
		Steps:          steps,
	}
}
