package deletion

import (
	"context"
	"log/slog"

	"github.com/BearBump/ParcelBox/internal/integrations/backend"
	"github.com/BearBump/ParcelBox/internal/integrations/provider"
	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/BearBump/ParcelBox/internal/workflow"
	"github.com/pkg/errors"
)

const WorkflowName = "deletion"

const (
	StateDeletingRemote  workflow.State = "DeletingRemote"
	StateDeletingBackend workflow.State = "DeletingBackend"
)

var Definition = workflow.Definition{
	Name: WorkflowName,
	Edges: map[workflow.State][]workflow.State{
		workflow.StateIdle:   {StateDeletingRemote},
		StateDeletingRemote:  {StateDeletingBackend},
		StateDeletingBackend: {workflow.StateDone},
	},
	// У провайдера номер уже удалён, восстановить его нечем.
	Committed: []workflow.State{StateDeletingBackend},
}

const (
	MsgMissingInput  = "Please enter a tracking number before proceeding."
	MsgNoUserID      = "User ID not found."
	MsgRemoteFailed  = "Failed to delete tracking number from the tracking provider. Please try again."
	MsgBackendFailed = "Failed to delete tracking number from local server. Please try again."
	MsgFailed        = "Failed to delete tracking number. Please try again."
	MsgDeleted       = "Tracking number deleted successfully."
)

type Provider interface {
	Remove(ctx context.Context, number string) (provider.Result, error)
}

type Backend interface {
	DeleteTracking(ctx context.Context, number, userID string) (backend.Ack, error)
}

// Identity только читает: удаление не создаёт идентичность.
type Identity interface {
	UserID(ctx context.Context) (string, bool, error)
}

type Service struct {
	provider Provider
	backend  Backend
	identity Identity
	subs     []workflow.Subscriber
}

func New(p Provider, b Backend, id Identity, subs ...workflow.Subscriber) *Service {
	return &Service{provider: p, backend: b, identity: id, subs: subs}
}

// Delete снимает номер с отслеживания у провайдера, затем у бэкенда.
// Если бэкенд отказал, номер у провайдера уже удалён; попытка помечается как inconsistent.
func (s *Service) Delete(ctx context.Context, number string) workflow.Result {
	number = models.NormalizeTrackingNumber(number)
	m := workflow.New(Definition, number, s.subs...)

	fail := func(err error, msg string) workflow.Result {
		slog.Info("tracking deletion failed",
			"attempt_id", m.AttemptID(), "number", number, "state", m.State(), "error", err.Error())
		m.Fail(ctx, err)
		return m.Finish(ctx, workflow.Outcome{Message: msg})
	}

	userID, ok, err := s.identity.UserID(ctx)
	if err != nil {
		return fail(err, MsgFailed)
	}
	if !ok {
		return fail(errors.Wrap(models.ErrPreconditionMissing, "user id not set"), MsgNoUserID)
	}
	if number == "" {
		return fail(errors.Wrap(models.ErrInvalidInput, "tracking number is empty"), MsgMissingInput)
	}

	if err := m.Advance(ctx, StateDeletingRemote); err != nil {
		return fail(err, MsgFailed)
	}
	res, err := s.provider.Remove(ctx, number)
	if err != nil {
		return fail(err, MsgFailed)
	}
	if !res.OK {
		return fail(errors.Wrapf(models.ErrProviderRejected, "deletetrack code=%d", res.Code), MsgRemoteFailed)
	}

	if err := m.Advance(ctx, StateDeletingBackend); err != nil {
		return fail(err, MsgFailed)
	}
	ack, err := s.backend.DeleteTracking(ctx, number, userID)
	if err != nil {
		return fail(err, MsgFailed)
	}
	if ack.Status != backend.StatusSuccess {
		return fail(errors.Wrapf(models.ErrBackendRejected, "delete_tracking status=%q message=%q", ack.Status, ack.Message), MsgBackendFailed)
	}

	if err := m.Advance(ctx, workflow.StateDone); err != nil {
		return fail(err, MsgFailed)
	}
	slog.Info("tracking deleted", "attempt_id", m.AttemptID(), "number", number)

	return m.Finish(ctx, workflow.Outcome{
		Message:      MsgDeleted,
		NextView:     models.ViewMonitoredDeliveries,
		ClearDetails: true,
	})
}
