package registration

import (
	"context"
	"log/slog"
	"time"

	"github.com/BearBump/ParcelBox/internal/integrations/provider"
	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/BearBump/ParcelBox/internal/workflow"
	"github.com/pkg/errors"
)

const WorkflowName = "registration"

const (
	StateChecking    workflow.State = "Checking"
	StateRegistering workflow.State = "Registering"
	StateSyncing     workflow.State = "Syncing"
)

var Definition = workflow.Definition{
	Name: WorkflowName,
	Edges: map[workflow.State][]workflow.State{
		workflow.StateIdle: {StateChecking},
		StateChecking:      {StateRegistering},
		StateRegistering:   {StateSyncing},
		StateSyncing:       {workflow.StateDone},
	},
	// В Syncing номер уже зарегистрирован у провайдера, отката нет.
	Committed: []workflow.State{StateSyncing},
}

const (
	MsgMissingInput      = "Please enter a tracking number before proceeding."
	MsgUnknownCourier    = "Please choose a courier from the list or use Auto Detect."
	MsgAlreadyRegistered = "This tracking number is already registered. Check Monitored Deliveries for updates."
	MsgRegisterFailed    = "Failed to register tracking number."
	MsgFailed            = "Failed to retrieve tracking data. Please check the tracking number and try again."
	MsgRegistered        = "Tracking number registered successfully."
)

const DefaultSettleDelay = time.Second

type Provider interface {
	QueryExisting(ctx context.Context, number string) (*models.TrackingRecord, bool, error)
	Register(ctx context.Context, number string, courier models.Courier) (provider.Result, error)
}

type Backend interface {
	RegisterTracking(ctx context.Context, number, userID string) error
}

type Identity interface {
	EnsureUserID(ctx context.Context) (string, error)
}

type Request struct {
	TrackingNumber string
	Courier        models.Courier
}

type Service struct {
	provider Provider
	backend  Backend
	identity Identity
	subs     []workflow.Subscriber

	settle time.Duration
	sleep  func(ctx context.Context, d time.Duration)
}

func New(p Provider, b Backend, id Identity, subs ...workflow.Subscriber) *Service {
	return &Service{
		provider: p,
		backend:  b,
		identity: id,
		subs:     subs,
		settle:   DefaultSettleDelay,
		sleep:    sleepCtx,
	}
}

// WithSettleDelay задаёт паузу перед переходом к списку, чтобы запись на бэкенде успела осесть.
func (s *Service) WithSettleDelay(d time.Duration) *Service {
	if d >= 0 {
		s.settle = d
	}
	return s
}

// Register проводит одну попытку: проверка -> регистрация у провайдера -> синхронизация с бэкендом.
// Ошибки не ретраятся; введённые значения остаются у вызывающего для повторной отправки.
func (s *Service) Register(ctx context.Context, req Request) workflow.Result {
	number := models.NormalizeTrackingNumber(req.TrackingNumber)
	m := workflow.New(Definition, number, s.subs...)

	fail := func(err error, msg string) workflow.Result {
		slog.Info("tracking registration failed",
			"attempt_id", m.AttemptID(), "number", number, "state", m.State(), "error", err.Error())
		m.Fail(ctx, err)
		return m.Finish(ctx, workflow.Outcome{Message: msg})
	}

	if number == "" {
		return fail(errors.Wrap(models.ErrInvalidInput, "tracking number is empty"), MsgMissingInput)
	}
	if !req.Courier.IsAutoDetect() && !req.Courier.Known() {
		return fail(errors.Wrapf(models.ErrInvalidInput, "unknown courier %d", req.Courier), MsgUnknownCourier)
	}

	userID, err := s.identity.EnsureUserID(ctx)
	if err != nil {
		return fail(errors.Wrapf(models.ErrPreconditionMissing, "install identity: %v", err), MsgFailed)
	}

	if err := m.Advance(ctx, StateChecking); err != nil {
		return fail(err, MsgFailed)
	}
	_, found, err := s.provider.QueryExisting(ctx, number)
	if err != nil {
		return fail(err, MsgFailed)
	}
	if found {
		return fail(errors.Wrap(models.ErrAlreadyRegistered, number), MsgAlreadyRegistered)
	}

	if err := m.Advance(ctx, StateRegistering); err != nil {
		return fail(err, MsgFailed)
	}
	res, err := s.provider.Register(ctx, number, req.Courier)
	if err != nil {
		return fail(err, MsgFailed)
	}
	if !res.OK {
		return fail(errors.Wrapf(models.ErrProviderRejected, "register code=%d", res.Code), MsgRegisterFailed)
	}

	if err := m.Advance(ctx, StateSyncing); err != nil {
		return fail(err, MsgFailed)
	}
	if err := s.backend.RegisterTracking(ctx, number, userID); err != nil {
		return fail(err, MsgFailed)
	}

	if err := m.Advance(ctx, workflow.StateDone); err != nil {
		return fail(err, MsgFailed)
	}
	slog.Info("tracking registered", "attempt_id", m.AttemptID(), "number", number, "courier", int(req.Courier))

	// Подтверждающего чтения нет, просто даём бэкенду время.
	if s.settle > 0 {
		s.sleep(ctx, s.settle)
	}
	return m.Finish(ctx, workflow.Outcome{
		Message:  MsgRegistered,
		NextView: models.ViewMonitoredDeliveries,
	})
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
