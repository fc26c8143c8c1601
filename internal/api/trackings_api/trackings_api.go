// Package trackings_api is the HTTP surface of the app. Each mutating request
// runs exactly one workflow attempt and returns its result; a per-number
// submission guard stands in for the disabled submit button.
package trackings_api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/BearBump/ParcelBox/internal/services/monitored"
	"github.com/BearBump/ParcelBox/internal/services/registration"
	"github.com/BearBump/ParcelBox/internal/workflow"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const msgBusy = "This tracking number is already being processed. Please wait."

type Registrar interface {
	Register(ctx context.Context, req registration.Request) workflow.Result
}

type Deleter interface {
	Delete(ctx context.Context, number string) workflow.Result
}

type Viewer interface {
	List(ctx context.Context) ([]monitored.ItemView, error)
	Details(ctx context.Context, number string) (monitored.DetailsView, error)
}

type PushTokens interface {
	EnsureTokenRegistered(ctx context.Context, token string) (bool, error)
}

type SubmitGuard interface {
	Acquire(ctx context.Context, key string) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

type AttemptLog interface {
	ListInconsistent(ctx context.Context, limit int) ([]*models.Attempt, error)
	ListSteps(ctx context.Context, attemptID string) ([]models.AttemptStep, error)
}

type Deps struct {
	Registrar Registrar
	Deleter   Deleter
	Viewer    Viewer
	Push      PushTokens
	// Guard и Attempts опциональны.
	Guard    SubmitGuard
	Attempts AttemptLog
}

type TrackingsAPI struct {
	deps     Deps
	validate *validator.Validate
}

func New(deps Deps) *TrackingsAPI {
	return &TrackingsAPI{deps: deps, validate: validator.New()}
}

func (a *TrackingsAPI) Routes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Post("/trackings", a.registerTracking)
		r.Get("/trackings", a.listTrackings)
		r.Get("/trackings/{number}", a.trackingDetails)
		r.Delete("/trackings/{number}", a.deleteTracking)
		r.Get("/couriers", a.listCouriers)
		r.Post("/push-token", a.registerPushToken)
		r.Get("/attempts/inconsistent", a.listInconsistent)
		r.Get("/attempts/{id}/steps", a.listSteps)
	})
}

type registerRequest struct {
	TrackingNumber string `json:"tracking_number" validate:"max=64"`
	Courier        int    `json:"courier" validate:"min=0"`
}

type pushTokenRequest struct {
	Token string `json:"token" validate:"max=4096"`
}

type resultResponse struct {
	AttemptID      string `json:"attempt_id"`
	TrackingNumber string `json:"tracking_number"`
	State          string `json:"state"`
	FailedIn       string `json:"failed_in,omitempty"`
	ErrorKind      string `json:"error_kind,omitempty"`
	Message        string `json:"message"`
	NextView       string `json:"next_view,omitempty"`
	ClearDetails   bool   `json:"clear_details"`
	Inconsistent   bool   `json:"inconsistent"`
}

type errorResponse struct {
	Error     string `json:"error"`
	ErrorKind string `json:"error_kind,omitempty"`
}

type courierResponse struct {
	Key  int    `json:"key"`
	Name string `json:"name"`
}

type attemptResponse struct {
	ID             string `json:"id"`
	Workflow       string `json:"workflow"`
	TrackingNumber string `json:"tracking_number"`
	FailedIn       string `json:"failed_in"`
	ErrorKind      string `json:"error_kind"`
	Message        string `json:"message"`
	FinishedAt     string `json:"finished_at"`
}

func (a *TrackingsAPI) registerTracking(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !a.decode(w, r, &req) {
		return
	}

	number := models.NormalizeTrackingNumber(req.TrackingNumber)
	release, ok := a.acquire(w, r, "register:"+number, number != "")
	if !ok {
		return
	}
	defer release()

	res := a.deps.Registrar.Register(r.Context(), registration.Request{
		TrackingNumber: req.TrackingNumber,
		Courier:        models.Courier(req.Courier),
	})
	writeResult(w, res, http.StatusCreated)
}

func (a *TrackingsAPI) deleteTracking(w http.ResponseWriter, r *http.Request) {
	number := models.NormalizeTrackingNumber(chi.URLParam(r, "number"))
	release, ok := a.acquire(w, r, "delete:"+number, number != "")
	if !ok {
		return
	}
	defer release()

	writeResult(w, a.deps.Deleter.Delete(r.Context(), number), http.StatusOK)
}

func (a *TrackingsAPI) listTrackings(w http.ResponseWriter, r *http.Request) {
	items, err := a.deps.Viewer.List(r.Context())
	if err != nil {
		writeError(w, err, "Failed to load monitored deliveries. Please try again.")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *TrackingsAPI) trackingDetails(w http.ResponseWriter, r *http.Request) {
	v, err := a.deps.Viewer.Details(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		msg := "Failed to load tracking details. Please try again."
		if errors.Is(err, models.ErrNotFound) {
			msg = monitored.MsgNoData
		}
		writeError(w, err, msg)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (a *TrackingsAPI) listCouriers(w http.ResponseWriter, r *http.Request) {
	cs := models.Couriers()
	out := make([]courierResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, courierResponse{Key: int(c.Key), Name: c.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *TrackingsAPI) registerPushToken(w http.ResponseWriter, r *http.Request) {
	var req pushTokenRequest
	if !a.decode(w, r, &req) {
		return
	}
	sent, err := a.deps.Push.EnsureTokenRegistered(r.Context(), req.Token)
	if err != nil {
		writeError(w, err, "Failed to register push token.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"sent": sent})
}

func (a *TrackingsAPI) listInconsistent(w http.ResponseWriter, r *http.Request) {
	if a.deps.Attempts == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "attempt log is disabled"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := a.deps.Attempts.ListInconsistent(r.Context(), limit)
	if err != nil {
		writeError(w, err, "Failed to load attempts.")
		return
	}
	out := make([]attemptResponse, 0, len(list))
	for _, at := range list {
		out = append(out, attemptResponse{
			ID:             at.ID,
			Workflow:       at.Workflow,
			TrackingNumber: at.TrackingNumber,
			FailedIn:       at.FailedIn,
			ErrorKind:      at.ErrorKind,
			Message:        at.Message,
			FinishedAt:     at.FinishedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type stepResponse struct {
	From  string  `json:"from"`
	To    string  `json:"to"`
	Error *string `json:"error,omitempty"`
	At    string  `json:"at"`
}

func (a *TrackingsAPI) listSteps(w http.ResponseWriter, r *http.Request) {
	if a.deps.Attempts == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "attempt log is disabled"})
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid attempt id", ErrorKind: "InvalidInput"})
		return
	}
	steps, err := a.deps.Attempts.ListSteps(r.Context(), id)
	if err != nil {
		writeError(w, err, "Failed to load attempt steps.")
		return
	}
	if len(steps) == 0 {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "attempt not found", ErrorKind: "NotFound"})
		return
	}
	out := make([]stepResponse, 0, len(steps))
	for _, st := range steps {
		out = append(out, stepResponse{
			From:  st.From,
			To:    st.To,
			Error: st.Error,
			At:    st.At.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *TrackingsAPI) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body", ErrorKind: "InvalidInput"})
		return false
	}
	if err := a.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), ErrorKind: "InvalidInput"})
		return false
	}
	return true
}

// acquire занимает номер на время попытки. Пустой номер не гардится: workflow сам вернёт InvalidInput.
// Если Redis недоступен, пропускаем без гарда.
func (a *TrackingsAPI) acquire(w http.ResponseWriter, r *http.Request, key string, guarded bool) (func(), bool) {
	noop := func() {}
	if a.deps.Guard == nil || !guarded {
		return noop, true
	}
	token, ok, err := a.deps.Guard.Acquire(r.Context(), key)
	if err != nil {
		slog.Warn("submit guard unavailable", "key", key, "error", err.Error())
		return noop, true
	}
	if !ok {
		writeJSON(w, http.StatusConflict, errorResponse{Error: msgBusy})
		return nil, false
	}
	return func() {
		if err := a.deps.Guard.Release(context.WithoutCancel(r.Context()), key, token); err != nil {
			slog.Warn("submit guard release failed", "key", key, "error", err.Error())
		}
	}, true
}

func writeResult(w http.ResponseWriter, res workflow.Result, okStatus int) {
	status := okStatus
	if !res.OK() {
		status = statusForKind(res.Kind)
	}
	writeJSON(w, status, resultResponse{
		AttemptID:      res.AttemptID,
		TrackingNumber: res.Number,
		State:          string(res.State),
		FailedIn:       string(res.FailedIn),
		ErrorKind:      res.Kind,
		Message:        res.Message,
		NextView:       res.NextView,
		ClearDetails:   res.ClearDetails,
		Inconsistent:   res.Inconsistent,
	})
}

func writeError(w http.ResponseWriter, err error, msg string) {
	kind := models.ErrorKind(err)
	status := statusForKind(kind)
	if status == http.StatusInternalServerError {
		slog.Error("unhandled error", "error", err.Error())
	}
	writeJSON(w, status, errorResponse{Error: msg, ErrorKind: kind})
}

func statusForKind(kind string) int {
	switch kind {
	case "InvalidInput":
		return http.StatusBadRequest
	case "AlreadyRegistered":
		return http.StatusConflict
	case "PreconditionMissing":
		return http.StatusPreconditionFailed
	case "NotFound":
		return http.StatusNotFound
	case "ProviderRejected", "BackendRejected":
		return http.StatusBadGateway
	case "NetworkFailure":
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err.Error())
	}
}
