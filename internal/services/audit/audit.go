// Package audit forwards workflow activity out of process: every transition
// to Kafka and every finished attempt to the attempt log. Both are best effort;
// a failure is logged and never changes the outcome of the workflow.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/BearBump/ParcelBox/internal/broker/messages"
	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/BearBump/ParcelBox/internal/workflow"
)

type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type AttemptSaver interface {
	SaveAttempt(ctx context.Context, a models.Attempt) error
}

// TransitionPublisher публикует переходы в топик с ключом attempt id, чтобы шаги одной попытки шли по порядку.
type TransitionPublisher struct {
	pub   Publisher
	topic string
}

func NewTransitionPublisher(pub Publisher, topic string) *TransitionPublisher {
	if topic == "" {
		topic = messages.TopicWorkflowTransitions
	}
	return &TransitionPublisher{pub: pub, topic: topic}
}

func (p *TransitionPublisher) OnTransition(ctx context.Context, tr workflow.Transition) {
	msg := messages.WorkflowTransition{
		AttemptID:      tr.AttemptID,
		Workflow:       tr.Workflow,
		TrackingNumber: tr.Number,
		From:           string(tr.From),
		To:             string(tr.To),
		At:             tr.At,
	}
	if tr.Err != nil {
		s := tr.Err.Error()
		msg.Error = &s
		msg.ErrorKind = models.ErrorKind(tr.Err)
	}

	b, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal workflow transition", "attempt_id", tr.AttemptID, "error", err.Error())
		return
	}
	if err := p.pub.Publish(ctx, p.topic, []byte(tr.AttemptID), b); err != nil {
		slog.Error("publish workflow transition", "attempt_id", tr.AttemptID, "to", tr.To, "error", err.Error())
	}
}

// AttemptRecorder пишет итог каждой попытки в журнал.
type AttemptRecorder struct {
	saver AttemptSaver
}

func NewAttemptRecorder(saver AttemptSaver) *AttemptRecorder {
	return &AttemptRecorder{saver: saver}
}

func (r *AttemptRecorder) OnTransition(ctx context.Context, tr workflow.Transition) {}

func (r *AttemptRecorder) OnResult(ctx context.Context, res workflow.Result) {
	a := res.Attempt()
	if err := r.saver.SaveAttempt(context.WithoutCancel(ctx), a); err != nil {
		slog.Error("save workflow attempt",
			"attempt_id", a.ID, "workflow", a.Workflow, "inconsistent", a.Inconsistent, "error", err.Error())
	}
}
