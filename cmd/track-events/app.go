package main

import (
	"context"
	"log/slog"

	"github.com/BearBump/ParcelBox/internal/broker/messages"
)

type trackEventsOpts struct {
	topic         string
	consumerGroup string
}

type transitionConsumer interface {
	ConsumeTransitions(ctx context.Context, handler func(ctx context.Context, tr messages.WorkflowTransition) error) error
}

func runTrackEvents(ctx context.Context, opts trackEventsOpts, consumer transitionConsumer) error {
	slog.Info("kafka consumer started", "topic", opts.topic, "group", opts.consumerGroup)
	err := consumer.ConsumeTransitions(ctx, logTransition)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func logTransition(ctx context.Context, m messages.WorkflowTransition) error {
	attrs := []any{
		"attempt_id", m.AttemptID,
		"workflow", m.Workflow,
		"number", m.TrackingNumber,
		"from", m.From,
		"to", m.To,
		"at", m.At,
	}
	if m.Error != nil {
		attrs = append(attrs, "error_kind", m.ErrorKind, "error", *m.Error)
		slog.WarnContext(ctx, "workflow transition", attrs...)
		return nil
	}
	slog.InfoContext(ctx, "workflow transition", attrs...)
	return nil
}
