// Package metrics holds the Prometheus metrics of the workflows. Collectors are
// registered on the default registry at init via promauto; /metrics serves them.
package metrics

import (
	"context"

	"github.com/BearBump/ParcelBox/internal/workflow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "parcelbox"

// TransitionsTotal counts every state change.
// Labels: workflow, to.
var TransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "workflow_transitions_total",
		Help:      "Total number of workflow state transitions.",
	},
	[]string{"workflow", "to"},
)

// AttemptsTotal counts finished attempts by terminal state and error kind ("" on success).
var AttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "workflow_attempts_total",
		Help:      "Total number of finished workflow attempts.",
	},
	[]string{"workflow", "state", "kind"},
)

// InconsistentTotal counts attempts that failed after the provider had committed.
var InconsistentTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "workflow_inconsistent_total",
		Help:      "Total number of attempts that left provider and backend out of sync.",
	},
	[]string{"workflow"},
)

var AttemptDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "workflow_attempt_duration_seconds",
		Help:      "Duration of a workflow attempt from Idle to a terminal state.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"workflow", "state"},
)

// Subscriber пишет метрики по переходам и итогам попыток.
type Subscriber struct{}

func (Subscriber) OnTransition(ctx context.Context, tr workflow.Transition) {
	TransitionsTotal.WithLabelValues(tr.Workflow, string(tr.To)).Inc()
}

func (Subscriber) OnResult(ctx context.Context, res workflow.Result) {
	AttemptsTotal.WithLabelValues(res.Workflow, string(res.State), res.Kind).Inc()
	AttemptDuration.WithLabelValues(res.Workflow, string(res.State)).
		Observe(res.FinishedAt.Sub(res.StartedAt).Seconds())
	if res.Inconsistent {
		InconsistentTotal.WithLabelValues(res.Workflow).Inc()
	}
}
