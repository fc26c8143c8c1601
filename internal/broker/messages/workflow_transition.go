package messages

import (
	"time"
)

const TopicWorkflowTransitions = "workflow.transitions"

// WorkflowTransition описывает один переход машины состояний. Ключ сообщения AttemptID.
type WorkflowTransition struct {
	AttemptID      string    `json:"attempt_id"`
	Workflow       string    `json:"workflow"`
	TrackingNumber string    `json:"tracking_number"`
	From           string    `json:"from"`
	To             string    `json:"to"`
	ErrorKind      string    `json:"error_kind,omitempty"`
	Error          *string   `json:"error,omitempty"`
	At             time.Time `json:"at"`
}
