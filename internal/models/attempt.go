package models

import "time"

// Attempt: итог одного прогона workflow (журнал попыток).
type Attempt struct {
	ID             string
	Workflow       string
	TrackingNumber string
	FinalState     string
	FailedIn       string
	ErrorKind      string
	Message        string
	// Inconsistent: провайдер уже закоммитил изменение, а бэкенд нет.
	Inconsistent bool
	StartedAt    time.Time
	FinishedAt   time.Time

	Steps []AttemptStep
}

type AttemptStep struct {
	From  string
	To    string
	Error *string
	At    time.Time
}
