package domain

import "time"

// Subject is the item a run analyzes
type Subject struct {
	ID         string            `json:"id"`
	Location   string            `json:"location,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// RunStatus is the lifecycle status of an asynchronous run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusCancelled RunStatus = "cancelled"
	RunStatusFailed    RunStatus = "failed"
)

// IsTerminal reports whether the status is final
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusCancelled || s == RunStatusFailed
}

// RunRecord is the persisted outcome of a run submitted through the run manager
type RunRecord struct {
	ID          string           `json:"id"`
	Subject     Subject          `json:"subject"`
	Status      RunStatus        `json:"status"`
	Config      map[string]Value `json:"config,omitempty"`
	Signals     []Signal         `json:"signals,omitempty"`
	Error       string           `json:"error,omitempty"`
	SubmittedAt time.Time        `json:"submitted_at"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}
