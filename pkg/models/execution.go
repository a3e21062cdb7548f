package models

import "time"

// ExecutionStatus is the lifecycle state of a workflow execution.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
	ExecutionStatusPaused    ExecutionStatus = "paused"
)

// Terminal reports whether the status ends the execution lifecycle.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed || s == ExecutionStatusCancelled
}

// ActionExecutionStatus is the outcome of one action invocation.
type ActionExecutionStatus string

const (
	ActionStatusRunning   ActionExecutionStatus = "running"
	ActionStatusCompleted ActionExecutionStatus = "completed"
	ActionStatusFailed    ActionExecutionStatus = "failed"
)

// ActionExecution records one action invocation during a run. Actions skipped
// by a failed condition gate produce no record at all.
type ActionExecution struct {
	ActionID    string                `json:"action_id"`
	Status      ActionExecutionStatus `json:"status"`
	StartedAt   time.Time             `json:"started_at"`
	CompletedAt *time.Time            `json:"completed_at,omitempty"`
	Attempts    int                   `json:"attempts"`
	Result      any                   `json:"result,omitempty"`
	Error       string                `json:"error,omitempty"`
	DurationMs  int64                 `json:"duration_ms"`
}

// WorkflowExecution is the auditable record of one workflow run. Only the
// engine writes to it; once terminal it is immutable and persisted.
type WorkflowExecution struct {
	ID             string             `json:"id"`
	WorkflowID     string             `json:"workflow_id"`
	OrganizationID string             `json:"organization_id"`
	Status         ExecutionStatus    `json:"status"`
	Context        *ExecutionContext  `json:"context,omitempty"`
	Actions        []*ActionExecution `json:"actions"`
	StartedAt      time.Time          `json:"started_at"`
	CompletedAt    *time.Time         `json:"completed_at,omitempty"`
	DurationMs     int64              `json:"duration_ms"`
	Error          string             `json:"error,omitempty"`
	Metadata       map[string]any     `json:"metadata,omitempty"`
}
