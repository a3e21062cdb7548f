// Package events defines event types for workflow execution lifecycle notifications.
package events

import (
	"time"

	"github.com/claimflow/claimflow/pkg/models"
)

type EventType string

// Topic carries all execution lifecycle events.
const Topic = "claimflow.executions"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	ExecutionCancelledEvent EventType = "execution.cancelled"

	ActionFinishedEvent EventType = "execution.action.finished"
	ActionFailedEvent   EventType = "execution.action.failed"

	// PersistenceFailureEvent is the side channel for a persist call that
	// failed after the run completed in memory.
	PersistenceFailureEvent EventType = "execution.persistence.failure"

	// EvaluationDiagnosticEvent surfaces conditions and placeholders that
	// silently degraded during a run.
	EvaluationDiagnosticEvent EventType = "execution.evaluation.diagnostic"
)

type BaseEvent struct {
	ID          string         `json:"id"`
	Type        EventType      `json:"type"`
	Timestamp   time.Time      `json:"timestamp"`
	WorkflowID  string         `json:"workflow_id"`
	ExecutionID string         `json:"execution_id"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type ExecutionStarted struct {
	BaseEvent

	TriggeredBy string         `json:"triggered_by"`
	TriggerData map[string]any `json:"trigger_data,omitempty"`
}

func (e ExecutionStarted) GetType() EventType { return ExecutionStartedEvent }

type ExecutionCompleted struct {
	BaseEvent

	DurationMs int64 `json:"duration_ms"`
	Actions    int   `json:"actions"`
}

func (e ExecutionCompleted) GetType() EventType { return ExecutionCompletedEvent }

type ExecutionFailed struct {
	BaseEvent

	Error      string `json:"error"`
	DurationMs int64  `json:"duration_ms"`
}

func (e ExecutionFailed) GetType() EventType { return ExecutionFailedEvent }

type ExecutionCancelled struct {
	BaseEvent

	Reason     string `json:"reason,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

func (e ExecutionCancelled) GetType() EventType { return ExecutionCancelledEvent }

type ActionFinished struct {
	BaseEvent

	ActionID string            `json:"action_id"`
	Type     models.ActionType `json:"action_type"`
	Attempts int               `json:"attempts"`
	Duration int64             `json:"duration_ms"`
}

func (e ActionFinished) GetType() EventType { return ActionFinishedEvent }

type ActionFailed struct {
	BaseEvent

	ActionID string            `json:"action_id"`
	Type     models.ActionType `json:"action_type"`
	Attempts int               `json:"attempts"`
	Error    string            `json:"error"`
}

func (e ActionFailed) GetType() EventType { return ActionFailedEvent }

type PersistenceFailure struct {
	BaseEvent

	Error string `json:"error"`
}

func (e PersistenceFailure) GetType() EventType { return PersistenceFailureEvent }

type EvaluationDiagnostic struct {
	BaseEvent

	Source string `json:"source"` // "condition" or "interpolation"
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e EvaluationDiagnostic) GetType() EventType { return EvaluationDiagnosticEvent }
