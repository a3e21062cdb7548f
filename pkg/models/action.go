package models

import (
	"math"
	"time"
)

// ActionType identifies the handler used to run an action.
type ActionType string

const (
	ActionTypeSendNotification ActionType = "send_notification"
	ActionTypeAssignTask       ActionType = "assign_task"
	ActionTypeUpdateStatus     ActionType = "update_status"
	ActionTypeCreateDocument   ActionType = "create_document"
	ActionTypeSendEmail        ActionType = "send_email"
	ActionTypeWebhook          ActionType = "webhook"
	ActionTypeAPICall          ActionType = "api_call"
	ActionTypeRunWorkflow      ActionType = "run_workflow"
)

// WorkflowAction is one unit of work within a workflow. OnSuccess/OnFailure
// turn the flat action list into a graph: when either is declared, routing is
// explicit and index fallthrough no longer applies to this action.
type WorkflowAction struct {
	ID          string               `json:"id"     validate:"required"`
	Type        ActionType           `json:"type"   validate:"required"`
	Name        string               `json:"name,omitempty"`
	Config      map[string]any       `json:"config,omitempty"`
	RetryConfig *RetryConfig         `json:"retry_config,omitempty"`
	Conditions  []*WorkflowCondition `json:"conditions,omitempty"`
	OnSuccess   []string             `json:"on_success,omitempty"`
	OnFailure   []string             `json:"on_failure,omitempty"`
}

// Routed reports whether the action declares explicit routing edges.
func (a *WorkflowAction) Routed() bool {
	return len(a.OnSuccess) > 0 || len(a.OnFailure) > 0
}

// RetryConfig bounds repeated attempts of a single action. Absence means
// exactly one attempt.
type RetryConfig struct {
	MaxAttempts       int     `json:"max_attempts"        validate:"required,min=1"`
	DelayMs           int     `json:"delay_ms"            validate:"min=0"`
	BackoffMultiplier float64 `json:"backoff_multiplier,omitempty"`
	MaxDelayMs        int     `json:"max_delay_ms,omitempty"`
}

// Delay returns the wait before the given attempt (attempts are 1-based; the
// first attempt never waits). With a backoff multiplier the delay grows
// geometrically and is capped at MaxDelayMs when set.
func (r *RetryConfig) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delay := float64(r.DelayMs)
	if r.BackoffMultiplier > 0 {
		delay *= math.Pow(r.BackoffMultiplier, float64(attempt-2))
	}

	if r.MaxDelayMs > 0 && delay > float64(r.MaxDelayMs) {
		delay = float64(r.MaxDelayMs)
	}

	return time.Duration(delay) * time.Millisecond
}
