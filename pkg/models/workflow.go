// Package models defines the core domain models for claims workflow automation.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow definition.
type WorkflowStatus string

const (
	WorkflowStatusDraft    WorkflowStatus = "draft"    // Editable, not executable by automatic triggers
	WorkflowStatusActive   WorkflowStatus = "active"   // Executable by any trigger type
	WorkflowStatusPaused   WorkflowStatus = "paused"   // Temporarily disabled for automatic triggers
	WorkflowStatusArchived WorkflowStatus = "archived" // Never executable
)

// WorkflowDefinition is a named workflow configuration owned by an organization.
type WorkflowDefinition struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"            validate:"required,min=3"`
	Description    string            `json:"description"`
	OrganizationID string            `json:"organization_id" validate:"required"`
	Status         WorkflowStatus    `json:"status"          validate:"required,oneof=draft active paused archived"`
	Trigger        WorkflowTrigger   `json:"trigger"`
	Actions        []*WorkflowAction `json:"actions"`
	Variables      map[string]any    `json:"variables,omitempty"`
	Metadata       map[string]any    `json:"metadata,omitempty"`
	CreatedBy      string            `json:"created_by"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// Runnable reports whether the definition can be executed at all. Archived
// definitions and definitions without actions are rejected before an
// execution record is created.
func (w *WorkflowDefinition) Runnable() bool {
	return w.Status != WorkflowStatusArchived && len(w.Actions) > 0
}

// ActionByID returns the action with the given id, if any.
func (w *WorkflowDefinition) ActionByID(id string) (*WorkflowAction, bool) {
	for _, action := range w.Actions {
		if action.ID == id {
			return action, true
		}
	}

	return nil, false
}
