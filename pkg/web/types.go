// Package web provides the REST API for workflow management and execution.
package web

import "github.com/claimflow/claimflow/pkg/models"

// CreateWorkflowRequest is the request body for creating a workflow
// definition.
type CreateWorkflowRequest struct {
	Name           string                   `json:"name"            validate:"required,min=3"`
	Description    string                   `json:"description"`
	OrganizationID string                   `json:"organization_id" validate:"required"`
	Status         models.WorkflowStatus    `json:"status,omitempty"`
	Trigger        models.WorkflowTrigger   `json:"trigger"`
	Actions        []*models.WorkflowAction `json:"actions"`
	Variables      map[string]any           `json:"variables,omitempty"`
	Metadata       map[string]any           `json:"metadata,omitempty"`
	CreatedBy      string                   `json:"created_by"`
}

// UpdateWorkflowRequest is the request body for updating a definition. All
// fields are optional to support partial updates.
type UpdateWorkflowRequest struct {
	Name        *string                  `json:"name,omitempty"        validate:"omitempty,min=3"`
	Description *string                  `json:"description,omitempty"`
	Status      *models.WorkflowStatus   `json:"status,omitempty"`
	Trigger     *models.WorkflowTrigger  `json:"trigger,omitempty"`
	Actions     []*models.WorkflowAction `json:"actions,omitempty"`
	Variables   map[string]any           `json:"variables,omitempty"`
	Metadata    map[string]any           `json:"metadata,omitempty"`
}

// ExecuteWorkflowRequest is the request body for the api trigger front door.
type ExecuteWorkflowRequest struct {
	TriggerData map[string]any `json:"trigger_data,omitempty"`
	Variables   map[string]any `json:"variables,omitempty"`
	TriggeredBy string         `json:"triggered_by,omitempty"`
	DryRun      bool           `json:"dry_run,omitempty"`
}
