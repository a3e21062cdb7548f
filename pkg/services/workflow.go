package services

import (
	"context"
	"fmt"

	"github.com/claimflow/claimflow/pkg/models"
	"github.com/claimflow/claimflow/pkg/persistence"
	"github.com/claimflow/claimflow/pkg/registry"
	"github.com/go-playground/validator/v10"
)

// ErrWorkflowNotFound is re-exported so web handlers depend on one package.
var ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

// allowedTransitions maps each workflow status to the statuses it may move
// to. Archived is terminal.
var allowedTransitions = map[models.WorkflowStatus][]models.WorkflowStatus{
	models.WorkflowStatusDraft:    {models.WorkflowStatusActive, models.WorkflowStatusArchived},
	models.WorkflowStatusActive:   {models.WorkflowStatusPaused, models.WorkflowStatusArchived},
	models.WorkflowStatusPaused:   {models.WorkflowStatusActive, models.WorkflowStatusArchived},
	models.WorkflowStatusArchived: {},
}

// Workflow is the definition service between the web layer and persistence.
// It owns structural validation, per-action config schema validation and the
// status transition rules.
type Workflow struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	validate    *validator.Validate
}

// NewWorkflow creates a new workflow definition service.
func NewWorkflow(p persistence.Persistence, reg *registry.Registry) *Workflow {
	return &Workflow{
		persistence: p,
		registry:    reg,
		validate:    validator.New(),
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// List retrieves workflow definitions for an organization.
func (w *Workflow) List(ctx context.Context, organizationID string, filters persistence.WorkflowFilters) ([]*models.WorkflowDefinition, error) {
	defs, err := w.persistence.WorkflowRepository().List(ctx, organizationID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return defs, nil
}

// FetchByID retrieves a workflow definition by its ID.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.WorkflowDefinition, error) {
	return w.persistence.WorkflowRepository().GetByID(ctx, id)
}

// Create validates and stores a new workflow definition. Status defaults to
// draft.
func (w *Workflow) Create(ctx context.Context, def *models.WorkflowDefinition) (*models.WorkflowDefinition, error) {
	if def == nil {
		return nil, ErrWorkflowNil
	}

	if def.Status == "" {
		def.Status = models.WorkflowStatusDraft
	}

	if err := w.validateDefinition(def); err != nil {
		return nil, err
	}

	if err := w.persistence.WorkflowRepository().Create(ctx, def); err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	return def, nil
}

// Update validates and stores changes to an existing definition, enforcing
// the status transition rules against the stored status.
func (w *Workflow) Update(ctx context.Context, workflowID string, def *models.WorkflowDefinition) (*models.WorkflowDefinition, error) {
	if def == nil {
		return nil, ErrWorkflowNil
	}

	existing, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if existing.Status == models.WorkflowStatusArchived {
		return nil, NewValidationError("Update", "WORKFLOW_ARCHIVED",
			fmt.Sprintf("workflow %q is archived", workflowID), ErrWorkflowArchived)
	}

	def.ID = workflowID
	def.OrganizationID = existing.OrganizationID
	def.CreatedBy = existing.CreatedBy
	def.CreatedAt = existing.CreatedAt

	if def.Status == "" {
		def.Status = existing.Status
	}

	if def.Status != existing.Status {
		if err := checkTransition(existing.Status, def.Status); err != nil {
			return nil, err
		}
	}

	if err := w.validateDefinition(def); err != nil {
		return nil, err
	}

	if err := w.persistence.WorkflowRepository().Update(ctx, def); err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	return def, nil
}

// Delete removes a workflow definition by its ID.
func (w *Workflow) Delete(ctx context.Context, workflowID string) error {
	err := w.persistence.WorkflowRepository().Delete(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	return nil
}

func checkTransition(from, to models.WorkflowStatus) error {
	for _, allowed := range allowedTransitions[from] {
		if to == allowed {
			return nil
		}
	}

	return NewValidationError("Update", "INVALID_STATUS_TRANSITION",
		fmt.Sprintf("cannot transition workflow from %q to %q", from, to),
		ErrInvalidStatusTransition)
}

// validateDefinition checks struct tags, action id uniqueness, routing
// references, retry config and per-action-type config schemas.
func (w *Workflow) validateDefinition(def *models.WorkflowDefinition) error {
	if err := w.validate.Struct(def); err != nil {
		return NewValidationError("validateDefinition", "INVALID_WORKFLOW", err.Error(), ErrInvalidWorkflow)
	}

	ids := make(map[string]struct{}, len(def.Actions))

	for _, action := range def.Actions {
		if action.ID == "" {
			return NewValidationError("validateDefinition", "INVALID_WORKFLOW",
				"action id is required", ErrInvalidWorkflow)
		}

		if _, dup := ids[action.ID]; dup {
			return NewValidationError("validateDefinition", "DUPLICATE_ACTION_ID",
				fmt.Sprintf("action id %q appears more than once", action.ID), ErrDuplicateActionID)
		}

		ids[action.ID] = struct{}{}
	}

	for _, action := range def.Actions {
		targets := make([]string, 0, len(action.OnSuccess)+len(action.OnFailure))
		targets = append(targets, action.OnSuccess...)
		targets = append(targets, action.OnFailure...)

		for _, target := range targets {
			if _, ok := ids[target]; !ok {
				return NewValidationError("validateDefinition", "UNKNOWN_ROUTING_TARGET",
					fmt.Sprintf("action %q routes to unknown action %q", action.ID, target), ErrUnknownRoutingTarget)
			}
		}

		if _, err := w.registry.Resolve(action.Type); err != nil {
			return NewValidationError("validateDefinition", "UNKNOWN_ACTION_TYPE",
				fmt.Sprintf("action %q has unknown type %q", action.ID, action.Type), ErrUnknownActionType)
		}

		if retry := action.RetryConfig; retry != nil {
			if retry.MaxAttempts < 1 {
				return NewValidationError("validateDefinition", "INVALID_RETRY_CONFIG",
					fmt.Sprintf("action %q: max_attempts must be at least 1", action.ID), ErrInvalidRetryConfig)
			}

			if retry.DelayMs < 0 || retry.MaxDelayMs < 0 || retry.BackoffMultiplier < 0 {
				return NewValidationError("validateDefinition", "INVALID_RETRY_CONFIG",
					fmt.Sprintf("action %q: retry delays and multiplier must not be negative", action.ID), ErrInvalidRetryConfig)
			}
		}

		if err := w.registry.ValidateConfig(action); err != nil {
			return NewValidationError("validateDefinition", "INVALID_ACTION_CONFIG", err.Error(), ErrInvalidActionConfig)
		}
	}

	return nil
}
