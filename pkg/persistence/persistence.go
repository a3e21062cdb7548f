// Package persistence provides the data storage abstraction for workflow
// definitions and execution records.
package persistence

import (
	"context"

	"github.com/claimflow/claimflow/pkg/models"
)

// WorkflowFilters narrows a definition listing.
type WorkflowFilters struct {
	Status      *models.WorkflowStatus
	TriggerType *models.TriggerType
	Search      string // matched against name and description
}

// ExecutionFilters narrows an execution listing.
type ExecutionFilters struct {
	Status *models.ExecutionStatus
	Limit  int
}

// WorkflowRepository is CRUD over workflow definitions.
type WorkflowRepository interface {
	Create(ctx context.Context, def *models.WorkflowDefinition) error
	GetByID(ctx context.Context, id string) (*models.WorkflowDefinition, error)
	Update(ctx context.Context, def *models.WorkflowDefinition) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, organizationID string, filters WorkflowFilters) ([]*models.WorkflowDefinition, error)
}

// ExecutionRepository stores execution records. Persist is an upsert keyed by
// execution id so retrying after a transient store error is safe.
type ExecutionRepository interface {
	Persist(ctx context.Context, execution *models.WorkflowExecution) error
	GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error)
	List(ctx context.Context, workflowID string, filters ExecutionFilters) ([]*models.WorkflowExecution, error)
}

// Persistence bundles the repositories behind one storage backend.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ExecutionRepository() ExecutionRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
