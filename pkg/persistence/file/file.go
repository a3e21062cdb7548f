// Package file provides file-based persistence for workflow definitions and
// execution records. It is the default backend for local development.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/claimflow/claimflow/pkg/persistence"
)

// Persistence implements persistence.Persistence on the local file system.
type Persistence struct {
	root       string
	workflows  *WorkflowRepository
	executions *ExecutionRepository
}

// NewPersistence creates a file persistence rooted at the given directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:       cleanRoot,
		workflows:  NewWorkflowRepository(cleanRoot),
		executions: NewExecutionRepository(cleanRoot),
	}
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.workflows
}

func (p *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return p.executions
}

// HealthCheck verifies the root directory exists.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. For file persistence there is none.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}
