package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/claimflow/claimflow/pkg/models"
	"github.com/claimflow/claimflow/pkg/persistence"
)

// ExecutionRepository stores execution records as JSON documents under
// <root>/executions. Persist overwrites by execution id, which makes retrying
// a failed persist safe.
type ExecutionRepository struct {
	dir string
	mu  sync.RWMutex
}

func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{dir: filepath.Join(root, "executions")}
}

func (r *ExecutionRepository) Persist(ctx context.Context, execution *models.WorkflowExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return persistence.NewRepositoryError("Persist", execution.ID, err)
	}

	data, err := json.MarshalIndent(execution, "", "  ")
	if err != nil {
		return persistence.NewRepositoryError("Persist", execution.ID, err)
	}

	if err := os.WriteFile(r.path(execution.ID), data, 0o644); err != nil {
		return persistence.NewRepositoryError("Persist", execution.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.read(id)
}

func (r *ExecutionRepository) List(ctx context.Context, workflowID string, filters persistence.ExecutionFilters) ([]*models.WorkflowExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := os.ReadDir(r.dir)
	if os.IsNotExist(err) {
		return []*models.WorkflowExecution{}, nil
	}

	if err != nil {
		return nil, persistence.NewRepositoryError("List", "", err)
	}

	executions := make([]*models.WorkflowExecution, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		execution, err := r.read(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			return nil, err
		}

		if execution.WorkflowID != workflowID {
			continue
		}

		if filters.Status != nil && execution.Status != *filters.Status {
			continue
		}

		executions = append(executions, execution)
	}

	// Newest first.
	sort.Slice(executions, func(i, j int) bool {
		return executions[i].StartedAt.After(executions[j].StartedAt)
	})

	if filters.Limit > 0 && len(executions) > filters.Limit {
		executions = executions[:filters.Limit]
	}

	return executions, nil
}

func (r *ExecutionRepository) path(id string) string {
	return filepath.Join(r.dir, id+".json")
}

func (r *ExecutionRepository) read(id string) (*models.WorkflowExecution, error) {
	data, err := os.ReadFile(r.path(id))
	if os.IsNotExist(err) {
		return nil, persistence.NewRepositoryError("GetByID", id, persistence.ErrExecutionNotFound)
	}

	if err != nil {
		return nil, persistence.NewRepositoryError("GetByID", id, err)
	}

	var execution models.WorkflowExecution
	if err := json.Unmarshal(data, &execution); err != nil {
		return nil, persistence.NewRepositoryError("GetByID", id, fmt.Errorf("failed to decode execution: %w", err))
	}

	return &execution, nil
}
