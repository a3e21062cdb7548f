package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/claimflow/claimflow/pkg/models"
	"github.com/claimflow/claimflow/pkg/persistence"
	"github.com/google/uuid"
)

// WorkflowRepository stores workflow definitions as JSON documents under
// <root>/workflows.
type WorkflowRepository struct {
	dir string
	mu  sync.RWMutex
}

func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{dir: filepath.Join(root, "workflows")}
}

func (r *WorkflowRepository) Create(ctx context.Context, def *models.WorkflowDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if def.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return persistence.NewRepositoryError("Create", "", err)
		}

		def.ID = id.String()
	}

	if _, err := os.Stat(r.path(def.ID)); err == nil {
		return persistence.NewRepositoryError("Create", def.ID, persistence.ErrWorkflowAlreadyExists)
	}

	now := time.Now().UTC()
	def.CreatedAt = now
	def.UpdatedAt = now

	return r.write(def)
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.WorkflowDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.read(id)
}

func (r *WorkflowRepository) Update(ctx context.Context, def *models.WorkflowDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.read(def.ID); err != nil {
		return err
	}

	def.UpdatedAt = time.Now().UTC()

	return r.write(def)
}

func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := os.Remove(r.path(id))
	if os.IsNotExist(err) {
		return persistence.NewRepositoryError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return persistence.NewRepositoryError("Delete", id, err)
	}

	return nil
}

func (r *WorkflowRepository) List(ctx context.Context, organizationID string, filters persistence.WorkflowFilters) ([]*models.WorkflowDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := os.ReadDir(r.dir)
	if os.IsNotExist(err) {
		return []*models.WorkflowDefinition{}, nil
	}

	if err != nil {
		return nil, persistence.NewRepositoryError("List", "", err)
	}

	defs := make([]*models.WorkflowDefinition, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		def, err := r.read(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			return nil, err
		}

		if matchesWorkflow(def, organizationID, filters) {
			defs = append(defs, def)
		}
	}

	return defs, nil
}

func matchesWorkflow(def *models.WorkflowDefinition, organizationID string, filters persistence.WorkflowFilters) bool {
	if organizationID != "" && def.OrganizationID != organizationID {
		return false
	}

	if filters.Status != nil && def.Status != *filters.Status {
		return false
	}

	if filters.TriggerType != nil && def.Trigger.Type != *filters.TriggerType {
		return false
	}

	if filters.Search != "" {
		needle := strings.ToLower(filters.Search)
		if !strings.Contains(strings.ToLower(def.Name), needle) &&
			!strings.Contains(strings.ToLower(def.Description), needle) {
			return false
		}
	}

	return true
}

func (r *WorkflowRepository) path(id string) string {
	return filepath.Join(r.dir, id+".json")
}

func (r *WorkflowRepository) read(id string) (*models.WorkflowDefinition, error) {
	data, err := os.ReadFile(r.path(id))
	if os.IsNotExist(err) {
		return nil, persistence.NewRepositoryError("GetByID", id, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return nil, persistence.NewRepositoryError("GetByID", id, err)
	}

	var def models.WorkflowDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, persistence.NewRepositoryError("GetByID", id, fmt.Errorf("failed to decode workflow: %w", err))
	}

	return &def, nil
}

func (r *WorkflowRepository) write(def *models.WorkflowDefinition) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return persistence.NewRepositoryError("Save", def.ID, err)
	}

	data, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		return persistence.NewRepositoryError("Save", def.ID, err)
	}

	if err := os.WriteFile(r.path(def.ID), data, 0o644); err != nil {
		return persistence.NewRepositoryError("Save", def.ID, err)
	}

	return nil
}
