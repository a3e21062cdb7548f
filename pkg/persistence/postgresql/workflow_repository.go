package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/claimflow/claimflow/pkg/models"
	"github.com/claimflow/claimflow/pkg/persistence"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// WorkflowRepository stores workflow definitions in the workflows table with
// JSONB columns for the trigger, actions, variables and metadata documents.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

func (r *WorkflowRepository) Create(ctx context.Context, def *models.WorkflowDefinition) error {
	if def.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return persistence.NewRepositoryError("Create", "", err)
		}

		def.ID = id.String()
	}

	now := time.Now().UTC()
	def.CreatedAt = now
	def.UpdatedAt = now

	columns, err := encodeWorkflowColumns(def)
	if err != nil {
		return persistence.NewRepositoryError("Create", def.ID, err)
	}

	query := `
		INSERT INTO workflows (id, name, description, organization_id, status, trigger, actions, variables, metadata, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = r.db.ExecContext(ctx, query,
		def.ID, def.Name, def.Description, def.OrganizationID, def.Status,
		columns.trigger, columns.actions, columns.variables, columns.metadata,
		def.CreatedBy, def.CreatedAt, def.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return persistence.NewRepositoryError("Create", def.ID, persistence.ErrWorkflowAlreadyExists)
		}

		return persistence.NewRepositoryError("Create", def.ID, err)
	}

	return nil
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.WorkflowDefinition, error) {
	query := `
		SELECT id, name, description, organization_id, status, trigger, actions, variables, metadata, created_by, created_at, updated_at
		FROM workflows
		WHERE id = $1
	`

	def, err := scanWorkflow(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewRepositoryError("GetByID", id, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return nil, persistence.NewRepositoryError("GetByID", id, err)
	}

	return def, nil
}

func (r *WorkflowRepository) Update(ctx context.Context, def *models.WorkflowDefinition) error {
	def.UpdatedAt = time.Now().UTC()

	columns, err := encodeWorkflowColumns(def)
	if err != nil {
		return persistence.NewRepositoryError("Update", def.ID, err)
	}

	query := `
		UPDATE workflows
		SET name = $2, description = $3, status = $4, trigger = $5, actions = $6, variables = $7, metadata = $8, updated_at = $9
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		def.ID, def.Name, def.Description, def.Status,
		columns.trigger, columns.actions, columns.variables, columns.metadata,
		def.UpdatedAt,
	)
	if err != nil {
		return persistence.NewRepositoryError("Update", def.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewRepositoryError("Update", def.ID, err)
	}

	if affected == 0 {
		return persistence.NewRepositoryError("Update", def.ID, persistence.ErrWorkflowNotFound)
	}

	return nil
}

func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM workflows WHERE id = $1", id)
	if err != nil {
		return persistence.NewRepositoryError("Delete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewRepositoryError("Delete", id, err)
	}

	if affected == 0 {
		return persistence.NewRepositoryError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

func (r *WorkflowRepository) List(ctx context.Context, organizationID string, filters persistence.WorkflowFilters) ([]*models.WorkflowDefinition, error) {
	query := `
		SELECT id, name, description, organization_id, status, trigger, actions, variables, metadata, created_by, created_at, updated_at
		FROM workflows
		WHERE 1=1
	`

	args := []any{}
	argn := 0

	next := func(value any) string {
		argn++
		args = append(args, value)

		return fmt.Sprintf("$%d", argn)
	}

	if organizationID != "" {
		query += " AND organization_id = " + next(organizationID)
	}

	if filters.Status != nil {
		query += " AND status = " + next(*filters.Status)
	}

	if filters.TriggerType != nil {
		query += " AND trigger->>'type' = " + next(*filters.TriggerType)
	}

	if filters.Search != "" {
		placeholder := next("%" + filters.Search + "%")
		query += " AND (name ILIKE " + placeholder + " OR description ILIKE " + placeholder + ")"
	}

	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistence.NewRepositoryError("List", "", err)
	}
	defer rows.Close()

	defs := []*models.WorkflowDefinition{}

	for rows.Next() {
		def, err := scanWorkflow(rows)
		if err != nil {
			return nil, persistence.NewRepositoryError("List", "", err)
		}

		defs = append(defs, def)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewRepositoryError("List", "", err)
	}

	return defs, nil
}

type workflowColumns struct {
	trigger   []byte
	actions   []byte
	variables []byte
	metadata  []byte
}

func encodeWorkflowColumns(def *models.WorkflowDefinition) (*workflowColumns, error) {
	trigger, err := json.Marshal(def.Trigger)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal trigger: %w", err)
	}

	actions, err := json.Marshal(def.Actions)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal actions: %w", err)
	}

	variables, err := marshalMap(def.Variables)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal variables: %w", err)
	}

	metadata, err := marshalMap(def.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	return &workflowColumns{trigger: trigger, actions: actions, variables: variables, metadata: metadata}, nil
}

func marshalMap(value map[string]any) ([]byte, error) {
	if value == nil {
		return []byte("{}"), nil
	}

	return json.Marshal(value)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.WorkflowDefinition, error) {
	var (
		def       models.WorkflowDefinition
		trigger   []byte
		actions   []byte
		variables []byte
		metadata  []byte
	)

	err := row.Scan(
		&def.ID, &def.Name, &def.Description, &def.OrganizationID, &def.Status,
		&trigger, &actions, &variables, &metadata,
		&def.CreatedBy, &def.CreatedAt, &def.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(trigger, &def.Trigger); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trigger: %w", err)
	}

	if err := json.Unmarshal(actions, &def.Actions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal actions: %w", err)
	}

	if err := json.Unmarshal(variables, &def.Variables); err != nil {
		return nil, fmt.Errorf("failed to unmarshal variables: %w", err)
	}

	if err := json.Unmarshal(metadata, &def.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	return &def, nil
}
