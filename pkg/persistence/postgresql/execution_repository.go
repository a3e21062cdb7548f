package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/claimflow/claimflow/pkg/models"
	"github.com/claimflow/claimflow/pkg/persistence"
)

// ExecutionRepository stores execution records in the workflow_executions
// table. Persist is an upsert keyed by execution id so that re-persisting a
// terminal record after a transient failure is safe.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

func (r *ExecutionRepository) Persist(ctx context.Context, execution *models.WorkflowExecution) error {
	contextDoc, err := json.Marshal(execution.Context)
	if err != nil {
		return persistence.NewRepositoryError("Persist", execution.ID, fmt.Errorf("failed to marshal context: %w", err))
	}

	actions, err := json.Marshal(execution.Actions)
	if err != nil {
		return persistence.NewRepositoryError("Persist", execution.ID, fmt.Errorf("failed to marshal actions: %w", err))
	}

	metadata, err := marshalMap(execution.Metadata)
	if err != nil {
		return persistence.NewRepositoryError("Persist", execution.ID, fmt.Errorf("failed to marshal metadata: %w", err))
	}

	query := `
		INSERT INTO workflow_executions (id, workflow_id, organization_id, status, context, actions, started_at, completed_at, duration_ms, error, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			context = EXCLUDED.context,
			actions = EXCLUDED.actions,
			completed_at = EXCLUDED.completed_at,
			duration_ms = EXCLUDED.duration_ms,
			error = EXCLUDED.error,
			metadata = EXCLUDED.metadata
	`

	_, err = r.db.ExecContext(ctx, query,
		execution.ID, execution.WorkflowID, execution.OrganizationID, execution.Status,
		contextDoc, actions, execution.StartedAt, execution.CompletedAt,
		execution.DurationMs, execution.Error, metadata,
	)
	if err != nil {
		return persistence.NewRepositoryError("Persist", execution.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	query := `
		SELECT id, workflow_id, organization_id, status, context, actions, started_at, completed_at, duration_ms, error, metadata
		FROM workflow_executions
		WHERE id = $1
	`

	execution, err := scanExecution(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewRepositoryError("GetByID", id, persistence.ErrExecutionNotFound)
	}

	if err != nil {
		return nil, persistence.NewRepositoryError("GetByID", id, err)
	}

	return execution, nil
}

func (r *ExecutionRepository) List(ctx context.Context, workflowID string, filters persistence.ExecutionFilters) ([]*models.WorkflowExecution, error) {
	query := `
		SELECT id, workflow_id, organization_id, status, context, actions, started_at, completed_at, duration_ms, error, metadata
		FROM workflow_executions
		WHERE workflow_id = $1
	`

	args := []any{workflowID}

	if filters.Status != nil {
		args = append(args, *filters.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	query += " ORDER BY started_at DESC"

	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistence.NewRepositoryError("List", workflowID, err)
	}
	defer rows.Close()

	executions := []*models.WorkflowExecution{}

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, persistence.NewRepositoryError("List", workflowID, err)
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewRepositoryError("List", workflowID, err)
	}

	return executions, nil
}

func scanExecution(row rowScanner) (*models.WorkflowExecution, error) {
	var (
		execution  models.WorkflowExecution
		contextDoc []byte
		actions    []byte
		metadata   []byte
	)

	err := row.Scan(
		&execution.ID, &execution.WorkflowID, &execution.OrganizationID, &execution.Status,
		&contextDoc, &actions, &execution.StartedAt, &execution.CompletedAt,
		&execution.DurationMs, &execution.Error, &metadata,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(contextDoc, &execution.Context); err != nil {
		return nil, fmt.Errorf("failed to unmarshal context: %w", err)
	}

	if err := json.Unmarshal(actions, &execution.Actions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal actions: %w", err)
	}

	if err := json.Unmarshal(metadata, &execution.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	return &execution, nil
}
