package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/claimflow/claimflow/pkg/models"
	"github.com/claimflow/claimflow/pkg/persistence"
	"github.com/redis/go-redis/v9"
)

const (
	executionKeyPrefix = "claimflow:execution:"
	workflowIndexKey   = "claimflow:workflow:%s:executions"
)

// ExecutionRepository stores each execution record as a Redis hash and keeps
// a per-workflow sorted set scored by start time, so listing newest-first is
// a single ZREVRANGE and re-persisting a record is idempotent.
type ExecutionRepository struct {
	client *redis.Client
}

func NewExecutionRepository(client *redis.Client) *ExecutionRepository {
	return &ExecutionRepository{client: client}
}

func (r *ExecutionRepository) Persist(ctx context.Context, execution *models.WorkflowExecution) error {
	doc, err := json.Marshal(execution)
	if err != nil {
		return persistence.NewRepositoryError("Persist", execution.ID, fmt.Errorf("failed to marshal execution: %w", err))
	}

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, executionKeyPrefix+execution.ID, map[string]any{
		"workflow_id": execution.WorkflowID,
		"status":      string(execution.Status),
		"doc":         doc,
	})
	pipe.ZAdd(ctx, indexKey(execution.WorkflowID), redis.Z{
		Score:  float64(execution.StartedAt.UnixMilli()),
		Member: execution.ID,
	})

	_, err = pipe.Exec(ctx)
	if err != nil {
		return persistence.NewRepositoryError("Persist", execution.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	doc, err := r.client.HGet(ctx, executionKeyPrefix+id, "doc").Result()
	if errors.Is(err, redis.Nil) {
		return nil, persistence.NewRepositoryError("GetByID", id, persistence.ErrExecutionNotFound)
	}

	if err != nil {
		return nil, persistence.NewRepositoryError("GetByID", id, err)
	}

	var execution models.WorkflowExecution
	if err := json.Unmarshal([]byte(doc), &execution); err != nil {
		return nil, persistence.NewRepositoryError("GetByID", id, fmt.Errorf("failed to decode execution: %w", err))
	}

	return &execution, nil
}

func (r *ExecutionRepository) List(ctx context.Context, workflowID string, filters persistence.ExecutionFilters) ([]*models.WorkflowExecution, error) {
	ids, err := r.client.ZRevRange(ctx, indexKey(workflowID), 0, -1).Result()
	if err != nil {
		return nil, persistence.NewRepositoryError("List", workflowID, err)
	}

	executions := make([]*models.WorkflowExecution, 0, len(ids))

	for _, id := range ids {
		execution, err := r.GetByID(ctx, id)
		if persistence.IsExecutionNotFound(err) {
			// Index entry outlived an expired record.
			continue
		}

		if err != nil {
			return nil, err
		}

		if filters.Status != nil && execution.Status != *filters.Status {
			continue
		}

		executions = append(executions, execution)

		if filters.Limit > 0 && len(executions) == filters.Limit {
			break
		}
	}

	return executions, nil
}

func indexKey(workflowID string) string {
	return fmt.Sprintf(workflowIndexKey, workflowID)
}
