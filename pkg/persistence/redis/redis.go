// Package redis provides Redis-backed persistence for execution records.
// Workflow definitions stay in the file or PostgreSQL store; this backend
// exists for deployments that want fast, bounded-retention execution history.
package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/claimflow/claimflow/pkg/persistence"
	"github.com/redis/go-redis/v9"
)

// Persistence composes a Redis execution repository with a delegate workflow
// repository.
type Persistence struct {
	client     *redis.Client
	logger     *slog.Logger
	workflows  persistence.WorkflowRepository
	executions *ExecutionRepository
}

// NewPersistence connects to Redis using a redis:// URL. The workflow
// repository is supplied by the caller since definitions are not stored here.
func NewPersistence(ctx context.Context, logger *slog.Logger, redisURL string, workflows persistence.WorkflowRepository) (*Persistence, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(options)

	err = client.Ping(ctx).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Persistence{
		client:     client,
		logger:     logger,
		workflows:  workflows,
		executions: NewExecutionRepository(client),
	}, nil
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.workflows
}

func (p *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return p.executions
}

// HealthCheck verifies the Redis connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.client.Ping(ctx).Err()
	if err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

// Close closes the Redis connection.
func (p *Persistence) Close(ctx context.Context) error {
	err := p.client.Close()
	if err != nil {
		return fmt.Errorf("failed to close redis connection: %w", err)
	}

	return nil
}
