package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/claimflow/claimflow/pkg/models"
	"github.com/claimflow/claimflow/pkg/protocol"
)

// runWithRetry invokes the handler up to RetryConfig.MaxAttempts times and
// returns the result, the number of attempts actually made and the last
// error. Without a retry config the handler runs exactly once. Intermediate
// attempt errors are not retained, only the attempt count and the final
// error survive on the action record.
func (e *Engine) runWithRetry(
	ctx context.Context,
	handler protocol.ActionHandler,
	action *models.WorkflowAction,
	execCtx *models.ExecutionContext,
	logger *slog.Logger,
) (any, int, error) {
	maxAttempts := 1
	if action.RetryConfig != nil && action.RetryConfig.MaxAttempts > 1 {
		maxAttempts = action.RetryConfig.MaxAttempts
	}

	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			delay := action.RetryConfig.Delay(attempt)

			logger.Info("Retrying action", "attempt", attempt, "max_attempts", maxAttempts, "delay", delay)

			if err := wait(ctx, delay); err != nil {
				return nil, attempt - 1, lastErr
			}
		}

		result, err := invokeHandler(ctx, handler, action, execCtx, logger)
		if err == nil {
			return result, attempt, nil
		}

		lastErr = err

		logger.Warn("Action attempt failed", "attempt", attempt, "error", err)
	}

	return nil, maxAttempts, lastErr
}

// invokeHandler calls the handler, converting a panic into an error so one
// misbehaving handler cannot take down the engine.
func invokeHandler(
	ctx context.Context,
	handler protocol.ActionHandler,
	action *models.WorkflowAction,
	execCtx *models.ExecutionContext,
	logger *slog.Logger,
) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action handler panicked: %v", r)
		}
	}()

	return handler.Execute(ctx, action, execCtx, logger)
}

// wait suspends this execution's goroutine without blocking other concurrent
// runs. It returns early if the context is cancelled.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
