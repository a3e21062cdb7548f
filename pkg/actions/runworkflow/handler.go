// Package runworkflow implements the run_workflow action: a nested workflow
// invocation with a fresh execution id.
package runworkflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/claimflow/claimflow/pkg/models"
	"github.com/claimflow/claimflow/pkg/protocol"
)

type Handler struct {
	runner protocol.WorkflowRunner
}

func NewHandler(runner protocol.WorkflowRunner) *Handler {
	return &Handler{runner: runner}
}

func (h *Handler) Type() models.ActionType {
	return models.ActionTypeRunWorkflow
}

func (h *Handler) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"workflow_id"},
		"properties": map[string]any{
			"workflow_id": map[string]any{"type": "string"},
			"input":       map[string]any{"type": "object"},
		},
	}
}

func (h *Handler) Execute(ctx context.Context, action *models.WorkflowAction, execCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	workflowID, _ := action.Config["workflow_id"].(string)
	if workflowID == "" {
		return nil, errors.New("run_workflow requires a workflow_id")
	}

	if execCtx.DryRun {
		logger.Info("Dry run, nested workflow suppressed", "nested_workflow_id", workflowID)

		return map[string]any{"started": false, "dry_run": true}, nil
	}

	// The child sees the parent's variables plus any configured input as its
	// trigger data.
	triggerData := make(map[string]any, len(execCtx.Variables)+1)
	for k, v := range execCtx.Variables {
		triggerData[k] = v
	}

	if input, ok := action.Config["input"].(map[string]any); ok {
		for k, v := range input {
			triggerData[k] = v
		}
	}

	triggeredBy := "workflow:" + execCtx.WorkflowID

	child, err := h.runner.Run(ctx, workflowID, triggerData, triggeredBy, execCtx.Depth+1)
	if err != nil {
		return nil, fmt.Errorf("nested workflow %s: %w", workflowID, err)
	}

	logger.Info("Nested workflow finished", "nested_workflow_id", workflowID,
		"nested_execution_id", child.ID, "nested_status", child.Status)

	if child.Status != models.ExecutionStatusCompleted {
		return nil, fmt.Errorf("nested workflow %s finished %s: %s", workflowID, child.Status, child.Error)
	}

	return map[string]any{
		"execution_id": child.ID,
		"status":       string(child.Status),
		"actions":      len(child.Actions),
	}, nil
}
