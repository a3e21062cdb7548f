// Package task implements the assign_task action.
package task

import (
	"context"
	"errors"
	"log/slog"

	"github.com/claimflow/claimflow/pkg/models"
	"github.com/claimflow/claimflow/pkg/protocol"
)

type Handler struct {
	assigner protocol.TaskAssigner
}

func NewHandler(assigner protocol.TaskAssigner) *Handler {
	return &Handler{assigner: assigner}
}

func (h *Handler) Type() models.ActionType {
	return models.ActionTypeAssignTask
}

func (h *Handler) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"assignee", "title"},
		"properties": map[string]any{
			"assignee":    map[string]any{"type": "string"},
			"title":       map[string]any{"type": "string"},
			"description": map[string]any{"type": "string"},
			"claim_id":    map[string]any{"type": "string"},
			"due_date":    map[string]any{"type": "string"},
		},
	}
}

func (h *Handler) Execute(ctx context.Context, action *models.WorkflowAction, execCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	assignee, _ := action.Config["assignee"].(string)
	title, _ := action.Config["title"].(string)

	if assignee == "" || title == "" {
		return nil, errors.New("assign_task requires assignee and title")
	}

	description, _ := action.Config["description"].(string)
	claimID, _ := action.Config["claim_id"].(string)
	dueDate, _ := action.Config["due_date"].(string)

	if execCtx.DryRun {
		logger.Info("Dry run, task creation suppressed", "assignee", assignee)

		return map[string]any{"assigned": false, "dry_run": true}, nil
	}

	taskID, err := h.assigner.Assign(ctx, protocol.Task{
		Assignee:    assignee,
		Title:       title,
		Description: description,
		ClaimID:     claimID,
		DueDate:     dueDate,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Task assigned", "task_id", taskID, "assignee", assignee)

	return map[string]any{"assigned": true, "task_id": taskID}, nil
}
