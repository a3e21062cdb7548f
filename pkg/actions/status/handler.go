// Package status implements the update_status action.
package status

import (
	"context"
	"errors"
	"log/slog"

	"github.com/claimflow/claimflow/pkg/models"
	"github.com/claimflow/claimflow/pkg/protocol"
)

type Handler struct {
	updater protocol.StatusUpdater
}

func NewHandler(updater protocol.StatusUpdater) *Handler {
	return &Handler{updater: updater}
}

func (h *Handler) Type() models.ActionType {
	return models.ActionTypeUpdateStatus
}

func (h *Handler) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"entity_type", "entity_id", "status"},
		"properties": map[string]any{
			"entity_type": map[string]any{"type": "string"},
			"entity_id":   map[string]any{"type": "string"},
			"status":      map[string]any{"type": "string"},
		},
	}
}

func (h *Handler) Execute(ctx context.Context, action *models.WorkflowAction, execCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	entityType, _ := action.Config["entity_type"].(string)
	entityID, _ := action.Config["entity_id"].(string)
	newStatus, _ := action.Config["status"].(string)

	if entityType == "" || entityID == "" || newStatus == "" {
		return nil, errors.New("update_status requires entity_type, entity_id and status")
	}

	if execCtx.DryRun {
		logger.Info("Dry run, status update suppressed", "entity_id", entityID)

		return map[string]any{"updated": false, "dry_run": true}, nil
	}

	if err := h.updater.UpdateStatus(ctx, entityType, entityID, newStatus); err != nil {
		return nil, err
	}

	logger.Info("Status updated", "entity_type", entityType, "entity_id", entityID, "status", newStatus)

	return map[string]any{"updated": true, "entity_id": entityID, "status": newStatus}, nil
}
