// Package document implements the create_document action.
package document

import (
	"context"
	"errors"
	"log/slog"

	"github.com/claimflow/claimflow/pkg/models"
	"github.com/claimflow/claimflow/pkg/protocol"
)

type Handler struct {
	creator protocol.DocumentCreator
}

func NewHandler(creator protocol.DocumentCreator) *Handler {
	return &Handler{creator: creator}
}

func (h *Handler) Type() models.ActionType {
	return models.ActionTypeCreateDocument
}

func (h *Handler) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"name"},
		"properties": map[string]any{
			"name":        map[string]any{"type": "string"},
			"template_id": map[string]any{"type": "string"},
			"folder_id":   map[string]any{"type": "string"},
			"data":        map[string]any{"type": "object"},
		},
	}
}

func (h *Handler) Execute(ctx context.Context, action *models.WorkflowAction, execCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	name, _ := action.Config["name"].(string)
	if name == "" {
		return nil, errors.New("create_document requires a name")
	}

	templateID, _ := action.Config["template_id"].(string)
	folderID, _ := action.Config["folder_id"].(string)
	data, _ := action.Config["data"].(map[string]any)

	if execCtx.DryRun {
		logger.Info("Dry run, document creation suppressed", "name", name)

		return map[string]any{"created": false, "dry_run": true}, nil
	}

	documentID, err := h.creator.Create(ctx, protocol.DocumentRequest{
		Name:       name,
		TemplateID: templateID,
		FolderID:   folderID,
		Data:       data,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Document created", "document_id", documentID)

	return map[string]any{"created": true, "document_id": documentID}, nil
}
