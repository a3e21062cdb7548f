// Package notification implements the send_notification action as a thin
// adapter over the host application's notification sender.
package notification

import (
	"context"
	"errors"
	"log/slog"

	"github.com/claimflow/claimflow/pkg/models"
	"github.com/claimflow/claimflow/pkg/protocol"
)

type Handler struct {
	sender protocol.NotificationSender
}

func NewHandler(sender protocol.NotificationSender) *Handler {
	return &Handler{sender: sender}
}

func (h *Handler) Type() models.ActionType {
	return models.ActionTypeSendNotification
}

func (h *Handler) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"recipient", "message"},
		"properties": map[string]any{
			"recipient": map[string]any{"type": "string"},
			"title":     map[string]any{"type": "string"},
			"message":   map[string]any{"type": "string"},
			"channel":   map[string]any{"type": "string"},
		},
	}
}

func (h *Handler) Execute(ctx context.Context, action *models.WorkflowAction, execCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	recipient, _ := action.Config["recipient"].(string)
	if recipient == "" {
		return nil, errors.New("send_notification requires a recipient")
	}

	message, _ := action.Config["message"].(string)
	title, _ := action.Config["title"].(string)
	channel, _ := action.Config["channel"].(string)

	if execCtx.DryRun {
		logger.Info("Dry run, notification suppressed", "recipient", recipient)

		return map[string]any{"sent": false, "dry_run": true}, nil
	}

	err := h.sender.Send(ctx, protocol.Notification{
		Recipient: recipient,
		Title:     title,
		Message:   message,
		Channel:   channel,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Notification sent", "recipient", recipient, "channel", channel)

	return map[string]any{"sent": true, "recipient": recipient}, nil
}
