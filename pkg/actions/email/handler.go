// Package email implements the send_email action. Its entire job is to call
// the host's email collaborator with interpolated config.
package email

import (
	"context"
	"errors"
	"log/slog"

	"github.com/claimflow/claimflow/pkg/models"
	"github.com/claimflow/claimflow/pkg/protocol"
)

type Handler struct {
	sender protocol.EmailSender
}

func NewHandler(sender protocol.EmailSender) *Handler {
	return &Handler{sender: sender}
}

func (h *Handler) Type() models.ActionType {
	return models.ActionTypeSendEmail
}

func (h *Handler) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"to", "subject"},
		"properties": map[string]any{
			"to":      map[string]any{},
			"cc":      map[string]any{},
			"subject": map[string]any{"type": "string"},
			"body":    map[string]any{"type": "string"},
		},
	}
}

func (h *Handler) Execute(ctx context.Context, action *models.WorkflowAction, execCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	to := recipients(action.Config["to"])
	if len(to) == 0 {
		return nil, errors.New("send_email requires at least one recipient")
	}

	subject, _ := action.Config["subject"].(string)
	body, _ := action.Config["body"].(string)
	cc := recipients(action.Config["cc"])

	if execCtx.DryRun {
		logger.Info("Dry run, email suppressed", "to", to)

		return map[string]any{"sent": false, "dry_run": true}, nil
	}

	err := h.sender.Send(ctx, protocol.Email{
		To:      to,
		CC:      cc,
		Subject: subject,
		Body:    body,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Email sent", "to", to, "subject", subject)

	return map[string]any{"sent": true, "recipients": len(to)}, nil
}

// recipients accepts a single address or a list of addresses.
func recipients(v any) []string {
	switch typed := v.(type) {
	case string:
		if typed == "" {
			return nil
		}

		return []string{typed}
	case []any:
		out := make([]string, 0, len(typed))
		for _, member := range typed {
			if addr, ok := member.(string); ok && addr != "" {
				out = append(out, addr)
			}
		}

		return out
	case []string:
		return typed
	default:
		return nil
	}
}
