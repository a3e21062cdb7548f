// Package webhook implements the webhook action: a POST of the configured
// payload to an external URL.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/claimflow/claimflow/pkg/models"
)

const defaultTimeout = 30 * time.Second

type Handler struct {
	client *http.Client
}

func NewHandler() *Handler {
	return &Handler{client: &http.Client{}}
}

func (h *Handler) Type() models.ActionType {
	return models.ActionTypeWebhook
}

func (h *Handler) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"url"},
		"properties": map[string]any{
			"url":             map[string]any{"type": "string"},
			"headers":         map[string]any{"type": "object"},
			"payload":         map[string]any{},
			"timeout_seconds": map[string]any{"type": "number"},
		},
	}
}

func (h *Handler) Execute(ctx context.Context, action *models.WorkflowAction, execCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	url, _ := action.Config["url"].(string)
	if url == "" {
		return nil, errors.New("webhook requires a url")
	}

	if execCtx.DryRun {
		logger.Info("Dry run, webhook delivery suppressed", "url", url)

		return map[string]any{"delivered": false, "dry_run": true}, nil
	}

	payload := action.Config["payload"]
	if payload == nil {
		payload = map[string]any{
			"workflow_id":  execCtx.WorkflowID,
			"execution_id": execCtx.ID,
			"trigger_data": execCtx.TriggerData,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout(action.Config))
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if headers, ok := action.Config["headers"].(map[string]any); ok {
		for key, value := range headers {
			if str, ok := value.(string); ok {
				req.Header.Set(key, str)
			}
		}
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	logger.Info("Webhook delivered", "url", url, "status_code", resp.StatusCode)

	return map[string]any{
		"delivered":   true,
		"status_code": resp.StatusCode,
		"response":    string(respBody),
	}, nil
}

func timeout(config map[string]any) time.Duration {
	if seconds, ok := config["timeout_seconds"].(float64); ok && seconds > 0 {
		return time.Duration(seconds * float64(time.Second))
	}

	return defaultTimeout
}
