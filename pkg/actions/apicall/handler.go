// Package apicall implements the api_call action: a generic HTTP request with
// method, headers and body from interpolated config.
package apicall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
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
	return models.ActionTypeAPICall
}

func (h *Handler) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"url"},
		"properties": map[string]any{
			"url":             map[string]any{"type": "string"},
			"method":          map[string]any{"type": "string"},
			"headers":         map[string]any{"type": "object"},
			"body":            map[string]any{},
			"timeout_seconds": map[string]any{"type": "number"},
		},
	}
}

func (h *Handler) Execute(ctx context.Context, action *models.WorkflowAction, execCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	url, _ := action.Config["url"].(string)
	if url == "" {
		return nil, errors.New("api_call requires a url")
	}

	method, _ := action.Config["method"].(string)
	if method == "" {
		method = http.MethodGet
	}

	method = strings.ToUpper(method)

	// GETs are safe to run during a dry run; anything else mutates.
	if execCtx.DryRun && method != http.MethodGet {
		logger.Info("Dry run, api call suppressed", "method", method, "url", url)

		return map[string]any{"called": false, "dry_run": true}, nil
	}

	var bodyReader io.Reader

	switch body := action.Config["body"].(type) {
	case nil:
	case string:
		if body != "" {
			bodyReader = strings.NewReader(body)
		}
	default:
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}

		bodyReader = strings.NewReader(string(encoded))
	}

	seconds := defaultTimeout
	if configured, ok := action.Config["timeout_seconds"].(float64); ok && configured > 0 {
		seconds = time.Duration(configured * float64(time.Second))
	}

	reqCtx, cancel := context.WithTimeout(ctx, seconds)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
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
		return nil, fmt.Errorf("api call failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("api call returned status %d: %s", resp.StatusCode, truncate(respBody))
	}

	logger.Info("API call completed", "method", method, "url", url, "status_code", resp.StatusCode)

	result := map[string]any{
		"status_code": resp.StatusCode,
	}

	var decoded any
	if err := json.Unmarshal(respBody, &decoded); err == nil {
		result["body"] = decoded
	} else {
		result["body"] = string(respBody)
	}

	return result, nil
}

func truncate(body []byte) string {
	const limit = 256
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}

	return string(body)
}
