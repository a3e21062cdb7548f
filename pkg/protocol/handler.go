// Package protocol defines the contracts between the workflow engine and its
// pluggable collaborators.
package protocol

import (
	"context"
	"log/slog"

	"github.com/claimflow/claimflow/pkg/models"
)

// ActionHandler performs the real-world effect of one action type. The action
// passed to Execute already carries interpolated config; handlers must honor
// the execution context's DryRun flag for mutating side effects.
type ActionHandler interface {
	// Type returns the action type this handler serves.
	Type() models.ActionType

	// Schema returns a JSON schema describing the handler's config, used to
	// validate definitions at save time. A nil schema skips validation.
	Schema() map[string]any

	Execute(ctx context.Context, action *models.WorkflowAction, execCtx *models.ExecutionContext, logger *slog.Logger) (any, error)
}
