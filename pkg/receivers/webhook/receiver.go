// Package webhook is the front door for webhook triggers: one route per
// workflow, the JSON body becomes the trigger data.
package webhook

import (
	"context"
	"log/slog"

	"github.com/claimflow/claimflow/pkg/engine"
	"github.com/claimflow/claimflow/pkg/models"
	"github.com/claimflow/claimflow/pkg/persistence"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

// Executor is the part of the engine the receiver needs.
type Executor interface {
	Execute(ctx context.Context, workflowID string, triggerData map[string]any, triggeredBy string, opts *engine.Options) (*models.WorkflowExecution, error)
}

type Receiver struct {
	executor  Executor
	workflows persistence.WorkflowRepository
	logger    *slog.Logger
}

func NewReceiver(executor Executor, workflows persistence.WorkflowRepository, logger *slog.Logger) *Receiver {
	return &Receiver{
		executor:  executor,
		workflows: workflows,
		logger:    logger.With("module", "webhook_receiver"),
	}
}

// RegisterRoutes mounts the webhook endpoint on the app.
func (r *Receiver) RegisterRoutes(app *fiber.App) {
	app.Post("/webhooks/:workflowId", r.Handle)
}

// Handle fires the workflow behind the webhook. Webhook triggers follow the
// active-status rule: only active definitions fire.
func (r *Receiver) Handle(c fiber.Ctx) error {
	workflowID := c.Params("workflowId")

	def, err := r.workflows.GetByID(c.Context(), workflowID)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return problem(c, fiber.StatusNotFound, "not_found", "workflow not found")
		}

		return problem(c, fiber.StatusInternalServerError, "internal_error", err.Error())
	}

	if def.Trigger.Type != models.TriggerTypeWebhook {
		return problem(c, fiber.StatusNotFound, "not_found", "workflow has no webhook trigger")
	}

	if def.Status != models.WorkflowStatusActive {
		return problem(c, fiber.StatusConflict, "workflow_not_active", "workflow is not active")
	}

	triggerData := map[string]any{}
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&triggerData); err != nil {
			return problem(c, fiber.StatusBadRequest, "validation_error", "request body must be a JSON object")
		}
	}

	execution, err := r.executor.Execute(c.Context(), workflowID, triggerData, "webhook", nil)
	if err != nil {
		return problem(c, fiber.StatusConflict, "workflow_not_runnable", err.Error())
	}

	r.logger.Info("Webhook execution finished",
		"workflow_id", workflowID,
		"execution_id", execution.ID,
		"status", execution.Status,
	)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"execution_id": execution.ID,
		"status":       execution.Status,
	})
}

func problem(c fiber.Ctx, status int, problemType, detail string) error {
	p := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(detail)

	return c.Status(status).JSON(p)
}
