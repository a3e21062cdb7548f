package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/claimflow/claimflow/pkg/engine"
	"github.com/claimflow/claimflow/pkg/models"
	"github.com/claimflow/claimflow/pkg/persistence"
	"github.com/claimflow/claimflow/pkg/registry"
	"github.com/claimflow/claimflow/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	workflowService *services.Workflow
	engine          *engine.Engine
	executions      persistence.ExecutionRepository
	registry        *registry.Registry
	validator       *validator.Validate
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	eng *engine.Engine,
	executions persistence.ExecutionRepository,
	reg *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		workflowService: workflowService,
		engine:          eng,
		executions:      executions,
		registry:        reg,
		validator:       validator.New(),
	}
}

// RegisterRoutes mounts every API route on the app.
func (h *APIHandlers) RegisterRoutes(app *fiber.App) {
	app.Get("/workflows", h.GetWorkflows)
	app.Post("/workflows", h.CreateWorkflow)
	app.Get("/workflows/:id", h.GetWorkflow)
	app.Patch("/workflows/:id", h.UpdateWorkflow)
	app.Delete("/workflows/:id", h.DeleteWorkflow)
	app.Post("/workflows/:id/execute", h.ExecuteWorkflow)
	app.Get("/workflows/:id/executions", h.GetWorkflowExecutions)
	app.Get("/executions/:id", h.GetExecution)
	app.Post("/executions/:id/cancel", h.CancelExecution)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()
	repositoryCheck, repOk := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	filters := persistence.WorkflowFilters{Search: c.Query("search")}

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.WorkflowStatus(statusStr)
		filters.Status = &status
	}

	if triggerStr := c.Query("trigger_type"); triggerStr != "" {
		triggerType := models.TriggerType(triggerStr)
		filters.TriggerType = &triggerType
	}

	workflows, err := h.workflowService.List(c.Context(), c.Query("organization_id"), filters)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows": workflows,
		"count":     len(workflows),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.workflowService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	def := &models.WorkflowDefinition{
		Name:           req.Name,
		Description:    req.Description,
		OrganizationID: req.OrganizationID,
		Status:         req.Status,
		Trigger:        req.Trigger,
		Actions:        req.Actions,
		Variables:      req.Variables,
		Metadata:       req.Metadata,
		CreatedBy:      req.CreatedBy,
	}

	created, err := h.workflowService.Create(c.Context(), def)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.workflowService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Description != nil {
		existing.Description = *req.Description
	}

	if req.Status != nil {
		existing.Status = *req.Status
	}

	if req.Trigger != nil {
		existing.Trigger = *req.Trigger
	}

	if req.Actions != nil {
		existing.Actions = req.Actions
	}

	if req.Variables != nil {
		existing.Variables = req.Variables
	}

	if req.Metadata != nil {
		existing.Metadata = req.Metadata
	}

	updated, err := h.workflowService.Update(c.Context(), id, existing)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	err := h.workflowService.Delete(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ExecuteWorkflow is the api trigger front door. The execution runs
// synchronously; failures during the run are reported inside the returned
// execution record, not as HTTP errors.
func (h *APIHandlers) ExecuteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	req := ExecuteWorkflowRequest{}
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	triggeredBy := req.TriggeredBy
	if triggeredBy == "" {
		triggeredBy = "api"
	}

	execution, err := h.engine.Execute(c.Context(), id, req.TriggerData, triggeredBy, &engine.Options{
		Variables: req.Variables,
		DryRun:    req.DryRun,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(execution)
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	execution, err := h.executions.GetByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) GetWorkflowExecutions(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	filters := persistence.ExecutionFilters{}

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.ExecutionStatus(statusStr)
		filters.Status = &status
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return badRequest(c, "Invalid limit parameter")
		}

		filters.Limit = limit
	}

	executions, err := h.executions.List(c.Context(), id, filters)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"executions": executions,
		"count":      len(executions),
	})
}

func (h *APIHandlers) CancelExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	err := h.engine.Cancel(id)
	if err != nil {
		return notFound(c, "Execution not found or already finished")
	}

	return c.JSON(fiber.Map{
		"execution_id": id,
		"cancelling":   true,
	})
}
