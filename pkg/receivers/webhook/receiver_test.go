package webhook_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/claimflow/claimflow/pkg/engine"
	"github.com/claimflow/claimflow/pkg/models"
	"github.com/claimflow/claimflow/pkg/persistence/file"
	"github.com/claimflow/claimflow/pkg/receivers/webhook"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct {
	workflowID  string
	triggerData map[string]any
	triggeredBy string
}

func (e *fakeExecutor) Execute(_ context.Context, workflowID string, triggerData map[string]any, triggeredBy string, _ *engine.Options) (*models.WorkflowExecution, error) {
	e.workflowID = workflowID
	e.triggerData = triggerData
	e.triggeredBy = triggeredBy

	return &models.WorkflowExecution{ID: "exec-1", Status: models.ExecutionStatusCompleted}, nil
}

func setupReceiver(t *testing.T) (*fiber.App, *fakeExecutor, *file.WorkflowRepository) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	workflows := file.NewWorkflowRepository(t.TempDir())
	executor := &fakeExecutor{}

	app := fiber.New()
	webhook.NewReceiver(executor, workflows, logger).RegisterRoutes(app)

	return app, executor, workflows
}

func createWorkflow(t *testing.T, workflows *file.WorkflowRepository, status models.WorkflowStatus, triggerType models.TriggerType) *models.WorkflowDefinition {
	t.Helper()

	def := &models.WorkflowDefinition{
		Name:           "Webhook intake",
		OrganizationID: "org-1",
		Status:         status,
		Trigger:        models.WorkflowTrigger{Type: triggerType},
		Actions: []*models.WorkflowAction{
			{ID: "notify", Type: models.ActionTypeSendNotification},
		},
	}
	require.NoError(t, workflows.Create(context.Background(), def))

	return def
}

func TestHandle_FiresActiveWorkflow(t *testing.T) {
	app, executor, workflows := setupReceiver(t)
	def := createWorkflow(t, workflows, models.WorkflowStatusActive, models.TriggerTypeWebhook)

	body, _ := json.Marshal(map[string]any{"claim_id": "claim-9"})
	req := httptest.NewRequest(http.MethodPost, "/webhooks/"+def.ID, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, def.ID, executor.workflowID)
	assert.Equal(t, "webhook", executor.triggeredBy)
	assert.Equal(t, "claim-9", executor.triggerData["claim_id"])

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal(respBody, &result))
	assert.Equal(t, "exec-1", result["execution_id"])
}

func TestHandle_UnknownWorkflow(t *testing.T) {
	app, _, _ := setupReceiver(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/webhooks/wf-missing", nil))
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandle_WrongTriggerType(t *testing.T) {
	app, _, workflows := setupReceiver(t)
	def := createWorkflow(t, workflows, models.WorkflowStatusActive, models.TriggerTypeManual)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/webhooks/"+def.ID, nil))
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandle_InactiveWorkflow(t *testing.T) {
	app, _, workflows := setupReceiver(t)
	def := createWorkflow(t, workflows, models.WorkflowStatusPaused, models.TriggerTypeWebhook)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/webhooks/"+def.ID, nil))
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}
