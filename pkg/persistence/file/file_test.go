package file_test

import (
	"context"
	"testing"
	"time"

	"github.com/claimflow/claimflow/pkg/models"
	"github.com/claimflow/claimflow/pkg/persistence"
	"github.com/claimflow/claimflow/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWorkflow(name string) *models.WorkflowDefinition {
	return &models.WorkflowDefinition{
		Name:           name,
		OrganizationID: "org-1",
		Status:         models.WorkflowStatusDraft,
		Trigger:        models.WorkflowTrigger{Type: models.TriggerTypeManual},
		Actions: []*models.WorkflowAction{
			{ID: "notify", Type: models.ActionTypeSendNotification},
		},
	}
}

func TestWorkflowRepository_CreateAndGet(t *testing.T) {
	repo := file.NewWorkflowRepository(t.TempDir())
	ctx := context.Background()

	def := testWorkflow("Invoice intake")
	require.NoError(t, repo.Create(ctx, def))
	assert.NotEmpty(t, def.ID)
	assert.False(t, def.CreatedAt.IsZero())

	loaded, err := repo.GetByID(ctx, def.ID)
	require.NoError(t, err)
	assert.Equal(t, "Invoice intake", loaded.Name)
	assert.Len(t, loaded.Actions, 1)
}

func TestWorkflowRepository_CreateDuplicate(t *testing.T) {
	repo := file.NewWorkflowRepository(t.TempDir())
	ctx := context.Background()

	def := testWorkflow("Original")
	require.NoError(t, repo.Create(ctx, def))

	dup := testWorkflow("Copy")
	dup.ID = def.ID

	err := repo.Create(ctx, dup)
	assert.ErrorIs(t, err, persistence.ErrWorkflowAlreadyExists)
}

func TestWorkflowRepository_Update(t *testing.T) {
	repo := file.NewWorkflowRepository(t.TempDir())
	ctx := context.Background()

	def := testWorkflow("Before")
	require.NoError(t, repo.Create(ctx, def))

	def.Name = "After"
	require.NoError(t, repo.Update(ctx, def))

	loaded, err := repo.GetByID(ctx, def.ID)
	require.NoError(t, err)
	assert.Equal(t, "After", loaded.Name)
	assert.True(t, loaded.UpdatedAt.Compare(loaded.CreatedAt) >= 0)
}

func TestWorkflowRepository_UpdateMissing(t *testing.T) {
	repo := file.NewWorkflowRepository(t.TempDir())

	def := testWorkflow("Ghost")
	def.ID = "wf-ghost"

	err := repo.Update(context.Background(), def)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflowRepository_Delete(t *testing.T) {
	repo := file.NewWorkflowRepository(t.TempDir())
	ctx := context.Background()

	def := testWorkflow("Short lived")
	require.NoError(t, repo.Create(ctx, def))
	require.NoError(t, repo.Delete(ctx, def.ID))

	_, err := repo.GetByID(ctx, def.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))

	err = repo.Delete(ctx, def.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflowRepository_ListFilters(t *testing.T) {
	repo := file.NewWorkflowRepository(t.TempDir())
	ctx := context.Background()

	active := testWorkflow("Claim approval")
	active.Status = models.WorkflowStatusActive
	require.NoError(t, repo.Create(ctx, active))

	draft := testWorkflow("Fraud review")
	require.NoError(t, repo.Create(ctx, draft))

	other := testWorkflow("Other org")
	other.OrganizationID = "org-2"
	require.NoError(t, repo.Create(ctx, other))

	scheduled := testWorkflow("Nightly digest")
	scheduled.Trigger.Type = models.TriggerTypeDateTime
	require.NoError(t, repo.Create(ctx, scheduled))

	all, err := repo.List(ctx, "org-1", persistence.WorkflowFilters{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	statusActive := models.WorkflowStatusActive
	byStatus, err := repo.List(ctx, "org-1", persistence.WorkflowFilters{Status: &statusActive})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "Claim approval", byStatus[0].Name)

	dateTime := models.TriggerTypeDateTime
	byTrigger, err := repo.List(ctx, "org-1", persistence.WorkflowFilters{TriggerType: &dateTime})
	require.NoError(t, err)
	require.Len(t, byTrigger, 1)
	assert.Equal(t, "Nightly digest", byTrigger[0].Name)

	bySearch, err := repo.List(ctx, "org-1", persistence.WorkflowFilters{Search: "fraud"})
	require.NoError(t, err)
	require.Len(t, bySearch, 1)
	assert.Equal(t, "Fraud review", bySearch[0].Name)

	none, err := repo.List(ctx, "org-3", persistence.WorkflowFilters{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testExecution(id, workflowID string, status models.ExecutionStatus, startedAt time.Time) *models.WorkflowExecution {
	return &models.WorkflowExecution{
		ID:             id,
		WorkflowID:     workflowID,
		OrganizationID: "org-1",
		Status:         status,
		StartedAt:      startedAt,
	}
}

func TestExecutionRepository_PersistIsUpsert(t *testing.T) {
	repo := file.NewExecutionRepository(t.TempDir())
	ctx := context.Background()

	execution := testExecution("exec-1", "wf-1", models.ExecutionStatusRunning, time.Now().UTC())
	require.NoError(t, repo.Persist(ctx, execution))

	execution.Status = models.ExecutionStatusCompleted
	execution.DurationMs = 42
	require.NoError(t, repo.Persist(ctx, execution))

	loaded, err := repo.GetByID(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, loaded.Status)
	assert.Equal(t, int64(42), loaded.DurationMs)
}

func TestExecutionRepository_GetMissing(t *testing.T) {
	repo := file.NewExecutionRepository(t.TempDir())

	_, err := repo.GetByID(context.Background(), "exec-nope")
	assert.True(t, persistence.IsExecutionNotFound(err))
}

func TestExecutionRepository_ListNewestFirst(t *testing.T) {
	repo := file.NewExecutionRepository(t.TempDir())
	ctx := context.Background()

	base := time.Now().UTC()
	require.NoError(t, repo.Persist(ctx, testExecution("exec-a", "wf-1", models.ExecutionStatusCompleted, base.Add(-2*time.Hour))))
	require.NoError(t, repo.Persist(ctx, testExecution("exec-b", "wf-1", models.ExecutionStatusFailed, base.Add(-time.Hour))))
	require.NoError(t, repo.Persist(ctx, testExecution("exec-c", "wf-1", models.ExecutionStatusCompleted, base)))
	require.NoError(t, repo.Persist(ctx, testExecution("exec-other", "wf-2", models.ExecutionStatusCompleted, base)))

	all, err := repo.List(ctx, "wf-1", persistence.ExecutionFilters{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "exec-c", all[0].ID)
	assert.Equal(t, "exec-b", all[1].ID)
	assert.Equal(t, "exec-a", all[2].ID)

	failed := models.ExecutionStatusFailed
	byStatus, err := repo.List(ctx, "wf-1", persistence.ExecutionFilters{Status: &failed})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "exec-b", byStatus[0].ID)

	limited, err := repo.List(ctx, "wf-1", persistence.ExecutionFilters{Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "exec-c", limited[0].ID)
}

func TestPersistence_HealthCheck(t *testing.T) {
	store := file.NewPersistence(t.TempDir())

	require.NoError(t, store.HealthCheck(context.Background()))
	require.NoError(t, store.Close(context.Background()))
}
