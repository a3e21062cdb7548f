package engine_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/claimflow/claimflow/pkg/engine"
	"github.com/claimflow/claimflow/pkg/models"
	"github.com/claimflow/claimflow/pkg/persistence/file"
	"github.com/claimflow/claimflow/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testActionType models.ActionType = "test_action"

// stubHandler adapts a function into an action handler for engine tests.
type stubHandler struct {
	actionType models.ActionType
	execute    func(ctx context.Context, action *models.WorkflowAction, execCtx *models.ExecutionContext) (any, error)
}

func (h *stubHandler) Type() models.ActionType { return h.actionType }

func (h *stubHandler) Schema() map[string]any { return nil }

func (h *stubHandler) Execute(ctx context.Context, action *models.WorkflowAction, execCtx *models.ExecutionContext, _ *slog.Logger) (any, error) {
	return h.execute(ctx, action, execCtx)
}

// recorder tracks handler invocations across one test.
type recorder struct {
	mu       sync.Mutex
	invoked  []string
	configs  map[string]map[string]any
	failures map[string]int // action id -> number of failures left
}

func newRecorder() *recorder {
	return &recorder{
		configs:  make(map[string]map[string]any),
		failures: make(map[string]int),
	}
}

func (r *recorder) handler() *stubHandler {
	return &stubHandler{
		actionType: testActionType,
		execute: func(_ context.Context, action *models.WorkflowAction, _ *models.ExecutionContext) (any, error) {
			r.mu.Lock()
			defer r.mu.Unlock()

			r.invoked = append(r.invoked, action.ID)
			r.configs[action.ID] = action.Config

			if left := r.failures[action.ID]; left != 0 {
				if left > 0 {
					r.failures[action.ID]--
				}

				return nil, errors.New("boom")
			}

			return map[string]any{"done": action.ID}, nil
		},
	}
}

func (r *recorder) order() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.invoked...)
}

type testEnv struct {
	engine   *engine.Engine
	store    *file.Persistence
	recorder *recorder
}

func newTestEnv(t *testing.T, defs ...*models.WorkflowDefinition) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := file.NewPersistence(t.TempDir())
	rec := newRecorder()

	reg := registry.NewRegistry(logger)
	require.NoError(t, reg.Register(rec.handler()))

	eng := engine.New(logger, store, reg)

	for _, def := range defs {
		require.NoError(t, store.WorkflowRepository().Create(context.Background(), def))
	}

	return &testEnv{engine: eng, store: store, recorder: rec}
}

func action(id string) *models.WorkflowAction {
	return &models.WorkflowAction{ID: id, Type: testActionType}
}

func definition(id string, actions ...*models.WorkflowAction) *models.WorkflowDefinition {
	return &models.WorkflowDefinition{
		ID:             id,
		Name:           "Test workflow " + id,
		OrganizationID: "org-1",
		Status:         models.WorkflowStatusActive,
		Trigger:        models.WorkflowTrigger{Type: models.TriggerTypeManual},
		Actions:        actions,
	}
}

func TestExecute_LinearSuccess(t *testing.T) {
	env := newTestEnv(t, definition("wf-linear", action("a"), action("b"), action("c")))

	execution, err := env.engine.Execute(context.Background(), "wf-linear", map[string]any{"k": "v"}, "test", nil)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, []string{"a", "b", "c"}, env.recorder.order())
	require.Len(t, execution.Actions, 3)

	for _, record := range execution.Actions {
		assert.Equal(t, models.ActionStatusCompleted, record.Status)
		assert.Equal(t, 1, record.Attempts)
		assert.NotNil(t, record.CompletedAt)
	}

	// Each result lands in state under the action id.
	value, ok := execution.Context.Lookup("state.b.done")
	assert.True(t, ok)
	assert.Equal(t, "b", value)

	// Exactly one terminal record is persisted.
	persisted, err := env.store.ExecutionRepository().GetByID(context.Background(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, persisted.Status)
	assert.Len(t, persisted.Actions, 3)
	assert.NotNil(t, persisted.CompletedAt)
}

func TestExecute_ConditionGatedSkip(t *testing.T) {
	gated := action("b")
	gated.Conditions = []*models.WorkflowCondition{
		{Field: "document.type", Operator: models.OperatorEquals, Value: "invoice"},
	}

	env := newTestEnv(t, definition("wf-gated", action("a"), gated, action("c")))

	execution, err := env.engine.Execute(context.Background(), "wf-gated",
		map[string]any{"document": map[string]any{"type": "receipt"}}, "test", nil)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	// b is skipped: never invoked and no record, c still runs.
	assert.Equal(t, []string{"a", "c"}, env.recorder.order())
	require.Len(t, execution.Actions, 2)
	assert.Equal(t, "a", execution.Actions[0].ActionID)
	assert.Equal(t, "c", execution.Actions[1].ActionID)
}

func TestExecute_RetryThenSuccess(t *testing.T) {
	flaky := action("flaky")
	flaky.RetryConfig = &models.RetryConfig{MaxAttempts: 3, DelayMs: 1}

	env := newTestEnv(t, definition("wf-retry", flaky))
	env.recorder.failures["flaky"] = 1

	execution, err := env.engine.Execute(context.Background(), "wf-retry", nil, "test", nil)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	require.Len(t, execution.Actions, 1)
	assert.Equal(t, 2, execution.Actions[0].Attempts)
	assert.Equal(t, models.ActionStatusCompleted, execution.Actions[0].Status)
}

func TestExecute_RetryExhaustionWithFailureRoute(t *testing.T) {
	failing := action("fragile")
	failing.RetryConfig = &models.RetryConfig{MaxAttempts: 3, DelayMs: 1}
	failing.OnFailure = []string{"cleanup"}

	env := newTestEnv(t, definition("wf-failroute", failing, action("cleanup")))
	env.recorder.failures["fragile"] = -1 // always fails

	execution, err := env.engine.Execute(context.Background(), "wf-failroute", nil, "test", nil)
	require.NoError(t, err)

	// The failure edge was followed, so the run itself completes.
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	require.Len(t, execution.Actions, 2)

	fragile := execution.Actions[0]
	assert.Equal(t, models.ActionStatusFailed, fragile.Status)
	assert.Equal(t, 3, fragile.Attempts)
	assert.Equal(t, "boom", fragile.Error)

	assert.Equal(t, "cleanup", execution.Actions[1].ActionID)
	assert.Equal(t, models.ActionStatusCompleted, execution.Actions[1].Status)
}

func TestExecute_FailureWithoutRouteFailsRun(t *testing.T) {
	failing := action("fragile")

	env := newTestEnv(t, definition("wf-fail", failing, action("never")))
	env.recorder.failures["fragile"] = -1

	execution, err := env.engine.Execute(context.Background(), "wf-fail", nil, "test", nil)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	assert.Equal(t, "action fragile failed: boom", execution.Error)
	require.Len(t, execution.Actions, 1)
	assert.NotContains(t, env.recorder.order(), "never")

	persisted, err := env.store.ExecutionRepository().GetByID(context.Background(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, persisted.Status)
}

func TestExecute_TriggerConditionsBlockRun(t *testing.T) {
	def := definition("wf-blocked", action("a"))
	def.Trigger.Conditions = []*models.WorkflowCondition{
		{Field: "document.type", Operator: models.OperatorEquals, Value: "invoice"},
	}

	env := newTestEnv(t, def)

	execution, err := env.engine.Execute(context.Background(), "wf-blocked",
		map[string]any{"document": map[string]any{"type": "receipt"}}, "test", nil)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCancelled, execution.Status)
	assert.Equal(t, "trigger conditions not met", execution.Error)
	assert.Empty(t, execution.Actions)
	assert.Empty(t, env.recorder.order())

	// The cancelled record is still persisted for auditing.
	persisted, err := env.store.ExecutionRepository().GetByID(context.Background(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCancelled, persisted.Status)
}

func TestExecute_SkipConditionsOption(t *testing.T) {
	def := definition("wf-skipconds", action("a"))
	def.Trigger.Conditions = []*models.WorkflowCondition{
		{Field: "document.type", Operator: models.OperatorEquals, Value: "invoice"},
	}

	env := newTestEnv(t, def)

	execution, err := env.engine.Execute(context.Background(), "wf-skipconds", nil, "test",
		&engine.Options{SkipConditions: true})
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, []string{"a"}, env.recorder.order())
}

func TestExecute_CancellationBetweenActions(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := file.NewPersistence(t.TempDir())
	reg := registry.NewRegistry(logger)
	eng := engine.New(logger, store, reg)

	// The first handler call cancels its own execution; the flag is honored
	// before the next action starts.
	require.NoError(t, reg.Register(&stubHandler{
		actionType: testActionType,
		execute: func(_ context.Context, a *models.WorkflowAction, execCtx *models.ExecutionContext) (any, error) {
			if a.ID == "a" {
				require.NoError(t, eng.Cancel(execCtx.ID))
			}

			return "ok", nil
		},
	}))

	def := definition("wf-cancel", action("a"), action("b"))
	require.NoError(t, store.WorkflowRepository().Create(context.Background(), def))

	execution, err := eng.Execute(context.Background(), "wf-cancel", nil, "test", nil)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCancelled, execution.Status)
	assert.Equal(t, "execution cancelled", execution.Error)
	// The in-flight action finished; b never started.
	require.Len(t, execution.Actions, 1)
	assert.Equal(t, "a", execution.Actions[0].ActionID)
}

func TestCancel_UnknownExecution(t *testing.T) {
	env := newTestEnv(t)

	err := env.engine.Cancel("exec-nope")
	assert.ErrorIs(t, err, engine.ErrExecutionNotFound)
}

func TestExecute_ExplicitRoutingGraph(t *testing.T) {
	a := action("a")
	a.OnSuccess = []string{"b", "c"}

	b := action("b")
	b.OnSuccess = []string{"d"}

	c := action("c")
	c.OnSuccess = []string{"d"}

	env := newTestEnv(t, definition("wf-dag", a, b, c, action("d")))

	execution, err := env.engine.Execute(context.Background(), "wf-dag", nil, "test", nil)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	// d is reachable through two edges but runs exactly once.
	assert.Equal(t, []string{"a", "b", "c", "d"}, env.recorder.order())
	assert.Len(t, execution.Actions, 4)
}

func TestExecute_UnroutedActionEndsBranchInRoutedMode(t *testing.T) {
	a := action("a")
	a.OnSuccess = []string{"b"}

	env := newTestEnv(t, definition("wf-branch-end", a, action("b"), action("c")))

	execution, err := env.engine.Execute(context.Background(), "wf-branch-end", nil, "test", nil)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	// Once routing is explicit, b without edges terminates the run; index
	// fallthrough to c does not apply.
	assert.Equal(t, []string{"a", "b"}, env.recorder.order())
}

func TestExecute_InterpolatesActionConfig(t *testing.T) {
	templated := action("notify")
	templated.Config = map[string]any{
		"message": "document {{document.name}} from {{variables.region}}",
		"depth":   map[string]any{"inner": "{{document.name}}"},
	}

	def := definition("wf-interp", templated)
	def.Variables = map[string]any{"region": "EMEA"}

	env := newTestEnv(t, def)

	execution, err := env.engine.Execute(context.Background(), "wf-interp",
		map[string]any{"document": map[string]any{"name": "claim.pdf"}}, "test", nil)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)

	config := env.recorder.configs["notify"]
	require.NotNil(t, config)
	assert.Equal(t, "document claim.pdf from EMEA", config["message"])
	assert.Equal(t, "claim.pdf", config["depth"].(map[string]any)["inner"])

	// The stored definition keeps its template untouched.
	stored, err := env.store.WorkflowRepository().GetByID(context.Background(), "wf-interp")
	require.NoError(t, err)
	assert.Equal(t, "document {{document.name}} from {{variables.region}}", stored.Actions[0].Config["message"])
}

func TestExecute_VariableOverrides(t *testing.T) {
	env := newTestEnv(t, func() *models.WorkflowDefinition {
		def := definition("wf-vars", action("a"))
		def.Variables = map[string]any{"region": "EMEA", "tier": "silver"}

		return def
	}())

	execution, err := env.engine.Execute(context.Background(), "wf-vars", nil, "test",
		&engine.Options{Variables: map[string]any{"tier": "gold"}})
	require.NoError(t, err)

	assert.Equal(t, "EMEA", execution.Context.Variables["region"])
	assert.Equal(t, "gold", execution.Context.Variables["tier"])
}

func TestExecute_DryRun(t *testing.T) {
	var sawDryRun bool

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := file.NewPersistence(t.TempDir())
	reg := registry.NewRegistry(logger)

	require.NoError(t, reg.Register(&stubHandler{
		actionType: testActionType,
		execute: func(_ context.Context, _ *models.WorkflowAction, execCtx *models.ExecutionContext) (any, error) {
			sawDryRun = execCtx.DryRun

			return "ok", nil
		},
	}))

	require.NoError(t, store.WorkflowRepository().Create(context.Background(), definition("wf-dry", action("a"))))

	eng := engine.New(logger, store, reg)

	execution, err := eng.Execute(context.Background(), "wf-dry", nil, "test", &engine.Options{DryRun: true})
	require.NoError(t, err)

	assert.True(t, sawDryRun)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, map[string]any{"dry_run": true}, execution.Metadata)
}

func TestExecute_OnProgressPanicIsSwallowed(t *testing.T) {
	env := newTestEnv(t, definition("wf-progress", action("a"), action("b")))

	var snapshots int

	execution, err := env.engine.Execute(context.Background(), "wf-progress", nil, "test", &engine.Options{
		OnProgress: func(*models.WorkflowExecution) {
			snapshots++
			panic("broken observer")
		},
	})
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, 2, snapshots)
}

func TestExecute_NotRunnable(t *testing.T) {
	archived := definition("wf-archived", action("a"))
	archived.Status = models.WorkflowStatusArchived

	empty := definition("wf-empty")
	empty.Status = models.WorkflowStatusActive

	env := newTestEnv(t, archived, empty)

	tests := []struct {
		name       string
		workflowID string
	}{
		{"missing definition", "wf-missing"},
		{"archived definition", "wf-archived"},
		{"no actions", "wf-empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			execution, err := env.engine.Execute(context.Background(), tt.workflowID, nil, "test", nil)
			assert.Nil(t, execution)
			assert.ErrorIs(t, err, engine.ErrWorkflowNotRunnable)

			var notRunnable *engine.NotRunnableError

			assert.ErrorAs(t, err, &notRunnable)
		})
	}
}

func TestExecute_PanickingHandlerBecomesFailure(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := file.NewPersistence(t.TempDir())
	reg := registry.NewRegistry(logger)

	require.NoError(t, reg.Register(&stubHandler{
		actionType: testActionType,
		execute: func(context.Context, *models.WorkflowAction, *models.ExecutionContext) (any, error) {
			panic("handler bug")
		},
	}))

	require.NoError(t, store.WorkflowRepository().Create(context.Background(), definition("wf-panic", action("a"))))

	eng := engine.New(logger, store, reg)

	execution, err := eng.Execute(context.Background(), "wf-panic", nil, "test", nil)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	require.Len(t, execution.Actions, 1)
	assert.Contains(t, execution.Actions[0].Error, "handler bug")
}

func TestRun_DepthGuard(t *testing.T) {
	env := newTestEnv(t, definition("wf-depth", action("a")))

	_, err := env.engine.Run(context.Background(), "wf-depth", nil, "workflow:parent", engine.DefaultMaxDepth)
	assert.ErrorIs(t, err, engine.ErrMaxDepthExceeded)

	execution, err := env.engine.Run(context.Background(), "wf-depth", nil, "workflow:parent", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, execution.Context.Depth)
	assert.Equal(t, "workflow:parent", execution.Context.TriggeredBy)
}

func TestExecute_UniqueExecutionIDs(t *testing.T) {
	env := newTestEnv(t, definition("wf-ids", action("a")))

	seen := make(map[string]bool)

	for range 5 {
		execution, err := env.engine.Execute(context.Background(), "wf-ids", nil, "test", nil)
		require.NoError(t, err)
		assert.False(t, seen[execution.ID])
		seen[execution.ID] = true
	}
}
