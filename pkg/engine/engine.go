// Package engine turns declarative workflow definitions into auditable,
// resumable execution runs.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/claimflow/claimflow/pkg/conditions"
	"github.com/claimflow/claimflow/pkg/eventbus"
	"github.com/claimflow/claimflow/pkg/events"
	"github.com/claimflow/claimflow/pkg/models"
	"github.com/claimflow/claimflow/pkg/otelhelper"
	"github.com/claimflow/claimflow/pkg/persistence"
	"github.com/claimflow/claimflow/pkg/registry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxDepth bounds nested run_workflow chains. The definition format
// cannot prevent cyclic workflow references, so the engine refuses to recurse
// past this depth instead of exhausting resources.
const DefaultMaxDepth = 10

// Engine executes workflow definitions. Each Execute call is an independent
// unit of work on its own ExecutionContext; executions of the same or
// different workflows may run concurrently without coordination.
type Engine struct {
	logger     *slog.Logger
	registry   *registry.Registry
	workflows  persistence.WorkflowRepository
	executions persistence.ExecutionRepository
	eventBus   eventbus.EventBus
	tracer     trace.Tracer
	maxDepth   int

	mu      sync.RWMutex
	running map[string]*executionHandle
}

// executionHandle carries the cooperative cancellation flag for one in-flight
// execution.
type executionHandle struct {
	cancelled atomic.Bool
}

func New(logger *slog.Logger, store persistence.Persistence, reg *registry.Registry) *Engine {
	return &Engine{
		logger:     logger.With("module", "workflow_engine"),
		registry:   reg,
		workflows:  store.WorkflowRepository(),
		executions: store.ExecutionRepository(),
		maxDepth:   DefaultMaxDepth,
		running:    make(map[string]*executionHandle),
	}
}

// WithEventBus attaches the lifecycle event side channel.
func (e *Engine) WithEventBus(bus eventbus.EventBus) *Engine {
	e.eventBus = bus

	return e
}

// WithTracer enables per-execution and per-action spans.
func (e *Engine) WithTracer(tracer trace.Tracer) *Engine {
	e.tracer = tracer

	return e
}

// WithMaxDepth overrides the nested workflow depth limit.
func (e *Engine) WithMaxDepth(depth int) *Engine {
	if depth > 0 {
		e.maxDepth = depth
	}

	return e
}

// Execute runs a workflow against the supplied trigger data and returns the
// auditable execution record. The only error ever returned is a not-runnable
// rejection (or a failure to load the definition); every other failure mode
// is captured inside the returned WorkflowExecution.
func (e *Engine) Execute(
	ctx context.Context,
	workflowID string,
	triggerData map[string]any,
	triggeredBy string,
	opts *Options,
) (*models.WorkflowExecution, error) {
	if opts == nil {
		opts = &Options{}
	}

	return e.execute(ctx, workflowID, triggerData, triggeredBy, opts, 0)
}

// Run implements protocol.WorkflowRunner for nested run_workflow actions.
func (e *Engine) Run(
	ctx context.Context,
	workflowID string,
	triggerData map[string]any,
	triggeredBy string,
	depth int,
) (*models.WorkflowExecution, error) {
	if depth >= e.maxDepth {
		return nil, fmt.Errorf("%w: depth %d", ErrMaxDepthExceeded, depth)
	}

	return e.execute(ctx, workflowID, triggerData, triggeredBy, &Options{}, depth)
}

// Cancel requests cooperative cancellation of a pending or running
// execution. The flag is checked at the boundary between actions; an
// in-flight handler call is allowed to finish first.
func (e *Engine) Cancel(executionID string) error {
	e.mu.RLock()
	handle, ok := e.running[executionID]
	e.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrExecutionNotFound, executionID)
	}

	handle.cancelled.Store(true)

	return nil
}

func (e *Engine) execute(
	ctx context.Context,
	workflowID string,
	triggerData map[string]any,
	triggeredBy string,
	opts *Options,
	depth int,
) (*models.WorkflowExecution, error) {
	logger := e.logger.With("workflow_id", workflowID)

	def, err := e.workflows.GetByID(ctx, workflowID)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return nil, &NotRunnableError{WorkflowID: workflowID, Reason: "definition not found"}
		}

		return nil, fmt.Errorf("failed to load workflow %s: %w", workflowID, err)
	}

	if def.Status == models.WorkflowStatusArchived {
		return nil, &NotRunnableError{WorkflowID: workflowID, Reason: "workflow is archived"}
	}

	if len(def.Actions) == 0 {
		return nil, &NotRunnableError{WorkflowID: workflowID, Reason: "workflow has no actions"}
	}

	execution := e.newExecution(def, triggerData, triggeredBy, opts, depth)
	logger = logger.With("execution_id", execution.ID)

	if e.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, e.tracer, "workflow.execute",
			attribute.String(otelhelper.WorkflowIDKey, def.ID),
			attribute.String(otelhelper.ExecutionIDKey, execution.ID),
			attribute.String(otelhelper.TriggerTypeKey, string(def.Trigger.Type)),
		)
		defer span.End()
	}

	handle := e.track(execution.ID)
	defer e.untrack(execution.ID)

	evaluator := &conditions.Evaluator{
		OnDiagnostic: func(d conditions.Diagnostic) {
			e.publishDiagnostic(ctx, execution, "condition", d.Field, d.Reason)
		},
	}

	if !opts.SkipConditions && !evaluator.Evaluate(def.Trigger.Conditions, execution.Context) {
		logger.Info("Trigger conditions not met, cancelling execution")

		execution.Status = models.ExecutionStatusCancelled
		execution.Error = "trigger conditions not met"
		e.finalize(ctx, execution, logger)

		return execution, nil
	}

	e.publish(ctx, execution, events.ExecutionStarted{
		BaseEvent:   e.baseEvent(events.ExecutionStartedEvent, execution),
		TriggeredBy: triggeredBy,
		TriggerData: triggerData,
	})

	logger.Info("Starting execution of workflow", "actions", len(def.Actions), "dry_run", opts.DryRun)

	status, failure := e.runActions(ctx, def, execution, evaluator, opts, handle, logger)
	execution.Status = status
	if failure != "" {
		execution.Error = failure
	}

	e.finalize(ctx, execution, logger)

	logger.Info("Completed execution of workflow", "status", execution.Status, "duration_ms", execution.DurationMs)

	return execution, nil
}

// newExecution builds the execution record and its context. Definition
// variables are shallow-merged with option overrides; options win.
func (e *Engine) newExecution(
	def *models.WorkflowDefinition,
	triggerData map[string]any,
	triggeredBy string,
	opts *Options,
	depth int,
) *models.WorkflowExecution {
	variables := make(map[string]any, len(def.Variables)+len(opts.Variables))
	for k, v := range def.Variables {
		variables[k] = v
	}

	for k, v := range opts.Variables {
		variables[k] = v
	}

	now := time.Now().UTC()
	executionID := generateExecutionID()

	execution := &models.WorkflowExecution{
		ID:             executionID,
		WorkflowID:     def.ID,
		OrganizationID: def.OrganizationID,
		Status:         models.ExecutionStatusPending,
		StartedAt:      now,
		Actions:        make([]*models.ActionExecution, 0, len(def.Actions)),
		Context: &models.ExecutionContext{
			ID:             executionID,
			WorkflowID:     def.ID,
			OrganizationID: def.OrganizationID,
			TriggeredBy:    triggeredBy,
			TriggeredAt:    now,
			TriggerData:    triggerData,
			Variables:      variables,
			State:          make(map[string]any),
			DryRun:         opts.DryRun,
			Depth:          depth,
		},
	}

	if opts.DryRun {
		execution.Metadata = map[string]any{"dry_run": true}
	}

	return execution
}

// finalize stamps the terminal timestamps and persists the record exactly
// once. Persistence failure after a successful run does not erase in-memory
// success; it is logged and surfaced on the event bus and the caller still
// receives the correct execution value.
func (e *Engine) finalize(ctx context.Context, execution *models.WorkflowExecution, logger *slog.Logger) {
	completedAt := time.Now().UTC()
	execution.CompletedAt = &completedAt
	execution.DurationMs = completedAt.Sub(execution.StartedAt).Milliseconds()

	persistCtx := context.WithoutCancel(ctx)

	if err := e.executions.Persist(persistCtx, execution); err != nil {
		logger.Error("Failed to persist execution", "error", err)

		e.publish(persistCtx, execution, events.PersistenceFailure{
			BaseEvent: e.baseEvent(events.PersistenceFailureEvent, execution),
			Error:     err.Error(),
		})
	}

	switch execution.Status {
	case models.ExecutionStatusCompleted:
		e.publish(ctx, execution, events.ExecutionCompleted{
			BaseEvent:  e.baseEvent(events.ExecutionCompletedEvent, execution),
			DurationMs: execution.DurationMs,
			Actions:    len(execution.Actions),
		})
	case models.ExecutionStatusFailed:
		e.publish(ctx, execution, events.ExecutionFailed{
			BaseEvent:  e.baseEvent(events.ExecutionFailedEvent, execution),
			Error:      execution.Error,
			DurationMs: execution.DurationMs,
		})
	case models.ExecutionStatusCancelled:
		e.publish(ctx, execution, events.ExecutionCancelled{
			BaseEvent:  e.baseEvent(events.ExecutionCancelledEvent, execution),
			Reason:     execution.Error,
			DurationMs: execution.DurationMs,
		})
	}
}

func (e *Engine) track(executionID string) *executionHandle {
	handle := &executionHandle{}

	e.mu.Lock()
	e.running[executionID] = handle
	e.mu.Unlock()

	return handle
}

func (e *Engine) untrack(executionID string) {
	e.mu.Lock()
	delete(e.running, executionID)
	e.mu.Unlock()
}

func (e *Engine) publish(ctx context.Context, execution *models.WorkflowExecution, event eventbus.Event) {
	if e.eventBus == nil {
		return
	}

	if err := e.eventBus.Publish(ctx, execution.WorkflowID, event); err != nil {
		e.logger.Warn("Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

func (e *Engine) publishDiagnostic(ctx context.Context, execution *models.WorkflowExecution, source, field, reason string) {
	e.publish(ctx, execution, events.EvaluationDiagnostic{
		BaseEvent: e.baseEvent(events.EvaluationDiagnosticEvent, execution),
		Source:    source,
		Field:     field,
		Reason:    reason,
	})
}

func (e *Engine) baseEvent(eventType events.EventType, execution *models.WorkflowExecution) events.BaseEvent {
	return events.BaseEvent{
		ID:          uuid.New().String(),
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		WorkflowID:  execution.WorkflowID,
		ExecutionID: execution.ID,
	}
}

func generateExecutionID() string {
	return "exec-" + uuid.New().String()[:8]
}
