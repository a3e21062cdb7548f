package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/claimflow/claimflow/pkg/conditions"
	"github.com/claimflow/claimflow/pkg/events"
	"github.com/claimflow/claimflow/pkg/interpolate"
	"github.com/claimflow/claimflow/pkg/models"
	"github.com/claimflow/claimflow/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// orchestration walks one execution's action graph.
type orchestration struct {
	engine    *Engine
	def       *models.WorkflowDefinition
	execution *models.WorkflowExecution
	evaluator *conditions.Evaluator
	interp    *interpolate.Interpolator
	opts      *Options
	handle    *executionHandle
	logger    *slog.Logger

	index map[string]int // action id -> position in the declared list

	// routed flips once any routing edge has been followed; from then on an
	// action with no outgoing edges terminates its branch instead of falling
	// through to the next array index.
	routed bool
}

// runActions executes the workflow's actions honoring per-action conditions,
// success/failure routing and the retry controller. It returns the final
// execution status and, for failures, the terminal error message.
func (e *Engine) runActions(
	ctx context.Context,
	def *models.WorkflowDefinition,
	execution *models.WorkflowExecution,
	evaluator *conditions.Evaluator,
	opts *Options,
	handle *executionHandle,
	logger *slog.Logger,
) (models.ExecutionStatus, string) {
	o := &orchestration{
		engine:    e,
		def:       def,
		execution: execution,
		evaluator: evaluator,
		opts:      opts,
		handle:    handle,
		logger:    logger,
		index:     make(map[string]int, len(def.Actions)),
		interp: &interpolate.Interpolator{
			OnMiss: func(path string) {
				e.publishDiagnostic(ctx, execution, "interpolation", path, "unresolved placeholder")
			},
		},
	}

	for i, action := range def.Actions {
		o.index[action.ID] = i
	}

	return o.run(ctx)
}

func (o *orchestration) run(ctx context.Context) (models.ExecutionStatus, string) {
	o.execution.Status = models.ExecutionStatusRunning

	queue := []string{o.def.Actions[0].ID}
	executed := make(map[string]bool, len(o.def.Actions))

	for len(queue) > 0 {
		if o.cancelled(ctx) {
			o.logger.Info("Execution cancelled between actions")

			return models.ExecutionStatusCancelled, "execution cancelled"
		}

		actionID := queue[0]
		queue = queue[1:]

		if executed[actionID] {
			// Routing is a DAG; an id reached through two edges runs once.
			continue
		}

		action, found := o.def.ActionByID(actionID)
		if !found {
			return models.ExecutionStatusFailed, "action " + actionID + " not found in workflow"
		}

		executed[actionID] = true

		if !o.evaluator.Evaluate(action.Conditions, o.execution.Context) {
			// A skipped gate is not a failure: no record, follow the
			// action's default next step as if it had succeeded.
			o.logger.Info("Action conditions not met, skipping", "action_id", action.ID)

			queue = append(queue, o.next(action, true)...)

			continue
		}

		record := o.runOne(ctx, action)
		o.execution.Actions = append(o.execution.Actions, record)
		o.notifyProgress()

		if record.Status == models.ActionStatusFailed {
			if len(action.OnFailure) == 0 {
				// Retries exhausted and no failure route: the run is over.
				// No compensation or rollback, failure is terminal and
				// explicit.
				return models.ExecutionStatusFailed, "action " + action.ID + " failed: " + record.Error
			}

			o.routed = true
			queue = append(queue, action.OnFailure...)

			continue
		}

		queue = append(queue, o.next(action, true)...)
	}

	return models.ExecutionStatusCompleted, ""
}

// next returns the ids to run after the given action. Explicit routing edges
// win; otherwise index-based sequencing applies until the first routing edge
// has been followed anywhere in the run.
func (o *orchestration) next(action *models.WorkflowAction, success bool) []string {
	if action.Routed() {
		o.routed = true

		if success {
			return action.OnSuccess
		}

		return action.OnFailure
	}

	if o.routed {
		return nil
	}

	if i := o.index[action.ID]; i+1 < len(o.def.Actions) {
		return []string{o.def.Actions[i+1].ID}
	}

	return nil
}

// runOne resolves the action's config through the interpolation engine and
// invokes its handler under the retry controller.
func (o *orchestration) runOne(ctx context.Context, action *models.WorkflowAction) *models.ActionExecution {
	logger := o.logger.With("action_id", action.ID, "action_type", action.Type)

	if o.engine.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, o.engine.tracer, "workflow.action",
			attribute.String(otelhelper.ActionIDKey, action.ID),
			attribute.String(otelhelper.ActionTypeKey, string(action.Type)),
		)
		defer span.End()
	}

	record := &models.ActionExecution{
		ActionID:  action.ID,
		Status:    models.ActionStatusRunning,
		StartedAt: time.Now().UTC(),
	}

	result, attempts, err := o.invoke(ctx, action, logger)

	completedAt := time.Now().UTC()
	record.CompletedAt = &completedAt
	record.DurationMs = completedAt.Sub(record.StartedAt).Milliseconds()
	record.Attempts = attempts

	if err != nil {
		record.Status = models.ActionStatusFailed
		record.Error = err.Error()

		logger.Warn("Action failed", "attempts", attempts, "error", err)

		o.engine.publish(ctx, o.execution, events.ActionFailed{
			BaseEvent: o.engine.baseEvent(events.ActionFailedEvent, o.execution),
			ActionID:  action.ID,
			Type:      action.Type,
			Attempts:  attempts,
			Error:     record.Error,
		})

		return record
	}

	record.Status = models.ActionStatusCompleted
	record.Result = result
	o.execution.Context.SetState(action.ID, result)

	logger.Info("Action completed", "attempts", attempts)

	o.engine.publish(ctx, o.execution, events.ActionFinished{
		BaseEvent: o.engine.baseEvent(events.ActionFinishedEvent, o.execution),
		ActionID:  action.ID,
		Type:      action.Type,
		Attempts:  attempts,
		Duration:  record.DurationMs,
	})

	return record
}

func (o *orchestration) invoke(ctx context.Context, action *models.WorkflowAction, logger *slog.Logger) (any, int, error) {
	handler, err := o.engine.registry.Resolve(action.Type)
	if err != nil {
		return nil, 1, err
	}

	resolved := *action
	if action.Config != nil {
		config, ok := o.interp.Value(action.Config, o.execution.Context).(map[string]any)
		if ok {
			resolved.Config = config
		}
	}

	return o.engine.runWithRetry(ctx, handler, &resolved, o.execution.Context, logger)
}

func (o *orchestration) cancelled(ctx context.Context) bool {
	return o.handle.cancelled.Load() || ctx.Err() != nil
}

// notifyProgress invokes the monitoring callback with the snapshot so far.
// Panics are swallowed so a UI bug cannot corrupt a workflow run.
func (o *orchestration) notifyProgress() {
	if o.opts.OnProgress == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			o.logger.Warn("Progress callback panicked", "panic", r)
		}
	}()

	o.opts.OnProgress(o.execution)
}
