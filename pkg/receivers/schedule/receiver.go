// Package schedule is the front door for date_time triggers. It scans active
// workflow definitions, registers a cron entry per definition and fires the
// engine when an entry comes due.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/claimflow/claimflow/pkg/engine"
	"github.com/claimflow/claimflow/pkg/models"
	"github.com/claimflow/claimflow/pkg/persistence"
	"github.com/robfig/cron/v3"
)

// DefaultResyncInterval is how often the receiver re-scans definitions so
// newly activated or paused workflows are picked up without a restart.
const DefaultResyncInterval = time.Minute

// Executor is the part of the engine the receiver needs.
type Executor interface {
	Execute(ctx context.Context, workflowID string, triggerData map[string]any, triggeredBy string, opts *engine.Options) (*models.WorkflowExecution, error)
}

type Receiver struct {
	executor  Executor
	workflows persistence.WorkflowRepository
	logger    *slog.Logger
	cron      *cron.Cron
	resync    time.Duration

	mu   sync.Mutex
	jobs map[string]scheduledJob // workflow id -> registered entry
}

type scheduledJob struct {
	entryID  cron.EntryID
	cronExpr string
}

func NewReceiver(executor Executor, workflows persistence.WorkflowRepository, logger *slog.Logger) *Receiver {
	return &Receiver{
		executor:  executor,
		workflows: workflows,
		logger:    logger.With("module", "schedule_receiver"),
		cron:      cron.New(),
		resync:    DefaultResyncInterval,
		jobs:      make(map[string]scheduledJob),
	}
}

// WithResyncInterval overrides how often definitions are re-scanned.
func (r *Receiver) WithResyncInterval(interval time.Duration) *Receiver {
	r.resync = interval

	return r
}

// Start registers cron entries for the current definitions, starts the
// scheduler and keeps re-scanning until the context is cancelled.
func (r *Receiver) Start(ctx context.Context) error {
	if err := r.Sync(ctx); err != nil {
		return err
	}

	r.cron.Start()
	r.logger.Info("Schedule receiver started", "jobs", len(r.jobs))

	go r.resyncLoop(ctx)

	return nil
}

func (r *Receiver) resyncLoop(ctx context.Context) {
	ticker := time.NewTicker(r.resync)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Sync(ctx); err != nil {
				r.logger.Error("Failed to resync schedule entries", "error", err)
			}
		}
	}
}

// Sync reconciles cron entries with the stored definitions. Only active
// definitions with a date_time trigger get an entry; paused or archived ones
// are dropped.
func (r *Receiver) Sync(ctx context.Context) error {
	status := models.WorkflowStatusActive
	triggerType := models.TriggerTypeDateTime

	defs, err := r.workflows.List(ctx, "", persistence.WorkflowFilters{
		Status:      &status,
		TriggerType: &triggerType,
	})
	if err != nil {
		return fmt.Errorf("failed to list scheduled workflows: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, len(defs))

	for _, def := range defs {
		cronExpr, ok := def.Trigger.Config["cron"].(string)
		if !ok || cronExpr == "" {
			r.logger.Warn("Scheduled workflow has no cron expression", "workflow_id", def.ID)

			continue
		}

		seen[def.ID] = struct{}{}

		if job, exists := r.jobs[def.ID]; exists {
			if job.cronExpr == cronExpr {
				continue
			}

			// Expression changed, re-register.
			r.cron.Remove(job.entryID)
			delete(r.jobs, def.ID)
		}

		if err := r.register(def.ID, cronExpr); err != nil {
			r.logger.Error("Failed to register cron entry", "workflow_id", def.ID, "cron", cronExpr, "error", err)
		}
	}

	for workflowID, job := range r.jobs {
		if _, stillScheduled := seen[workflowID]; !stillScheduled {
			r.cron.Remove(job.entryID)
			delete(r.jobs, workflowID)
			r.logger.Info("Removed schedule entry", "workflow_id", workflowID)
		}
	}

	return nil
}

func (r *Receiver) register(workflowID, cronExpr string) error {
	if _, err := cron.ParseStandard(cronExpr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}

	entryID, err := r.cron.AddFunc(cronExpr, func() {
		r.fire(workflowID, cronExpr)
	})
	if err != nil {
		return fmt.Errorf("failed to add cron entry: %w", err)
	}

	r.jobs[workflowID] = scheduledJob{entryID: entryID, cronExpr: cronExpr}
	r.logger.Info("Registered schedule entry", "workflow_id", workflowID, "cron", cronExpr)

	return nil
}

func (r *Receiver) fire(workflowID, cronExpr string) {
	logger := r.logger.With("workflow_id", workflowID)
	logger.Debug("Schedule entry due")

	triggerData := map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"cron":      cronExpr,
	}

	execution, err := r.executor.Execute(context.Background(), workflowID, triggerData, "schedule", nil)
	if err != nil {
		logger.Error("Scheduled execution rejected", "error", err)

		return
	}

	logger.Info("Scheduled execution finished",
		"execution_id", execution.ID,
		"status", execution.Status,
	)
}

// Stop halts the scheduler. Entries that are mid-run finish first.
func (r *Receiver) Stop(ctx context.Context) error {
	stopCtx := r.cron.Stop()

	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	r.logger.Info("Schedule receiver stopped")

	return nil
}
