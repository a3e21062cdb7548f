package engine

import "github.com/claimflow/claimflow/pkg/models"

// Options tunes a single Execute call.
type Options struct {
	// Variables is shallow-merged over the definition's variables; options
	// win on key conflict.
	Variables map[string]any

	// SkipConditions bypasses the trigger's own conditions.
	SkipConditions bool

	// DryRun asks handlers to suppress mutating side effects. The execution
	// is still fully evaluated and recorded, tagged dry-run in metadata.
	DryRun bool

	// OnProgress, if set, is invoked synchronously after every action
	// completes with the execution snapshot so far. Panics are recovered and
	// ignored so a monitoring bug cannot corrupt a run.
	OnProgress func(execution *models.WorkflowExecution)
}
