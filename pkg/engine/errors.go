package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrWorkflowNotRunnable indicates a definition that is missing, archived
	// or has no actions. Raised before any execution record is created; this
	// is the only error Execute ever returns.
	ErrWorkflowNotRunnable = errors.New("workflow not runnable")

	// ErrExecutionNotFound indicates a cancellation request for an execution
	// this engine is not currently running.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrMaxDepthExceeded indicates a nested run_workflow chain went deeper
	// than the engine allows.
	ErrMaxDepthExceeded = errors.New("nested workflow depth exceeded")
)

// NotRunnableError carries the reason a workflow was rejected before running.
type NotRunnableError struct {
	WorkflowID string
	Reason     string
}

func (e *NotRunnableError) Error() string {
	return fmt.Sprintf("workflow %s not runnable: %s", e.WorkflowID, e.Reason)
}

func (e *NotRunnableError) Unwrap() error {
	return ErrWorkflowNotRunnable
}
