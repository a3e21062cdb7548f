// Package persistence provides standardized error types for storage operations.
package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrWorkflowNotFound indicates a workflow definition was not found.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrWorkflowAlreadyExists indicates a definition with the same id exists.
	ErrWorkflowAlreadyExists = errors.New("workflow already exists")

	// ErrExecutionNotFound indicates an execution record was not found.
	ErrExecutionNotFound = errors.New("execution not found")
)

// RepositoryError wraps storage errors with operation context.
type RepositoryError struct {
	Op  string // operation being performed, e.g. "GetByID", "Persist"
	ID  string // record id if applicable
	Err error
}

func (e *RepositoryError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s failed for %s: %v", e.Op, e.ID, e.Err)
	}

	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}

func (e *RepositoryError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewRepositoryError creates a repository error with context.
func NewRepositoryError(op, id string, err error) *RepositoryError {
	return &RepositoryError{Op: op, ID: id, Err: err}
}

// IsWorkflowNotFound checks whether an error indicates a missing definition.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsExecutionNotFound checks whether an error indicates a missing execution.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}
