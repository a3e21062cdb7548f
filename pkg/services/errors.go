// Package services provides the workflow definition service between the web
// layer and persistence.
package services

import (
	"errors"
	"fmt"
)

// Business logic errors. Validation errors map to 400 responses, conflicts
// to 409.
var (
	ErrInvalidWorkflow      = errors.New("invalid workflow definition")
	ErrWorkflowNil          = errors.New("workflow cannot be nil")
	ErrUnknownActionType    = errors.New("unknown action type")
	ErrInvalidActionConfig  = errors.New("invalid action config")
	ErrDuplicateActionID    = errors.New("duplicate action id")
	ErrUnknownRoutingTarget = errors.New("routing target does not exist")
	ErrInvalidRetryConfig   = errors.New("invalid retry config")

	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrWorkflowArchived        = errors.New("archived workflows cannot be modified")
)

// ServiceError wraps service-level errors with the failing operation and an
// error code for API responses.
type ServiceError struct {
	Op      string
	Code    string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error should map to HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidWorkflow) ||
		errors.Is(err, ErrWorkflowNil) ||
		errors.Is(err, ErrUnknownActionType) ||
		errors.Is(err, ErrInvalidActionConfig) ||
		errors.Is(err, ErrDuplicateActionID) ||
		errors.Is(err, ErrUnknownRoutingTarget) ||
		errors.Is(err, ErrInvalidRetryConfig)
}

// IsConflictError checks if an error should map to HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrInvalidStatusTransition) ||
		errors.Is(err, ErrWorkflowArchived)
}

// NewValidationError creates a validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
