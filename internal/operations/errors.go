package operations

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "scorecard/internal/errors"
)

// ErrorType represents the type of operation error
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeDependency   ErrorType = "dependency"
	ErrorTypeExecution    ErrorType = "execution"
	ErrorTypeTimeout      ErrorType = "timeout"
	ErrorTypeCancellation ErrorType = "cancellation"
	ErrorTypeFatal        ErrorType = "fatal"
)

// OperationError represents a operation-specific error
type OperationError struct {
	Type    ErrorType              `json:"type"`
	Step    string                 `json:"step,omitempty"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *OperationError) Error() string {
	if e == nil {
		return "unknown operation error"
	}
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Step != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Type, e.Step, msg)
	}
	return fmt.Sprintf("[%s] %s", e.Type, msg)
}

// Unwrap returns the underlying error
func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewValidationError creates a new validation error
func NewValidationError(step, message string) *OperationError {
	return &OperationError{
		Type:    ErrorTypeValidation,
		Step:    step,
		Message: message,
	}
}

// NewDependencyError creates a new dependency error
func NewDependencyError(step, dependsOn, message string) *OperationError {
	return &OperationError{
		Type:    ErrorTypeDependency,
		Step:    step,
		Message: message,
		Context: map[string]interface{}{
			"depends_on": dependsOn,
		},
	}
}

// NewExecutionError creates a new execution error
func NewExecutionError(step string, cause error) *OperationError {
	return &OperationError{
		Type:    ErrorTypeExecution,
		Step:    step,
		Message: "step execution failed",
		Cause:   cause,
	}
}

// NewTimeoutError creates a new timeout error. A zero timeout means the
// deadline came from the caller's context.
func NewTimeoutError(step string, timeout time.Duration, cause error) *OperationError {
	if timeout <= 0 {
		return &OperationError{Type: ErrorTypeTimeout, Step: step, Message: "step timed out", Cause: cause}
	}
	return &OperationError{
		Type:    ErrorTypeTimeout,
		Step:    step,
		Message: fmt.Sprintf("step exceeded timeout of %s", timeout),
		Cause:   cause,
		Context: map[string]interface{}{
			"timeout": timeout.String(),
		},
	}
}

// NewCancellationError creates a new cancellation error
func NewCancellationError(step string, cause error) *OperationError {
	return &OperationError{
		Type:    ErrorTypeCancellation,
		Step:    step,
		Message: "operation was cancelled",
		Cause:   cause,
	}
}

// NewFatalError creates a new fatal error
func NewFatalError(step, message string, cause error) *OperationError {
	return &OperationError{
		Type:    ErrorTypeFatal,
		Step:    step,
		Message: message,
		Cause:   cause,
	}
}

// GetErrorType returns the type of the error
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ""
	}
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Type
	}
	return ErrorTypeExecution
}

// IsFatal reports whether err must stop the whole run
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	switch GetErrorType(err) {
	case ErrorTypeFatal, ErrorTypeCancellation:
		return true
	}
	return apperrors.IsFatal(err)
}

// WrapError classifies a failure returned by a step. Cancellation and
// errors that invalidate the merged tables become fatal; anything else is an
// execution error confined to the step.
func WrapError(err error, step string) *OperationError {
	if err == nil {
		return nil
	}

	var opErr *OperationError
	if errors.As(err, &opErr) {
		if opErr.Step == "" {
			opErr.Step = step
		}
		return opErr
	}

	switch {
	case errors.Is(err, context.Canceled):
		return NewCancellationError(step, err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewTimeoutError(step, 0, err)
	case apperrors.IsFatal(err):
		return NewFatalError(step, "step failed", err)
	}
	return NewExecutionError(step, err)
}
