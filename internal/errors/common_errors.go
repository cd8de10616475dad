package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeParsing     ErrorType = "PARSING"
	ErrTypeStorage     ErrorType = "STORAGE"
	ErrTypeValidation  ErrorType = "VALIDATION"
	ErrTypeNotFound    ErrorType = "NOT_FOUND"
	ErrTypeConfig      ErrorType = "CONFIG"
	ErrTypeSchema      ErrorType = "SCHEMA"
	ErrTypeOrdering    ErrorType = "ORDERING"
	ErrTypeComputation ErrorType = "COMPUTATION"
)

// Sentinels for the pipeline's error taxonomy. Typed errors in the
// dataprocessing and analytics packages unwrap to these.
var (
	// ErrSchemaMismatch: a requested attribute is absent from a year's extract.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrAmbiguousYearOrdering: two sources claim the same year.
	ErrAmbiguousYearOrdering = errors.New("ambiguous year ordering")
	// ErrDegenerateColumn: a zero-variance attribute reached a correlation.
	ErrDegenerateColumn = errors.New("degenerate column")
	// ErrDenominatorMismatch: institution counts computed from a different table.
	ErrDenominatorMismatch = errors.New("denominator table mismatch")
	// ErrNonNumeric: a present, non-numeric value reached a numeric aggregate.
	ErrNonNumeric = errors.New("non-numeric value")
	// ErrEmptySelection: a computation had no eligible rows.
	ErrEmptySelection = errors.New("empty selection")
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewParsingError creates a parsing-related error
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// IsType reports whether err is, or wraps, an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// IsFatal reports whether err invalidates the whole longitudinal join and
// must abort the run, as opposed to failing a single aggregate.
func IsFatal(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrAmbiguousYearOrdering),
		errors.Is(err, ErrDenominatorMismatch),
		IsType(err, ErrTypeOrdering),
		IsType(err, ErrTypeStorage),
		IsType(err, ErrTypeConfig):
		return true
	}
	return false
}
