package errors

import (
	"errors"
	"fmt"
	"io/fs"

	"abrsqol/internal/qol"
	"abrsqol/internal/table"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeParsing    ErrorType = "PARSING"
	ErrTypeValidation ErrorType = "VALIDATION"
	ErrTypeNotFound   ErrorType = "NOT_FOUND"
	ErrTypeDimension  ErrorType = "DIMENSION"
	ErrTypeNumerical  ErrorType = "NUMERICAL"
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

// NewNotFoundError reports a missing resource such as an input file.
func NewNotFoundError(resource string, cause error) *AppError {
	return NewAppError(ErrTypeNotFound, resource+" not found", cause)
}

// NewDimensionError wraps a shape mismatch, recording every input shape.
func NewDimensionError(cause error) *AppError {
	e := NewAppError(ErrTypeDimension, "input variables disagree in shape", cause)
	var dm *qol.DimensionMismatchError
	if errors.As(cause, &dm) {
		e.WithContext("axis", dm.Axis).WithContext("shapes", dm.Shapes)
	}
	return e
}

// NewNumericalError wraps a solver breakdown, recording where it happened.
func NewNumericalError(cause error) *AppError {
	e := NewAppError(ErrTypeNumerical, "solver produced a non-finite objective", cause)
	var ne *qol.NumericalError
	if errors.As(cause, &ne) {
		e.WithContext("column", ne.Column).WithContext("iteration", ne.Iteration)
	}
	return e
}

// Classify wraps a solve pipeline error in the matching AppError. Errors
// that are already AppErrors, or that match no known class, are returned
// unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}

	var cellErr *table.CellError
	switch {
	case errors.Is(err, qol.ErrDimensionMismatch):
		return NewDimensionError(err)
	case errors.Is(err, qol.ErrNumerical):
		return NewNumericalError(err)
	case errors.Is(err, qol.ErrInvalidParams),
		errors.Is(err, qol.ErrInvalidInput),
		errors.Is(err, qol.ErrMissingInput):
		return NewAppError(ErrTypeValidation, "invalid solver input", err)
	case errors.As(err, &cellErr),
		errors.Is(err, table.ErrColumnNotFound),
		errors.Is(err, table.ErrEmptyTable),
		errors.Is(err, table.ErrExtraCells):
		return NewAppError(ErrTypeParsing, "unreadable location table", err)
	case errors.Is(err, fs.ErrNotExist):
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return NewNotFoundError(pathErr.Path, err).WithContext("path", pathErr.Path)
		}
		return NewNotFoundError("input", err)
	}
	return err
}
