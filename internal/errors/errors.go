package errors

import (
	"net/http"
	"time"

	"github.com/go-chi/render"
)

// Codes carried in the error_code extension of a problem response.
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// APIError is an error the transport layer raises for a request it rejects
// before any inversion runs. The ErrorHandler turns it into a problem
// response.
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`

	// RetryAfter, when positive, is sent as a Retry-After header in whole
	// seconds.
	RetryAfter time.Duration `json:"-"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// ValidationError names one rejected request field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New creates an APIError without details.
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{StatusCode: statusCode, ErrorCode: errorCode, Message: message}
}

// InvalidRequestWithError reports a body that could not be decoded.
func InvalidRequestWithError(err error) *APIError {
	e := New(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format")
	e.Details = err.Error()
	return e
}

// ErrValidation reports a single invalid field or query parameter.
func ErrValidation(field, message string) *APIError {
	return NewValidationErrors([]ValidationError{{Field: field, Message: message}})
}

// NewValidationErrors reports every field the validator rejected.
func NewValidationErrors(fields []ValidationError) *APIError {
	e := New(http.StatusBadRequest, CodeValidationFailed, "Request validation failed")
	e.Details = fields
	return e
}

// NotFoundError reports a missing resource such as a job id.
func NotFoundError(resource string) *APIError {
	e := New(http.StatusNotFound, CodeNotFound, resource+" not found")
	e.Details = resource
	return e
}

// ConflictError reports a request that is invalid for the resource's
// current state, like cancelling a finished job.
func ConflictError(message string) *APIError {
	return New(http.StatusConflict, CodeConflict, message)
}

// ServiceUnavailable reports that no work can be accepted right now and
// asks the client to retry after the given delay.
func ServiceUnavailable(message string, retryAfter time.Duration) *APIError {
	e := New(http.StatusServiceUnavailable, CodeServiceUnavailable, message)
	e.RetryAfter = retryAfter
	return e
}
