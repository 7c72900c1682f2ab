package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of an API error.
type ErrorType string

const (
	// ErrorTypeInvalidRequest indicates a malformed query parameter or body.
	ErrorTypeInvalidRequest ErrorType = "invalid_request"

	// ErrorTypeAuthentication indicates missing or rejected credentials.
	ErrorTypeAuthentication ErrorType = "authentication"

	// ErrorTypePermission indicates the caller lacks a required role.
	ErrorTypePermission ErrorType = "permission"

	// ErrorTypePrecondition indicates the operation is not allowed in the
	// current execution mode.
	ErrorTypePrecondition ErrorType = "precondition_failed"

	// ErrorTypeNotFound indicates a pipeline or revision was not found.
	ErrorTypeNotFound ErrorType = "not_found"

	// ErrorTypeConflict indicates a duplicate name or a stale concurrency token.
	ErrorTypeConflict ErrorType = "conflict"

	// ErrorTypeServer indicates an internal server error.
	ErrorTypeServer ErrorType = "server"
)

// ErrorCode provides additional specificity beyond the error type.
type ErrorCode string

const (
	ErrorCodeSlaveMode        ErrorCode = "slave_mode"
	ErrorCodeMissingRole      ErrorCode = "missing_role"
	ErrorCodeInvalidParameter ErrorCode = "invalid_parameter"
	ErrorCodeInvalidBody      ErrorCode = "invalid_body"
	ErrorCodePipelineExists   ErrorCode = "pipeline_exists"
	ErrorCodePipelineNotFound ErrorCode = "pipeline_not_found"
	ErrorCodeRevisionNotFound ErrorCode = "revision_not_found"
	ErrorCodeStaleUUID        ErrorCode = "stale_uuid"
)

// SlaveModeMessage is the message returned for writes attempted in SLAVE mode.
const SlaveModeMessage = "This operation is not supported in SLAVE mode"

// APIError is the error type surfaced to HTTP callers. Stores return it for
// not-found and conflict conditions so the kind survives propagation.
type APIError struct {
	// Type is the category of error
	Type ErrorType `json:"type"`

	// Code is an optional specific error code
	Code ErrorCode `json:"code,omitempty"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// Param is the parameter that caused the error (if applicable)
	Param string `json:"param,omitempty"`

	// StatusCode is the suggested HTTP status code
	StatusCode int `json:"-"`

	cause error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *APIError) Unwrap() error {
	return e.cause
}

// HTTPStatusCode returns the appropriate HTTP status code for this error.
func (e *APIError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}

	switch e.Type {
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case ErrorTypePermission, ErrorTypePrecondition:
		return http.StatusForbidden
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// NewAPIError creates a new API error.
func NewAPIError(errType ErrorType, message string) *APIError {
	return &APIError{
		Type:    errType,
		Message: message,
	}
}

// WithCode adds an error code to the error.
func (e *APIError) WithCode(code ErrorCode) *APIError {
	e.Code = code
	return e
}

// WithParam adds a parameter name to the error.
func (e *APIError) WithParam(param string) *APIError {
	e.Param = param
	return e
}

// WithStatusCode sets a specific HTTP status code.
func (e *APIError) WithStatusCode(code int) *APIError {
	e.StatusCode = code
	return e
}

// WithCause records the error that produced this one.
func (e *APIError) WithCause(err error) *APIError {
	e.cause = err
	return e
}

// Convenience constructors for common errors

// ErrInvalidRequest creates an invalid request error.
func ErrInvalidRequest(message string) *APIError {
	return NewAPIError(ErrorTypeInvalidRequest, message)
}

// ErrInvalidParameter creates an invalid request error naming the parameter.
func ErrInvalidParameter(param, value string) *APIError {
	return NewAPIError(ErrorTypeInvalidRequest,
		fmt.Sprintf("Invalid value for parameter '%s': %s", param, value)).
		WithCode(ErrorCodeInvalidParameter).
		WithParam(param)
}

// ErrAuthentication creates an authentication error.
func ErrAuthentication(message string) *APIError {
	return NewAPIError(ErrorTypeAuthentication, message)
}

// ErrPermission creates a permission error.
func ErrPermission(message string) *APIError {
	return NewAPIError(ErrorTypePermission, message).WithCode(ErrorCodeMissingRole)
}

// ErrSlaveMode creates the precondition error for writes in SLAVE mode.
func ErrSlaveMode() *APIError {
	return NewAPIError(ErrorTypePrecondition, SlaveModeMessage).WithCode(ErrorCodeSlaveMode)
}

// ErrNotFound creates a not found error.
func ErrNotFound(message string) *APIError {
	return NewAPIError(ErrorTypeNotFound, message)
}

// ErrPipelineNotFound creates the not found error for an unknown pipeline.
func ErrPipelineNotFound(name string) *APIError {
	return ErrNotFound(fmt.Sprintf("pipeline %s not found", name)).WithCode(ErrorCodePipelineNotFound)
}

// ErrRevisionNotFound creates the not found error for an unknown revision.
func ErrRevisionNotFound(name, rev string) *APIError {
	return ErrNotFound(fmt.Sprintf("revision %s of pipeline %s not found", rev, name)).
		WithCode(ErrorCodeRevisionNotFound)
}

// ErrConflict creates a conflict error.
func ErrConflict(message string) *APIError {
	return NewAPIError(ErrorTypeConflict, message)
}

// ErrPipelineExists creates the conflict error for a duplicate pipeline name.
func ErrPipelineExists(name string) *APIError {
	return ErrConflict(fmt.Sprintf("pipeline %s already exists", name)).WithCode(ErrorCodePipelineExists)
}

// ErrStaleUUID creates the conflict error for a stale concurrency token.
func ErrStaleUUID(name string) *APIError {
	return ErrConflict(fmt.Sprintf("pipeline %s was modified concurrently", name)).WithCode(ErrorCodeStaleUUID)
}

// ErrServer creates a server error.
func ErrServer(message string) *APIError {
	return NewAPIError(ErrorTypeServer, message)
}

// AsAPIError converts any error to an APIError. Errors that do not wrap an
// APIError become server errors carrying the original as cause.
func AsAPIError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return ErrServer(err.Error()).WithCause(err)
}

// IsNotFound reports whether err carries a not_found APIError.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Type == ErrorTypeNotFound
}
