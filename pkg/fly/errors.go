package fly

import (
	"errors"
	"fmt"
)

// ErrorClass classifies an API error for retry and recovery decisions.
type ErrorClass string

const (
	// ErrorClassNotFound indicates the remote platform reports the resource
	// does not exist. Terminal for reads; treated as success for deletes.
	ErrorClassNotFound ErrorClass = "not_found"

	// ErrorClassConflict indicates the platform rejected the request because
	// of a concurrent modification or a duplicate name. Terminal.
	ErrorClassConflict ErrorClass = "conflict"

	// ErrorClassTransient indicates a network failure, timeout, rate limit,
	// or 5xx-class response. May succeed on retry.
	ErrorClassTransient ErrorClass = "transient"

	// ErrorClassTimeout indicates a convergence deadline elapsed before the
	// observed state satisfied the target predicate.
	ErrorClassTimeout ErrorClass = "timeout"

	// ErrorClassInvalid indicates missing or malformed identifying
	// parameters or payloads. Terminal, surfaced before any remote call
	// when detectable locally.
	ErrorClassInvalid ErrorClass = "invalid"

	// ErrorClassUnavailable indicates the transient-retry budget was
	// exhausted. The whole operation may be safely resubmitted.
	ErrorClassUnavailable ErrorClass = "unavailable"
)

// APIError is a classified error from the Machines API or the layers
// composed on top of it.
type APIError struct {
	// Class is the error classification for retry logic.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// StatusCode is the HTTP status that produced the error, if any.
	StatusCode int `json:"status_code,omitempty"`

	// Resource identifies the resource involved (app name, machine id, ...).
	Resource string `json:"resource,omitempty"`

	// Operation is the client operation being performed (e.g. "machines.create").
	Operation string `json:"operation,omitempty"`

	// LastState carries the last observed state when a convergence wait
	// times out.
	LastState string `json:"last_state,omitempty"`

	// Err is the underlying cause.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Class, e.Message)
	if e.Operation != "" {
		msg = fmt.Sprintf("[%s] %s: %s", e.Class, e.Operation, e.Message)
	}
	if e.Resource != "" {
		msg += fmt.Sprintf(" (resource=%s)", e.Resource)
	}
	if e.LastState != "" {
		msg += fmt.Sprintf(" (last_state=%s)", e.LastState)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements error equality for errors.Is: two APIErrors match when
// their classes match.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.Class == t.Class
}

// WithResource adds resource context to an error.
func (e *APIError) WithResource(resource string) *APIError {
	e.Resource = resource
	return e
}

// WithOperation adds operation context to an error.
func (e *APIError) WithOperation(operation string) *APIError {
	e.Operation = operation
	return e
}

// NewNotFoundError creates a not-found error.
func NewNotFoundError(message string) *APIError {
	return &APIError{Class: ErrorClassNotFound, Message: message, StatusCode: 404}
}

// NewConflictError creates a conflict error.
func NewConflictError(message string, err error) *APIError {
	return &APIError{Class: ErrorClassConflict, Message: message, Err: err}
}

// NewTransientError creates a transient error.
func NewTransientError(message string, err error) *APIError {
	return &APIError{Class: ErrorClassTransient, Message: message, Err: err}
}

// NewTimeoutError creates a convergence timeout error carrying the last
// observed state for diagnostics.
func NewTimeoutError(message, lastState string) *APIError {
	return &APIError{Class: ErrorClassTimeout, Message: message, LastState: lastState}
}

// NewInvalidError creates an invalid-input error.
func NewInvalidError(message string) *APIError {
	return &APIError{Class: ErrorClassInvalid, Message: message}
}

// NewUnavailableError creates an unavailable error wrapping the last
// transient failure after the retry budget is exhausted.
func NewUnavailableError(message string, err error) *APIError {
	return &APIError{Class: ErrorClassUnavailable, Message: message, Err: err}
}

// classOf returns the class of err, or empty when err is not an APIError.
func classOf(err error) ErrorClass {
	var e *APIError
	if errors.As(err, &e) {
		return e.Class
	}
	return ""
}

// IsNotFound returns true if the error is classified as not-found.
func IsNotFound(err error) bool { return classOf(err) == ErrorClassNotFound }

// IsConflict returns true if the error is classified as a conflict.
func IsConflict(err error) bool { return classOf(err) == ErrorClassConflict }

// IsTransient returns true if the error is classified as transient.
func IsTransient(err error) bool { return classOf(err) == ErrorClassTransient }

// IsTimeout returns true if the error is a convergence timeout.
func IsTimeout(err error) bool { return classOf(err) == ErrorClassTimeout }

// IsInvalid returns true if the error is classified as invalid input.
func IsInvalid(err error) bool { return classOf(err) == ErrorClassInvalid }

// IsUnavailable returns true if the error reports an exhausted retry budget.
func IsUnavailable(err error) bool { return classOf(err) == ErrorClassUnavailable }

// IsRetryable returns true if the error can be retried. Only transient
// failures are retryable; conflicts and not-found conditions reflect
// remote state and retrying them cannot change the outcome.
func IsRetryable(err error) bool {
	return IsTransient(err)
}

// classifyStatus maps an HTTP status code to an error class.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == 404:
		return ErrorClassNotFound
	case status == 409 || status == 412 || status == 422:
		return ErrorClassConflict
	case status == 408 || status == 429 || status >= 500:
		return ErrorClassTransient
	default:
		return ErrorClassInvalid
	}
}
