package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Every AppError matches exactly one of these with errors.Is.
var (
	// ErrValidation indicates that input data failed validation checks.
	ErrValidation = errors.New("validation error")
	// ErrNotFound indicates that a requested resource could not be found.
	ErrNotFound = errors.New("resource not found")
	// ErrConflict indicates a uniqueness or concurrent-modification conflict.
	ErrConflict = errors.New("conflict")
	// ErrState indicates an illegal state transition.
	ErrState = errors.New("invalid state transition")
	// ErrExternal indicates a failure in an external collaborator (queue, broker).
	ErrExternal = errors.New("external dependency failure")
	// ErrInternal indicates an unexpected infrastructure failure.
	ErrInternal = errors.New("internal error")
)

// ErrDuplicate is kept as an alias of ErrConflict for uniqueness violations.
var ErrDuplicate = ErrConflict

// AppError carries an error kind, a stable machine readable code and the
// underlying cause.
type AppError struct {
	Kind    error
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches the error kind so errors.Is(err, ErrState) works on wrapped AppErrors.
func (e *AppError) Is(target error) bool {
	return e.Kind == target
}

func newKind(kind error, code, message string, args ...any) *AppError {
	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}
	return &AppError{Kind: kind, Code: code, Message: message}
}

// NewValidationError reports malformed input.
func NewValidationError(code, message string, args ...any) *AppError {
	return newKind(ErrValidation, code, message, args...)
}

// NewNotFoundError reports a missing referenced resource.
func NewNotFoundError(message string, args ...any) *AppError {
	return newKind(ErrNotFound, "NOT_FOUND", message, args...)
}

// NewConflictError reports a duplicate or concurrently modified resource.
func NewConflictError(code, message string, args ...any) *AppError {
	return newKind(ErrConflict, code, message, args...)
}

// NewStateError reports an illegal state transition.
func NewStateError(code, message string, args ...any) *AppError {
	return newKind(ErrState, code, message, args...)
}

// NewExternalError wraps a failure of an external collaborator.
func NewExternalError(message string, err error) *AppError {
	return &AppError{Kind: ErrExternal, Code: "EXTERNAL_FAILURE", Message: message, Err: err}
}

// NewAppError wraps an infrastructure failure. Status codes below 500 are
// mapped to the matching error kind so handlers keep a single mapping.
func NewAppError(status int, message string, err error) *AppError {
	kind := ErrInternal
	switch status {
	case http.StatusBadRequest:
		kind = ErrValidation
	case http.StatusNotFound:
		kind = ErrNotFound
	case http.StatusConflict:
		kind = ErrConflict
	}
	return &AppError{Kind: kind, Code: http.StatusText(status), Message: message, Err: err}
}

// HTTPStatus maps an error to the HTTP status the surrounding service responds with.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrState):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrExternal):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Code returns the machine readable code of the first AppError in the chain.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "INTERNAL_ERROR"
}
