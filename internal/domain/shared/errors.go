package shared

import (
	"errors"
	"fmt"
)

// Error codes shared across the service. HTTP maps each to a status.
const (
	CodeNotFound            = "NOT_FOUND"
	CodeInvalidArgument     = "INVALID_ARGUMENT"
	CodeInvalidState        = "INVALID_STATE"
	CodeInvariantViolation  = "INVARIANT_VIOLATION"
	CodeConflict            = "CONFLICT"
	CodePreconditionFailed  = "PRECONDITION_FAILED"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code, so that
// errors.Is(err, shared.ErrNotFound) matches any not-found error.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Sentinel kinds, for use with errors.Is
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidArgument     = NewDomainError(CodeInvalidArgument, "Invalid argument")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrInvariantViolation  = NewDomainError(CodeInvariantViolation, "Invariant violated")
	ErrConflict            = NewDomainError(CodeConflict, "Resource already exists")
	ErrPreconditionFailed  = NewDomainError(CodePreconditionFailed, "Precondition failed")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
)

func NewNotFoundError(format string, args ...any) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf(format, args...))
}

func NewInvalidArgumentError(format string, args ...any) *DomainError {
	return NewDomainError(CodeInvalidArgument, fmt.Sprintf(format, args...))
}

func NewInvalidStateError(format string, args ...any) *DomainError {
	return NewDomainError(CodeInvalidState, fmt.Sprintf(format, args...))
}

func NewInvariantError(format string, args ...any) *DomainError {
	return NewDomainError(CodeInvariantViolation, fmt.Sprintf(format, args...))
}

func NewConflictError(format string, args ...any) *DomainError {
	return NewDomainError(CodeConflict, fmt.Sprintf(format, args...))
}

func NewPreconditionFailedError(format string, args ...any) *DomainError {
	return NewDomainError(CodePreconditionFailed, fmt.Sprintf(format, args...))
}

func NewConcurrencyConflictError(format string, args ...any) *DomainError {
	return NewDomainError(CodeConcurrencyConflict, fmt.Sprintf(format, args...))
}

// ErrorCode extracts the DomainError code from err, or "" if err is not one.
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
