package dto

import (
	"net/http"

	"github.com/erp/returns/internal/domain/shared"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Request error codes
const (
	// ErrCodeValidation is used when binding rules reject the request
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeBadRequest is used for malformed path or query parameters
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidJSON is used when the body cannot be decoded
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeMissingSeller is used when X-Seller-ID is absent or malformed
	ErrCodeMissingSeller = "ERR_MISSING_SELLER"
	// ErrCodeMissingActor is used when X-User-ID is required but absent
	ErrCodeMissingActor = "ERR_MISSING_ACTOR"
	// ErrCodeRequestTooLarge is used when the body exceeds the limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	// ErrCodeDuplicateRequest is used when an Idempotency-Key was already used
	ErrCodeDuplicateRequest = "ERR_DUPLICATE_REQUEST"
)

// Domain error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeInvalidArgument     = "ERR_INVALID_ARGUMENT"
	ErrCodeInvalidState        = "ERR_INVALID_STATE"
	ErrCodeInvariantViolation  = "ERR_INVARIANT_VIOLATION"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodePreconditionFailed  = "ERR_PRECONDITION_FAILED"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:       http.StatusBadRequest,
	ErrCodeBadRequest:       http.StatusBadRequest,
	ErrCodeInvalidJSON:      http.StatusBadRequest,
	ErrCodeMissingSeller:    http.StatusBadRequest,
	ErrCodeMissingActor:     http.StatusBadRequest,
	ErrCodeRequestTooLarge:  http.StatusRequestEntityTooLarge,
	ErrCodeDuplicateRequest: http.StatusConflict,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeInvalidArgument:     http.StatusBadRequest,
	ErrCodeInvalidState:        http.StatusUnprocessableEntity,
	ErrCodeInvariantViolation:  http.StatusUnprocessableEntity,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodePreconditionFailed:  http.StatusPreconditionFailed,
	ErrCodeConcurrencyConflict: http.StatusConflict,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps shared.DomainError codes to API codes
var DomainErrorCodeMapping = map[string]string{
	shared.CodeNotFound:            ErrCodeNotFound,
	shared.CodeInvalidArgument:     ErrCodeInvalidArgument,
	shared.CodeInvalidState:        ErrCodeInvalidState,
	shared.CodeInvariantViolation:  ErrCodeInvariantViolation,
	shared.CodeConflict:            ErrCodeConflict,
	shared.CodePreconditionFailed:  ErrCodePreconditionFailed,
	shared.CodeConcurrencyConflict: ErrCodeConcurrencyConflict,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Codes already in the API format, or unknown, are returned as-is.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
