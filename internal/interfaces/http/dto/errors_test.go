package dto

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/erp/returns/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeUnknown, http.StatusInternalServerError},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeMissingSeller, http.StatusBadRequest},
		{ErrCodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		{ErrCodeDuplicateRequest, http.StatusConflict},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeInvalidArgument, http.StatusBadRequest},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeInvariantViolation, http.StatusUnprocessableEntity},
		{ErrCodeConflict, http.StatusConflict},
		{ErrCodePreconditionFailed, http.StatusPreconditionFailed},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		// Unknown code should return 500
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{shared.CodeNotFound, ErrCodeNotFound},
		{shared.CodeInvalidArgument, ErrCodeInvalidArgument},
		{shared.CodeInvalidState, ErrCodeInvalidState},
		{shared.CodeInvariantViolation, ErrCodeInvariantViolation},
		{shared.CodeConflict, ErrCodeConflict},
		{shared.CodePreconditionFailed, ErrCodePreconditionFailed},
		{shared.CodeConcurrencyConflict, ErrCodeConcurrencyConflict},
		{ErrCodeNotFound, ErrCodeNotFound},
		{"CUSTOM_ERROR", "CUSTOM_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.input))
		})
	}
}

func TestErrorCodeConstants(t *testing.T) {
	for code, status := range ErrorCodeHTTPStatus {
		t.Run(code, func(t *testing.T) {
			assert.True(t, strings.HasPrefix(code, "ERR_"), "Error code should start with ERR_")
			assert.Greater(t, status, 0)
		})
	}
	for domainCode, apiCode := range DomainErrorCodeMapping {
		t.Run(domainCode, func(t *testing.T) {
			_, ok := ErrorCodeHTTPStatus[apiCode]
			assert.True(t, ok, "%s should have an HTTP status", apiCode)
		})
	}
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse(shared.CodeNotFound, "Return not found")

	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "Return not found", resp.Error.Message)
	assert.NotZero(t, resp.Error.Timestamp)
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "Return not found", "req-123-456")

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "req-123-456", resp.Error.RequestID)
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{
		{Field: "quantity", Message: "Must be greater than 0"},
		{Field: "decision", Message: "Must be a known item decision"},
	}

	resp := NewValidationErrorResponse("Validation failed", "req-789", details)

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-789", resp.Error.RequestID)
	require.Len(t, resp.Error.Details, 2)
	assert.Equal(t, "quantity", resp.Error.Details[0].Field)
}

func TestErrorResponseJSON(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeInvalidState, "Return is COMPLETED", "req-test-123")

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, false, decoded["success"])
	errBody, ok := decoded["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, ErrCodeInvalidState, errBody["code"])
	assert.Equal(t, "req-test-123", errBody["request_id"])
	_, hasData := decoded["data"]
	assert.False(t, hasData)
}

func TestErrorResponseTimestamp(t *testing.T) {
	before := time.Now()
	resp := NewErrorResponse(ErrCodeInternal, "Server error")
	after := time.Now()

	assert.False(t, resp.Error.Timestamp.Before(before))
	assert.False(t, resp.Error.Timestamp.After(after))
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	tests := []struct {
		total         int64
		pageSize      int
		expectedPages int
		expectedSize  int
	}{
		{100, 10, 10, 10},
		{101, 10, 11, 10},
		{0, 10, 0, 10},
		{9, 10, 1, 10},
		{100, 0, 5, 20},
		{100, -1, 5, 20},
	}

	for _, tt := range tests {
		resp := NewSuccessResponseWithMeta([]string{}, tt.total, 1, tt.pageSize)
		assert.True(t, resp.Success)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, tt.expectedPages, resp.Meta.TotalPages)
		assert.Equal(t, tt.expectedSize, resp.Meta.PageSize)
	}
}
