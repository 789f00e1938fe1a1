package domain

import (
	"fmt"
	"time"
)

// APIError is the JSON error body of the HTTP API. The rate limiter and the request timeout
// middleware write the same shape, so clients decode a single type for every failed request.
// RequestID carries the X-Correlation-ID of the request for matching against the audit log.
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Codes carried in APIError.Code. INVALID_INPUT and VALIDATION_ERROR come with 400 or 413,
// NOT_FOUND with 404, CONFLICT with 409 for a locked screening and RATE_LIMIT_EXCEEDED with 429.
// INTERNAL_SERVER_ERROR covers 5xx responses and the 408 written on request timeout.
const (
	ErrInvalidInput   = "INVALID_INPUT"
	ErrValidation     = "VALIDATION_ERROR"
	ErrNotFoundCode   = "NOT_FOUND"
	ErrConflict       = "CONFLICT"
	ErrRateLimit      = "RATE_LIMIT_EXCEEDED"
	ErrInternalServer = "INTERNAL_SERVER_ERROR"
)

// ValidationError reports a screening field whose value has the wrong type. The API returns
// Message as the error message and Field as its details.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewAPIError stamps the error body with the current UTC time.
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

func NewValidationError(field, message string, value any) *ValidationError {
	return &ValidationError{Field: field, Message: message, Value: value}
}
