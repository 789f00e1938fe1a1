package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		message   string
		details   string
		requestID string
	}{
		{
			name:      "Basic error",
			code:      ErrInvalidInput,
			message:   "Invalid screening",
			details:   "The request body is not a JSON object",
			requestID: "req-123",
		},
		{
			name:      "Locked screening",
			code:      ErrConflict,
			message:   "screening for patient p-1: screening is locked",
			details:   "",
			requestID: "req-456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewAPIError(tt.code, tt.message, tt.details, tt.requestID)

			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.message, err.Message)
			assert.Equal(t, tt.details, err.Details)
			assert.Equal(t, tt.requestID, err.RequestID)
			assert.WithinDuration(t, time.Now(), err.Timestamp, time.Minute)
			assert.Equal(t, tt.code+": "+tt.message, err.Error())
		})
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("nightPain", "must be a boolean", "yes")

	assert.Equal(t, "nightPain", err.Field)
	assert.Equal(t, "yes", err.Value)
	assert.Equal(t, "validation error for field 'nightPain': must be a boolean", err.Error())

	var wrapped error = err
	var target *ValidationError
	require.True(t, errors.As(wrapped, &target))
	assert.Equal(t, "nightPain", target.Field)
}

func TestAPIError_ResponseBody(t *testing.T) {
	body, err := json.Marshal(NewAPIError(ErrConflict, "screening is locked", "", "corr-1"))
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(body, &fields))
	assert.Equal(t, "CONFLICT", fields["code"])
	assert.Equal(t, "screening is locked", fields["message"])
	assert.Equal(t, "corr-1", fields["request_id"])
	assert.Contains(t, fields, "timestamp")
	assert.NotContains(t, fields, "details")

	wrapped := fmt.Errorf("parse screening: %w", NewValidationError("gpDetails", "must be a string", 3))
	var target *ValidationError
	require.ErrorAs(t, wrapped, &target)
	assert.Equal(t, "gpDetails", target.Field)
}
