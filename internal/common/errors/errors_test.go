package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStandardError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("resolve: %w", NewInvalidRecipientError("SMS", "orgUnit: ou-1"))

	assert.True(t, stderrors.Is(err, ErrInvalidRecipient))
	assert.False(t, stderrors.Is(err, ErrUnsupportedChannel))
	assert.True(t, HasCode(err, ErrCodeInvalidRecipient))
	assert.Contains(t, err.Error(), "Invalid SMS recipient")
}

func TestStandardError_UnwrapsCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewTemplateLookupFailedError("trigger", cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, err.Retryable)
}

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name        string
		err         *StandardError
		wantRetries int
	}{
		{"store failure retries", NewCompletionLookupFailedError("k", stderrors.New("boom")), 3},
		{"timeout retries twice", NewTimeoutError("zeebe", stderrors.New("deadline")), 2},
		{"invalid recipient is terminal", NewInvalidRecipientError("EMAIL", ""), 0},
		{"send failure belongs to transport", NewExternalSendFailedError("SMS", stderrors.New("x")), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmn := ConvertToBPMNError(tt.err)
			assert.Equal(t, string(tt.err.Code), bpmn.Code)
			assert.Equal(t, tt.wantRetries, bpmn.Retries)
			assert.Equal(t, string(tt.err.Code), bpmn.ToErrorVariables()["originalErrorCode"])
		})
	}
}

func TestNormalize(t *testing.T) {
	plain := Normalize(stderrors.New("unexpected"))
	assert.Equal(t, ErrCodeInternal, plain.Code)

	wrapped := Normalize(fmt.Errorf("outer: %w", NewInvalidJobPayloadError("missing dataSetId")))
	assert.Equal(t, ErrCodeInvalidJobPayload, wrapped.Code)
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "RECIPIENT", GetErrorCategory(ErrCodeInvalidRecipient))
	assert.Equal(t, "STORE", GetErrorCategory(ErrCodeTemplateLookupFailed))
	assert.Equal(t, "TRANSPORT", GetErrorCategory(ErrCodeExternalSendFailed))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidJobPayload))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeTimeout))
}
