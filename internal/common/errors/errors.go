// Package errors provides standardized error handling for the notification
// pipeline and its BPMN job worker.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidRecipient       ErrorCode = "INVALID_RECIPIENT"
	ErrCodeUnsupportedChannel     ErrorCode = "UNSUPPORTED_CHANNEL"
	ErrCodeTemplateLookupFailed   ErrorCode = "TEMPLATE_LOOKUP_FAILED"
	ErrCodeCompletionLookupFailed ErrorCode = "COMPLETION_LOOKUP_FAILED"
	ErrCodeDataSetLookupFailed    ErrorCode = "DATASET_LOOKUP_FAILED"
	ErrCodeRecipientLookupFailed  ErrorCode = "RECIPIENT_LOOKUP_FAILED"
	ErrCodeRenderFailed           ErrorCode = "RENDER_FAILED"

	ErrCodeInternalSendFailed ErrorCode = "INTERNAL_SEND_FAILED"
	ErrCodeExternalSendFailed ErrorCode = "EXTERNAL_SEND_FAILED"

	ErrCodeInvalidJobPayload ErrorCode = "INVALID_JOB_PAYLOAD"
	ErrCodeResourceNotFound  ErrorCode = "RESOURCE_NOT_FOUND"

	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout         ErrorCode = "TIMEOUT_ERROR"
	ErrCodeAuthentication  ErrorCode = "AUTHENTICATION_ERROR"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches another StandardError by code, so errors.Is(err, &StandardError{Code: X}) works.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is checks.
var (
	ErrInvalidRecipient   = &StandardError{Code: ErrCodeInvalidRecipient}
	ErrUnsupportedChannel = &StandardError{Code: ErrCodeUnsupportedChannel}
	ErrInvalidJobPayload  = &StandardError{Code: ErrCodeInvalidJobPayload}
)

// HasCode reports whether err is a StandardError carrying code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		if se, ok := err.(*StandardError); ok && se.Code == code {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewInvalidRecipientError is raised when an org unit lacks the contact
// field a requested channel needs.
func NewInvalidRecipientError(channel, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRecipient,
		Message:   fmt.Sprintf("Invalid %s recipient", channel),
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"channel": channel},
		Timestamp: time.Now().UTC(),
	}
}

// NewUnsupportedChannelError is raised for delivery channels without a validator.
func NewUnsupportedChannelError(channel string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnsupportedChannel,
		Message:   "Unsupported delivery channel",
		Details:   fmt.Sprintf("channel: %s", channel),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTemplateLookupFailedError wraps a template store failure.
func NewTemplateLookupFailedError(scope string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplateLookupFailed,
		Message:   "Template lookup failed",
		Details:   fmt.Sprintf("scope: %s, error: %s", scope, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewCompletionLookupFailedError wraps a completion store failure.
func NewCompletionLookupFailedError(key string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCompletionLookupFailed,
		Message:   "Completion lookup failed",
		Details:   fmt.Sprintf("case: %s, error: %s", key, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewDataSetLookupFailedError wraps a dataset or org unit lookup failure.
func NewDataSetLookupFailedError(id string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDataSetLookupFailed,
		Message:   "Dataset lookup failed",
		Details:   fmt.Sprintf("id: %s, error: %s", id, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewRecipientLookupFailedError wraps a recipient directory failure.
func NewRecipientLookupFailedError(groupID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecipientLookupFailed,
		Message:   "Recipient group lookup failed",
		Details:   fmt.Sprintf("groupId: %s, error: %s", groupID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewRenderFailedError wraps a renderer failure.
func NewRenderFailedError(templateID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRenderFailed,
		Message:   "Message rendering failed",
		Details:   fmt.Sprintf("templateId: %s, error: %s", templateID, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewInternalSendFailedError wraps an inbox transport failure.
func NewInternalSendFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternalSendFailed,
		Message:   "Internal message delivery failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewExternalSendFailedError wraps an external transport failure.
func NewExternalSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExternalSendFailed,
		Message:   "External message delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewInvalidJobPayloadError is returned for unparseable completion events.
func NewInvalidJobPayloadError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidJobPayload,
		Message:   "Invalid job payload",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// Generic constructors

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExternalService,
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTimeout,
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeResourceNotFound,
		Message:   fmt.Sprintf("Resource not found in %s", service),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewAuthenticationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuthentication,
		Message:   "Authentication failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended job retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeTemplateLookupFailed,
		ErrCodeCompletionLookupFailed,
		ErrCodeDataSetLookupFailed,
		ErrCodeRecipientLookupFailed,
		ErrCodeExternalService:
		return 3

	case ErrCodeTimeout:
		return 2

	default:
		// Business errors and send failures: the transport owns retries.
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "RECIPIENT") || strings.Contains(codeStr, "CHANNEL"):
		return "RECIPIENT"
	case strings.Contains(codeStr, "LOOKUP"):
		return "STORE"
	case strings.Contains(codeStr, "SEND"):
		return "TRANSPORT"
	case strings.Contains(codeStr, "PAYLOAD") || strings.Contains(codeStr, "RENDER"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
