// Package apperror defines the coded error type returned by every provider
// operation and carried through decorators unchanged.
package apperror

import (
	"errors"
	"fmt"
	"time"
)

// Severity classifies how serious a failure is for the caller
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Stable error codes
const (
	CodeRealProviderNotConfigured = "SYNC_REAL_PROVIDER_NOT_CONFIGURED"
	CodeFakeDataNotFound          = "SYNC_FAKE_DATA_NOT_FOUND"
	CodeFakeDataLoadFailed        = "SYNC_FAKE_DATA_LOAD_FAILED"
	CodeModeInvalid               = "SYNC_MODE_INVALID"
	CodeModeUnavailable           = "SYNC_MODE_UNAVAILABLE"
	CodeModeBlocked               = "SYNC_MODE_BLOCKED"
	CodeProbeInvalidInput         = "SYNC_PROBE_INVALID_INPUT"
	CodeRateLimitExceeded         = "SYNC_RATE_LIMIT_EXCEEDED"
	CodeRecordSaveFailed          = "SYNC_RECORD_SAVE_FAILED"
	CodeRecordPathUnwritable      = "SYNC_RECORD_PATH_UNWRITABLE"
	CodeYouTubeNotFound           = "SYNC_YOUTUBE_NOT_FOUND"
	CodeYouTubeUnauthorized       = "SYNC_YOUTUBE_UNAUTHORIZED"
	CodeYouTubeQuotaExceeded      = "SYNC_YOUTUBE_QUOTA_EXCEEDED"
	CodeYouTubeRequestFailed      = "SYNC_YOUTUBE_REQUEST_FAILED"
	CodePipelineStoreFailed       = "SYNC_PIPELINE_STORE_FAILED"
	CodeValidationFailed          = "SYNC_VALIDATION_FAILED"
	CodeConfigInvalid             = "CONFIG_INVALID"
	CodeUnknown                   = "SYNC_UNKNOWN_ERROR"
)

// Error is a failure with a stable code, a human message, a severity and
// free-form context
type Error struct {
	Code      string
	Message   string
	Severity  Severity
	Context   map[string]any
	Timestamp time.Time
	Cause     error
}

// New creates an Error stamped with the current time
func New(code, message string, severity Severity, context map[string]any) *Error {
	if context == nil {
		context = map[string]any{}
	}
	return &Error{
		Code:      code,
		Message:   message,
		Severity:  severity,
		Context:   context,
		Timestamp: time.Now().UTC(),
	}
}

// Wrap creates an Error that keeps cause for errors.Is / errors.As
func Wrap(cause error, code, message string, severity Severity, context map[string]any) *Error {
	e := New(code, message, severity, context)
	e.Cause = cause
	return e
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// As returns the first *Error in err's chain
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the first *Error in err's chain, "" for nil and
// CodeUnknown for foreign errors
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return CodeUnknown
}

// IsCode reports whether err carries the given code
func IsCode(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}

// DTO is the serialisable form of an Error
type DTO struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Severity  Severity       `json:"severity"`
	Context   map[string]any `json:"context"`
	Timestamp string         `json:"timestamp"`
	Cause     string         `json:"cause,omitempty"`
}

// DTO converts the error for transport
func (e *Error) DTO() DTO {
	dto := DTO{
		Code:      e.Code,
		Message:   e.Message,
		Severity:  e.Severity,
		Context:   e.Context,
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	if e.Cause != nil {
		dto.Cause = e.Cause.Error()
	}
	return dto
}

// From converts any error into an *Error, wrapping foreign errors as
// CodeUnknown
func From(err error) *Error {
	if err == nil {
		return nil
	}
	if appErr, ok := As(err); ok {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unexpected error", SeverityError, nil)
}
