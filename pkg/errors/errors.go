package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents a unique error code for categorizing errors
type ErrorCode string

const (
	// Connection errors (1xxx)
	ErrCodeConnectionFailed     ErrorCode = "CETL1001"
	ErrCodeConnectionTimeout    ErrorCode = "CETL1002"
	ErrCodeAuthenticationFailed ErrorCode = "CETL1003"

	// Configuration errors (2xxx)
	ErrCodeConfigInvalid ErrorCode = "CETL2001"
	ErrCodeConfigMissing ErrorCode = "CETL2002"

	// SQL execution errors (3xxx)
	ErrCodeSQLExecution ErrorCode = "CETL3001"
	ErrCodeSQLTimeout   ErrorCode = "CETL3002"
	ErrCodeSQLPermission ErrorCode = "CETL3003"
	ErrCodeNoResults    ErrorCode = "CETL3004"

	// Dispatch errors (4xxx)
	ErrCodeUnknownJobType        ErrorCode = "CETL4001"
	ErrCodeUnknownTransformation ErrorCode = "CETL4002"

	// Credential errors (5xxx)
	ErrCodeCredentialNotFound ErrorCode = "CETL5001"
	ErrCodeEncryptionFailed   ErrorCode = "CETL5002"

	// System errors (9xxx)
	ErrCodeInternal           ErrorCode = "CETL9001"
	ErrCodeTimeout            ErrorCode = "CETL9002"
	ErrCodeServiceUnavailable ErrorCode = "CETL9003"
	ErrCodeResourceExhausted  ErrorCode = "CETL9004"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "CRITICAL"
	SeverityError    ErrorSeverity = "ERROR"
	SeverityWarning  ErrorSeverity = "WARNING"
)

// AppError represents a structured application error with context
type AppError struct {
	Code        ErrorCode
	Message     string
	Severity    ErrorSeverity
	Context     map[string]interface{}
	Cause       error
	Timestamp   time.Time
	Recoverable bool
}

// Error implements the error interface
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s: %s", e.Code, e.Severity, e.Message))
	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}
	return b.String()
}

// Unwrap returns the cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison by code
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Severity:  SeverityError,
		Context:   make(map[string]interface{}),
		Timestamp: time.Now(),
	}
}

// Wrap wraps an existing error with AppError
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	appErr := New(code, message)
	appErr.Cause = err

	if ae, ok := err.(*AppError); ok {
		for k, v := range ae.Context {
			appErr.Context[k] = v
		}
	}

	return appErr
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSeverity sets the error severity
func (e *AppError) WithSeverity(severity ErrorSeverity) *AppError {
	e.Severity = severity
	return e
}

// AsRecoverable marks the error as recoverable
func (e *AppError) AsRecoverable() *AppError {
	e.Recoverable = true
	return e
}

// Common error constructors

// ConnectionError creates a warehouse-connection error
func ConnectionError(message string, cause error) *AppError {
	return Wrap(cause, ErrCodeConnectionFailed, message).AsRecoverable()
}

// ConfigError creates a configuration error for a named field
func ConfigError(message string, field string) *AppError {
	return New(ErrCodeConfigInvalid, message).
		WithContext("field", field)
}

// SQLError creates an SQL execution error. The query is truncated to keep
// error payloads bounded.
func SQLError(message string, query string, cause error) *AppError {
	err := Wrap(cause, ErrCodeSQLExecution, message).
		WithContext("query", truncateString(query, 200))

	if cause != nil {
		cstr := cause.Error()
		if strings.Contains(cstr, "timeout") || strings.Contains(cstr, "deadline") {
			err.Code = ErrCodeSQLTimeout
			err.Recoverable = true
		} else if strings.Contains(cstr, "permission") || strings.Contains(cstr, "access denied") {
			err.Code = ErrCodeSQLPermission
		}
	}

	return err
}

// UnknownJobError reports an unrecognized job-type token
func UnknownJobError(jobType string) *AppError {
	return New(ErrCodeUnknownJobType, fmt.Sprintf("Unknown job type: %s", jobType)).
		WithContext("job_type", jobType).
		WithSeverity(SeverityWarning)
}

// UnknownTransformationError reports an unrecognized transformation name
func UnknownTransformationError(name string) *AppError {
	return New(ErrCodeUnknownTransformation, fmt.Sprintf("Unknown transformation: %s", name)).
		WithContext("transformation", name).
		WithSeverity(SeverityWarning)
}

// IsRecoverable checks if an error is recoverable
func IsRecoverable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Recoverable
	}
	return false
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
