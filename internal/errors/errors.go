package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrTypeMalformedSchema ErrorType = "malformed_schema"
	ErrTypeUnsupportedType ErrorType = "unsupported_type"
	ErrTypeEncoding        ErrorType = "encoding"
	ErrTypeFileSystem      ErrorType = "filesystem"
	ErrTypeAccessDenied    ErrorType = "access_denied"
	ErrTypeStorageCreate   ErrorType = "storage_create"
	ErrTypeStorageUpload   ErrorType = "storage_upload"
	ErrTypeStorageDelete   ErrorType = "storage_delete"
	ErrTypeStorageJoin     ErrorType = "storage_join"
	ErrTypeStorageList     ErrorType = "storage_list"
	ErrTypeConfig          ErrorType = "config"
	ErrTypeInternal        ErrorType = "internal"
)

// accessDeniedMarker is the signal backends put in their error text when a
// request is rejected for lack of permissions.
const accessDeniedMarker = "AccessDenied"

// Error represents a structured error with type and optional suggestions
type Error struct {
	Type        ErrorType
	Message     string
	Cause       error
	Suggestions []string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithSuggestion adds a suggestion for resolving the error
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// New creates a new structured error
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// Newf creates a new structured error with formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with formatted message
func Wrapf(err error, errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	var structErr *Error
	if errors.As(err, &structErr) {
		return structErr.Type == errType
	}

	return false
}

// GetType returns the error type if it's a structured error
func GetType(err error) ErrorType {
	var structErr *Error
	if errors.As(err, &structErr) {
		return structErr.Type
	}

	return ErrTypeInternal
}

// IsSchemaError reports whether err came out of schema parsing.
func IsSchemaError(err error) bool {
	return IsType(err, ErrTypeMalformedSchema) || IsType(err, ErrTypeUnsupportedType)
}

// IsStorageError reports whether err is any of the object storage failures,
// access denied included.
func IsStorageError(err error) bool {
	switch GetType(err) {
	case ErrTypeStorageCreate, ErrTypeStorageUpload, ErrTypeStorageDelete,
		ErrTypeStorageJoin, ErrTypeStorageList, ErrTypeAccessDenied:
		return true
	}

	return false
}

// IsAccessDenied inspects the backend error text for the access denied signal.
func IsAccessDenied(err error) bool {
	if err == nil {
		return false
	}

	return strings.Contains(err.Error(), accessDeniedMarker)
}

// ClassifyStorage wraps a backend error as AccessDenied when the backend said
// so, and as the fallback storage type otherwise. Timeouts stay storage errors.
func ClassifyStorage(err error, fallback ErrorType, message string) *Error {
	if IsAccessDenied(err) {
		return Wrap(err, ErrTypeAccessDenied, message).
			WithSuggestion("Check the IAM policy attached to the configured credentials")
	}

	wrapped := Wrap(err, fallback, message)
	if errors.Is(err, context.DeadlineExceeded) {
		wrapped.WithSuggestion("Increase probe.call_timeout or check network connectivity")
	}

	return wrapped
}

// NewConfigError creates a configuration error with suggestions
func NewConfigError(message, field string) *Error {
	err := New(ErrTypeConfig, message)
	if field != "" {
		err.Message = fmt.Sprintf("%s (field: %s)", message, field)
	}

	return err.
		WithSuggestion("Check your configuration file syntax").
		WithSuggestion("Run with --help to see valid configuration options")
}
