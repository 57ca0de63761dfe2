// Package errors defines the builder's error taxonomy: validation, not found,
// adapter, invariant, config and internal errors, all carried by BuilderError.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeAdapter    ErrorType = "adapter"
	ErrorTypeInvariant  ErrorType = "invariant"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// Common error codes.
const (
	ErrCodeValidationFailed  = "ERR_VALIDATION_FAILED"
	ErrCodeInvalidSchema     = "ERR_INVALID_SCHEMA"
	ErrCodeUnknownType       = "ERR_UNKNOWN_TYPE"
	ErrCodeComponentNotFound = "ERR_COMPONENT_NOT_FOUND"
	ErrCodeSectionNotFound   = "ERR_SECTION_NOT_FOUND"
	ErrCodeKitNotFound       = "ERR_KIT_NOT_FOUND"
	ErrCodeTemplateNotFound  = "ERR_TEMPLATE_NOT_FOUND"
	ErrCodeInvalidPosition   = "ERR_INVALID_POSITION"
	ErrCodeMinCardinality    = "ERR_MIN_CARDINALITY"
	ErrCodeMaxCardinality    = "ERR_MAX_CARDINALITY"
	ErrCodeDuplicateID       = "ERR_DUPLICATE_ID"
	ErrCodeDuplicateType     = "ERR_DUPLICATE_TYPE"
	ErrCodeRegistrySealed    = "ERR_REGISTRY_SEALED"
	ErrCodeNotReady          = "ERR_NOT_READY"
	ErrCodeDragActive        = "ERR_DRAG_ACTIVE"
	ErrCodeNoDrag            = "ERR_NO_DRAG"
	ErrCodePremiumLocked     = "ERR_PREMIUM_LOCKED"
	ErrCodeSaveInProgress    = "ERR_SAVE_IN_PROGRESS"
	ErrCodeSaveFailed        = "ERR_SAVE_FAILED"
	ErrCodeLoadFailed        = "ERR_LOAD_FAILED"
	ErrCodeExportFailed      = "ERR_EXPORT_FAILED"
	ErrCodeUnsupportedFormat = "ERR_UNSUPPORTED_FORMAT"
	ErrCodeConfigInvalid     = "ERR_CONFIG_INVALID"
	ErrCodeInternalError     = "ERR_INTERNAL"
)

// Issue is one field-level problem inside a validation error.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// BuilderError is a structured error type with context.
type BuilderError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Component   string
	Issues      []Issue
	Recoverable bool
}

// Error implements the error interface.
func (e *BuilderError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}
	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}
	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if len(e.Issues) > 0 {
		msgs := make([]string, len(e.Issues))
		for i, issue := range e.Issues {
			msgs[i] = issue.String()
		}
		result += " (" + strings.Join(msgs, "; ") + ")"
	}

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *BuilderError) Unwrap() error {
	return e.Cause
}

// Is matches on type and code.
func (e *BuilderError) Is(target error) bool {
	var t *BuilderError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *BuilderError) WithContext(key string, value interface{}) *BuilderError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithComponent records the component id or type the error concerns.
func (e *BuilderError) WithComponent(component string) *BuilderError {
	e.Component = component

	return e
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string, issues ...Issue) *BuilderError {
	return &BuilderError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Issues:      issues,
		Recoverable: true,
	}
}

// NewNotFoundError creates a not-found error.
func NewNotFoundError(code, message string) *BuilderError {
	return &BuilderError{
		Type:        ErrorTypeNotFound,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewAdapterError wraps a failure from the persistence/export boundary.
// The user may retry, so it is recoverable.
func NewAdapterError(code, message string, cause error) *BuilderError {
	return &BuilderError{
		Type:        ErrorTypeAdapter,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewInvariantViolation creates an invariant error.
func NewInvariantViolation(code, message string) *BuilderError {
	return &BuilderError{
		Type:        ErrorTypeInvariant,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *BuilderError {
	return &BuilderError{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *BuilderError {
	return &BuilderError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ErrComponentNotFound reports an unknown component id.
func ErrComponentNotFound(id string) *BuilderError {
	return NewNotFoundError(ErrCodeComponentNotFound, "component not found: "+id).WithComponent(id)
}

// ErrSectionNotFound reports an unknown section id.
func ErrSectionNotFound(id string) *BuilderError {
	return NewNotFoundError(ErrCodeSectionNotFound, "section not found: "+id)
}

// ErrUnknownType reports an unregistered component type.
func ErrUnknownType(componentType string) *BuilderError {
	return NewNotFoundError(ErrCodeUnknownType, "component type not registered: "+componentType)
}

// TypeOf returns the ErrorType of err, or "" when err is not a BuilderError.
func TypeOf(err error) ErrorType {
	var be *BuilderError
	if errors.As(err, &be) {
		return be.Type
	}
	return ""
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return TypeOf(err) == ErrorTypeValidation }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return TypeOf(err) == ErrorTypeNotFound }

// IsAdapter reports whether err came from the adapter boundary.
func IsAdapter(err error) bool { return TypeOf(err) == ErrorTypeAdapter }

// IsInvariant reports whether err is an invariant violation.
func IsInvariant(err error) bool { return TypeOf(err) == ErrorTypeInvariant }

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var be *BuilderError
	if errors.As(err, &be) {
		return be.Recoverable
	}

	return false
}

// IssuesOf returns the field issues attached to err, if any.
func IssuesOf(err error) []Issue {
	var be *BuilderError
	if errors.As(err, &be) {
		return be.Issues
	}
	return nil
}

// Is, As, New and Join forward to the standard library so callers that import this
// package under its natural name keep access to them.
func Is(err, target error) bool { return errors.Is(err, target) }
func As(err error, target any) bool { return errors.As(err, target) }
func New(text string) error { return errors.New(text) }
func Join(errs ...error) error { return errors.Join(errs...) }

// ErrorHandler provides centralized error handling.
type ErrorHandler struct {
	logger   Logger
	notifier Notifier
}

// Logger interface for error logging.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// Notifier forwards errors to an outer channel such as the event bus.
type Notifier interface {
	NotifyError(ctx context.Context, err *BuilderError) error
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger, notifier Notifier) *ErrorHandler {
	return &ErrorHandler{
		logger:   logger,
		notifier: notifier,
	}
}

// Handle logs err by severity and notifies. Non-builder errors are wrapped
// as internal errors first.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil {
		return
	}

	var be *BuilderError
	if !errors.As(err, &be) {
		be = NewInternalError(ErrCodeInternalError, "unexpected error", err)
	}

	if h.logger != nil {
		fields := []interface{}{"type", be.Type, "code", be.Code, "component", be.Component}
		switch be.Type {
		case ErrorTypeValidation, ErrorTypeNotFound, ErrorTypeInvariant:
			// Programmer or user input errors: loud, but the state is intact.
			h.logger.Error(ctx, be, "Builder operation rejected", fields...)
		case ErrorTypeAdapter:
			h.logger.Warn(ctx, be, "Adapter operation failed", fields...)
		default:
			h.logger.Error(ctx, be, "Error occurred", fields...)
		}
	}

	if h.notifier != nil {
		_ = h.notifier.NotifyError(ctx, be)
	}
}
