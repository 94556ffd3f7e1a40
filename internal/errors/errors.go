/*
 * Fluxo - Error Handling
 * Copyright (c) 2025 Fluxo Platform
 * All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
)

// ErrorType categorizes failures so callers can route them: admin-fixable
// configuration problems, transient remote failures, and user-side
// remediation each surface differently.
type ErrorType string

const (
	ErrTypeNotConfigured ErrorType = "not_configured"    // required plugin settings absent
	ErrTypeUnreachable   ErrorType = "unreachable_remote" // network/timeout/non-2xx from the remote system
	ErrTypeInvalidConfig ErrorType = "invalid_config"     // missing or malformed per-product config
	ErrTypeUnmappedUser  ErrorType = "unmapped_user"      // user has no identity on the remote system
	ErrTypeUnknownPlugin ErrorType = "unknown_plugin"     // configured plugin id resolves to nothing
	ErrTypeValidation    ErrorType = "validation"
	ErrTypeNotFound      ErrorType = "not_found"
	ErrTypeStore         ErrorType = "store"
	ErrTypeConflict      ErrorType = "conflict"
	ErrTypeInternal      ErrorType = "internal"
)

// Error is the platform error with type and operation context
type Error struct {
	Type      ErrorType              `json:"type"`
	Message   string                 `json:"message"`
	Operation string                 `json:"operation"`
	Cause     error                  `json:"-"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (caused by: %v)", e.Type, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Operation, e.Message)
}

// Unwrap returns the underlying cause for error wrapping
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new typed error
func New(errType ErrorType, operation, message string) *Error {
	return &Error{
		Type:      errType,
		Message:   message,
		Operation: operation,
	}
}

// Newf creates a new typed error with a formatted message
func Newf(errType ErrorType, operation, format string, args ...interface{}) *Error {
	return New(errType, operation, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with type and operation context
func Wrap(err error, errType ErrorType, operation, message string) *Error {
	return &Error{
		Type:      errType,
		Message:   message,
		Operation: operation,
		Cause:     err,
	}
}

// WithContext adds context information to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewNotConfiguredError reports absent required plugin settings
func NewNotConfiguredError(operation, message string) *Error {
	return New(ErrTypeNotConfigured, operation, message)
}

// NewUnreachableError reports a failed call to a remote system
func NewUnreachableError(operation, message string) *Error {
	return New(ErrTypeUnreachable, operation, message)
}

// WrapUnreachableError wraps a transport failure from a remote system
func WrapUnreachableError(err error, operation, message string) *Error {
	return Wrap(err, ErrTypeUnreachable, operation, message)
}

// NewInvalidConfigError reports missing or malformed per-product config
func NewInvalidConfigError(operation, message string) *Error {
	return New(ErrTypeInvalidConfig, operation, message)
}

// NewUnmappedUserError reports a user with no remote-system identity
func NewUnmappedUserError(operation, message string) *Error {
	return New(ErrTypeUnmappedUser, operation, message)
}

// NewUnknownPluginError reports a plugin id that resolves to nothing
func NewUnknownPluginError(operation, pluginID string) *Error {
	return New(ErrTypeUnknownPlugin, operation,
		fmt.Sprintf("plugin %q is not installed", pluginID)).WithContext("plugin_id", pluginID)
}

// NewValidationError reports invalid caller input
func NewValidationError(operation, message string) *Error {
	return New(ErrTypeValidation, operation, message)
}

// NewNotFoundError reports a missing record
func NewNotFoundError(operation, message string) *Error {
	return New(ErrTypeNotFound, operation, message)
}

// NewConflictError reports a state conflict such as a duplicate attempt
func NewConflictError(operation, message string) *Error {
	return New(ErrTypeConflict, operation, message)
}

// WrapStoreError wraps a datastore failure
func WrapStoreError(err error, operation, message string) *Error {
	return Wrap(err, ErrTypeStore, operation, message)
}

// NewInternalError reports an unexpected internal failure
func NewInternalError(operation, message string) *Error {
	return New(ErrTypeInternal, operation, message)
}

// IsType checks if an error (anywhere in its chain) is of a specific type
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == errType
	}
	return false
}

// GetType returns the error type, defaulting to ErrTypeInternal for
// untyped errors
func GetType(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrTypeInternal
}

// GetContext returns the error context when present
func GetContext(err error) map[string]interface{} {
	var e *Error
	if errors.As(err, &e) {
		return e.Context
	}
	return nil
}
