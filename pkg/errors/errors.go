package errors

import (
	"errors"
	"fmt"
	"sort"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Domain errors
	ErrorTypeValidation ErrorType = "VALIDATION"
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"

	// Application errors
	ErrorTypeInternal    ErrorType = "INTERNAL"
	ErrorTypeUnavailable ErrorType = "UNAVAILABLE"

	// Infrastructure errors
	ErrorTypeNetwork         ErrorType = "NETWORK"
	ErrorTypePartialCreation ErrorType = "PARTIAL_CREATION"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType              `json:"type"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails adds error details
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithCause wraps an underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// Constructor functions for common error types

// NewValidationError creates a validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
	}
}

// NewUnavailableError creates a service unavailable error
func NewUnavailableError(service string) *AppError {
	return &AppError{
		Type:    ErrorTypeUnavailable,
		Message: fmt.Sprintf("service '%s' is unavailable", service),
	}
}

// NewNetworkError creates a network error for a failed flow against the
// remote graph API
func NewNetworkError(flow string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeNetwork,
		Message: fmt.Sprintf("%s request failed", flow),
		Cause:   err,
	}
}

// PartialCreationError reports an entity that was created on the backend
// while one or more of its relationship-creation calls failed. The created
// node is not rolled back; callers may retry the failed targets individually.
type PartialCreationError struct {
	NodeID  string
	Name    string
	Failed  map[string]error // target node id -> cause
	Created []string         // target node ids that succeeded
}

// Error implements the error interface
func (e *PartialCreationError) Error() string {
	return fmt.Sprintf("%s: created '%s' (%s) but %d of %d relationship(s) failed: %v",
		ErrorTypePartialCreation, e.Name, e.NodeID, len(e.Failed), len(e.Failed)+len(e.Created), e.FailedTargets())
}

// FailedTargets returns the target ids whose relationship creation failed,
// in a stable order
func (e *PartialCreationError) FailedTargets() []string {
	targets := make([]string, 0, len(e.Failed))
	for id := range e.Failed {
		targets = append(targets, id)
	}
	sort.Strings(targets)
	return targets
}

// Helper functions

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from an error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == errType
}

// IsNetwork checks if an error is a network error
func IsNetwork(err error) bool {
	return IsType(err, ErrorTypeNetwork)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return IsType(err, ErrorTypeValidation)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// IsPartialCreation checks if an error reports a partial entity creation
func IsPartialCreation(err error) bool {
	var pce *PartialCreationError
	return errors.As(err, &pce)
}

// GetPartialCreation extracts a PartialCreationError from an error chain
func GetPartialCreation(err error) *PartialCreationError {
	var pce *PartialCreationError
	if errors.As(err, &pce) {
		return pce
	}
	return nil
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	// If it's already an AppError, add context to message
	if appErr := GetAppError(err); appErr != nil {
		appErr.Message = fmt.Sprintf("%s: %s", message, appErr.Message)
		return appErr
	}

	// Otherwise create a new internal error
	return NewInternalError(message).WithCause(err)
}

// Wrapf wraps an error with formatted message
func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}
