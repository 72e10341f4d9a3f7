// Package errors provides custom error types for the listingmap engine.
// These errors enable programmatic error checking with errors.Is and
// errors.As while keeping the underlying cause available for logging.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is is an alias for the standard library errors.Is.
var Is = errors.Is

// As is an alias for the standard library errors.As.
var As = errors.As

// Common sentinel errors for the listingmap engine
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrPermissionDenied indicates that the user refused a platform permission
	ErrPermissionDenied = errors.New("permission denied")

	// ErrTransport indicates that a remote subscription or fetch failed
	ErrTransport = errors.New("transport failure")

	// ErrAlreadySubscribed indicates that a live query is already held for a screen
	ErrAlreadySubscribed = errors.New("already subscribed")

	// ErrInactive indicates that the owning screen is hidden or torn down
	ErrInactive = errors.New("screen inactive")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// MalformedRecordError reports a snapshot entry that is missing a required
// field or carries a value of the wrong type. It is recovered locally: the
// record is skipped and the rest of the batch is applied.
type MalformedRecordError struct {
	ID     string
	Field  string
	Reason string
}

// Error implements the error interface
func (e *MalformedRecordError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("malformed record %q: field %s %s", e.ID, e.Field, e.Reason)
	}
	return fmt.Sprintf("malformed record %q: %s", e.ID, e.Reason)
}

// Is implements errors.Is support
func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewMalformedRecordError creates a new MalformedRecordError
func NewMalformedRecordError(id, field, reason string) *MalformedRecordError {
	return &MalformedRecordError{ID: id, Field: field, Reason: reason}
}

// PermissionDeniedError represents a refused platform permission.
type PermissionDeniedError struct {
	Permission string
}

// Error implements the error interface
func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("permission %s denied", e.Permission)
}

// Is implements errors.Is support
func (e *PermissionDeniedError) Is(target error) bool {
	return target == ErrPermissionDenied
}

// NewPermissionDeniedError creates a new PermissionDeniedError
func NewPermissionDeniedError(permission string) *PermissionDeniedError {
	return &PermissionDeniedError{Permission: permission}
}

// TransportError represents a failed subscription, fetch or write against
// the listing store.
type TransportError struct {
	Op  string // "subscribe", "fetch", "create"
	Err error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("transport error during %s", e.Op)
	}
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// NewTransportError creates a new TransportError
func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}

// GeocodeError represents a failed forward or reverse lookup that is not a
// plain miss. A miss is reported as a NotFoundError with resource "geocode".
type GeocodeError struct {
	Op    string // "forward" or "reverse"
	Query string
	Err   error
}

// Error implements the error interface
func (e *GeocodeError) Error() string {
	return fmt.Sprintf("geocode %s %q failed: %v", e.Op, e.Query, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *GeocodeError) Unwrap() error {
	return e.Err
}

// NewGeocodeError creates a new GeocodeError
func NewGeocodeError(op, query string, err error) *GeocodeError {
	return &GeocodeError{Op: op, Query: query, Err: err}
}

// NewGeocodeNotFound reports that a lookup resolved to nothing.
func NewGeocodeNotFound(query string) *NotFoundError {
	return NewNotFoundError("geocode", query)
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml"
	File    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsMalformed checks if an error is a malformed snapshot record
func IsMalformed(err error) bool {
	var m *MalformedRecordError
	return errors.As(err, &m)
}

// IsPermissionDenied checks if an error is a refused permission
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// IsTransport checks if an error came from the listing store transport
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsGeocodeError checks if an error is a failed (not missed) geocode lookup
func IsGeocodeError(err error) bool {
	var g *GeocodeError
	return errors.As(err, &g)
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsCanceled checks if an error is a cancellation error
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapTransport wraps an error as a TransportError
func WrapTransport(op string, err error) error {
	if err == nil {
		return nil
	}
	return NewTransportError(op, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}
