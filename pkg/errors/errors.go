// Package errors provides custom error types for the sourcekit system.
// These errors enable programmatic error checking across the merge engine,
// providers, and entity validation, and carry enough context for the
// per-configuration isolation policy to decide what is fatal.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for the sourcekit system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateLimited indicates that an API rate limit has been exceeded
	ErrRateLimited = errors.New("rate limited")

	// ErrProviderUnavailable indicates that an upstream provider is temporarily unavailable
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrUnsupported indicates a provider kind or feature that sourcekit does not support
	ErrUnsupported = errors.New("unsupported")

	// ErrNoQualifyingRelease indicates that a release feed had no release matching the selection policy
	ErrNoQualifyingRelease = errors.New("no qualifying release")

	// ErrNoQualifyingAsset indicates that a release had no asset matching the configured pattern
	ErrNoQualifyingAsset = errors.New("no qualifying asset")
)

// ValidationError represents an entity that failed its required-field check.
// Validation failures are warned, not fatal: the entity is still used.
type ValidationError struct {
	Entity      string
	ID          string
	MissingKeys []string
	Message     string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if len(e.MissingKeys) > 0 {
		return fmt.Sprintf("invalid %s %q: missing required keys %v", e.Entity, e.ID, e.MissingKeys)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Entity, e.ID, e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(entity, id string, missing []string) *ValidationError {
	return &ValidationError{Entity: entity, ID: id, MissingKeys: missing}
}

// ConfigError represents a provider configuration error. Most configuration
// errors are fatal to their configuration entry only; an unsupported provider
// kind (wrapping ErrUnsupported) is fatal to the whole run.
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
	return &ConfigError{Component: component, Message: message, Err: err}
}

// ProviderError represents a failure acquiring data from an upstream
// provider: network failure, API rate limit, repository or feed not found,
// zero qualifying releases or assets. Caught per configuration entry.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ProviderError) Is(target error) bool {
	if e.StatusCode == 429 {
		return target == ErrRateLimited
	}
	if e.StatusCode >= 500 {
		return target == ErrProviderUnavailable
	}
	if e.StatusCode == 404 {
		return target == ErrNotFound
	}
	return false
}

// NewProviderError creates a new ProviderError
func NewProviderError(provider string, statusCode int, message string) *ProviderError {
	return &ProviderError{Provider: provider, StatusCode: statusCode, Message: message}
}

// VersionParseError represents a malformed version string. The comparator
// never suppresses these; callers catch them at the configuration boundary.
type VersionParseError struct {
	Value string
	Err   error
}

// Error implements the error interface
func (e *VersionParseError) Error() string {
	return fmt.Sprintf("malformed version %q: %v", e.Value, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *VersionParseError) Unwrap() error {
	return e.Err
}

// NewVersionParseError creates a new VersionParseError
func NewVersionParseError(value string, err error) *VersionParseError {
	return &VersionParseError{Value: value, Err: err}
}

// EnrichmentError represents a failed hash or permission backfill for a
// Version. Logged as a warning; the derived field is left unset for retry.
type EnrichmentError struct {
	App     string
	Version string
	Err     error
}

// Error implements the error interface
func (e *EnrichmentError) Error() string {
	return fmt.Sprintf("enrichment failed for %s (%s): %v", e.App, e.Version, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *EnrichmentError) Unwrap() error {
	return e.Err
}

// IOError represents a file system operation error
type IOError struct {
	Operation string
	Path      string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Operation, e.Path, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml", "plist", etc.
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

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRateLimited checks if an error is a rate limit error
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsUnsupported checks if an error indicates an unsupported provider kind.
// Unsupported-kind errors abort the whole update run.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupported)
}

// IsVersionParse checks if an error is a version parse error
func IsVersionParse(err error) bool {
	var vpe *VersionParseError
	return errors.As(err, &vpe)
}

// Is reports whether any error in err's tree matches target.
// It's an alias for the standard library errors.Is for convenience.
var Is = errors.Is

// As finds the first error in err's tree that matches target.
// It's an alias for the standard library errors.As for convenience.
var As = errors.As

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Operation: operation, Path: path, Err: err}
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return &ParseError{Format: format, File: file, Message: err.Error(), Err: err}
}

// WrapProvider wraps an error as a ProviderError
func WrapProvider(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Message: err.Error(), Err: err}
}

// Truncate shortens an error's detail for logging. The merge engine logs
// parse failures with truncated detail so one malformed document cannot
// flood the run output.
func Truncate(err error, limit int) string {
	if err == nil {
		return ""
	}
	s := err.Error()
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
