// Package errors provides custom error types for the oztfix system.
// These errors enable programmatic error checking by the batch driver
// (which decides whether a failure halts the batch) and carry enough
// context to produce a useful operator diagnostic.
package errors

import (
	"errors"
	"fmt"
)

// Aliases for the standard library helpers so callers need a single errors import.
var (
	New  = errors.New
	Is   = errors.Is
	As   = errors.As
	Join = errors.Join
)

// Common sentinel errors for the oztfix system
var (
	// ErrNotFound indicates that a document has no record in the metadata
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrSourceLoad indicates that a metadata source table could not be loaded
	ErrSourceLoad = errors.New("metadata source load failed")

	// ErrTitleMismatch indicates that the confirmed embedded title count differs from the expected count
	ErrTitleMismatch = errors.New("embedded title count mismatch")

	// ErrInvariant indicates a malformed document tree
	ErrInvariant = errors.New("invariant violated")
)

// DocumentNotFoundError is raised when a document identifier, with or
// without the edition suffix, has no record in the primary metadata table.
type DocumentNotFoundError struct {
	DocumentID string
	Tried      []string
}

// Error implements the error interface
func (e *DocumentNotFoundError) Error() string {
	if len(e.Tried) > 0 {
		return fmt.Sprintf("document %s not found in metadata (tried %v)", e.DocumentID, e.Tried)
	}
	return fmt.Sprintf("document %s not found in metadata", e.DocumentID)
}

// Is implements errors.Is support
func (e *DocumentNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewDocumentNotFoundError creates a new DocumentNotFoundError
func NewDocumentNotFoundError(documentID string, tried ...string) *DocumentNotFoundError {
	return &DocumentNotFoundError{DocumentID: documentID, Tried: tried}
}

// EmbeddedTitleMismatchError is raised when the number of confirmed embedded
// titles in a document differs from the number of records the metadata expects.
type EmbeddedTitleMismatchError struct {
	DocumentID string
	Confirmed  int
	Expected   int
	Unmatched  int
}

// Error implements the error interface
func (e *EmbeddedTitleMismatchError) Error() string {
	return fmt.Sprintf("found %d embedded titles for %s, expected %d (+ %d unmatched)",
		e.Confirmed, e.DocumentID, e.Expected, e.Unmatched)
}

// Is implements errors.Is support
func (e *EmbeddedTitleMismatchError) Is(target error) bool {
	return target == ErrTitleMismatch
}

// NewEmbeddedTitleMismatchError creates a new EmbeddedTitleMismatchError
func NewEmbeddedTitleMismatchError(documentID string, confirmed, expected, unmatched int) *EmbeddedTitleMismatchError {
	return &EmbeddedTitleMismatchError{
		DocumentID: documentID,
		Confirmed:  confirmed,
		Expected:   expected,
		Unmatched:  unmatched,
	}
}

// SourceLoadError represents a metadata table that is missing, unreadable
// or lacks a required column. It is fatal for the whole batch.
type SourceLoadError struct {
	Source string // Logical source name ("titles", "curated", "dependent-titles")
	Path   string
	Line   int
	Column string // Missing column, if that is the cause
	Err    error
}

// Error implements the error interface
func (e *SourceLoadError) Error() string {
	switch {
	case e.Column != "":
		return fmt.Sprintf("failed to load %s metadata from %s: missing column %q", e.Source, e.Path, e.Column)
	case e.Line > 0:
		return fmt.Sprintf("failed to load %s metadata from %s at line %d: %v", e.Source, e.Path, e.Line, e.Err)
	default:
		return fmt.Sprintf("failed to load %s metadata from %s: %v", e.Source, e.Path, e.Err)
	}
}

// Unwrap implements errors.Unwrap
func (e *SourceLoadError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *SourceLoadError) Is(target error) bool {
	return target == ErrSourceLoad
}

// NewSourceLoadError creates a new SourceLoadError
func NewSourceLoadError(source, path string, err error) *SourceLoadError {
	return &SourceLoadError{Source: source, Path: path, Err: err}
}

// InvariantError reports a document tree that breaks an assumption the
// identifier reassignment relies on, such as an ancestor chain without any identifier.
type InvariantError struct {
	Element string
	Message string
}

// Error implements the error interface
func (e *InvariantError) Error() string {
	if e.Element != "" {
		return fmt.Sprintf("invariant violated at %s: %s", e.Element, e.Message)
	}
	return fmt.Sprintf("invariant violated: %s", e.Message)
}

// Is implements errors.Is support
func (e *InvariantError) Is(target error) bool {
	return target == ErrInvariant
}

// NewInvariantError creates a new InvariantError
func NewInvariantError(element, message string) *InvariantError {
	return &InvariantError{Element: element, Message: message}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   interface{}
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
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
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
	Format  string // "xml", "csv", "tsv", "yaml"
	File    string
	Line    int
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("parse error in %s at %s:%d: %s", e.Format, e.File, e.Line, e.Message)
	}
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

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "open", "close"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
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

// IsSourceLoad checks if an error is a metadata source load error
func IsSourceLoad(err error) bool {
	return errors.Is(err, ErrSourceLoad)
}

// IsTitleMismatch checks if an error is an embedded title count mismatch
func IsTitleMismatch(err error) bool {
	return errors.Is(err, ErrTitleMismatch)
}

// IsInvariant checks if an error is an invariant violation
func IsInvariant(err error) bool {
	return errors.Is(err, ErrInvariant)
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapSourceLoad wraps an error as a SourceLoadError
func WrapSourceLoad(source, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewSourceLoadError(source, path, err)
}
