// Package types holds shared contract types for the engine: the LLM
// request/response shapes and the error taxonomy.
package types

import (
	"errors"
	"fmt"
)

// ConfigurationError signals missing or invalid service credentials or
// settings. Fatal: surfaced immediately, never recovered by a fallback.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("configuration error (%s): %s", e.Field, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// NewConfigurationError creates a ConfigurationError for the given field.
func NewConfigurationError(field, message string) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: message}
}

// ServiceCallError wraps a network, auth, or rate-limit failure from the
// generative-text service. Callers with a local fallback recover from it;
// everyone else surfaces it with the cause preserved.
type ServiceCallError struct {
	Operation string
	Err       error
}

func (e *ServiceCallError) Error() string {
	return fmt.Sprintf("service call %q failed: %v", e.Operation, e.Err)
}

func (e *ServiceCallError) Unwrap() error { return e.Err }

// NewServiceCallError wraps err for the named operation.
func NewServiceCallError(operation string, err error) *ServiceCallError {
	return &ServiceCallError{Operation: operation, Err: err}
}

// maxPreviewLen bounds the response excerpt carried by a ParseError.
const maxPreviewLen = 240

// ParseError signals that a service response contained no valid JSON
// after all repair attempts. It carries a truncated preview of the
// offending response to aid diagnosis.
type ParseError struct {
	Preview string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("response is not valid JSON: %v (preview: %q)", e.Err, e.Preview)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NewParseError wraps err with a truncated preview of the raw response.
func NewParseError(raw string, err error) *ParseError {
	preview := raw
	if len(preview) > maxPreviewLen {
		preview = preview[:maxPreviewLen] + "..."
	}
	return &ParseError{Preview: preview, Err: err}
}

// ValidationError records an invariant violation on a generated task,
// e.g. start after due. Violations are repaired deterministically rather
// than rejected, since the generation cost has already been paid; the
// error type exists for reporting, not control flow.
type ValidationError struct {
	TaskTitle string
	Message   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("generated task %q invalid: %s", e.TaskTitle, e.Message)
}

// IsRecoverable reports whether the error may be degraded to a local
// fallback instead of failing the overall generation.
func IsRecoverable(err error) bool {
	var sc *ServiceCallError
	return errors.As(err, &sc)
}
