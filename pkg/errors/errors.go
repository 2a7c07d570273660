// Package errors provides the structured error type shared by WizardKit packages.
//
// ContextualError records which component failed, during which operation, and
// optionally the status code and details reported by a remote draft backend.
// It implements Unwrap so sentinel errors such as drafts.ErrNotFound stay
// reachable through errors.Is.
//
// Usage:
//
//	err := errors.New(errors.ComponentDrafts, "SaveDraft", cause)
//	err = err.WithStatusCode(503).WithDetails(map[string]any{"draft_id": id})
package errors

import (
	stderrors "errors"
	"fmt"
)

// Component names used across the module.
const (
	ComponentWizard = "wizard"
	ComponentDrafts = "drafts"
	ComponentServer = "draftapi"
	ComponentConfig = "config"
)

// ContextualError is a structured error carrying the component and operation
// that produced it.
type ContextualError struct {
	// Component identifies the package that produced the error (e.g. "wizard", "drafts").
	Component string

	// Operation describes what was being done when the error occurred.
	Operation string

	// StatusCode is an optional HTTP status code reported by a remote backend.
	StatusCode int

	// Details holds optional structured metadata about the error.
	Details map[string]any

	// Cause is the underlying error, if any.
	Cause error
}

// New creates a ContextualError with the given component, operation, and cause.
func New(component, operation string, cause error) *ContextualError {
	return &ContextualError{
		Component: component,
		Operation: operation,
		Cause:     cause,
	}
}

// Wrap is like New but returns nil when cause is nil, so it can wrap the
// result of a call unconditionally.
func Wrap(component, operation string, cause error) error {
	if cause == nil {
		return nil
	}
	return New(component, operation, cause)
}

// Error returns a human-readable representation of the error.
func (e *ContextualError) Error() string {
	base := fmt.Sprintf("[%s] %s", e.Component, e.Operation)

	if e.StatusCode != 0 {
		base += fmt.Sprintf(" (status %d)", e.StatusCode)
	}

	if e.Cause != nil {
		base += ": " + e.Cause.Error()
	}

	return base
}

// Unwrap returns the underlying cause, enabling use with errors.Is and errors.As.
func (e *ContextualError) Unwrap() error {
	return e.Cause
}

// WithStatusCode sets the status code and returns the same error for chaining.
func (e *ContextualError) WithStatusCode(code int) *ContextualError {
	e.StatusCode = code
	return e
}

// WithDetails sets the details map and returns the same error for chaining.
func (e *ContextualError) WithDetails(details map[string]any) *ContextualError {
	e.Details = details
	return e
}

// StatusCode returns the first non-zero status code found in err's chain,
// or 0 when none is set.
func StatusCode(err error) int {
	for err != nil {
		var ce *ContextualError
		if !stderrors.As(err, &ce) {
			return 0
		}
		if ce.StatusCode != 0 {
			return ce.StatusCode
		}
		err = ce.Cause
	}
	return 0
}
