package logger

import (
	"context"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

// Context keys for common logging fields. Values stored under these keys are
// added to every record logged with the context.
const (
	// ContextKeyWizardID identifies the wizard configuration (e.g. "property-listing").
	ContextKeyWizardID contextKey = "wizard_id"

	// ContextKeyDraftID identifies the persisted draft.
	ContextKeyDraftID contextKey = "draft_id"

	// ContextKeyStepID identifies the active wizard step.
	ContextKeyStepID contextKey = "step_id"

	// ContextKeySessionID identifies the user session driving the wizard.
	ContextKeySessionID contextKey = "session_id"

	// ContextKeyRequestID identifies an individual draft API request.
	ContextKeyRequestID contextKey = "request_id"
)

var allContextKeys = []contextKey{
	ContextKeyWizardID,
	ContextKeyDraftID,
	ContextKeyStepID,
	ContextKeySessionID,
	ContextKeyRequestID,
}

// WithWizardID returns a new context with the wizard ID set.
func WithWizardID(ctx context.Context, wizardID string) context.Context {
	return context.WithValue(ctx, ContextKeyWizardID, wizardID)
}

// WithDraftID returns a new context with the draft ID set.
func WithDraftID(ctx context.Context, draftID string) context.Context {
	return context.WithValue(ctx, ContextKeyDraftID, draftID)
}

// WithStepID returns a new context with the step ID set.
func WithStepID(ctx context.Context, stepID string) context.Context {
	return context.WithValue(ctx, ContextKeyStepID, stepID)
}

// WithSessionID returns a new context with the session ID set.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, ContextKeySessionID, sessionID)
}

// WithRequestID returns a new context with the request ID set.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// LoggingFields holds all standard logging context fields.
type LoggingFields struct {
	WizardID  string
	DraftID   string
	StepID    string
	SessionID string
	RequestID string
}

// WithLoggingContext sets every non-empty field of fields on ctx.
func WithLoggingContext(ctx context.Context, fields *LoggingFields) context.Context {
	if fields == nil {
		return ctx
	}
	if fields.WizardID != "" {
		ctx = WithWizardID(ctx, fields.WizardID)
	}
	if fields.DraftID != "" {
		ctx = WithDraftID(ctx, fields.DraftID)
	}
	if fields.StepID != "" {
		ctx = WithStepID(ctx, fields.StepID)
	}
	if fields.SessionID != "" {
		ctx = WithSessionID(ctx, fields.SessionID)
	}
	if fields.RequestID != "" {
		ctx = WithRequestID(ctx, fields.RequestID)
	}
	return ctx
}

// ExtractLoggingFields extracts all logging fields from a context.
func ExtractLoggingFields(ctx context.Context) LoggingFields {
	get := func(k contextKey) string {
		s, _ := ctx.Value(k).(string)
		return s
	}
	return LoggingFields{
		WizardID:  get(ContextKeyWizardID),
		DraftID:   get(ContextKeyDraftID),
		StepID:    get(ContextKeyStepID),
		SessionID: get(ContextKeySessionID),
		RequestID: get(ContextKeyRequestID),
	}
}
