package events

import (
	"time"
)

// EventType identifies the kind of analytics event.
type EventType string

const (
	// EventWizardStarted marks construction of a wizard machine.
	EventWizardStarted EventType = "wizard.started"
	// EventWizardCompleted marks a successful completion callback.
	EventWizardCompleted EventType = "wizard.completed"
	// EventWizardClosed marks disposal of a machine, completed or not.
	EventWizardClosed EventType = "wizard.closed"

	// EventStepStarted marks arrival on a step.
	EventStepStarted EventType = "step.started"
	// EventStepCompleted marks leaving a step forward after it passed validation.
	EventStepCompleted EventType = "step.completed"
	// EventStepFailed marks a rejected forward navigation.
	EventStepFailed EventType = "step.failed"

	// EventValidationFailed carries the field errors of a failed validation.
	EventValidationFailed EventType = "validation.failed"
	// EventNavigationAttempted marks any navigation request, allowed or not.
	EventNavigationAttempted EventType = "navigation.attempted"

	// EventFieldFocused marks the start of editing a field.
	EventFieldFocused EventType = "field.focused"
	// EventFieldChanged marks a committed field value change.
	EventFieldChanged EventType = "field.changed"
	// EventFieldBlurred marks the end of editing a field, with time spent.
	EventFieldBlurred EventType = "field.blurred"

	// EventDraftSaved marks a successful draft save.
	EventDraftSaved EventType = "draft.saved"
	// EventDraftSaveFailed marks a failed draft save.
	EventDraftSaveFailed EventType = "draft.save_failed"
	// EventDraftLoaded marks a successful draft load.
	EventDraftLoaded EventType = "draft.loaded"
	// EventDraftDeleted marks a draft deletion.
	EventDraftDeleted EventType = "draft.deleted"

	// EventAIGenerationRequested marks a request to an AI assistant.
	EventAIGenerationRequested EventType = "ai.generation.requested"
	// EventAIGenerationSucceeded marks a successful AI generation.
	EventAIGenerationSucceeded EventType = "ai.generation.succeeded"
	// EventAIGenerationFailed marks a failed AI generation.
	EventAIGenerationFailed EventType = "ai.generation.failed"

	// EventUploadStarted marks the start of a file upload.
	EventUploadStarted EventType = "upload.started"
	// EventUploadProgress reports upload progress.
	EventUploadProgress EventType = "upload.progress"
	// EventUploadSucceeded marks a finished upload.
	EventUploadSucceeded EventType = "upload.succeeded"
	// EventUploadFailed marks a failed upload.
	EventUploadFailed EventType = "upload.failed"

	// EventPerformanceMetric carries a named measurement.
	EventPerformanceMetric EventType = "performance.metric"
	// EventError carries an error that did not interrupt the caller.
	EventError EventType = "error"
	// EventExternalServiceCall marks a call to a collaborator service.
	EventExternalServiceCall EventType = "external_service.call"
)

// EventData is a marker interface for event payloads.
type EventData interface {
	eventData()
}

// Event is one analytics record.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	WizardID  string    `json:"wizard_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Data      EventData `json:"data,omitempty"`
}

type baseEventData struct{}

func (baseEventData) eventData() {}

// WizardData describes a wizard lifecycle event.
type WizardData struct {
	baseEventData
	WizardType string        `json:"wizard_type,omitempty"`
	StepCount  int           `json:"step_count"`
	DraftID    string        `json:"draft_id,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
	Completed  bool          `json:"completed,omitempty"`
}

// StepData describes a step lifecycle event.
type StepData struct {
	baseEventData
	StepID    string        `json:"step_id"`
	StepIndex int           `json:"step_index"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// ValidationFailedData lists the field errors of a failed validation.
type ValidationFailedData struct {
	baseEventData
	StepID string            `json:"step_id"`
	Errors map[string]string `json:"errors"`
}

// NavigationData describes a navigation request.
type NavigationData struct {
	baseEventData
	From      int    `json:"from"`
	To        int    `json:"to"`
	Direction string `json:"direction"`
	Allowed   bool   `json:"allowed"`
}

// Navigation directions.
const (
	DirectionNext     = "next"
	DirectionPrevious = "previous"
	DirectionJump     = "jump"
	DirectionUndo     = "undo"
	DirectionRedo     = "redo"
)

// FieldData describes a field interaction.
type FieldData struct {
	baseEventData
	Field    string        `json:"field"`
	StepID   string        `json:"step_id,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// DraftData describes a draft persistence operation.
type DraftData struct {
	baseEventData
	DraftID   string        `json:"draft_id,omitempty"`
	Operation string        `json:"operation"`
	Duration  time.Duration `json:"duration"`
	Auto      bool          `json:"auto,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// Draft operations.
const (
	DraftOpSave   = "save"
	DraftOpLoad   = "load"
	DraftOpDelete = "delete"
)

// AIGenerationData describes an AI-assisted content generation.
type AIGenerationData struct {
	baseEventData
	Feature  string        `json:"feature"`
	Field    string        `json:"field,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// UploadData describes a file upload.
type UploadData struct {
	baseEventData
	FileName string  `json:"file_name"`
	Bytes    int64   `json:"bytes,omitempty"`
	Progress float64 `json:"progress,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// MetricData is a named measurement.
type MetricData struct {
	baseEventData
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// ErrorData records an error with free-form context.
type ErrorData struct {
	baseEventData
	Message string            `json:"message"`
	Context map[string]string `json:"context,omitempty"`
}

// ExternalCallData describes a call to a collaborator service.
type ExternalCallData struct {
	baseEventData
	Service   string        `json:"service"`
	Operation string        `json:"operation"`
	Duration  time.Duration `json:"duration"`
	Status    string        `json:"status"`
	Error     string        `json:"error,omitempty"`
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
