package events

import (
	"sync"
	"time"
)

// Emitter provides typed helpers for reporting wizard events with shared
// wizard and session identifiers. A nil Emitter is safe to use and does
// nothing.
type Emitter struct {
	sink      Sink
	wizardID  string
	sessionID string
	now       func() time.Time

	mu      sync.Mutex
	focused map[string]time.Time
}

// NewEmitter creates an emitter reporting to sink.
func NewEmitter(sink Sink, wizardID, sessionID string) *Emitter {
	return &Emitter{
		sink:      sink,
		wizardID:  wizardID,
		sessionID: sessionID,
		now:       time.Now,
		focused:   make(map[string]time.Time),
	}
}

// WithClock replaces the emitter's time source and returns the emitter.
func (e *Emitter) WithClock(now func() time.Time) *Emitter {
	if e != nil && now != nil {
		e.now = now
	}
	return e
}

// SessionID returns the session the emitter stamps on events.
func (e *Emitter) SessionID() string {
	if e == nil {
		return ""
	}
	return e.sessionID
}

func (e *Emitter) emit(eventType EventType, data EventData) {
	if e == nil || e.sink == nil {
		return
	}
	SafeTrack(e.sink, &Event{
		Type:      eventType,
		Timestamp: e.now(),
		WizardID:  e.wizardID,
		SessionID: e.sessionID,
		Data:      data,
	})
}

// WizardStarted emits wizard.started.
func (e *Emitter) WizardStarted(wizardType string, stepCount int, draftID string) {
	e.emit(EventWizardStarted, WizardData{WizardType: wizardType, StepCount: stepCount, DraftID: draftID})
}

// WizardCompleted emits wizard.completed.
func (e *Emitter) WizardCompleted(wizardType string, stepCount int, duration time.Duration) {
	e.emit(EventWizardCompleted, WizardData{
		WizardType: wizardType, StepCount: stepCount, Duration: duration, Completed: true,
	})
}

// WizardClosed emits wizard.closed.
func (e *Emitter) WizardClosed(wizardType string, stepCount int, duration time.Duration, completed bool) {
	e.emit(EventWizardClosed, WizardData{
		WizardType: wizardType, StepCount: stepCount, Duration: duration, Completed: completed,
	})
}

// StepStarted emits step.started.
func (e *Emitter) StepStarted(stepID string, index int) {
	e.emit(EventStepStarted, StepData{StepID: stepID, StepIndex: index})
}

// StepCompleted emits step.completed with the time spent on the step.
func (e *Emitter) StepCompleted(stepID string, index int, duration time.Duration) {
	e.emit(EventStepCompleted, StepData{StepID: stepID, StepIndex: index, Duration: duration})
}

// StepFailed emits step.failed.
func (e *Emitter) StepFailed(stepID string, index int) {
	e.emit(EventStepFailed, StepData{StepID: stepID, StepIndex: index})
}

// ValidationFailed emits validation.failed.
func (e *Emitter) ValidationFailed(stepID string, errs map[string]string) {
	cp := make(map[string]string, len(errs))
	for k, v := range errs {
		cp[k] = v
	}
	e.emit(EventValidationFailed, ValidationFailedData{StepID: stepID, Errors: cp})
}

// NavigationAttempted emits navigation.attempted.
func (e *Emitter) NavigationAttempted(from, to int, direction string, allowed bool) {
	e.emit(EventNavigationAttempted, NavigationData{From: from, To: to, Direction: direction, Allowed: allowed})
}

// FieldFocused emits field.focused and starts timing the field.
func (e *Emitter) FieldFocused(field, stepID string) {
	if e == nil {
		return
	}
	e.mu.Lock()
	e.focused[field] = e.now()
	e.mu.Unlock()
	e.emit(EventFieldFocused, FieldData{Field: field, StepID: stepID})
}

// FieldChanged emits field.changed.
func (e *Emitter) FieldChanged(field, stepID string) {
	e.emit(EventFieldChanged, FieldData{Field: field, StepID: stepID})
}

// FieldBlurred emits field.blurred with the time since FieldFocused, or zero
// when the field was never focused.
func (e *Emitter) FieldBlurred(field, stepID string) {
	if e == nil {
		return
	}
	var spent time.Duration
	e.mu.Lock()
	if start, ok := e.focused[field]; ok {
		spent = e.now().Sub(start)
		delete(e.focused, field)
	}
	e.mu.Unlock()
	e.emit(EventFieldBlurred, FieldData{Field: field, StepID: stepID, Duration: spent})
}

// DraftSaved emits draft.saved.
func (e *Emitter) DraftSaved(draftID string, duration time.Duration, auto bool) {
	e.emit(EventDraftSaved, DraftData{DraftID: draftID, Operation: DraftOpSave, Duration: duration, Auto: auto})
}

// DraftSaveFailed emits draft.save_failed.
func (e *Emitter) DraftSaveFailed(draftID string, err error, duration time.Duration, auto bool) {
	e.emit(EventDraftSaveFailed, DraftData{
		DraftID: draftID, Operation: DraftOpSave, Duration: duration, Auto: auto, Error: errString(err),
	})
}

// DraftLoaded emits draft.loaded.
func (e *Emitter) DraftLoaded(draftID string, duration time.Duration) {
	e.emit(EventDraftLoaded, DraftData{DraftID: draftID, Operation: DraftOpLoad, Duration: duration})
}

// DraftDeleted emits draft.deleted.
func (e *Emitter) DraftDeleted(draftID string, duration time.Duration) {
	e.emit(EventDraftDeleted, DraftData{DraftID: draftID, Operation: DraftOpDelete, Duration: duration})
}

// AIGenerationRequested emits ai.generation.requested.
func (e *Emitter) AIGenerationRequested(feature, field string) {
	e.emit(EventAIGenerationRequested, AIGenerationData{Feature: feature, Field: field})
}

// AIGenerationSucceeded emits ai.generation.succeeded.
func (e *Emitter) AIGenerationSucceeded(feature, field string, duration time.Duration) {
	e.emit(EventAIGenerationSucceeded, AIGenerationData{Feature: feature, Field: field, Duration: duration})
}

// AIGenerationFailed emits ai.generation.failed.
func (e *Emitter) AIGenerationFailed(feature, field string, err error, duration time.Duration) {
	e.emit(EventAIGenerationFailed, AIGenerationData{
		Feature: feature, Field: field, Duration: duration, Error: errString(err),
	})
}

// UploadStarted emits upload.started.
func (e *Emitter) UploadStarted(fileName string, size int64) {
	e.emit(EventUploadStarted, UploadData{FileName: fileName, Bytes: size})
}

// UploadProgress emits upload.progress; progress is a fraction in [0, 1].
func (e *Emitter) UploadProgress(fileName string, progress float64) {
	e.emit(EventUploadProgress, UploadData{FileName: fileName, Progress: progress})
}

// UploadSucceeded emits upload.succeeded.
func (e *Emitter) UploadSucceeded(fileName string, size int64) {
	e.emit(EventUploadSucceeded, UploadData{FileName: fileName, Bytes: size, Progress: 1})
}

// UploadFailed emits upload.failed.
func (e *Emitter) UploadFailed(fileName string, err error) {
	e.emit(EventUploadFailed, UploadData{FileName: fileName, Error: errString(err)})
}

// PerformanceMetric emits performance.metric.
func (e *Emitter) PerformanceMetric(name string, value float64, unit string) {
	e.emit(EventPerformanceMetric, MetricData{Name: name, Value: value, Unit: unit})
}

// Error emits error.
func (e *Emitter) Error(err error, context map[string]string) {
	if err == nil {
		return
	}
	e.emit(EventError, ErrorData{Message: err.Error(), Context: context})
}

// ExternalServiceCall emits external_service.call.
func (e *Emitter) ExternalServiceCall(service, operation string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	e.emit(EventExternalServiceCall, ExternalCallData{
		Service: service, Operation: operation, Duration: duration, Status: status, Error: errString(err),
	})
}
