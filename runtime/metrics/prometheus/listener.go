package prometheus

import (
	"sort"

	"github.com/AltairaLabs/WizardKit/runtime/events"
)

// Label values.
const (
	statusSuccess = "success"
	statusError   = "error"

	outcomeCompleted = "completed"
	outcomeFailed    = "failed"

	triggerAuto   = "auto"
	triggerManual = "manual"
)

// MetricsListener records wizard events as Prometheus metrics.
// Register it with an EventBus using SubscribeAll, or use it directly as an
// events.Sink.
type MetricsListener struct{}

// NewMetricsListener creates a new MetricsListener.
func NewMetricsListener() *MetricsListener {
	return &MetricsListener{}
}

// Track implements events.Sink.
func (l *MetricsListener) Track(event *events.Event) { l.Handle(event) }

// Handle processes an event and records relevant metrics.
func (l *MetricsListener) Handle(event *events.Event) {
	if event == nil {
		return
	}
	//exhaustive:ignore
	switch event.Type {
	case events.EventWizardStarted:
		RecordWizardStarted(event.WizardID)
	case events.EventWizardCompleted:
		if data, ok := event.Data.(events.WizardData); ok {
			RecordWizardCompleted(event.WizardID, data.Duration.Seconds())
		}
	case events.EventWizardClosed:
		RecordWizardClosed(event.WizardID)
	case events.EventStepCompleted:
		if data, ok := event.Data.(events.StepData); ok {
			RecordStepTransition(event.WizardID, data.StepID, outcomeCompleted)
			RecordStepDuration(event.WizardID, data.StepID, data.Duration.Seconds())
		}
	case events.EventStepFailed:
		if data, ok := event.Data.(events.StepData); ok {
			RecordStepTransition(event.WizardID, data.StepID, outcomeFailed)
		}
	case events.EventValidationFailed:
		l.handleValidationFailed(event)
	case events.EventFieldBlurred:
		if data, ok := event.Data.(events.FieldData); ok && data.Duration > 0 {
			RecordFieldEdit(event.WizardID, data.Field, data.Duration.Seconds())
		}
	case events.EventDraftSaved, events.EventDraftLoaded, events.EventDraftDeleted:
		if data, ok := event.Data.(events.DraftData); ok {
			RecordDraftOperation(data.Operation, statusSuccess, data.Auto, data.Duration.Seconds())
		}
	case events.EventDraftSaveFailed:
		if data, ok := event.Data.(events.DraftData); ok {
			RecordDraftOperation(data.Operation, statusError, data.Auto, data.Duration.Seconds())
		}
	case events.EventExternalServiceCall:
		if data, ok := event.Data.(events.ExternalCallData); ok {
			RecordExternalCall(data.Service, data.Operation, data.Status, data.Duration.Seconds())
		}
	case events.EventError:
		RecordError(event.WizardID)
	default:
		// Ignore events that don't have metrics
	}
}

func (l *MetricsListener) handleValidationFailed(event *events.Event) {
	data, ok := event.Data.(events.ValidationFailedData)
	if !ok {
		return
	}
	fields := make([]string, 0, len(data.Errors))
	for f := range data.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	RecordValidationFailure(event.WizardID, data.StepID, fields)
}

// Listener returns an events.Listener function that can be registered with an EventBus.
func (l *MetricsListener) Listener() events.Listener {
	return l.Handle
}
