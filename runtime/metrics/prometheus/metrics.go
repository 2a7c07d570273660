// Package prometheus exports wizard analytics events as Prometheus metrics.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wizardkit"

var (
	// wizardsStarted counts wizard sessions that were created.
	wizardsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wizards_started_total",
			Help:      "Total number of wizard sessions started",
		},
		[]string{"wizard"},
	)

	// wizardsCompleted counts sessions whose completion callback succeeded.
	wizardsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wizards_completed_total",
			Help:      "Total number of wizard sessions completed",
		},
		[]string{"wizard"},
	)

	// wizardsActive is a gauge of sessions started and not yet closed.
	wizardsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "wizards_active",
			Help:      "Number of wizard sessions currently open",
		},
		[]string{"wizard"},
	)

	// wizardDuration observes time from start to completion.
	wizardDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "wizard_duration_seconds",
			Help:      "Time from wizard start to completion in seconds",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"wizard"},
	)

	// stepTransitions counts forward navigation outcomes per step.
	stepTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_transitions_total",
			Help:      "Total number of forward navigation attempts by outcome",
		},
		[]string{"wizard", "step", "outcome"}, // outcome: completed, failed
	)

	// stepDuration observes time spent on a step before moving on.
	stepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Time spent on a step before it was completed, in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"wizard", "step"},
	)

	// validationFailures counts per-step validation failures.
	validationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Total number of step validation failures",
		},
		[]string{"wizard", "step"},
	)

	// fieldErrors counts failing fields reported by validation.
	fieldErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "field_errors_total",
			Help:      "Total number of field errors reported by validation",
		},
		[]string{"wizard", "step", "field"},
	)

	// fieldEditDuration observes focus-to-blur time per field.
	fieldEditDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "field_edit_duration_seconds",
			Help:      "Time between focusing and leaving a field, in seconds",
			Buckets:   []float64{.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"wizard", "field"},
	)

	// draftOperations counts draft save/load/delete calls.
	draftOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "draft_operations_total",
			Help:      "Total number of draft operations",
		},
		[]string{"op", "status", "trigger"}, // status: success, error; trigger: auto, manual
	)

	// draftOperationDuration observes draft operation latency.
	draftOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "draft_operation_duration_seconds",
			Help:      "Duration of draft operations in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"op"},
	)

	// externalCalls counts calls to external services reported by hosts.
	externalCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "external_service_calls_total",
			Help:      "Total number of external service calls",
		},
		[]string{"service", "operation", "status"},
	)

	// externalCallDuration observes external service call latency.
	externalCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "external_service_call_duration_seconds",
			Help:      "Duration of external service calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	// errorsTotal counts error events.
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of error events",
		},
		[]string{"wizard"},
	)

	allMetrics = []prometheus.Collector{
		wizardsStarted,
		wizardsCompleted,
		wizardsActive,
		wizardDuration,
		stepTransitions,
		stepDuration,
		validationFailures,
		fieldErrors,
		fieldEditDuration,
		draftOperations,
		draftOperationDuration,
		externalCalls,
		externalCallDuration,
		errorsTotal,
	}
)

// RecordWizardStarted records a new session.
func RecordWizardStarted(wizard string) {
	wizardsStarted.WithLabelValues(wizard).Inc()
	wizardsActive.WithLabelValues(wizard).Inc()
}

// RecordWizardCompleted records a successful completion.
func RecordWizardCompleted(wizard string, durationSeconds float64) {
	wizardsCompleted.WithLabelValues(wizard).Inc()
	wizardDuration.WithLabelValues(wizard).Observe(durationSeconds)
}

// RecordWizardClosed records a session being disposed.
func RecordWizardClosed(wizard string) {
	wizardsActive.WithLabelValues(wizard).Dec()
}

// RecordStepTransition records the outcome of leaving a step forward.
func RecordStepTransition(wizard, step, outcome string) {
	stepTransitions.WithLabelValues(wizard, step, outcome).Inc()
}

// RecordStepDuration records time spent on a step.
func RecordStepDuration(wizard, step string, durationSeconds float64) {
	stepDuration.WithLabelValues(wizard, step).Observe(durationSeconds)
}

// RecordValidationFailure records a failed step validation and its fields.
func RecordValidationFailure(wizard, step string, fields []string) {
	validationFailures.WithLabelValues(wizard, step).Inc()
	for _, f := range fields {
		fieldErrors.WithLabelValues(wizard, step, f).Inc()
	}
}

// RecordFieldEdit records focus-to-blur time for a field.
func RecordFieldEdit(wizard, field string, durationSeconds float64) {
	fieldEditDuration.WithLabelValues(wizard, field).Observe(durationSeconds)
}

// RecordDraftOperation records a draft operation.
func RecordDraftOperation(op, status string, auto bool, durationSeconds float64) {
	trigger := triggerManual
	if auto {
		trigger = triggerAuto
	}
	draftOperations.WithLabelValues(op, status, trigger).Inc()
	draftOperationDuration.WithLabelValues(op).Observe(durationSeconds)
}

// RecordExternalCall records a call to an external service.
func RecordExternalCall(service, operation, status string, durationSeconds float64) {
	externalCalls.WithLabelValues(service, operation, status).Inc()
	externalCallDuration.WithLabelValues(service).Observe(durationSeconds)
}

// RecordError records an error event.
func RecordError(wizard string) {
	errorsTotal.WithLabelValues(wizard).Inc()
}
