package telemetry

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AltairaLabs/WizardKit/runtime/events"
)

// sessionState tracks the root span of a wizard session and its open step.
type sessionState struct {
	span trace.Span
	ctx  context.Context //nolint:containedctx // needed to parent child spans

	step   trace.Span
	stepID string
}

// OTelEventListener converts wizard events into OTel spans.
//
// Each session gets a root span. Each visit to a step is a child span that
// ends when the step is completed or another step is entered. Draft
// operations and external calls become completed child spans whose start
// time is back-dated by the reported duration.
type OTelEventListener struct {
	tracer trace.Tracer

	mu       sync.Mutex
	sessions map[string]*sessionState
}

// NewOTelEventListener creates a listener that records spans with tracer.
func NewOTelEventListener(tracer trace.Tracer) *OTelEventListener {
	return &OTelEventListener{
		tracer:   tracer,
		sessions: make(map[string]*sessionState),
	}
}

// StartSession opens the root span for a session under parentCtx. Without
// it, the root span is opened by the session's wizard.started event.
func (l *OTelEventListener) StartSession(parentCtx context.Context, sessionID string) {
	l.startSession(parentCtx, sessionID, time.Time{})
}

func (l *OTelEventListener) startSession(parentCtx context.Context, sessionID string, at time.Time) *sessionState {
	opts := []trace.SpanStartOption{
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("session.id", sessionID)),
	}
	if !at.IsZero() {
		opts = append(opts, trace.WithTimestamp(at))
	}
	ctx, span := l.tracer.Start(parentCtx, "wizardkit.session", opts...)
	ss := &sessionState{span: span, ctx: ctx}

	l.mu.Lock()
	l.sessions[sessionID] = ss
	l.mu.Unlock()
	return ss
}

// EndSession ends the session's open step span and root span.
func (l *OTelEventListener) EndSession(sessionID string) {
	l.endSession(sessionID, time.Time{})
}

func (l *OTelEventListener) endSession(sessionID string, at time.Time) {
	l.mu.Lock()
	ss, ok := l.sessions[sessionID]
	if ok {
		delete(l.sessions, sessionID)
	}
	l.mu.Unlock()
	if !ok {
		return
	}
	opts := endOptions(at)
	if ss.step != nil {
		ss.step.SetAttributes(attribute.String("step.outcome", "abandoned"))
		ss.step.End(opts...)
	}
	ss.span.End(opts...)
}

// OpenSessions returns the number of sessions with a live root span.
func (l *OTelEventListener) OpenSessions() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sessions)
}

// OnEvent handles one event. It is safe for concurrent use and can be passed
// to EventBus.SubscribeAll.
func (l *OTelEventListener) OnEvent(evt *events.Event) {
	if evt == nil {
		return
	}
	//nolint:exhaustive // Only handling span-producing events
	switch evt.Type {
	case events.EventWizardStarted:
		l.handleWizardStarted(evt)
	case events.EventWizardCompleted:
		l.handleWizardCompleted(evt)
	case events.EventWizardClosed:
		l.endSession(evt.SessionID, evt.Timestamp)
	case events.EventStepStarted:
		l.handleStepStarted(evt)
	case events.EventStepCompleted:
		l.handleStepCompleted(evt)
	case events.EventValidationFailed:
		l.handleValidationFailed(evt)
	case events.EventDraftSaved, events.EventDraftSaveFailed, events.EventDraftLoaded, events.EventDraftDeleted:
		l.handleDraft(evt)
	case events.EventExternalServiceCall:
		l.handleExternalCall(evt)
	case events.EventError:
		l.handleError(evt)
	}
}

// Track implements events.Sink.
func (l *OTelEventListener) Track(evt *events.Event) { l.OnEvent(evt) }

// session returns the state for sessionID. l.mu must be held.
func (l *OTelEventListener) session(sessionID string) *sessionState {
	return l.sessions[sessionID]
}

// sessionCtx returns the context that parents child spans of a session.
func (l *OTelEventListener) sessionCtx(sessionID string) context.Context {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ss := l.session(sessionID); ss != nil {
		return ss.ctx
	}
	return context.Background()
}

// asPtr extracts event data as a pointer, accepting both T and *T.
func asPtr[T any](data any) (*T, bool) {
	if p, ok := data.(*T); ok {
		return p, p != nil
	}
	if v, ok := data.(T); ok {
		return &v, true
	}
	return nil, false
}

func endOptions(at time.Time) []trace.SpanEndOption {
	if at.IsZero() {
		return nil
	}
	return []trace.SpanEndOption{trace.WithTimestamp(at)}
}

// --- Wizard ---

func (l *OTelEventListener) handleWizardStarted(evt *events.Event) {
	l.mu.Lock()
	ss := l.session(evt.SessionID)
	l.mu.Unlock()
	if ss == nil {
		ss = l.startSession(context.Background(), evt.SessionID, evt.Timestamp)
	}

	attrs := []attribute.KeyValue{attribute.String("wizard.id", evt.WizardID)}
	if data, ok := asPtr[events.WizardData](evt.Data); ok {
		attrs = append(attrs,
			attribute.String("wizard.type", data.WizardType),
			attribute.Int("wizard.step_count", data.StepCount),
		)
		if data.DraftID != "" {
			attrs = append(attrs, attribute.String("draft.id", data.DraftID))
		}
	}
	ss.span.SetAttributes(attrs...)
}

func (l *OTelEventListener) handleWizardCompleted(evt *events.Event) {
	data, ok := asPtr[events.WizardData](evt.Data)
	if !ok {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	ss := l.session(evt.SessionID)
	if ss == nil {
		return
	}
	ss.span.SetAttributes(
		attribute.Bool("wizard.completed", true),
		attribute.Int64("wizard.duration_ms", data.Duration.Milliseconds()),
	)
	ss.span.SetStatus(codes.Ok, "")
	ss.span.AddEvent("wizard.completed", trace.WithTimestamp(evt.Timestamp))
}

// --- Steps ---

func (l *OTelEventListener) handleStepStarted(evt *events.Event) {
	data, ok := asPtr[events.StepData](evt.Data)
	if !ok {
		return
	}
	parent := l.sessionCtx(evt.SessionID)
	_, span := l.tracer.Start(parent, "wizardkit.step."+data.StepID,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(evt.Timestamp),
		trace.WithAttributes(
			attribute.String("step.id", data.StepID),
			attribute.Int("step.index", data.StepIndex),
		),
	)

	l.mu.Lock()
	ss := l.session(evt.SessionID)
	var prev trace.Span
	if ss != nil {
		prev = ss.step
		ss.step, ss.stepID = span, data.StepID
	}
	l.mu.Unlock()

	if prev != nil {
		prev.SetAttributes(attribute.String("step.outcome", "left"))
		prev.End(trace.WithTimestamp(evt.Timestamp))
	}
	if ss == nil {
		// No session to hold it open; record the visit as an instant.
		span.End(trace.WithTimestamp(evt.Timestamp))
	}
}

func (l *OTelEventListener) handleStepCompleted(evt *events.Event) {
	data, ok := asPtr[events.StepData](evt.Data)
	if !ok {
		return
	}
	l.mu.Lock()
	ss := l.session(evt.SessionID)
	var span trace.Span
	if ss != nil && ss.stepID == data.StepID {
		span = ss.step
		ss.step, ss.stepID = nil, ""
	}
	l.mu.Unlock()
	if span == nil {
		return
	}
	span.SetAttributes(
		attribute.String("step.outcome", "completed"),
		attribute.Int64("step.duration_ms", data.Duration.Milliseconds()),
	)
	span.SetStatus(codes.Ok, "")
	span.End(trace.WithTimestamp(evt.Timestamp))
}

func (l *OTelEventListener) handleValidationFailed(evt *events.Event) {
	data, ok := asPtr[events.ValidationFailedData](evt.Data)
	if !ok {
		return
	}
	fields := make([]string, 0, len(data.Errors))
	for f := range data.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	l.mu.Lock()
	defer l.mu.Unlock()
	ss := l.session(evt.SessionID)
	if ss == nil {
		return
	}
	target := ss.span
	if ss.step != nil && ss.stepID == data.StepID {
		target = ss.step
	}
	target.AddEvent("validation.failed", trace.WithTimestamp(evt.Timestamp), trace.WithAttributes(
		attribute.String("step.id", data.StepID),
		attribute.String("validation.fields", strings.Join(fields, ",")),
		attribute.Int("validation.error_count", len(fields)),
	))
}

// --- Completed operations ---

// recordCompleted records a span that already finished at evt.Timestamp and
// took duration.
func (l *OTelEventListener) recordCompleted(
	evt *events.Event, name string, kind trace.SpanKind, duration time.Duration, errMsg string, attrs ...attribute.KeyValue,
) {
	end := evt.Timestamp
	if end.IsZero() {
		end = time.Now()
	}
	_, span := l.tracer.Start(l.sessionCtx(evt.SessionID), name,
		trace.WithSpanKind(kind),
		trace.WithTimestamp(end.Add(-duration)),
		trace.WithAttributes(attrs...),
	)
	if errMsg != "" {
		span.SetStatus(codes.Error, errMsg)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(end))
}

func (l *OTelEventListener) handleDraft(evt *events.Event) {
	data, ok := asPtr[events.DraftData](evt.Data)
	if !ok {
		return
	}
	l.recordCompleted(evt, "wizardkit.draft."+data.Operation, trace.SpanKindClient, data.Duration, data.Error,
		attribute.String("draft.id", data.DraftID),
		attribute.String("draft.operation", data.Operation),
		attribute.Bool("draft.auto", data.Auto),
		attribute.Int64("draft.duration_ms", data.Duration.Milliseconds()),
	)
}

func (l *OTelEventListener) handleExternalCall(evt *events.Event) {
	data, ok := asPtr[events.ExternalCallData](evt.Data)
	if !ok {
		return
	}
	l.recordCompleted(evt, "wizardkit.external."+data.Service, trace.SpanKindClient, data.Duration, data.Error,
		attribute.String("external.service", data.Service),
		attribute.String("external.operation", data.Operation),
		attribute.String("external.status", data.Status),
	)
}

func (l *OTelEventListener) handleError(evt *events.Event) {
	data, ok := asPtr[events.ErrorData](evt.Data)
	if !ok {
		return
	}
	attrs := []attribute.KeyValue{attribute.String("error.message", data.Message)}
	keys := make([]string, 0, len(data.Context))
	for k := range data.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, attribute.String("error.context."+k, data.Context[k]))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if ss := l.session(evt.SessionID); ss != nil {
		ss.span.AddEvent("exception", trace.WithTimestamp(evt.Timestamp), trace.WithAttributes(attrs...))
	}
}
