package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/AltairaLabs/WizardKit/runtime/events"
)

// newTestListener returns a listener, in-memory exporter, and TracerProvider for tests.
func newTestListener(t *testing.T) (*OTelEventListener, *tracetest.InMemoryExporter, *sdktrace.TracerProvider) {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	return NewOTelEventListener(Tracer(tp)), exp, tp
}

// flushAndGetSpans reads spans before Shutdown, which resets the exporter.
func flushAndGetSpans(t *testing.T, tp *sdktrace.TracerProvider, exp *tracetest.InMemoryExporter) tracetest.SpanStubs {
	t.Helper()
	if err := tp.ForceFlush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	spans := exp.GetSpans()
	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	return spans
}

func findSpan(t *testing.T, spans tracetest.SpanStubs, name string) tracetest.SpanStub {
	t.Helper()
	for _, s := range spans {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("span %q not found in %d spans", name, len(spans))
	return tracetest.SpanStub{}
}

func hasAttr(span tracetest.SpanStub, key, want string) bool {
	for _, a := range span.Attributes {
		if string(a.Key) == key && a.Value.Emit() == want {
			return true
		}
	}
	return false
}

func hasEvent(span tracetest.SpanStub, name string) bool {
	for _, e := range span.Events {
		if e.Name == name {
			return true
		}
	}
	return false
}

func TestOTelEventListener_SessionLifecycle(t *testing.T) {
	listener, exp, tp := newTestListener(t)

	listener.StartSession(context.Background(), "sess-1")
	if listener.OpenSessions() != 1 {
		t.Fatalf("expected 1 open session, got %d", listener.OpenSessions())
	}
	listener.EndSession("sess-1")
	listener.EndSession("sess-1")

	spans := flushAndGetSpans(t, tp, exp)
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name != "wizardkit.session" {
		t.Errorf("expected span name 'wizardkit.session', got %q", spans[0].Name)
	}
	if !hasAttr(spans[0], "session.id", "sess-1") {
		t.Error("expected session.id attribute")
	}
}

func TestOTelEventListener_WizardFlow(t *testing.T) {
	listener, exp, tp := newTestListener(t)
	clock := time.Date(2026, 2, 17, 12, 0, 0, 0, time.UTC)
	tick := func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	emitter := events.NewEmitter(events.SinkFunc(listener.OnEvent), "listing", "sess-1").WithClock(tick)
	emitter.WizardStarted("property", 3, "")
	emitter.StepStarted("personal-info", 0)
	emitter.ValidationFailed("personal-info", map[string]string{"name": "This field is required."})
	emitter.StepCompleted("personal-info", 0, 5*time.Second)
	emitter.StepStarted("additional-info", 1)
	emitter.DraftSaved("d1", 20*time.Millisecond, true)
	emitter.StepStarted("preview", 2)
	emitter.WizardCompleted("property", 3, time.Minute)
	emitter.WizardClosed("property", 3, time.Minute, true)

	if listener.OpenSessions() != 0 {
		t.Errorf("expected session closed by wizard.closed, got %d open", listener.OpenSessions())
	}

	spans := flushAndGetSpans(t, tp, exp)
	session := findSpan(t, spans, "wizardkit.session")
	if !hasAttr(session, "wizard.id", "listing") || !hasAttr(session, "wizard.type", "property") {
		t.Error("expected wizard attributes on session span")
	}
	if session.Status.Code != codes.Ok {
		t.Errorf("expected Ok session status, got %v", session.Status.Code)
	}
	if !hasEvent(session, "wizard.completed") {
		t.Error("expected wizard.completed event on session span")
	}

	first := findSpan(t, spans, "wizardkit.step.personal-info")
	if first.Parent.SpanID() != session.SpanContext.SpanID() {
		t.Error("step span should be child of session span")
	}
	if !hasAttr(first, "step.outcome", "completed") {
		t.Error("expected completed outcome on first step")
	}
	if !hasEvent(first, "validation.failed") {
		t.Error("expected validation.failed event on the step span")
	}

	second := findSpan(t, spans, "wizardkit.step.additional-info")
	if !hasAttr(second, "step.outcome", "left") {
		t.Error("expected left outcome on second step")
	}
	last := findSpan(t, spans, "wizardkit.step.preview")
	if !hasAttr(last, "step.outcome", "abandoned") {
		t.Error("expected abandoned outcome on the step open at close")
	}

	draft := findSpan(t, spans, "wizardkit.draft.save")
	if got := draft.EndTime.Sub(draft.StartTime); got != 20*time.Millisecond {
		t.Errorf("expected back-dated draft span of 20ms, got %v", got)
	}
	if !hasAttr(draft, "draft.auto", "true") {
		t.Error("expected draft.auto attribute")
	}
}

func TestOTelEventListener_DraftFailure(t *testing.T) {
	listener, exp, tp := newTestListener(t)
	emitter := events.NewEmitter(listener, "listing", "sess-1")

	listener.StartSession(context.Background(), "sess-1")
	emitter.DraftSaveFailed("d1", errors.New("backend down"), time.Millisecond, false)
	listener.EndSession("sess-1")

	spans := flushAndGetSpans(t, tp, exp)
	span := findSpan(t, spans, "wizardkit.draft.save")
	if span.Status.Code != codes.Error || span.Status.Description != "backend down" {
		t.Errorf("expected error status 'backend down', got %v %q", span.Status.Code, span.Status.Description)
	}
}

func TestOTelEventListener_ExternalCallAndError(t *testing.T) {
	listener, exp, tp := newTestListener(t)
	emitter := events.NewEmitter(listener, "listing", "sess-1")

	listener.StartSession(context.Background(), "sess-1")
	emitter.ExternalServiceCall("geocoder", "lookup", 300*time.Millisecond, nil)
	emitter.Error(errors.New("upload rejected"), map[string]string{"field": "photo"})
	listener.EndSession("sess-1")

	spans := flushAndGetSpans(t, tp, exp)
	call := findSpan(t, spans, "wizardkit.external.geocoder")
	if !hasAttr(call, "external.status", "ok") {
		t.Error("expected external.status=ok")
	}
	session := findSpan(t, spans, "wizardkit.session")
	if !hasEvent(session, "exception") {
		t.Error("expected exception event on session span")
	}
}

func TestOTelEventListener_IgnoresMismatchedData(t *testing.T) {
	listener, exp, tp := newTestListener(t)

	listener.OnEvent(nil)
	listener.OnEvent(&events.Event{Type: events.EventStepStarted, SessionID: "s", Data: events.FieldData{}})
	listener.OnEvent(&events.Event{Type: events.EventDraftSaved, SessionID: "s"})
	listener.OnEvent(&events.Event{Type: events.EventUploadStarted, SessionID: "s", Data: events.UploadData{}})

	if spans := flushAndGetSpans(t, tp, exp); len(spans) != 0 {
		t.Errorf("expected no spans, got %d", len(spans))
	}
}

func TestOTelEventListener_PointerData(t *testing.T) {
	listener, exp, tp := newTestListener(t)

	listener.OnEvent(&events.Event{
		Type: events.EventDraftLoaded, SessionID: "s", Timestamp: time.Now(),
		Data: &events.DraftData{DraftID: "d1", Operation: events.DraftOpLoad},
	})

	spans := flushAndGetSpans(t, tp, exp)
	findSpan(t, spans, "wizardkit.draft.load")
}
