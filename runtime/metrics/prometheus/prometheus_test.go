package prometheus

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/AltairaLabs/WizardKit/runtime/events"
)

func resetAll() {
	wizardsStarted.Reset()
	wizardsCompleted.Reset()
	wizardsActive.Reset()
	wizardDuration.Reset()
	stepTransitions.Reset()
	stepDuration.Reset()
	validationFailures.Reset()
	fieldErrors.Reset()
	fieldEditDuration.Reset()
	draftOperations.Reset()
	draftOperationDuration.Reset()
	externalCalls.Reset()
	externalCallDuration.Reset()
	errorsTotal.Reset()
}

func TestRecordWizardLifecycle(t *testing.T) {
	resetAll()

	RecordWizardStarted("listing")
	RecordWizardStarted("listing")
	if got := testutil.ToFloat64(wizardsActive.WithLabelValues("listing")); got != 2 {
		t.Errorf("Expected 2 active wizards, got %f", got)
	}

	RecordWizardCompleted("listing", 42)
	RecordWizardClosed("listing")
	if got := testutil.ToFloat64(wizardsActive.WithLabelValues("listing")); got != 1 {
		t.Errorf("Expected 1 active wizard after close, got %f", got)
	}
	if got := testutil.ToFloat64(wizardsCompleted.WithLabelValues("listing")); got != 1 {
		t.Errorf("Expected 1 completed wizard, got %f", got)
	}
	if got := testutil.ToFloat64(wizardsStarted.WithLabelValues("listing")); got != 2 {
		t.Errorf("Expected 2 started wizards, got %f", got)
	}
}

func TestRecordValidationFailure(t *testing.T) {
	resetAll()

	RecordValidationFailure("listing", "personal-info", []string{"email", "name"})
	RecordValidationFailure("listing", "personal-info", []string{"email"})

	if got := testutil.ToFloat64(validationFailures.WithLabelValues("listing", "personal-info")); got != 2 {
		t.Errorf("Expected 2 validation failures, got %f", got)
	}
	if got := testutil.ToFloat64(fieldErrors.WithLabelValues("listing", "personal-info", "email")); got != 2 {
		t.Errorf("Expected 2 email errors, got %f", got)
	}
	if got := testutil.ToFloat64(fieldErrors.WithLabelValues("listing", "personal-info", "name")); got != 1 {
		t.Errorf("Expected 1 name error, got %f", got)
	}
}

func TestRecordDraftOperation(t *testing.T) {
	resetAll()

	RecordDraftOperation("save", statusSuccess, true, 0.01)
	RecordDraftOperation("save", statusError, false, 0.5)
	RecordDraftOperation("load", statusSuccess, false, 0.02)

	if got := testutil.ToFloat64(draftOperations.WithLabelValues("save", statusSuccess, triggerAuto)); got != 1 {
		t.Errorf("Expected 1 auto save, got %f", got)
	}
	if got := testutil.ToFloat64(draftOperations.WithLabelValues("save", statusError, triggerManual)); got != 1 {
		t.Errorf("Expected 1 failed manual save, got %f", got)
	}
	if count := testutil.CollectAndCount(draftOperationDuration); count != 2 {
		t.Errorf("Expected 2 duration series, got %d", count)
	}
}

func TestMetricsListener(t *testing.T) {
	resetAll()
	listener := NewMetricsListener()

	send := func(typ events.EventType, data events.EventData) {
		listener.Handle(&events.Event{Type: typ, WizardID: "listing", Timestamp: time.Now(), Data: data})
	}

	send(events.EventWizardStarted, events.WizardData{StepCount: 3})
	send(events.EventStepFailed, events.StepData{StepID: "personal-info"})
	send(events.EventValidationFailed, events.ValidationFailedData{
		StepID: "personal-info",
		Errors: map[string]string{"name": "This field is required."},
	})
	send(events.EventStepCompleted, events.StepData{StepID: "personal-info", Duration: 12 * time.Second})
	send(events.EventFieldBlurred, events.FieldData{Field: "name", Duration: 3 * time.Second})
	send(events.EventFieldBlurred, events.FieldData{Field: "email"})
	send(events.EventDraftSaved, events.DraftData{Operation: events.DraftOpSave, Auto: true, Duration: time.Millisecond})
	send(events.EventDraftSaveFailed, events.DraftData{Operation: events.DraftOpSave, Auto: true})
	send(events.EventDraftLoaded, events.DraftData{Operation: events.DraftOpLoad})
	send(events.EventExternalServiceCall, events.ExternalCallData{
		Service: "geocoder", Operation: "lookup", Status: "ok", Duration: time.Second,
	})
	send(events.EventError, events.ErrorData{Message: "boom"})
	send(events.EventWizardCompleted, events.WizardData{Duration: time.Minute, Completed: true})
	send(events.EventWizardClosed, events.WizardData{Completed: true})

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"started", testutil.ToFloat64(wizardsStarted.WithLabelValues("listing")), 1},
		{"completed", testutil.ToFloat64(wizardsCompleted.WithLabelValues("listing")), 1},
		{"active", testutil.ToFloat64(wizardsActive.WithLabelValues("listing")), 0},
		{"step failed", testutil.ToFloat64(stepTransitions.WithLabelValues("listing", "personal-info", outcomeFailed)), 1},
		{"step completed", testutil.ToFloat64(stepTransitions.WithLabelValues("listing", "personal-info", outcomeCompleted)), 1},
		{"validation", testutil.ToFloat64(validationFailures.WithLabelValues("listing", "personal-info")), 1},
		{"field error", testutil.ToFloat64(fieldErrors.WithLabelValues("listing", "personal-info", "name")), 1},
		{"auto save ok", testutil.ToFloat64(draftOperations.WithLabelValues("save", statusSuccess, triggerAuto)), 1},
		{"auto save failed", testutil.ToFloat64(draftOperations.WithLabelValues("save", statusError, triggerAuto)), 1},
		{"load", testutil.ToFloat64(draftOperations.WithLabelValues("load", statusSuccess, triggerManual)), 1},
		{"external", testutil.ToFloat64(externalCalls.WithLabelValues("geocoder", "lookup", "ok")), 1},
		{"errors", testutil.ToFloat64(errorsTotal.WithLabelValues("listing")), 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: expected %f, got %f", c.name, c.want, c.got)
		}
	}

	// Blur without a focus has no duration and is not observed.
	if count := testutil.CollectAndCount(fieldEditDuration); count != 1 {
		t.Errorf("Expected 1 field edit series, got %d", count)
	}
}

func TestMetricsListenerAsBusSubscriber(t *testing.T) {
	resetAll()
	bus := events.NewEventBus()
	defer bus.Close()
	bus.SubscribeAll(NewMetricsListener().Listener())

	emitter := events.NewEmitter(bus, "listing", "s1")
	emitter.WizardStarted("property", 3, "")
	emitter.StepFailed("personal-info", 0)
	bus.Flush()

	if got := testutil.ToFloat64(wizardsStarted.WithLabelValues("listing")); got != 1 {
		t.Errorf("Expected 1 started wizard, got %f", got)
	}
	if got := testutil.ToFloat64(stepTransitions.WithLabelValues("listing", "personal-info", outcomeFailed)); got != 1 {
		t.Errorf("Expected 1 failed transition, got %f", got)
	}
}

func TestMetricsListenerIgnoresUnknownAndMismatchedData(t *testing.T) {
	resetAll()
	listener := NewMetricsListener()

	listener.Handle(nil)
	listener.Handle(&events.Event{Type: events.EventUploadStarted, Data: events.UploadData{FileName: "a.png"}})
	listener.Handle(&events.Event{Type: events.EventStepCompleted, Data: events.FieldData{Field: "x"}})
	listener.Track(&events.Event{Type: events.EventDraftSaved})

	if count := testutil.CollectAndCount(stepTransitions); count != 0 {
		t.Errorf("Expected no step series, got %d", count)
	}
	if count := testutil.CollectAndCount(draftOperations); count != 0 {
		t.Errorf("Expected no draft series, got %d", count)
	}
}

func TestNewExporter(t *testing.T) {
	exporter := NewExporter(":9091")
	if exporter.Registry() == nil {
		t.Fatal("Expected registry to be set")
	}

	RecordWizardStarted("exported")
	families, err := exporter.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "wizardkit_wizards_started_total" {
			found = true
		}
	}
	if !found {
		t.Error("Expected wizardkit_wizards_started_total to be registered")
	}
}

func TestExporterHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_counter_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	exporter := NewExporter(":9093", WithRegistry(reg))
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exporter.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "test_counter_total") {
		t.Errorf("Expected metrics output to contain test_counter_total, got %s", body)
	}
}

func TestExporterRegister(t *testing.T) {
	exporter := NewExporter(":9094", WithRegistry(prometheus.NewRegistry()))
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "registered_total", Help: "test"})

	if err := exporter.Register(c); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := exporter.Register(c); err == nil {
		t.Error("Expected error registering the same collector twice")
	}
}

func TestExporterStartShutdown(t *testing.T) {
	exporter := NewExporter("127.0.0.1:0", WithRegistry(prometheus.NewRegistry()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- exporter.Start()
	}()

	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := exporter.Shutdown(ctx); err != nil {
		t.Errorf("Expected no error on shutdown, got %v", err)
	}

	select {
	case err := <-errCh:
		if err != http.ErrServerClosed {
			t.Errorf("Expected ErrServerClosed, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("Timeout waiting for server to stop")
	}
}

func TestExporterShutdownBeforeStart(t *testing.T) {
	exporter := NewExporter("127.0.0.1:0", WithRegistry(prometheus.NewRegistry()))
	if err := exporter.Shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}
	if err := exporter.Start(); err != http.ErrServerClosed {
		t.Errorf("Expected ErrServerClosed, got %v", err)
	}
}

func TestExporterOptions(t *testing.T) {
	reg := prometheus.NewRegistry()
	exporter := NewExporter(":9095", WithRegistry(reg), WithWizardMetrics())

	RecordWizardStarted("opts")
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	if !names["wizardkit_build_info"] || !names["wizardkit_wizards_started_total"] {
		t.Errorf("Expected wizard metrics and build info, got %v", names)
	}
	if names["go_goroutines"] {
		t.Error("Runtime collectors registered without WithRuntimeMetrics")
	}

	rec := httptest.NewRecorder()
	exporter.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `wizardkit_build_info{commit=`) {
		t.Errorf("Expected build info series, got %s", rec.Body.String())
	}
}
