package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureLogs redirects the global logger to a buffer for the duration of the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	prevLogger := DefaultLogger
	prevModules := globalModuleConfig
	globalModuleConfig = NewModuleConfig(slog.LevelInfo)
	outputMu.Lock()
	activeCommon, activeJSON = nil, false
	outputMu.Unlock()
	buf := &bytes.Buffer{}
	SetOutput(buf)
	t.Cleanup(func() {
		outputMu.Lock()
		logOutput = os.Stderr
		activeCommon, activeJSON = nil, false
		outputMu.Unlock()
		DefaultLogger = prevLogger
		globalModuleConfig = prevModules
	})
	return buf
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"TRACE", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestSetLevel_FiltersDebug(t *testing.T) {
	buf := captureLogs(t)

	SetLevel(slog.LevelInfo)
	Debug("hidden")
	Info("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")

	SetVerbose(true)
	Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestContextFieldsAreLogged(t *testing.T) {
	buf := captureLogs(t)

	ctx := WithLoggingContext(context.Background(), &LoggingFields{
		WizardID: "property-listing",
		DraftID:  "d-42",
		StepID:   "location",
	})
	InfoContext(ctx, "saved")

	out := buf.String()
	assert.Contains(t, out, "wizard_id=property-listing")
	assert.Contains(t, out, "draft_id=d-42")
	assert.Contains(t, out, "step_id=location")
}

func TestExtractLoggingFields(t *testing.T) {
	ctx := WithRequestID(WithSessionID(context.Background(), "s-1"), "r-9")
	fields := ExtractLoggingFields(ctx)
	assert.Equal(t, "s-1", fields.SessionID)
	assert.Equal(t, "r-9", fields.RequestID)
	assert.Empty(t, fields.WizardID)

	assert.Equal(t, context.Background(), WithLoggingContext(context.Background(), nil))
}

func TestConfigure_JSONWithCommonFieldsAndModules(t *testing.T) {
	buf := captureLogs(t)

	Configure(&LoggingConfigSpec{
		DefaultLevel: "warn",
		Format:       FormatJSON,
		CommonFields: map[string]string{"service": "wizardkit"},
		Modules: []ModuleLoggingSpec{
			{Name: "runtime.drafts", Level: "debug"},
		},
	})

	WithModule("runtime.wizard").Info("wizard info dropped")
	WithModule("runtime.drafts.redis").Debug("drafts debug kept")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "drafts debug kept", rec["msg"])
	assert.Equal(t, "wizardkit", rec["service"])
	assert.Equal(t, "runtime.drafts.redis", rec["logger"])
}

func TestSetVerboseKeepsConfiguredFormat(t *testing.T) {
	buf := captureLogs(t)

	Configure(&LoggingConfigSpec{
		Format:       FormatJSON,
		CommonFields: map[string]string{"env": "test"},
	})
	SetVerbose(true)
	Debug("after verbose")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec))
	assert.Equal(t, "after verbose", rec["msg"])
	assert.Equal(t, "test", rec["env"])
}

func TestConfigure_Nil(t *testing.T) {
	prev := DefaultLogger
	Configure(nil)
	assert.Same(t, prev, DefaultLogger)
}

func TestModuleConfig_LevelFor(t *testing.T) {
	mc := NewModuleConfig(slog.LevelInfo)
	mc.SetModuleLevel("runtime", slog.LevelWarn)
	mc.SetModuleLevel("runtime.drafts", slog.LevelDebug)

	assert.Equal(t, slog.LevelDebug, mc.LevelFor("runtime.drafts"))
	assert.Equal(t, slog.LevelDebug, mc.LevelFor("runtime.drafts.sqlite"))
	assert.Equal(t, slog.LevelWarn, mc.LevelFor("runtime.wizard"))
	assert.Equal(t, slog.LevelInfo, mc.LevelFor("tools.wizardctl"))
	assert.Equal(t, slog.LevelDebug, mc.minLevel())

	mc.SetDefaultLevel(slog.LevelError)
	assert.Equal(t, slog.LevelError, mc.LevelFor("server"))
	assert.Equal(t, slog.LevelError, mc.LevelFor(""))
}

func TestExtractModuleFromFunction(t *testing.T) {
	tests := []struct {
		fn   string
		want string
	}{
		{"github.com/AltairaLabs/WizardKit/runtime/drafts.(*RedisStore).Save", "runtime.drafts"},
		{"github.com/AltairaLabs/WizardKit/runtime/wizard.New", "runtime.wizard"},
		{"github.com/AltairaLabs/WizardKit/runtime/wizard.(*Machine).autoSave.func1", "runtime.wizard"},
		{"github.com/AltairaLabs/WizardKit/runtime/metrics/prometheus.RecordDraftOperation", "runtime.metrics.prometheus"},
		{"main.main", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extractModuleFromFunction(tt.fn), tt.fn)
	}
}

func TestDraftOperation(t *testing.T) {
	buf := captureLogs(t)
	SetLevel(slog.LevelDebug)

	DraftOperation(context.Background(), nil, "save", "d-1", 15*time.Millisecond, nil)
	DraftOperation(context.Background(), nil, "load", "d-2", time.Millisecond, errors.New("boom"))
	Navigation(context.Background(), nil, 0, 1, true)

	out := buf.String()
	assert.Contains(t, out, "draft operation completed")
	assert.Contains(t, out, "duration_ms=15")
	assert.Contains(t, out, "level=WARN msg=\"draft operation failed\"")
	assert.Contains(t, out, "error=boom")
	assert.Contains(t, out, "step navigation")
}
