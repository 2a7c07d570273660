// Package logger provides structured logging for WizardKit.
//
// This package wraps Go's standard log/slog with:
//   - a global DefaultLogger configured from LOG_LEVEL
//   - per-module levels keyed by dotted package names (runtime.wizard, runtime.drafts)
//   - context-carried fields (wizard id, draft id, step id, request id)
//   - helpers for draft persistence and step navigation logging
//
// All package-level functions log through DefaultLogger, which Configure
// replaces atomically.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

var (
	// DefaultLogger is the global structured logger instance.
	// It is safe for concurrent use and initialized with slog.LevelInfo by default.
	DefaultLogger *slog.Logger

	// outputMu guards the settings install reuses when only the level or the
	// writer changes.
	outputMu     sync.Mutex
	logOutput    io.Writer = os.Stderr
	activeCommon []slog.Attr
	activeJSON   bool
)

func init() {
	level := slog.LevelInfo
	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		level = ParseLevel(envLevel)
	}
	globalModuleConfig.SetDefaultLevel(level)
	install(globalModuleConfig, nil, false)
}

// ParseLevel converts a level name to a slog.Level. Unknown names map to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace", "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetOutput redirects log output. Intended for tests and CLIs that capture logs.
func SetOutput(w io.Writer) {
	outputMu.Lock()
	logOutput = w
	outputMu.Unlock()
	reinstall()
}

// SetLevel changes the logging level for all subsequent log operations.
func SetLevel(level slog.Level) {
	globalModuleConfig.SetDefaultLevel(level)
	reinstall()
}

// SetVerbose enables debug-level logging when verbose is true, otherwise sets info-level.
func SetVerbose(verbose bool) {
	if verbose {
		SetLevel(slog.LevelDebug)
	} else {
		SetLevel(slog.LevelInfo)
	}
}

func reinstall() {
	outputMu.Lock()
	common, useJSON := activeCommon, activeJSON
	outputMu.Unlock()
	install(globalModuleConfig, common, useJSON)
}

// WithModule returns a logger tagged with the given dotted module name.
// Callers that hold on to the result keep logging through the handler that
// was current when WithModule was called.
func WithModule(module string) *slog.Logger {
	return DefaultLogger.With(slog.String("logger", module))
}

// Info logs an informational message with structured key-value attributes.
func Info(msg string, args ...any) {
	DefaultLogger.Info(msg, args...)
}

// InfoContext logs an informational message with context and structured attributes.
func InfoContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.InfoContext(ctx, msg, args...)
}

// Debug logs a debug-level message with structured attributes.
func Debug(msg string, args ...any) {
	DefaultLogger.Debug(msg, args...)
}

// DebugContext logs a debug message with context and structured attributes.
func DebugContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.DebugContext(ctx, msg, args...)
}

// Warn logs a warning message with structured attributes.
// Use for recoverable errors such as a failed background auto-save.
func Warn(msg string, args ...any) {
	DefaultLogger.Warn(msg, args...)
}

// WarnContext logs a warning message with context and structured attributes.
func WarnContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.WarnContext(ctx, msg, args...)
}

// Error logs an error message with structured attributes.
func Error(msg string, args ...any) {
	DefaultLogger.Error(msg, args...)
}

// ErrorContext logs an error message with context and structured attributes.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.ErrorContext(ctx, msg, args...)
}

// DraftOperation logs the outcome of a draft persistence call.
// Successful calls log at debug level, failures at warn level.
func DraftOperation(ctx context.Context, l *slog.Logger, op, draftID string, elapsed time.Duration, err error) {
	if l == nil {
		l = DefaultLogger
	}
	attrs := []any{
		"op", op,
		"draft_id", draftID,
		"duration_ms", elapsed.Milliseconds(),
	}
	if err != nil {
		l.WarnContext(ctx, "draft operation failed", append(attrs, "error", err)...)
		return
	}
	l.DebugContext(ctx, "draft operation completed", attrs...)
}

// Navigation logs a step navigation attempt at debug level.
func Navigation(ctx context.Context, l *slog.Logger, from, to int, allowed bool) {
	if l == nil {
		l = DefaultLogger
	}
	l.DebugContext(ctx, "step navigation", "from", from, "to", to, "allowed", allowed)
}
