package logger

import (
	"context"
	"log/slog"
	"runtime"
	"strings"
)

// moduleAttrKey is the attribute WithModule attaches and ModuleHandler reads.
const moduleAttrKey = "logger"

// ContextHandler is a slog.Handler that extracts logging fields from the
// context and adds them to each record before delegating to the inner handler.
type ContextHandler struct {
	inner        slog.Handler
	commonFields []slog.Attr
}

// NewContextHandler creates a new ContextHandler wrapping the given handler.
// The commonFields are added to every log record.
func NewContextHandler(inner slog.Handler, commonFields ...slog.Attr) *ContextHandler {
	return &ContextHandler{
		inner:        inner,
		commonFields: commonFields,
	}
}

// Enabled delegates to the inner handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle enriches the record with common and context fields.
//
//nolint:gocritic // slog.Record is passed by value per slog.Handler interface contract
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.inner.Handle(ctx, h.enrich(ctx, r, ""))
}

//nolint:gocritic // slog.Record is passed by value per slog.Handler interface contract
func (h *ContextHandler) enrich(ctx context.Context, r slog.Record, module string) slog.Record {
	newRecord := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	// Common fields first so record attributes win on key collisions.
	newRecord.AddAttrs(h.commonFields...)
	if module != "" {
		newRecord.AddAttrs(slog.String(moduleAttrKey, module))
	}
	for _, key := range allContextKeys {
		if s, ok := ctx.Value(key).(string); ok && s != "" {
			newRecord.AddAttrs(slog.String(string(key), s))
		}
	}
	r.Attrs(func(a slog.Attr) bool {
		newRecord.AddAttrs(a)
		return true
	})
	return newRecord
}

// WithAttrs returns a new handler with the given attributes added to the inner handler.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{
		inner:        h.inner.WithAttrs(attrs),
		commonFields: h.commonFields,
	}
}

// WithGroup returns a new handler with the given group name.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{
		inner:        h.inner.WithGroup(name),
		commonFields: h.commonFields,
	}
}

// Unwrap returns the inner handler.
func (h *ContextHandler) Unwrap() slog.Handler {
	return h.inner
}

var _ slog.Handler = (*ContextHandler)(nil)

// ModuleHandler extends ContextHandler with per-module level filtering.
// The module is taken from a "logger" attribute bound with WithModule, or
// derived from the caller's package path when none is bound.
type ModuleHandler struct {
	ContextHandler
	moduleConfig *ModuleConfig
	module       string
}

// NewModuleHandler creates a new ModuleHandler with per-module log level filtering.
func NewModuleHandler(inner slog.Handler, moduleConfig *ModuleConfig, commonFields ...slog.Attr) *ModuleHandler {
	return &ModuleHandler{
		ContextHandler: ContextHandler{
			inner:        inner,
			commonFields: commonFields,
		},
		moduleConfig: moduleConfig,
	}
}

// Enabled reports whether the bound module accepts records at level.
// Unbound handlers defer the decision to Handle, where the caller PC is known.
func (h *ModuleHandler) Enabled(_ context.Context, level slog.Level) bool {
	if h.module == "" {
		return level >= h.moduleConfig.minLevel()
	}
	return level >= h.moduleConfig.LevelFor(h.module)
}

// Handle filters by module level and enriches the record.
//
//nolint:gocritic // slog.Record is passed by value per slog.Handler interface contract
func (h *ModuleHandler) Handle(ctx context.Context, r slog.Record) error {
	module := h.module
	stamp := ""
	if module == "" {
		module = moduleFromPC(r.PC)
		stamp = module
	}
	if r.Level < h.moduleConfig.LevelFor(module) {
		return nil
	}
	return h.inner.Handle(ctx, h.enrich(ctx, r, stamp))
}

// WithAttrs binds the module when a "logger" attribute is present.
func (h *ModuleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	module := h.module
	for _, a := range attrs {
		if a.Key == moduleAttrKey {
			module = a.Value.String()
		}
	}
	return &ModuleHandler{
		ContextHandler: ContextHandler{
			inner:        h.inner.WithAttrs(attrs),
			commonFields: h.commonFields,
		},
		moduleConfig: h.moduleConfig,
		module:       module,
	}
}

// WithGroup returns a new handler with the given group name.
func (h *ModuleHandler) WithGroup(name string) slog.Handler {
	return &ModuleHandler{
		ContextHandler: ContextHandler{
			inner:        h.inner.WithGroup(name),
			commonFields: h.commonFields,
		},
		moduleConfig: h.moduleConfig,
		module:       h.module,
	}
}

var _ slog.Handler = (*ModuleHandler)(nil)

func moduleFromPC(pc uintptr) string {
	if pc == 0 {
		return ""
	}
	frames := runtime.CallersFrames([]uintptr{pc})
	frame, _ := frames.Next()
	return extractModuleFromFunction(frame.Function)
}

// extractModuleFromFunction turns a fully qualified function name into a
// dotted module name, e.g.
// "github.com/AltairaLabs/WizardKit/runtime/drafts.(*RedisStore).Save"
// becomes "runtime.drafts".
func extractModuleFromFunction(fn string) string {
	const moduleRoot = "github.com/AltairaLabs/WizardKit/"
	idx := strings.Index(fn, moduleRoot)
	if idx == -1 {
		return ""
	}
	path := fn[idx+len(moduleRoot):]

	if parenIdx := strings.Index(path, "("); parenIdx != -1 {
		path = path[:parenIdx]
	}
	if slash := strings.LastIndex(path, "/"); slash != -1 {
		if dot := strings.Index(path[slash:], "."); dot != -1 {
			path = path[:slash+dot]
		}
	} else if dot := strings.Index(path, "."); dot != -1 {
		path = path[:dot]
	}
	path = strings.TrimSuffix(path, ".")

	return strings.ReplaceAll(path, "/", ".")
}
