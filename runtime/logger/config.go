package logger

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// ModuleConfig holds per-module log levels. Module names are dotted
// ("runtime.drafts") and a level set on a parent applies to every child
// that has no level of its own.
type ModuleConfig struct {
	mu           sync.RWMutex
	defaultLevel slog.Level
	modules      map[string]slog.Level
}

// NewModuleConfig creates a ModuleConfig that falls back to defaultLevel.
func NewModuleConfig(defaultLevel slog.Level) *ModuleConfig {
	return &ModuleConfig{
		defaultLevel: defaultLevel,
		modules:      make(map[string]slog.Level),
	}
}

// SetModuleLevel overrides the level of module and its children.
func (m *ModuleConfig) SetModuleLevel(module string, level slog.Level) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modules[module] = level
}

// SetDefaultLevel changes the fallback level.
func (m *ModuleConfig) SetDefaultLevel(level slog.Level) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultLevel = level
}

// LevelFor resolves the level of module by trimming one dotted segment at a
// time until an override matches.
func (m *ModuleConfig) LevelFor(module string) slog.Level {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for name := module; name != ""; {
		if level, ok := m.modules[name]; ok {
			return level
		}
		i := strings.LastIndexByte(name, '.')
		if i < 0 {
			break
		}
		name = name[:i]
	}
	return m.defaultLevel
}

// minLevel is the lowest level configured anywhere; the base handler must
// not drop records a module override wants to keep.
func (m *ModuleConfig) minLevel() slog.Level {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lowest := m.defaultLevel
	for _, l := range m.modules {
		if l < lowest {
			lowest = l
		}
	}
	return lowest
}

var globalModuleConfig = NewModuleConfig(slog.LevelInfo)

// LoggingConfigSpec is the input of Configure. pkg/config converts its
// ServiceConfig logging section into this type.
type LoggingConfigSpec struct {
	DefaultLevel string
	Format       string
	CommonFields map[string]string
	Modules      []ModuleLoggingSpec
}

// ModuleLoggingSpec is one module override.
type ModuleLoggingSpec struct {
	Name  string
	Level string
}

// Output formats accepted in LoggingConfigSpec.Format.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Configure rebuilds the global logger from cfg. A nil cfg is ignored.
func Configure(cfg *LoggingConfigSpec) {
	if cfg == nil {
		return
	}

	level := slog.LevelInfo
	if cfg.DefaultLevel != "" {
		level = ParseLevel(cfg.DefaultLevel)
	}

	mc := NewModuleConfig(level)
	for _, mod := range cfg.Modules {
		mc.SetModuleLevel(mod.Name, ParseLevel(mod.Level))
	}
	globalModuleConfig = mc

	install(mc, commonAttrs(cfg.CommonFields), cfg.Format == FormatJSON)
}

// commonAttrs returns fields as attributes in key order.
func commonAttrs(fields map[string]string) []slog.Attr {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	attrs := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, slog.String(k, fields[k]))
	}
	return attrs
}

func install(mc *ModuleConfig, common []slog.Attr, useJSON bool) {
	outputMu.Lock()
	out := logOutput
	activeCommon, activeJSON = common, useJSON
	outputMu.Unlock()

	opts := &slog.HandlerOptions{Level: mc.minLevel()}
	var base slog.Handler = slog.NewTextHandler(out, opts)
	if useJSON {
		base = slog.NewJSONHandler(out, opts)
	}

	mc.mu.RLock()
	perModule := len(mc.modules) > 0
	mc.mu.RUnlock()

	if perModule {
		DefaultLogger = slog.New(NewModuleHandler(base, mc, common...))
		return
	}
	DefaultLogger = slog.New(NewContextHandler(base, common...))
}
