package config

import (
	"fmt"
	"strings"

	"github.com/AltairaLabs/WizardKit/runtime/logger"
)

// LoggingConfigSpec is the logging section of a ServiceConfig.
type LoggingConfigSpec struct {
	// DefaultLevel applies to every module without an override:
	// trace, debug, info, warn or error.
	DefaultLevel string `yaml:"defaultLevel,omitempty"`

	// Format is "json" or "text".
	Format string `yaml:"format,omitempty"`

	// CommonFields are attached to every record, e.g. service or environment.
	CommonFields map[string]string `yaml:"commonFields,omitempty"`

	// Modules override the level of a dotted module and its children,
	// e.g. "runtime.drafts".
	Modules []ModuleLoggingConfig `yaml:"modules,omitempty"`
}

// ModuleLoggingConfig is one per-module override.
type ModuleLoggingConfig struct {
	Name  string `yaml:"name"`
	Level string `yaml:"level"`
}

// Log levels accepted in LoggingConfigSpec.
const (
	LogLevelTrace = "trace"
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Log formats accepted in LoggingConfigSpec.
const (
	LogFormatJSON = logger.FormatJSON
	LogFormatText = logger.FormatText
)

var logLevels = []string{LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError}

// DefaultLoggingConfig logs at info level as text.
func DefaultLoggingConfig() LoggingConfigSpec {
	return LoggingConfigSpec{
		DefaultLevel: LogLevelInfo,
		Format:       LogFormatText,
	}
}

// Validate reports the first invalid level, format or module entry.
func (c *LoggingConfigSpec) Validate() error {
	levelMsg := "must be one of " + strings.Join(logLevels, ", ")

	if c.DefaultLevel != "" && !isValidLogLevel(c.DefaultLevel) {
		return &FieldError{Field: "logging.defaultLevel", Message: levelMsg, Value: c.DefaultLevel}
	}
	if c.Format != "" && c.Format != LogFormatJSON && c.Format != LogFormatText {
		return &FieldError{Field: "logging.format", Message: "must be json or text", Value: c.Format}
	}
	for i, mod := range c.Modules {
		field := fmt.Sprintf("logging.modules[%d]", i)
		if mod.Name == "" {
			return &FieldError{Field: field + ".name", Message: "is required"}
		}
		if mod.Level != "" && !isValidLogLevel(mod.Level) {
			return &FieldError{Field: field + ".level", Message: levelMsg, Value: mod.Level}
		}
	}
	return nil
}

// LoggerSpec converts the section for logger.Configure.
func (c *LoggingConfigSpec) LoggerSpec() *logger.LoggingConfigSpec {
	spec := &logger.LoggingConfigSpec{
		DefaultLevel: c.DefaultLevel,
		Format:       c.Format,
		CommonFields: c.CommonFields,
	}
	for _, m := range c.Modules {
		spec.Modules = append(spec.Modules, logger.ModuleLoggingSpec{Name: m.Name, Level: m.Level})
	}
	return spec
}

func isValidLogLevel(level string) bool {
	for _, l := range logLevels {
		if level == l {
			return true
		}
	}
	return false
}

// FieldError reports a ServiceConfig setting that the schema accepts but
// the service cannot run with.
type FieldError struct {
	Field   string
	Message string
	Value   string
}

func (e *FieldError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("invalid %s: %s (got %q)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
