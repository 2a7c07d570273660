// Package wizard implements the multi-step form state machine.
//
// A Config describes the ordered steps of a wizard and how each is
// validated. A Machine owns one session's state: the current step, the
// accumulated form data, dirty/loading/saving flags, field errors, per-step
// validity and completion, and a bounded undo/redo history. Drafts are saved
// through a drafts.Gateway, on demand or by a debounced auto-save timer.
package wizard

import (
	"errors"
	"fmt"
	"time"

	"github.com/AltairaLabs/WizardKit/runtime/history"
	"github.com/AltairaLabs/WizardKit/runtime/schema"
)

// Defaults for Persistence.
const (
	DefaultAutoSaveInterval = 30 * time.Second
	DefaultMaxHistory       = history.DefaultMaxSize
)

// ErrInvalidConfig is returned when a Config cannot drive a wizard.
var ErrInvalidConfig = errors.New("invalid wizard config")

// StepProps is what a step's renderer receives from the host.
type StepProps struct {
	Data       map[string]any
	Errors     schema.FieldErrors
	IsLoading  bool
	OnUpdate   func(partial map[string]any)
	OnNext     func() bool
	OnPrevious func() bool
}

// Renderer is the opaque rendering delegate of a step. The machine never
// calls it; hosts do, passing Machine.StepProps.
type Renderer interface {
	Render(props StepProps) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(props StepProps) error

// Render calls f(props).
func (f RendererFunc) Render(props StepProps) error { return f(props) }

// Step describes one page of the wizard.
type Step struct {
	ID          string
	Title       string
	Description string
	Optional    bool
	Schema      *schema.Schema
	Component   Renderer
}

// Persistence controls draft auto-save and history depth.
type Persistence struct {
	AutoSave         bool
	AutoSaveInterval time.Duration
	MaxHistory       int
}

// Config is the static description of a wizard. It must not be modified
// after a Machine has been created from it.
type Config struct {
	ID    string
	Type  string
	Steps []Step

	// StepSchemas overrides Step.Schema by step ID.
	StepSchemas map[string]*schema.Schema

	// FinalSchema must accept the full form data before Complete runs.
	FinalSchema *schema.Schema

	Persistence Persistence
	InitialData map[string]any
}

// Validate checks structural consistency.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if len(c.Steps) == 0 {
		return fmt.Errorf("%w: at least one step is required", ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(c.Steps))
	for i, s := range c.Steps {
		if s.ID == "" {
			return fmt.Errorf("%w: step %d has no id", ErrInvalidConfig, i)
		}
		if seen[s.ID] {
			return fmt.Errorf("%w: duplicate step id %q", ErrInvalidConfig, s.ID)
		}
		seen[s.ID] = true
	}
	for id := range c.StepSchemas {
		if !seen[id] {
			return fmt.Errorf("%w: schema given for unknown step %q", ErrInvalidConfig, id)
		}
	}
	if c.Persistence.AutoSaveInterval < 0 {
		return fmt.Errorf("%w: auto-save interval must not be negative", ErrInvalidConfig)
	}
	if c.Persistence.MaxHistory < 0 {
		return fmt.Errorf("%w: max history must not be negative", ErrInvalidConfig)
	}
	return nil
}

// SchemaFor returns the schema that validates a step: the StepSchemas entry
// if there is one, otherwise the step's own schema.
func (c *Config) SchemaFor(stepID string) *schema.Schema {
	if s, ok := c.StepSchemas[stepID]; ok {
		return s
	}
	if i := c.StepIndex(stepID); i >= 0 {
		return c.Steps[i].Schema
	}
	return nil
}

// StepIndex returns the index of a step, or -1.
func (c *Config) StepIndex(stepID string) int {
	for i, s := range c.Steps {
		if s.ID == stepID {
			return i
		}
	}
	return -1
}

// Rules returns the validation view of the steps, in order.
func (c *Config) Rules() schema.Rules {
	rules := make(schema.Rules, len(c.Steps))
	for i, s := range c.Steps {
		rules[i] = schema.StepRule{StepID: s.ID, Optional: s.Optional, Schema: c.SchemaFor(s.ID)}
	}
	return rules
}

func (p Persistence) interval() time.Duration {
	if p.AutoSaveInterval <= 0 {
		return DefaultAutoSaveInterval
	}
	return p.AutoSaveInterval
}

func (p Persistence) maxHistory() int {
	if p.MaxHistory <= 0 {
		return DefaultMaxHistory
	}
	return p.MaxHistory
}
