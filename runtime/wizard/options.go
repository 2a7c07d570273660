package wizard

import (
	"log/slog"
	"time"

	"github.com/AltairaLabs/WizardKit/runtime/drafts"
	"github.com/AltairaLabs/WizardKit/runtime/events"
	"github.com/AltairaLabs/WizardKit/runtime/schema"
)

// TimeFunc returns the current time. Override for deterministic tests.
type TimeFunc func() time.Time

// Timer is a pending call scheduled by an AfterFunc.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run once after d. The default is time.AfterFunc.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Option configures a Machine.
type Option func(*Machine)

// WithGateway sets where drafts are saved. Without one, auto-save is off
// and the draft operations return ErrNoGateway.
func WithGateway(g drafts.Gateway) Option {
	return func(m *Machine) { m.gateway = g }
}

// WithSink sets the analytics sink.
func WithSink(s events.Sink) Option {
	return func(m *Machine) { m.sink = s }
}

// WithSessionID sets the session identifier stamped on analytics events.
// Default is a random UUID.
func WithSessionID(id string) Option {
	return func(m *Machine) { m.sessionID = id }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.log = l
		}
	}
}

// WithValidator replaces the default schema validator.
func WithValidator(v *schema.Validator) Option {
	return func(m *Machine) {
		if v != nil {
			m.validator = v
		}
	}
}

// WithTimeFunc sets the clock.
func WithTimeFunc(fn TimeFunc) Option {
	return func(m *Machine) {
		if fn != nil {
			m.now = fn
		}
	}
}

// WithAfterFunc sets the scheduler used for auto-save.
func WithAfterFunc(fn AfterFunc) Option {
	return func(m *Machine) {
		if fn != nil {
			m.afterFunc = fn
		}
	}
}

// WithDraftID resumes an existing draft id for saves.
func WithDraftID(id string) Option {
	return func(m *Machine) { m.draftID = id }
}

// WithAutoSaveTimeout bounds each background save. Default 30s.
func WithAutoSaveTimeout(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.autoSaveTimeout = d
		}
	}
}
