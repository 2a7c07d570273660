// Package history keeps a bounded undo/redo stack of wizard state snapshots.
package history

import (
	"time"

	"github.com/mohae/deepcopy"
)

// DefaultMaxSize is the number of snapshots retained when no bound is given.
const DefaultMaxSize = 50

// Snapshot is an immutable copy of form data and step position.
type Snapshot struct {
	FormData    map[string]any
	CurrentStep int
	Timestamp   time.Time
}

// TimeFunc returns the current time. Tests inject a fixed clock.
type TimeFunc func() time.Time

// Manager is a bounded list of snapshots with a cursor. It is not safe for
// concurrent use; the owning wizard machine serializes access.
type Manager struct {
	entries []Snapshot
	cursor  int
	maxSize int
	now     TimeFunc
}

// Option configures a Manager.
type Option func(*Manager)

// WithTimeFunc sets the clock used for snapshot timestamps.
func WithTimeFunc(fn TimeFunc) Option {
	return func(m *Manager) {
		if fn != nil {
			m.now = fn
		}
	}
}

// New creates an empty Manager holding at most maxSize snapshots.
// A non-positive maxSize selects DefaultMaxSize.
func New(maxSize int, opts ...Option) *Manager {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	m := &Manager{maxSize: maxSize, cursor: -1, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Push records a deep copy of formData at step. Entries after the cursor are
// discarded first, then the oldest entry is evicted if the bound is exceeded.
func (m *Manager) Push(formData map[string]any, step int) {
	snap := Snapshot{
		FormData:    CloneData(formData),
		CurrentStep: step,
		Timestamp:   m.now(),
	}

	m.entries = append(m.entries[:m.cursor+1], snap)
	if len(m.entries) > m.maxSize {
		overflow := len(m.entries) - m.maxSize
		m.entries = append([]Snapshot(nil), m.entries[overflow:]...)
	}
	m.cursor = len(m.entries) - 1
}

// Undo moves the cursor back and returns a copy of the snapshot there.
// It returns false when already at the oldest entry.
func (m *Manager) Undo() (Snapshot, bool) {
	if !m.CanUndo() {
		return Snapshot{}, false
	}
	m.cursor--
	return m.current(), true
}

// Redo moves the cursor forward and returns a copy of the snapshot there.
// It returns false when already at the newest entry.
func (m *Manager) Redo() (Snapshot, bool) {
	if !m.CanRedo() {
		return Snapshot{}, false
	}
	m.cursor++
	return m.current(), true
}

// CanUndo reports whether Undo would move the cursor.
func (m *Manager) CanUndo() bool { return m.cursor > 0 }

// CanRedo reports whether Redo would move the cursor.
func (m *Manager) CanRedo() bool { return m.cursor < len(m.entries)-1 }

// Len returns the number of retained snapshots.
func (m *Manager) Len() int { return len(m.entries) }

// Cursor returns the index of the current snapshot, or -1 when empty.
func (m *Manager) Cursor() int { return m.cursor }

// MaxSize returns the retention bound.
func (m *Manager) MaxSize() int { return m.maxSize }

// Current returns a copy of the snapshot at the cursor.
func (m *Manager) Current() (Snapshot, bool) {
	if m.cursor < 0 {
		return Snapshot{}, false
	}
	return m.current(), true
}

// Clear drops every snapshot.
func (m *Manager) Clear() {
	m.entries = nil
	m.cursor = -1
}

// current copies the entry so callers cannot mutate recorded history.
func (m *Manager) current() Snapshot {
	snap := m.entries[m.cursor]
	snap.FormData = CloneData(snap.FormData)
	return snap
}

// CloneData returns a deep copy of form data. A nil map clones to an empty map.
func CloneData(data map[string]any) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	cp, ok := deepcopy.Copy(data).(map[string]any)
	if !ok || cp == nil {
		return map[string]any{}
	}
	return cp
}
