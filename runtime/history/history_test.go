package history

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestManager(size int) *Manager {
	return New(size, WithTimeFunc(func() time.Time { return fixedTime }))
}

func TestNew_Defaults(t *testing.T) {
	m := New(0)
	assert.Equal(t, DefaultMaxSize, m.MaxSize())
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, -1, m.Cursor())
	assert.False(t, m.CanUndo())
	assert.False(t, m.CanRedo())

	_, ok := m.Current()
	assert.False(t, ok)
}

func TestPush_DeepClones(t *testing.T) {
	m := newTestManager(10)
	data := map[string]any{"address": map[string]any{"street": "Main St"}}
	m.Push(data, 0)

	data["address"].(map[string]any)["street"] = "Changed"
	data["name"] = "late"

	snap, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, map[string]any{"address": map[string]any{"street": "Main St"}}, snap.FormData)
	assert.Equal(t, fixedTime, snap.Timestamp)

	snap.FormData["name"] = "mutated copy"
	again, _ := m.Current()
	assert.NotContains(t, again.FormData, "name")
}

func TestUndoRedo_RoundTrip(t *testing.T) {
	for _, n := range []int{1, 5, 49} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			m := newTestManager(DefaultMaxSize)
			m.Push(map[string]any{}, 0)
			for i := 1; i <= n; i++ {
				m.Push(map[string]any{"count": i}, i%3)
			}

			var snap Snapshot
			for i := 0; i < n; i++ {
				var ok bool
				snap, ok = m.Undo()
				require.True(t, ok)
			}
			assert.Equal(t, map[string]any{}, snap.FormData)
			assert.Equal(t, 0, snap.CurrentStep)
			assert.False(t, m.CanUndo())

			for i := 0; i < n; i++ {
				var ok bool
				snap, ok = m.Redo()
				require.True(t, ok)
			}
			assert.Equal(t, map[string]any{"count": n}, snap.FormData)
			assert.False(t, m.CanRedo())
		})
	}
}

func TestUndoRedo_NoOpAtBounds(t *testing.T) {
	m := newTestManager(5)
	m.Push(map[string]any{"a": 1}, 0)

	_, ok := m.Undo()
	assert.False(t, ok)
	_, ok = m.Redo()
	assert.False(t, ok)
	assert.Equal(t, 0, m.Cursor())
}

func TestPush_DiscardsRedoFuture(t *testing.T) {
	m := newTestManager(10)
	m.Push(map[string]any{"v": 0}, 0)
	m.Push(map[string]any{"v": 1}, 0)
	m.Push(map[string]any{"v": 2}, 0)

	_, ok := m.Undo()
	require.True(t, ok)
	_, ok = m.Undo()
	require.True(t, ok)
	assert.True(t, m.CanRedo())

	m.Push(map[string]any{"v": "branch"}, 1)
	assert.False(t, m.CanRedo())
	assert.Equal(t, 2, m.Len())

	snap, ok := m.Undo()
	require.True(t, ok)
	assert.Equal(t, map[string]any{"v": 0}, snap.FormData)
}

func TestPush_EvictsOldest(t *testing.T) {
	const maxSize = 5
	const extra = 3
	m := newTestManager(maxSize)
	for i := 0; i < maxSize+extra; i++ {
		m.Push(map[string]any{"v": i}, 0)
	}

	assert.Equal(t, maxSize, m.Len())
	assert.Equal(t, maxSize-1, m.Cursor())

	for i := 0; i < maxSize-1; i++ {
		assert.True(t, m.CanUndo(), "undo %d should be possible", i)
		_, ok := m.Undo()
		require.True(t, ok)
	}
	assert.False(t, m.CanUndo())

	oldest, _ := m.Current()
	assert.Equal(t, map[string]any{"v": extra}, oldest.FormData)

	for i := 0; i < maxSize-1; i++ {
		_, ok := m.Redo()
		require.True(t, ok)
	}
	newest, _ := m.Current()
	assert.Equal(t, map[string]any{"v": maxSize + extra - 1}, newest.FormData)
}

func TestPush_EvictionAfterUndo(t *testing.T) {
	m := newTestManager(3)
	for i := 0; i < 3; i++ {
		m.Push(map[string]any{"v": i}, 0)
	}
	m.Undo()

	m.Push(map[string]any{"v": "x"}, 0)
	assert.Equal(t, 3, m.Len())
	assert.False(t, m.CanRedo())

	m.Push(map[string]any{"v": "y"}, 0)
	assert.Equal(t, 3, m.Len())
	assert.Equal(t, 2, m.Cursor())

	snap, _ := m.Undo()
	assert.Equal(t, map[string]any{"v": "x"}, snap.FormData)
	snap, _ = m.Undo()
	assert.Equal(t, map[string]any{"v": 1}, snap.FormData)
	assert.False(t, m.CanUndo())
}

func TestClear(t *testing.T) {
	m := newTestManager(3)
	m.Push(map[string]any{"v": 1}, 0)
	m.Clear()
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, -1, m.Cursor())
}

func TestCloneData(t *testing.T) {
	assert.Equal(t, map[string]any{}, CloneData(nil))

	orig := map[string]any{"tags": []any{"a", "b"}}
	cp := CloneData(orig)
	cp["tags"].([]any)[0] = "z"
	assert.Equal(t, "a", orig["tags"].([]any)[0])
}
