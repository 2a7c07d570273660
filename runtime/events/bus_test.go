package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_PublishesToSpecificAndGlobalListeners(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	var mu sync.Mutex
	var specific, global []EventType

	bus.Subscribe(EventStepStarted, func(e *Event) {
		mu.Lock()
		specific = append(specific, e.Type)
		mu.Unlock()
	})
	bus.SubscribeAll(func(e *Event) {
		mu.Lock()
		global = append(global, e.Type)
		mu.Unlock()
	})

	bus.Publish(&Event{Type: EventStepStarted})
	bus.Publish(&Event{Type: EventDraftSaved})
	bus.Flush()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []EventType{EventStepStarted}, specific)
	assert.Equal(t, []EventType{EventStepStarted, EventDraftSaved}, global)
}

func TestEventBus_PreservesOrder(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	var got []int
	bus.SubscribeAll(func(e *Event) {
		got = append(got, e.Data.(StepData).StepIndex)
	})
	for i := 0; i < 50; i++ {
		bus.Publish(&Event{Type: EventStepStarted, Data: StepData{StepIndex: i}})
	}
	bus.Flush()

	require.Len(t, got, 50)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestEventBus_RecoversFromPanic(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	delivered := 0
	bus.Subscribe(EventError, func(*Event) { panic("listener panic") })
	bus.SubscribeAll(func(*Event) { delivered++ })

	bus.Publish(&Event{Type: EventError})
	bus.Flush()
	assert.Equal(t, 1, delivered)
}

func TestEventBus_DropsWhenFull(t *testing.T) {
	bus := NewEventBus(WithBufferSize(1))
	defer bus.Close()

	block := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	bus.SubscribeAll(func(*Event) {
		once.Do(func() { close(started) })
		<-block
	})

	bus.Publish(&Event{Type: EventStepStarted})
	<-started
	bus.Publish(&Event{Type: EventStepStarted})
	bus.Publish(&Event{Type: EventStepStarted})
	assert.Equal(t, int64(1), bus.Dropped())
	close(block)
}

func TestEventBus_CloseDrainsAndIgnoresLatePublish(t *testing.T) {
	bus := NewEventBus()

	var mu sync.Mutex
	count := 0
	bus.SubscribeAll(func(*Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	for i := 0; i < 10; i++ {
		bus.Publish(&Event{Type: EventFieldChanged})
	}
	bus.Close()
	bus.Close()

	bus.Publish(&Event{Type: EventFieldChanged})
	bus.Flush()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 10, count)
}

func TestEventBus_Clear(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	called := false
	bus.SubscribeAll(func(*Event) { called = true })
	bus.Clear()
	bus.Publish(&Event{Type: EventError})
	bus.Publish(nil)
	bus.Flush()
	assert.False(t, called)
}

func TestSafeTrack(t *testing.T) {
	assert.NotPanics(t, func() {
		SafeTrack(SinkFunc(func(*Event) { panic("boom") }), &Event{Type: EventError})
	})
	assert.NotPanics(t, func() { SafeTrack(nil, &Event{}) })
	assert.NotPanics(t, func() { NopSink{}.Track(&Event{}) })

	var got []EventType
	multi := MultiSink{
		SinkFunc(func(*Event) { panic("first sink fails") }),
		SinkFunc(func(e *Event) { got = append(got, e.Type) }),
	}
	multi.Track(&Event{Type: EventDraftLoaded})
	assert.Equal(t, []EventType{EventDraftLoaded}, got)
}
