package events

import (
	"sync"
	"sync/atomic"
)

// Listener is a function that handles events.
type Listener func(*Event)

const defaultBufferSize = 256

// EventBus distributes events to listeners asynchronously and in publish
// order. Publish never blocks: when the queue is full the event is dropped
// and counted.
type EventBus struct {
	mu              sync.RWMutex
	listeners       map[EventType][]Listener
	globalListeners []Listener

	sendMu  sync.RWMutex
	closed  bool
	queue   chan busItem
	done    chan struct{}
	dropped atomic.Int64
}

// busItem is either an event or a flush marker.
type busItem struct {
	event   *Event
	flushed chan struct{}
}

// BusOption configures an EventBus.
type BusOption func(*busConfig)

type busConfig struct {
	bufferSize int
}

// WithBufferSize sets the queue capacity. Default 256.
func WithBufferSize(n int) BusOption {
	return func(c *busConfig) {
		if n > 0 {
			c.bufferSize = n
		}
	}
}

// NewEventBus creates a bus and starts its dispatch goroutine.
// Call Close to stop it.
func NewEventBus(opts ...BusOption) *EventBus {
	cfg := busConfig{bufferSize: defaultBufferSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	eb := &EventBus{
		listeners: make(map[EventType][]Listener),
		queue:     make(chan busItem, cfg.bufferSize),
		done:      make(chan struct{}),
	}
	go eb.dispatch()
	return eb
}

// Subscribe registers a listener for a specific event type.
func (eb *EventBus) Subscribe(eventType EventType, listener Listener) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.listeners[eventType] = append(eb.listeners[eventType], listener)
}

// SubscribeAll registers a listener for all event types.
func (eb *EventBus) SubscribeAll(listener Listener) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.globalListeners = append(eb.globalListeners, listener)
}

// Publish queues an event for delivery.
func (eb *EventBus) Publish(event *Event) {
	if event == nil {
		return
	}
	eb.sendMu.RLock()
	defer eb.sendMu.RUnlock()
	if eb.closed {
		return
	}
	select {
	case eb.queue <- busItem{event: event}:
	default:
		eb.dropped.Add(1)
	}
}

// Track implements Sink.
func (eb *EventBus) Track(event *Event) { eb.Publish(event) }

// Flush blocks until every event published before the call has been
// delivered to listeners.
func (eb *EventBus) Flush() {
	eb.sendMu.RLock()
	if eb.closed {
		eb.sendMu.RUnlock()
		return
	}
	ch := make(chan struct{})
	eb.queue <- busItem{flushed: ch}
	eb.sendMu.RUnlock()
	<-ch
}

// Dropped returns how many events were discarded because the queue was full.
func (eb *EventBus) Dropped() int64 { return eb.dropped.Load() }

// Clear removes all listeners (primarily for tests).
func (eb *EventBus) Clear() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.listeners = make(map[EventType][]Listener)
	eb.globalListeners = nil
}

// Close delivers queued events and stops the dispatch goroutine.
// Events published after Close are discarded.
func (eb *EventBus) Close() {
	eb.sendMu.Lock()
	if eb.closed {
		eb.sendMu.Unlock()
		<-eb.done
		return
	}
	eb.closed = true
	close(eb.queue)
	eb.sendMu.Unlock()
	<-eb.done
}

func (eb *EventBus) dispatch() {
	defer close(eb.done)
	for item := range eb.queue {
		if item.flushed != nil {
			close(item.flushed)
			continue
		}
		eb.deliver(item.event)
	}
}

func (eb *EventBus) deliver(event *Event) {
	eb.mu.RLock()
	specific := make([]Listener, len(eb.listeners[event.Type]))
	copy(specific, eb.listeners[event.Type])
	global := make([]Listener, len(eb.globalListeners))
	copy(global, eb.globalListeners)
	eb.mu.RUnlock()

	for _, listener := range specific {
		safeInvoke(listener, event)
	}
	for _, listener := range global {
		safeInvoke(listener, event)
	}
}

func safeInvoke(listener Listener, event *Event) {
	defer func() { _ = recover() }()
	listener(event)
}
