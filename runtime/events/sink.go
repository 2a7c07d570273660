// Package events records wizard analytics.
//
// Producers report events to a Sink. Tracking is fire-and-forget: a Sink must
// not block its caller for long and must not panic into it. EventBus fans
// events out to listeners (metrics, tracing, JSONL files) on a background
// goroutine.
package events

import "github.com/AltairaLabs/WizardKit/runtime/logger"

// Sink receives analytics events.
type Sink interface {
	Track(event *Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(*Event)

// Track calls f(event).
func (f SinkFunc) Track(event *Event) { f(event) }

// NopSink discards every event.
type NopSink struct{}

// Track does nothing.
func (NopSink) Track(*Event) {}

// SafeTrack delivers event to sink, swallowing any panic.
func SafeTrack(sink Sink, event *Event) {
	if sink == nil || event == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Debug("analytics sink panicked", "event", string(event.Type), "panic", r)
		}
	}()
	sink.Track(event)
}

// MultiSink delivers each event to every sink in order.
type MultiSink []Sink

// Track forwards event to all sinks.
func (m MultiSink) Track(event *Event) {
	for _, s := range m {
		SafeTrack(s, event)
	}
}
