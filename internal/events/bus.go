// Package events is the in-process notification bus between the stream
// loops and their observers (metrics, viewer).
package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher.
type Bus struct {
	dispatcher *event.Dispatcher
}

func New() *Bus {
	return &Bus{dispatcher: event.NewDispatcher()}
}

// Publish delivers ev to the subscribers of its concrete type. A nil bus
// drops events so callers need no guard.
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	switch e := ev.(type) {
	case StreamStateChangedEvent:
		event.Publish(b.dispatcher, e)
	case SettingReconciledEvent:
		event.Publish(b.dispatcher, e)
	case FrameProcessedEvent:
		event.Publish(b.dispatcher, e)
	case FrameSkippedEvent:
		event.Publish(b.dispatcher, e)
	case RateSampledEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers handler, whose parameter type selects the events it
// receives, e.g. func(events.RateSampledEvent). It returns the unsubscribe
// function; unknown handler types get a no-op.
func (b *Bus) Subscribe(handler any) func() {
	if b == nil {
		return func() {}
	}
	switch h := handler.(type) {
	case func(StreamStateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SettingReconciledEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(FrameProcessedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(FrameSkippedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(RateSampledEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
