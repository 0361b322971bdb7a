package event

import "sync"

// Sink consumes events published on a Bus. Handle must not block:
// implementations hand the event off to their own buffer and return.
type Sink interface {
	Handle(e Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(e Event)

func (f SinkFunc) Handle(e Event) { f(e) }

// Bus delivers every published event to each subscriber, synchronously and
// in subscription order.
type Bus struct {
	mu    sync.RWMutex
	sinks []Sink
}

func NewBus(sinks ...Sink) *Bus {
	return &Bus{sinks: append([]Sink(nil), sinks...)}
}

func (b *Bus) Subscribe(s Sink) {
	if s == nil {
		return
	}
	b.mu.Lock()
	b.sinks = append(b.sinks, s)
	b.mu.Unlock()
}

// Publish fans e out to the current subscribers.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	sinks := b.sinks
	b.mu.RUnlock()
	for _, s := range sinks {
		s.Handle(e)
	}
}

// Handle lets a Bus be subscribed to another Bus.
func (b *Bus) Handle(e Event) { b.Publish(e) }
