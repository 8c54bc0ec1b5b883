package telemetry

import "github.com/curbsideops/dispatch-backend/pkg/routing"

// eventBuffer keeps the most recent events for display and audit. Older
// entries are overwritten; the projections, not the buffer, carry durable
// effect.
type eventBuffer struct {
	events []routing.DriverEvent
	next   int
	filled bool
}

func newEventBuffer(capacity int) *eventBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &eventBuffer{events: make([]routing.DriverEvent, capacity)}
}

func (b *eventBuffer) Append(event routing.DriverEvent) {
	b.events[b.next] = event
	b.next++
	if b.next == len(b.events) {
		b.next = 0
		b.filled = true
	}
}

// Recent returns the retained events oldest first.
func (b *eventBuffer) Recent() []routing.DriverEvent {
	if !b.filled {
		out := make([]routing.DriverEvent, b.next)
		copy(out, b.events[:b.next])
		return out
	}
	out := make([]routing.DriverEvent, 0, len(b.events))
	out = append(out, b.events[b.next:]...)
	out = append(out, b.events[:b.next]...)
	return out
}

func (b *eventBuffer) Len() int {
	if b.filled {
		return len(b.events)
	}
	return b.next
}
