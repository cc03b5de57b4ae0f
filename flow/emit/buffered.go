package emit

import (
	"context"
	"sync"
)

// Buffered collects events in memory instead of delivering them
// immediately, flushing to an underlying Emitter in batches via Flush or
// once Capacity is reached. Useful for tests that want to assert on the
// exact event sequence a run produced.
type Buffered struct {
	mu       sync.Mutex
	capacity int
	pending  []Event
	sink     Emitter
}

// NewBuffered wraps sink, auto-flushing once capacity pending events have
// accumulated. capacity <= 0 means "unbounded, flush only on demand".
func NewBuffered(sink Emitter, capacity int) *Buffered {
	return &Buffered{sink: sink, capacity: capacity}
}

func (b *Buffered) Emit(event Event) {
	b.mu.Lock()
	b.pending = append(b.pending, event)
	full := b.capacity > 0 && len(b.pending) >= b.capacity
	b.mu.Unlock()

	if full {
		_ = b.Flush(context.Background())
	}
}

func (b *Buffered) EmitBatch(ctx context.Context, events []Event) error {
	b.mu.Lock()
	b.pending = append(b.pending, events...)
	full := b.capacity > 0 && len(b.pending) >= b.capacity
	b.mu.Unlock()

	if full {
		return b.Flush(ctx)
	}
	return nil
}

// Flush delivers every pending event to sink, in order, and clears the
// buffer regardless of whether delivery succeeds.
func (b *Buffered) Flush(ctx context.Context) error {
	b.mu.Lock()
	events := b.pending
	b.pending = nil
	b.mu.Unlock()

	if len(events) == 0 {
		return nil
	}
	return b.sink.EmitBatch(ctx, events)
}

// Pending returns a copy of the events accumulated since the last Flush.
func (b *Buffered) Pending() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.pending))
	copy(out, b.pending)
	return out
}
