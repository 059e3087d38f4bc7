package bus

import (
	"context"
	"sync"
	"sync/atomic"
)

// DefaultBuffer is the per-subscription channel buffer when none is
// configured.
const DefaultBuffer = 256

// MemoryBus is an in-process Stream for tests and embedding. Publishing
// fans out to every live subscription.
type MemoryBus struct {
	buffer int

	mu          sync.Mutex
	subscribers map[int64]*memSub
	nextID      atomic.Int64
	closed      atomic.Bool
	closeCh     chan struct{}
}

// memSub pairs a delivery channel with a done signal. The delivery channel
// is never closed; publishers select on done instead, so a departing
// subscriber can never panic an in-flight Publish.
type memSub struct {
	ch   chan Envelope
	done chan struct{}
}

// NewMemoryBus creates a memory bus. buffer <= 0 uses DefaultBuffer.
func NewMemoryBus(buffer int) *MemoryBus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &MemoryBus{
		buffer:      buffer,
		subscribers: make(map[int64]*memSub),
		closeCh:     make(chan struct{}),
	}
}

// Subscribe implements Stream. The returned channel stays open; delivery
// simply stops once ctx is cancelled, so consumers must watch their own
// context.
func (b *MemoryBus) Subscribe(ctx context.Context) (<-chan Envelope, error) {
	if b.closed.Load() {
		return nil, ErrBusClosed
	}

	sub := &memSub{
		ch:   make(chan Envelope, b.buffer),
		done: make(chan struct{}),
	}
	id := b.nextID.Add(1)

	b.mu.Lock()
	b.subscribers[id] = sub
	b.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-b.closeCh:
		}
		b.mu.Lock()
		delete(b.subscribers, id)
		b.mu.Unlock()
		close(sub.done)
	}()

	return sub.ch, nil
}

// Publish delivers an envelope to all current subscriptions. It blocks
// while a subscriber's buffer is full, unless that subscriber leaves, ctx
// is cancelled, or the bus closes.
func (b *MemoryBus) Publish(ctx context.Context, env Envelope) error {
	if b.closed.Load() {
		return ErrBusClosed
	}

	b.mu.Lock()
	targets := make([]*memSub, 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		targets = append(targets, sub)
	}
	b.mu.Unlock()

	for _, sub := range targets {
		select {
		case sub.ch <- env:
		case <-sub.done:
		case <-ctx.Done():
			return ctx.Err()
		case <-b.closeCh:
			return ErrBusClosed
		}
	}
	return nil
}

// Close implements Stream. All subscriptions end.
func (b *MemoryBus) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(b.closeCh)
	return nil
}
