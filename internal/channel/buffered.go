package channel

import (
	"sync"
	"sync/atomic"
)

// Buffered is a channel with a fixed capacity.
type Buffered[T any] struct {
	ch           chan T
	dropWhenFull bool

	sent    atomic.Uint64
	dropped atomic.Uint64
	peak    atomic.Int64
	once    sync.Once
}

// NewBuffered creates a buffered channel holding up to size values.
func NewBuffered[T any](size int, opts ...Option) *Buffered[T] {
	if size < 1 {
		size = 1
	}
	o := buildOptions(opts)
	return &Buffered[T]{
		ch:           make(chan T, size),
		dropWhenFull: o.dropWhenFull,
	}
}

// Send queues v. With DropWhenFull it returns false instead of waiting for
// room.
func (b *Buffered[T]) Send(v T) bool {
	if b.dropWhenFull {
		select {
		case b.ch <- v:
		default:
			b.dropped.Add(1)
			return false
		}
	} else {
		b.ch <- v
	}
	b.sent.Add(1)

	n := int64(len(b.ch))
	for {
		p := b.peak.Load()
		if n <= p || b.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return true
}

// Receive returns the receive-only channel
func (b *Buffered[T]) Receive() <-chan T {
	return b.ch
}

// Len returns the number of values waiting to be received.
func (b *Buffered[T]) Len() int {
	return len(b.ch)
}

// Cap returns the buffer size.
func (b *Buffered[T]) Cap() int {
	return cap(b.ch)
}

// Stats returns the counters so far.
func (b *Buffered[T]) Stats() Stats {
	return Stats{
		Sent:    b.sent.Load(),
		Dropped: b.dropped.Load(),
		Peak:    int(b.peak.Load()),
	}
}

// Close closes the channel. Further calls are no-ops.
func (b *Buffered[T]) Close() {
	b.once.Do(func() { close(b.ch) })
}
