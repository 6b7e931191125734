package channel

import (
	"sync"
	"sync/atomic"
)

// Handoff is an unbuffered channel: every Send waits for a receiver, or is
// dropped when none is ready and DropWhenFull is set.
type Handoff[T any] struct {
	ch           chan T
	dropWhenFull bool

	sent    atomic.Uint64
	dropped atomic.Uint64
	once    sync.Once
}

// NewHandoff creates an unbuffered channel.
func NewHandoff[T any](opts ...Option) *Handoff[T] {
	o := buildOptions(opts)
	return &Handoff[T]{ch: make(chan T), dropWhenFull: o.dropWhenFull}
}

// Send hands v to a receiver.
func (h *Handoff[T]) Send(v T) bool {
	if h.dropWhenFull {
		select {
		case h.ch <- v:
		default:
			h.dropped.Add(1)
			return false
		}
	} else {
		h.ch <- v
	}
	h.sent.Add(1)
	return true
}

// Receive returns the receive-only channel
func (h *Handoff[T]) Receive() <-chan T {
	return h.ch
}

// Len is always 0.
func (h *Handoff[T]) Len() int {
	return 0
}

// Stats returns the counters so far. Peak is always 0.
func (h *Handoff[T]) Stats() Stats {
	return Stats{Sent: h.sent.Load(), Dropped: h.dropped.Load()}
}

// Close closes the channel. Further calls are no-ops.
func (h *Handoff[T]) Close() {
	h.once.Do(func() { close(h.ch) })
}
