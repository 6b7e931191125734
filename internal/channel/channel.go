// Package channel carries values from the frame loop to its consumers.
//
// A Channel is a chan with a fill level and counters on top. Senders choose
// between back-pressure (Send blocks while the buffer is full) and dropping
// (Send returns false), so a producer that must never stall can opt out of
// waiting on a slow consumer.
package channel

// Receiver provides read access to a channel.
type Receiver[T any] interface {
	Receive() <-chan T
	Len() int
}

// Sender provides write access to a channel. Send reports whether v was
// queued.
type Sender[T any] interface {
	Send(v T) bool
}

// Channel combines read and write access. Close must only be called once
// every sender is done.
type Channel[T any] interface {
	Receiver[T]
	Sender[T]
	Close()
	Stats() Stats
}

// Stats counts what went through a channel.
type Stats struct {
	Sent    uint64
	Dropped uint64
	// Peak is the highest fill level seen by Send.
	Peak int
}

// Option configures a channel built by New.
type Option func(*options)

type options struct {
	dropWhenFull bool
}

// DropWhenFull makes Send discard the value instead of blocking when the
// buffer is full.
func DropWhenFull() Option {
	return func(o *options) {
		o.dropWhenFull = true
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
