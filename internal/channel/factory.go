//go:build !debug

package channel

// New creates the frame channel: buffered with room for size values.
func New[T any](size int, opts ...Option) Channel[T] {
	return NewBuffered[T](size, opts...)
}
