//go:build debug

package channel

// New ignores size in debug builds and returns a Handoff, so every frame
// is received before the next one is stepped.
func New[T any](size int, opts ...Option) Channel[T] {
	return NewHandoff[T](opts...)
}
