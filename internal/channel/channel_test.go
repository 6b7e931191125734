package channel

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffered_BlocksUntilDrained(t *testing.T) {
	b := NewBuffered[int](2)
	require.True(t, b.Send(1))
	require.True(t, b.Send(2))
	assert.Equal(t, 2, b.Len())

	sent := make(chan struct{})
	go func() {
		b.Send(3)
		close(sent)
	}()

	select {
	case <-sent:
		t.Fatal("Send returned while the buffer was full")
	case <-time.After(50 * time.Millisecond):
	}

	assert.Equal(t, 1, <-b.Receive())
	<-sent

	b.Close()
	var rest []int
	for v := range b.Receive() {
		rest = append(rest, v)
	}
	assert.Equal(t, []int{2, 3}, rest)
	assert.Equal(t, Stats{Sent: 3, Peak: 2}, b.Stats())
}

func TestBuffered_DropWhenFull(t *testing.T) {
	b := NewBuffered[string](1, DropWhenFull())
	assert.True(t, b.Send("a"))
	assert.False(t, b.Send("b"))
	assert.False(t, b.Send("c"))

	assert.Equal(t, "a", <-b.Receive())
	assert.True(t, b.Send("d"))

	st := b.Stats()
	assert.Equal(t, uint64(2), st.Sent)
	assert.Equal(t, uint64(2), st.Dropped)
	assert.Equal(t, 1, st.Peak)
}

func TestBuffered_MinimumSizeAndDoubleClose(t *testing.T) {
	b := NewBuffered[int](0)
	assert.Equal(t, 1, b.Cap())
	b.Close()
	assert.NotPanics(t, b.Close)
}

func TestHandoff(t *testing.T) {
	h := NewHandoff[int]()
	var wg sync.WaitGroup
	wg.Add(1)
	var got []int
	go func() {
		defer wg.Done()
		for v := range h.Receive() {
			got = append(got, v)
		}
	}()

	for i := 0; i < 5; i++ {
		assert.True(t, h.Send(i))
	}
	h.Close()
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
	assert.Equal(t, 0, h.Len())
	assert.Equal(t, Stats{Sent: 5}, h.Stats())
}

func TestHandoff_DropWithoutReceiver(t *testing.T) {
	h := NewHandoff[int](DropWhenFull())
	assert.False(t, h.Send(1))
	assert.Equal(t, uint64(1), h.Stats().Dropped)
}
