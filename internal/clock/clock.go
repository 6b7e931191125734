// Package clock provides the race stopwatch and the deterministic frame clock.
package clock

import (
	"fmt"
	"sync"
	"time"
)

// Stopwatch measures wall-clock race time. It is safe for concurrent use.
type Stopwatch struct {
	mu      sync.Mutex
	now     func() time.Time
	started time.Time
	total   time.Duration
	running bool
}

// NewStopwatch returns a stopped stopwatch. A nil now uses time.Now.
func NewStopwatch(now func() time.Time) *Stopwatch {
	if now == nil {
		now = time.Now
	}
	return &Stopwatch{now: now}
}

// Start resumes the stopwatch. Starting a running stopwatch is a no-op.
func (s *Stopwatch) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.started = s.now()
	s.running = true
}

// Stop pauses the stopwatch, keeping the elapsed time.
func (s *Stopwatch) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.total += s.now().Sub(s.started)
	s.running = false
}

// Reset stops the stopwatch and clears the elapsed time.
func (s *Stopwatch) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total = 0
	s.running = false
}

// Elapsed returns the accumulated running time.
func (s *Stopwatch) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return s.total + s.now().Sub(s.started)
	}
	return s.total
}

// Running reports whether the stopwatch is counting.
func (s *Stopwatch) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// FormatElapsed renders d as HH:MM:SS. Hours are not wrapped at 24.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs/60%60, secs%60)
}

// FormatLap renders a lap time as MM:SS.mmm, or "-" when no lap was set.
// Minutes are not wrapped at 60.
func FormatLap(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d.%03d", ms/60000, ms/1000%60, ms%1000)
}

// FrameClock derives race time from a frame count so results do not depend
// on how fast frames are actually computed.
type FrameClock struct {
	Interval time.Duration
	frame    uint
}

// NewFrameClock returns a clock advancing by interval per frame.
func NewFrameClock(interval time.Duration) *FrameClock {
	return &FrameClock{Interval: interval}
}

// Tick advances one frame and returns the new frame number.
func (c *FrameClock) Tick() uint {
	c.frame++
	return c.frame
}

// Frame returns the current frame number.
func (c *FrameClock) Frame() uint {
	return c.frame
}

// Elapsed returns frame × interval.
func (c *FrameClock) Elapsed() time.Duration {
	return time.Duration(c.frame) * c.Interval
}

// Reset rewinds to frame 0.
func (c *FrameClock) Reset() {
	c.frame = 0
}
