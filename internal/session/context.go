// Package session tracks the race currently being recorded.
package session

import (
	"log/slog"
	"sync"

	"github.com/trackday/racer/pkg/core"
)

// Context holds the current race and track.
type Context struct {
	mu     sync.RWMutex
	race   *core.Race
	track  *core.Track
	active bool
}

// NewContext creates a new Context with placeholder values
func NewContext() *Context {
	return &Context{
		race:  &core.Race{Name: "No race loaded"},
		track: &core.Track{Name: "No track loaded"},
	}
}

// GetRace returns the current race
func (c *Context) GetRace() *core.Race {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.race
}

// GetTrack returns the current track
func (c *Context) GetTrack() *core.Track {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.track
}

// SetRace sets the current race and track and marks the session active.
func (c *Context) SetRace(race *core.Race, track *core.Track) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.race = race
	c.track = track
	c.active = true
}

// End marks the session inactive. The last race stays readable.
func (c *Context) End() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = false
}

// Active reports whether a race is in progress.
func (c *Context) Active() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// LogAttrs returns the attributes that identify the current race in log
// records. It plugs into logging.ContextHandler.
func (c *Context) LogAttrs() []slog.Attr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.active {
		return nil
	}
	return []slog.Attr{
		slog.Uint64("raceId", uint64(c.race.ID)),
		slog.String("raceName", c.race.Name),
		slog.String("track", c.track.Name),
	}
}
