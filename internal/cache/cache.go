package cache

import (
	"sync"

	"github.com/trackday/racer/pkg/core"
)

// ActorCache caches actors when they join. :ACTOR:CONTROL: checks IDs and
// kinds against it before touching the engine, and the monitor reads names
// and kinds from it.
type ActorCache struct {
	m      sync.RWMutex
	actors map[uint16]core.Actor
}

func NewActorCache() *ActorCache {
	return &ActorCache{
		actors: make(map[uint16]core.Actor),
	}
}

func (c *ActorCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.actors = make(map[uint16]core.Actor)
}

func (c *ActorCache) Add(a core.Actor) {
	c.m.Lock()
	defer c.m.Unlock()
	c.actors[a.ID] = a
}

func (c *ActorCache) Get(id uint16) (core.Actor, bool) {
	c.m.RLock()
	defer c.m.RUnlock()
	a, ok := c.actors[id]
	return a, ok
}

func (c *ActorCache) Len() int {
	c.m.RLock()
	defer c.m.RUnlock()
	return len(c.actors)
}
