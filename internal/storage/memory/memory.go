// Package memory keeps a race in RAM and writes it as a v1 JSON replay when
// the race ends.
package memory

import (
	"errors"
	"sync"

	"github.com/trackday/racer/internal/config"
	v1 "github.com/trackday/racer/internal/storage/memory/export/v1"
	"github.com/trackday/racer/pkg/core"
)

// ErrNoRace is returned when data arrives before StartRace.
var ErrNoRace = errors.New("no race started")

// Backend stores race data in memory and exports to JSON
type Backend struct {
	cfg   config.MemoryConfig
	race  *core.Race
	track *core.Track

	actors map[uint16]*v1.ActorRecord
	laps   []core.LapEvent

	lastExportPath     string
	lastExportMetadata core.UploadMetadata

	mu sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:    cfg,
		actors: make(map[uint16]*v1.ActorRecord),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartRace begins recording a new race, dropping anything recorded before.
func (b *Backend) StartRace(race *core.Race, track *core.Track) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.race = race
	b.track = track
	b.actors = make(map[uint16]*v1.ActorRecord)
	b.laps = nil
	return nil
}

// EndRace exports the race to disk and forgets it.
func (b *Backend) EndRace() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.race == nil {
		return ErrNoRace
	}
	if err := b.exportJSON(); err != nil {
		return err
	}
	b.race = nil
	return nil
}

// AddActor registers an actor
func (b *Backend) AddActor(a *core.Actor) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.race == nil {
		return ErrNoRace
	}
	b.actors[a.ID] = &v1.ActorRecord{
		Actor:  *a,
		States: make([]core.ActorState, 0),
	}
	return nil
}

// RecordActorState appends a state to its actor. States of unknown actors
// are ignored.
func (b *Backend) RecordActorState(s *core.ActorState) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if record, ok := b.actors[s.ActorID]; ok {
		record.States = append(record.States, *s)
	}
	return nil
}

// RecordLapEvent records a completed lap
func (b *Backend) RecordLapEvent(e *core.LapEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.race == nil {
		return ErrNoRace
	}
	b.laps = append(b.laps, *e)
	return nil
}

// GetActor returns the recorded actor and its state count.
func (b *Backend) GetActor(id uint16) (core.Actor, int, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	record, ok := b.actors[id]
	if !ok {
		return core.Actor{}, 0, false
	}
	return record.Actor, len(record.States), true
}

// LapEvents returns a copy of the recorded laps.
func (b *Backend) LapEvents() []core.LapEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.LapEvent(nil), b.laps...)
}
