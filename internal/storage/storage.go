// Package storage defines the recording backend contract and builds the
// configured backend.
package storage

import (
	"time"

	"github.com/trackday/racer/internal/model"
	"github.com/trackday/racer/pkg/core"
)

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Race management; StartRace may assign IDs to race and track
	StartRace(race *core.Race, track *core.Track) error
	EndRace() error

	AddActor(a *core.Actor) error

	// Per-frame recording
	RecordActorState(s *core.ActorState) error
	RecordLapEvent(e *core.LapEvent) error
}

// Uploadable is an optional interface for storage backends that produce
// a replay file suitable for upload to the race web frontend.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}

// WriterStats is an optional interface for backends with a write queue.
type WriterStats interface {
	GetLastDBWriteDuration() time.Duration
	QueueLengths() model.WriteQueueLengths
}
