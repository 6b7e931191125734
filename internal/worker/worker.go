// Package worker turns dispatcher commands into race engine calls and
// storage writes.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/trackday/racer/internal/cache"
	"github.com/trackday/racer/internal/channel"
	"github.com/trackday/racer/internal/config"
	"github.com/trackday/racer/internal/logging"
	"github.com/trackday/racer/internal/model"
	"github.com/trackday/racer/internal/parser"
	"github.com/trackday/racer/internal/physics"
	"github.com/trackday/racer/internal/race"
	"github.com/trackday/racer/internal/session"
	"github.com/trackday/racer/internal/steering"
	"github.com/trackday/racer/internal/storage"
	"github.com/trackday/racer/pkg/core"
)

var (
	// ErrNoRace is returned by commands that need a race before :RACE:NEW:.
	ErrNoRace = errors.New("no race in progress")
	// ErrLoopRunning is returned when stepping by hand while the frame loop runs.
	ErrLoopRunning = errors.New("race loop is running")
	// ErrTooManyFrames is returned by :RACE:STEP: above Race.MaxStepFrames.
	ErrTooManyFrames = errors.New("too many frames in one step")
)

// DefaultMaxStepFrames is used when Race.MaxStepFrames is not set.
const DefaultMaxStepFrames = 100000

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	ActorCache *cache.ActorCache
	LogManager *logging.SlogManager
	Parser     *parser.Parser
	Session    *session.Context

	// Telemetry receives every recorded frame. Optional.
	Telemetry     race.Telemetry
	MeterProvider metric.MeterProvider

	Race     config.RaceConfig
	Steering steering.Params
	Physics  physics.Params

	Version string
	Build   string

	// OnSave runs after :SAVE: ended the race in storage.
	OnSave func(ctx context.Context) error
}

// run is the state of one race.
type run struct {
	engine   *race.Engine
	frames   channel.Channel[core.Frame]
	recorder *race.Recorder
	race     *core.Race
	track    *core.Track

	cancel   context.CancelFunc
	loopDone chan struct{}
}

// Manager owns the current race and routes commands to it.
type Manager struct {
	deps    Dependencies
	backend storage.Backend

	mu  sync.Mutex
	cur *run
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	if deps.ActorCache == nil {
		deps.ActorCache = cache.NewActorCache()
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.Parser == nil {
		deps.Parser = parser.NewParser(deps.LogManager.Logger(), deps.Version, deps.Build)
	}
	if deps.Session == nil {
		deps.Session = session.NewContext()
	}
	if deps.Race.FrameBuffer <= 0 {
		deps.Race.FrameBuffer = 1000
	}
	if deps.Race.MaxStepFrames <= 0 {
		deps.Race.MaxStepFrames = DefaultMaxStepFrames
	}
	return &Manager{
		deps:    deps,
		backend: backend,
	}
}

// Status is a point-in-time view of the current race.
type Status struct {
	Active          bool
	Running         bool
	RaceName        string
	Frame           uint
	Elapsed         time.Duration
	Actors          int
	RecorderPending int
	FramesDropped   uint64
	Standings       []core.Standing
}

// Status reports on the current race.
func (m *Manager) Status() Status {
	m.mu.Lock()
	cur := m.cur
	running := cur != nil && cur.running()
	m.mu.Unlock()

	if cur == nil {
		return Status{}
	}
	return Status{
		Active:          true,
		Running:         running,
		RaceName:        cur.race.Name,
		Frame:           cur.engine.Frame(),
		Elapsed:         cur.engine.Elapsed(),
		Actors:          cur.engine.ActorCount(),
		RecorderPending: cur.recorder.Pending(),
		FramesDropped:   cur.frames.Stats().Dropped,
		Standings:       cur.engine.Standings(),
	}
}

// RaceID returns the storage ID of the current race, 0 without one.
func (m *Manager) RaceID() uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return 0
	}
	return m.cur.race.ID
}

// GetLastDBWriteDuration returns the duration of the last DB write cycle.
// Returns 0 if the backend doesn't support this metric.
func (m *Manager) GetLastDBWriteDuration() time.Duration {
	if p, ok := m.backend.(storage.WriterStats); ok {
		return p.GetLastDBWriteDuration()
	}
	return 0
}

// QueueLengths returns the backend write backlog, zero if it has none.
func (m *Manager) QueueLengths() model.WriteQueueLengths {
	if p, ok := m.backend.(storage.WriterStats); ok {
		return p.QueueLengths()
	}
	return model.WriteQueueLengths{}
}

// Shutdown ends a race still in progress.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	active := m.cur != nil
	m.mu.Unlock()
	if !active {
		return nil
	}
	_, err := m.save(ctx)
	return err
}
