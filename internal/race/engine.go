// Package race drives every actor on a track one frame at a time.
package race

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/trackday/racer/internal/channel"
	"github.com/trackday/racer/internal/clock"
	"github.com/trackday/racer/internal/physics"
	"github.com/trackday/racer/internal/steering"
	"github.com/trackday/racer/pkg/core"
)

var (
	// ErrUnknownActor is returned for an actor ID not in the race.
	ErrUnknownActor = errors.New("unknown actor")
	// ErrNotPlayer is returned when controls are sent to an AI actor.
	ErrNotPlayer = errors.New("actor is not player controlled")
	// ErrTooManyActors is returned once every actor ID is taken.
	ErrTooManyActors = errors.New("too many actors")
)

// DefaultFrameRate is used when Config.FrameRate is unset.
const DefaultFrameRate = 60.0

// Config tunes an Engine.
type Config struct {
	FrameRate  float64
	TargetLaps int // 0 races forever
	Steering   steering.Params
	Physics    physics.Params
}

// Dependencies holds the collaborators of an Engine. All fields are optional.
type Dependencies struct {
	Logger        *slog.Logger
	Frames        channel.Sender[core.Frame]
	MeterProvider metric.MeterProvider
}

type lapClock struct {
	start    time.Duration
	best     time.Duration
	last     time.Duration
	finished bool
}

// Engine owns the race state. Its methods are safe for concurrent use;
// updates themselves run strictly one actor after another.
type Engine struct {
	// stepMu serializes Step so frames are published in frame order. mu is
	// released before publishing, so readers are not held up by a full
	// frame channel.
	stepMu   sync.Mutex
	mu       sync.Mutex
	cfg      Config
	deps     Dependencies
	track    core.Track
	actors   []core.Actor
	controls map[uint16]core.Controls
	laps     map[uint16]*lapClock
	clock    *clock.FrameClock
	nextID   uint16
	metrics  *engineMetrics
}

// New creates an engine racing on t.
func New(t core.Track, cfg Config, deps Dependencies) (*Engine, error) {
	if t.Waypoints.Len() == 0 {
		return nil, fmt.Errorf("track %q has no waypoints", t.Name)
	}
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = DefaultFrameRate
	}
	if cfg.TargetLaps < 0 {
		return nil, fmt.Errorf("targetLaps must not be negative, got %d", cfg.TargetLaps)
	}
	if err := cfg.Steering.Validate(); err != nil {
		return nil, err
	}
	if cfg.Physics.Friction < 0 {
		return nil, fmt.Errorf("friction must not be negative, got %v", cfg.Physics.Friction)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	e := &Engine{
		cfg:      cfg,
		deps:     deps,
		track:    t,
		controls: make(map[uint16]core.Controls),
		laps:     make(map[uint16]*lapClock),
		clock:    clock.NewFrameClock(time.Duration(float64(time.Second) / cfg.FrameRate)),
	}

	m, err := newEngineMetrics(deps.MeterProvider, e)
	if err != nil {
		return nil, err
	}
	e.metrics = m
	return e, nil
}

// Track returns the track being raced.
func (e *Engine) Track() core.Track {
	return e.track
}

// Config returns the engine configuration with defaults applied.
func (e *Engine) Config() Config {
	return e.cfg
}

// AddActor validates spec and adds the actor with the next free ID.
func (e *Engine) AddActor(spec core.ActorSpec) (core.Actor, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.nextID == ^uint16(0) {
		return core.Actor{}, ErrTooManyActors
	}
	a, err := core.NewActor(e.nextID, spec, e.track.Waypoints.Len())
	if err != nil {
		return core.Actor{}, err
	}
	e.nextID++
	e.actors = append(e.actors, a)
	e.laps[a.ID] = &lapClock{start: e.clock.Elapsed()}

	e.deps.Logger.Info("actor joined",
		"id", a.ID, "name", a.Name, "kind", a.Kind, "waypoint", a.Waypoint)
	return a, nil
}

// SetControls stores the input applied to player actor id on later steps.
func (e *Engine) SetControls(id uint16, c core.Controls) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, ok := e.find(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownActor, id)
	}
	if a.Kind != core.KindPlayer {
		return fmt.Errorf("%w: %d", ErrNotPlayer, id)
	}
	e.controls[id] = c
	return nil
}

// Actor returns a copy of actor id.
func (e *Engine) Actor(id uint16) (core.Actor, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.find(id)
}

// Actors returns a copy of all actors in ID order.
func (e *Engine) Actors() []core.Actor {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]core.Actor, len(e.actors))
	copy(out, e.actors)
	return out
}

// ActorCount returns the number of actors in the race.
func (e *Engine) ActorCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.actors)
}

// Frame returns the number of frames stepped so far.
func (e *Engine) Frame() uint {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.Frame()
}

// Elapsed returns the race time derived from the frame count.
func (e *Engine) Elapsed() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.Elapsed()
}

// Finished reports whether every actor has completed TargetLaps.
func (e *Engine) Finished() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.finished()
}

func (e *Engine) finished() bool {
	if e.cfg.TargetLaps == 0 || len(e.actors) == 0 {
		return false
	}
	for _, lc := range e.laps {
		if !lc.finished {
			return false
		}
	}
	return true
}

func (e *Engine) find(id uint16) (core.Actor, bool) {
	for _, a := range e.actors {
		if a.ID == id {
			return a, true
		}
	}
	return core.Actor{}, false
}

// Step runs one update pass over all actors and publishes the resulting frame.
// Concurrent callers are serialized.
func (e *Engine) Step() core.Frame {
	e.stepMu.Lock()
	defer e.stepMu.Unlock()
	start := time.Now()

	e.mu.Lock()
	frame := e.step()
	e.mu.Unlock()

	ctx := context.Background()
	e.metrics.frames.Add(ctx, 1)
	e.metrics.stepTime.Record(ctx, float64(time.Since(start).Microseconds())/1000)
	for _, lap := range frame.Laps {
		e.metrics.laps.Add(ctx, 1, metric.WithAttributes(attribute.Int("actor", int(lap.ActorID))))
	}

	if e.deps.Frames != nil {
		e.deps.Frames.Send(frame)
	}
	return frame
}

func (e *Engine) step() core.Frame {
	n := e.clock.Tick()
	elapsed := e.clock.Elapsed()
	now := time.Now()
	path := e.track.Waypoints

	frame := core.Frame{
		Number:  n,
		Elapsed: elapsed,
		States:  make([]core.ActorState, 0, len(e.actors)),
	}

	for i, a := range e.actors {
		lc := e.laps[a.ID]
		if !lc.finished {
			lapsBefore := a.Laps
			switch a.Kind {
			case core.KindPlayer:
				a = physics.ApplyControls(a, e.controls[a.ID], e.cfg.Physics)
				a = playerProgress(a, path, e.cfg.Steering.ArrivalThreshold)
			default:
				a = steering.Step(a, path, e.cfg.Steering)
			}
			a = physics.Integrate(a)

			if a.Laps > lapsBefore {
				lap := e.completeLap(a, lc, n, now, elapsed)
				frame.Laps = append(frame.Laps, lap)
			}
			e.actors[i] = a
		}
		frame.States = append(frame.States, core.StateOf(a, n, now, elapsed))
	}
	return frame
}

// playerProgress tracks waypoint progress for a manually driven actor. Players
// are not steered, but they still pass waypoints and complete laps.
func playerProgress(a core.Actor, path core.Path, threshold float64) core.Actor {
	if a.Position.DistanceTo(path.At(a.Waypoint)) < threshold {
		a.Waypoint, a.Laps = steering.Advance(a.Waypoint, a.Laps, path.Len())
	}
	return a
}

func (e *Engine) completeLap(a core.Actor, lc *lapClock, frame uint, now time.Time, elapsed time.Duration) core.LapEvent {
	lapTime := elapsed - lc.start
	lc.start = elapsed
	lc.last = lapTime
	if lc.best == 0 || lapTime < lc.best {
		lc.best = lapTime
	}
	if e.cfg.TargetLaps > 0 && a.Laps >= e.cfg.TargetLaps {
		lc.finished = true
		e.deps.Logger.Info("actor finished",
			"id", a.ID, "name", a.Name, "laps", a.Laps, "time", elapsed)
	}
	return core.LapEvent{
		ActorID:   a.ID,
		Frame:     frame,
		Time:      now,
		Lap:       a.Laps,
		LapTime:   lapTime,
		TotalTime: elapsed,
	}
}

// Run steps the race at the configured frame rate until ctx is cancelled or
// the race is finished. It returns ctx.Err() on cancellation and nil when the
// race finished.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.clock.Interval)
	defer ticker.Stop()

	e.deps.Logger.Info("race loop started", "frameRate", e.cfg.FrameRate, "targetLaps", e.cfg.TargetLaps)
	for {
		select {
		case <-ctx.Done():
			e.deps.Logger.Info("race loop stopped", "frame", e.Frame())
			return ctx.Err()
		case <-ticker.C:
			e.Step()
			if e.Finished() {
				e.deps.Logger.Info("race finished", "frame", e.Frame(), "elapsed", e.Elapsed())
				return nil
			}
		}
	}
}

// RunFrames steps exactly n frames without waiting on the ticker, stopping
// early if the race finishes or ctx is cancelled. It returns the number of
// frames stepped.
func (e *Engine) RunFrames(ctx context.Context, n int) (int, error) {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if e.Finished() {
			return i, nil
		}
		e.Step()
	}
	return n, nil
}
