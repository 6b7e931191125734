package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/trackday/racer/internal/channel"
	"github.com/trackday/racer/internal/dispatcher"
	"github.com/trackday/racer/internal/race"
	"github.com/trackday/racer/internal/storage"
	"github.com/trackday/racer/internal/track"
	"github.com/trackday/racer/pkg/core"
)

// Commands handled by the manager.
const (
	CmdNewRace   = ":RACE:NEW:"
	CmdNewActor  = ":ACTOR:NEW:"
	CmdControl   = ":ACTOR:CONTROL:"
	CmdStep      = ":RACE:STEP:"
	CmdStart     = ":RACE:START:"
	CmdStop      = ":RACE:STOP:"
	CmdStandings = ":RACE:STANDINGS:"
	CmdSave      = ":SAVE:"
	CmdVersion   = ":VERSION:"
)

// RegisterHandlers registers all command handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Race lifecycle - sync, later commands depend on it
	d.Register(CmdNewRace, m.handleNewRace, dispatcher.Logged())
	d.Register(CmdNewActor, m.handleNewActor, dispatcher.Logged())
	d.Register(CmdStart, m.handleStart, dispatcher.Logged())
	d.Register(CmdStop, m.handleStop, dispatcher.Logged())
	d.Register(CmdSave, m.handleSave, dispatcher.Logged())

	// Player input - buffered, one per frame per player
	d.Register(CmdControl, m.handleControls, dispatcher.Buffered(1000))

	d.Register(CmdStep, m.handleStep)
	d.Register(CmdStandings, m.handleStandings)
	d.Register(CmdVersion, m.handleVersion)
}

func (m *Manager) handleNewRace(e dispatcher.Event) (any, error) {
	req, err := m.deps.Parser.ParseRace(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to create race: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	logger := m.deps.LogManager.Logger()
	if m.cur != nil {
		logger.Warn("New race while another is in progress, saving it", "race", m.cur.race.Name)
		if _, err := m.saveLocked(context.Background()); err != nil {
			logger.Error("Failed to save previous race", "error", err)
		}
	}

	trackFile := req.TrackFile
	if trackFile == "" {
		trackFile = m.deps.Race.TrackFile
	}
	t := track.Default()
	if trackFile != "" {
		if t, err = track.Load(trackFile); err != nil {
			return nil, fmt.Errorf("failed to create race: %w", err)
		}
	}

	cfg := race.Config{
		FrameRate:  m.deps.Race.FrameRate,
		TargetLaps: req.Race.TargetLaps,
		Steering:   m.deps.Steering,
		Physics:    m.deps.Physics,
	}
	if cfg.TargetLaps == 0 {
		cfg.TargetLaps = m.deps.Race.TargetLaps
	}

	var chOpts []channel.Option
	if m.deps.Race.DropFrames {
		chOpts = append(chOpts, channel.DropWhenFull())
	}
	frames := channel.New[core.Frame](m.deps.Race.FrameBuffer, chOpts...)
	engine, err := race.New(t, cfg, race.Dependencies{
		Logger:        logger,
		Frames:        frames,
		MeterProvider: m.deps.MeterProvider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create race: %w", err)
	}

	r := req.Race
	r.FrameRate = engine.Config().FrameRate
	r.TargetLaps = cfg.TargetLaps
	if err := m.backend.StartRace(&r, &t); err != nil {
		return nil, fmt.Errorf("failed to start race in storage: %w", err)
	}

	recorder := race.NewRecorder(frames, m.backend, m.deps.Telemetry, logger)
	recorder.Start()

	m.deps.ActorCache.Reset()
	m.deps.Session.SetRace(&r, &t)
	m.cur = &run{
		engine:   engine,
		frames:   frames,
		recorder: recorder,
		race:     &r,
		track:    &t,
	}

	logger.Info("Race created", "race", r.Name, "track", t.Name, "waypoints", t.Waypoints.Len(), "targetLaps", r.TargetLaps)
	return r.ID, nil
}

func (m *Manager) handleNewActor(e dispatcher.Event) (any, error) {
	spec, err := m.deps.Parser.ParseActor(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to add actor: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return nil, ErrNoRace
	}

	a, err := m.cur.engine.AddActor(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to add actor: %w", err)
	}
	m.deps.ActorCache.Add(a)
	if err := m.backend.AddActor(&a); err != nil {
		return nil, fmt.Errorf("failed to record actor %d: %w", a.ID, err)
	}
	return a.ID, nil
}

func (m *Manager) handleControls(e dispatcher.Event) (any, error) {
	id, controls, err := m.deps.Parser.ParseControls(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to set controls: %w", err)
	}

	a, ok := m.deps.ActorCache.Get(id)
	if !ok {
		return nil, fmt.Errorf("failed to set controls: %w: %d", race.ErrUnknownActor, id)
	}
	if a.Kind != core.KindPlayer {
		return nil, fmt.Errorf("failed to set controls: %w: %d", race.ErrNotPlayer, id)
	}

	engine, err := m.engine()
	if err != nil {
		return nil, err
	}
	if err := engine.SetControls(id, controls); err != nil {
		return nil, fmt.Errorf("failed to set controls: %w", err)
	}
	return nil, nil
}

func (m *Manager) handleStep(e dispatcher.Event) (any, error) {
	n, err := m.deps.Parser.ParseSteps(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to step race: %w", err)
	}
	if n > m.deps.Race.MaxStepFrames {
		return nil, fmt.Errorf("failed to step race: %w: %d > %d", ErrTooManyFrames, n, m.deps.Race.MaxStepFrames)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return nil, ErrNoRace
	}
	if m.cur.running() {
		return nil, ErrLoopRunning
	}
	if _, err := m.cur.engine.RunFrames(context.Background(), n); err != nil {
		return nil, fmt.Errorf("failed to step race: %w", err)
	}
	return m.cur.engine.Frame(), nil
}

func (m *Manager) handleStart(_ dispatcher.Event) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return nil, ErrNoRace
	}
	if m.cur.running() {
		return nil, ErrLoopRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	engine := m.cur.engine
	logger := m.deps.LogManager.Logger()
	go func() {
		defer close(done)
		if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Race loop failed", "error", err)
		}
	}()

	m.cur.cancel = cancel
	m.cur.loopDone = done
	return nil, nil
}

func (m *Manager) handleStop(_ dispatcher.Event) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return nil, ErrNoRace
	}
	m.cur.stop()
	return m.cur.engine.Frame(), nil
}

func (m *Manager) handleStandings(_ dispatcher.Event) (any, error) {
	engine, err := m.engine()
	if err != nil {
		return nil, err
	}
	return engine.Standings(), nil
}

func (m *Manager) handleSave(_ dispatcher.Event) (any, error) {
	return m.save(context.Background())
}

func (m *Manager) handleVersion(_ dispatcher.Event) (any, error) {
	return []string{m.deps.Version, m.deps.Build}, nil
}

func (m *Manager) engine() (*race.Engine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return nil, ErrNoRace
	}
	return m.cur.engine, nil
}

func (m *Manager) save(ctx context.Context) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked(ctx)
}

// saveLocked stops the loop, drains the recorder and ends the race in
// storage. It returns the exported file path when the backend writes one.
func (m *Manager) saveLocked(ctx context.Context) (any, error) {
	if m.cur == nil {
		return nil, ErrNoRace
	}
	cur := m.cur
	m.cur = nil

	cur.stop()
	cur.frames.Close()
	select {
	case <-cur.recorder.Done():
	case <-ctx.Done():
		return nil, fmt.Errorf("failed to drain recorder: %w", ctx.Err())
	}

	m.deps.Session.End()
	if err := m.backend.EndRace(); err != nil {
		return nil, fmt.Errorf("failed to end race in storage: %w", err)
	}

	m.deps.LogManager.Logger().Info("Race saved",
		"race", cur.race.Name,
		"frames", cur.engine.Frame(),
		"recorded", cur.recorder.Recorded(),
		"dropped", cur.frames.Stats().Dropped,
		"failed", cur.recorder.Failed(),
	)

	if m.deps.OnSave != nil {
		if err := m.deps.OnSave(ctx); err != nil {
			return nil, fmt.Errorf("post-save hook failed: %w", err)
		}
	}

	if u, ok := m.backend.(storage.Uploadable); ok {
		return u.GetExportedFilePath(), nil
	}
	return "", nil
}

func (r *run) running() bool {
	if r.loopDone == nil {
		return false
	}
	select {
	case <-r.loopDone:
		return false
	default:
		return true
	}
}

// stop cancels the frame loop and waits for it to return.
func (r *run) stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.loopDone
	r.cancel = nil
	r.loopDone = nil
}
