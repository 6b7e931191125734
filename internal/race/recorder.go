package race

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/trackday/racer/internal/channel"
	"github.com/trackday/racer/pkg/core"
)

// Sink receives per-frame race output. storage.Backend implementations satisfy it.
type Sink interface {
	RecordActorState(s *core.ActorState) error
	RecordLapEvent(e *core.LapEvent) error
}

// Telemetry receives whole frames for metrics export.
type Telemetry interface {
	WriteFrame(f core.Frame)
}

// Recorder drains frames published by an Engine into a Sink and an optional
// Telemetry writer.
type Recorder struct {
	frames    channel.Receiver[core.Frame]
	sink      Sink
	telemetry Telemetry
	logger    *slog.Logger

	recorded atomic.Uint64
	failed   atomic.Uint64
	done     chan struct{}
	once     sync.Once
}

// NewRecorder creates a recorder. sink and telemetry may be nil.
func NewRecorder(frames channel.Receiver[core.Frame], sink Sink, telemetry Telemetry, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		frames:    frames,
		sink:      sink,
		telemetry: telemetry,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start runs the recorder in its own goroutine until the frame channel is closed.
func (r *Recorder) Start() {
	r.once.Do(func() {
		go r.loop()
	})
}

// Done is closed once the frame channel was closed and fully drained.
func (r *Recorder) Done() <-chan struct{} {
	return r.done
}

// Pending returns the number of frames waiting to be recorded.
func (r *Recorder) Pending() int {
	return r.frames.Len()
}

// Recorded returns the number of frames handled so far.
func (r *Recorder) Recorded() uint64 {
	return r.recorded.Load()
}

// Failed returns the number of records the sink rejected.
func (r *Recorder) Failed() uint64 {
	return r.failed.Load()
}

func (r *Recorder) loop() {
	defer close(r.done)
	for f := range r.frames.Receive() {
		r.record(f)
	}
}

func (r *Recorder) record(f core.Frame) {
	if r.sink != nil {
		for i := range f.States {
			if err := r.sink.RecordActorState(&f.States[i]); err != nil {
				r.failed.Add(1)
				r.logger.Error("failed to record actor state", "frame", f.Number, "actor", f.States[i].ActorID, "error", err)
			}
		}
		for i := range f.Laps {
			if err := r.sink.RecordLapEvent(&f.Laps[i]); err != nil {
				r.failed.Add(1)
				r.logger.Error("failed to record lap", "frame", f.Number, "actor", f.Laps[i].ActorID, "error", err)
			}
		}
	}
	if r.telemetry != nil {
		r.telemetry.WriteFrame(f)
	}
	r.recorded.Add(1)
}
