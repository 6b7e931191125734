package influx

import (
	"strconv"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/trackday/racer/internal/model"
	"github.com/trackday/racer/pkg/core"
)

// RaceNamer reports the race the frames belong to. session.Context satisfies it.
type RaceNamer interface {
	GetRace() *core.Race
}

// Telemetry writes recorded frames to the race_telemetry bucket.
type Telemetry struct {
	m    *Manager
	race RaceNamer
}

// NewTelemetry creates a frame writer on m. race may be nil.
func NewTelemetry(m *Manager, race RaceNamer) *Telemetry {
	return &Telemetry{m: m, race: race}
}

// WriteFrame writes one actor_state point per actor and one lap point per
// completed lap. Failures are logged, the race is never held up.
func (t *Telemetry) WriteFrame(f core.Frame) {
	name := ""
	if t.race != nil {
		if r := t.race.GetRace(); r != nil {
			name = r.Name
		}
	}
	for _, p := range FramePoints(f, name) {
		if err := t.m.WritePoint(BucketTelemetry, p); err != nil {
			t.m.Logger.Error().Err(err).Uint("frame", f.Number).Msg("Failed to write telemetry")
			return
		}
	}
}

// FramePoints converts a frame to InfluxDB points.
func FramePoints(f core.Frame, raceName string) []*influxdb2_write.Point {
	points := make([]*influxdb2_write.Point, 0, len(f.States)+len(f.Laps))
	for _, s := range f.States {
		points = append(points, influxdb2_write.NewPoint(
			"actor_state",
			map[string]string{
				"race":  raceName,
				"actor": actorTag(s.ActorID),
			},
			map[string]any{
				"frame":    int64(f.Number),
				"x":        s.Position.X,
				"y":        s.Position.Y,
				"heading":  s.Heading,
				"speed":    s.Speed,
				"waypoint": s.Waypoint,
				"laps":     s.Laps,
			},
			s.Time,
		))
	}
	for _, l := range f.Laps {
		points = append(points, influxdb2_write.NewPoint(
			"lap",
			map[string]string{
				"race":  raceName,
				"actor": actorTag(l.ActorID),
			},
			map[string]any{
				"lap":     l.Lap,
				"lapMs":   l.LapTime.Milliseconds(),
				"totalMs": l.TotalTime.Milliseconds(),
			},
			l.Time,
		))
	}
	return points
}

// PerformancePoint converts a monitor sample for the racer_performance bucket.
func PerformancePoint(p model.RacerPerformance) *influxdb2_write.Point {
	ts := p.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	return influxdb2_write.NewPoint(
		"racer_performance",
		map[string]string{},
		map[string]any{
			"frame":               int64(p.Frame),
			"actors":              int(p.Actors),
			"recorderPending":     int64(p.RecorderPending),
			"queueActors":         int64(p.WriteQueueLengths.Actors),
			"queueActorStates":    int64(p.WriteQueueLengths.ActorStates),
			"queueLapEvents":      int64(p.WriteQueueLengths.LapEvents),
			"lastWriteDurationMs": p.LastWriteDurationMs,
		},
		ts,
	)
}

func actorTag(id uint16) string {
	return strconv.FormatUint(uint64(id), 10)
}
