package convert

import (
	"encoding/json"
	"time"

	"github.com/peterstace/simplefeatures/geom"
	"github.com/trackday/racer/internal/geo"
	"github.com/trackday/racer/internal/model"
	"github.com/trackday/racer/pkg/core"
)

func lineStringToPath(ls geom.LineString) core.Path {
	seq := ls.Coordinates()
	n := seq.Length()
	if n == 0 {
		return core.Path{}
	}
	points := make([]core.Position3D, n)
	for i := 0; i < n; i++ {
		c := seq.Get(i)
		points[i] = core.Position3D{X: c.X, Y: c.Y, Z: c.Z}
	}
	return core.NewPath(points)
}

// TrackToCore converts a GORM model.Track to a core.Track.
func TrackToCore(t model.Track) core.Track {
	return core.Track{
		ID:        t.ID,
		Name:      t.Name,
		Closed:    t.Closed,
		Waypoints: lineStringToPath(t.Waypoints),
		Length:    t.Length,
		Origin:    geo.PositionFromPoint(t.Origin),
		CRS:       t.CRS,
	}
}

// RaceToCore converts a GORM model.Race to a core.Race.
func RaceToCore(r model.Race) core.Race {
	return core.Race{
		ID:           r.ID,
		Name:         r.Name,
		TrackID:      r.TrackID,
		StartTime:    r.StartTime,
		TargetLaps:   r.TargetLaps,
		FrameRate:    r.FrameRate,
		Tag:          r.Tag,
		RacerVersion: r.RacerVersion,
		RacerBuild:   r.RacerBuild,
	}
}

// ActorToCore converts a GORM model.Actor to a core.Actor placed at the
// origin. The live state of an actor is in its ActorStates.
func ActorToCore(a model.Actor) core.Actor {
	var spec actorSpec
	if len(a.Spec) > 0 {
		_ = json.Unmarshal(a.Spec, &spec)
	}
	return core.Actor{
		ID:           a.ObjectID,
		Name:         a.Name,
		Kind:         core.ActorKind(a.Kind),
		JoinTime:     a.JoinTime,
		MaxSpeed:     spec.MaxSpeed,
		ReverseLimit: spec.ReverseLimit,
		Acceleration: spec.Acceleration,
		TurnRate:     spec.TurnRate,
	}
}

// ActorStateToCore converts a GORM model.ActorState to a core.ActorState.
func ActorStateToCore(s model.ActorState) core.ActorState {
	pos := geo.PositionFromPoint(s.Position)
	pos.Z = s.Elevation
	return core.ActorState{
		ActorID:  s.ActorObjectID,
		Frame:    s.CaptureFrame,
		Time:     s.Time,
		Elapsed:  s.Elapsed,
		Position: pos,
		Heading:  s.Heading,
		Speed:    s.Speed,
		Waypoint: s.Waypoint,
		Laps:     s.Laps,
	}
}

// LapEventToCore converts a GORM model.LapEvent to a core.LapEvent.
func LapEventToCore(e model.LapEvent) core.LapEvent {
	return core.LapEvent{
		ActorID:   e.ActorObjectID,
		Frame:     e.CaptureFrame,
		Time:      e.Time,
		Lap:       e.Lap,
		LapTime:   msDuration(e.LapTimeMs),
		TotalTime: msDuration(e.TotalTimeMs),
	}
}

func msDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
