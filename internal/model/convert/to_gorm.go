// Package convert maps between the engine's core types and the GORM models.
package convert

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/peterstace/simplefeatures/geom"
	"github.com/trackday/racer/internal/geo"
	"github.com/trackday/racer/internal/model"
	"github.com/trackday/racer/pkg/core"
	"gorm.io/datatypes"
)

// actorSpec is the JSON document kept in model.Actor.Spec.
type actorSpec struct {
	MaxSpeed     float64 `json:"maxSpeed"`
	ReverseLimit float64 `json:"reverseLimit"`
	Acceleration float64 `json:"acceleration"`
	TurnRate     float64 `json:"turnRate"`
}

// pathToLineString keeps elevation, unlike geo.LineStringFromPath which is
// ground-plane only.
func pathToLineString(p core.Path) geom.LineString {
	if p.Len() == 0 {
		return geom.LineString{}
	}
	flat := make([]float64, 0, p.Len()*3)
	for _, pt := range p.Points() {
		flat = append(flat, pt.X, pt.Y, pt.Z)
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXYZ))
}

// CoreToTrack converts a core.Track to a GORM model.Track.
func CoreToTrack(t core.Track) model.Track {
	tr := model.Track{
		Name:      t.Name,
		Closed:    t.Closed,
		Length:    t.Length,
		CRS:       t.CRS,
		Origin:    geo.PointFromPosition(t.Origin),
		Waypoints: pathToLineString(t.Waypoints),
	}
	tr.ID = t.ID
	return tr
}

// CoreToRace converts a core.Race to a GORM model.Race.
func CoreToRace(r core.Race) model.Race {
	out := model.Race{
		Name:         r.Name,
		TrackID:      r.TrackID,
		StartTime:    r.StartTime,
		TargetLaps:   r.TargetLaps,
		FrameRate:    r.FrameRate,
		Tag:          r.Tag,
		RacerVersion: r.RacerVersion,
		RacerBuild:   r.RacerBuild,
	}
	out.ID = r.ID
	return out
}

// EndTime stamps the end of a race.
func EndTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// CoreToActor converts a core.Actor to a GORM model.Actor.
// core.Actor.ID maps to model.Actor.ObjectID; RaceID is stamped by the writer.
func CoreToActor(a core.Actor) model.Actor {
	spec, _ := json.Marshal(actorSpec{
		MaxSpeed:     a.MaxSpeed,
		ReverseLimit: a.ReverseLimit,
		Acceleration: a.Acceleration,
		TurnRate:     a.TurnRate,
	})
	return model.Actor{
		ObjectID: a.ID,
		JoinTime: a.JoinTime,
		Name:     a.Name,
		Kind:     string(a.Kind),
		Spec:     datatypes.JSON(spec),
	}
}

// CoreToActorState converts a core.ActorState to a GORM model.ActorState.
func CoreToActorState(s core.ActorState) model.ActorState {
	return model.ActorState{
		Time:          s.Time,
		CaptureFrame:  s.Frame,
		ActorObjectID: s.ActorID,
		Position:      geo.PointFromPosition(s.Position),
		Elevation:     s.Position.Z,
		Elapsed:       s.Elapsed,
		Heading:       s.Heading,
		Speed:         s.Speed,
		Waypoint:      s.Waypoint,
		Laps:          s.Laps,
	}
}

// CoreToLapEvent converts a core.LapEvent to a GORM model.LapEvent.
func CoreToLapEvent(e core.LapEvent) model.LapEvent {
	return model.LapEvent{
		Time:          e.Time,
		CaptureFrame:  e.Frame,
		ActorObjectID: e.ActorID,
		Lap:           e.Lap,
		LapTimeMs:     durationMs(e.LapTime),
		TotalTimeMs:   durationMs(e.TotalTime),
	}
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
