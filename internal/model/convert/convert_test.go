package convert

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trackday/racer/pkg/core"
)

func TestTrackRoundTrip(t *testing.T) {
	in := core.Track{
		ID:     4,
		Name:   "square",
		Closed: true,
		Waypoints: core.NewPath([]core.Position3D{
			{X: 0, Y: 0, Z: 1}, {X: 100, Y: 0, Z: 2}, {X: 100, Y: -100, Z: 3},
		}),
		Length: 341.42,
		Origin: core.Position3D{X: 10, Y: 20, Z: 0},
		CRS:    "EPSG:4326",
	}

	gormTrack := CoreToTrack(in)
	assert.Equal(t, uint(4), gormTrack.ID)
	assert.Equal(t, 3, gormTrack.Waypoints.Coordinates().Length())

	out := TrackToCore(gormTrack)
	assert.Equal(t, in.Name, out.Name)
	assert.Equal(t, in.Closed, out.Closed)
	assert.Equal(t, in.Origin, out.Origin)
	assert.Equal(t, in.Waypoints.Points(), out.Waypoints.Points())
}

func TestTrackToCore_EmptyWaypoints(t *testing.T) {
	out := TrackToCore(CoreToTrack(core.Track{Name: "empty"}))
	assert.Equal(t, 0, out.Waypoints.Len())
}

func TestCoreToRace(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := CoreToRace(core.Race{ID: 9, Name: "cup", TrackID: 2, StartTime: start, TargetLaps: 3, FrameRate: 60, Tag: "Practice"})

	assert.Equal(t, uint(9), r.ID)
	assert.Equal(t, uint(2), r.TrackID)
	assert.Equal(t, start, r.StartTime)
	assert.Equal(t, "Practice", r.Tag)
	assert.Equal(t, "cup", RaceToCore(r).Name)
}

func TestEndTime(t *testing.T) {
	assert.False(t, EndTime(time.Time{}).Valid)
	assert.True(t, EndTime(time.Now()).Valid)
}

func TestActorRoundTrip(t *testing.T) {
	a := core.Actor{
		ID: 3, Name: "blue", Kind: core.KindAI,
		MaxSpeed: 18, ReverseLimit: -10, Acceleration: 0.3, TurnRate: 0.04,
	}

	m := CoreToActor(a)
	assert.Equal(t, uint16(3), m.ObjectID)
	assert.Equal(t, "ai", m.Kind)

	var spec map[string]float64
	require.NoError(t, json.Unmarshal(m.Spec, &spec))
	assert.Equal(t, 18.0, spec["maxSpeed"])
	assert.Equal(t, 0.04, spec["turnRate"])

	back := ActorToCore(m)
	assert.Equal(t, a.MaxSpeed, back.MaxSpeed)
	assert.Equal(t, a.ReverseLimit, back.ReverseLimit)
	assert.Equal(t, a.Kind, back.Kind)
}

func TestActorStateRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 1, 0, time.UTC)
	s := core.ActorState{
		ActorID: 1, Frame: 60, Time: now, Elapsed: 1,
		Position: core.Position3D{X: 5, Y: -3, Z: 0.5},
		Heading:  1.2, Speed: 4, Waypoint: 2, Laps: 1,
	}

	m := CoreToActorState(s)
	assert.Equal(t, uint(60), m.CaptureFrame)
	assert.Equal(t, 0.5, m.Elevation)

	assert.Equal(t, s, ActorStateToCore(m))
}

func TestLapEventRoundTrip(t *testing.T) {
	e := core.LapEvent{ActorID: 2, Frame: 600, Lap: 1, LapTime: 9500 * time.Millisecond, TotalTime: 10 * time.Second}

	m := CoreToLapEvent(e)
	assert.Equal(t, 9500.0, m.LapTimeMs)
	assert.Equal(t, 10000.0, m.TotalTimeMs)

	assert.Equal(t, e, LapEventToCore(m))
}
