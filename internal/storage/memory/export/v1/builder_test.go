package v1

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trackday/racer/pkg/core"
)

func sampleData() *RaceData {
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	track := core.Track{
		Name:   "square",
		Closed: true,
		Waypoints: core.NewPath([]core.Position3D{
			{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: -100}, {X: 0, Y: -100},
		}),
		Length: 400,
	}
	return &RaceData{
		Race:  &core.Race{Name: "cup", StartTime: start, TargetLaps: 2, FrameRate: 60, Tag: "Practice", RacerVersion: "1.0.0"},
		Track: &track,
		Actors: map[uint16]*ActorRecord{
			0: {Actor: core.Actor{ID: 0, Name: "red", Kind: core.KindAI, MaxSpeed: 18}},
			2: {
				Actor: core.Actor{ID: 2, Name: "blue", Kind: core.KindPlayer, MaxSpeed: 20},
				States: []core.ActorState{
					{ActorID: 2, Frame: 1, Position: core.Position3D{X: 1, Y: 2, Z: 0}, Heading: 0.5, Speed: 3},
					{ActorID: 2, Frame: 2, Position: core.Position3D{X: 2, Y: 4, Z: 0}, Heading: 0.6, Speed: 4, Waypoint: 1},
				},
			},
		},
		Laps: []core.LapEvent{
			{ActorID: 2, Frame: 5, Lap: 1, LapTime: 1500 * time.Millisecond, TotalTime: 1500 * time.Millisecond},
		},
	}
}

func TestBuild_Header(t *testing.T) {
	export := Build(sampleData())

	assert.Equal(t, FormatVersion, export.Version)
	assert.Equal(t, "cup", export.RaceName)
	assert.Equal(t, "2026-05-01T10:00:00Z", export.StartTime)
	assert.Equal(t, "Practice", export.Tag)
	assert.Equal(t, uint(5), export.EndFrame)
	assert.Equal(t, "square", export.Track.Name)
	assert.Len(t, export.Track.Waypoints, 4)
	assert.Equal(t, [3]float64{100, -100, 0}, export.Track.Waypoints[2])
}

func TestBuild_ActorsIndexedByID(t *testing.T) {
	export := Build(sampleData())

	require.Len(t, export.Actors, 3)
	assert.Equal(t, "red", export.Actors[0].Name)
	assert.Equal(t, "", export.Actors[1].Name, "gap entry")
	assert.Equal(t, "blue", export.Actors[2].Name)
	assert.Equal(t, "player", export.Actors[2].Kind)

	require.Len(t, export.Actors[2].Positions, 2)
	row := export.Actors[2].Positions[1]
	assert.Equal(t, uint(2), row[0])
	assert.Equal(t, []float64{2, 4, 0}, row[1])
	assert.Equal(t, 0.6, row[2])
	assert.Equal(t, 1, row[4])
}

func TestBuild_LapsAndStandings(t *testing.T) {
	export := Build(sampleData())

	require.Len(t, export.Laps, 1)
	assert.Equal(t, []any{uint(5), uint16(2), 1, 1500.0, 1500.0}, export.Laps[0])

	require.Len(t, export.Standings, 2)
	assert.Equal(t, Standing{Position: 1, ActorID: 2, Laps: 1, BestLapMs: 1500}, export.Standings[0])
	assert.Equal(t, uint16(0), export.Standings[1].ActorID)
	assert.Equal(t, 2, export.Standings[1].Position)
}

func TestBuild_StandingsTieBreaks(t *testing.T) {
	data := sampleData()
	data.Actors[0].States = nil
	data.Laps = []core.LapEvent{
		{ActorID: 2, Frame: 10, Lap: 1, LapTime: time.Second},
		{ActorID: 0, Frame: 8, Lap: 1, LapTime: 2 * time.Second},
		{ActorID: 0, Frame: 20, Lap: 2, LapTime: 2 * time.Second},
		{ActorID: 2, Frame: 19, Lap: 2, LapTime: 3 * time.Second},
	}

	standings := Build(data).Standings

	// both did two laps, actor 2 finished lap 2 first
	assert.Equal(t, uint16(2), standings[0].ActorID)
	assert.True(t, standings[0].Finished)
	assert.Equal(t, 1000.0, standings[0].BestLapMs)
	assert.Equal(t, uint16(0), standings[1].ActorID)
}

func TestBuild_Empty(t *testing.T) {
	export := Build(&RaceData{Race: &core.Race{Name: "empty"}})

	assert.Empty(t, export.Actors)
	assert.Empty(t, export.Laps)
	assert.Empty(t, export.Standings)

	data, err := json.Marshal(export)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"actors":[]`)
}

func TestDecode_PlainAndGzip(t *testing.T) {
	export := Build(sampleData())
	raw, err := json.Marshal(export)
	require.NoError(t, err)

	got, err := Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "cup", got.RaceName)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err = gz.Write(raw)
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	path := filepath.Join(t.TempDir(), "cup.json.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	got, err = ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, export.EndFrame, got.EndFrame)
	assert.Len(t, got.Actors, 3)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte(`{"version":2}`)))
	assert.ErrorContains(t, err, "unsupported export version 2")

	_, err = Decode(bytes.NewReader([]byte(`not json`)))
	assert.Error(t, err)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
