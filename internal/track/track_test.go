package track

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackday/racer/pkg/core"
)

func writeTrack(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "track.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefault(t *testing.T) {
	tr := Default()

	assert.Equal(t, "square", tr.Name)
	assert.True(t, tr.Closed)
	assert.Equal(t, CRSLocal, tr.CRS)
	require.Equal(t, 4, tr.Waypoints.Len())
	assert.Equal(t, core.Position3D{X: 100, Y: -100}, tr.Waypoints.At(2))
	assert.InDelta(t, 400, tr.Length, 1e-9)
}

func TestLoad_YUpClosedLoop(t *testing.T) {
	// the start point is listed twice to close the loop
	path := writeTrack(t, `{
		"name": "demo",
		"axis": "y-up",
		"waypoints": [[0,0,0],[100,0,0],[100,5,-100],[0,0,-100],[0,0,0]]
	}`)

	tr, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 4, tr.Waypoints.Len())
	assert.Equal(t, core.Position3D{X: 100, Y: -100, Z: 5}, tr.Waypoints.At(2))
	assert.InDelta(t, 400, tr.Length, 1e-9)
}

func TestLoad_OpenTrackDedupes(t *testing.T) {
	path := writeTrack(t, `{
		"name": "sprint",
		"closed": false,
		"waypoints": [[0,0],[0,0],[0,50],[0,100]]
	}`)

	tr, err := Load(path)
	require.NoError(t, err)

	assert.False(t, tr.Closed)
	assert.Equal(t, 3, tr.Waypoints.Len())
	assert.InDelta(t, 100, tr.Length, 1e-9)
}

func TestLoad_GeoReferenced(t *testing.T) {
	path := writeTrack(t, `{
		"name": "equator",
		"crs": "EPSG:4326",
		"waypoints": [[10,0,3],[10.001,0,3],[10.001,-0.001,3]]
	}`)

	tr, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, CRSWGS84, tr.CRS)
	assert.Equal(t, core.Position3D{Z: 3}, tr.Waypoints.At(0), "re-based on the first waypoint")
	assert.InDelta(t, 111.32, tr.Waypoints.At(1).X, 0.1)
	assert.Less(t, tr.Waypoints.At(2).Y, 0.0)
	assert.Greater(t, tr.Origin.X, 1e6)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"one waypoint", `{"waypoints": [[0,0]]}`},
		{"all identical", `{"waypoints": [[1,1],[1,1],[1,1]]}`},
		{"bad axis", `{"axis": "z-up", "waypoints": [[0,0],[1,1]]}`},
		{"bad crs", `{"crs": "EPSG:27700", "waypoints": [[0,0],[1,1]]}`},
		{"bad latitude", `{"crs": "EPSG:4326", "waypoints": [[0,0],[0,91]]}`},
		{"negative smooth", `{"smooth": -1, "waypoints": [[0,0],[1,1]]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeTrack(t, tt.body))
			require.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	_, err = Load(writeTrack(t, `{"waypoints": [[0,0]]}`))
	assert.True(t, errors.Is(err, ErrInvalidTrack))
}

func TestSmooth(t *testing.T) {
	square := Default().Waypoints.Points()

	closed := Smooth(square, 40, true)
	require.Len(t, closed, 40)
	for i := 0; i < 4; i++ {
		assert.InDelta(t, square[i].X, closed[i*10].X, 1e-9, "control point %d", i)
		assert.InDelta(t, square[i].Y, closed[i*10].Y, 1e-9, "control point %d", i)
	}

	open := Smooth(square, 7, false)
	require.Len(t, open, 7)
	assert.Equal(t, square[0], open[0])
	assert.InDelta(t, square[3].X, open[6].X, 1e-9)
	assert.InDelta(t, square[3].Y, open[6].Y, 1e-9)

	assert.Equal(t, square, Smooth(square, 1, true))
}

func TestBuild_Smooth(t *testing.T) {
	tr, err := Build(File{
		Name:      "round",
		Smooth:    64,
		Waypoints: [][]float64{{0, 0}, {100, 0}, {100, -100}, {0, -100}},
	})
	require.NoError(t, err)
	assert.Equal(t, 64, tr.Waypoints.Len())
	assert.Greater(t, tr.Length, 300.0)
}
