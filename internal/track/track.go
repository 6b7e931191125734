// Package track loads and prepares the waypoint sequences actors race on.
package track

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/trackday/racer/internal/geo"
	"github.com/trackday/racer/pkg/core"
)

// Axis conventions accepted in track files.
const (
	// AxisXY files list ground-plane X, Y and an optional elevation Z.
	AxisXY = "xy"
	// AxisYUp files list X, elevation Y and ground Z, as 3D scene tools export them.
	AxisYUp = "y-up"
)

// Coordinate reference systems accepted in track files.
const (
	CRSLocal = "local"
	CRSWGS84 = "EPSG:4326"
)

// ErrInvalidTrack is returned for track files that cannot be raced on.
var ErrInvalidTrack = errors.New("invalid track")

// File is the on-disk track format.
type File struct {
	Name      string      `json:"name"`
	Closed    *bool       `json:"closed,omitempty"`
	Axis      string      `json:"axis,omitempty"`
	CRS       string      `json:"crs,omitempty"`
	Smooth    int         `json:"smooth,omitempty"`
	Waypoints [][]float64 `json:"waypoints"`
}

// Load reads and builds the track stored at path.
func Load(path string) (core.Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Track{}, fmt.Errorf("failed to read track file: %w", err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return core.Track{}, fmt.Errorf("failed to parse track file %s: %w", path, err)
	}
	return Build(f)
}

// Build validates f and turns it into a track in local ground-plane metres.
func Build(f File) (core.Track, error) {
	closed := true
	if f.Closed != nil {
		closed = *f.Closed
	}

	points, err := geo.PathFromCoords(f.Waypoints)
	if err != nil {
		return core.Track{}, fmt.Errorf("%w: %w", ErrInvalidTrack, err)
	}

	switch f.Axis {
	case "", AxisXY:
	case AxisYUp:
		for i, p := range points {
			points[i] = core.Position3D{X: p.X, Y: p.Z, Z: p.Y}
		}
	default:
		return core.Track{}, fmt.Errorf("%w: unknown axis %q", ErrInvalidTrack, f.Axis)
	}

	var origin core.Position3D
	crs := f.CRS
	switch crs {
	case "", CRSLocal:
		crs = CRSLocal
	case CRSWGS84:
		points, origin, err = projectLocal(points)
		if err != nil {
			return core.Track{}, fmt.Errorf("%w: %w", ErrInvalidTrack, err)
		}
	default:
		return core.Track{}, fmt.Errorf("%w: unsupported crs %q", ErrInvalidTrack, f.CRS)
	}

	points = dedupe(points, closed)
	if len(points) < 2 {
		return core.Track{}, fmt.Errorf("%w: need at least 2 distinct waypoints, got %d", ErrInvalidTrack, len(points))
	}
	if f.Smooth < 0 {
		return core.Track{}, fmt.Errorf("%w: smooth must not be negative", ErrInvalidTrack)
	}
	if f.Smooth > 0 {
		points = Smooth(points, f.Smooth, closed)
	}

	return core.Track{
		Name:      f.Name,
		Closed:    closed,
		Waypoints: core.NewPath(points),
		Length:    geo.PathLength(points, closed),
		Origin:    origin,
		CRS:       crs,
	}, nil
}

// Default is a 100 m square loop.
func Default() core.Track {
	t, _ := Build(File{
		Name: "square",
		Waypoints: [][]float64{
			{0, 0}, {100, 0}, {100, -100}, {0, -100},
		},
	})
	return t
}

// projectLocal maps lon/lat/elevation points to 3857 metres relative to the
// first point.
func projectLocal(points []core.Position3D) ([]core.Position3D, core.Position3D, error) {
	out := make([]core.Position3D, len(points))
	for i, p := range points {
		m, err := geo.Project4326(p.X, p.Y, p.Z)
		if err != nil {
			return nil, core.Position3D{}, fmt.Errorf("waypoint %d: %w", i, err)
		}
		out[i] = m
	}
	origin := core.Position3D{X: out[0].X, Y: out[0].Y}
	for i := range out {
		out[i].X -= origin.X
		out[i].Y -= origin.Y
	}
	return out, origin, nil
}

// dedupe drops consecutive waypoints that coincide on the ground plane. For a
// closed loop a trailing copy of the first waypoint is dropped as well.
func dedupe(points []core.Position3D, closed bool) []core.Position3D {
	out := make([]core.Position3D, 0, len(points))
	for _, p := range points {
		if len(out) > 0 && out[len(out)-1].Sub(p).IsNull() {
			continue
		}
		out = append(out, p)
	}
	if closed && len(out) > 1 && out[len(out)-1].Sub(out[0]).IsNull() {
		out = out[:len(out)-1]
	}
	return out
}
