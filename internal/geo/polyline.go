package geo

import (
	"encoding/json"
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/trackday/racer/pkg/core"
)

// ParsePath parses a JSON array of coordinates into waypoints.
// Input format: "[[x1,y1],[x2,y2,z2],...]"
func ParsePath(input string) ([]core.Position3D, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return nil, fmt.Errorf("failed to parse polyline JSON: %w", err)
	}
	return PathFromCoords(coords)
}

// PathFromCoords converts [x, y(, z)] tuples into waypoints.
func PathFromCoords(coords [][]float64) ([]core.Position3D, error) {
	if len(coords) < 2 {
		return nil, fmt.Errorf("polyline must have at least 2 points, got %d", len(coords))
	}

	points := make([]core.Position3D, len(coords))
	for i, coord := range coords {
		if len(coord) < 2 || len(coord) > 3 {
			return nil, fmt.Errorf("coordinate %d: %w", i, ErrInvalidCoordinates)
		}
		p := core.Position3D{X: coord[0], Y: coord[1]}
		if len(coord) == 3 {
			p.Z = coord[2]
		}
		if !p.IsFinite() {
			return nil, fmt.Errorf("coordinate %d: %w", i, ErrInvalidCoordinates)
		}
		points[i] = p
	}
	return points, nil
}

// LineStringFromPath builds a ground-plane LineString through points. A closed
// path repeats the first point at the end.
func LineStringFromPath(points []core.Position3D, closed bool) geom.LineString {
	flatCoords := make([]float64, 0, (len(points)+1)*2)
	for _, p := range points {
		flatCoords = append(flatCoords, p.X, p.Y)
	}
	if closed && len(points) > 1 {
		flatCoords = append(flatCoords, points[0].X, points[0].Y)
	}

	seq := geom.NewSequence(flatCoords, geom.DimXY)
	return geom.NewLineString(seq)
}

// PathLength is the ground-plane length of the path.
func PathLength(points []core.Position3D, closed bool) float64 {
	if len(points) < 2 {
		return 0
	}
	return LineStringFromPath(points, closed).Length()
}
