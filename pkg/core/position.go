// pkg/core/position.go
package core

import "math"

// Position2D represents a point on the ground plane.
type Position2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Position3D represents a coordinate on the ground plane plus elevation.
// Steering only ever looks at X and Y.
type Position3D struct {
	X float64 `json:"x"` // easting
	Y float64 `json:"y"` // northing, heading 0 points along +Y
	Z float64 `json:"z"` // elevation
}

// Flat drops the elevation.
func (p Position3D) Flat() Position2D {
	return Position2D{X: p.X, Y: p.Y}
}

// Sub returns the ground-plane vector from q to p.
func (p Position3D) Sub(q Position3D) Position2D {
	return Position2D{X: p.X - q.X, Y: p.Y - q.Y}
}

// Translate moves p along the ground plane.
func (p Position3D) Translate(d Position2D) Position3D {
	return Position3D{X: p.X + d.X, Y: p.Y + d.Y, Z: p.Z}
}

// DistanceTo returns the ground-plane distance between p and q.
func (p Position3D) DistanceTo(q Position3D) float64 {
	return p.Sub(q).Mag()
}

// IsFinite reports whether every component is a finite number.
func (p Position3D) IsFinite() bool {
	return finite(p.X) && finite(p.Y) && finite(p.Z)
}

// Mag returns the length of the vector.
func (v Position2D) Mag() float64 {
	return math.Hypot(v.X, v.Y)
}

// IsNull reports whether the vector is too short to carry a direction.
func (v Position2D) IsNull() bool {
	return math.Abs(v.X) < epsilon && math.Abs(v.Y) < epsilon
}

// Polyline is an ordered list of ground-plane points.
type Polyline []Position2D

const epsilon = 1e-9

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
