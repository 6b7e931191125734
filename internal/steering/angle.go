// Package steering implements waypoint-chase steering for race actors.
//
// Headings are radians measured from the +Y axis, growing clockwise toward
// +X: heading 0 faces (0, 1) and heading π/2 faces (1, 0). A heading h moves
// an actor along (sin h, cos h).
package steering

import (
	"math"

	"github.com/trackday/racer/pkg/core"
)

const twoPi = 2 * math.Pi

// NormalizeAngle maps a into (-π, π]. An angle of exactly ±π maps to +π so
// a half-turn always resolves in the positive direction.
func NormalizeAngle(a float64) float64 {
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return 0
	}
	a = math.Mod(a, twoPi)
	if a <= -math.Pi {
		a += twoPi
	}
	if a > math.Pi {
		a -= twoPi
	}
	return a
}

// DesiredHeading returns the heading that points from `from` to `to`.
// ok is false when the two points coincide, in which case no heading exists.
func DesiredHeading(from, to core.Position3D) (heading float64, ok bool) {
	v := to.Sub(from)
	if v.IsNull() {
		return 0, false
	}
	return math.Atan2(v.X, v.Y), true
}

// HeadingError is the signed shortest rotation from heading to desired.
func HeadingError(heading, desired float64) float64 {
	return NormalizeAngle(desired - heading)
}

// Forward returns the unit vector an actor with the given heading moves along.
func Forward(heading float64) core.Position2D {
	return core.Position2D{X: math.Sin(heading), Y: math.Cos(heading)}
}
