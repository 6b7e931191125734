// Package physics moves actors and applies manual player input.
package physics

import (
	"math"

	"github.com/trackday/racer/internal/steering"
	"github.com/trackday/racer/pkg/core"
)

// DefaultFriction is the speed lost per step when neither throttle nor brake is held.
const DefaultFriction = 0.2

// Params tunes player handling.
type Params struct {
	Friction float64 `json:"friction"`
}

// DefaultParams returns the stock player car handling.
func DefaultParams() Params {
	return Params{Friction: DefaultFriction}
}

// Integrate moves a one step along its heading at its current speed. Elevation
// is left unchanged.
func Integrate(a core.Actor) core.Actor {
	f := steering.Forward(a.Heading)
	a.Position.X += a.Speed * f.X
	a.Position.Y += a.Speed * f.Y
	return a
}

// ApplyControls updates speed and heading of a from player input.
//
// Throttle adds one Acceleration, brake removes half of one. With neither
// held, friction pulls the speed toward zero without crossing it. The actor
// only turns while it is moving; Steer > 0 turns clockwise.
func ApplyControls(a core.Actor, c core.Controls, p Params) core.Actor {
	speed := a.Speed
	switch {
	case c.Throttle:
		speed += a.Acceleration
	case c.Brake:
		speed -= a.Acceleration / 2
	default:
		speed = decay(speed, p.Friction)
	}
	a.Speed = steering.ClampSpeed(a, speed)

	if a.Speed != 0 && c.Steer != 0 {
		steer := math.Max(-1, math.Min(1, c.Steer))
		a.Heading = steering.Turn(a, steer, math.Abs(steer), false)
	}
	return a
}

func decay(speed, friction float64) float64 {
	switch {
	case speed > 0:
		return math.Max(0, speed-friction)
	case speed < 0:
		return math.Min(0, speed+friction)
	}
	return 0
}
