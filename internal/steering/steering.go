package steering

import (
	"errors"
	"fmt"
	"math"

	"github.com/trackday/racer/pkg/core"
)

// ErrInvalidParams is returned by Params.Validate.
var ErrInvalidParams = errors.New("invalid steering params")

// Params tunes the chase behaviour. The zero value is not usable; start from
// DefaultParams.
type Params struct {
	// ArrivalThreshold is the distance under which the current waypoint
	// counts as reached.
	ArrivalThreshold float64 `json:"arrivalThreshold"`
	// DeadZone is the heading error, in radians, below which no turn is applied.
	DeadZone float64 `json:"deadZone"`
	// SlowZone is the distance under which the actor slows down and
	// NearTurnScale applies. Zero disables it.
	SlowZone float64 `json:"slowZone"`
	// SlowFactor scales MaxSpeed inside SlowZone.
	SlowFactor float64 `json:"slowFactor"`
	// NearTurnScale scales the turn rate inside SlowZone.
	NearTurnScale float64 `json:"nearTurnScale"`
	// ClampOvershoot limits each turn to the remaining heading error.
	ClampOvershoot bool `json:"clampOvershoot"`
}

// DefaultParams returns the stock AI car tuning.
func DefaultParams() Params {
	return Params{
		ArrivalThreshold: 10,
		DeadZone:         0.05,
		SlowZone:         30,
		SlowFactor:       0.5,
		NearTurnScale:    1,
	}
}

// Validate reports the first unusable value.
func (p Params) Validate() error {
	switch {
	case !(p.ArrivalThreshold > 0) || math.IsInf(p.ArrivalThreshold, 0):
		return fmt.Errorf("%w: arrivalThreshold must be positive, got %v", ErrInvalidParams, p.ArrivalThreshold)
	case !(p.DeadZone >= 0) || p.DeadZone >= math.Pi:
		return fmt.Errorf("%w: deadZone must be in [0, π), got %v", ErrInvalidParams, p.DeadZone)
	case !(p.SlowZone >= 0) || math.IsInf(p.SlowZone, 0):
		return fmt.Errorf("%w: slowZone must not be negative, got %v", ErrInvalidParams, p.SlowZone)
	case !(p.SlowFactor > 0) || p.SlowFactor > 1:
		return fmt.Errorf("%w: slowFactor must be in (0, 1], got %v", ErrInvalidParams, p.SlowFactor)
	case !(p.NearTurnScale > 0) || math.IsInf(p.NearTurnScale, 0):
		return fmt.Errorf("%w: nearTurnScale must be positive, got %v", ErrInvalidParams, p.NearTurnScale)
	}
	return nil
}

// Advance moves waypoint one step along a path of n points and bumps laps
// when the index wraps back to 0.
func Advance(waypoint, laps, n int) (int, int) {
	if n <= 0 {
		return waypoint, laps
	}
	waypoint = (waypoint + 1) % n
	if waypoint == 0 {
		laps++
	}
	return waypoint, laps
}

// Step runs one chase update of a toward its current waypoint and returns the
// updated actor. Position is left to physics.Integrate. An empty path leaves
// the actor untouched.
func Step(a core.Actor, path core.Path, p Params) core.Actor {
	n := path.Len()
	if n == 0 {
		return a
	}
	target := path.At(a.Waypoint)
	dist := a.Position.DistanceTo(target)
	near := p.SlowZone > 0 && dist < p.SlowZone

	if desired, ok := DesiredHeading(a.Position, target); ok {
		diff := HeadingError(a.Heading, desired)
		if math.Abs(diff) > p.DeadZone {
			scale := 1.0
			if near {
				scale = p.NearTurnScale
			}
			a.Heading = Turn(a, diff, scale, p.ClampOvershoot)
		}
	}

	targetSpeed := a.MaxSpeed
	if near {
		targetSpeed *= p.SlowFactor
	}
	a.Speed = Approach(a, targetSpeed)

	if dist < p.ArrivalThreshold {
		a.Waypoint, a.Laps = Advance(a.Waypoint%n, a.Laps, n)
	}
	return a
}
