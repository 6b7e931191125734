package steering

import "math"

// Steerable is the capability shared by every actor that can be turned and
// throttled, whether its inputs come from waypoint chasing or from a player.
type Steerable interface {
	GetHeading() float64
	GetSpeed() float64
	GetTurnRate() float64
	GetAcceleration() float64
	SpeedBounds() (min, max float64)
}

// Turn rotates s by at most its turn rate (times scale) in the direction of
// diff and returns the new heading. With clamp set the rotation never
// overshoots diff.
func Turn(s Steerable, diff, scale float64, clamp bool) float64 {
	rate := s.GetTurnRate() * scale
	if clamp && rate > math.Abs(diff) {
		rate = math.Abs(diff)
	}
	if diff < 0 {
		rate = -rate
	}
	return NormalizeAngle(s.GetHeading() + rate)
}

// Approach moves the speed of s toward target by at most one acceleration
// increment and clamps the result to the actor's speed bounds.
func Approach(s Steerable, target float64) float64 {
	speed := s.GetSpeed()
	step := s.GetAcceleration()
	switch {
	case speed < target:
		speed = math.Min(speed+step, target)
	case speed > target:
		speed = math.Max(speed-step, target)
	}
	return ClampSpeed(s, speed)
}

// ClampSpeed limits v to the speed bounds of s.
func ClampSpeed(s Steerable, v float64) float64 {
	lo, hi := s.SpeedBounds()
	return math.Max(lo, math.Min(hi, v))
}
