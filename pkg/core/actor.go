// pkg/core/actor.go
package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidActor is returned when an actor spec fails validation.
var ErrInvalidActor = errors.New("invalid actor")

// ActorKind tells the race driver where an actor's inputs come from.
type ActorKind string

const (
	// KindAI actors chase waypoints.
	KindAI ActorKind = "ai"
	// KindPlayer actors follow submitted Controls.
	KindPlayer ActorKind = "player"
)

// DefaultReverseLimit is the slowest (most negative) speed of an actor
// whose spec leaves ReverseLimit unset.
const DefaultReverseLimit = -10.0

// Limit returns a pointer to v, for ActorSpec.ReverseLimit.
func Limit(v float64) *float64 {
	return &v
}

// ActorSpec describes an actor before it joins a race. A nil ReverseLimit
// means DefaultReverseLimit; Limit(0) disables reverse.
type ActorSpec struct {
	Name          string     `json:"name"`
	Kind          ActorKind  `json:"kind"`
	MaxSpeed      float64    `json:"maxSpeed"`
	ReverseLimit  *float64   `json:"reverseLimit,omitempty"`
	Acceleration  float64    `json:"acceleration"`
	TurnRate      float64    `json:"turnRate"`
	StartPosition Position3D `json:"startPosition"`
	StartHeading  float64    `json:"startHeading"`
	StartWaypoint int        `json:"startWaypoint"`
	InitialSpeed  float64    `json:"initialSpeed"`
}

// Validate checks the spec and fills in defaults.
func (s *ActorSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidActor)
	}
	switch s.Kind {
	case "":
		s.Kind = KindAI
	case KindAI, KindPlayer:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidActor, s.Kind)
	}
	if s.ReverseLimit == nil {
		s.ReverseLimit = Limit(DefaultReverseLimit)
	}
	reverse := *s.ReverseLimit

	for name, v := range map[string]float64{
		"maxSpeed":     s.MaxSpeed,
		"acceleration": s.Acceleration,
		"turnRate":     s.TurnRate,
	} {
		if !finite(v) || v <= 0 {
			return fmt.Errorf("%w: %s must be a positive number, got %v", ErrInvalidActor, name, v)
		}
	}
	if !finite(reverse) || reverse > 0 {
		return fmt.Errorf("%w: reverseLimit must be zero or negative, got %v", ErrInvalidActor, reverse)
	}
	if !finite(s.StartHeading) || !finite(s.InitialSpeed) || !s.StartPosition.IsFinite() {
		return fmt.Errorf("%w: start state must be finite", ErrInvalidActor)
	}
	if s.InitialSpeed > s.MaxSpeed || s.InitialSpeed < reverse {
		return fmt.Errorf("%w: initial speed %v outside [%v, %v]", ErrInvalidActor, s.InitialSpeed, reverse, s.MaxSpeed)
	}
	if s.StartWaypoint < 0 {
		return fmt.Errorf("%w: startWaypoint must not be negative", ErrInvalidActor)
	}
	return nil
}

// Actor is one simulated car. It is a plain value: every step produces a new
// Actor rather than mutating the previous one.
type Actor struct {
	ID       uint16    `json:"id"`
	Name     string    `json:"name"`
	Kind     ActorKind `json:"kind"`
	JoinTime time.Time `json:"joinTime"`

	MaxSpeed     float64 `json:"maxSpeed"`
	ReverseLimit float64 `json:"reverseLimit"`
	Acceleration float64 `json:"acceleration"`
	TurnRate     float64 `json:"turnRate"`

	Position Position3D `json:"position"`
	Heading  float64    `json:"heading"`
	Speed    float64    `json:"speed"`
	Waypoint int        `json:"waypoint"`
	Laps     int        `json:"laps"`
}

// NewActor builds an actor from a validated spec. The start waypoint is
// wrapped into the path.
func NewActor(id uint16, spec ActorSpec, pathLen int) (Actor, error) {
	if err := spec.Validate(); err != nil {
		return Actor{}, err
	}
	wp := spec.StartWaypoint
	if pathLen > 0 {
		wp %= pathLen
	}
	return Actor{
		ID:           id,
		Name:         spec.Name,
		Kind:         spec.Kind,
		JoinTime:     time.Now(),
		MaxSpeed:     spec.MaxSpeed,
		ReverseLimit: *spec.ReverseLimit,
		Acceleration: spec.Acceleration,
		TurnRate:     spec.TurnRate,
		Position:     spec.StartPosition,
		Heading:      spec.StartHeading,
		Speed:        spec.InitialSpeed,
		Waypoint:     wp,
	}, nil
}

// Steerable accessors. They let steering and physics helpers work on any
// actor-like value.

func (a Actor) GetHeading() float64      { return a.Heading }
func (a Actor) GetSpeed() float64        { return a.Speed }
func (a Actor) GetTurnRate() float64     { return a.TurnRate }
func (a Actor) GetAcceleration() float64 { return a.Acceleration }

// SpeedBounds returns the inclusive speed range of the actor.
func (a Actor) SpeedBounds() (min, max float64) {
	return a.ReverseLimit, a.MaxSpeed
}

// Controls is the manual input of a player actor for one step.
// Throttle and Brake are treated as on/off; Steer is -1 (left), 0 or +1 (right).
type Controls struct {
	Throttle bool    `json:"throttle"`
	Brake    bool    `json:"brake"`
	Steer    float64 `json:"steer"`
}
