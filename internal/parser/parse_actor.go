package parser

import (
	"fmt"
	"math"

	"github.com/trackday/racer/pkg/core"
)

// actor arg layout
const (
	actorName = iota
	actorKind
	actorMaxSpeed
	actorAccel
	actorTurnRate
	actorX
	actorY
	actorHeading
	actorWaypoint
	actorZ
	actorReverseLimit
	actorInitialSpeed
	actorMinArgs = actorTurnRate + 1
)

// ParseActor parses
// [name, kind, maxSpeed, accel, turnRate, x?, y?, heading?, waypoint?, z?,
// reverseLimit?, initialSpeed?] into a validated spec. An empty or missing
// reverseLimit keeps the default; "0" disables reverse.
func (p *Parser) ParseActor(data []string) (core.ActorSpec, error) {
	var spec core.ActorSpec
	if len(data) < actorMinArgs {
		return spec, fmt.Errorf("ParseActor: expected at least %d args, got %d", actorMinArgs, len(data))
	}
	clean(data)

	spec.Name = data[actorName]
	spec.Kind = core.ActorKind(data[actorKind])

	floats := []struct {
		index int
		name  string
		dst   *float64
	}{
		{actorMaxSpeed, "maxSpeed", &spec.MaxSpeed},
		{actorAccel, "acceleration", &spec.Acceleration},
		{actorTurnRate, "turnRate", &spec.TurnRate},
		{actorX, "x", &spec.StartPosition.X},
		{actorY, "y", &spec.StartPosition.Y},
		{actorHeading, "heading", &spec.StartHeading},
		{actorZ, "z", &spec.StartPosition.Z},
		{actorInitialSpeed, "initialSpeed", &spec.InitialSpeed},
	}
	for _, f := range floats {
		if f.index >= len(data) || data[f.index] == "" {
			continue
		}
		v, err := parseFiniteFloat(data[f.index])
		if err != nil {
			return spec, argError("ParseActor", f.index, f.name, err)
		}
		*f.dst = v
	}

	if actorWaypoint < len(data) && data[actorWaypoint] != "" {
		wp, err := parseIntFromFloat(data[actorWaypoint])
		if err != nil {
			return spec, argError("ParseActor", actorWaypoint, "waypoint", err)
		}
		spec.StartWaypoint = int(wp)
	}

	if actorReverseLimit < len(data) && data[actorReverseLimit] != "" {
		v, err := parseFiniteFloat(data[actorReverseLimit])
		if err != nil {
			return spec, argError("ParseActor", actorReverseLimit, "reverseLimit", err)
		}
		spec.ReverseLimit = core.Limit(v)
	}

	if err := spec.Validate(); err != nil {
		return spec, fmt.Errorf("ParseActor: %w", err)
	}

	p.logger.Debug("Parsed actor", "name", spec.Name, "kind", spec.Kind)
	return spec, nil
}

// ParseControls parses [id, throttle, brake, steer].
func (p *Parser) ParseControls(data []string) (uint16, core.Controls, error) {
	var c core.Controls
	if len(data) != 4 {
		return 0, c, fmt.Errorf("ParseControls: expected 4 args, got %d", len(data))
	}
	clean(data)

	id, err := parseUintFromFloat(data[0])
	if err != nil {
		return 0, c, argError("ParseControls", 0, "id", err)
	}
	if id > math.MaxUint16 {
		return 0, c, argError("ParseControls", 0, "id", fmt.Errorf("%d out of range", id))
	}
	if c.Throttle, err = parseBool(data[1]); err != nil {
		return 0, c, argError("ParseControls", 1, "throttle", err)
	}
	if c.Brake, err = parseBool(data[2]); err != nil {
		return 0, c, argError("ParseControls", 2, "brake", err)
	}
	if c.Steer, err = parseFiniteFloat(data[3]); err != nil {
		return 0, c, argError("ParseControls", 3, "steer", err)
	}
	if c.Steer < -1 || c.Steer > 1 {
		return 0, c, argError("ParseControls", 3, "steer", fmt.Errorf("%v outside [-1, 1]", c.Steer))
	}
	return uint16(id), c, nil
}
