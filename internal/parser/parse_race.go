package parser

import (
	"fmt"
	"math"
	"time"

	"github.com/trackday/racer/pkg/core"
)

// RaceRequest is a parsed :RACE:NEW: command.
type RaceRequest struct {
	Race      core.Race
	TrackFile string // empty selects the default track
}

// ParseRace parses [name, trackFile?, targetLaps?, tag?].
func (p *Parser) ParseRace(data []string) (RaceRequest, error) {
	var req RaceRequest
	if len(data) < 1 {
		return req, fmt.Errorf("ParseRace: expected at least 1 arg, got %d", len(data))
	}
	clean(data)

	if data[0] == "" {
		return req, argError("ParseRace", 0, "name", fmt.Errorf("must not be empty"))
	}
	req.Race = core.Race{
		Name:         data[0],
		StartTime:    time.Now(),
		RacerVersion: p.racerVersion,
		RacerBuild:   p.racerBuild,
	}

	if len(data) > 1 {
		req.TrackFile = data[1]
	}
	if len(data) > 2 && data[2] != "" {
		laps, err := parseIntFromFloat(data[2])
		if err != nil {
			return req, argError("ParseRace", 2, "targetLaps", err)
		}
		if laps < 0 {
			return req, argError("ParseRace", 2, "targetLaps", fmt.Errorf("must not be negative"))
		}
		req.Race.TargetLaps = int(laps)
	}
	if len(data) > 3 {
		req.Race.Tag = data[3]
	}

	p.logger.Debug("Parsed race", "name", req.Race.Name, "track", req.TrackFile, "targetLaps", req.Race.TargetLaps)
	return req, nil
}

// ParseSteps parses the optional frame count of :RACE:STEP:. It defaults to 1.
func (p *Parser) ParseSteps(data []string) (int, error) {
	if len(data) == 0 {
		return 1, nil
	}
	clean(data)
	if data[0] == "" {
		return 1, nil
	}
	n, err := parseUintFromFloat(data[0])
	if err != nil {
		return 0, argError("ParseSteps", 0, "frames", err)
	}
	if n == 0 {
		return 0, argError("ParseSteps", 0, "frames", fmt.Errorf("must be at least 1"))
	}
	if n > math.MaxInt32 {
		return 0, argError("ParseSteps", 0, "frames", fmt.Errorf("%d out of range", n))
	}
	return int(n), nil
}
