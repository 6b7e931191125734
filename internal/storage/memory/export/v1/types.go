// Package v1 contains the v1 replay format written by the memory backend.
package v1

// FormatVersion is written into every export.
const FormatVersion = 1

// Export is the root JSON structure for v1 format
type Export struct {
	Version      int     `json:"version"`
	RacerVersion string  `json:"racerVersion"`
	RacerBuild   string  `json:"racerBuild"`
	RaceName     string  `json:"raceName"`
	StartTime    string  `json:"startTime"` // RFC3339
	Tag          string  `json:"tags"`
	FrameRate    float64 `json:"frameRate"`
	TargetLaps   int     `json:"targetLaps"`
	EndFrame     uint    `json:"endFrame"`
	Track        Track   `json:"track"`
	// Actors is indexed by actor ID; gaps are zero-valued entries.
	Actors []Actor `json:"actors"`
	// Laps rows are [frameNum, actorId, lap, lapTimeMs, totalTimeMs]
	Laps      [][]any    `json:"laps"`
	Standings []Standing `json:"standings"`
}

// Track is the waypoint loop the race ran on
type Track struct {
	Name      string       `json:"name"`
	Closed    bool         `json:"closed"`
	Length    float64      `json:"length"`
	CRS       string       `json:"crs,omitempty"`
	Origin    [3]float64   `json:"origin"`
	Waypoints [][3]float64 `json:"waypoints"`
}

// Actor is one car with its per-frame trail
type Actor struct {
	ID           uint16  `json:"id"`
	Name         string  `json:"name"`
	Kind         string  `json:"kind"`
	MaxSpeed     float64 `json:"maxSpeed"`
	ReverseLimit float64 `json:"reverseLimit"`
	Acceleration float64 `json:"acceleration"`
	TurnRate     float64 `json:"turnRate"`
	// Positions rows are [frameNum, [x, y, z], heading, speed, waypoint, laps]
	Positions [][]any `json:"positions"`
}

// Standing is the final classification of one actor
type Standing struct {
	Position  int     `json:"position"`
	ActorID   uint16  `json:"actorId"`
	Laps      int     `json:"laps"`
	BestLapMs float64 `json:"bestLapMs"`
	Finished  bool    `json:"finished"`
}
