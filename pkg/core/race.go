// pkg/core/race.go
package core

import "time"

// Path is the ordered, read-only waypoint sequence shared by all actors.
// The zero value is an empty path.
type Path struct {
	points []Position3D
}

// NewPath copies points into a new Path.
func NewPath(points []Position3D) Path {
	cp := make([]Position3D, len(points))
	copy(cp, points)
	return Path{points: cp}
}

// Len returns the number of waypoints.
func (p Path) Len() int {
	return len(p.points)
}

// At returns waypoint i, wrapping modulo the path length.
func (p Path) At(i int) Position3D {
	n := len(p.points)
	i %= n
	if i < 0 {
		i += n
	}
	return p.points[i]
}

// Points returns a copy of the waypoints.
func (p Path) Points() []Position3D {
	cp := make([]Position3D, len(p.points))
	copy(cp, p.points)
	return cp
}

// Track is a named waypoint loop.
type Track struct {
	ID        uint       `json:"id"`
	Name      string     `json:"name"`
	Closed    bool       `json:"closed"`
	Waypoints Path       `json:"-"`
	Length    float64    `json:"length"`
	Origin    Position3D `json:"origin"` // projected origin of geo-referenced tracks
	CRS       string     `json:"crs"`
}

// Race is one recorded session on a track.
type Race struct {
	ID           uint      `json:"id"`
	Name         string    `json:"name"`
	TrackID      uint      `json:"trackId"`
	StartTime    time.Time `json:"startTime"`
	TargetLaps   int       `json:"targetLaps"`
	FrameRate    float64   `json:"frameRate"`
	Tag          string    `json:"tag"`
	RacerVersion string    `json:"racerVersion"`
	RacerBuild   string    `json:"racerBuild"`
}

// FrameInterval returns the simulated duration of one frame.
func (r Race) FrameInterval() time.Duration {
	if r.FrameRate <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / r.FrameRate)
}

// ActorState is the snapshot of one actor at the end of a frame.
type ActorState struct {
	ActorID  uint16     `json:"actorId"`
	Frame    uint       `json:"frame"`
	Time     time.Time  `json:"time"`
	Elapsed  float64    `json:"elapsed"` // seconds of race clock
	Position Position3D `json:"position"`
	Heading  float64    `json:"heading"`
	Speed    float64    `json:"speed"`
	Waypoint int        `json:"waypoint"`
	Laps     int        `json:"laps"`
}

// StateOf snapshots a.
func StateOf(a Actor, frame uint, now time.Time, elapsed time.Duration) ActorState {
	return ActorState{
		ActorID:  a.ID,
		Frame:    frame,
		Time:     now,
		Elapsed:  elapsed.Seconds(),
		Position: a.Position,
		Heading:  a.Heading,
		Speed:    a.Speed,
		Waypoint: a.Waypoint,
		Laps:     a.Laps,
	}
}

// LapEvent is emitted when an actor's waypoint index wraps past the start.
type LapEvent struct {
	ActorID   uint16        `json:"actorId"`
	Frame     uint          `json:"frame"`
	Time      time.Time     `json:"time"`
	Lap       int           `json:"lap"`
	LapTime   time.Duration `json:"lapTime"`
	TotalTime time.Duration `json:"totalTime"`
}

// Frame groups everything one update pass produced.
type Frame struct {
	Number  uint          `json:"frame"`
	Elapsed time.Duration `json:"elapsed"`
	States  []ActorState  `json:"states"`
	Laps    []LapEvent    `json:"laps"`
}

// Standing is an actor's rank in the race.
type Standing struct {
	Position int           `json:"position"`
	ActorID  uint16        `json:"actorId"`
	Name     string        `json:"name"`
	Laps     int           `json:"laps"`
	Waypoint int           `json:"waypoint"`
	BestLap  time.Duration `json:"bestLap"`
	LastLap  time.Duration `json:"lastLap"`
	Finished bool          `json:"finished"`
}

// UploadMetadata carries race info for uploading an exported replay.
type UploadMetadata struct {
	TrackName    string
	RaceName     string
	RaceDuration float64
	Tag          string
}
