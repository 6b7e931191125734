package v1

import (
	"sort"
	"time"

	"github.com/trackday/racer/pkg/core"
)

// RaceData contains all the data needed to build an export
type RaceData struct {
	Race   *core.Race
	Track  *core.Track
	Actors map[uint16]*ActorRecord
	Laps   []core.LapEvent
}

// ActorRecord groups an actor with its recorded states
type ActorRecord struct {
	Actor  core.Actor
	States []core.ActorState
}

// Build creates an Export from the race data
func Build(data *RaceData) Export {
	export := Export{
		Version:      FormatVersion,
		RacerVersion: data.Race.RacerVersion,
		RacerBuild:   data.Race.RacerBuild,
		RaceName:     data.Race.Name,
		StartTime:    data.Race.StartTime.UTC().Format(time.RFC3339),
		Tag:          data.Race.Tag,
		FrameRate:    data.Race.FrameRate,
		TargetLaps:   data.Race.TargetLaps,
		Actors:       make([]Actor, 0),
		Laps:         make([][]any, 0, len(data.Laps)),
		Standings:    make([]Standing, 0),
	}

	if data.Track != nil {
		export.Track = buildTrack(data.Track)
	}

	// The array index equals the actor ID
	var maxID uint16
	for id := range data.Actors {
		if id > maxID {
			maxID = id
		}
	}
	if len(data.Actors) > 0 {
		export.Actors = make([]Actor, maxID+1)
	}

	var endFrame uint
	for id, record := range data.Actors {
		a := record.Actor
		entry := Actor{
			ID:           a.ID,
			Name:         a.Name,
			Kind:         string(a.Kind),
			MaxSpeed:     a.MaxSpeed,
			ReverseLimit: a.ReverseLimit,
			Acceleration: a.Acceleration,
			TurnRate:     a.TurnRate,
			Positions:    make([][]any, 0, len(record.States)),
		}
		for _, s := range record.States {
			entry.Positions = append(entry.Positions, []any{
				s.Frame,
				[]float64{s.Position.X, s.Position.Y, s.Position.Z},
				s.Heading,
				s.Speed,
				s.Waypoint,
				s.Laps,
			})
			if s.Frame > endFrame {
				endFrame = s.Frame
			}
		}
		export.Actors[id] = entry
	}

	for _, l := range data.Laps {
		export.Laps = append(export.Laps, []any{
			l.Frame,
			l.ActorID,
			l.Lap,
			ms(l.LapTime),
			ms(l.TotalTime),
		})
		if l.Frame > endFrame {
			endFrame = l.Frame
		}
	}

	export.EndFrame = endFrame
	export.Standings = buildStandings(data)
	return export
}

func buildTrack(t *core.Track) Track {
	out := Track{
		Name:      t.Name,
		Closed:    t.Closed,
		Length:    t.Length,
		CRS:       t.CRS,
		Origin:    [3]float64{t.Origin.X, t.Origin.Y, t.Origin.Z},
		Waypoints: make([][3]float64, 0, t.Waypoints.Len()),
	}
	for _, p := range t.Waypoints.Points() {
		out.Waypoints = append(out.Waypoints, [3]float64{p.X, p.Y, p.Z})
	}
	return out
}

// buildStandings ranks actors by laps completed, then by the earliest frame
// the last lap was completed, then by best lap.
func buildStandings(data *RaceData) []Standing {
	type tally struct {
		laps      int
		lastFrame uint
		best      time.Duration
	}
	tallies := make(map[uint16]*tally, len(data.Actors))
	for id := range data.Actors {
		tallies[id] = &tally{}
	}
	for _, l := range data.Laps {
		t, ok := tallies[l.ActorID]
		if !ok {
			continue
		}
		if l.Lap > t.laps {
			t.laps = l.Lap
			t.lastFrame = l.Frame
		}
		if t.best == 0 || l.LapTime < t.best {
			t.best = l.LapTime
		}
	}

	ids := make([]uint16, 0, len(tallies))
	for id := range tallies {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := tallies[ids[i]], tallies[ids[j]]
		if a.laps != b.laps {
			return a.laps > b.laps
		}
		if a.laps > 0 && a.lastFrame != b.lastFrame {
			return a.lastFrame < b.lastFrame
		}
		if a.best != b.best {
			if a.best == 0 || b.best == 0 {
				return b.best == 0
			}
			return a.best < b.best
		}
		return ids[i] < ids[j]
	})

	out := make([]Standing, len(ids))
	for i, id := range ids {
		t := tallies[id]
		out[i] = Standing{
			Position:  i + 1,
			ActorID:   id,
			Laps:      t.laps,
			BestLapMs: ms(t.best),
			Finished:  data.Race.TargetLaps > 0 && t.laps >= data.Race.TargetLaps,
		}
	}
	return out
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
