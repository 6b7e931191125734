package race

import (
	"sort"

	"github.com/trackday/racer/pkg/core"
)

// Standings ranks actors by laps, then by the waypoint they are chasing,
// then by best lap. A lap is counted when the waypoint index wraps to 0, so
// a higher index is further along the current lap. Actors without a
// completed lap rank behind those with one on ties.
func (e *Engine) Standings() []core.Standing {
	e.mu.Lock()
	defer e.mu.Unlock()

	ranked := make([]core.Standing, 0, len(e.actors))
	for _, a := range e.actors {
		lc := e.laps[a.ID]
		ranked = append(ranked, core.Standing{
			ActorID:  a.ID,
			Name:     a.Name,
			Laps:     a.Laps,
			Waypoint: a.Waypoint,
			BestLap:  lc.best,
			LastLap:  lc.last,
			Finished: lc.finished,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Laps != b.Laps {
			return a.Laps > b.Laps
		}
		if a.Waypoint != b.Waypoint {
			return a.Waypoint > b.Waypoint
		}
		if (a.BestLap == 0) != (b.BestLap == 0) {
			return b.BestLap == 0
		}
		return a.BestLap < b.BestLap
	})

	for i := range ranked {
		ranked[i].Position = i + 1
	}
	return ranked
}
