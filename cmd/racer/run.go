package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/trackday/racer/internal/clock"
	"github.com/trackday/racer/internal/steering"
	"github.com/trackday/racer/internal/worker"
	"github.com/trackday/racer/pkg/console"
	"github.com/trackday/racer/pkg/core"
)

// starting grid; speeds are per frame
const (
	gridRowGap       = 8.0
	gridColGap       = 4.0
	gridMaxSpeed     = 0.45
	gridAcceleration = 0.02
	gridTurnRate     = 0.05
)

func consoleCommand(ctx context.Context, opts commonOptions) error {
	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	s := console.NewSession(a.dispatcher, os.Stdin, os.Stdout, CurrentVersion)
	failed, err := s.Run(ctx)
	if err != nil && ctx.Err() == nil {
		return err
	}
	if failed > 0 {
		a.logger().Warn("Console session had failed commands", "failed", failed)
	}
	return nil
}

func runCommand(ctx context.Context, opts runOptions) error {
	a, err := newApp(opts.commonOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	return runRace(ctx, a, opts, os.Stdout)
}

// runRace drives one race through the dispatcher the same way a console
// script would, then prints the standings to out.
func runRace(ctx context.Context, a *app, opts runOptions, out io.Writer) error {
	s := console.NewSession(a.dispatcher, nil, nil, CurrentVersion)
	laps := ""
	if opts.Laps > 0 {
		laps = strconv.Itoa(opts.Laps)
	}
	if _, err := s.Exec(":RACE:NEW:", opts.Name, opts.TrackFile, laps); err != nil {
		return err
	}

	t := a.session.GetTrack()
	if t == nil {
		return fmt.Errorf("race has no track")
	}
	for i, args := range gridActors(*t, opts.AI) {
		if _, err := s.Exec(":ACTOR:NEW:", args...); err != nil {
			return fmt.Errorf("failed to add actor %d: %w", i, err)
		}
	}

	watch := clock.NewStopwatch(nil)
	watch.Start()
	if opts.Frames > 0 {
		if _, err := s.Exec(":RACE:STEP:", strconv.Itoa(opts.Frames)); err != nil {
			return err
		}
	} else if err := runLive(ctx, s, a.worker.Status); err != nil {
		return err
	}
	watch.Stop()

	result, err := s.Exec(":RACE:STANDINGS:")
	if err != nil {
		return err
	}
	standings, _ := result.([]core.Standing)
	printStandings(out, opts.Name, standings)
	fmt.Fprintf(out, "\nrace time: %s (wall clock %s)\n",
		clock.FormatElapsed(a.worker.Status().Elapsed), clock.FormatElapsed(watch.Elapsed()))

	path, err := s.Exec(":SAVE:")
	if err != nil {
		return err
	}
	if p, ok := path.(string); ok && p != "" {
		fmt.Fprintf(out, "\nreplay: %s\n", p)
	}
	return nil
}

// runLive starts the real-time loop and waits for the race to finish or ctx
// to be cancelled.
func runLive(ctx context.Context, s *console.Session, status func() worker.Status) error {
	if _, err := s.Exec(":RACE:START:"); err != nil {
		return err
	}

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_, err := s.Exec(":RACE:STOP:")
			return err
		case <-ticker.C:
			if !status().Running {
				return nil
			}
		}
	}
}

// gridActors lines n AI actors up behind the first waypoint, two per row,
// facing it. Later rows get slightly faster cars.
func gridActors(t core.Track, n int) [][]string {
	path := t.Waypoints
	if path.Len() == 0 {
		return nil
	}
	first := path.At(0)
	behind := path.At(path.Len() - 1)
	if !t.Closed && path.Len() > 1 {
		behind = core.Position3D{X: 2*first.X - path.At(1).X, Y: 2*first.Y - path.At(1).Y, Z: first.Z}
	}

	heading, ok := steering.DesiredHeading(behind, first)
	if !ok {
		heading = 0
	}
	fwd := steering.Forward(heading)
	right := core.Position2D{X: fwd.Y, Y: -fwd.X}

	out := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		row := float64(i/2 + 1)
		col := gridColGap
		if i%2 == 1 {
			col = -gridColGap
		}
		x := first.X - fwd.X*row*gridRowGap + right.X*col
		y := first.Y - fwd.Y*row*gridRowGap + right.Y*col
		maxSpeed := gridMaxSpeed + float64(i/2)*0.01

		out = append(out, []string{
			fmt.Sprintf("AI %d", i+1),
			string(core.KindAI),
			ftoa(maxSpeed),
			ftoa(gridAcceleration),
			ftoa(gridTurnRate),
			ftoa(x),
			ftoa(y),
			ftoa(heading),
			"0",
		})
	}
	return out
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func printStandings(out io.Writer, name string, standings []core.Standing) {
	fmt.Fprintf(out, "%s\n\n", name)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "POS\tACTOR\tLAPS\tWAYPOINT\tBEST LAP\tLAST LAP\tFINISHED")
	for _, st := range standings {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\t%s\t%t\n",
			st.Position, st.Name, st.Laps, st.Waypoint,
			clock.FormatLap(st.BestLap), clock.FormatLap(st.LastLap), st.Finished)
	}
	_ = w.Flush()
}
