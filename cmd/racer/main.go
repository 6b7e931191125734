// Command racer runs waypoint-chase races headless and records them to the
// configured storage backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/trackday/racer/internal/config"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"
)

const usage = `usage: racer <command> [flags]

commands:
  run       run one race with AI actors and save it
  console   read commands from stdin, one per line (":CMD: arg1 arg2")
  version   print version and build date
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "racer:", err)
		os.Exit(1)
	}
}

func execute(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("no command given")
	}

	switch args[0] {
	case "version", "--version", "-v":
		fmt.Printf("racer %s (%s)\n", CurrentVersion, BuildDate)
		return nil
	case "run":
		opts, err := parseRunFlags(args[1:])
		if err != nil {
			return err
		}
		return runCommand(ctx, opts)
	case "console":
		opts, err := parseCommonFlags("console", args[1:])
		if err != nil {
			return err
		}
		return consoleCommand(ctx, opts)
	case "help", "--help", "-h":
		fmt.Print(usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// commonOptions are the flags every long-running command accepts.
type commonOptions struct {
	ConfigDir string
	Storage   string
	LogLevel  string
}

// runOptions configure the run command.
type runOptions struct {
	commonOptions
	Name      string
	TrackFile string
	Frames    int
	AI        int
	Laps      int
}

func addCommonFlags(fs *pflag.FlagSet, o *commonOptions) {
	fs.StringVarP(&o.ConfigDir, "config", "c", "", "directory containing "+config.FileName)
	fs.StringVar(&o.Storage, "storage", "", "storage backend override (memory, sqlite, postgres, websocket)")
	fs.StringVar(&o.LogLevel, "log-level", "", "log level override")
}

func parseCommonFlags(name string, args []string) (commonOptions, error) {
	var o commonOptions
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	addCommonFlags(fs, &o)
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	return o, nil
}

func parseRunFlags(args []string) (runOptions, error) {
	var o runOptions
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	addCommonFlags(fs, &o.commonOptions)
	fs.StringVar(&o.Name, "name", "Quick Race", "race name")
	fs.StringVarP(&o.TrackFile, "track", "t", "", "track file (JSON); the built-in loop when empty")
	fs.IntVarP(&o.Frames, "frames", "n", 0, "step this many frames as fast as possible; 0 runs in real time until the race ends")
	fs.IntVar(&o.AI, "ai", 4, "number of AI actors")
	fs.IntVar(&o.Laps, "laps", 0, "target laps; 0 uses race.targetLaps")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.AI < 1 {
		return o, fmt.Errorf("--ai must be at least 1")
	}
	if o.Frames < 0 {
		return o, fmt.Errorf("--frames must not be negative")
	}
	if o.Laps < 0 {
		return o, fmt.Errorf("--laps must not be negative")
	}
	return o, nil
}
