// Package console feeds text commands into a dispatcher and writes one
// response line per command.
//
// A command line looks like
//
//	:ACTOR:NEW: "Blue car" ai 30 5 2
//
// Fields are separated by whitespace; double quotes group a field that
// contains spaces. Blank lines and lines starting with # are skipped, so a
// race script can be piped in as is.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/trackday/racer/internal/dispatcher"
)

// Built-in commands answered without the dispatcher.
const (
	CmdTimestamp = ":TIMESTAMP:"
	CmdHelp      = ":HELP:"
	CmdQuit      = ":QUIT:"
)

// Dispatcher is the part of dispatcher.Dispatcher the console uses.
type Dispatcher interface {
	HasHandler(command string) bool
	Dispatch(e dispatcher.Event) (any, error)
	Commands() []string
}

// Session reads commands from in and answers on out.
type Session struct {
	dispatcher Dispatcher
	in         io.Reader
	out        io.Writer
	version    string
}

// NewSession creates a console session. version is answered to :VERSION:
// when no handler is registered for it.
func NewSession(d Dispatcher, in io.Reader, out io.Writer, version string) *Session {
	return &Session{
		dispatcher: d,
		in:         in,
		out:        out,
		version:    version,
	}
}

// Run processes lines until in is exhausted, :QUIT: is read or ctx is done.
// It returns the number of commands that failed.
func (s *Session) Run(ctx context.Context) (int, error) {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	failed := 0
	for {
		select {
		case <-ctx.Done():
			return failed, ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						return failed, fmt.Errorf("failed to read commands: %w", err)
					}
				default:
				}
				return failed, nil
			}
			command, args, ok := SplitLine(line)
			if !ok {
				continue
			}
			if command == CmdQuit {
				fmt.Fprintln(s.out, FormatResponse(command, nil, nil))
				return failed, nil
			}
			result, err := s.Exec(command, args...)
			if err != nil {
				failed++
			}
			fmt.Fprintln(s.out, FormatResponse(command, result, err))
		}
	}
}

// Exec runs a single command.
func (s *Session) Exec(command string, args ...string) (any, error) {
	switch command {
	case CmdTimestamp:
		return getTimestamp(), nil
	case CmdHelp:
		return s.dispatcher.Commands(), nil
	}

	if !s.dispatcher.HasHandler(command) {
		if command == ":VERSION:" && s.version != "" {
			return s.version, nil
		}
		return nil, fmt.Errorf("%w: %s", dispatcher.ErrUnknownCommand, command)
	}

	return s.dispatcher.Dispatch(dispatcher.Event{
		Command:   command,
		Args:      args,
		Timestamp: time.Now(),
	})
}

// SplitLine splits a command line into the command and its args. ok is false
// for blank and comment lines.
func SplitLine(line string) (command string, args []string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", nil, false
	}

	var (
		fields  []string
		cur     strings.Builder
		quoted  bool
		started bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			started = true
		case !quoted && (r == ' ' || r == '\t'):
			if started {
				fields = append(fields, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if started {
		fields = append(fields, cur.String())
	}

	return fields[0], fields[1:], true
}

func getTimestamp() string {
	return fmt.Sprintf("%d", time.Now().UTC().UnixNano())
}
