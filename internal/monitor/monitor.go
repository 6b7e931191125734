// Package monitor samples the running race once per interval into a status
// file, the racer_performances table and the racer_performance bucket.
package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/trackday/racer/internal/cache"
	"github.com/trackday/racer/internal/clock"
	"github.com/trackday/racer/internal/influx"
	"github.com/trackday/racer/internal/logging"
	"github.com/trackday/racer/internal/model"
	"github.com/trackday/racer/internal/worker"

	"gorm.io/gorm"
)

// DefaultInterval is used when Dependencies.Interval is unset.
const DefaultInterval = time.Second

// StatusProvider is implemented by worker.Manager.
type StatusProvider interface {
	Status() worker.Status
	RaceID() uint
	GetLastDBWriteDuration() time.Duration
	QueueLengths() model.WriteQueueLengths
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	// DB and Influx are optional sample sinks.
	DB         *gorm.DB
	Influx     *influx.Manager
	LogManager *logging.SlogManager
	Worker     StatusProvider
	StatusFile string
	Interval   time.Duration

	// ActorCache supplies actor names and kinds for the status file. Optional.
	ActorCache *cache.ActorCache
	// Now drives the wall-clock stopwatch. Defaults to time.Now.
	Now func() time.Time
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}

	// wall-clock time the current race has been running
	watchMu   sync.Mutex
	watch     *clock.Stopwatch
	watchRace uint
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
		watch:    clock.NewStopwatch(deps.Now),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// statusReport is what lands in the status file.
type statusReport struct {
	Race            string        `json:"race"`
	Running         bool          `json:"running"`
	Frame           uint          `json:"frame"`
	Elapsed         string        `json:"elapsed"`
	WallClock       string        `json:"wallClock"`
	Actors          int           `json:"actors"`
	RecorderPending int           `json:"recorderPending"`
	FramesDropped   uint64        `json:"framesDropped"`
	Standings       []standingRow `json:"standings"`
}

type standingRow struct {
	Position int    `json:"position"`
	Name     string `json:"name"`
	Kind     string `json:"kind,omitempty"`
	Laps     int    `json:"laps"`
	Waypoint int    `json:"waypoint"`
	BestLap  string `json:"bestLap,omitempty"`
}

// GetProgramStatus returns the current program status as printable blocks
// and a performance sample. active is false when no race is in progress.
func (s *Service) GetProgramStatus(
	standings bool,
	writeQueues bool,
	lastWrite bool,
) (output []string, perf model.RacerPerformance, active bool) {
	st := s.deps.Worker.Status()
	wall := s.trackWallClock(st, s.deps.Worker.RaceID())
	if !st.Active {
		return nil, perf, false
	}

	queues := s.deps.Worker.QueueLengths()
	perf = model.RacerPerformance{
		Time:                time.Now(),
		RaceID:              s.deps.Worker.RaceID(),
		Frame:               st.Frame,
		Actors:              uint16(st.Actors),
		RecorderPending:     uint32(st.RecorderPending),
		WriteQueueLengths:   queues,
		LastWriteDurationMs: float32(s.deps.Worker.GetLastDBWriteDuration().Microseconds()) / 1000,
	}

	if standings {
		report := statusReport{
			Race:            st.RaceName,
			Running:         st.Running,
			Frame:           st.Frame,
			Elapsed:         clock.FormatElapsed(st.Elapsed),
			WallClock:       clock.FormatElapsed(wall),
			Actors:          st.Actors,
			RecorderPending: st.RecorderPending,
			FramesDropped:   st.FramesDropped,
			Standings:       make([]standingRow, 0, len(st.Standings)),
		}
		for _, row := range st.Standings {
			r := standingRow{
				Position: row.Position,
				Name:     row.Name,
				Laps:     row.Laps,
				Waypoint: row.Waypoint,
			}
			if s.deps.ActorCache != nil {
				if a, ok := s.deps.ActorCache.Get(row.ActorID); ok {
					r.Name = a.Name
					r.Kind = string(a.Kind)
				}
			}
			if row.BestLap > 0 {
				r.BestLap = clock.FormatLap(row.BestLap)
			}
			report.Standings = append(report.Standings, r)
		}
		output = append(output, marshalBlock(report))
	}
	if writeQueues {
		output = append(output, marshalBlock(queues))
	}
	if lastWrite {
		output = append(output, marshalBlock(perf.LastWriteDurationMs))
	}

	return output, perf, true
}

// trackWallClock runs the stopwatch while the race loop runs and restarts it
// for every new race.
func (s *Service) trackWallClock(st worker.Status, raceID uint) time.Duration {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	if !st.Active || raceID != s.watchRace {
		s.watch.Reset()
		s.watchRace = raceID
	}
	if st.Active && st.Running {
		s.watch.Start()
	} else {
		s.watch.Stop()
	}
	return s.watch.Elapsed()
}

func marshalBlock(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(data)
}

// DefaultHypertables lists the time-series tables and their segment-by columns.
var DefaultHypertables = map[string][]string{
	"actor_states":       {"race_id", "actor_object_id"},
	"lap_events":         {"race_id"},
	"racer_performances": {"race_id"},
}

// ValidateHypertables converts tables to compressed TimescaleDB hypertables.
// Tables already configured are left alone.
func (s *Service) ValidateHypertables(tables map[string][]string) error {
	functionName := "validateHypertables"
	if s.deps.DB == nil {
		return fmt.Errorf("no database")
	}

	for table, segmentBy := range tables {
		var configured int64
		if err := s.deps.DB.Raw(
			`SELECT count(*) FROM timescaledb_information.hypertables WHERE hypertable_name = ?`, table,
		).Scan(&configured).Error; err == nil && configured > 0 {
			s.deps.LogManager.WriteLog(functionName, fmt.Sprintf(`Table %s is already configured`, table), "INFO")
			continue
		}

		steps := []struct {
			what  string
			query string
			args  []any
		}{
			{
				"create hypertable",
				fmt.Sprintf(`SELECT create_hypertable('%s', 'time', chunk_time_interval => interval '1 day', if_not_exists => true, migrate_data => true);`, table),
				nil,
			},
			{
				"enable compression",
				fmt.Sprintf(`ALTER TABLE %s SET (timescaledb.compress, timescaledb.compress_segmentby = ?);`, table),
				[]any{strings.Join(segmentBy, ",")},
			},
			{
				"set compress_after",
				fmt.Sprintf(`SELECT add_compression_policy('%s', compress_after => interval '14 day');`, table),
				nil,
			},
		}
		for _, step := range steps {
			if err := s.deps.DB.Exec(step.query, step.args...).Error; err != nil {
				s.deps.LogManager.WriteLog(functionName, fmt.Sprintf(`Failed to %s for %s. Err: %s`, step.what, table, err), "ERROR")
				return fmt.Errorf("failed to %s for %s: %w", step.what, table, err)
			}
		}
		s.deps.LogManager.WriteLog(functionName, fmt.Sprintf(`Configured hypertable %s`, table), "INFO")
	}
	return nil
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.loop()
	return nil
}

func (s *Service) loop() {
	defer close(s.done)

	logger := s.deps.LogManager.Logger()
	logger.Debug("Starting status monitor goroutine", "interval", s.deps.Interval)

	ticker := time.NewTicker(s.deps.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sample()
		}
	}
}

// sample writes one status snapshot to every configured sink.
func (s *Service) sample() {
	logger := s.deps.LogManager.Logger()

	statusStr, perf, active := s.GetProgramStatus(true, true, true)
	if !active {
		return
	}

	if s.deps.StatusFile != "" {
		content := strings.Join(statusStr, "\n") + "\n"
		if err := os.WriteFile(s.deps.StatusFile, []byte(content), 0644); err != nil {
			logger.Error("Error writing status file", "error", err)
		}
	}

	if s.deps.DB != nil && perf.RaceID != 0 {
		if err := s.deps.DB.Omit("Race").Create(&perf).Error; err != nil {
			logger.Error("Error writing performance sample", "error", err)
		}
	}

	if s.deps.Influx != nil {
		if err := s.deps.Influx.WritePoint(influx.BucketPerformance, influx.PerformancePoint(perf)); err != nil {
			logger.Error("Error writing performance point", "error", err)
		}
	}
}

// Stop stops the status monitor and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
