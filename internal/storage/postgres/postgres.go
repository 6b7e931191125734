// Package postgres implements a GORM recording backend with internal queues
// and a background DB writer goroutine. It targets PostgreSQL with PostGIS
// and is reused by the SQLite backend.
package postgres

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/trackday/racer/internal/database"
	"github.com/trackday/racer/internal/logging"
	"github.com/trackday/racer/internal/model"
	"github.com/trackday/racer/internal/model/convert"
	"github.com/trackday/racer/internal/queue"
	"github.com/trackday/racer/pkg/core"

	"gorm.io/gorm"
)

// DefaultWriteInterval is the pause between two queue drains.
const DefaultWriteInterval = 2 * time.Second

// ErrNoRace is returned when data arrives before StartRace.
var ErrNoRace = errors.New("no race started")

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	// DB is opened from the db.* settings when nil.
	DB            *gorm.DB
	LogManager    *logging.SlogManager
	WriteInterval time.Duration
}

// queues holds the write queues for batch DB insertion.
type queues struct {
	Actors      *queue.Queue[model.Actor]
	ActorStates *queue.Queue[model.ActorState]
	LapEvents   *queue.Queue[model.LapEvent]
}

func newQueues() *queues {
	return &queues{
		Actors:      queue.New[model.Actor](),
		ActorStates: queue.New[model.ActorState](),
		LapEvents:   queue.New[model.LapEvent](),
	}
}

// Backend records races with queue-based batch writes.
type Backend struct {
	deps   Dependencies
	queues *queues
	raceID atomic.Uint64

	lastWrite atomic.Int64 // nanoseconds
	flushMu   sync.Mutex

	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.WriteInterval <= 0 {
		deps.WriteInterval = DefaultWriteInterval
	}
	return &Backend{
		deps:   deps,
		queues: newQueues(),
	}
}

// Init connects if needed, migrates the schema and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		db, err := database.OpenPostgres()
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		if err = sqlDB.Ping(); err != nil {
			return fmt.Errorf("failed to validate connection: %w", err)
		}
		sqlDB.SetMaxOpenConns(10)
		b.deps.DB = db
	}

	b.deps.LogManager.WriteLog("postgres:Init", "Migrating schema", "INFO")
	if err := database.Migrate(b.deps.DB); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writerLoop()
	return nil
}

// Close stops the DB writer goroutine and writes whatever is still queued.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	b.stopOnce.Do(func() {
		close(b.stopChan)
		<-b.done
	})
	return b.Flush()
}

// DB exposes the connection, e.g. for performance rows.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// RaceID returns the database ID of the running race (0 when none).
func (b *Backend) RaceID() uint {
	return uint(b.raceID.Load())
}

// StartRace gets or inserts the track and creates the race row. The
// DB-assigned IDs are written back to race and track.
func (b *Backend) StartRace(race *core.Race, track *core.Track) error {
	db := b.deps.DB

	gormTrack := convert.CoreToTrack(*track)
	if _, err := gormTrack.GetOrInsert(db); err != nil {
		return fmt.Errorf("failed to get or insert track: %w", err)
	}

	gormRace := convert.CoreToRace(*race)
	gormRace.TrackID = gormTrack.ID
	if err := db.Omit("Track").Create(&gormRace).Error; err != nil {
		return fmt.Errorf("failed to insert new race: %w", err)
	}

	track.ID = gormTrack.ID
	race.ID = gormRace.ID
	race.TrackID = gormTrack.ID
	b.raceID.Store(uint64(gormRace.ID))

	b.deps.LogManager.WriteLog("postgres:StartRace",
		fmt.Sprintf("Race %d on track %q created", gormRace.ID, gormTrack.Name), "INFO")
	return nil
}

// EndRace writes the queues and stamps the race end time.
func (b *Backend) EndRace() error {
	id := b.RaceID()
	if id == 0 {
		return ErrNoRace
	}
	if err := b.Flush(); err != nil {
		return err
	}
	if err := b.deps.DB.Model(&model.Race{}).Where("id = ?", id).
		Update("end_time", convert.EndTime(time.Now())).Error; err != nil {
		return fmt.Errorf("failed to end race %d: %w", id, err)
	}
	b.raceID.Store(0)
	return nil
}

// AddActor converts a core actor to GORM and pushes it to the write queue.
func (b *Backend) AddActor(a *core.Actor) error {
	b.queues.Actors.Push(convert.CoreToActor(*a))
	return nil
}

// RecordActorState converts and queues an actor state.
func (b *Backend) RecordActorState(s *core.ActorState) error {
	b.queues.ActorStates.Push(convert.CoreToActorState(*s))
	return nil
}

// RecordLapEvent converts and queues a lap event.
func (b *Backend) RecordLapEvent(e *core.LapEvent) error {
	b.queues.LapEvents.Push(convert.CoreToLapEvent(*e))
	return nil
}

// GetLastDBWriteDuration returns the duration of the last write cycle.
func (b *Backend) GetLastDBWriteDuration() time.Duration {
	return time.Duration(b.lastWrite.Load())
}

// QueueLengths reports the write backlog.
func (b *Backend) QueueLengths() model.WriteQueueLengths {
	return model.WriteQueueLengths{
		Actors:      uint32(b.queues.Actors.Len()),
		ActorStates: uint32(b.queues.ActorStates.Len()),
		LapEvents:   uint32(b.queues.LapEvents.Len()),
	}
}

// Flush writes every queue once, actors first so states can reference them.
func (b *Backend) Flush() error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	if b.deps.DB == nil {
		return nil
	}

	start := time.Now()
	raceID := b.RaceID()
	log := b.deps.LogManager.WriteLog

	errs := []error{
		writeQueue(b.deps.DB, b.queues.Actors, "actors", log, func(items []model.Actor) {
			for i := range items {
				items[i].RaceID = raceID
			}
		}),
		writeQueue(b.deps.DB, b.queues.ActorStates, "actor states", log, func(items []model.ActorState) {
			for i := range items {
				items[i].RaceID = raceID
			}
		}),
		writeQueue(b.deps.DB, b.queues.LapEvents, "lap events", log, func(items []model.LapEvent) {
			for i := range items {
				items[i].RaceID = raceID
			}
		}),
	}

	b.lastWrite.Store(int64(time.Since(start)))
	return errors.Join(errs...)
}

// writeQueue writes all items from a queue to the database in a transaction.
// On failure the items go back to the front of the queue.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log func(string, string, string), prepare func([]T)) error {
	if q.Empty() {
		return nil
	}

	items := q.GetAndEmpty()
	if prepare != nil {
		prepare(items)
	}

	tx := db.Begin()
	if err := tx.Omit("Race", "Actor").Create(&items).Error; err != nil {
		log(":DB:WRITER:", fmt.Sprintf("Error creating %s: %v", name, err), "ERROR")
		tx.Rollback()
		q.Requeue(items...)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tx.Commit().Error; err != nil {
		q.Requeue(items...)
		return fmt.Errorf("failed to commit %s: %w", name, err)
	}
	return nil
}

// writerLoop periodically drains the queues into the DB.
func (b *Backend) writerLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.deps.WriteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			// errors are logged by writeQueue and the items retried next tick
			_ = b.Flush()
		}
	}
}
