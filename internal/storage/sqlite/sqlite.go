// Package sqlitestorage records races into an in-memory SQLite database and
// periodically dumps it to disk via VACUUM INTO. The write path is the
// postgres backend's; only the database and the dumps differ.
package sqlitestorage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/trackday/racer/internal/config"
	"github.com/trackday/racer/internal/database"
	"github.com/trackday/racer/internal/logging"
	"github.com/trackday/racer/internal/storage/postgres"
	"github.com/trackday/racer/internal/util"
	"github.com/trackday/racer/pkg/core"

	"gorm.io/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	OutputDir    string
	DumpInterval time.Duration
	// DSN defaults to the shared in-memory database.
	DSN string
}

// ConfigFrom converts the loaded storage.sqlite settings.
func ConfigFrom(cfg config.SQLiteConfig) Config {
	return Config{OutputDir: cfg.OutputDir, DumpInterval: cfg.DumpInterval}
}

// Backend wraps the postgres backend for SQLite-specific behavior.
type Backend struct {
	*postgres.Backend
	db  *gorm.DB
	cfg Config
	log *logging.SlogManager

	mu       sync.Mutex
	dumpPath string

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New opens the in-memory database and wraps it.
func New(cfg Config, logManager *logging.SlogManager) (*Backend, error) {
	if logManager == nil {
		logManager = logging.NewSlogManager()
	}
	db, err := database.OpenSQLite(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}

	return &Backend{
		Backend: postgres.New(postgres.Dependencies{
			DB:         db,
			LogManager: logManager,
		}),
		db:       db,
		cfg:      cfg,
		log:      logManager,
		stopChan: make(chan struct{}),
	}, nil
}

// Init migrates the schema, starts the writer and, with a dump interval
// set, the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}
	if b.cfg.OutputDir != "" && b.cfg.DumpInterval > 0 {
		b.wg.Add(1)
		go b.dumpLoop()
	}
	return nil
}

// Close stops the dump goroutine, flushes, writes a last dump and closes
// the database.
func (b *Backend) Close() error {
	b.stopOnce.Do(func() { close(b.stopChan) })
	b.wg.Wait()

	err := b.Backend.Close()
	if dumpErr := b.dump(); dumpErr != nil && err == nil {
		err = dumpErr
	}
	if sqlDB, dbErr := b.db.DB(); dbErr == nil {
		_ = sqlDB.Close()
	}
	return err
}

// StartRace records the race and picks the dump file for it.
func (b *Backend) StartRace(race *core.Race, track *core.Track) error {
	if err := b.Backend.StartRace(race, track); err != nil {
		return err
	}
	if b.cfg.OutputDir == "" {
		return nil
	}

	name := util.SafeFileName(race.Name)
	b.mu.Lock()
	b.dumpPath = filepath.Join(b.cfg.OutputDir,
		fmt.Sprintf("%s_%s.db", name, race.StartTime.Format("20060102_150405")))
	b.mu.Unlock()
	return nil
}

// EndRace stamps the race end and dumps the final state.
func (b *Backend) EndRace() error {
	if err := b.Backend.EndRace(); err != nil {
		return err
	}
	return b.dump()
}

// DumpPath is the file the current or last race is dumped to.
func (b *Backend) DumpPath() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dumpPath
}

func (b *Backend) dump() error {
	path := b.DumpPath()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create dump directory: %w", err)
	}
	start := time.Now()
	if err := database.DumpMemoryDBToDisk(b.db, path); err != nil {
		return err
	}
	b.log.WriteLog("sqlite:dump", fmt.Sprintf("Dumped to %s in %s", path, time.Since(start)), "DEBUG")
	return nil
}

// dumpLoop snapshots the database every DumpInterval. VACUUM INTO gives a
// consistent copy without pausing the writer.
func (b *Backend) dumpLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.log.WriteLog("sqlite:dumpLoop", fmt.Sprintf("Error flushing: %v", err), "ERROR")
			}
			if err := b.dump(); err != nil {
				b.log.WriteLog("sqlite:dumpLoop", fmt.Sprintf("Error dumping to disk: %v", err), "ERROR")
			}
		}
	}
}
