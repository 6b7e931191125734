package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"gorm.io/gorm"

	"github.com/trackday/racer/internal/api"
	"github.com/trackday/racer/internal/cache"
	"github.com/trackday/racer/internal/config"
	"github.com/trackday/racer/internal/database"
	"github.com/trackday/racer/internal/dispatcher"
	"github.com/trackday/racer/internal/influx"
	"github.com/trackday/racer/internal/logging"
	"github.com/trackday/racer/internal/monitor"
	intOtel "github.com/trackday/racer/internal/otel"
	"github.com/trackday/racer/internal/parser"
	"github.com/trackday/racer/internal/session"
	"github.com/trackday/racer/internal/storage"
	"github.com/trackday/racer/internal/worker"
)

// CmdMetric writes a custom point: bucket, measurement, then
// "tag::name::value" and "field::type::name::value" args.
const CmdMetric = ":METRIC:"

// app holds every service of one racer process.
type app struct {
	sessionStart time.Time

	logFile     *os.File
	slogManager *logging.SlogManager
	otel        *intOtel.Provider
	graylog     io.Closer

	db      *database.Manager
	influx  *influx.Manager
	backend storage.Backend
	session *session.Context
	actors  *cache.ActorCache

	dispatcher *dispatcher.Dispatcher
	worker     *worker.Manager
	monitor    *monitor.Service
}

// newApp loads configuration and starts every service. Callers must Close
// the app.
func newApp(opts commonOptions) (*app, error) {
	a := &app{
		sessionStart: time.Now(),
		session:      session.NewContext(),
	}
	if err := a.loadConfig(opts); err != nil {
		return nil, err
	}
	if err := a.setupLogging(); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.setupStorage(); err != nil {
		a.Close()
		return nil, err
	}
	a.setupInflux()
	if err := a.setupWorker(); err != nil {
		a.Close()
		return nil, err
	}
	a.setupMonitor()

	a.logger().Info("racer started",
		"version", CurrentVersion,
		"storage", config.GetStorageConfig().Type,
		"commands", len(a.dispatcher.Commands()),
	)
	return a, nil
}

func (a *app) logger() *slog.Logger {
	if a.slogManager == nil {
		return slog.Default()
	}
	return a.slogManager.Logger()
}

func (a *app) loadConfig(opts commonOptions) error {
	if opts.ConfigDir == "" {
		config.LoadDefaults()
	} else if err := config.Load(opts.ConfigDir); err != nil {
		return err
	}
	if opts.Storage != "" {
		viper.Set("storage.type", opts.Storage)
	}
	if opts.LogLevel != "" {
		viper.Set("logLevel", opts.LogLevel)
	}
	return nil
}

func (a *app) setupLogging() error {
	level := config.GetString("logLevel")

	f, err := logging.OpenLogFile(config.GetString("logsDir"), logging.ServiceName, a.sessionStart)
	if err != nil {
		return err
	}
	a.logFile = f

	a.slogManager = logging.NewSlogManager()

	otelCfg := config.GetOTelConfig()
	a.otel, err = intOtel.New(intOtel.Config{
		Enabled:      otelCfg.Enabled,
		ServiceName:  otelCfg.ServiceName,
		BatchTimeout: otelCfg.BatchTimeout,
		LogWriter:    f,
		Endpoint:     otelCfg.Endpoint,
		Insecure:     otelCfg.Insecure,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize OTel provider: %w", err)
	}
	var otelLogProvider *sdklog.LoggerProvider
	if a.otel.Enabled() {
		otelLogProvider = a.otel.LoggerProvider()
	}

	opts := []logging.Option{logging.WithContext(a.session.LogAttrs)}
	if config.GetBool("graylog.enabled") {
		w, err := logging.NewGraylogWriter(config.GetString("graylog.address"))
		if err != nil {
			return err
		}
		a.graylog = w
		opts = append(opts, logging.WithGraylog(w))
	}

	a.slogManager.Setup(f, level, otelLogProvider, opts...)
	a.slogManager.Logger().Info("Logging to file", "path", f.Name())
	return nil
}

func (a *app) zerolog(component string) zerolog.Logger {
	return logging.NewZerolog(a.logFile, config.GetString("logLevel"), component)
}

func (a *app) setupStorage() error {
	storageCfg := config.GetStorageConfig()
	deps := storage.Dependencies{LogManager: a.slogManager}

	if storageCfg.Type == storage.TypePostgres {
		a.db = database.NewManager(a.zerolog("database"))
		if err := a.db.Connect(); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		if a.db.ShouldSaveLocal {
			a.db.SqliteFilePath = filepath.Join(
				config.GetString("logsDir"),
				fmt.Sprintf("%s_%s.db", logging.ServiceName, a.sessionStart.Format("20060102_150405")),
			)
		}
		deps.DB = a.db.DB
	}

	backend, err := storage.NewBackend(storageCfg, deps)
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize %s storage: %w", storageCfg.Type, err)
	}
	a.backend = backend
	a.slogManager.WriteLog("setupStorage", fmt.Sprintf("Storage backend %q initialized", storageCfg.Type), "INFO")
	return nil
}

func (a *app) setupInflux() {
	backupPath := filepath.Join(
		config.GetString("logsDir"),
		fmt.Sprintf("influx_%s.lp.gz", a.sessionStart.Format("20060102_150405")),
	)
	m := influx.NewManager(a.zerolog("influx"), backupPath)
	if err := m.Connect(); err != nil {
		if !errors.Is(err, influx.ErrDisabled) {
			a.logger().Error("Failed to set up InfluxDB", "error", err)
		}
		return
	}
	a.influx = m
}

func (a *app) setupWorker() error {
	d, err := dispatcher.NewWithMeterProvider(
		logging.NewDispatcherLogger(a.zerolog("dispatcher")),
		a.otel.MeterProvider(),
	)
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	a.dispatcher = d

	a.actors = cache.NewActorCache()
	deps := worker.Dependencies{
		ActorCache:    a.actors,
		LogManager:    a.slogManager,
		Parser:        parser.NewParser(a.slogManager.Logger(), CurrentVersion, BuildDate),
		Session:       a.session,
		MeterProvider: a.otel.MeterProvider(),
		Race:          config.GetRaceConfig(),
		Steering:      config.GetSteeringConfig(),
		Physics:       config.GetPhysicsConfig(),
		Version:       CurrentVersion,
		Build:         BuildDate,
		OnSave:        a.afterSave,
	}
	if a.influx != nil {
		deps.Telemetry = influx.NewTelemetry(a.influx, a.session)
	}
	if err := deps.Steering.Validate(); err != nil {
		return fmt.Errorf("invalid steering config: %w", err)
	}

	a.worker = worker.NewManager(deps, a.backend)
	a.worker.RegisterHandlers(d)
	if a.influx != nil {
		d.Register(CmdMetric, a.handleMetric, dispatcher.Buffered(1000))
	}
	return nil
}

func (a *app) handleMetric(e dispatcher.Event) (any, error) {
	bucket, point, err := influx.ParseMetric(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse metric: %w", err)
	}
	if err := a.influx.WritePoint(bucket, point); err != nil {
		return nil, fmt.Errorf("failed to write metric: %w", err)
	}
	return nil, nil
}

// recordingDB returns the database the storage backend writes to, if any.
func (a *app) recordingDB() *gorm.DB {
	if a.db != nil {
		return a.db.DB
	}
	if b, ok := a.backend.(interface{ DB() *gorm.DB }); ok {
		return b.DB()
	}
	return nil
}

func (a *app) setupMonitor() {
	a.monitor = monitor.NewService(monitor.Dependencies{
		DB:         a.recordingDB(),
		Influx:     a.influx,
		LogManager: a.slogManager,
		Worker:     a.worker,
		StatusFile: filepath.Join(config.GetString("logsDir"), config.GetString("monitor.statusFile")),
		Interval:   config.GetDuration("monitor.interval"),
		ActorCache: a.actors,
	})

	if config.GetBool("db.timescale") && a.db != nil && !a.db.ShouldSaveLocal {
		if err := a.monitor.ValidateHypertables(monitor.DefaultHypertables); err != nil {
			a.logger().Error("Failed to configure hypertables", "error", err)
		}
	}

	if !a.monitor.IsRunning() {
		_ = a.monitor.Start()
	}
}

// afterSave uploads the exported replay and flushes OTel after every :SAVE:.
func (a *app) afterSave(ctx context.Context) error {
	if u, ok := a.backend.(storage.Uploadable); ok {
		a.upload(ctx, u)
	}
	if a.db != nil && a.db.ShouldSaveLocal {
		if err := a.db.DumpMemoryToDisk(); err != nil {
			a.logger().Error("Failed to dump database", "error", err)
		}
	}
	return a.otel.Flush(ctx)
}

func (a *app) upload(ctx context.Context, u storage.Uploadable) {
	path := u.GetExportedFilePath()
	apiKey := config.GetString("api.apiKey")
	if path == "" || apiKey == "" {
		return
	}

	client := api.New(config.GetString("api.serverUrl"), apiKey)
	uploadCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	if err := client.Healthcheck(uploadCtx); err != nil {
		a.logger().Warn("Race frontend is offline, keeping replay locally", "path", path, "error", err)
		return
	}
	if err := client.Upload(uploadCtx, path, u.GetExportMetadata()); err != nil {
		a.logger().Error("Failed to upload replay", "path", path, "error", err)
		return
	}
	a.logger().Info("Uploaded replay", "path", path)
}

// Close ends a race still in progress and stops every service in reverse
// start order.
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.monitor != nil {
		a.monitor.Stop()
	}
	if a.worker != nil {
		if err := a.worker.Shutdown(ctx); err != nil {
			a.logger().Error("Failed to save race on shutdown", "error", err)
		}
	}
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			a.logger().Error("Failed to close storage", "error", err)
		}
	}
	if a.db != nil && a.db.SqlDB != nil {
		_ = a.db.SqlDB.Close()
	}
	if a.influx != nil {
		if err := a.influx.Close(); err != nil {
			a.logger().Error("Failed to close InfluxDB", "error", err)
		}
	}
	if a.otel != nil {
		if err := a.otel.Shutdown(ctx); err != nil {
			a.logger().Error("Failed to shut down OTel", "error", err)
		}
	}
	if a.graylog != nil {
		_ = a.graylog.Close()
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}
