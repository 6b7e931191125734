package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/trackday/racer/internal/physics"
	"github.com/trackday/racer/internal/steering"
)

// FileName is the config file looked up in the config directory.
const FileName = "racer.cfg.json"

// EnvPrefix prefixes environment overrides, e.g. RACER_STORAGE_TYPE.
const EnvPrefix = "RACER"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	OutputDir    string        `json:"outputDir" mapstructure:"outputDir"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// WebSocketConfig holds streaming storage backend settings
type WebSocketConfig struct {
	URL        string        `json:"url" mapstructure:"url"`
	Secret     string        `json:"secret" mapstructure:"secret"`
	AckTimeout time.Duration `json:"ackTimeout" mapstructure:"ackTimeout"`
	BufferSize int           `json:"bufferSize" mapstructure:"bufferSize"`
	MaxBackoff time.Duration `json:"maxBackoff" mapstructure:"maxBackoff"`
}

// StorageConfig selects and configures the recording backend
type StorageConfig struct {
	Type      string          `json:"type" mapstructure:"type"`
	Memory    MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQLite    SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	WebSocket WebSocketConfig `json:"websocket" mapstructure:"websocket"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// RaceConfig holds the defaults for new races
type RaceConfig struct {
	FrameRate  float64 `json:"frameRate" mapstructure:"frameRate"`
	TargetLaps int     `json:"targetLaps" mapstructure:"targetLaps"`
	TrackFile  string  `json:"trackFile" mapstructure:"trackFile"`
	// FrameBuffer is the capacity of the engine -> recorder channel.
	FrameBuffer int `json:"frameBuffer" mapstructure:"frameBuffer"`
	// DropFrames lets the frame loop drop frames instead of waiting on a
	// full recorder channel.
	DropFrames bool `json:"dropFrames" mapstructure:"dropFrames"`
	// MaxStepFrames caps the frame count of a single :RACE:STEP:.
	MaxStepFrames int `json:"maxStepFrames" mapstructure:"maxStepFrames"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// LoadDefaults sets default values without reading a file. It is used when
// the racer runs without a config directory.
func LoadDefaults() {
	setDefaults()
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("defaultTag", "Practice")
	viper.SetDefault("logsDir", "./racerlogs")

	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "racer")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "racer-metrics")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./recordings")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.outputDir", "./recordings")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.websocket.url", "ws://localhost:5000/api/v1/stream")
	viper.SetDefault("storage.websocket.secret", "")
	viper.SetDefault("storage.websocket.ackTimeout", "10s")
	viper.SetDefault("storage.websocket.bufferSize", 10000)
	viper.SetDefault("storage.websocket.maxBackoff", "30s")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "racer")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("race.frameRate", 60.0)
	viper.SetDefault("race.targetLaps", 3)
	viper.SetDefault("race.trackFile", "")
	viper.SetDefault("race.frameBuffer", 1000)
	viper.SetDefault("race.dropFrames", false)
	viper.SetDefault("race.maxStepFrames", 100000)

	defaults := steering.DefaultParams()
	viper.SetDefault("steering.arrivalThreshold", defaults.ArrivalThreshold)
	viper.SetDefault("steering.deadZone", defaults.DeadZone)
	viper.SetDefault("steering.slowZone", defaults.SlowZone)
	viper.SetDefault("steering.slowFactor", defaults.SlowFactor)
	viper.SetDefault("steering.nearTurnScale", defaults.NearTurnScale)
	viper.SetDefault("steering.clampOvershoot", defaults.ClampOvershoot)

	viper.SetDefault("physics.friction", physics.DefaultFriction)

	viper.SetDefault("monitor.statusFile", "status.txt")
	viper.SetDefault("monitor.interval", "1s")
	viper.SetDefault("db.timescale", false)
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a duration config value.
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// GetStorageConfig returns the storage backend configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			OutputDir:    viper.GetString("storage.sqlite.outputDir"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		WebSocket: WebSocketConfig{
			URL:        viper.GetString("storage.websocket.url"),
			Secret:     viper.GetString("storage.websocket.secret"),
			AckTimeout: viper.GetDuration("storage.websocket.ackTimeout"),
			BufferSize: viper.GetInt("storage.websocket.bufferSize"),
			MaxBackoff: viper.GetDuration("storage.websocket.maxBackoff"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetRaceConfig returns the defaults for new races.
func GetRaceConfig() RaceConfig {
	return RaceConfig{
		FrameRate:     viper.GetFloat64("race.frameRate"),
		TargetLaps:    viper.GetInt("race.targetLaps"),
		TrackFile:     viper.GetString("race.trackFile"),
		FrameBuffer:   viper.GetInt("race.frameBuffer"),
		DropFrames:    viper.GetBool("race.dropFrames"),
		MaxStepFrames: viper.GetInt("race.maxStepFrames"),
	}
}

// GetSteeringConfig returns the AI steering parameters.
func GetSteeringConfig() steering.Params {
	return steering.Params{
		ArrivalThreshold: viper.GetFloat64("steering.arrivalThreshold"),
		DeadZone:         viper.GetFloat64("steering.deadZone"),
		SlowZone:         viper.GetFloat64("steering.slowZone"),
		SlowFactor:       viper.GetFloat64("steering.slowFactor"),
		NearTurnScale:    viper.GetFloat64("steering.nearTurnScale"),
		ClampOvershoot:   viper.GetBool("steering.clampOvershoot"),
	}
}

// GetPhysicsConfig returns the player handling parameters.
func GetPhysicsConfig() physics.Params {
	return physics.Params{
		Friction: viper.GetFloat64("physics.friction"),
	}
}
