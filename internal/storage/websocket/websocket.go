// Package websocket streams race data to a live race server.
package websocket

import (
	"errors"
	"log/slog"
	"time"

	"github.com/trackday/racer/internal/config"
	"github.com/trackday/racer/pkg/core"
	"github.com/trackday/racer/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL        string
	Secret     string
	AckTimeout time.Duration
	BufferSize int
	MaxBackoff time.Duration
}

// ConfigFrom converts the loaded storage.websocket settings.
func ConfigFrom(cfg config.WebSocketConfig) Config {
	return Config(cfg)
}

func (c Config) withDefaults() Config {
	if c.AckTimeout <= 0 {
		c.AckTimeout = 10 * time.Second
	}
	if c.BufferSize <= 0 {
		c.BufferSize = 10_000
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	return c
}

// ErrNoURL is returned by Init when no server URL is configured.
var ErrNoURL = errors.New("websocket: no server url configured")

// Backend streams race data over WebSocket. Race boundaries wait for a
// server ack; everything else is fire-and-forget.
type Backend struct {
	conn *connection
	cfg  Config
}

// New creates a new WebSocket storage backend. A nil logger uses slog.Default.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &Backend{
		conn: newConnection(cfg.BufferSize, cfg.MaxBackoff, logger.With("backend", "websocket")),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	if b.cfg.URL == "" {
		return ErrNoURL
	}
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// Dropped reports how many messages were discarded on a full send buffer.
func (b *Backend) Dropped() uint64 {
	return b.conn.dropped.Load()
}

func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := streaming.Marshal(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// StartRace sends the race and its track and waits for the server ack.
// The message is replayed after every reconnect until EndRace.
func (b *Backend) StartRace(race *core.Race, track *core.Track) error {
	data, err := streaming.Marshal(streaming.TypeStartRace, streaming.StartRacePayload{
		Race:  race,
		Track: streaming.NewTrackPayload(track),
	})
	if err != nil {
		return err
	}
	b.conn.setStartMessage(data)
	return b.conn.sendAndWait(data, streaming.TypeStartRace, b.cfg.AckTimeout)
}

// EndRace sends end_race and waits for the server ack.
func (b *Backend) EndRace() error {
	data, err := streaming.Marshal(streaming.TypeEndRace, nil)
	if err != nil {
		return err
	}
	err = b.conn.sendAndWait(data, streaming.TypeEndRace, b.cfg.AckTimeout)
	b.conn.setStartMessage(nil)
	return err
}

func (b *Backend) AddActor(a *core.Actor) error {
	return b.sendEnvelope(streaming.TypeAddActor, a)
}

func (b *Backend) RecordActorState(s *core.ActorState) error {
	return b.sendEnvelope(streaming.TypeActorState, s)
}

func (b *Backend) RecordLapEvent(e *core.LapEvent) error {
	return b.sendEnvelope(streaming.TypeLapEvent, e)
}
