package storage

import (
	"fmt"

	"github.com/trackday/racer/internal/config"
	"github.com/trackday/racer/internal/logging"
	"github.com/trackday/racer/internal/storage/memory"
	"github.com/trackday/racer/internal/storage/postgres"
	sqlitestorage "github.com/trackday/racer/internal/storage/sqlite"
	"github.com/trackday/racer/internal/storage/websocket"

	"gorm.io/gorm"
)

// Storage types accepted in storage.type.
const (
	TypeMemory    = "memory"
	TypeSQLite    = "sqlite"
	TypePostgres  = "postgres"
	TypeWebSocket = "websocket"
)

// Dependencies holds what the backends share.
type Dependencies struct {
	// DB is used by the postgres backend; opened from db.* when nil.
	DB         *gorm.DB
	LogManager *logging.SlogManager
}

// NewBackend creates a storage backend based on configuration. The
// backend is not initialized.
func NewBackend(cfg config.StorageConfig, deps Dependencies) (Backend, error) {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	switch cfg.Type {
	case TypePostgres:
		return postgres.New(postgres.Dependencies{
			DB:         deps.DB,
			LogManager: deps.LogManager,
		}), nil
	case TypeSQLite:
		return sqlitestorage.New(sqlitestorage.ConfigFrom(cfg.SQLite), deps.LogManager)
	case TypeWebSocket:
		return websocket.New(websocket.ConfigFrom(cfg.WebSocket), deps.LogManager.Logger()), nil
	case TypeMemory, "":
		return memory.New(cfg.Memory), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
