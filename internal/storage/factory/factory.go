// Package factory builds the storage backend selected by configuration.
package factory

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hilsim/hilsim/internal/config"
	"github.com/hilsim/hilsim/internal/logging"
	"github.com/hilsim/hilsim/internal/storage"
	gormstorage "github.com/hilsim/hilsim/internal/storage/gorm"
	"github.com/hilsim/hilsim/internal/storage/memory"
	"github.com/hilsim/hilsim/internal/storage/mysql"
	"github.com/hilsim/hilsim/internal/storage/postgres"
	sqlitestorage "github.com/hilsim/hilsim/internal/storage/sqlite"
	"github.com/hilsim/hilsim/internal/storage/websocket"
)

// Storage types accepted in storage.type.
const (
	TypeNone      = "none"
	TypeMemory    = "memory"
	TypeSQLite    = "sqlite"
	TypePostgres  = "postgres"
	TypeMySQL     = "mysql"
	TypeWebSocket = "websocket"
)

// Options carries values that come from the parameter file rather than the
// storage settings.
type Options struct {
	VizSize [3]float64
	Now     func() time.Time
}

// NewBackend creates a storage backend based on configuration. It returns
// nil without error for TypeNone. The backend is not initialized.
func NewBackend(cfg config.StorageConfig, opts Options, log *slog.Logger) (storage.Backend, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	switch cfg.Type {
	case TypeNone, "":
		return nil, nil
	case TypeMemory:
		return memory.New(cfg.Memory), nil
	case TypeSQLite:
		sqliteCfg := sqlitestorage.Config{DumpInterval: cfg.SQLite.DumpInterval}
		if cfg.SQLite.OutputDir != "" {
			sqliteCfg.DumpPath = logging.SessionFilePath(cfg.SQLite.OutputDir, "hilsim", ".db", opts.Now())
		}
		return sqlitestorage.New(sqliteCfg, log)
	case TypePostgres:
		return postgres.New(log), nil
	case TypeMySQL:
		return mysql.New(log), nil
	case TypeWebSocket:
		return NewStream(cfg.WebSocket, opts.VizSize, log)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// NewStream creates the websocket visualization backend.
func NewStream(cfg config.WebSocketConfig, vizSize [3]float64, log *slog.Logger) (*websocket.Backend, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("storage.websocket.url is required")
	}
	return websocket.New(websocket.Config{URL: cfg.URL, Secret: cfg.Secret, VizSize: vizSize}, log), nil
}

// Stats reports writer health for backends built on the GORM backend.
type Stats interface {
	PendingWrites() int
	LastWriteDuration() time.Duration
	Dropped() uint64
}

var (
	_ Stats = (*gormstorage.Backend)(nil)
	_ Stats = (*sqlitestorage.Backend)(nil)
)
