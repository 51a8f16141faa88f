// Package postgres implements the storage.Backend interface on PostgreSQL.
// It connects from viper config and otherwise defers to the GORM backend.
package postgres

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/hilsim/hilsim/internal/database"
	gormstorage "github.com/hilsim/hilsim/internal/storage/gorm"
)

// MaxOpenConns caps the pool shared by the writer goroutine and flight updates.
const MaxOpenConns = 10

// Backend wraps the GORM backend for PostgreSQL.
type Backend struct {
	*gormstorage.Backend
}

// New creates a PostgreSQL backend. The connection is opened by Init.
func New(log *slog.Logger) *Backend {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "postgres")
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{
			Connect: func() (*gorm.DB, error) { return connect(log) },
			Logger:  log,
		}),
	}
}

func connect(log *slog.Logger) (*gorm.DB, error) {
	db, err := database.GetPostgresDB()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := database.Ping(db); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	sqlDB.SetMaxOpenConns(MaxOpenConns)

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS postgis;`).Error; err != nil {
		log.Warn("PostGIS extension unavailable, geometry stored as WKB", "error", err)
	} else {
		log.Info("PostGIS extension created")
	}
	return db, nil
}
