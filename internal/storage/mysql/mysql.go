// Package mysql implements the storage.Backend interface on MySQL or
// MariaDB through the GORM backend.
package mysql

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/hilsim/hilsim/internal/database"
	gormstorage "github.com/hilsim/hilsim/internal/storage/gorm"
)

// MaxOpenConns caps the connection pool.
const MaxOpenConns = 10

// Backend wraps the GORM backend for MySQL.
type Backend struct {
	*gormstorage.Backend
}

// New creates a MySQL backend. The connection is opened by Init.
func New(log *slog.Logger) *Backend {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "mysql")
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{
			Connect: connect,
			Logger:  log,
		}),
	}
}

func connect() (*gorm.DB, error) {
	db, err := database.GetMySQLDB()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mysql: %w", err)
	}
	if err := database.Ping(db); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	sqlDB.SetMaxOpenConns(MaxOpenConns)
	return db, nil
}
