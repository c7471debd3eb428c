// Package db opens the backing store and applies the embedded migrations.
// The driver switches between the embedded sqlite used in development and
// postgres in production; repositories only ever see *sqlx.DB.
package db

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Init connects and tunes the pool for the active driver. sqlx.Connect pings,
// so a returned handle is known reachable.
func Init(driver, connection string, maxOpen, maxIdle int) (*sqlx.DB, error) {
	if driver == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(connection), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite data dir: %w", err)
		}
		// A single connection keeps modernc sqlite out of SQLITE_BUSY when
		// several platform cycles commit at once.
		maxOpen = 1
		maxIdle = 1
	}

	database, err := sqlx.Connect(driver, connection)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	database.SetMaxOpenConns(maxOpen)
	database.SetMaxIdleConns(maxIdle)
	database.SetConnMaxLifetime(30 * time.Minute)

	slog.Info("database connected", "driver", driver, "max_open_conns", maxOpen)
	return database, nil
}
