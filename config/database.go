package config

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultDatabaseDSN keeps the event journal in memory; nothing survives a restart.
const DefaultDatabaseDSN = "file:boardlink?mode=memory&cache=shared"

// Migrations creates the event journal schema.
const Migrations = `
CREATE TABLE IF NOT EXISTS board_events (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT    NOT NULL UNIQUE,
	board_id   TEXT    NOT NULL,
	board_name TEXT    NOT NULL DEFAULT '',
	kind       TEXT    NOT NULL,
	data       TEXT    NOT NULL DEFAULT 'null',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_board_events_board ON board_events (board_id, seq);
`

// InitDatabase opens the SQLite event journal and runs migrations.
func InitDatabase(dsn string) (*sql.DB, error) {
	if dsn == "" {
		dsn = DefaultDatabaseDSN
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps an in-memory database alive and shared.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	log.Println("Database initialized successfully")
	return db, nil
}

func runMigrations(db *sql.DB) error {
	_, err := db.Exec(Migrations)
	return err
}
