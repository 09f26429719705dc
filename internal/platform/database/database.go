package database

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"deployd/internal/platform/config"
)

// Open connects to the deploy-history database and makes sure its
// schema exists. The store is a single local sqlite file; there is no
// remote database in this system.
func Open(cfg config.HistoryConfig) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	// sqlite: a single writer avoids SQLITE_BUSY under concurrent triggers.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if err := EnsureSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// EnsureSchema creates the deploy_runs table if migrations have not
// been applied yet. cmd/migrate remains the tool for managed up/down
// changes.
func EnsureSchema(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS deploy_runs (
		id TEXT PRIMARY KEY,
		app TEXT NOT NULL,
		success INTEGER NOT NULL,
		error TEXT,
		remote_addr TEXT,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_deploy_runs_app ON deploy_runs(app, started_at);
	`
	_, err := db.Exec(query)
	return err
}
