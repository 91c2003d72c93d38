package localdb

import (
	"database/sql"
	"fmt"

	"github.com/ichi0g0y/retro-wheel/internal/shared/logger"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var DBClient *sql.DB

func SetupDB(dbPath string) (*sql.DB, error) {
	if DBClient != nil {
		return DBClient, nil
	}

	// WAL and busy timeout so overlay polls never collide with admin writes
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	// sqlite has a single writer
	db.SetMaxOpenConns(1)

	if err := SetupWheelTables(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := SetupLibraryTables(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	DBClient = db
	resetLibraryCache()
	return db, nil
}

func GetDB() *sql.DB {
	return DBClient
}

// SetupWheelTables creates wheel_state and wheel_history.
func SetupWheelTables(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS wheel_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			mode TEXT NOT NULL DEFAULT 'game',
			settings_json TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		logger.Error("Failed to create wheel_state table", zap.Error(err))
		return fmt.Errorf("failed to create wheel_state table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS wheel_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			spin_id TEXT NOT NULL,
			ts INTEGER NOT NULL,
			mode TEXT NOT NULL,
			winner_id TEXT,
			winner_title TEXT,
			winner_type TEXT,
			target_idx INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			turns INTEGER NOT NULL,
			pool_size INTEGER NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		logger.Error("Failed to create wheel_history table", zap.Error(err))
		return fmt.Errorf("failed to create wheel_history table: %w", err)
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_wheel_history_ts ON wheel_history(ts DESC)`); err != nil {
		logger.Warn("Failed to create wheel_history index", zap.Error(err))
	}

	return nil
}

// SetupLibraryTables creates the library, suggestion and event tables.
func SetupLibraryTables(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS library_games (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			console_id TEXT,
			console_name TEXT,
			image_url TEXT,
			position INTEGER NOT NULL DEFAULT 0
		)
	`); err != nil {
		logger.Error("Failed to create library_games table", zap.Error(err))
		return fmt.Errorf("failed to create library_games table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS library_meta (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			updated_at INTEGER NOT NULL DEFAULT 0
		)
	`); err != nil {
		logger.Error("Failed to create library_meta table", zap.Error(err))
		return fmt.Errorf("failed to create library_meta table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS suggestions (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			console TEXT,
			requester TEXT,
			note TEXT,
			status TEXT NOT NULL DEFAULT 'open',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		logger.Error("Failed to create suggestions table", zap.Error(err))
		return fmt.Errorf("failed to create suggestions table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			consoles_json TEXT NOT NULL DEFAULT '[]',
			is_active BOOLEAN NOT NULL DEFAULT false,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		logger.Error("Failed to create events table", zap.Error(err))
		return fmt.Errorf("failed to create events table: %w", err)
	}

	return nil
}
