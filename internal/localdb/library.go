package localdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ichi0g0y/retro-wheel/internal/shared/logger"
	"github.com/ichi0g0y/retro-wheel/internal/types"
	"go.uber.org/zap"
)

// games are re-read only when library_meta.updated_at moves
var libraryCache struct {
	sync.Mutex
	valid     bool
	updatedAt int64
	games     []types.Game
}

func resetLibraryCache() {
	libraryCache.Lock()
	libraryCache.valid = false
	libraryCache.games = nil
	libraryCache.Unlock()
}

// GetLibrarySnapshot returns every library game and the library's freshness stamp.
func (s *Store) GetLibrarySnapshot(ctx context.Context) (types.LibrarySnapshot, error) {
	db := GetDB()
	if db == nil {
		return types.LibrarySnapshot{}, fmt.Errorf("database not initialized")
	}

	updatedAt, err := libraryUpdatedAt(ctx, db)
	if err != nil {
		return types.LibrarySnapshot{}, err
	}

	libraryCache.Lock()
	defer libraryCache.Unlock()
	if libraryCache.valid && libraryCache.updatedAt == updatedAt {
		return types.LibrarySnapshot{Games: libraryCache.games, UpdatedAt: updatedAt}, nil
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, title, COALESCE(console_id, ''), COALESCE(console_name, ''), COALESCE(image_url, '')
		FROM library_games
		ORDER BY position, id
	`)
	if err != nil {
		return types.LibrarySnapshot{}, fmt.Errorf("failed to query library: %w", err)
	}
	defer rows.Close()

	games := make([]types.Game, 0)
	for rows.Next() {
		var g types.Game
		if err := rows.Scan(&g.ID, &g.Title, &g.Console.ID, &g.Console.Name, &g.ImageURL); err != nil {
			return types.LibrarySnapshot{}, fmt.Errorf("failed to scan library game: %w", err)
		}
		g.ConsoleID = g.Console.ID
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return types.LibrarySnapshot{}, err
	}

	libraryCache.valid = true
	libraryCache.updatedAt = updatedAt
	libraryCache.games = games
	return types.LibrarySnapshot{Games: games, UpdatedAt: updatedAt}, nil
}

func libraryUpdatedAt(ctx context.Context, db *sql.DB) (int64, error) {
	var updatedAt int64
	err := db.QueryRowContext(ctx, `SELECT updated_at FROM library_meta WHERE id = 1`).Scan(&updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read library stamp: %w", err)
	}
	return updatedAt, nil
}

// ReplaceLibrary swaps the whole library and bumps its freshness stamp.
// The stamp always increases so cached wheel snapshots notice the change.
func (s *Store) ReplaceLibrary(ctx context.Context, games []types.Game) (int64, error) {
	db := GetDB()
	if db == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM library_games`); err != nil {
		return 0, fmt.Errorf("failed to clear library: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO library_games (id, title, console_id, console_name, image_url, position)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare library insert: %w", err)
	}
	defer stmt.Close()

	skipped := 0
	for i, g := range games {
		id := strings.TrimSpace(g.ID)
		if id == "" {
			skipped++
			continue
		}
		consoleID := g.Console.ID
		if consoleID == "" {
			consoleID = g.ConsoleID
		}
		if _, err := stmt.ExecContext(ctx, id, g.Title, consoleID, g.Console.Name, g.ImageURL, i); err != nil {
			return 0, fmt.Errorf("failed to insert library game %s: %w", id, err)
		}
	}

	var previous int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(updated_at), 0) FROM library_meta`).Scan(&previous); err != nil {
		return 0, fmt.Errorf("failed to read library stamp: %w", err)
	}
	updatedAt := s.now().UnixMilli()
	if updatedAt <= previous {
		updatedAt = previous + 1
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO library_meta (id, updated_at) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at
	`, updatedAt); err != nil {
		return 0, fmt.Errorf("failed to update library stamp: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit library: %w", err)
	}

	logger.Info("Library replaced",
		zap.Int("games", len(games)-skipped),
		zap.Int("skipped", skipped),
		zap.Int64("updated_at", updatedAt))
	return updatedAt, nil
}

// libraryFile is the seed file format. Either a bare array of games or an
// object with a games field is accepted.
type libraryFile struct {
	Games []types.Game `json:"games"`
}

// DecodeLibrary parses a library export in either accepted shape.
func DecodeLibrary(data []byte) ([]types.Game, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var games []types.Game
		if err := json.Unmarshal(data, &games); err != nil {
			return nil, err
		}
		return games, nil
	}
	var file libraryFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	return file.Games, nil
}

// ImportLibraryFile loads a JSON library export into the database.
func (s *Store) ImportLibraryFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read library file: %w", err)
	}

	games, err := DecodeLibrary(data)
	if err != nil {
		return 0, fmt.Errorf("failed to decode library file: %w", err)
	}

	if _, err := s.ReplaceLibrary(ctx, games); err != nil {
		return 0, err
	}
	return len(games), nil
}
