package localdb

import (
	"context"
	"fmt"

	"github.com/ichi0g0y/retro-wheel/internal/shared/logger"
	"github.com/ichi0g0y/retro-wheel/internal/types"
	"go.uber.org/zap"
)

const defaultHistoryLimit = 50

// SpinHistoryEntry is one row of the spin audit log.
type SpinHistoryEntry struct {
	ID          int64          `json:"id"`
	SpinID      string         `json:"spinId"`
	TS          int64          `json:"ts"`
	Mode        types.Mode     `json:"mode"`
	WinnerID    string         `json:"winnerId"`
	WinnerTitle string         `json:"winnerTitle"`
	WinnerType  types.ItemType `json:"winnerType"`
	TargetIdx   int            `json:"targetIdx"`
	DurationMs  int            `json:"durationMs"`
	Turns       int            `json:"turns"`
	PoolSize    int            `json:"poolSize"`
}

// RecordSpin appends a spin to wheel_history.
func (s *Store) RecordSpin(ctx context.Context, rec types.SpinRecord, poolSize int) error {
	db := GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	var winnerID, winnerTitle, winnerType string
	if rec.Winner != nil {
		winnerID = rec.Winner.ID
		winnerTitle = rec.Winner.Title
		winnerType = string(rec.Winner.Type)
	}

	if _, err := db.ExecContext(ctx, `
		INSERT INTO wheel_history (spin_id, ts, mode, winner_id, winner_title, winner_type, target_idx, duration_ms, turns, pool_size)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.SpinID, rec.TS, string(rec.Mode), winnerID, winnerTitle, winnerType,
		rec.TargetIdx, rec.DurationMs, rec.Turns, poolSize); err != nil {
		logger.Error("Failed to record spin", zap.Error(err), zap.String("spin_id", rec.SpinID))
		return fmt.Errorf("failed to record spin: %w", err)
	}
	return nil
}

// GetSpinHistory returns the newest spins first.
func (s *Store) GetSpinHistory(ctx context.Context, limit int) ([]SpinHistoryEntry, error) {
	db := GetDB()
	if db == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, spin_id, ts, mode, COALESCE(winner_id, ''), COALESCE(winner_title, ''), COALESCE(winner_type, ''),
			target_idx, duration_ms, turns, pool_size
		FROM wheel_history
		ORDER BY ts DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query spin history: %w", err)
	}
	defer rows.Close()

	entries := make([]SpinHistoryEntry, 0)
	for rows.Next() {
		var e SpinHistoryEntry
		var mode, winnerType string
		if err := rows.Scan(&e.ID, &e.SpinID, &e.TS, &mode, &e.WinnerID, &e.WinnerTitle, &winnerType,
			&e.TargetIdx, &e.DurationMs, &e.Turns, &e.PoolSize); err != nil {
			return nil, fmt.Errorf("failed to scan spin history: %w", err)
		}
		e.Mode = types.Mode(mode)
		e.WinnerType = types.ItemType(winnerType)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
