package localdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ichi0g0y/retro-wheel/internal/shared/logger"
	"github.com/ichi0g0y/retro-wheel/internal/types"
	"go.uber.org/zap"
)

// LoadWheelState reads the persisted mode and settings. found is false before the first save.
func (s *Store) LoadWheelState(ctx context.Context) (types.Mode, types.WheelSettings, bool, error) {
	db := GetDB()
	if db == nil {
		return "", types.WheelSettings{}, false, fmt.Errorf("database not initialized")
	}

	var mode string
	var raw string
	err := db.QueryRowContext(ctx, `SELECT mode, settings_json FROM wheel_state WHERE id = 1`).Scan(&mode, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", types.WheelSettings{}, false, nil
	}
	if err != nil {
		logger.Error("Failed to load wheel state", zap.Error(err))
		return "", types.WheelSettings{}, false, fmt.Errorf("failed to load wheel state: %w", err)
	}

	// missing keys keep their defaults
	settings := types.DefaultWheelSettings()
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return "", types.WheelSettings{}, false, fmt.Errorf("failed to decode wheel settings: %w", err)
	}
	return types.Mode(mode), settings, true, nil
}

// SaveWheelState upserts the singleton wheel_state row.
func (s *Store) SaveWheelState(ctx context.Context, mode types.Mode, settings types.WheelSettings) error {
	db := GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode wheel settings: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
		INSERT INTO wheel_state (id, mode, settings_json, updated_at)
		VALUES (1, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			mode = excluded.mode,
			settings_json = excluded.settings_json,
			updated_at = CURRENT_TIMESTAMP
	`, string(mode), string(raw)); err != nil {
		logger.Error("Failed to save wheel state", zap.Error(err))
		return fmt.Errorf("failed to save wheel state: %w", err)
	}
	return nil
}
