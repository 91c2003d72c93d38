package localdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/ichi0g0y/retro-wheel/internal/types"
)

// SaveEvent upserts an event. Activating one deactivates every other event.
func (s *Store) SaveEvent(ctx context.Context, event types.Event, active bool) (types.Event, error) {
	db := GetDB()
	if db == nil {
		return types.Event{}, fmt.Errorf("database not initialized")
	}

	event.Name = strings.TrimSpace(event.Name)
	if event.Name == "" {
		return types.Event{}, fmt.Errorf("event name is required")
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Consoles == nil {
		event.Consoles = []string{}
	}
	consoles, err := json.Marshal(event.Consoles)
	if err != nil {
		return types.Event{}, fmt.Errorf("failed to encode event consoles: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return types.Event{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if active {
		if _, err := tx.ExecContext(ctx, `UPDATE events SET is_active = false WHERE id != ?`, event.ID); err != nil {
			return types.Event{}, fmt.Errorf("failed to deactivate events: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO events (id, name, consoles_json, is_active, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			consoles_json = excluded.consoles_json,
			is_active = excluded.is_active,
			updated_at = CURRENT_TIMESTAMP
	`, event.ID, event.Name, string(consoles), active); err != nil {
		return types.Event{}, fmt.Errorf("failed to save event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return types.Event{}, fmt.Errorf("failed to commit event: %w", err)
	}
	return event, nil
}

// DeactivateEvents ends whatever event is running.
func (s *Store) DeactivateEvents(ctx context.Context) error {
	db := GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	if _, err := db.ExecContext(ctx, `UPDATE events SET is_active = false`); err != nil {
		return fmt.Errorf("failed to deactivate events: %w", err)
	}
	return nil
}

// GetActiveEvent returns the running event, or nil.
func (s *Store) GetActiveEvent(ctx context.Context) (*types.Event, error) {
	db := GetDB()
	if db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	var event types.Event
	var consoles string
	err := db.QueryRowContext(ctx, `
		SELECT id, name, consoles_json FROM events WHERE is_active = true ORDER BY updated_at DESC LIMIT 1
	`).Scan(&event.ID, &event.Name, &consoles)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load active event: %w", err)
	}
	if err := json.Unmarshal([]byte(consoles), &event.Consoles); err != nil {
		return nil, fmt.Errorf("failed to decode event consoles: %w", err)
	}
	return &event, nil
}
