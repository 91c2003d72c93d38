package localdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/ichi0g0y/retro-wheel/internal/shared/logger"
	"github.com/ichi0g0y/retro-wheel/internal/types"
	"go.uber.org/zap"
)

const (
	SuggestionOpen     = "open"
	SuggestionAccepted = "accepted"
	SuggestionRejected = "rejected"
)

// AddSuggestion stores a new open suggestion and returns it with its id.
func (s *Store) AddSuggestion(ctx context.Context, suggestion types.Suggestion) (types.Suggestion, error) {
	db := GetDB()
	if db == nil {
		return types.Suggestion{}, fmt.Errorf("database not initialized")
	}

	suggestion.Title = strings.TrimSpace(suggestion.Title)
	if suggestion.Title == "" {
		return types.Suggestion{}, fmt.Errorf("suggestion title is required")
	}
	suggestion.ID = uuid.NewString()
	suggestion.Status = SuggestionOpen

	if _, err := db.ExecContext(ctx, `
		INSERT INTO suggestions (id, title, console, requester, note, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`, suggestion.ID, suggestion.Title, suggestion.Console, suggestion.Requester, suggestion.Note, suggestion.Status); err != nil {
		logger.Error("Failed to add suggestion", zap.Error(err), zap.String("title", suggestion.Title))
		return types.Suggestion{}, fmt.Errorf("failed to add suggestion: %w", err)
	}
	return suggestion, nil
}

// SetSuggestionStatus moves a suggestion out of (or back into) the open list.
func (s *Store) SetSuggestionStatus(ctx context.Context, id, status string) error {
	db := GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	switch status {
	case SuggestionOpen, SuggestionAccepted, SuggestionRejected:
	default:
		return fmt.Errorf("invalid suggestion status %q", status)
	}

	result, err := db.ExecContext(ctx, `UPDATE suggestions SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update suggestion: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("suggestion %s not found", id)
	}
	return nil
}

// ListOpenSuggestions returns open suggestions, oldest first.
func (s *Store) ListOpenSuggestions(ctx context.Context) ([]types.Suggestion, error) {
	db := GetDB()
	if db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, title, COALESCE(console, ''), COALESCE(requester, ''), COALESCE(note, ''), status
		FROM suggestions
		WHERE status = ?
		ORDER BY created_at, rowid
	`, SuggestionOpen)
	if err != nil {
		return nil, fmt.Errorf("failed to query suggestions: %w", err)
	}
	defer rows.Close()

	out := make([]types.Suggestion, 0)
	for rows.Next() {
		var sg types.Suggestion
		if err := rows.Scan(&sg.ID, &sg.Title, &sg.Console, &sg.Requester, &sg.Note, &sg.Status); err != nil {
			return nil, fmt.Errorf("failed to scan suggestion: %w", err)
		}
		out = append(out, sg)
	}
	return out, rows.Err()
}
