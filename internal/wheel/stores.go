package wheel

import (
	"context"

	"github.com/ichi0g0y/retro-wheel/internal/types"
)

// LibraryStore provides the game library.
type LibraryStore interface {
	GetLibrarySnapshot(ctx context.Context) (types.LibrarySnapshot, error)
}

// SuggestionStore lists viewer suggestions that are still open.
type SuggestionStore interface {
	ListOpenSuggestions(ctx context.Context) ([]types.Suggestion, error)
}

// EventStore returns the active event, or nil when none is running.
type EventStore interface {
	GetActiveEvent(ctx context.Context) (*types.Event, error)
}

// StateStore persists mode and settings. found is false when nothing was saved yet.
type StateStore interface {
	LoadWheelState(ctx context.Context) (mode types.Mode, settings types.WheelSettings, found bool, err error)
	SaveWheelState(ctx context.Context, mode types.Mode, settings types.WheelSettings) error
}

// HistoryStore records finished spin announcements for the admin history view.
type HistoryStore interface {
	RecordSpin(ctx context.Context, rec types.SpinRecord, poolSize int) error
}
