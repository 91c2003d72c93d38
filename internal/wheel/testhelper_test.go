package wheel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ichi0g0y/retro-wheel/internal/types"
)

var errStoreDown = errors.New("store down")

type fakeLibrary struct {
	mu       sync.Mutex
	snapshot types.LibrarySnapshot
	err      error
}

func (f *fakeLibrary) GetLibrarySnapshot(context.Context) (types.LibrarySnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot, f.err
}

func (f *fakeLibrary) set(games []types.Game, updatedAt int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshot = types.LibrarySnapshot{Games: games, UpdatedAt: updatedAt}
}

type fakeEvents struct {
	event *types.Event
	err   error
}

func (f *fakeEvents) GetActiveEvent(context.Context) (*types.Event, error) {
	return f.event, f.err
}

type fakeSuggestions struct {
	items []types.Suggestion
	err   error
}

func (f *fakeSuggestions) ListOpenSuggestions(context.Context) ([]types.Suggestion, error) {
	return f.items, f.err
}

type fakeState struct {
	mode     types.Mode
	settings types.WheelSettings
	found    bool
	loadErr  error
	saveErr  error
	saves    int
}

func (f *fakeState) LoadWheelState(context.Context) (types.Mode, types.WheelSettings, bool, error) {
	return f.mode, f.settings, f.found, f.loadErr
}

func (f *fakeState) SaveWheelState(_ context.Context, mode types.Mode, settings types.WheelSettings) error {
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mode, f.settings, f.found = mode, settings, true
	return nil
}

type fakeHistory struct {
	records []types.SpinRecord
}

func (f *fakeHistory) RecordSpin(_ context.Context, rec types.SpinRecord, _ int) error {
	f.records = append(f.records, rec)
	return nil
}

func generateGames(prefix, console string, n int) []types.Game {
	games := make([]types.Game, n)
	for i := 0; i < n; i++ {
		games[i] = types.Game{
			ID:      fmt.Sprintf("%s-%03d", prefix, i+1),
			Title:   fmt.Sprintf("%s Game %03d", prefix, i+1),
			Console: types.ConsoleRef{Name: console},
		}
	}
	return games
}

// pinRandom replaces randomInt for the duration of the test.
func pinRandom(t *testing.T, fn func(max int) (int, error)) {
	t.Helper()
	original := randomInt
	randomInt = fn
	t.Cleanup(func() {
		randomInt = original
	})
}

// countRandom wraps the real source and counts draws.
func countRandom(t *testing.T) *int {
	t.Helper()
	calls := 0
	original := randomInt
	randomInt = func(max int) (int, error) {
		calls++
		return original(max)
	}
	t.Cleanup(func() {
		randomInt = original
	})
	return &calls
}

func idsOf(items []types.PoolItem) map[string]bool {
	ids := make(map[string]bool, len(items))
	for _, item := range items {
		ids[item.ID] = true
	}
	return ids
}
