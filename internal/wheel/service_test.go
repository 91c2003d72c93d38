package wheel

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ichi0g0y/retro-wheel/internal/types"
)

func newTestService(t *testing.T, library *fakeLibrary, opts Options) *Service {
	t.Helper()
	opts.Library = library
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	}
	return NewService(context.Background(), opts)
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
func bonusPtr(b types.BonusMode) *types.BonusMode {
	return &b
}

func TestService_SnapshotIsCached(t *testing.T) {
	library := &fakeLibrary{}
	library.set(generateGames("ps1", "PlayStation", 40), 100)
	svc := newTestService(t, library, Options{})
	ctx := context.Background()

	first, err := svc.Snapshot(ctx, false)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	second, err := svc.Snapshot(ctx, false)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if first.State.Sample != second.State.Sample {
		t.Fatalf("idle sample changed without any state change")
	}
	if first.State.PoolSize != 40 {
		t.Fatalf("unexpected pool size: got=%d want=40", first.State.PoolSize)
	}
	if first.Spin != nil {
		t.Fatalf("no spin expected yet")
	}
}

func TestService_SnapshotKeyChangesWithFilterAndLibrary(t *testing.T) {
	library := &fakeLibrary{}
	games := append(generateGames("ps1", "PlayStation", 20), generateGames("ps2", "PS2", 5)...)
	library.set(games, 100)
	svc := newTestService(t, library, Options{})
	ctx := context.Background()

	before, err := svc.Snapshot(ctx, false)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	keyBefore := svc.cache.key

	if _, _, err := svc.UpdateSettings(ctx, SettingsPatch{ConsoleFilter: strPtr("PS2")}); err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}
	after, err := svc.Snapshot(ctx, false)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if svc.cache.key == keyBefore {
		t.Fatalf("cache key should change with console filter")
	}
	if before.State.PoolSize != 25 || after.State.PoolSize != 5 {
		t.Fatalf("unexpected pool sizes: before=%d after=%d", before.State.PoolSize, after.State.PoolSize)
	}

	keyFiltered := svc.cache.key
	library.set(append(games, generateGames("ps2b", "PlayStation 2", 2)...), 200)
	refreshed, err := svc.Snapshot(ctx, false)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if svc.cache.key == keyFiltered {
		t.Fatalf("cache key should change with library freshness")
	}
	if refreshed.State.PoolSize != 7 {
		t.Fatalf("unexpected pool size after library update: got=%d want=7", refreshed.State.PoolSize)
	}
}

func TestSnapshotKey_IgnoresSpinTiming(t *testing.T) {
	settings := types.DefaultWheelSettings()
	other := settings
	other.SpinDuration = 12000
	other.SpinTurns = 9
	other.ConsoleFilter = "all"

	event := &types.Event{ID: "ev", Consoles: []string{"PS1", "SNES"}}
	reordered := &types.Event{ID: "ev", Consoles: []string{"super nintendo", "PSX"}}

	if snapshotKey(types.ModeGame, settings, 1, event) != snapshotKey(types.ModeGame, other, 1, reordered) {
		t.Fatalf("key should ignore spin timing, All casing and event console order/aliases")
	}
	if snapshotKey(types.ModeGame, settings, 1, event) == snapshotKey(types.ModeConsole, settings, 1, event) {
		t.Fatalf("key should depend on mode")
	}
}

func TestService_ExecuteSpinWinnerConsistency(t *testing.T) {
	library := &fakeLibrary{}
	library.set(generateGames("ps1", "PlayStation", 7), 1)
	history := &fakeHistory{}
	svc := newTestService(t, library, Options{History: history})

	for i := 0; i < 30; i++ {
		rec, err := svc.ExecuteSpin(context.Background(), SpinOverrides{})
		if err != nil {
			t.Fatalf("ExecuteSpin failed: %v", err)
		}
		if rec.TargetIdx < 0 || rec.TargetIdx >= types.SampleSize {
			t.Fatalf("targetIdx out of range: %d", rec.TargetIdx)
		}
		if rec.Sample[rec.TargetIdx] == nil || rec.Winner == nil {
			t.Fatalf("winner slot is empty")
		}
		if rec.Sample[rec.TargetIdx].ID != rec.Winner.ID {
			t.Fatalf("winner mismatch: slot=%q winner=%q", rec.Sample[rec.TargetIdx].ID, rec.Winner.ID)
		}
		if rec.DurationMs != 8000 || rec.Turns != 6 {
			t.Fatalf("unexpected defaults: duration=%d turns=%d", rec.DurationMs, rec.Turns)
		}
		if rec.SpinID == "" {
			t.Fatalf("spin id should be set")
		}
	}
	if len(history.records) != 30 {
		t.Fatalf("unexpected history count: got=%d want=30", len(history.records))
	}
}

func TestService_ExecuteSpinBypassesCache(t *testing.T) {
	library := &fakeLibrary{}
	library.set(generateGames("ps1", "PlayStation", 30), 1)
	svc := newTestService(t, library, Options{})
	ctx := context.Background()

	if _, err := svc.Snapshot(ctx, false); err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	calls := countRandom(t)

	if _, err := svc.Snapshot(ctx, false); err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if *calls != 0 {
		t.Fatalf("cached snapshot should not draw, got %d draws", *calls)
	}

	if _, err := svc.ExecuteSpin(ctx, SpinOverrides{}); err != nil {
		t.Fatalf("ExecuteSpin failed: %v", err)
	}
	if *calls != types.SampleSize+1 {
		t.Fatalf("spin should resample and pick: got %d draws want %d", *calls, types.SampleSize+1)
	}
	if _, err := svc.ExecuteSpin(ctx, SpinOverrides{}); err != nil {
		t.Fatalf("ExecuteSpin failed: %v", err)
	}
	if *calls != 2*(types.SampleSize+1) {
		t.Fatalf("second spin should resample again: got %d draws", *calls)
	}
}

func TestService_IdleSampleFollowsSpin(t *testing.T) {
	library := &fakeLibrary{}
	library.set(generateGames("ps1", "PlayStation", 50), 1)
	svc := newTestService(t, library, Options{})
	ctx := context.Background()

	rec, err := svc.ExecuteSpin(ctx, SpinOverrides{})
	if err != nil {
		t.Fatalf("ExecuteSpin failed: %v", err)
	}
	snap, err := svc.Snapshot(ctx, false)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.State.Sample != rec.Sample {
		t.Fatalf("idle sample should stay on the spun sample")
	}
	if snap.Spin == nil || snap.Spin.TS != rec.TS {
		t.Fatalf("snapshot should carry the latest spin")
	}
}

func TestService_ExecuteSpinOverrides(t *testing.T) {
	library := &fakeLibrary{}
	library.set(generateGames("ps1", "PlayStation", 3), 1)
	svc := newTestService(t, library, Options{})

	rec, err := svc.ExecuteSpin(context.Background(), SpinOverrides{DurationMs: intPtr(3000), Turns: intPtr(2)})
	if err != nil {
		t.Fatalf("ExecuteSpin failed: %v", err)
	}
	if rec.DurationMs != 3000 || rec.Turns != 2 {
		t.Fatalf("overrides not applied: duration=%d turns=%d", rec.DurationMs, rec.Turns)
	}

	_, err = svc.ExecuteSpin(context.Background(), SpinOverrides{Turns: intPtr(0)})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestService_EmptyPoolRejectsWithoutMutation(t *testing.T) {
	library := &fakeLibrary{}
	library.set(generateGames("ps1", "PlayStation", 5), 1)
	svc := newTestService(t, library, Options{})
	ctx := context.Background()

	first, err := svc.ExecuteSpin(ctx, SpinOverrides{})
	if err != nil {
		t.Fatalf("ExecuteSpin failed: %v", err)
	}

	if _, _, err := svc.UpdateSettings(ctx, SettingsPatch{ConsoleFilter: strPtr("Virtual Boy")}); err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}
	_, err = svc.ExecuteSpin(ctx, SpinOverrides{})
	if !errors.Is(err, ErrEmptyPool) {
		t.Fatalf("expected ErrEmptyPool, got %v", err)
	}

	last := svc.LastSpin()
	if last == nil || last.SpinID != first.SpinID {
		t.Fatalf("stored spin must not change on rejection")
	}
}

func TestService_EndToEndPlayStationOnly(t *testing.T) {
	library := &fakeLibrary{}
	games := generateGames("ps1", "PS1", 18)
	games = append(games,
		types.Game{ID: "ps1-hack-1", Title: "Crash Team (Hack)", Console: types.ConsoleRef{Name: "PlayStation"}},
		types.Game{ID: "ps1-sub-1", Title: "Spyro (Subset)", Console: types.ConsoleRef{Name: "PSX"}},
	)
	games = append(games, generateGames("ps2", "PlayStation 2", 5)...)
	library.set(games, 1)

	svc := newTestService(t, library, Options{})
	ctx := context.Background()
	_, _, err := svc.UpdateSettings(ctx, SettingsPatch{
		ConsoleFilter: strPtr("PlayStation"),
		BonusMode:     bonusPtr(types.BonusExclude),
	})
	if err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}

	snap, err := svc.Snapshot(ctx, false)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.State.PoolSize != 18 {
		t.Fatalf("unexpected pool size: got=%d want=18", snap.State.PoolSize)
	}

	for i := 0; i < 100; i++ {
		rec, err := svc.ExecuteSpin(ctx, SpinOverrides{})
		if err != nil {
			t.Fatalf("ExecuteSpin failed: %v", err)
		}
		if !strings.HasPrefix(rec.Winner.ID, "ps1-") || IsBonusTitle(rec.Winner.Title) {
			t.Fatalf("unexpected winner: %+v", rec.Winner)
		}
	}
}

func TestService_StoreFailuresDegrade(t *testing.T) {
	library := &fakeLibrary{}
	library.set(generateGames("ps1", "PlayStation", 4), 1)
	svc := newTestService(t, library, Options{
		Events:      &fakeEvents{err: errStoreDown},
		Suggestions: &fakeSuggestions{err: errStoreDown},
	})
	ctx := context.Background()

	if _, _, err := svc.UpdateSettings(ctx, SettingsPatch{
		EventRestriction:   boolPtr(true),
		IncludeSuggestions: boolPtr(true),
	}); err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}
	snap, err := svc.Snapshot(ctx, false)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.State.PoolSize != 4 || snap.State.Event != nil {
		t.Fatalf("unavailable stores should degrade: poolSize=%d event=%v", snap.State.PoolSize, snap.State.Event)
	}

	library.err = errStoreDown
	snap, err = svc.Snapshot(ctx, true)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.State.PoolSize != 0 || len(snap.State.Sample.Occupied()) != 0 {
		t.Fatalf("unavailable library should give an empty wheel")
	}
}

func TestService_PersistsModeAndSettings(t *testing.T) {
	state := &fakeState{}
	library := &fakeLibrary{}
	svc := newTestService(t, library, Options{State: state})

	mode := types.ModeConsole
	_, settings, err := svc.UpdateSettings(context.Background(), SettingsPatch{Mode: &mode, SpinTurns: intPtr(3)})
	if err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}
	if state.saves != 1 || state.mode != types.ModeConsole || state.settings.SpinTurns != 3 {
		t.Fatalf("state not persisted: %+v", state)
	}
	if settings.ConsoleFilter != types.ConsoleAll {
		t.Fatalf("unexpected console filter: got=%q", settings.ConsoleFilter)
	}

	restored := newTestService(t, library, Options{State: state})
	gotMode, gotSettings := restored.Settings()
	if gotMode != types.ModeConsole || gotSettings.SpinTurns != 3 {
		t.Fatalf("state not restored: mode=%q settings=%+v", gotMode, gotSettings)
	}
	if restored.LastSpin() != nil {
		t.Fatalf("spin must never be restored")
	}
}

func TestService_PersistFailureIsSwallowed(t *testing.T) {
	state := &fakeState{saveErr: errStoreDown}
	svc := newTestService(t, &fakeLibrary{}, Options{State: state})

	_, settings, err := svc.UpdateSettings(context.Background(), SettingsPatch{SpinDuration: intPtr(5000)})
	if err != nil {
		t.Fatalf("UpdateSettings should not fail on persistence error: %v", err)
	}
	if settings.SpinDuration != 5000 {
		t.Fatalf("in-memory settings should be updated: got=%d", settings.SpinDuration)
	}
	if _, current := svc.Settings(); current.SpinDuration != 5000 {
		t.Fatalf("in-memory settings should stay authoritative: got=%d", current.SpinDuration)
	}
}

func TestService_UpdateSettingsValidation(t *testing.T) {
	svc := newTestService(t, &fakeLibrary{}, Options{})
	badMode := types.Mode("arcade")

	tests := []struct {
		name  string
		patch SettingsPatch
	}{
		{name: "unknown mode", patch: SettingsPatch{Mode: &badMode}},
		{name: "unknown bonus mode", patch: SettingsPatch{BonusMode: bonusPtr("sometimes")}},
		{name: "duration too short", patch: SettingsPatch{SpinDuration: intPtr(10)}},
		{name: "zero turns", patch: SettingsPatch{SpinTurns: intPtr(0)}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.UpdateSettings(context.Background(), tc.patch)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}

	if _, settings := svc.Settings(); settings != types.DefaultWheelSettings() {
		t.Fatalf("rejected patches must not change settings: %+v", settings)
	}
}

func TestService_RestoreSanitizesPersistedSettings(t *testing.T) {
	state := &fakeState{
		found:    true,
		mode:     types.Mode("bogus"),
		settings: types.WheelSettings{BonusMode: "weird", SpinDuration: 5, SpinTurns: 0, ConsoleFilter: "PS2"},
	}
	svc := newTestService(t, &fakeLibrary{}, Options{State: state})

	mode, settings := svc.Settings()
	if mode != types.ModeGame {
		t.Fatalf("invalid persisted mode should fall back: got=%q", mode)
	}
	if settings.BonusMode != types.BonusInclude || settings.SpinDuration != 8000 || settings.SpinTurns != 6 {
		t.Fatalf("invalid persisted fields should fall back: %+v", settings)
	}
	if settings.ConsoleFilter != "PS2" {
		t.Fatalf("valid persisted fields should be kept: %+v", settings)
	}
}

func TestService_Listeners(t *testing.T) {
	library := &fakeLibrary{}
	library.set(generateGames("ps1", "PlayStation", 2), 1)
	svc := newTestService(t, library, Options{})

	var spins, changes int
	svc.OnSpin(func(types.SpinRecord) { spins++ })
	svc.OnSettingsChanged(func(types.Mode, types.WheelSettings) { changes++ })

	if _, err := svc.ExecuteSpin(context.Background(), SpinOverrides{}); err != nil {
		t.Fatalf("ExecuteSpin failed: %v", err)
	}
	if _, _, err := svc.UpdateSettings(context.Background(), SettingsPatch{SpinTurns: intPtr(4)}); err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}
	if spins != 1 || changes != 1 {
		t.Fatalf("unexpected listener calls: spins=%d changes=%d", spins, changes)
	}
}

func boolPtr(b bool) *bool { return &b }

func TestService_InvalidateResamples(t *testing.T) {
	library := &fakeLibrary{}
	library.set(generateGames("ps1", "PlayStation", 40), 100)
	svc := newTestService(t, library, Options{})
	draws := countRandom(t)
	ctx := context.Background()

	if _, err := svc.Snapshot(ctx, false); err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if _, err := svc.Snapshot(ctx, false); err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	cached := *draws

	svc.Invalidate()
	if _, err := svc.Snapshot(ctx, false); err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if *draws <= cached {
		t.Fatalf("invalidate should force a new sample: draws before=%d after=%d", cached, *draws)
	}
}
