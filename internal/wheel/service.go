package wheel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ichi0g0y/retro-wheel/internal/shared/logger"
	"github.com/ichi0g0y/retro-wheel/internal/types"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

const (
	minSpinDuration = 1000
	maxSpinDuration = 60000

	defaultStoreTimeout = 1500 * time.Millisecond
)

// Options configures a Service. Any store may be nil; a nil store behaves like an empty one.
type Options struct {
	Library     LibraryStore
	Suggestions SuggestionStore
	Events      EventStore
	State       StateStore
	History     HistoryStore

	StoreTimeout time.Duration
	Now          func() time.Time
}

// Snapshot is the idle wheel state joined with the latest spin.
type Snapshot struct {
	State types.IdleState
	Spin  *types.SpinRecord
}

// SettingsPatch is a partial settings update. nil fields are left unchanged.
type SettingsPatch struct {
	Mode               *types.Mode      `json:"mode"`
	EventRestriction   *bool            `json:"eventRestriction"`
	IncludeSuggestions *bool            `json:"includeSuggestions"`
	ConsoleFilter      *string          `json:"consoleFilter"`
	BonusMode          *types.BonusMode `json:"bonusMode"`
	SpinDuration       *int             `json:"spinDuration"`
	SpinTurns          *int             `json:"spinTurns"`
}

// SpinOverrides replaces the configured duration/turns for a single spin.
type SpinOverrides struct {
	DurationMs *int `json:"durationMs"`
	Turns      *int `json:"turns"`
}

// Service owns the process-wide wheel state. All mutable fields are guarded by mu;
// a spin reads and rewrites the snapshot cache atomically with respect to pollers.
type Service struct {
	opts Options

	mu       sync.Mutex
	mode     types.Mode
	settings types.WheelSettings
	spin     *types.SpinRecord
	cache    *snapshotEntry

	listenerMu       sync.RWMutex
	spinListeners    []func(types.SpinRecord)
	settingListeners []func(types.Mode, types.WheelSettings)
}

// NewService builds the service and restores persisted mode/settings.
// A failed load keeps the defaults.
func NewService(ctx context.Context, opts Options) *Service {
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = defaultStoreTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Service{
		opts:     opts,
		mode:     types.ModeGame,
		settings: types.DefaultWheelSettings(),
	}

	if opts.State == nil {
		return s
	}

	loadCtx, cancel := context.WithTimeout(ctx, opts.StoreTimeout)
	defer cancel()

	mode, settings, found, err := opts.State.LoadWheelState(loadCtx)
	if err != nil {
		logger.Warn("Failed to load wheel state, using defaults", zap.Error(err))
		return s
	}
	if !found {
		return s
	}
	if mode.Valid() {
		s.mode = mode
	}
	s.settings = sanitizeSettings(settings)

	logger.Info("Wheel state restored",
		zap.String("mode", string(s.mode)),
		zap.String("console_filter", s.settings.ConsoleFilter),
		zap.String("bonus_mode", string(s.settings.BonusMode)))
	return s
}

// OnSpin registers a callback invoked after every published spin.
func (s *Service) OnSpin(fn func(types.SpinRecord)) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	s.spinListeners = append(s.spinListeners, fn)
}

// OnSettingsChanged registers a callback invoked after every settings/mode change.
func (s *Service) OnSettingsChanged(fn func(types.Mode, types.WheelSettings)) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	s.settingListeners = append(s.settingListeners, fn)
}

// Settings returns the current mode and settings.
func (s *Service) Settings() (types.Mode, types.WheelSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode, s.settings
}

// LastSpin returns the latest spin of this process, or nil.
func (s *Service) LastSpin() *types.SpinRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.spin == nil {
		return nil
	}
	rec := *s.spin
	return &rec
}

// Snapshot returns the idle state. Unless forceRefresh is set, the cached sample is
// reused while the cache key is unchanged.
func (s *Service) Snapshot(ctx context.Context, forceRefresh bool) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.snapshotLocked(ctx, forceRefresh)
	if err != nil {
		return Snapshot{}, err
	}
	return s.joinLocked(entry), nil
}

// Invalidate drops the cached snapshot so the next poll resamples. Used when
// inputs outside the cache key change, such as the open suggestion list.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.cache = nil
	s.mu.Unlock()
}

// ExecuteSpin resamples the wheel, picks a winner among occupied slots and publishes
// the spin record. With no occupied slot it returns ErrEmptyPool and leaves the
// current spin untouched.
func (s *Service) ExecuteSpin(ctx context.Context, overrides SpinOverrides) (types.SpinRecord, error) {
	if overrides.DurationMs != nil && (*overrides.DurationMs < minSpinDuration || *overrides.DurationMs > maxSpinDuration) {
		return types.SpinRecord{}, fmt.Errorf("%w: durationMs must be between %d and %d", ErrInvalidInput, minSpinDuration, maxSpinDuration)
	}
	if overrides.Turns != nil && *overrides.Turns < 1 {
		return types.SpinRecord{}, fmt.Errorf("%w: turns must be at least 1", ErrInvalidInput)
	}

	s.mu.Lock()
	entry, err := s.snapshotLocked(ctx, true)
	if err != nil {
		s.mu.Unlock()
		return types.SpinRecord{}, err
	}

	occupied := entry.sample.Occupied()
	if len(occupied) == 0 {
		s.mu.Unlock()
		return types.SpinRecord{}, ErrEmptyPool
	}

	pick, err := randomInt(len(occupied))
	if err != nil {
		s.mu.Unlock()
		return types.SpinRecord{}, fmt.Errorf("failed to pick winning slot: %w", err)
	}
	targetIdx := occupied[pick]

	rec := types.SpinRecord{
		TS:         s.opts.Now().UnixMilli(),
		SpinID:     newSpinID(),
		Mode:       entry.mode,
		Sample:     entry.sample,
		TargetIdx:  targetIdx,
		DurationMs: s.settings.SpinDuration,
		Turns:      s.settings.SpinTurns,
		Winner:     entry.sample[targetIdx],
	}
	if overrides.DurationMs != nil {
		rec.DurationMs = *overrides.DurationMs
	}
	if overrides.Turns != nil {
		rec.Turns = *overrides.Turns
	}

	s.spin = &rec
	// idle polls keep showing the spun sample after the hold period
	s.cache.sample = rec.Sample
	poolSize := entry.poolSize
	s.mu.Unlock()

	logger.Info("Wheel spin published",
		zap.String("spin_id", rec.SpinID),
		zap.String("mode", string(rec.Mode)),
		zap.Int("target_idx", rec.TargetIdx),
		zap.String("winner_id", rec.Winner.ID),
		zap.String("winner_title", rec.Winner.Title),
		zap.Int("pool_size", poolSize),
		zap.Int("duration_ms", rec.DurationMs))

	s.recordHistory(ctx, rec, poolSize)

	s.listenerMu.RLock()
	listeners := append([]func(types.SpinRecord){}, s.spinListeners...)
	s.listenerMu.RUnlock()
	for _, fn := range listeners {
		fn(rec)
	}

	return rec, nil
}

// UpdateSettings merges patch onto the current settings, drops the snapshot cache
// and persists the result. Persistence failures are logged only.
func (s *Service) UpdateSettings(ctx context.Context, patch SettingsPatch) (types.Mode, types.WheelSettings, error) {
	s.mu.Lock()
	mode := s.mode
	settings := s.settings

	if patch.Mode != nil {
		mode = *patch.Mode
	}
	if patch.EventRestriction != nil {
		settings.EventRestriction = *patch.EventRestriction
	}
	if patch.IncludeSuggestions != nil {
		settings.IncludeSuggestions = *patch.IncludeSuggestions
	}
	if patch.ConsoleFilter != nil {
		settings.ConsoleFilter = *patch.ConsoleFilter
	}
	if patch.BonusMode != nil {
		settings.BonusMode = *patch.BonusMode
	}
	if patch.SpinDuration != nil {
		settings.SpinDuration = *patch.SpinDuration
	}
	if patch.SpinTurns != nil {
		settings.SpinTurns = *patch.SpinTurns
	}

	if err := validate(mode, settings); err != nil {
		s.mu.Unlock()
		return s.mode, s.settings, err
	}
	if settings.ConsoleFilter == "" {
		settings.ConsoleFilter = types.ConsoleAll
	}

	s.mode = mode
	s.settings = settings
	s.cache = nil
	s.mu.Unlock()

	if s.opts.State != nil {
		saveCtx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
		if err := s.opts.State.SaveWheelState(saveCtx, mode, settings); err != nil {
			logger.Error("Failed to persist wheel state", zap.Error(err))
		}
		cancel()
	}

	s.listenerMu.RLock()
	listeners := append([]func(types.Mode, types.WheelSettings){}, s.settingListeners...)
	s.listenerMu.RUnlock()
	for _, fn := range listeners {
		fn(mode, settings)
	}

	return mode, settings, nil
}

func (s *Service) snapshotLocked(ctx context.Context, force bool) (*snapshotEntry, error) {
	library := s.loadLibrary(ctx)
	event := s.loadEvent(ctx)
	key := snapshotKey(s.mode, s.settings, library.UpdatedAt, event)

	if !force && s.cache != nil && s.cache.key == key {
		return s.cache, nil
	}

	var suggestions []types.Suggestion
	if s.mode == types.ModeGame && s.settings.IncludeSuggestions {
		suggestions = s.loadSuggestions(ctx)
	}

	pool := BuildPool(PoolInput{
		Mode:        s.mode,
		Settings:    s.settings,
		Library:     library,
		Event:       event,
		Suggestions: suggestions,
	})
	sample, err := DrawSample(pool)
	if err != nil {
		return nil, fmt.Errorf("failed to draw wheel sample: %w", err)
	}

	entry := &snapshotEntry{
		key:      key,
		mode:     s.mode,
		poolSize: len(pool),
		sample:   sample,
	}
	if event != nil {
		entry.event = &types.WheelEvent{Name: event.Name, Consoles: append([]string{}, event.Consoles...)}
	}
	s.cache = entry

	logger.Debug("Wheel snapshot recomputed",
		zap.String("key", key),
		zap.Bool("forced", force),
		zap.Int("pool_size", entry.poolSize))
	return entry, nil
}

func (s *Service) joinLocked(entry *snapshotEntry) Snapshot {
	snap := Snapshot{
		State: types.IdleState{
			Mode:     entry.mode,
			Settings: s.settings,
			Event:    entry.event,
			PoolSize: entry.poolSize,
			Sample:   entry.sample,
		},
	}
	if s.spin != nil {
		rec := *s.spin
		snap.Spin = &rec
	}
	return snap
}

func (s *Service) loadLibrary(ctx context.Context) types.LibrarySnapshot {
	if s.opts.Library == nil {
		return types.LibrarySnapshot{}
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	library, err := s.opts.Library.GetLibrarySnapshot(ctx)
	if err != nil {
		logger.Warn("Library store unavailable, using empty library", zap.Error(err))
		return types.LibrarySnapshot{}
	}
	return library
}

func (s *Service) loadEvent(ctx context.Context) *types.Event {
	if s.opts.Events == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	event, err := s.opts.Events.GetActiveEvent(ctx)
	if err != nil {
		logger.Warn("Event store unavailable, treating as no active event", zap.Error(err))
		return nil
	}
	return event
}

func (s *Service) loadSuggestions(ctx context.Context) []types.Suggestion {
	if s.opts.Suggestions == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	suggestions, err := s.opts.Suggestions.ListOpenSuggestions(ctx)
	if err != nil {
		logger.Warn("Suggestion store unavailable, skipping suggestions", zap.Error(err))
		return nil
	}
	return suggestions
}

func (s *Service) recordHistory(ctx context.Context, rec types.SpinRecord, poolSize int) {
	if s.opts.History == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	if err := s.opts.History.RecordSpin(ctx, rec, poolSize); err != nil {
		logger.Warn("Failed to record spin history", zap.Error(err), zap.String("spin_id", rec.SpinID))
	}
}

func newSpinID() string {
	id, err := gonanoid.New()
	if err != nil {
		logger.Warn("Failed to generate spin id", zap.Error(err))
		return ""
	}
	return id
}

func validate(mode types.Mode, settings types.WheelSettings) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, mode)
	}
	if !settings.BonusMode.Valid() {
		return fmt.Errorf("%w: unknown bonusMode %q", ErrInvalidInput, settings.BonusMode)
	}
	if settings.SpinDuration < minSpinDuration || settings.SpinDuration > maxSpinDuration {
		return fmt.Errorf("%w: spinDuration must be between %d and %d", ErrInvalidInput, minSpinDuration, maxSpinDuration)
	}
	if settings.SpinTurns < 1 {
		return fmt.Errorf("%w: spinTurns must be at least 1", ErrInvalidInput)
	}
	return nil
}

// sanitizeSettings repairs persisted settings field by field instead of discarding them.
func sanitizeSettings(in types.WheelSettings) types.WheelSettings {
	def := types.DefaultWheelSettings()
	out := in
	if out.ConsoleFilter == "" {
		out.ConsoleFilter = def.ConsoleFilter
	}
	if !out.BonusMode.Valid() {
		out.BonusMode = def.BonusMode
	}
	if out.SpinDuration < minSpinDuration || out.SpinDuration > maxSpinDuration {
		out.SpinDuration = def.SpinDuration
	}
	if out.SpinTurns < 1 {
		out.SpinTurns = def.SpinTurns
	}
	return out
}
