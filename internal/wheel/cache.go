package wheel

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/ichi0g0y/retro-wheel/internal/types"
	"github.com/samber/lo"
)

// snapshotEntry is the single memoized (pool, sample) computation.
type snapshotEntry struct {
	key      string
	mode     types.Mode
	poolSize int
	sample   types.Sample
	event    *types.WheelEvent
}

type snapshotKeyInput struct {
	Mode               types.Mode      `json:"mode"`
	EventRestriction   bool            `json:"eventRestriction"`
	IncludeSuggestions bool            `json:"includeSuggestions"`
	ConsoleFilter      string          `json:"consoleFilter"`
	BonusMode          types.BonusMode `json:"bonusMode"`
	LibraryUpdatedAt   int64           `json:"libraryUpdatedAt"`
	EventID            string          `json:"eventId"`
	EventConsoles      []string        `json:"eventConsoles"`
}

// snapshotKey digests every input that affects pool membership.
// Spin duration and turns are excluded: they never change the pool.
func snapshotKey(mode types.Mode, settings types.WheelSettings, libraryUpdatedAt int64, event *types.Event) string {
	in := snapshotKeyInput{
		Mode:               mode,
		EventRestriction:   settings.EventRestriction,
		IncludeSuggestions: settings.IncludeSuggestions,
		BonusMode:          settings.BonusMode,
		LibraryUpdatedAt:   libraryUpdatedAt,
		EventConsoles:      []string{},
	}
	if isAllConsoles(settings.ConsoleFilter) {
		in.ConsoleFilter = types.ConsoleAll
	} else {
		in.ConsoleFilter = NormalizeConsole(settings.ConsoleFilter)
	}
	if event != nil {
		in.EventID = event.ID
		in.EventConsoles = lo.Map(event.Consoles, func(c string, _ int) string {
			return NormalizeConsole(c)
		})
		sort.Strings(in.EventConsoles)
	}

	// json.Marshal of this struct cannot fail
	raw, _ := json.Marshal(in)
	sum := sha1.Sum(raw)
	return hex.EncodeToString(sum[:])
}
