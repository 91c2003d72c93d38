package wheel

import (
	"sort"
	"strings"

	"github.com/ichi0g0y/retro-wheel/internal/types"
	"github.com/samber/lo"
)

// PoolInput is everything the pool depends on.
type PoolInput struct {
	Mode        types.Mode
	Settings    types.WheelSettings
	Library     types.LibrarySnapshot
	Event       *types.Event
	Suggestions []types.Suggestion
}

// BuildPool filters the library (or the console list) down to the wheel candidates.
// The result is deterministic for a given input. An empty pool is valid.
func BuildPool(in PoolInput) []types.PoolItem {
	if in.Mode == types.ModeConsole {
		return buildConsolePool(in)
	}
	return buildGamePool(in)
}

// eventConsoles returns the event console list when it actually restricts, or nil.
func eventConsoles(settings types.WheelSettings, event *types.Event) []string {
	if !settings.EventRestriction || event == nil {
		return nil
	}
	// blank entries carry no console and must not read as the "All" sentinel
	consoles := lo.Filter(event.Consoles, func(name string, _ int) bool {
		return strings.TrimSpace(name) != ""
	})
	if len(consoles) == 0 || lo.SomeBy(consoles, isAllConsoles) {
		return nil
	}
	return consoles
}

func buildConsolePool(in PoolInput) []types.PoolItem {
	var names []string
	if restricted := eventConsoles(in.Settings, in.Event); restricted != nil {
		names = uniqueConsoleNames(restricted)
	} else {
		seen := lo.Map(in.Library.Games, func(g types.Game, _ int) string {
			display, _ := gameConsole(g)
			return strings.TrimSpace(display)
		})
		names = uniqueConsoleNames(seen)
		sort.Slice(names, func(i, j int) bool {
			return strings.ToLower(names[i]) < strings.ToLower(names[j])
		})
	}

	return lo.Map(names, func(name string, _ int) types.PoolItem {
		return types.NewConsoleItem(name)
	})
}

// uniqueConsoleNames keeps the first display name per normalized key.
func uniqueConsoleNames(names []string) []string {
	names = lo.Filter(names, func(name string, _ int) bool {
		return NormalizeConsole(name) != ""
	})
	return lo.UniqBy(names, NormalizeConsole)
}

func buildGamePool(in PoolInput) []types.PoolItem {
	games := lo.Filter(in.Library.Games, func(g types.Game, _ int) bool {
		return g.ID != "" && strings.TrimSpace(g.Title) != ""
	})

	if restricted := eventConsoles(in.Settings, in.Event); restricted != nil {
		allowed := lo.SliceToMap(restricted, func(name string) (string, struct{}) {
			return NormalizeConsole(name), struct{}{}
		})
		games = lo.Filter(games, func(g types.Game, _ int) bool {
			return lo.SomeBy(gameConsoleKeys(g), func(k string) bool {
				_, ok := allowed[k]
				return ok
			})
		})
	}

	filterKey := ""
	if !isAllConsoles(in.Settings.ConsoleFilter) {
		filterKey = NormalizeConsole(in.Settings.ConsoleFilter)
		games = lo.Filter(games, func(g types.Game, _ int) bool {
			return lo.Contains(gameConsoleKeys(g), filterKey)
		})
	}

	switch in.Settings.BonusMode {
	case types.BonusExclude:
		games = lo.Reject(games, func(g types.Game, _ int) bool { return IsBonusTitle(g.Title) })
	case types.BonusOnly:
		games = lo.Filter(games, func(g types.Game, _ int) bool { return IsBonusTitle(g.Title) })
	}

	pool := lo.Map(games, func(g types.Game, _ int) types.PoolItem {
		display, _ := gameConsole(g)
		return types.NewGameItem(g, display)
	})

	if in.Settings.IncludeSuggestions {
		for _, s := range in.Suggestions {
			if strings.TrimSpace(s.Title) == "" {
				continue
			}
			if filterKey != "" && s.Console != "" && NormalizeConsole(s.Console) != filterKey {
				continue
			}
			pool = append(pool, types.NewSuggestionItem(s))
		}
	}

	return pool
}
