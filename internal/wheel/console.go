package wheel

import (
	"strings"

	"github.com/ichi0g0y/retro-wheel/internal/types"
)

// consoleAliases maps shorthand and source-specific spellings onto one key.
// Every value must normalize to itself.
var consoleAliases = map[string]string{
	"ps":            "playstation",
	"ps1":           "playstation",
	"psx":           "playstation",
	"psone":         "playstation",
	"ps one":        "playstation",
	"playstation 1": "playstation",
	"ps2":           "playstation 2",
	"ps3":           "playstation 3",
	"ps4":           "playstation 4",
	"psp":           "playstation portable",
	"vita":          "playstation vita",
	"psvita":        "playstation vita",
	"ps vita":       "playstation vita",

	"nes/famicom":                         "nes",
	"famicom":                             "nes",
	"nintendo entertainment system":       "nes",
	"snes/super famicom":                  "snes",
	"super nintendo":                      "snes",
	"super famicom":                       "snes",
	"super nintendo entertainment system": "snes",
	"gb":                                  "game boy",
	"gbc":                                 "game boy color",
	"gba":                                 "game boy advance",
	"n64":                                 "nintendo 64",
	"nds":                                 "nintendo ds",
	"ds":                                  "nintendo ds",

	"genesis/mega drive": "genesis",
	"mega drive":         "genesis",
	"sega genesis":       "genesis",
	"sega mega drive":    "genesis",
	"sms":                "master system",
	"sega master system": "master system",
	"gg":                 "game gear",
	"sega game gear":     "game gear",
}

// NormalizeConsole turns a console display name or id into the key used for all
// console comparisons. It is idempotent.
func NormalizeConsole(name string) string {
	key := strings.ToLower(strings.Join(strings.Fields(name), " "))
	for strings.HasPrefix(key, "sony ") {
		key = strings.TrimPrefix(key, "sony ")
	}
	if alias, ok := consoleAliases[key]; ok {
		return alias
	}
	return key
}

// isAllConsoles reports whether value is the "no restriction" sentinel.
func isAllConsoles(value string) bool {
	v := strings.TrimSpace(value)
	return v == "" || strings.EqualFold(v, types.ConsoleAll)
}

// gameConsole returns the display name and raw console id of a game.
func gameConsole(g types.Game) (display string, rawID string) {
	display = g.Console.Display()
	rawID = g.ConsoleID
	if rawID == "" {
		rawID = g.Console.ID
	}
	return display, rawID
}

// gameConsoleKeys returns the normalized keys a game can be matched by.
func gameConsoleKeys(g types.Game) []string {
	display, rawID := gameConsole(g)
	keys := make([]string, 0, 2)
	if k := NormalizeConsole(display); k != "" {
		keys = append(keys, k)
	}
	if k := NormalizeConsole(rawID); k != "" && (len(keys) == 0 || keys[0] != k) {
		keys = append(keys, k)
	}
	return keys
}

var bonusTags = []string{
	"(subset)",
	"(hack)",
	"(prototype)",
	"(demo)",
	"(homebrew)",
	"(unlicensed)",
}

// IsBonusTitle reports whether a title carries one of the bonus tags.
func IsBonusTitle(title string) bool {
	lower := strings.ToLower(title)
	for _, tag := range bonusTags {
		if strings.Contains(lower, tag) {
			return true
		}
	}
	return false
}
