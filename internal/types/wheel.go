package types

import (
	"bytes"
	"encoding/json"
)

// SampleSize is the number of visual segments on every wheel skin.
const SampleSize = 16

// Mode selects what the wheel picks from.
type Mode string

const (
	ModeConsole Mode = "console"
	ModeGame    Mode = "game"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeConsole || m == ModeGame
}

// BonusMode controls how bonus titles (subsets, hacks, demos...) are treated.
type BonusMode string

const (
	BonusInclude BonusMode = "include"
	BonusExclude BonusMode = "exclude"
	BonusOnly    BonusMode = "only"
)

// Valid reports whether b is a known bonus mode.
func (b BonusMode) Valid() bool {
	return b == BonusInclude || b == BonusExclude || b == BonusOnly
}

// ConsoleAll is the sentinel for "no console restriction".
const ConsoleAll = "All"

// WheelSettings are the persisted admin settings of the wheel.
type WheelSettings struct {
	EventRestriction   bool      `json:"eventRestriction"`
	IncludeSuggestions bool      `json:"includeSuggestions"`
	ConsoleFilter      string    `json:"consoleFilter"`
	BonusMode          BonusMode `json:"bonusMode"`
	SpinDuration       int       `json:"spinDuration"` // ms
	SpinTurns          int       `json:"spinTurns"`
}

// DefaultWheelSettings returns the settings used when nothing is persisted.
func DefaultWheelSettings() WheelSettings {
	return WheelSettings{
		EventRestriction:   false,
		IncludeSuggestions: false,
		ConsoleFilter:      ConsoleAll,
		BonusMode:          BonusInclude,
		SpinDuration:       8000,
		SpinTurns:          6,
	}
}

// ConsoleRef is a game's console as delivered by a data source: either a plain
// name or an {id, name} object.
type ConsoleRef struct {
	ID   string
	Name string
}

// Display returns the name, falling back to the id.
func (c ConsoleRef) Display() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}

func (c ConsoleRef) MarshalJSON() ([]byte, error) {
	if c.ID == "" {
		return json.Marshal(c.Name)
	}
	return json.Marshal(struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}{c.ID, c.Name})
}

func (c *ConsoleRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = ConsoleRef{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*c = ConsoleRef{Name: name}
		return nil
	}

	var obj struct {
		ID   json.RawMessage `json:"id"`
		Name string          `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*c = ConsoleRef{ID: rawToString(obj.ID), Name: obj.Name}
	return nil
}

// ids arrive as numbers from RetroAchievements and as strings elsewhere
func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// Game is a library entry. Read-only to the wheel.
type Game struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Console   ConsoleRef `json:"console"`
	ConsoleID string     `json:"consoleId,omitempty"`
	ImageURL  string     `json:"image_url,omitempty"`
}

// LibrarySnapshot is the full game library plus its freshness timestamp (epoch ms).
type LibrarySnapshot struct {
	Games     []Game `json:"games"`
	UpdatedAt int64  `json:"updatedAt"`
}

// Suggestion is a viewer suggested game.
type Suggestion struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Console   string `json:"console,omitempty"`
	Requester string `json:"requester,omitempty"`
	Note      string `json:"note,omitempty"`
	Status    string `json:"status"`
}

// Event is a streaming event (marathon, theme week...) that may restrict consoles.
type Event struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Consoles []string `json:"consoles"`
}

// WheelEvent is the event view embedded in wheel state.
type WheelEvent struct {
	Name     string   `json:"name"`
	Consoles []string `json:"consoles"`
}
