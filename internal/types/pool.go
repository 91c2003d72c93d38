package types

// ItemType discriminates pool item variants.
type ItemType string

const (
	ItemGame       ItemType = "game"
	ItemConsole    ItemType = "console"
	ItemSuggestion ItemType = "suggestion"
)

// PoolItem is one wheel candidate. Type decides which payload fields are meaningful:
//   - game: Console, ImageURL
//   - console: IsConsole
//   - suggestion: Console, Requester, Note
type PoolItem struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Type      ItemType `json:"type"`
	Console   string   `json:"console,omitempty"`
	ImageURL  string   `json:"image_url,omitempty"`
	IsConsole bool     `json:"isConsole,omitempty"`
	Requester string   `json:"requester,omitempty"`
	Note      string   `json:"note,omitempty"`
}

func NewGameItem(g Game, console string) PoolItem {
	return PoolItem{
		ID:       g.ID,
		Title:    g.Title,
		Type:     ItemGame,
		Console:  console,
		ImageURL: g.ImageURL,
	}
}

func NewConsoleItem(name string) PoolItem {
	return PoolItem{
		ID:        "console-" + name,
		Title:     name,
		Type:      ItemConsole,
		IsConsole: true,
	}
}

func NewSuggestionItem(s Suggestion) PoolItem {
	return PoolItem{
		ID:        "suggestion-" + s.ID,
		Title:     s.Title,
		Type:      ItemSuggestion,
		Console:   s.Console,
		Requester: s.Requester,
		Note:      s.Note,
	}
}

// Label is the text a renderer draws on a segment.
func (p PoolItem) Label() string {
	switch p.Type {
	case ItemConsole:
		return p.Title
	case ItemSuggestion:
		if p.Requester != "" {
			return p.Title + " (" + p.Requester + ")"
		}
		return p.Title
	default:
		return p.Title
	}
}

// Sample is the fixed set of slots shown on the wheel. nil slots are empty.
type Sample [SampleSize]*PoolItem

// Occupied returns indices of non-empty slots.
func (s Sample) Occupied() []int {
	idx := make([]int, 0, SampleSize)
	for i, item := range s {
		if item != nil {
			idx = append(idx, i)
		}
	}
	return idx
}

// SpinRecord is the immutable, server-authoritative description of one spin.
type SpinRecord struct {
	TS         int64     `json:"ts"` // epoch ms
	SpinID     string    `json:"spinId,omitempty"`
	Mode       Mode      `json:"mode"`
	Sample     Sample    `json:"sample"`
	TargetIdx  int       `json:"targetIdx"`
	DurationMs int       `json:"durationMs"`
	Turns      int       `json:"turns"`
	Winner     *PoolItem `json:"winner"`
}

// IdleState is the polled idle wheel view.
type IdleState struct {
	Mode     Mode          `json:"mode"`
	Settings WheelSettings `json:"settings"`
	Event    *WheelEvent   `json:"event"`
	PoolSize int           `json:"poolSize"`
	Sample   Sample        `json:"sample"`
}

// SyncResponse combines idle state and the latest spin in one poll.
type SyncResponse struct {
	State      IdleState   `json:"state"`
	Spin       *SpinRecord `json:"spin"`
	ServerTime int64       `json:"serverTime"`
}
