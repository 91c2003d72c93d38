package replay

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/ichi0g0y/retro-wheel/internal/types"
)

// Skin is a visual rendition of the replay protocol.
type Skin interface {
	Name() string
	Timing() Timing
	// StartSpin is called once per spin the client replays or shows finished.
	StartSpin(rec types.SpinRecord, rng *rand.Rand)
	// Advance moves the visual state to frame. dt is the wall time since the previous call.
	Advance(frame Frame, dt time.Duration)
	Status() string
}

// NewSkin returns the skin registered under name.
func NewSkin(name string) (Skin, error) {
	switch name {
	case "", "wheel":
		return NewWheelSkin(), nil
	case "claw":
		return NewClawSkin(), nil
	default:
		return nil, fmt.Errorf("unknown skin %q", name)
	}
}
