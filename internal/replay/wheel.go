package replay

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/ichi0g0y/retro-wheel/internal/types"
)

const (
	// Segments is the number of wheel segments.
	Segments = types.SampleSize
	// SegmentAngle is the arc of one segment in radians.
	SegmentAngle = 2 * math.Pi / Segments
	// PointerAngle is where the fixed pointer sits (canvas coordinates, top of the wheel).
	PointerAngle = -math.Pi / 2
)

func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// TargetRotation returns the rotation that puts the pointer on the center of
// segment targetIdx after at least turns full forward revolutions from current.
// turns below 1 count as 1.
func TargetRotation(current float64, targetIdx, turns int) float64 {
	if turns < 1 {
		turns = 1
	}
	base := normalizeAngle(PointerAngle - (float64(targetIdx)+0.5)*SegmentAngle)
	minimum := current + float64(turns)*2*math.Pi
	k := math.Ceil((minimum - base) / (2 * math.Pi))
	return base + k*2*math.Pi
}

// SegmentAtPointer returns the segment under the pointer at a rotation.
func SegmentAtPointer(rotation float64) int {
	idx := int(normalizeAngle(PointerAngle-rotation) / SegmentAngle)
	if idx >= Segments {
		idx = Segments - 1
	}
	return idx
}

// EaseOutCubic maps linear progress to a decelerating curve.
func EaseOutCubic(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	inv := 1 - t
	return 1 - inv*inv*inv
}

// WheelAnimation interpolates rotation from From to To over Duration.
type WheelAnimation struct {
	From     float64
	To       float64
	Duration time.Duration
}

// RotationAt returns the eased rotation after elapsed.
func (a WheelAnimation) RotationAt(elapsed time.Duration) float64 {
	if a.Duration <= 0 {
		return a.To
	}
	t := float64(elapsed) / float64(a.Duration)
	return a.From + (a.To-a.From)*EaseOutCubic(t)
}

// WheelSkin is the roulette wheel renderer state.
type WheelSkin struct {
	rotation  float64
	animation *WheelAnimation
	sample    types.Sample
	winner    *types.PoolItem
	opacity   float64
}

func NewWheelSkin() *WheelSkin {
	return &WheelSkin{}
}

func (w *WheelSkin) Name() string   { return "wheel" }
func (w *WheelSkin) Timing() Timing { return CanvasTiming }

// StartSpin animates from the current rotation, so consecutive spins stay continuous.
func (w *WheelSkin) StartSpin(rec types.SpinRecord, _ *rand.Rand) {
	w.sample = rec.Sample
	w.winner = nil
	w.animation = &WheelAnimation{
		From:     w.rotation,
		To:       TargetRotation(w.rotation, rec.TargetIdx, rec.Turns),
		Duration: time.Duration(rec.DurationMs) * time.Millisecond,
	}
}

func (w *WheelSkin) Advance(frame Frame, _ time.Duration) {
	switch frame.State {
	case StateSpinning:
		if w.animation != nil {
			w.rotation = w.animation.RotationAt(frame.Elapsed)
		}
	case StateHolding:
		if w.animation != nil {
			w.rotation = w.animation.To
		}
		w.winner = frame.Winner
		w.opacity = frame.Opacity
	default:
		w.winner = nil
		w.opacity = 0
		if w.animation != nil {
			// keep the resting angle bounded between spins
			w.rotation = normalizeAngle(w.rotation)
			w.animation = nil
		}
		if frame.Idle != nil {
			w.sample = frame.Idle.Sample
		}
	}
}

// Rotation returns the current wheel rotation in radians.
func (w *WheelSkin) Rotation() float64 { return w.rotation }

func (w *WheelSkin) Status() string {
	seg := SegmentAtPointer(w.rotation)
	label := "-"
	if item := w.sample[seg]; item != nil {
		label = item.Label()
	}
	if w.winner != nil {
		return fmt.Sprintf("winner=%q opacity=%.2f", w.winner.Label(), w.opacity)
	}
	return fmt.Sprintf("rotation=%.3f segment=%d label=%q", w.rotation, seg, label)
}
