package replay

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/ichi0g0y/retro-wheel/internal/types"
)

// ClawPhase names one step of the claw choreography.
type ClawPhase int

const (
	PhaseSearch ClawPhase = iota
	PhaseMove
	PhaseDescend
	PhaseClose
	PhaseLift
	PhaseTransit
	PhaseDrop
	PhaseDone
)

var clawPhaseNames = [...]string{"search", "move", "descend", "close", "lift", "transit", "drop", "done"}

func (p ClawPhase) String() string {
	if p < 0 || int(p) >= len(clawPhaseNames) {
		return "unknown"
	}
	return clawPhaseNames[p]
}

var (
	clawWeights = [PhaseDone]float64{0.26, 0.14, 0.14, 0.08, 0.14, 0.14, 0.10}
	clawMinimum = [PhaseDone]time.Duration{
		900 * time.Millisecond,
		500 * time.Millisecond,
		750 * time.Millisecond,
		300 * time.Millisecond,
		600 * time.Millisecond,
		600 * time.Millisecond,
		500 * time.Millisecond,
	}
)

// PhaseSpan is one phase placed on the spin timeline.
type PhaseSpan struct {
	Phase    ClawPhase
	Start    time.Duration
	Duration time.Duration
}

// ClawTimeline splits total across the seven phases by weight and never lets a
// phase run shorter than its minimum. Phases whose weighted share falls below
// the minimum are pinned there and the rest of the budget is shared by weight
// among the others. Only when the minimums alone exceed total are all phases
// scaled down together. The returned spans never run past total.
func ClawTimeline(total time.Duration) []PhaseSpan {
	var durations [PhaseDone]time.Duration
	var minSum time.Duration
	for _, m := range clawMinimum {
		minSum += m
	}

	if minSum > total {
		scale := float64(total) / float64(minSum)
		for i, m := range clawMinimum {
			durations[i] = time.Duration(float64(m) * scale)
		}
	} else {
		var pinned [PhaseDone]bool
		for {
			remaining := total
			var weight float64
			for i := range clawWeights {
				if pinned[i] {
					remaining -= clawMinimum[i]
				} else {
					weight += clawWeights[i]
				}
			}

			changed := false
			for i, w := range clawWeights {
				if pinned[i] {
					durations[i] = clawMinimum[i]
					continue
				}
				d := time.Duration(w / weight * float64(remaining))
				if d < clawMinimum[i] {
					pinned[i] = true
					changed = true
				}
				durations[i] = d
			}
			if !changed {
				break
			}
		}
	}

	spans := make([]PhaseSpan, 0, len(durations))
	var start time.Duration
	for i, d := range durations {
		spans = append(spans, PhaseSpan{Phase: ClawPhase(i), Start: start, Duration: d})
		start += d
	}
	return spans
}

// PhaseAt returns the phase at elapsed and the linear progress within it.
func PhaseAt(spans []PhaseSpan, elapsed time.Duration) (ClawPhase, float64) {
	for _, span := range spans {
		if elapsed < span.Start+span.Duration {
			if span.Duration <= 0 {
				return span.Phase, 1
			}
			p := float64(elapsed-span.Start) / float64(span.Duration)
			if p < 0 {
				p = 0
			}
			return span.Phase, p
		}
	}
	return PhaseDone, 1
}

const (
	clawTopY   = -0.15
	chuteX     = JarWidth + 0.15
	chuteFloor = JarHeight + 0.3
	searchHops = 3
)

// ClawSkin is the claw machine renderer state.
type ClawSkin struct {
	jar      *Jar
	idleRng  *rand.Rand
	timeline []PhaseSpan
	target   int
	lane     []float64

	ClawX, ClawY float64
	Grip         float64 // 0 open, 1 closed
	Phase        ClawPhase

	carrying  bool
	lastState State
	winner    *types.PoolItem
	opacity   float64
	sample    types.Sample
}

func NewClawSkin() *ClawSkin {
	return &ClawSkin{
		idleRng: rand.New(rand.NewPCG(1, 2)),
		ClawX:   JarWidth / 2,
		ClawY:   clawTopY,
		target:  -1,
		Phase:   PhaseDone,
	}
}

func (c *ClawSkin) Name() string   { return "claw" }
func (c *ClawSkin) Timing() Timing { return ClawTiming }

// Jar exposes the capsule jar.
func (c *ClawSkin) Jar() *Jar { return c.jar }

// StartSpin fills the jar from the spin sample and plans the search lane from the spin seed.
func (c *ClawSkin) StartSpin(rec types.SpinRecord, rng *rand.Rand) {
	c.sample = rec.Sample
	c.jar = NewJar(rec.Sample.Occupied(), rng)
	c.timeline = ClawTimeline(time.Duration(rec.DurationMs) * time.Millisecond)
	c.target = rec.TargetIdx
	c.lane = make([]float64, searchHops)
	for i := range c.lane {
		c.lane[i] = CapsuleRadius + rng.Float64()*(JarWidth-2*CapsuleRadius)
	}
	c.ClawX = JarWidth / 2
	c.ClawY = clawTopY
	c.Grip = 0
	c.carrying = false
	c.winner = nil
}

func (c *ClawSkin) Advance(frame Frame, dt time.Duration) {
	leaving := c.lastState != StateIdle
	c.lastState = frame.State

	switch frame.State {
	case StateSpinning:
		c.choreograph(frame.Elapsed)
	case StateHolding:
		c.choreograph(frame.Elapsed)
		c.winner = frame.Winner
		c.opacity = frame.Opacity
	default:
		c.winner = nil
		c.opacity = 0
		// a finished spin leaves its capsule in the chute, so the jar is rebuilt on return to idle
		switch {
		case frame.Idle != nil && (c.jar == nil || leaving || !sameSlots(frame.Idle.Sample, c.sample)):
			c.refill(frame.Idle.Sample)
		case leaving && c.jar != nil:
			c.refill(c.sample)
		}
		if c.jar != nil {
			c.jar.Step(dt, -1)
		}
	}
}

func (c *ClawSkin) refill(sample types.Sample) {
	c.sample = sample
	c.jar = NewJar(sample.Occupied(), c.idleRng)
	c.target = -1
	c.carrying = false
	c.Phase = PhaseDone
	c.ClawX = JarWidth / 2
	c.ClawY = clawTopY
	c.Grip = 0
}

func (c *ClawSkin) choreograph(elapsed time.Duration) {
	if c.jar == nil {
		return
	}
	phase, p := PhaseAt(c.timeline, elapsed)
	c.Phase = phase

	capsule, ok := c.jar.Find(c.target)
	targetX, targetY := JarWidth/2, JarHeight/2
	if ok {
		targetX, targetY = capsule.X, capsule.Y
	}
	searchEnd := JarWidth / 2
	if len(c.lane) > 0 {
		searchEnd = c.lane[len(c.lane)-1]
	}

	switch phase {
	case PhaseSearch:
		c.ClawY = clawTopY
		c.Grip = 0
		c.ClawX = c.searchX(p)
	case PhaseMove:
		c.ClawY = clawTopY
		c.ClawX = lerp(searchEnd, targetX, EaseOutCubic(p))
	case PhaseDescend:
		c.ClawX = targetX
		c.ClawY = lerp(clawTopY, targetY, EaseOutCubic(p))
	case PhaseClose:
		c.ClawX, c.ClawY = targetX, targetY
		c.Grip = p
	case PhaseLift:
		c.Grip = 1
		c.carrying = true
		c.ClawX = targetX
		c.ClawY = lerp(targetY, clawTopY, EaseOutCubic(p))
	case PhaseTransit:
		c.Grip = 1
		c.carrying = true
		c.ClawY = clawTopY
		c.ClawX = lerp(targetX, chuteX, EaseOutCubic(p))
	case PhaseDrop:
		c.ClawX, c.ClawY = chuteX, clawTopY
		c.Grip = 1 - p
		c.carrying = false
		if ok {
			capsule.X = chuteX
			capsule.Y = lerp(clawTopY, chuteFloor, p*p)
		}
		return
	default:
		c.ClawX, c.ClawY = chuteX, clawTopY
		c.Grip = 0
		c.carrying = false
		if ok {
			capsule.X, capsule.Y = chuteX, chuteFloor
		}
		return
	}

	if c.carrying && ok {
		capsule.X = c.ClawX
		capsule.Y = c.ClawY + CapsuleRadius
	}
}

func (c *ClawSkin) searchX(p float64) float64 {
	if len(c.lane) == 0 {
		return JarWidth / 2
	}
	points := append([]float64{JarWidth / 2}, c.lane...)
	pos := p * float64(len(points)-1)
	i := int(pos)
	if i >= len(points)-1 {
		return points[len(points)-1]
	}
	return lerp(points[i], points[i+1], EaseOutCubic(pos-float64(i)))
}

func (c *ClawSkin) Status() string {
	if c.winner != nil {
		return fmt.Sprintf("winner=%q opacity=%.2f", c.winner.Label(), c.opacity)
	}
	capsules := 0
	if c.jar != nil {
		capsules = len(c.jar.Capsules)
	}
	return fmt.Sprintf("phase=%s claw=(%.2f,%.2f) grip=%.2f capsules=%d", c.Phase, c.ClawX, c.ClawY, c.Grip, capsules)
}

func sameSlots(a, b types.Sample) bool {
	for i := range a {
		if (a[i] == nil) != (b[i] == nil) {
			return false
		}
		if a[i] != nil && a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
