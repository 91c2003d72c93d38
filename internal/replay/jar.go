package replay

import (
	"math"
	"math/rand/v2"
	"time"
)

const (
	JarWidth       = 1.0
	JarHeight      = 0.6
	CapsuleRadius  = 0.05
	repelStrength  = 0.9
	wanderStrength = 0.12
	velocityDamp   = 0.92
	maxSpeed       = 0.35
)

// Capsule is one ball in the jar, bound to a sample slot.
type Capsule struct {
	Slot int
	X, Y float64
	VX   float64
	VY   float64
}

// Jar holds the capsules of the claw machine. Coordinates are in jar units
// with the origin at the top-left corner of the jar.
type Jar struct {
	Capsules []Capsule
	rng      *rand.Rand
}

// NewJar lays capsules out on a loose grid, one per slot, with a seeded jitter.
func NewJar(slots []int, rng *rand.Rand) *Jar {
	j := &Jar{rng: rng}
	cols := int(math.Ceil(math.Sqrt(float64(len(slots)) * JarWidth / JarHeight)))
	if cols < 1 {
		cols = 1
	}
	rows := (len(slots) + cols - 1) / cols
	if rows < 1 {
		rows = 1
	}
	for i, slot := range slots {
		cx := (float64(i%cols) + 0.5) * JarWidth / float64(cols)
		cy := JarHeight - (float64(i/cols)+0.5)*JarHeight/float64(rows)
		c := Capsule{
			Slot: slot,
			X:    cx + (rng.Float64()-0.5)*CapsuleRadius,
			Y:    cy + (rng.Float64()-0.5)*CapsuleRadius,
		}
		clampToWalls(&c)
		j.Capsules = append(j.Capsules, c)
	}
	return j
}

// Find returns the capsule of a slot.
func (j *Jar) Find(slot int) (*Capsule, bool) {
	for i := range j.Capsules {
		if j.Capsules[i].Slot == slot {
			return &j.Capsules[i], true
		}
	}
	return nil, false
}

// Step integrates one idle physics step: pairwise repulsion, random wander,
// damping and wall containment. skip names a slot left untouched (-1 for none).
func (j *Jar) Step(dt time.Duration, skip int) {
	secs := dt.Seconds()
	if secs <= 0 {
		return
	}
	if secs > 0.1 {
		secs = 0.1
	}

	n := len(j.Capsules)
	for a := 0; a < n; a++ {
		ca := &j.Capsules[a]
		if ca.Slot == skip {
			continue
		}
		for b := 0; b < n; b++ {
			if a == b {
				continue
			}
			cb := &j.Capsules[b]
			dx := ca.X - cb.X
			dy := ca.Y - cb.Y
			dist := math.Hypot(dx, dy)
			if dist >= 2*CapsuleRadius {
				continue
			}
			if dist < 1e-6 {
				angle := j.rng.Float64() * 2 * math.Pi
				dx, dy, dist = math.Cos(angle), math.Sin(angle), 1
			}
			overlap := 2*CapsuleRadius - math.Min(dist, 2*CapsuleRadius)
			push := repelStrength * (overlap/(2*CapsuleRadius) + 0.05)
			ca.VX += dx / dist * push * secs
			ca.VY += dy / dist * push * secs
		}
		angle := j.rng.Float64() * 2 * math.Pi
		ca.VX += math.Cos(angle) * wanderStrength * secs
		ca.VY += math.Sin(angle) * wanderStrength * secs
	}

	for i := range j.Capsules {
		c := &j.Capsules[i]
		if c.Slot == skip {
			continue
		}
		c.VX *= velocityDamp
		c.VY *= velocityDamp
		if speed := math.Hypot(c.VX, c.VY); speed > maxSpeed {
			c.VX *= maxSpeed / speed
			c.VY *= maxSpeed / speed
		}
		c.X += c.VX * secs
		c.Y += c.VY * secs
		clampToWalls(c)
	}
}

func clampToWalls(c *Capsule) {
	if c.X < CapsuleRadius {
		c.X = CapsuleRadius
		c.VX = math.Abs(c.VX)
	}
	if c.X > JarWidth-CapsuleRadius {
		c.X = JarWidth - CapsuleRadius
		c.VX = -math.Abs(c.VX)
	}
	if c.Y < CapsuleRadius {
		c.Y = CapsuleRadius
		c.VY = math.Abs(c.VY)
	}
	if c.Y > JarHeight-CapsuleRadius {
		c.Y = JarHeight - CapsuleRadius
		c.VY = -math.Abs(c.VY)
	}
}
