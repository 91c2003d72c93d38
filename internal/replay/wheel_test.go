package replay

import (
	"math"
	"testing"
	"time"
)

func TestTargetRotation_LandsOnTarget(t *testing.T) {
	currents := []float64{0, 1.3, -5, 100.25}
	for _, current := range currents {
		for idx := 0; idx < Segments; idx++ {
			got := TargetRotation(current, idx, 6)
			minimum := current + 6*2*math.Pi
			if got < minimum-1e-9 || got >= minimum+2*math.Pi {
				t.Fatalf("rotation out of range: current=%v idx=%d got=%v", current, idx, got)
			}
			if seg := SegmentAtPointer(got); seg != idx {
				t.Fatalf("pointer on wrong segment: current=%v got=%d want=%d", current, seg, idx)
			}
		}
	}
}

func TestTargetRotation_TurnsBelowOneCountAsOne(t *testing.T) {
	got := TargetRotation(0, 3, 0)
	if got < 2*math.Pi {
		t.Fatalf("expected at least one full turn: got=%v", got)
	}
	if got != TargetRotation(0, 3, 1) {
		t.Fatalf("turns=0 should match turns=1")
	}
}

func TestEaseOutCubic(t *testing.T) {
	if EaseOutCubic(-1) != 0 || EaseOutCubic(0) != 0 {
		t.Fatalf("ease should clamp at 0")
	}
	if EaseOutCubic(1) != 1 || EaseOutCubic(2) != 1 {
		t.Fatalf("ease should clamp at 1")
	}
	prev := 0.0
	for i := 1; i <= 100; i++ {
		v := EaseOutCubic(float64(i) / 100)
		if v < prev {
			t.Fatalf("ease should be monotonic: at=%d", i)
		}
		prev = v
	}
	if EaseOutCubic(0.5) <= 0.5 {
		t.Fatalf("ease-out should front-load motion")
	}
}

func TestWheelSkin_StopsOnWinner(t *testing.T) {
	rec := spinAt(base.UnixMilli(), 3000)
	skin := NewWheelSkin()
	skin.StartSpin(*rec, NewRand(*rec))

	skin.Advance(Frame{State: StateSpinning, Elapsed: ms(1500)}, 16*time.Millisecond)
	mid := skin.Rotation()
	skin.Advance(Frame{State: StateSpinning, Elapsed: ms(3000)}, 16*time.Millisecond)
	if skin.Rotation() <= mid {
		t.Fatalf("wheel should keep turning forward")
	}
	if seg := SegmentAtPointer(skin.Rotation()); seg != rec.TargetIdx {
		t.Fatalf("unexpected segment: got=%d want=%d", seg, rec.TargetIdx)
	}

	skin.Advance(Frame{State: StateHolding, Winner: rec.Winner, Opacity: 1}, 16*time.Millisecond)
	skin.Advance(Frame{State: StateIdle}, 16*time.Millisecond)
	if seg := SegmentAtPointer(skin.Rotation()); seg != rec.TargetIdx {
		t.Fatalf("idle wheel should rest on the winner: got=%d", seg)
	}
}

func TestSeedFor(t *testing.T) {
	a := spinAt(base.UnixMilli(), 1000)
	b := spinAt(base.UnixMilli()+1, 1000)

	if SeedFor(*a) != SeedFor(*a) {
		t.Fatalf("seed should be stable")
	}
	if SeedFor(*a) == SeedFor(*b) {
		t.Fatalf("different spins should get different seeds")
	}

	ra, rb := NewRand(*a), NewRand(*a)
	for i := 0; i < 10; i++ {
		if ra.Uint64() != rb.Uint64() {
			t.Fatalf("same spin should replay the same flavor sequence")
		}
	}

	noID := *a
	noID.SpinID = ""
	other := noID
	other.TS++
	if SeedFor(noID) == SeedFor(other) {
		t.Fatalf("timestamp fallback should distinguish spins")
	}
}

func TestNewSkin(t *testing.T) {
	for name, want := range map[string]string{"": "wheel", "wheel": "wheel", "claw": "claw"} {
		skin, err := NewSkin(name)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if skin.Name() != want {
			t.Fatalf("unexpected skin: got=%s want=%s", skin.Name(), want)
		}
	}
	if _, err := NewSkin("pachinko"); err == nil {
		t.Fatalf("unknown skin should fail")
	}
}
