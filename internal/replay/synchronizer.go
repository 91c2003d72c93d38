package replay

import (
	"sync"
	"time"

	"github.com/ichi0g0y/retro-wheel/internal/types"
)

// StaleGrace is how long after a spin's end a late client still replays or shows it.
const StaleGrace = 1500 * time.Millisecond

// State of one client's replay.
type State int

const (
	StateIdle State = iota
	StateSpinning
	StateHolding
)

func (s State) String() string {
	switch s {
	case StateSpinning:
		return "spinning"
	case StateHolding:
		return "holding"
	default:
		return "idle"
	}
}

// Transition reports what Observe did with a polled spin record.
type Transition int

const (
	TransitionNone Transition = iota
	TransitionStarted
	TransitionShownFinished
	TransitionSkippedStale
)

func (t Transition) String() string {
	switch t {
	case TransitionStarted:
		return "started"
	case TransitionShownFinished:
		return "shown_finished"
	case TransitionSkippedStale:
		return "skipped_stale"
	default:
		return "none"
	}
}

// Timing is the winner display window of a skin.
type Timing struct {
	Hold time.Duration
	Fade time.Duration
}

var (
	CanvasTiming = Timing{Hold: 2500 * time.Millisecond, Fade: 450 * time.Millisecond}
	ClawTiming   = Timing{Hold: 5 * time.Second, Fade: 450 * time.Millisecond}
)

// Frame is the synchronizer's view at one instant.
type Frame struct {
	State    State
	Spin     *types.SpinRecord
	Elapsed  time.Duration // since local animation start, capped at the spin duration
	Progress float64       // linear 0..1
	Winner   *types.PoolItem
	Opacity  float64 // winner overlay opacity
	Idle     *types.IdleState
}

// Synchronizer replays server spin records on one client. It is driven by an
// injected clock so the render loop, the poll loop and a backup timer can all
// call into it. The completion callback runs exactly once per spin.
type Synchronizer struct {
	mu     sync.Mutex
	timing Timing

	state     State
	lastTS    int64
	lastID    string
	spin      *types.SpinRecord
	startedAt time.Time
	holdStart time.Time
	completed bool

	idle        *types.IdleState
	pendingIdle *types.IdleState

	clockOffset time.Duration
	onComplete  func(types.SpinRecord)
}

// NewSynchronizer returns an idle synchronizer with the given winner timing.
// onComplete may be nil.
func NewSynchronizer(timing Timing, onComplete func(types.SpinRecord)) *Synchronizer {
	return &Synchronizer{timing: timing, onComplete: onComplete}
}

// SetServerTime records the server clock at local instant now so spin ages are
// measured on the server's clock.
func (s *Synchronizer) SetServerTime(serverMs int64, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clockOffset = time.Duration(serverMs-now.UnixMilli()) * time.Millisecond
}

// State returns the current state.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Observe handles a polled spin record at local instant now.
func (s *Synchronizer) Observe(rec *types.SpinRecord, now time.Time) Transition {
	if rec == nil {
		return TransitionNone
	}

	s.mu.Lock()
	if rec.TS == s.lastTS && rec.SpinID == s.lastID {
		s.mu.Unlock()
		return TransitionNone
	}

	// a newer spin preempts the current one; its completion must still fire
	var preempted *types.SpinRecord
	if s.spin != nil && !s.completed {
		preempted = s.spin
		s.completed = true
	}

	s.lastTS = rec.TS
	s.lastID = rec.SpinID

	duration := time.Duration(rec.DurationMs) * time.Millisecond
	age := s.ageLocked(rec, now)

	var transition Transition
	var finished *types.SpinRecord
	switch {
	case age > duration+StaleGrace:
		transition = TransitionSkippedStale
		if s.state != StateIdle {
			s.toIdleLocked()
		}
	case age > duration:
		spin := *rec
		s.spin = &spin
		s.state = StateHolding
		s.startedAt = now.Add(-age)
		s.holdStart = s.startedAt.Add(duration)
		s.completed = true
		finished = s.spin
		transition = TransitionShownFinished
	default:
		if age < 0 {
			age = 0
		}
		spin := *rec
		s.spin = &spin
		s.state = StateSpinning
		s.startedAt = now.Add(-age)
		s.completed = false
		transition = TransitionStarted
	}
	s.mu.Unlock()

	if preempted != nil {
		s.fire(*preempted)
	}
	if finished != nil {
		s.fire(*finished)
	}
	return transition
}

// ApplyIdle stores a polled idle state. While a spin is in flight the state is
// deferred and applied on return to idle; the result reports whether it was applied now.
func (s *Synchronizer) ApplyIdle(state types.IdleState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		s.pendingIdle = &state
		return false
	}
	s.idle = &state
	s.pendingIdle = nil
	return true
}

// Deadline returns the local instant the current spin's animation ends.
func (s *Synchronizer) Deadline() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateSpinning || s.spin == nil {
		return time.Time{}, false
	}
	return s.startedAt.Add(time.Duration(s.spin.DurationMs) * time.Millisecond), true
}

// SpinEndsAt returns the absolute wall-clock instant the current spin ends on this client.
func (s *Synchronizer) SpinEndsAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.spin == nil {
		return time.Time{}, false
	}
	return s.startedAt.Add(time.Duration(s.spin.DurationMs) * time.Millisecond).Add(s.clockOffset), true
}

// Tick advances the state machine to now and returns the frame to draw.
// The backup timer calls Tick too; whichever call crosses the end boundary
// first fires the completion callback.
func (s *Synchronizer) Tick(now time.Time) Frame {
	s.mu.Lock()
	finished := s.advanceLocked(now)
	frame := s.frameLocked(now)
	s.mu.Unlock()

	if finished != nil {
		s.fire(*finished)
	}
	return frame
}

func (s *Synchronizer) advanceLocked(now time.Time) *types.SpinRecord {
	var finished *types.SpinRecord

	if s.state == StateSpinning {
		duration := time.Duration(s.spin.DurationMs) * time.Millisecond
		if now.Sub(s.startedAt) >= duration {
			s.state = StateHolding
			s.holdStart = s.startedAt.Add(duration)
			if !s.completed {
				s.completed = true
				finished = s.spin
			}
		}
	}

	if s.state == StateHolding && now.Sub(s.holdStart) >= s.timing.Hold+s.timing.Fade {
		s.toIdleLocked()
	}

	return finished
}

func (s *Synchronizer) toIdleLocked() {
	s.state = StateIdle
	if s.pendingIdle != nil {
		s.idle = s.pendingIdle
		s.pendingIdle = nil
	}
}

func (s *Synchronizer) frameLocked(now time.Time) Frame {
	frame := Frame{State: s.state, Idle: s.idle}
	if s.state == StateIdle || s.spin == nil {
		return frame
	}

	frame.Spin = s.spin
	duration := time.Duration(s.spin.DurationMs) * time.Millisecond

	switch s.state {
	case StateSpinning:
		elapsed := now.Sub(s.startedAt)
		if elapsed < 0 {
			elapsed = 0
		}
		if elapsed > duration {
			elapsed = duration
		}
		frame.Elapsed = elapsed
		if duration > 0 {
			frame.Progress = float64(elapsed) / float64(duration)
		} else {
			frame.Progress = 1
		}
	case StateHolding:
		frame.Elapsed = duration
		frame.Progress = 1
		frame.Winner = s.spin.Winner
		frame.Opacity = 1
		if since := now.Sub(s.holdStart); since > s.timing.Hold && s.timing.Fade > 0 {
			frame.Opacity = 1 - float64(since-s.timing.Hold)/float64(s.timing.Fade)
			if frame.Opacity < 0 {
				frame.Opacity = 0
			}
		}
	}
	return frame
}

// ageLocked is how long ago the spin started, on the server's clock.
func (s *Synchronizer) ageLocked(rec *types.SpinRecord, now time.Time) time.Duration {
	serverNow := now.Add(s.clockOffset).UnixMilli()
	return time.Duration(serverNow-rec.TS) * time.Millisecond
}

func (s *Synchronizer) fire(rec types.SpinRecord) {
	if s.onComplete != nil {
		s.onComplete(rec)
	}
}
