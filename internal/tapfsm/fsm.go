// Package tapfsm implements the tap-to-click state machine: 15 states, 8
// event kinds, and the normative transition table of spec §4.1. It owns
// the global FSM state, per-touch tap state, the single multiplexed
// timer, and emission of synthetic pointer-button events.
package tapfsm

import (
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// TapTimeout is the tap decision window (spec §4.1).
	TapTimeout = 180 * time.Millisecond
	// DragTimeout is the drag-lock relanding window (spec §4.1).
	DragTimeout = 300 * time.Millisecond
	// MotionThreshold is the Euclidean displacement, in millimeters, that
	// disqualifies an in-progress tap (spec §4.1).
	MotionThreshold = 1.3
)

// TimerControl is the subset of internal/timer.Timer the FSM drives. It is
// an interface so tests can substitute a fake without a real clock.
type TimerControl interface {
	Set(deadline time.Time)
	Cancel()
}

// FSM is the global tap-to-click state machine for one touchpad (spec
// §3.1). All methods must be called from a single logical thread; there is
// no internal locking (spec §5).
type FSM struct {
	state State

	nfingersDown      int
	savedPressTime    time.Time
	savedReleaseTime  time.Time
	buttonsPressed    uint8 // bit (n-1) set iff n-finger button currently held

	activeMap ButtonMap
	wantMap   ButtonMap
	mapSet    bool // whether a SetMap value in wantMap is still pending application

	enabled         bool
	suspended       bool
	dragEnabled     bool
	dragLockEnabled bool

	timer  TimerControl
	sink   EventSink
	log    *logrus.Logger
	touch  *touches
}

// New builds an FSM in the IDLE state. hasPhysicalLeftButton follows the
// default-enabled rule of spec §4.4: tapping defaults on unless the device
// already has a physical left button.
func New(sink EventSink, timer TimerControl, log *logrus.Logger, hasPhysicalLeftButton bool) *FSM {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &FSM{
		state:           StateIdle,
		activeMap:       MapLRM,
		wantMap:         MapLRM,
		enabled:         !hasPhysicalLeftButton,
		dragEnabled:     true,
		dragLockEnabled: false,
		timer:           timer,
		sink:            sink,
		log:             log,
		touch:           newTouches(),
	}
}

// State returns the current FSM state.
func (f *FSM) State() State { return f.state }

// NFingersDown returns the number of touches currently live for tap
// purposes (spec §3.1).
func (f *FSM) NFingersDown() int { return f.nfingersDown }

// TouchByIndex exposes per-touch state to the frame driver, creating the
// slot on first access.
func (f *FSM) TouchByIndex(index int) *Touch { return f.touch.get(index) }

// ForgetTouch drops a touch's per-touch state once its slot is recycled.
func (f *FSM) ForgetTouch(index int) { f.touch.delete(index) }

// MarkAllLiveTouchesDead disqualifies every touch still in TapTouch state
// (spec §4.2 step 3.j: a motion event on one touch kills every admitted
// touch's tap candidacy, not just the one that moved).
func (f *FSM) MarkAllLiveTouchesDead() { f.touch.markAllDead() }

// Active reports whether tapping is currently processing input (spec §3.1:
// "tapping is active iff enabled && !suspended").
func (f *FSM) Active() bool { return f.enabled && !f.suspended }

// Step feeds one (event, touch?, time) tuple into the FSM (spec §4.1). For
// events without a specific touch (BUTTON, TIMEOUT), pass touchIndex -1.
func (f *FSM) Step(event Event, touchIndex int, t time.Time) {
	cell := table[f.state][event]
	if cell == nil {
		if event == EventTimeout {
			f.touch.markAllDead()
		}
		return
	}

	var tt *Touch
	if touchIndex >= 0 {
		tt = f.touch.get(touchIndex)
	}

	next := cell(f, tt, t)
	f.state = next

	// Global post-step rule (spec §4.1): IDLE or DEAD unconditionally
	// clears the timer, even if the transition's own action armed it.
	if f.state == StateIdle || f.state == StateDead {
		f.timer.Cancel()
	}
	if f.state == StateIdle {
		f.applyPendingMap()
	}

	// A timed-out frame cannot be rescued (spec §4.3): once TIMEOUT has
	// fired, every touch still in TOUCH is promoted to DEAD.
	if event == EventTimeout {
		f.touch.markAllDead()
	}
}

// applyPendingMap performs the deferred map switch of spec §4.4 (invariant
// I4: substitution only occurs in IDLE).
func (f *FSM) applyPendingMap() {
	if f.mapSet {
		f.activeMap = f.wantMap
		f.mapSet = false
	}
}

// --- actions shared by transition-table cells ---

func (f *FSM) setTapTimer(t time.Time) { f.timer.Set(t.Add(TapTimeout)) }
func (f *FSM) setDragTimer(t time.Time) { f.timer.Set(t.Add(DragTimeout)) }
func (f *FSM) clearTimer() { f.timer.Cancel() }

func (f *FSM) savePress(t time.Time)   { f.savedPressTime = t }
func (f *FSM) saveRelease(t time.Time) { f.savedReleaseTime = t }

// press emits a press for the n-finger slot and marks it held (spec I5:
// balanced press/release pairs).
func (f *FSM) press(n int, ts time.Time) {
	bit := uint8(1) << uint(n-1)
	if f.buttonsPressed&bit != 0 {
		f.log.WithFields(logrus.Fields{"n": n}).Warn("tapfsm: press with button already held")
	}
	f.buttonsPressed |= bit
	f.sink.NotifyButton(ts, f.activeMap[n], true)
}

// release emits a release for the n-finger slot and clears its held bit.
func (f *FSM) release(n int, ts time.Time) {
	bit := uint8(1) << uint(n-1)
	if f.buttonsPressed&bit == 0 {
		f.log.WithFields(logrus.Fields{"n": n}).Warn("tapfsm: release with no button held")
	}
	f.buttonsPressed &^= bit
	f.sink.NotifyButton(ts, f.activeMap[n], false)
}

// dead marks the touch that originated the current event as DEAD and
// clears the timer (spec §4.1, used only on MOTION).
func (f *FSM) dead(tt *Touch, t time.Time) {
	if tt != nil {
		tt.TapState = TapDead
	}
	f.timer.Cancel()
}

// markThumb latches is_thumb on the touch and decrements nfingers_down
// (spec §4.1 TOUCH/HOLD + THUMB rows, §3.2 invariant I6).
func (f *FSM) markThumb(tt *Touch) {
	if tt == nil {
		return
	}
	tt.IsThumb = true
	if f.nfingersDown > 0 {
		f.nfingersDown--
	} else {
		f.log.Warn("tapfsm: nfingers_down underflow marking thumb")
	}
}

func (f *FSM) logBug(event Event) {
	f.log.WithFields(logrus.Fields{
		"state": f.state.String(),
		"event": event.String(),
	}).Warn("tapfsm: impossible transition, ignoring")
}
