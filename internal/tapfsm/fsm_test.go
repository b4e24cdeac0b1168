package tapfsm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTimer is a TimerControl that records arm/cancel calls without a real
// clock, so tests can assert on scheduling without sleeping.
type fakeTimer struct {
	deadline time.Time
	armed    bool
	sets     int
	cancels  int
}

func (f *fakeTimer) Set(d time.Time) { f.deadline = d; f.armed = true; f.sets++ }
func (f *fakeTimer) Cancel()         { f.armed = false; f.cancels++ }

func newTestFSM() (*FSM, *RecordingSink, *fakeTimer) {
	sink := &RecordingSink{}
	tmr := &fakeTimer{}
	f := New(sink, tmr, nil, false)
	return f, sink, tmr
}

var t0 = time.Unix(1000, 0)

func at(ms int) time.Time { return t0.Add(time.Duration(ms) * time.Millisecond) }

// --- property tests ---

// P1: a nil table cell is a pure no-op.
func TestNilCellIsNoOp(t *testing.T) {
	f, sink, tmr := newTestFSM()
	f.Step(EventRelease, -1, at(0)) // IDLE has no RELEASE cell
	assert.Equal(t, StateIdle, f.State())
	assert.Empty(t, sink.Events)
	assert.False(t, tmr.armed)
}

// P2: entering IDLE or DEAD always cancels the timer, even when the cell
// itself leaves an armed timer in place.
func TestIdleAndDeadAlwaysCancelTimer(t *testing.T) {
	f, _, tmr := newTestFSM()
	f.Step(EventTouch, 0, at(0))
	require.Equal(t, StateTouch, f.State())
	require.True(t, tmr.armed)

	f.Step(EventButton, -1, at(10))
	assert.Equal(t, StateDead, f.State())
	assert.False(t, tmr.armed, "DEAD must cancel the timer")

	f, _, tmr = newTestFSM()
	f.Step(EventTouch, 0, at(0))
	f.Step(EventTouch, 1, at(5))
	f.Step(EventRelease, 1, at(20))
	require.Equal(t, StateTouch2Release, f.State())
	require.True(t, tmr.armed)

	f.Step(EventRelease, 0, at(30))
	assert.Equal(t, StateIdle, f.State())
	assert.False(t, tmr.armed, "IDLE must cancel the timer")
}

// P3: entering IDLE applies a pending button-map swap.
func TestEnteringIdleAppliesPendingMap(t *testing.T) {
	f, _, _ := newTestFSM()
	f.SetMap(MapLMR) // FSM starts in IDLE, so this applies immediately
	assert.Equal(t, MapLMR, f.Map())

	// Force a deferred swap: move out of IDLE first.
	f.Step(EventTouch, 0, at(0))
	require.Equal(t, StateTouch, f.State())
	f.SetMap(MapLRM)
	assert.Equal(t, MapLMR, f.Map(), "swap must be deferred while not IDLE")

	f.Step(EventThumb, 0, at(10)) // TOUCH+THUMB -> IDLE
	require.Equal(t, StateIdle, f.State())
	assert.Equal(t, MapLRM, f.Map(), "swap applies once IDLE is reached")
}

// P4 (spec §4.3): once TIMEOUT fires, every touch still in TapTouch is
// promoted to TapDead, even though the TOUCH+TIMEOUT cell itself never
// touches per-touch state.
func TestTimeoutPromotesLiveTouchesToDead(t *testing.T) {
	f, _, _ := newTestFSM()
	f.Step(EventTouch, 0, at(0))
	tt := f.TouchByIndex(0)
	tt.TapState = TapTouch

	f.Step(EventTimeout, -1, at(200))
	assert.Equal(t, StateHold, f.State())
	assert.Equal(t, TapDead, tt.TapState)
}

// P5: the button-held bitmask warns (but does not panic) on an unbalanced
// release, and the release is still emitted.
func TestPressReleaseBalanceWarnsButDoesNotPanic(t *testing.T) {
	f, sink, _ := newTestFSM()
	assert.NotPanics(t, func() {
		f.release(1, at(0)) // release with nothing held
	})
	assert.Len(t, sink.Events, 1)
	assert.False(t, sink.Events[0].Pressed)
}

// P6: Count() caps at 3 and floors at 0.
func TestCountCapsAtThree(t *testing.T) {
	assert.Equal(t, 0, Count(0))
	assert.Equal(t, 1, Count(1))
	assert.Equal(t, 3, Count(3))
	assert.Equal(t, 3, Count(4))
	assert.Equal(t, 3, Count(5))
	assert.Equal(t, 0, Count(-1))
}

// --- scenario tests (spec §8) ---

// Scenario 1: a clean single tap with drag enabled presses immediately on
// release and defers the matching release until the tap timer lapses
// unchallenged.
func TestScenarioSingleTap(t *testing.T) {
	f, sink, tmr := newTestFSM()
	require.True(t, f.DragEnabled())

	f.Step(EventTouch, 0, at(0))
	require.Equal(t, StateTouch, f.State())

	f.Step(EventRelease, 0, at(50))
	require.Equal(t, StateTapped, f.State())
	require.Len(t, sink.Events, 1)
	assert.True(t, sink.Events[0].Pressed)
	assert.True(t, tmr.armed)

	f.Step(EventTimeout, -1, at(50+int(TapTimeout/time.Millisecond)))
	assert.Equal(t, StateIdle, f.State())
	require.Len(t, sink.Events, 2)
	assert.False(t, sink.Events[1].Pressed)
}

// Scenario 2: a second touch inside the tap window starts a drag-or-tap
// race instead of finishing the click immediately.
func TestScenarioTapAndDragRestart(t *testing.T) {
	f, sink, _ := newTestFSM()
	f.Step(EventTouch, 0, at(0))
	f.Step(EventRelease, 0, at(50))
	require.Equal(t, StateTapped, f.State())
	require.Len(t, sink.Events, 1)

	f.Step(EventTouch, 0, at(60))
	assert.Equal(t, StateDraggingOrDoubleTap, f.State())
	assert.Len(t, sink.Events, 1, "no new button event on the second touch-down")
}

// Scenario 3: releasing while dragging-or-double-tap bounces out a
// release/press pair and re-arms the tap timer (double-tap / drag-tap
// ambiguity, spec §4.1).
func TestScenarioReleaseDuringDraggingOrDoubleTap(t *testing.T) {
	f, sink, tmr := newTestFSM()
	f.Step(EventTouch, 0, at(0))
	f.Step(EventRelease, 0, at(50))
	f.Step(EventTouch, 0, at(60))
	require.Equal(t, StateDraggingOrDoubleTap, f.State())

	f.Step(EventRelease, 0, at(70))
	assert.Equal(t, StateTapped, f.State())
	require.Len(t, sink.Events, 3)
	assert.False(t, sink.Events[1].Pressed)
	assert.True(t, sink.Events[2].Pressed)
	assert.True(t, tmr.armed)
}

// Scenario 4: motion after a touch-down during a pending tap kills the
// tap candidacy and the timer, without otherwise disturbing group state.
func TestScenarioMotionKillsTapCandidacy(t *testing.T) {
	f, _, tmr := newTestFSM()
	f.Step(EventTouch, 0, at(0))
	tt := f.TouchByIndex(0)
	tt.TapState = TapTouch
	require.True(t, tmr.armed)

	f.Step(EventMotion, 0, at(10))
	assert.Equal(t, StateTouch, f.State(), "motion does not change group state from TOUCH")
	assert.Equal(t, TapDead, tt.TapState)
	assert.False(t, tmr.armed)
}

// Scenario 5: a two-finger tap (both fingers lift within the tap window)
// emits a single n=2 press/release pair and returns to IDLE.
func TestScenarioTwoFingerTap(t *testing.T) {
	f, sink, _ := newTestFSM()
	f.Step(EventTouch, 0, at(0))
	f.Step(EventTouch, 1, at(10))
	require.Equal(t, StateTouch2, f.State())

	f.Step(EventRelease, 1, at(20))
	require.Equal(t, StateTouch2Release, f.State())

	f.Step(EventRelease, 0, at(30))
	assert.Equal(t, StateIdle, f.State())
	require.Len(t, sink.Events, 2)
	assert.Equal(t, ButtonRight, sink.Events[0].Code)
	assert.True(t, sink.Events[0].Pressed)
	assert.False(t, sink.Events[1].Pressed)
}

// Scenario 6: a three-finger tap emits a single n=3 press/release pair
// only for a touch that is still a live tap candidate.
func TestScenarioThreeFingerTap(t *testing.T) {
	f, sink, _ := newTestFSM()
	f.Step(EventTouch, 0, at(0))
	f.Step(EventTouch, 1, at(5))
	f.Step(EventTouch, 2, at(10))
	require.Equal(t, StateTouch3, f.State())

	tt := f.TouchByIndex(2)
	tt.TapState = TapTouch

	f.Step(EventRelease, 2, at(20))
	assert.Equal(t, StateTouch2Hold, f.State())
	require.Len(t, sink.Events, 2)
	assert.Equal(t, ButtonMiddle, sink.Events[0].Code)
}

// Scenario 7: thumb classification during a pending tap demotes the
// finger count without emitting any button event, and settles in IDLE.
func TestScenarioThumbDuringTouch(t *testing.T) {
	f, sink, tmr := newTestFSM()
	f.IncFingersDown()
	f.Step(EventTouch, 0, at(0))

	f.Step(EventThumb, 0, at(5))
	assert.Equal(t, StateIdle, f.State())
	assert.Empty(t, sink.Events)
	assert.False(t, tmr.armed)
	assert.True(t, f.TouchByIndex(0).IsThumb)
	assert.Equal(t, 0, f.NFingersDown())
}

// --- drag lock ---

func TestDragLockRelandingWindow(t *testing.T) {
	f, sink, tmr := newTestFSM()
	f.SetDragLockEnabled(true)
	f.state = StateDragging // arrived here via a prior tap+move, out of band for this test

	f.Step(EventRelease, -1, at(0))
	assert.Equal(t, StateDraggingWait, f.State())
	assert.True(t, tmr.armed)
	assert.Empty(t, sink.Events)

	f.Step(EventTouch, 0, at(50))
	assert.Equal(t, StateDraggingOrTap, f.State())
}

func TestDragLockTimeoutReleases(t *testing.T) {
	f, sink, _ := newTestFSM()
	f.SetDragLockEnabled(true)
	f.state = StateDraggingWait

	f.Step(EventTimeout, -1, at(300))
	assert.Equal(t, StateIdle, f.State())
	require.Len(t, sink.Events, 1)
	assert.False(t, sink.Events[0].Pressed)
}

// --- lifecycle (spec §4.4) ---

func TestSetTapEnabledReleasesHeldButtons(t *testing.T) {
	f, sink, _ := newTestFSM()
	f.SetTapEnabled(at(0), true)
	require.True(t, f.Active())

	f.Step(EventTouch, 0, at(1))
	f.Step(EventRelease, 0, at(2))
	require.Equal(t, StateTapped, f.State())
	require.Len(t, sink.Events, 1)

	f.SetTapEnabled(at(3), false)
	assert.False(t, f.Active())
	assert.Equal(t, StateIdle, f.State())
	require.Len(t, sink.Events, 2)
	assert.False(t, sink.Events[1].Pressed)
}

func TestSuspendResumeRoundTrips(t *testing.T) {
	f, _, _ := newTestFSM()
	f.SetTapEnabled(at(0), true)
	require.True(t, f.Active())

	f.Suspend(at(1))
	assert.False(t, f.Active())
	assert.True(t, f.Suspended())

	f.Resume(at(2))
	assert.True(t, f.Active())
	assert.False(t, f.Suspended())
}

func TestDefaultTapEnabledFollowsPhysicalButton(t *testing.T) {
	assert.True(t, DefaultTapEnabled(false))
	assert.False(t, DefaultTapEnabled(true))
}

func TestReleaseAllClearsEveryHeldButton(t *testing.T) {
	f, sink, _ := newTestFSM()
	f.SetTapEnabled(at(0), true)
	f.press(1, at(1))
	f.press(2, at(1))
	sink.Events = nil

	f.ReleaseAll(at(2))
	require.Len(t, sink.Events, 2)
	for _, ev := range sink.Events {
		assert.False(t, ev.Pressed)
	}
	assert.Equal(t, StateIdle, f.State())
	assert.Equal(t, 0, f.NFingersDown())
}
