package tapfsm

import "time"

// transitionFn executes one cell of the normative transition table (spec
// §4.1) and returns the FSM's next state. tt is nil for events with no
// associated touch (BUTTON, TIMEOUT).
type transitionFn func(f *FSM, tt *Touch, t time.Time) State

// table is the data-driven transition table the design notes (§9) call
// for: one entry per (state, event) pair. A nil cell is a no-op — the FSM
// stays in its current state and nothing fires.
var table [numStates][numEvents]transitionFn

func bugCell(event Event) transitionFn {
	return func(f *FSM, _ *Touch, _ time.Time) State {
		f.logBug(event)
		return f.state
	}
}

func deadOnMotion(stay State) transitionFn {
	return func(f *FSM, tt *Touch, t time.Time) State {
		f.dead(tt, t)
		return stay
	}
}

func init() {
	// IDLE
	table[StateIdle][EventTouch] = func(f *FSM, _ *Touch, t time.Time) State {
		f.savePress(t)
		f.setTapTimer(t)
		return StateTouch
	}
	table[StateIdle][EventMotion] = bugCell(EventMotion)
	table[StateIdle][EventButton] = func(f *FSM, _ *Touch, _ time.Time) State { return StateDead }
	table[StateIdle][EventThumb] = bugCell(EventThumb)

	// TOUCH
	table[StateTouch][EventTouch] = func(f *FSM, _ *Touch, t time.Time) State {
		f.savePress(t)
		f.setTapTimer(t)
		return StateTouch2
	}
	table[StateTouch][EventMotion] = deadOnMotion(StateTouch)
	table[StateTouch][EventRelease] = touchRelease // §4.1a
	table[StateTouch][EventTimeout] = func(f *FSM, _ *Touch, _ time.Time) State {
		f.clearTimer()
		return StateHold
	}
	table[StateTouch][EventButton] = func(f *FSM, _ *Touch, _ time.Time) State { return StateDead }
	table[StateTouch][EventThumb] = func(f *FSM, tt *Touch, _ time.Time) State {
		f.markThumb(tt)
		f.clearTimer()
		return StateIdle
	}
	table[StateTouch][EventPalm] = func(f *FSM, _ *Touch, _ time.Time) State {
		f.clearTimer()
		return StateIdle
	}

	// HOLD
	table[StateHold][EventTouch] = func(f *FSM, _ *Touch, t time.Time) State {
		f.savePress(t)
		f.setTapTimer(t)
		return StateTouch2
	}
	table[StateHold][EventMotion] = deadOnMotion(StateHold)
	table[StateHold][EventRelease] = func(f *FSM, _ *Touch, _ time.Time) State { return StateIdle }
	table[StateHold][EventButton] = func(f *FSM, _ *Touch, _ time.Time) State { return StateDead }
	table[StateHold][EventThumb] = func(f *FSM, tt *Touch, _ time.Time) State {
		f.markThumb(tt)
		return StateIdle
	}
	table[StateHold][EventPalm] = func(f *FSM, _ *Touch, _ time.Time) State { return StateIdle }

	// TAPPED
	table[StateTapped][EventTouch] = func(f *FSM, _ *Touch, t time.Time) State {
		f.savePress(t)
		f.setTapTimer(t)
		return StateDraggingOrDoubleTap
	}
	table[StateTapped][EventMotion] = bugCell(EventMotion)
	table[StateTapped][EventRelease] = bugCell(EventRelease)
	table[StateTapped][EventTimeout] = func(f *FSM, _ *Touch, _ time.Time) State {
		f.release(1, f.savedReleaseTime)
		return StateIdle
	}
	table[StateTapped][EventButton] = func(f *FSM, _ *Touch, _ time.Time) State {
		f.release(1, f.savedReleaseTime)
		return StateDead
	}
	table[StateTapped][EventThumb] = bugCell(EventThumb)

	// TOUCH_2
	table[StateTouch2][EventTouch] = func(f *FSM, _ *Touch, t time.Time) State {
		f.savePress(t)
		f.setTapTimer(t)
		return StateTouch3
	}
	table[StateTouch2][EventMotion] = deadOnMotion(StateTouch2)
	table[StateTouch2][EventRelease] = func(f *FSM, _ *Touch, t time.Time) State {
		f.saveRelease(t)
		f.setTapTimer(t)
		return StateTouch2Release
	}
	table[StateTouch2][EventTimeout] = func(f *FSM, _ *Touch, _ time.Time) State { return StateTouch2Hold }
	table[StateTouch2][EventButton] = func(f *FSM, _ *Touch, _ time.Time) State { return StateDead }
	table[StateTouch2][EventPalm] = func(f *FSM, _ *Touch, t time.Time) State {
		f.setTapTimer(t)
		return StateTouch
	}

	// TOUCH_2_HOLD
	table[StateTouch2Hold][EventTouch] = func(f *FSM, _ *Touch, t time.Time) State {
		f.savePress(t)
		f.setTapTimer(t)
		return StateTouch3
	}
	table[StateTouch2Hold][EventMotion] = deadOnMotion(StateTouch2Hold)
	table[StateTouch2Hold][EventRelease] = func(f *FSM, _ *Touch, _ time.Time) State { return StateHold }
	table[StateTouch2Hold][EventButton] = func(f *FSM, _ *Touch, _ time.Time) State { return StateDead }
	table[StateTouch2Hold][EventPalm] = func(f *FSM, _ *Touch, _ time.Time) State { return StateHold }

	// TOUCH_2_RELEASE
	table[StateTouch2Release][EventTouch] = func(f *FSM, tt *Touch, _ time.Time) State {
		if tt != nil {
			tt.TapState = TapDead
		}
		f.clearTimer()
		return StateTouch2Hold
	}
	table[StateTouch2Release][EventMotion] = deadOnMotion(StateTouch2Release)
	table[StateTouch2Release][EventRelease] = func(f *FSM, _ *Touch, t time.Time) State {
		f.press(2, f.savedPressTime)
		f.release(2, f.savedReleaseTime)
		return StateIdle
	}
	table[StateTouch2Release][EventTimeout] = func(f *FSM, _ *Touch, _ time.Time) State { return StateHold }
	table[StateTouch2Release][EventButton] = func(f *FSM, _ *Touch, _ time.Time) State { return StateDead }
	table[StateTouch2Release][EventPalm] = touch2ReleasePalm // §4.1b

	// TOUCH_3
	table[StateTouch3][EventTouch] = func(f *FSM, _ *Touch, _ time.Time) State {
		f.clearTimer()
		return StateDead
	}
	table[StateTouch3][EventMotion] = deadOnMotion(StateTouch3)
	table[StateTouch3][EventRelease] = touch3Release // §4.1c
	table[StateTouch3][EventTimeout] = func(f *FSM, _ *Touch, _ time.Time) State {
		f.clearTimer()
		return StateTouch3Hold
	}
	table[StateTouch3][EventButton] = func(f *FSM, _ *Touch, _ time.Time) State { return StateDead }
	table[StateTouch3][EventPalm] = func(f *FSM, _ *Touch, _ time.Time) State { return StateTouch2 }

	// TOUCH_3_HOLD
	table[StateTouch3Hold][EventTouch] = func(f *FSM, _ *Touch, t time.Time) State {
		f.setTapTimer(t)
		return StateDead
	}
	table[StateTouch3Hold][EventMotion] = deadOnMotion(StateTouch3Hold)
	table[StateTouch3Hold][EventRelease] = func(f *FSM, _ *Touch, _ time.Time) State { return StateTouch2Hold }
	table[StateTouch3Hold][EventButton] = func(f *FSM, _ *Touch, _ time.Time) State { return StateDead }
	table[StateTouch3Hold][EventPalm] = func(f *FSM, _ *Touch, _ time.Time) State { return StateTouch2Hold }

	// DRAGGING_OR_DOUBLETAP
	table[StateDraggingOrDoubleTap][EventTouch] = func(f *FSM, _ *Touch, _ time.Time) State { return StateDragging2 }
	table[StateDraggingOrDoubleTap][EventMotion] = func(f *FSM, _ *Touch, _ time.Time) State { return StateDragging }
	table[StateDraggingOrDoubleTap][EventRelease] = func(f *FSM, _ *Touch, t time.Time) State {
		f.release(1, f.savedReleaseTime)
		f.press(1, f.savedPressTime)
		f.saveRelease(t)
		f.setTapTimer(t)
		return StateTapped
	}
	table[StateDraggingOrDoubleTap][EventTimeout] = func(f *FSM, _ *Touch, _ time.Time) State { return StateDragging }
	table[StateDraggingOrDoubleTap][EventButton] = func(f *FSM, _ *Touch, _ time.Time) State {
		f.release(1, f.savedReleaseTime)
		return StateDead
	}
	table[StateDraggingOrDoubleTap][EventPalm] = func(f *FSM, _ *Touch, _ time.Time) State { return StateTapped }

	// DRAGGING
	table[StateDragging][EventTouch] = func(f *FSM, _ *Touch, _ time.Time) State { return StateDragging2 }
	table[StateDragging][EventRelease] = draggingRelease // §4.1d
	table[StateDragging][EventButton] = func(f *FSM, _ *Touch, t time.Time) State {
		f.release(1, t)
		return StateDead
	}
	table[StateDragging][EventPalm] = func(f *FSM, _ *Touch, _ time.Time) State {
		f.release(1, f.savedReleaseTime)
		return StateIdle
	}

	// DRAGGING_WAIT
	table[StateDraggingWait][EventTouch] = func(f *FSM, _ *Touch, t time.Time) State {
		f.setTapTimer(t)
		return StateDraggingOrTap
	}
	table[StateDraggingWait][EventTimeout] = func(f *FSM, _ *Touch, t time.Time) State {
		f.release(1, t)
		return StateIdle
	}
	table[StateDraggingWait][EventButton] = func(f *FSM, _ *Touch, t time.Time) State {
		f.release(1, t)
		return StateDead
	}

	// DRAGGING_OR_TAP
	table[StateDraggingOrTap][EventTouch] = func(f *FSM, _ *Touch, _ time.Time) State {
		f.clearTimer()
		return StateDragging2
	}
	table[StateDraggingOrTap][EventMotion] = func(f *FSM, _ *Touch, _ time.Time) State { return StateDragging }
	table[StateDraggingOrTap][EventRelease] = func(f *FSM, _ *Touch, t time.Time) State {
		f.release(1, t)
		return StateIdle
	}
	table[StateDraggingOrTap][EventTimeout] = func(f *FSM, _ *Touch, _ time.Time) State { return StateDragging }
	table[StateDraggingOrTap][EventButton] = func(f *FSM, _ *Touch, t time.Time) State {
		f.release(1, t)
		return StateDead
	}
	table[StateDraggingOrTap][EventPalm] = func(f *FSM, _ *Touch, _ time.Time) State {
		f.release(1, f.savedReleaseTime)
		return StateIdle
	}

	// DRAGGING_2
	table[StateDragging2][EventTouch] = func(f *FSM, _ *Touch, t time.Time) State {
		f.release(1, t)
		return StateDead
	}
	table[StateDragging2][EventRelease] = func(f *FSM, _ *Touch, _ time.Time) State { return StateDragging }
	table[StateDragging2][EventButton] = func(f *FSM, _ *Touch, t time.Time) State {
		f.release(1, t)
		return StateDead
	}
	table[StateDragging2][EventPalm] = func(f *FSM, _ *Touch, _ time.Time) State { return StateDraggingOrDoubleTap }

	// DEAD
	table[StateDead][EventRelease] = deadSettle
	table[StateDead][EventPalm] = deadSettle
	table[StateDead][EventPalmUp] = deadSettle
}

// deadSettle implements the DEAD row's conditional return to IDLE once the
// raw finger count has drained to zero (spec §4.1 table, DEAD row).
func deadSettle(f *FSM, _ *Touch, _ time.Time) State {
	if f.nfingersDown == 0 {
		return StateIdle
	}
	return StateDead
}

// touchRelease implements §4.1a: TOUCH + RELEASE.
func touchRelease(f *FSM, _ *Touch, t time.Time) State {
	f.press(1, f.savedPressTime)
	if f.dragEnabled {
		f.saveRelease(t)
		f.setTapTimer(t)
		return StateTapped
	}
	f.release(1, t)
	return StateIdle
}

// touch2ReleasePalm implements §4.1b: TOUCH_2_RELEASE + PALM. The source
// reuses saved_press_time, which may belong to the palm's touch rather
// than the remaining finger's — preserved intentionally (spec §9 open
// question).
func touch2ReleasePalm(f *FSM, _ *Touch, t time.Time) State {
	f.press(1, f.savedPressTime)
	if f.dragEnabled {
		f.saveRelease(t)
		f.setTapTimer(t)
		return StateTapped
	}
	f.release(1, t)
	return StateIdle
}

// touch3Release implements §4.1c: TOUCH_3 + RELEASE.
func touch3Release(f *FSM, tt *Touch, t time.Time) State {
	if tt != nil && tt.TapState == TapTouch {
		f.press(3, f.savedPressTime)
		f.release(3, t)
	}
	return StateTouch2Hold
}

// draggingRelease implements §4.1d: DRAGGING + RELEASE.
func draggingRelease(f *FSM, _ *Touch, t time.Time) State {
	if f.dragLockEnabled {
		f.setDragTimer(t)
		return StateDraggingWait
	}
	f.release(1, t)
	return StateIdle
}
