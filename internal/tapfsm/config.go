package tapfsm

import "time"

// Configuration & lifecycle operations (spec §4.4, §6.1).

// PostProcessState performs the deferred button-map swap if one is
// pending and the FSM has settled in IDLE. Call once per frame, after
// Step has processed every event the frame driver injected (spec §6.1
// post_process_state).
func (f *FSM) PostProcessState() {
	if f.state == StateIdle {
		f.applyPendingMap()
	}
}

// TapEnabled reports whether tapping is administratively enabled (not the
// same as Active, which also accounts for suspension).
func (f *FSM) TapEnabled() bool { return f.enabled }

// SetTapEnabled enables or disables tapping (spec §4.4). Disabling
// triggers ReleaseAll so no synthetic button is left stuck; enabling marks
// in-flight touches palm+dead and resets to IDLE.
func (f *FSM) SetTapEnabled(now time.Time, enabled bool) {
	if f.enabled == enabled {
		return
	}
	wasActive := f.Active()
	f.enabled = enabled
	if wasActive != f.Active() {
		f.resetForEnableTransition(now)
	}
}

// DefaultTapEnabled implements spec §4.4's default rule: enabled unless
// the device already has a physical left button.
func DefaultTapEnabled(hasPhysicalLeftButton bool) bool { return !hasPhysicalLeftButton }

// Map returns the currently active button map.
func (f *FSM) Map() ButtonMap { return f.activeMap }

// SetMap records the desired map and applies it immediately if the FSM is
// idle; otherwise the swap is deferred to the next time the FSM reaches
// IDLE (spec I4, §4.4).
func (f *FSM) SetMap(m ButtonMap) {
	f.wantMap = m
	f.mapSet = true
	if f.state == StateIdle {
		f.applyPendingMap()
	}
}

// DefaultMap is the spec's default button map, {1:L, 2:R, 3:M}.
func DefaultMap() ButtonMap { return MapLRM }

// DragEnabled reports whether tap-and-drag is enabled.
func (f *FSM) DragEnabled() bool { return f.dragEnabled }

// SetDragEnabled toggles tap-and-drag; takes effect immediately (spec
// §4.4), i.e. on the very next tap decision, including one for a gesture
// already in progress.
func (f *FSM) SetDragEnabled(enabled bool) { f.dragEnabled = enabled }

// DefaultDragEnabled is the spec's default: drag enabled.
func DefaultDragEnabled() bool { return true }

// DragLockEnabled reports whether tap-and-drag-lock is enabled.
func (f *FSM) DragLockEnabled() bool { return f.dragLockEnabled }

// SetDragLockEnabled toggles drag lock; takes effect immediately.
func (f *FSM) SetDragLockEnabled(enabled bool) { f.dragLockEnabled = enabled }

// DefaultDragLockEnabled is the spec's default: drag lock disabled.
func DefaultDragLockEnabled() bool { return false }

// Suspended reports whether the FSM is currently suspended.
func (f *FSM) Suspended() bool { return f.suspended }

// Suspend suspends tapping without touching the user's enabled preference
// (spec §4.4: "suspend() = enabled-update with suspended=true,
// enabled=current").
func (f *FSM) Suspend(now time.Time) {
	if f.suspended {
		return
	}
	wasActive := f.Active()
	f.suspended = true
	if wasActive != f.Active() {
		f.resetForEnableTransition(now)
	}
}

// Resume is the inverse of Suspend.
func (f *FSM) Resume(now time.Time) {
	if !f.suspended {
		return
	}
	wasActive := f.Active()
	f.suspended = false
	if wasActive != f.Active() {
		f.resetForEnableTransition(now)
	}
}

// resetForEnableTransition implements the enable<->disable rules of spec
// §4.4: any active->inactive edge does a full ReleaseAll; any
// inactive->active edge marks in-flight touches palm+dead and resets,
// since the host has no idea which touches were already in flight.
func (f *FSM) resetForEnableTransition(now time.Time) {
	if f.Active() {
		// disabled -> enabled
		f.markAllTouchesPalmDead()
		f.resetToIdle()
		return
	}
	// enabled -> disabled
	f.ReleaseAll(now)
}

// ReleaseAll force-releases every synthetic button still held, marks every
// live touch palm+dead, and resets the FSM to IDLE (spec §4.4).
func (f *FSM) ReleaseAll(now time.Time) {
	for n := 1; n <= 3; n++ {
		bit := uint8(1) << uint(n-1)
		if f.buttonsPressed&bit != 0 {
			f.release(n, now)
		}
	}
	f.markAllTouchesPalmDead()
	f.resetToIdle()
}

func (f *FSM) markAllTouchesPalmDead() {
	for _, tt := range f.touch.byIndex {
		if tt.TapState != TapDead {
			tt.IsPalm = true
			tt.TapState = TapDead
		}
	}
}

func (f *FSM) resetToIdle() {
	f.state = StateIdle
	f.nfingersDown = 0
	f.timer.Cancel()
	f.applyPendingMap()
}

// Dragging reports whether the FSM is currently in a drag-related state
// (spec §6.1).
func (f *FSM) Dragging() bool { return f.state.Dragging() }

// Count reports min(num_touches, 3): the machine is specified only up to
// three fingers (spec §4.4).
func Count(numTouches int) int {
	if numTouches > 3 {
		return 3
	}
	if numTouches < 0 {
		return 0
	}
	return numTouches
}

// IncFingersDown and DecFingersDown let the frame driver maintain
// nfingers_down per spec I1/I2; they are exported because the frame
// driver, not the FSM's own transition table, owns most of the
// bookkeeping (spec §4.2 steps f and h).
func (f *FSM) IncFingersDown() { f.nfingersDown++ }

func (f *FSM) DecFingersDown() {
	if f.nfingersDown <= 0 {
		f.log.Warn("tapfsm: nfingers_down underflow")
		return
	}
	f.nfingersDown--
}
