// Package frame implements the per-input-frame driver (spec §4.2): it
// inspects every touch's raw state, palm/thumb classifications, and
// motion, and synthesizes the FSM events in the exact order the spec
// requires. Device I/O, palm/thumb detection heuristics, and physical
// distance computation are all external collaborators reached through
// the Device interface (spec §1 "out of scope", §6.2).
package frame

import (
	"time"

	"touchpad/internal/tapfsm"
)

// RawState is a touch's raw per-frame state (spec §4.2).
type RawState int

const (
	RawNone RawState = iota
	RawBegin
	RawUpdate
	RawEnd
	RawHovering
)

// TouchFrame is one touch's snapshot for the current frame.
type TouchFrame struct {
	Index    int
	RawState RawState
	Point    tapfsm.Point
	WasDown  bool
	Dirty    bool
	// IsPalm is this frame's reading from the external palm detector
	// (spec §6.2 "palm.state != NONE"), independent of any previous latch.
	IsPalm bool
}

// Device is every external collaborator the frame driver consults (spec
// §6.2): the touch iterator, the physical-distance helper, palm/thumb
// classifiers, and device queries.
type Device interface {
	// Touches returns this frame's touches in stable index order.
	Touches() []TouchFrame
	// Distance is the physical-distance helper (mm_delta): Euclidean
	// millimeters between current and initial position.
	Distance(current, initial tapfsm.Point) float64
	// IgnoredForTap is the thumb pre-classifier consulted at BEGIN.
	IgnoredForTap(index int) bool
	// ThumbInProgress is the thumb classifier consulted after admission.
	ThumbInProgress(index int) bool
	// PalmTapIsPalm is the palm-tap pre-classifier consulted at BEGIN.
	PalmTapIsPalm(index int) bool

	IsClickPad() bool
	ButtonPressQueued() bool
	NumSlots() int
	RawFingerCount() int
	SemiMT() bool
	// FingerCountChanged reports whether the raw finger count changed
	// this frame relative to the previous one (semi-MT quirk, §4.2a).
	FingerCountChanged() bool
	SynapticsSerial() bool
}

// Driver runs the frame algorithm against one FSM and Device.
type Driver struct {
	fsm *tapfsm.FSM
	dev Device
}

// New returns a Driver wired to fsm and dev.
func New(fsm *tapfsm.FSM, dev Device) *Driver {
	return &Driver{fsm: fsm, dev: dev}
}

// HandleState runs spec §4.2's algorithm once and returns filter_motion:
// whether the surrounding pointer code should suppress pointer motion
// while a tap decision is pending.
func (d *Driver) HandleState(now time.Time) bool {
	if !d.fsm.Active() {
		return false
	}

	if d.dev.IsClickPad() && d.dev.ButtonPressQueued() {
		d.fsm.Step(tapfsm.EventButton, -1, now)
	}

	for _, tf := range d.dev.Touches() {
		if !tf.Dirty || tf.RawState == RawNone {
			continue
		}
		d.handleTouch(tf, now)
	}

	return d.fsm.State().FilterMotion()
}

func (d *Driver) handleTouch(tf TouchFrame, now time.Time) {
	if tf.RawState == RawBegin {
		// A new touch on a recycled index starts without the previous
		// touch's thumb/palm latches.
		d.fsm.ForgetTouch(tf.Index)
	}
	touch := d.fsm.TouchByIndex(tf.Index)

	if d.dev.IsClickPad() && d.dev.ButtonPressQueued() {
		touch.TapState = tapfsm.TapDead
	}

	if touch.IsThumb {
		return
	}

	if touch.IsPalm {
		if tf.RawState == RawEnd {
			d.fsm.Step(tapfsm.EventPalmUp, tf.Index, now)
		}
		return
	}

	if tf.RawState == RawHovering {
		return
	}

	switch {
	case tf.IsPalm:
		touch.IsPalm = true
		touch.TapState = tapfsm.TapDead
		d.fsm.Step(tapfsm.EventPalm, tf.Index, now)
		if tf.RawState != RawBegin {
			d.fsm.DecFingersDown()
		}

	case tf.RawState == RawBegin:
		if d.dev.IgnoredForTap(tf.Index) {
			touch.IsThumb = true
			return
		}
		touch.TapState = tapfsm.TapTouch
		touch.Initial = tf.Point
		d.fsm.IncFingersDown()
		d.fsm.Step(tapfsm.EventTouch, tf.Index, now)
		if d.dev.PalmTapIsPalm(tf.Index) {
			d.fsm.Step(tapfsm.EventMotion, tf.Index, now)
		}

	case tf.RawState == RawEnd:
		if tf.WasDown {
			d.fsm.DecFingersDown()
			d.fsm.Step(tapfsm.EventRelease, tf.Index, now)
		}
		touch.TapState = tapfsm.TapIdle

	case d.fsm.State() != tapfsm.StateIdle && d.dev.ThumbInProgress(tf.Index):
		d.fsm.Step(tapfsm.EventThumb, tf.Index, now)

	case d.fsm.State() != tapfsm.StateIdle && d.exceedsMotionThreshold(tf, touch):
		d.fsm.MarkAllLiveTouchesDead()
		d.fsm.Step(tapfsm.EventMotion, tf.Index, now)
	}
}

// exceedsMotionThreshold implements §4.2a: the motion-threshold gate, with
// its two device-quirk suppressions.
func (d *Driver) exceedsMotionThreshold(tf TouchFrame, touch *tapfsm.Touch) bool {
	if d.dev.SynapticsSerial() && d.dev.RawFingerCount() > d.dev.NumSlots() && d.dev.RawFingerCount() > 2 {
		return false
	}
	if d.dev.SemiMT() && d.dev.FingerCountChanged() {
		return false
	}
	return d.dev.Distance(tf.Point, touch.Initial) > tapfsm.MotionThreshold
}
