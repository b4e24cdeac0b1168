package tapfsm

import "time"

// ButtonCode identifies a synthetic pointer button (spec §6.3).
type ButtonCode int

const (
	ButtonLeft ButtonCode = iota
	ButtonRight
	ButtonMiddle
)

func (b ButtonCode) String() string {
	switch b {
	case ButtonLeft:
		return "LEFT"
	case ButtonRight:
		return "RIGHT"
	case ButtonMiddle:
		return "MIDDLE"
	default:
		return "UNKNOWN_BUTTON"
	}
}

// ButtonMap maps n-finger slot index (1, 2, 3) to a button code. Index 0 is
// unused; slots 1..3 are populated so Map[n] reads naturally for n-finger
// taps (spec §6.3).
type ButtonMap [4]ButtonCode

// MapLRM is the {1:L, 2:R, 3:M} button map.
var MapLRM = ButtonMap{1: ButtonLeft, 2: ButtonRight, 3: ButtonMiddle}

// MapLMR is the {1:L, 2:M, 3:R} button map.
var MapLMR = ButtonMap{1: ButtonLeft, 2: ButtonMiddle, 3: ButtonRight}

// EventSink receives synthetic pointer-button press/release events (spec
// §6.2 Event sink, §6.3).
type EventSink interface {
	NotifyButton(t time.Time, code ButtonCode, pressed bool)
}

// NopSink discards every event. Useful for tests that only assert FSM
// state transitions.
type NopSink struct{}

// NotifyButton implements EventSink.
func (NopSink) NotifyButton(time.Time, ButtonCode, bool) {}

// RecordingSink captures every emission in order, for assertions in tests.
type RecordingSink struct {
	Events []ButtonEvent
}

// ButtonEvent is one recorded emission.
type ButtonEvent struct {
	Time    time.Time
	Code    ButtonCode
	Pressed bool
}

// NotifyButton implements EventSink.
func (r *RecordingSink) NotifyButton(t time.Time, code ButtonCode, pressed bool) {
	r.Events = append(r.Events, ButtonEvent{Time: t, Code: code, Pressed: pressed})
}
