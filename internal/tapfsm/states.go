package tapfsm

// State is one of the 15 FSM states (spec §4.1).
type State int

const (
	StateIdle State = iota
	StateTouch
	StateHold
	StateTapped
	StateTouch2
	StateTouch2Hold
	StateTouch2Release
	StateTouch3
	StateTouch3Hold
	StateDragging
	StateDraggingWait
	StateDraggingOrDoubleTap
	StateDraggingOrTap
	StateDragging2
	StateDead

	numStates
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateTouch:
		return "TOUCH"
	case StateHold:
		return "HOLD"
	case StateTapped:
		return "TAPPED"
	case StateTouch2:
		return "TOUCH_2"
	case StateTouch2Hold:
		return "TOUCH_2_HOLD"
	case StateTouch2Release:
		return "TOUCH_2_RELEASE"
	case StateTouch3:
		return "TOUCH_3"
	case StateTouch3Hold:
		return "TOUCH_3_HOLD"
	case StateDragging:
		return "DRAGGING"
	case StateDraggingWait:
		return "DRAGGING_WAIT"
	case StateDraggingOrDoubleTap:
		return "DRAGGING_OR_DOUBLETAP"
	case StateDraggingOrTap:
		return "DRAGGING_OR_TAP"
	case StateDragging2:
		return "DRAGGING_2"
	case StateDead:
		return "DEAD"
	default:
		return "UNKNOWN_STATE"
	}
}

// FilterMotion reports whether the frame driver should suppress pointer
// motion while this state is active (spec §4.2 step 4).
func (s State) FilterMotion() bool {
	switch s {
	case StateTouch, StateTapped, StateDraggingOrDoubleTap, StateDraggingOrTap, StateTouch2, StateTouch3:
		return true
	default:
		return false
	}
}

// Dragging reports whether the FSM is in a drag-related state (spec §6.1).
func (s State) Dragging() bool {
	switch s {
	case StateDragging, StateDragging2, StateDraggingWait, StateDraggingOrTap:
		return true
	default:
		return false
	}
}
