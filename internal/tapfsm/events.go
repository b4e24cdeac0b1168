package tapfsm

// Event is one of the 8 event kinds the tap FSM consumes (spec §4.1).
type Event int

const (
	EventTouch Event = iota
	EventMotion
	EventRelease
	EventTimeout
	EventButton
	EventThumb
	EventPalm
	EventPalmUp

	numEvents
)

func (e Event) String() string {
	switch e {
	case EventTouch:
		return "TOUCH"
	case EventMotion:
		return "MOTION"
	case EventRelease:
		return "RELEASE"
	case EventTimeout:
		return "TIMEOUT"
	case EventButton:
		return "BUTTON"
	case EventThumb:
		return "THUMB"
	case EventPalm:
		return "PALM"
	case EventPalmUp:
		return "PALM_UP"
	default:
		return "UNKNOWN_EVENT"
	}
}
