package device

import (
	"fmt"
	"time"

	"github.com/bendahl/uinput"

	"touchpad/internal/tapfsm"
)

// Pointer is the synthetic-button event sink (spec §6.2 Event sink,
// §6.3). It replaces the teacher driver's hand-rolled
// createVirtualDevice/writeEvent/syn trio with the uinput library's
// mouse device, keeping the same responsibility: post BTN_LEFT/RIGHT/
// MIDDLE key events to the kernel via /dev/uinput.
type Pointer struct {
	mouse uinput.Mouse
}

// NewPointer creates a virtual uinput mouse advertised under name.
func NewPointer(name string) (*Pointer, error) {
	mouse, err := uinput.CreateMouse("/dev/uinput", []byte(name))
	if err != nil {
		return nil, fmt.Errorf("create virtual pointer: %w", err)
	}
	return &Pointer{mouse: mouse}, nil
}

// Close tears down the virtual device.
func (p *Pointer) Close() error {
	return p.mouse.Close()
}

// NotifyButton implements tapfsm.EventSink. The FSM calls this with
// timestamps that may be in the past (the moment a finger actually landed
// or lifted) — uinput has no timestamp parameter, so the ordering of
// calls, not the ts argument, is what downstream input consumers observe.
func (p *Pointer) NotifyButton(_ time.Time, code tapfsm.ButtonCode, pressed bool) {
	switch code {
	case tapfsm.ButtonLeft:
		if pressed {
			p.mouse.LeftPress()
		} else {
			p.mouse.LeftRelease()
		}
	case tapfsm.ButtonRight:
		if pressed {
			p.mouse.RightPress()
		} else {
			p.mouse.RightRelease()
		}
	case tapfsm.ButtonMiddle:
		if pressed {
			p.mouse.MiddlePress()
		} else {
			p.mouse.MiddleRelease()
		}
	}
}
