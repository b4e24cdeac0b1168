// Package device adapts a Linux evdev multitouch touchpad (and a uinput
// virtual pointer) to the narrow interfaces internal/frame and
// internal/tapfsm consume. Device I/O, palm/thumb detection heuristics,
// and the click-pad physical button are explicitly out of scope for the
// FSM itself (spec §1) — this package is where those external
// collaborators live, generalized from the teacher driver's single-file
// evdev read loop.
package device

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unsafe"

	evdev "github.com/gvalkov/golang-evdev"

	"touchpad/internal/frame"
	"touchpad/internal/tapfsm"
)

const (
	// PalmPressureThreshold and PalmZoneTopY reuse the teacher driver's
	// own palm-rejection tuning (main.go PalmPressureThreshold,
	// PalmZoneTopY), generalized into the palm-tap pre-classifier and
	// the per-frame palm detector. Both are compared against raw
	// ABS_MT_PRESSURE/ABS_MT_POSITION_Y values, same as the teacher, not
	// against the millimeter-scaled tapfsm.Point coordinates.
	PalmPressureThreshold = 45
	PalmZoneTopY          = 500

	// ThumbPressureMax and ThumbZoneBottomY are a symmetric heuristic for
	// the thumb classifiers: thumbs land low on the pad with light,
	// broad pressure. Also raw device units, not millimeters.
	ThumbPressureMax = 20
	ThumbZoneBottomY = 2600

	defaultResolution = 40 // device units per millimeter, if EVIOCGABS's resolution field is unset
)

type slot struct {
	x, y, p   int32
	live      bool
	beginning bool
	ending    bool
}

// TouchDevice reads one multitouch touchpad via evdev and answers the
// frame.Device queries the driver needs.
type TouchDevice struct {
	dev *evdev.InputDevice

	slots      map[int]*slot
	activeSlot int
	dirty      map[int]bool

	fingerCount     int
	prevFingerCount int
	buttonQueued    bool

	numSlots        int
	isClickPad      bool
	semiMT          bool
	synapticsSerial bool
	hasLeftButton   bool
	xRes, yRes      int32

	lastFrames []frame.TouchFrame
}

// Open opens and grabs the device node at path, as the teacher's main()
// does with evdev.Open + Grab.
func Open(path string) (*TouchDevice, error) {
	dev, err := evdev.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open touch device %s: %w", path, err)
	}
	if err := dev.Grab(); err != nil {
		dev.Release()
		return nil, fmt.Errorf("grab touch device %s: %w", path, err)
	}

	td := &TouchDevice{
		dev:   dev,
		slots: make(map[int]*slot),
		dirty: make(map[int]bool),
	}
	td.probeCapabilities()
	return td, nil
}

// Find locates a device whose name contains keyword, mirroring the
// teacher's findDevice. When mustContain is set, a device whose name also
// contains it is preferred; otherwise the first keyword match is returned.
func Find(keyword, mustContain string) (string, error) {
	devices, err := evdev.ListInputDevices()
	if err != nil {
		return "", fmt.Errorf("list input devices: %w", err)
	}
	var fallback string
	for _, d := range devices {
		name := strings.ToLower(d.Name)
		if !strings.Contains(name, strings.ToLower(keyword)) {
			continue
		}
		if mustContain == "" || strings.Contains(name, strings.ToLower(mustContain)) {
			return d.Fn, nil
		}
		if fallback == "" {
			fallback = d.Fn
		}
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", fmt.Errorf("no touch device matching %q found", keyword)
}

// Close releases the grab and closes the device node.
func (t *TouchDevice) Close() {
	t.dev.Release()
}

func (t *TouchDevice) probeCapabilities() {
	fd := t.dev.File.Fd()

	var propBuf [1]byte
	if readIoctl(fd, evIOCGProp(1), propBuf[:]) {
		t.isClickPad = propBuf[0]&(1<<inputPropButtonpad) != 0
		t.semiMT = propBuf[0]&(1<<inputPropSemiMT) != 0
	}

	var slotInfo absInfo
	if readAbsInfo(fd, absMTSlot, &slotInfo) {
		t.numSlots = int(slotInfo.Maximum) + 1
	}
	t.synapticsSerial = t.numSlots == 0 && strings.Contains(strings.ToLower(t.dev.Name), "synaptics")

	var xInfo, yInfo absInfo
	t.xRes, t.yRes = defaultResolution, defaultResolution
	if readAbsInfo(fd, uintptr(evdev.ABS_MT_POSITION_X), &xInfo) && xInfo.Resolution > 0 {
		t.xRes = xInfo.Resolution
	}
	if readAbsInfo(fd, uintptr(evdev.ABS_MT_POSITION_Y), &yInfo) && yInfo.Resolution > 0 {
		t.yRes = yInfo.Resolution
	}

	var keyBuf [96]byte
	if readIoctl(fd, evIOCGBit(uintptr(evdev.EV_KEY), uintptr(len(keyBuf))), keyBuf[:]) {
		t.hasLeftButton = hasBit(keyBuf[:], uint(evdev.BTN_LEFT))
	}
}

func readIoctl(fd uintptr, req uintptr, buf []byte) bool {
	return ioctl(fd, req, uintptr(unsafe.Pointer(&buf[0]))) == nil
}

func readAbsInfo(fd uintptr, code uintptr, info *absInfo) bool {
	return ioctl(fd, evIOCGAbs(code), uintptr(unsafe.Pointer(info))) == nil
}

func hasBit(buf []byte, bit uint) bool {
	idx := bit / 8
	if int(idx) >= len(buf) {
		return false
	}
	return buf[idx]&(1<<(bit%8)) != 0
}

// slotFor returns (creating if necessary) the tracked slot state.
func (t *TouchDevice) slotFor(index int) *slot {
	s, ok := t.slots[index]
	if !ok {
		s = &slot{}
		t.slots[index] = s
	}
	return s
}

func (t *TouchDevice) resetFrameFlags() {
	for k := range t.dirty {
		delete(t.dirty, k)
	}
	for _, s := range t.slots {
		s.beginning = false
		s.ending = false
	}
	t.prevFingerCount = t.fingerCount
	t.buttonQueued = false
}

// ReadFrame blocks until one SYN_REPORT boundary has been processed and
// returns the resulting touch frames for the frame driver.
func (t *TouchDevice) ReadFrame() ([]frame.TouchFrame, error) {
	t.resetFrameFlags()

	for {
		events, err := t.dev.Read()
		if err != nil {
			return nil, fmt.Errorf("read touch device: %w", err)
		}
		for _, ev := range events {
			switch ev.Type {
			case evdev.EV_ABS:
				t.handleAbs(ev)
			case evdev.EV_KEY:
				t.handleKey(ev)
			case evdev.EV_SYN:
				if ev.Code == evdev.SYN_REPORT {
					t.lastFrames = t.buildFrames()
					return t.lastFrames, nil
				}
			}
		}
	}
}

func (t *TouchDevice) handleAbs(ev evdev.InputEvent) {
	if ev.Code == evdev.ABS_MT_SLOT {
		t.activeSlot = int(ev.Value)
	}
	s := t.slotFor(t.activeSlot)

	switch ev.Code {
	case evdev.ABS_MT_POSITION_X:
		s.x = ev.Value
		t.dirty[t.activeSlot] = true
	case evdev.ABS_MT_POSITION_Y:
		s.y = ev.Value
		t.dirty[t.activeSlot] = true
	case evdev.ABS_MT_PRESSURE:
		s.p = ev.Value
	case evdev.ABS_MT_TRACKING_ID:
		t.dirty[t.activeSlot] = true
		if ev.Value == -1 {
			s.ending = true
		} else if !s.live {
			s.beginning = true
			s.live = true
		}
	}
}

func (t *TouchDevice) handleKey(ev evdev.InputEvent) {
	switch ev.Code {
	case evdev.BTN_TOOL_FINGER:
		t.fingerCount = setCount(t.fingerCount, 1, ev.Value)
	case evdev.BTN_TOOL_DOUBLETAP:
		t.fingerCount = setCount(t.fingerCount, 2, ev.Value)
	case evdev.BTN_TOOL_TRIPLETAP:
		t.fingerCount = setCount(t.fingerCount, 3, ev.Value)
	case evdev.BTN_LEFT:
		if ev.Value == 1 {
			t.buttonQueued = true
		}
	}
}

func setCount(current, n int, value int32) int {
	if value == 1 {
		return n
	}
	if current == n {
		return 0
	}
	return current
}

func (t *TouchDevice) buildFrames() []frame.TouchFrame {
	frames := make([]frame.TouchFrame, 0, len(t.dirty))
	for index := range t.dirty {
		s := t.slots[index]
		tf := frame.TouchFrame{
			Index:   index,
			Point:   t.toPoint(s),
			Dirty:   true,
			WasDown: s.live,
			IsPalm:  s.p > PalmPressureThreshold && s.y < PalmZoneTopY,
		}
		switch {
		case s.ending:
			tf.RawState = frame.RawEnd
			s.live = false
			delete(t.slots, index)
		case s.beginning:
			tf.RawState = frame.RawBegin
		case s.p == 0:
			tf.RawState = frame.RawHovering
		default:
			tf.RawState = frame.RawUpdate
		}
		frames = append(frames, tf)
	}
	sort.Slice(frames, func(i, j int) bool { return frames[i].Index < frames[j].Index })
	return frames
}

func (t *TouchDevice) toPoint(s *slot) tapfsm.Point {
	return tapfsm.Point{X: float64(s.x) / float64(t.xRes), Y: float64(s.y) / float64(t.yRes)}
}

// --- frame.Device ---

// Touches satisfies frame.Device by returning the frame most recently
// built by ReadFrame, which the driver calls once per SYN_REPORT.
func (t *TouchDevice) Touches() []frame.TouchFrame { return t.lastFrames }

func (t *TouchDevice) Distance(current, initial tapfsm.Point) float64 {
	dx := current.X - initial.X
	dy := current.Y - initial.Y
	return math.Sqrt(dx*dx + dy*dy)
}

func (t *TouchDevice) IgnoredForTap(index int) bool {
	s, ok := t.slots[index]
	if !ok {
		return false
	}
	return s.y > ThumbZoneBottomY && s.p < ThumbPressureMax
}

func (t *TouchDevice) ThumbInProgress(index int) bool {
	return t.IgnoredForTap(index)
}

func (t *TouchDevice) PalmTapIsPalm(index int) bool {
	s, ok := t.slots[index]
	if !ok {
		return false
	}
	return s.p > PalmPressureThreshold && s.y < PalmZoneTopY
}

func (t *TouchDevice) IsClickPad() bool { return t.isClickPad }

func (t *TouchDevice) ButtonPressQueued() bool { return t.buttonQueued }

func (t *TouchDevice) NumSlots() int { return t.numSlots }

func (t *TouchDevice) RawFingerCount() int { return t.fingerCount }

func (t *TouchDevice) SemiMT() bool { return t.semiMT }

func (t *TouchDevice) FingerCountChanged() bool { return t.fingerCount != t.prevFingerCount }

func (t *TouchDevice) SynapticsSerial() bool { return t.synapticsSerial }

// HasLeftButton reports has_key(LEFT): whether the device declares a
// physical left button, used to pick the default tap-enabled value (spec
// §4.4).
func (t *TouchDevice) HasLeftButton() bool { return t.hasLeftButton }
