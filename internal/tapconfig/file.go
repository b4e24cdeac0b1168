// Package tapconfig loads the persisted tap/drag/button-map configuration
// of spec §4.4 from a TOML file and can re-apply it to a running FSM when
// the file changes on disk.
package tapconfig

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"touchpad/internal/tapfsm"
)

// File mirrors the on-disk configuration. Every field is a pointer so a
// partial file only overrides the settings it mentions; defaults come
// from the spec's own default rules (spec §4.4), not from zero values.
type File struct {
	TapEnabled      *bool   `toml:"tap_enabled"`
	ButtonMap       *string `toml:"button_map"` // "lrm" or "lmr"
	DragEnabled     *bool   `toml:"drag_enabled"`
	DragLockEnabled *bool   `toml:"drag_lock_enabled"`
}

// Load parses path as TOML.
func Load(path string) (File, error) {
	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return File{}, fmt.Errorf("load tap config %s: %w", path, err)
	}
	return f, nil
}

// buttonMap resolves the button-map name to a tapfsm.ButtonMap, defaulting
// to the spec's {L, R, M} (spec §4.4, §6.3).
func (f File) buttonMap() tapfsm.ButtonMap {
	if f.ButtonMap == nil {
		return tapfsm.DefaultMap()
	}
	switch strings.ToLower(*f.ButtonMap) {
	case "lmr":
		return tapfsm.MapLMR
	default:
		return tapfsm.MapLRM
	}
}

// Apply re-applies every configured setting to fsm through its normal
// setters (spec §4.4) — never by poking FSM fields directly, so the
// deferred-map-switch and suspend/resume invariants still hold.
func (f File) Apply(fsm *tapfsm.FSM, now time.Time) {
	if f.TapEnabled != nil {
		fsm.SetTapEnabled(now, *f.TapEnabled)
	}
	if f.ButtonMap != nil {
		fsm.SetMap(f.buttonMap())
	}
	if f.DragEnabled != nil {
		fsm.SetDragEnabled(*f.DragEnabled)
	}
	if f.DragLockEnabled != nil {
		fsm.SetDragLockEnabled(*f.DragLockEnabled)
	}
}
