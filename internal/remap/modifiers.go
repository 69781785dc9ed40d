package remap

import (
	evdev "github.com/holoplot/go-evdev"
)

// The modifiers that suspend remapping while held. Shortcuts bound to these
// keep their QWERTY positions.
var modifierKeys = map[evdev.EvCode]struct{}{
	evdev.KEY_LEFTCTRL:  {},
	evdev.KEY_RIGHTCTRL: {},
	evdev.KEY_LEFTALT:   {},
	evdev.KEY_RIGHTALT:  {},
	evdev.KEY_LEFTMETA:  {},
	evdev.KEY_RIGHTMETA: {},
}

// IsModifier reports whether code is one of the tracked modifier keys.
func IsModifier(code evdev.EvCode) bool {
	_, ok := modifierKeys[code]
	return ok
}

// Modifiers tracks which modifier keys are currently held, as observed from
// the raw event stream. A key is in the set iff its last observed transition
// was a press (or autorepeat); no reordering or coalescing is done.
type Modifiers struct {
	held map[evdev.EvCode]struct{}
}

func NewModifiers() *Modifiers {
	return &Modifiers{held: make(map[evdev.EvCode]struct{}, len(modifierKeys))}
}

// Observe updates the set from a single event. Non-key events and key events
// for untracked codes are ignored.
func (m *Modifiers) Observe(ev *evdev.InputEvent) {
	if ev.Type != evdev.EV_KEY || !IsModifier(ev.Code) {
		return
	}
	if ev.Value != 0 {
		m.held[ev.Code] = struct{}{}
	} else {
		delete(m.held, ev.Code)
	}
}

// AnyHeld reports whether at least one tracked modifier is currently down.
func (m *Modifiers) AnyHeld() bool {
	return len(m.held) > 0
}
