// Package remap holds the pure remapping core: the QWERTY to Dvorak table,
// the modifier tracker and the per-event translation decision.
package remap

import (
	evdev "github.com/holoplot/go-evdev"
)

// Translator decides, per incoming event, whether to substitute the Dvorak
// key code or pass the event through unchanged.
type Translator struct {
	table Table
}

func NewTranslator(table Table) *Translator {
	return &Translator{table: table}
}

// Translate returns the event to emit for ev. The modifier set must already
// reflect ev (Observe runs first), so a modifier's own press and release pass
// through via the IsModifier check, and every key struck while a modifier is
// held passes through via AnyHeld.
//
// Non-key events (synchronization markers, scan codes, anything unrecognized)
// are forwarded untouched to keep the output stream structurally valid.
func (t *Translator) Translate(ev *evdev.InputEvent, mods *Modifiers, enabled bool) *evdev.InputEvent {
	if ev.Type != evdev.EV_KEY {
		return ev
	}
	if !enabled || IsModifier(ev.Code) || mods.AnyHeld() {
		return ev
	}
	mapped, ok := t.table[ev.Code]
	if !ok {
		return ev
	}
	out := *ev
	out.Code = mapped
	return &out
}
