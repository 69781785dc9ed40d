package remap

import (
	evdev "github.com/holoplot/go-evdev"
)

// Table maps a physical key position to the key whose Dvorak legend sits at
// that position. Keys without an entry (letters that coincide, modifiers,
// function and navigation keys) are never remapped.
type Table map[evdev.EvCode]evdev.EvCode

// Dvorak returns the QWERTY position to Dvorak mapping. The table is built
// once and must not be mutated by callers.
func Dvorak() Table {
	return dvorak
}

var dvorak = Table{
	evdev.KEY_MINUS:      evdev.KEY_LEFTBRACE,
	evdev.KEY_EQUAL:      evdev.KEY_RIGHTBRACE,
	evdev.KEY_Q:          evdev.KEY_APOSTROPHE,
	evdev.KEY_W:          evdev.KEY_COMMA,
	evdev.KEY_E:          evdev.KEY_DOT,
	evdev.KEY_R:          evdev.KEY_P,
	evdev.KEY_T:          evdev.KEY_Y,
	evdev.KEY_Y:          evdev.KEY_F,
	evdev.KEY_U:          evdev.KEY_G,
	evdev.KEY_I:          evdev.KEY_C,
	evdev.KEY_O:          evdev.KEY_R,
	evdev.KEY_P:          evdev.KEY_L,
	evdev.KEY_LEFTBRACE:  evdev.KEY_SLASH,
	evdev.KEY_RIGHTBRACE: evdev.KEY_EQUAL,
	evdev.KEY_S:          evdev.KEY_O,
	evdev.KEY_D:          evdev.KEY_E,
	evdev.KEY_F:          evdev.KEY_U,
	evdev.KEY_G:          evdev.KEY_I,
	evdev.KEY_H:          evdev.KEY_D,
	evdev.KEY_J:          evdev.KEY_H,
	evdev.KEY_K:          evdev.KEY_T,
	evdev.KEY_L:          evdev.KEY_N,
	evdev.KEY_SEMICOLON:  evdev.KEY_S,
	evdev.KEY_APOSTROPHE: evdev.KEY_MINUS,
	evdev.KEY_Z:          evdev.KEY_SEMICOLON,
	evdev.KEY_X:          evdev.KEY_Q,
	evdev.KEY_C:          evdev.KEY_J,
	evdev.KEY_V:          evdev.KEY_K,
	evdev.KEY_B:          evdev.KEY_X,
	evdev.KEY_N:          evdev.KEY_B,
	evdev.KEY_COMMA:      evdev.KEY_W,
	evdev.KEY_DOT:        evdev.KEY_V,
	evdev.KEY_SLASH:      evdev.KEY_Z,
}
