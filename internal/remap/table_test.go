package remap

import (
	"testing"

	evdev "github.com/holoplot/go-evdev"
)

func TestDvorakTableSize(t *testing.T) {
	if got := len(Dvorak()); got != 33 {
		t.Fatalf("table has %d entries, want 33", got)
	}
}

func TestDvorakSpotChecks(t *testing.T) {
	checks := []struct {
		from, to evdev.EvCode
	}{
		{evdev.KEY_S, evdev.KEY_O},
		{evdev.KEY_Q, evdev.KEY_APOSTROPHE},
		{evdev.KEY_MINUS, evdev.KEY_LEFTBRACE},
		{evdev.KEY_SLASH, evdev.KEY_Z},
		{evdev.KEY_RIGHTBRACE, evdev.KEY_EQUAL},
	}
	table := Dvorak()
	for _, c := range checks {
		if got := table[c.from]; got != c.to {
			t.Errorf("table[%s] = %s, want %s",
				evdev.CodeName(evdev.EV_KEY, c.from),
				evdev.CodeName(evdev.EV_KEY, got),
				evdev.CodeName(evdev.EV_KEY, c.to))
		}
	}
}

// Keys that coincide in both layouts must not carry an entry: absence is how
// identity mapping is expressed.
func TestDvorakIdentityKeysAbsent(t *testing.T) {
	table := Dvorak()
	for _, code := range []evdev.EvCode{evdev.KEY_A, evdev.KEY_M, evdev.KEY_1, evdev.KEY_SPACE, evdev.KEY_ENTER} {
		if to, ok := table[code]; ok {
			t.Errorf("unexpected entry for %s -> %s",
				evdev.CodeName(evdev.EV_KEY, code),
				evdev.CodeName(evdev.EV_KEY, to))
		}
	}
}

func TestDvorakNoModifierEntries(t *testing.T) {
	for from, to := range Dvorak() {
		if IsModifier(from) || IsModifier(to) {
			t.Errorf("modifier key appears in table: %s -> %s",
				evdev.CodeName(evdev.EV_KEY, from),
				evdev.CodeName(evdev.EV_KEY, to))
		}
	}
}
