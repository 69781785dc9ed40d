package device

import (
	"fmt"

	evdev "github.com/holoplot/go-evdev"
)

// Output is the uinput keyboard the remapped stream is written to. It is
// created once and lives for the daemon's whole run.
type Output struct {
	dev *evdev.InputDevice
}

// CreateOutput registers a virtual keyboard advertising every keyboard key,
// so any remap target or passed-through code can be emitted, plus the scan
// code events real keyboards interleave with key events.
func CreateOutput(name string) (*Output, error) {
	dev, err := evdev.CreateDevice(
		name,
		evdev.InputID{
			BusType: 0x03,
			Vendor:  0x4711,
			Product: 0x0816,
			Version: 1,
		},
		map[evdev.EvType][]evdev.EvCode{
			evdev.EV_KEY: keyboardKeys(),
			evdev.EV_MSC: {evdev.MSC_SCAN},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("create uinput device: %w", err)
	}
	return &Output{dev: dev}, nil
}

// WriteOne forwards one event, preserving type, code and value so consumers
// see the same press/repeat/release groups the hardware produced.
func (o *Output) WriteOne(ev *evdev.InputEvent) error {
	return o.dev.WriteOne(ev)
}

// Close destroys the uinput device and releases its file handle.
func (o *Output) Close() error {
	_ = evdev.DestroyDevice(o.dev)
	return o.dev.Close()
}

func keyboardKeys() []evdev.EvCode {
	codes := make([]evdev.EvCode, 0, int(evdev.KEY_MICMUTE))
	for code := evdev.EvCode(evdev.KEY_ESC); code <= evdev.EvCode(evdev.KEY_MICMUTE); code++ {
		codes = append(codes, code)
	}
	return codes
}
