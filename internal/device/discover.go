// Package device handles the physical keyboards (discovery, exclusive grab,
// hot-plug watching) and the virtual output keyboard.
package device

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	evdev "github.com/holoplot/go-evdev"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// Keyboard is an exclusively grabbed physical keyboard. It owns the device
// node for its lifetime; Release ungrabs and closes it.
type Keyboard struct {
	dev  *evdev.InputDevice
	name string
	path string
}

func (k *Keyboard) Name() string { return k.name }
func (k *Keyboard) Path() string { return k.path }

// ReadOne blocks until the next raw event arrives. Release from another
// goroutine interrupts a pending read.
func (k *Keyboard) ReadOne() (*evdev.InputEvent, error) {
	return k.dev.ReadOne()
}

func (k *Keyboard) Release() error {
	_ = k.dev.Ungrab()
	return k.dev.Close()
}

// Discoverer enumerates /dev/input and grabs eligible keyboards.
type Discoverer struct {
	nameFilter  string
	ignore      *regexp.Regexp
	virtualName string
	log         *zap.SugaredLogger
}

func NewDiscoverer(nameFilter, ignore, virtualName string, log *zap.SugaredLogger) (*Discoverer, error) {
	d := &Discoverer{
		nameFilter:  nameFilter,
		virtualName: virtualName,
		log:         log,
	}
	if ignore != "" {
		re, err := regexp.Compile(ignore)
		if err != nil {
			return nil, fmt.Errorf("compile device ignore pattern: %w", err)
		}
		d.ignore = re
	}
	return d, nil
}

// Discover grabs every eligible keyboard not already held (exclude is keyed
// by device path). Permission errors are expected shortly after login, before
// udev uaccess rules have propagated; those devices are skipped and picked up
// on a later attempt.
func (d *Discoverer) Discover(exclude map[string]bool) ([]*Keyboard, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, fmt.Errorf("list input devices: %w", err)
	}

	var grabbed []*Keyboard
	for _, p := range paths {
		if exclude[p.Path] {
			continue
		}

		dev, err := evdev.Open(p.Path)
		if err != nil {
			if errors.Is(err, unix.EACCES) || errors.Is(err, unix.EPERM) {
				d.log.Debugw("no access to input device yet", "path", p.Path)
			}
			continue
		}

		name, _ := dev.Name()
		if !Eligible(name, dev.CapableEvents(evdev.EV_KEY), d.nameFilter, d.ignore, d.virtualName) {
			dev.Close()
			continue
		}

		if err := dev.Grab(); err != nil {
			d.log.Warnw("failed to grab keyboard", "name", name, "path", p.Path, "error", err)
			dev.Close()
			continue
		}

		grabbed = append(grabbed, &Keyboard{dev: dev, name: name, path: p.Path})
	}

	return grabbed, nil
}

// Eligible decides whether a device is a remappable physical keyboard: it
// must advertise the full letter range, pass the configured name filters and
// not be our own virtual output.
func Eligible(name string, keys []evdev.EvCode, nameFilter string, ignore *regexp.Regexp, virtualName string) bool {
	if name == virtualName {
		return false
	}
	if ignore != nil && ignore.MatchString(name) {
		return false
	}
	if nameFilter != "" && !strings.Contains(name, nameFilter) {
		return false
	}

	var hasA, hasZ bool
	for _, code := range keys {
		switch code {
		case evdev.KEY_A:
			hasA = true
		case evdev.KEY_Z:
			hasZ = true
		}
	}
	return hasA && hasZ
}
