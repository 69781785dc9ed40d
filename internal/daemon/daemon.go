// Package daemon wires the grabbed keyboards, the remap core and the virtual
// output device into a single event loop.
package daemon

import (
	"context"
	"errors"
	"io"
	"sort"
	"time"

	evdev "github.com/holoplot/go-evdev"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/qwertdvert/qwertdvert/internal/config"
	"github.com/qwertdvert/qwertdvert/internal/device"
	"github.com/qwertdvert/qwertdvert/internal/remap"
)

// Source is an exclusively acquired physical keyboard.
type Source interface {
	Name() string
	Path() string
	ReadOne() (*evdev.InputEvent, error)
	Release() error
}

// Sink is the virtual keyboard the translated stream is written to.
type Sink interface {
	WriteOne(*evdev.InputEvent) error
	Close() error
}

// Daemon lifecycle states as reported through Status.
const (
	StateStarting     = "starting"
	StateDiscovering  = "discovering"
	StateRetrying     = "retrying"
	StateRunning      = "running"
	StateShuttingDown = "shutting-down"
	StateStopped      = "stopped"
)

// Status is the snapshot served to the control surface.
type Status struct {
	Enabled        bool     `json:"enabled"`
	DevicesGrabbed int      `json:"devices_grabbed"`
	Devices        []string `json:"devices"`
	State          string   `json:"state"`
}

type command struct {
	setEnabled *bool
	reply      chan Status
}

// sourceEvent is one message on the merged per-device fan-in channel. A set
// err marks the end of that device's stream.
type sourceEvent struct {
	path string
	ev   *evdev.InputEvent
	err  error
}

// Daemon owns all remapping state. Only the Run loop touches it; the control
// surface talks to the loop through the command channel.
type Daemon struct {
	cfg        *config.Config
	log        *zap.SugaredLogger
	translator *remap.Translator
	mods       *remap.Modifiers

	enabled bool
	state   string
	sources map[string]Source
	order   []string

	commands chan command
	events   chan sourceEvent
	done     chan struct{}

	lastRetryLog time.Time

	// Replaced in tests.
	discover   func(exclude map[string]bool) ([]Source, error)
	openOutput func() (Sink, error)
	newMonitor func() (*device.Monitor, error)
}

func New(cfg *config.Config, log *zap.SugaredLogger) (*Daemon, error) {
	disc, err := device.NewDiscoverer(cfg.Devices.NameFilter, cfg.Devices.Ignore, cfg.Daemon.VirtualDeviceName, log)
	if err != nil {
		return nil, err
	}

	d := &Daemon{
		cfg:        cfg,
		log:        log,
		translator: remap.NewTranslator(remap.Dvorak()),
		mods:       remap.NewModifiers(),
		enabled:    cfg.Remap.EnabledAtStart,
		state:      StateStarting,
		sources:    make(map[string]Source),
		commands:   make(chan command),
		events:     make(chan sourceEvent, 64),
		done:       make(chan struct{}),
	}
	d.discover = func(exclude map[string]bool) ([]Source, error) {
		keyboards, err := disc.Discover(exclude)
		if err != nil {
			return nil, err
		}
		sources := make([]Source, len(keyboards))
		for i, k := range keyboards {
			sources[i] = k
		}
		return sources, nil
	}
	d.openOutput = func() (Sink, error) {
		return device.CreateOutput(cfg.Daemon.VirtualDeviceName)
	}
	d.newMonitor = func() (*device.Monitor, error) {
		return device.NewMonitor(log)
	}
	return d, nil
}

// SetEnabled toggles remapping. The change applies from the next processed
// event; already-emitted events are never altered.
func (d *Daemon) SetEnabled(enabled bool) Status {
	v := enabled
	return d.send(command{setEnabled: &v})
}

// Status returns the current snapshot.
func (d *Daemon) Status() Status {
	return d.send(command{})
}

func (d *Daemon) send(cmd command) Status {
	cmd.reply = make(chan Status, 1)
	select {
	case d.commands <- cmd:
		return <-cmd.reply
	case <-d.done:
		return Status{State: StateStopped}
	}
}

// Run drives the daemon until ctx is canceled (returning ctx.Err()) or a
// fatal condition occurs. Device acquisition failures are never fatal; they
// loop through the retry path.
func (d *Daemon) Run(ctx context.Context) error {
	defer close(d.done)

	sink, err := d.ensureOutput(ctx)
	if err != nil {
		d.state = StateStopped
		return err
	}

	w := newWriter(sink, d.cfg.Daemon.EventBuffer, d.log)
	writerDone := make(chan error, 1)
	go func() { writerDone <- w.run() }()

	var hotplug <-chan struct{}
	if d.newMonitor != nil {
		if mon, err := d.newMonitor(); err != nil {
			d.log.Warnw("hot-plug watching unavailable, relying on retries", "error", err)
		} else {
			defer mon.Close()
			hotplug = mon.C
		}
	}

	retry := time.NewTimer(0)
	defer retry.Stop()
	d.state = StateDiscovering

	for {
		select {
		case <-ctx.Done():
			d.shutdown(w, writerDone, sink)
			return ctx.Err()

		case err := <-writerDone:
			d.releaseSources()
			_ = sink.Close()
			d.state = StateStopped
			return err

		case <-retry.C:
			d.runDiscovery(ctx, retry)

		case <-hotplug:
			d.runDiscovery(ctx, retry)

		case cmd := <-d.commands:
			d.apply(cmd)

		case msg := <-d.events:
			d.handleEvent(msg, w)
			if len(d.sources) == 0 && d.state == StateRunning {
				d.state = StateDiscovering
				resetTimer(retry, 0)
			}
		}
	}
}

// ensureOutput creates the uinput device, retrying on the same cadence as
// device discovery. It stays responsive to control requests while waiting.
func (d *Daemon) ensureOutput(ctx context.Context) (Sink, error) {
	for {
		sink, err := d.openOutput()
		if err == nil {
			d.log.Infof("created virtual keyboard %q", d.cfg.Daemon.VirtualDeviceName)
			return sink, nil
		}

		d.state = StateRetrying
		d.logRetry("cannot create virtual keyboard: %v", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case cmd := <-d.commands:
			d.apply(cmd)
		case <-time.After(d.cfg.Daemon.RetryInterval):
		}
	}
}

func (d *Daemon) runDiscovery(ctx context.Context, retry *time.Timer) {
	exclude := make(map[string]bool, len(d.sources))
	for path := range d.sources {
		exclude[path] = true
	}

	found, err := d.discover(exclude)
	if err != nil {
		d.logRetry("input device enumeration failed: %v", err)
	}
	for _, s := range found {
		d.sources[s.Path()] = s
		d.order = append(d.order, s.Path())
		d.log.Infow("grabbed keyboard", "name", s.Name(), "path", s.Path())
		d.startReader(ctx, s)
	}

	if len(d.sources) == 0 {
		d.state = StateRetrying
		d.logRetry("No compatible keyboard devices available yet; retrying every %v...", d.cfg.Daemon.RetryInterval)
		resetTimer(retry, d.cfg.Daemon.RetryInterval)
		return
	}

	if d.state != StateRunning {
		d.state = StateRunning
		d.log.Infof("remapping active on %d keyboard(s)", len(d.sources))
	}
}

func (d *Daemon) startReader(ctx context.Context, s Source) {
	path := s.Path()
	go func() {
		for {
			ev, err := s.ReadOne()
			select {
			case d.events <- sourceEvent{path: path, ev: ev, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()
}

func (d *Daemon) handleEvent(msg sourceEvent, w *writer) {
	if msg.err != nil {
		d.dropSource(msg.path, msg.err)
		return
	}

	ev := msg.ev
	if ev.Type == evdev.EV_KEY {
		// The tracker observes the event before the translator consults the
		// set, so arrival order decides within a hardware report.
		d.mods.Observe(ev)
		w.enqueue(d.translator.Translate(ev, d.mods, d.enabled))
		return
	}
	w.enqueue(ev)
}

// dropSource handles device loss: release the handle, forget the device and
// leave the rest of the arena untouched.
func (d *Daemon) dropSource(path string, cause error) {
	s, ok := d.sources[path]
	if !ok {
		return
	}
	delete(d.sources, path)
	for i, p := range d.order {
		if p == path {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	_ = s.Release()

	if errors.Is(cause, io.EOF) || errors.Is(cause, unix.ENODEV) {
		d.log.Infow("keyboard disconnected", "name", s.Name(), "path", path)
	} else {
		d.log.Warnw("keyboard read failed, dropping device", "name", s.Name(), "path", path, "error", cause)
	}
}

func (d *Daemon) apply(cmd command) {
	if cmd.setEnabled != nil && *cmd.setEnabled != d.enabled {
		d.enabled = *cmd.setEnabled
		if d.enabled {
			d.log.Infof("remapping enabled")
		} else {
			d.log.Infof("remapping disabled")
		}
	}
	cmd.reply <- d.status()
}

func (d *Daemon) status() Status {
	names := make([]string, 0, len(d.sources))
	for _, s := range d.sources {
		names = append(names, s.Name())
	}
	sort.Strings(names)
	return Status{
		Enabled:        d.enabled,
		DevicesGrabbed: len(d.sources),
		Devices:        names,
		State:          d.state,
	}
}

// shutdown releases everything in reverse acquisition order: keyboards
// first, then the virtual device.
func (d *Daemon) shutdown(w *writer, writerDone chan error, sink Sink) {
	d.state = StateShuttingDown
	d.log.Infof("shutting down")

	d.releaseSources()
	w.stop()
	<-writerDone
	if err := sink.Close(); err != nil {
		d.log.Warnw("closing virtual keyboard", "error", err)
	}

	d.state = StateStopped
}

func (d *Daemon) releaseSources() {
	for i := len(d.order) - 1; i >= 0; i-- {
		if s, ok := d.sources[d.order[i]]; ok {
			_ = s.Release()
			delete(d.sources, d.order[i])
		}
	}
	d.order = nil
}

// logRetry emits one warning per log interval; the rest go to debug so a
// long wait for permissions does not flood the journal.
func (d *Daemon) logRetry(format string, args ...any) {
	if time.Since(d.lastRetryLog) >= d.cfg.Daemon.LogInterval {
		d.lastRetryLog = time.Now()
		d.log.Warnf(format, args...)
		d.log.Warnf("If this persists, check udev uaccess rules for /dev/input/event* and /dev/uinput.")
		return
	}
	d.log.Debugf(format, args...)
}

func resetTimer(t *time.Timer, dur time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(dur)
}
