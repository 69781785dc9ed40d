package daemon

import (
	"fmt"
	"time"

	evdev "github.com/holoplot/go-evdev"
	"go.uber.org/zap"
)

const (
	maxConsecutiveWriteFailures = 100
	writeBackoffBase            = 10 * time.Millisecond

	// evdev EV_KEY value for an autorepeat (key held down).
	keyHoldValue = 2
)

// writer drains the bounded event queue into the virtual keyboard. Press and
// release events and SYN markers are never dropped, since losing one leaves
// a key stuck; autorepeats and other non-critical events are shed when the
// queue is full.
type writer struct {
	sink Sink
	ch   chan *evdev.InputEvent
	dead chan struct{}
	log  *zap.SugaredLogger

	maxFailures int
	backoffBase time.Duration
}

func newWriter(sink Sink, buffer int, log *zap.SugaredLogger) *writer {
	if buffer <= 0 {
		buffer = 8192
	}
	return &writer{
		sink:        sink,
		ch:          make(chan *evdev.InputEvent, buffer),
		dead:        make(chan struct{}),
		log:         log,
		maxFailures: maxConsecutiveWriteFailures,
		backoffBase: writeBackoffBase,
	}
}

func (w *writer) enqueue(ev *evdev.InputEvent) {
	critical := ev.Type == evdev.EV_SYN ||
		(ev.Type == evdev.EV_KEY && ev.Value != keyHoldValue)
	if critical {
		select {
		case w.ch <- ev:
		case <-w.dead:
		}
		return
	}

	select {
	case w.ch <- ev:
	default:
		// Queue full; repeats and misc events can be dropped under load.
	}
}

// stop closes the queue; run drains what is left and exits. Only the event
// loop calls enqueue and stop, never concurrently.
func (w *writer) stop() {
	close(w.ch)
}

// run writes events until the queue is closed or the device stays broken.
// Transient write failures back off and move on rather than stall typing.
func (w *writer) run() error {
	defer close(w.dead)

	consecutive := 0
	for ev := range w.ch {
		if err := w.sink.WriteOne(ev); err != nil {
			consecutive++
			w.log.Errorw("write to virtual keyboard failed",
				"failures", consecutive, "max", w.maxFailures, "error", err)
			if consecutive >= w.maxFailures {
				return fmt.Errorf("virtual keyboard unwritable after %d consecutive failures: %w", consecutive, err)
			}
			n := consecutive
			if n > 10 {
				n = 10
			}
			time.Sleep(w.backoffBase * time.Duration(n))
			continue
		}
		consecutive = 0
	}
	return nil
}
