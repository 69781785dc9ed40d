package device

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const monitorDebounce = 500 * time.Millisecond

// Monitor watches /dev/input and signals on C when device nodes appear or
// disappear. Bursts of filesystem events (a keyboard plugs in as several
// nodes) collapse into a single ping.
type Monitor struct {
	C chan struct{}

	watcher *fsnotify.Watcher
	log     *zap.SugaredLogger
	done    chan struct{}
}

// NewMonitor starts watching the given directories, defaulting to
// /dev/input.
func NewMonitor(log *zap.SugaredLogger, dirs ...string) (*Monitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if len(dirs) == 0 {
		dirs = []string{"/dev/input"}
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	m := &Monitor{
		C:       make(chan struct{}, 1),
		watcher: watcher,
		log:     log,
		done:    make(chan struct{}),
	}
	go m.run()
	return m, nil
}

func (m *Monitor) Close() error {
	close(m.done)
	return m.watcher.Close()
}

func (m *Monitor) run() {
	timer := time.NewTimer(monitorDebounce)
	timer.Stop()
	pending := false

	for {
		select {
		case <-m.done:
			return

		case <-timer.C:
			if pending {
				pending = false
				select {
				case m.C <- struct{}{}:
				default:
				}
			}

		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}
			m.log.Debugw("input device node changed", "op", event.Op.String(), "name", event.Name)
			if !pending {
				pending = true
				timer.Reset(monitorDebounce)
			}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.log.Warnw("device watch error", "error", err)
		}
	}
}

func relevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Remove) {
		return false
	}
	// Only event nodes carry input streams; ignore by-id symlink churn etc.
	return strings.HasPrefix(filepath.Base(event.Name), "event")
}
