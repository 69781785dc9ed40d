package device

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func testLogger(t *testing.T) *zap.SugaredLogger {
	t.Helper()
	return zap.NewNop().Sugar()
}

func TestMonitorSignalsOnNewEventNode(t *testing.T) {
	dir := t.TempDir()

	m, err := NewMonitor(testLogger(t), dir)
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}
	defer m.Close()

	if err := os.WriteFile(filepath.Join(dir, "event7"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-m.C:
	case <-time.After(5 * time.Second):
		t.Fatal("no ping after creating an event node")
	}
}

func TestMonitorIgnoresUnrelatedNodes(t *testing.T) {
	dir := t.TempDir()

	m, err := NewMonitor(testLogger(t), dir)
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}
	defer m.Close()

	if err := os.WriteFile(filepath.Join(dir, "js0"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-m.C:
		t.Fatal("unexpected ping for a non-event node")
	case <-time.After(2 * monitorDebounce):
	}
}

func TestMonitorMissingDirectory(t *testing.T) {
	if _, err := NewMonitor(testLogger(t), filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing watch directory")
	}
}
