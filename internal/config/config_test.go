package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.Remap.EnabledAtStart {
		t.Error("remapping should default to enabled")
	}
	if cfg.Devices.NameFilter != "AT Translated" {
		t.Errorf("unexpected default name filter %q", cfg.Devices.NameFilter)
	}
	if cfg.Daemon.RetryInterval != 500*time.Millisecond {
		t.Errorf("unexpected retry interval %v", cfg.Daemon.RetryInterval)
	}
	if cfg.Daemon.EventBuffer != 8192 {
		t.Errorf("unexpected event buffer %d", cfg.Daemon.EventBuffer)
	}
}

func TestLoadConfigCreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Daemon.VirtualDeviceName != "QwertDvert" {
		t.Errorf("unexpected virtual device name %q", cfg.Daemon.VirtualDeviceName)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("default config file was not written: %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	want := DefaultConfig()
	want.Devices.NameFilter = ""
	want.Remap.EnabledAtStart = false
	want.Control.Listen = "tcp://127.0.0.1:8765"
	want.Daemon.RetryInterval = 2 * time.Second

	if err := SaveConfig(path, want); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if got.Devices.NameFilter != "" || got.Remap.EnabledAtStart ||
		got.Control.Listen != want.Control.Listen ||
		got.Daemon.RetryInterval != want.Daemon.RetryInterval {
		t.Errorf("round trip mismatch: got %+v", got)
	}
}

func TestControlAddress(t *testing.T) {
	c := ControlConfig{Listen: "tcp://127.0.0.1:9"}
	if c.Address() != "tcp://127.0.0.1:9" {
		t.Errorf("explicit listen not honored: %q", c.Address())
	}

	c = ControlConfig{}
	if addr := c.Address(); addr == "" || addr[:7] != "unix://" {
		t.Errorf("default address should be a unix socket, got %q", addr)
	}
}
