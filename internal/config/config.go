// Package config loads and saves the daemon's TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
)

// Config is the whole daemon configuration.
type Config struct {
	Devices DevicesConfig `toml:"devices"`
	Remap   RemapConfig   `toml:"remap"`
	Control ControlConfig `toml:"control"`
	Daemon  DaemonConfig  `toml:"daemon"`
}

// DevicesConfig selects which input devices are grabbed.
type DevicesConfig struct {
	// NameFilter keeps only devices whose kernel name contains this
	// substring. Empty matches every keyboard-class device.
	NameFilter string `toml:"name_filter"`
	// Ignore is a regexp; matching device names are never grabbed.
	Ignore string `toml:"ignore"`
}

type RemapConfig struct {
	EnabledAtStart bool `toml:"enabled_at_start"`
}

// ControlConfig configures the toggle/status endpoint.
type ControlConfig struct {
	// Listen is "unix:///path/to.sock" or "tcp://host:port". Empty picks a
	// socket under the user's XDG runtime directory.
	Listen string `toml:"listen"`
}

type DaemonConfig struct {
	RetryInterval     time.Duration `toml:"retry_interval"`
	LogInterval       time.Duration `toml:"log_interval"`
	EventBuffer       int           `toml:"event_buffer"`
	VirtualDeviceName string        `toml:"virtual_device_name"`
}

// DefaultConfig returns the built-in defaults. The device filter matches the
// laptop's internal keyboard; clear it to grab every keyboard.
func DefaultConfig() *Config {
	return &Config{
		Devices: DevicesConfig{
			NameFilter: "AT Translated",
			Ignore:     "(?i)Video|Camera",
		},
		Remap: RemapConfig{
			EnabledAtStart: true,
		},
		Daemon: DaemonConfig{
			RetryInterval:     500 * time.Millisecond,
			LogInterval:       10 * time.Second,
			EventBuffer:       8192,
			VirtualDeviceName: "QwertDvert",
		},
	}
}

// LoadConfig reads the file at configPath over the defaults. A missing file
// is created with the defaults so the user has something to edit.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := SaveConfig(configPath, config); err != nil {
			return config, err
		}
		return config, nil
	}

	if _, err := toml.DecodeFile(configPath, config); err != nil {
		return config, fmt.Errorf("parse %s: %w", configPath, err)
	}

	return config, nil
}

// SaveConfig writes the configuration as TOML, creating the directory if
// needed.
func SaveConfig(configPath string, config *Config) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return err
	}

	f, err := os.Create(configPath)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(config)
}

// DefaultConfigPath returns the XDG location of the config file.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "qwertdvert", "config.toml")
}

// Address resolves the listen string, falling back to a per-user runtime
// socket.
func (c ControlConfig) Address() string {
	if c.Listen != "" {
		return c.Listen
	}
	return "unix://" + filepath.Join(xdg.RuntimeDir, "qwertdvert", "control.sock")
}
