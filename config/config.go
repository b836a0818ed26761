// Package config loads tilecanvas settings from YAML or TOML and watches the
// file for edits.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type WindowConfig struct {
	Width  int    `yaml:"width" toml:"width"`
	Height int    `yaml:"height" toml:"height"`
	Title  string `yaml:"title" toml:"title"`
}

type StoreConfig struct {
	// Location is a blobstore location: a directory, file://, sqlite://,
	// redis://, mongodb:// or memory://.
	Location string `yaml:"location" toml:"location"`
}

type BrowserConfig struct {
	Enabled         bool          `yaml:"enabled" toml:"enabled"`
	Headless        bool          `yaml:"headless" toml:"headless"`
	Stealth         bool          `yaml:"stealth" toml:"stealth"`
	RemoteURL       string        `yaml:"remote_url" toml:"remote_url"`
	NavigateTimeout time.Duration `yaml:"navigate_timeout" toml:"navigate_timeout"`
	// CaptureInterval is how often visible loaded tiles are re-rasterized.
	CaptureInterval time.Duration `yaml:"capture_interval" toml:"capture_interval"`
}

type BridgeConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Addr    string `yaml:"addr" toml:"addr"`
}

type MinimapConfig struct {
	Visible bool `yaml:"visible" toml:"visible"`
	Width   int  `yaml:"width" toml:"width"`
	Height  int  `yaml:"height" toml:"height"`
}

type InteractionConfig struct {
	BlockWheelDuringGesture bool `yaml:"block_wheel_during_gesture" toml:"block_wheel_during_gesture"`
}

type Config struct {
	Window      WindowConfig      `yaml:"window" toml:"window"`
	Store       StoreConfig       `yaml:"store" toml:"store"`
	Browser     BrowserConfig     `yaml:"browser" toml:"browser"`
	Bridge      BridgeConfig      `yaml:"bridge" toml:"bridge"`
	Minimap     MinimapConfig     `yaml:"minimap" toml:"minimap"`
	Interaction InteractionConfig `yaml:"interaction" toml:"interaction"`
	LogLevel    string            `yaml:"log_level" toml:"log_level"`
}

// Default is the configuration used when no file exists.
func Default() Config {
	return Config{
		Window:   WindowConfig{Width: 1280, Height: 800, Title: "tilecanvas"},
		Browser:  BrowserConfig{Enabled: true, Headless: true, Stealth: true, NavigateTimeout: 30 * time.Second, CaptureInterval: time.Second},
		Bridge:   BridgeConfig{Enabled: true, Addr: "127.0.0.1:7788"},
		Minimap:  MinimapConfig{Visible: true, Width: 240, Height: 180},
		LogLevel: "info",
	}
}

// normalize replaces invalid values with defaults.
func (c *Config) normalize() {
	d := Default()
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		c.Window.Width, c.Window.Height = d.Window.Width, d.Window.Height
	}
	if c.Window.Title == "" {
		c.Window.Title = d.Window.Title
	}
	if c.Browser.NavigateTimeout <= 0 {
		c.Browser.NavigateTimeout = d.Browser.NavigateTimeout
	}
	if c.Browser.CaptureInterval <= 0 {
		c.Browser.CaptureInterval = d.Browser.CaptureInterval
	}
	if c.Bridge.Addr == "" {
		c.Bridge.Addr = d.Bridge.Addr
	}
	if c.Minimap.Width <= 0 || c.Minimap.Height <= 0 {
		c.Minimap.Width, c.Minimap.Height = d.Minimap.Width, d.Minimap.Height
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

// DefaultPath is ~/.config/tilecanvas/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "tilecanvas", "config.yaml")
}

// Parse decodes data in the format implied by name's extension on top of
// the defaults.
func Parse(name string, data []byte) (Config, error) {
	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: unmarshal %s: %w", name, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return Config{}, fmt.Errorf("config: unmarshal %s: %w", name, err)
		}
	default:
		return Config{}, fmt.Errorf("config: %s: unsupported format %q", name, ext)
	}
	cfg.normalize()
	return cfg, nil
}

// Load reads and parses a config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: load %s: %w", path, err)
	}
	return Parse(path, data)
}

// LoadOrDefault is Load, except a missing file yields Default.
func LoadOrDefault(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}
