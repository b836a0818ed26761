package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	cases := []struct {
		name  string
		file  string
		data  string
		check func(t *testing.T, c Config)
	}{
		{
			name: "yaml overrides",
			file: "config.yaml",
			data: "minimap:\n  visible: false\nbrowser:\n  navigate_timeout: 10s\nstore:\n  location: sqlite:///tmp/c.db\n",
			check: func(t *testing.T, c Config) {
				if c.Minimap.Visible {
					t.Fatalf("minimap visible")
				}
				if c.Browser.NavigateTimeout != 10*time.Second {
					t.Fatalf("timeout = %v", c.Browser.NavigateTimeout)
				}
				if c.Store.Location != "sqlite:///tmp/c.db" {
					t.Fatalf("location = %q", c.Store.Location)
				}
				if !c.Browser.Enabled || c.Window.Width != 1280 {
					t.Fatalf("defaults lost: %+v", c)
				}
			},
		},
		{
			name: "toml",
			file: "config.toml",
			data: "log_level = \"debug\"\n[bridge]\naddr = \"127.0.0.1:9000\"\n[interaction]\nblock_wheel_during_gesture = true\n",
			check: func(t *testing.T, c Config) {
				if c.LogLevel != "debug" || c.Bridge.Addr != "127.0.0.1:9000" || !c.Interaction.BlockWheelDuringGesture {
					t.Fatalf("cfg = %+v", c)
				}
			},
		},
		{
			name: "invalid values normalized",
			file: "config.yml",
			data: "window:\n  width: -1\n  title: \"\"\nminimap:\n  width: 0\n",
			check: func(t *testing.T, c Config) {
				d := Default()
				if c.Window != d.Window || c.Minimap.Width != d.Minimap.Width {
					t.Fatalf("cfg = %+v", c)
				}
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := Parse(tc.file, []byte(tc.data))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			tc.check(t, c)
		})
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse("config.json", []byte("{}")); err == nil {
		t.Fatalf("expected unsupported format error")
	}
	if _, err := Parse("config.yaml", []byte("window: [")); err == nil {
		t.Fatalf("expected yaml error")
	}
}

func TestLoadOrDefault(t *testing.T) {
	c, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("missing file: %v", err)
	}
	if c != Default() {
		t.Fatalf("cfg = %+v", c)
	}
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("log_level: info\n"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer w.Close()
	reloads := w.Reloads(nil)

	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0600); err != nil {
		t.Fatalf("write other: %v", err)
	}
	if err := os.WriteFile(path, []byte("log_level: debug\n"), 0600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	select {
	case c := <-reloads:
		if c.LogLevel != "debug" {
			t.Fatalf("reloaded level = %q", c.LogLevel)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("no reload")
	}
}
