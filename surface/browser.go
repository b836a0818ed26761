package surface

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// BrowserConfig configures the Chrome instance that hosts tile pages.
type BrowserConfig struct {
	// RemoteURL is the DevTools WebSocket URL of an already running Chrome.
	// Empty launches a local one.
	RemoteURL string
	Headless  bool
	// Stealth opens pages with go-rod/stealth evasions applied.
	Stealth bool
	// NavigateTimeout bounds a single Load. Default: 30s.
	NavigateTimeout time.Duration
	Logger  *log.Logger
}

func (c *BrowserConfig) defaults() {
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = log.Default()
	}
}

// Browser is a Provider backed by one Chrome process, one page per tile.
type Browser struct {
	cfg     BrowserConfig
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// LaunchBrowser starts (or connects to) Chrome.
func LaunchBrowser(ctx context.Context, cfg BrowserConfig) (*Browser, error) {
	cfg.defaults()
	b := &Browser{cfg: cfg}

	wsURL := cfg.RemoteURL
	if wsURL != "" {
		cfg.Logger.Info("connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().Headless(cfg.Headless)
		l = l.Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("surface: launch chrome: %w", err)
		}
		wsURL = u
		b.lnch = l
		cfg.Logger.Info("launched local chrome", "url", wsURL, "headless", cfg.Headless)
	}

	rb := rod.New().Context(ctx).ControlURL(wsURL)
	if err := rb.Connect(); err != nil {
		b.cleanup()
		return nil, fmt.Errorf("surface: connect chrome: %w", err)
	}
	b.browser = rb
	return b, nil
}

// Open creates a blank page for the tile and starts forwarding its events.
func (b *Browser) Open(tileID int, sink Sink) (Surface, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || b.browser == nil {
		return nil, fmt.Errorf("surface: browser is closed")
	}

	var page *rod.Page
	var err error
	if b.cfg.Stealth {
		page, err = stealth.Page(b.browser)
	} else {
		page, err = b.browser.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("surface: open tab for tile %d: %w", tileID, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &rodSurface{
		id:      tileID,
		page:    page.Context(ctx),
		sink:    sink,
		cfg:     b.cfg,
		logger:  b.cfg.Logger.With("tile", tileID),
		cancel:  cancel,
		pointer: true,
	}
	go p.watch()
	return p, nil
}

// Close shuts Chrome down.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return b.cleanup()
}

func (b *Browser) cleanup() error {
	var err error
	if b.browser != nil {
		err = b.browser.Close()
		b.browser = nil
	}
	if b.lnch != nil {
		b.lnch.Cleanup()
		b.lnch = nil
	}
	return err
}
