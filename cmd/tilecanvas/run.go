package main

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/log"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/spf13/cobra"

	"github.com/milk9111/tilecanvas/blobstore"
	"github.com/milk9111/tilecanvas/bridge"
	"github.com/milk9111/tilecanvas/canvas"
	"github.com/milk9111/tilecanvas/common"
	"github.com/milk9111/tilecanvas/config"
	"github.com/milk9111/tilecanvas/minimap"
	"github.com/milk9111/tilecanvas/surface"
)

type runFlags struct {
	noBrowser bool
	headful   bool
	remoteURL string
	noBridge  bool
}

func newRunCmd(flags *globalFlags) *cobra.Command {
	var rf runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open the canvas window (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCanvas(cmd.Context(), flags, rf)
		},
	}
	cmd.Flags().BoolVar(&rf.noBrowser, "no-browser", false, "do not start Chrome; tiles show placeholders only")
	cmd.Flags().BoolVar(&rf.headful, "headful", false, "show the Chrome window")
	cmd.Flags().StringVar(&rf.remoteURL, "remote-url", "", "DevTools URL of an already running Chrome")
	cmd.Flags().BoolVar(&rf.noBridge, "no-bridge", false, "do not listen for open requests")
	return cmd
}

func runCanvas(ctx context.Context, flags *globalFlags, rf runFlags) error {
	logger := loggerFromContext(ctx)
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	if !flags.verbose {
		logger.SetLevel(parseLevel(cfg.LogLevel))
	}
	applyRunFlags(&cfg, rf)

	blobs, err := blobstore.Open(ctx, cfg.Store.Location)
	if err != nil {
		return err
	}
	defer blobs.Close()

	provider, closeProvider := openProvider(ctx, cfg, logger)
	defer closeProvider()

	c := canvas.New(canvas.Options{
		Provider: provider,
		Blobs:    blobs,
		Viewport: common.Size{W: float64(cfg.Window.Width), H: float64(cfg.Window.Height)},
		Minimap: minimap.Options{
			Size:    common.Size{W: float64(cfg.Minimap.Width), H: float64(cfg.Minimap.Height)},
			Visible: cfg.Minimap.Visible,
		},
		BlockWheelDuringGesture: cfg.Interaction.BlockWheelDuringGesture,
		Logger:                  logger,
	})
	defer c.Close()
	c.Restore(ctx)

	if cfg.Bridge.Enabled {
		srv := bridge.NewServer(c.Bridge, logger.WithPrefix("bridge"))
		if err := srv.Listen(cfg.Bridge.Addr); err != nil {
			logger.Warn("bridge disabled", "error", err)
		} else {
			go func() {
				if err := srv.Serve(ctx); err != nil {
					logger.Error("bridge stopped", "error", err)
				}
			}()
		}
	}

	var reloads <-chan config.Config
	if _, err := os.Stat(flags.configPath); err == nil {
		w, err := config.NewWatcher(flags.configPath)
		if err != nil {
			logger.Warn("config hot reload disabled", "error", err)
		} else {
			defer w.Close()
			reloads = w.Reloads(func(err error) { logger.Warn("config reload failed", "error", err) })
		}
	}

	g, err := newGame(ctx, c, cfg, reloads, logger)
	if err != nil {
		return err
	}
	ebiten.SetWindowSize(cfg.Window.Width, cfg.Window.Height)
	ebiten.SetWindowTitle(cfg.Window.Title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	err = ebiten.RunGame(g)
	c.Flush()
	if errors.Is(err, ebiten.Termination) {
		return ctx.Err()
	}
	return err
}

func applyRunFlags(cfg *config.Config, rf runFlags) {
	if rf.noBrowser {
		cfg.Browser.Enabled = false
	}
	if rf.headful {
		cfg.Browser.Headless = false
	}
	if rf.remoteURL != "" {
		cfg.Browser.RemoteURL = rf.remoteURL
	}
	if rf.noBridge {
		cfg.Bridge.Enabled = false
	}
}

// openProvider starts Chrome, falling back to placeholder-only surfaces when
// it is disabled or fails to start.
func openProvider(ctx context.Context, cfg config.Config, logger *log.Logger) (surface.Provider, func()) {
	if !cfg.Browser.Enabled {
		logger.Info("browser disabled, tiles render as placeholders")
		return surface.NewMemory(), func() {}
	}
	b, err := surface.LaunchBrowser(ctx, surface.BrowserConfig{
		RemoteURL:       cfg.Browser.RemoteURL,
		Headless:        cfg.Browser.Headless,
		Stealth:         cfg.Browser.Stealth,
		NavigateTimeout: cfg.Browser.NavigateTimeout,
		Logger:          logger.WithPrefix("surface"),
	})
	if err != nil {
		logger.Warn("chrome unavailable, tiles render as placeholders", "error", err)
		return surface.NewMemory(), func() {}
	}
	return b, func() {
		if err := b.Close(); err != nil {
			logger.Debug("chrome close", "error", err)
		}
	}
}
