// Package canvas wires the engine together: one Canvas owns the transform,
// the tile store, the gesture controller, the minimap, the navigator, the
// pop-up bridge and layout persistence, and is driven by the host once per
// frame.
package canvas

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jakecoffman/cp"

	"github.com/milk9111/tilecanvas/blobstore"
	"github.com/milk9111/tilecanvas/bridge"
	"github.com/milk9111/tilecanvas/common"
	"github.com/milk9111/tilecanvas/frame"
	"github.com/milk9111/tilecanvas/input"
	"github.com/milk9111/tilecanvas/layout"
	"github.com/milk9111/tilecanvas/minimap"
	"github.com/milk9111/tilecanvas/nav"
	"github.com/milk9111/tilecanvas/surface"
	"github.com/milk9111/tilecanvas/tile"
	"github.com/milk9111/tilecanvas/view"
)

type Options struct {
	Provider surface.Provider
	// Blobs persists the layout. Nil keeps it in memory only.
	Blobs    blobstore.Store
	Viewport common.Size

	Minimap                 minimap.Options
	BlockWheelDuringGesture bool
	NavDuration             time.Duration
	CaptureTimeout          time.Duration
	Logger                  *log.Logger
}

type Canvas struct {
	Scheduler *frame.Scheduler
	Transform *view.Transform
	Store     *tile.Store
	Input     *input.Controller
	Minimap   *minimap.Minimap
	Nav       *nav.Navigator
	Bridge    *bridge.Bridge

	persister *layout.Persister
	captures  *captureCache
	viewport  common.Size
	logger    *log.Logger
}

func New(opts Options) *Canvas {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Blobs == nil {
		opts.Blobs = blobstore.NewMemoryStore()
	}
	if opts.Minimap.Logger == nil {
		opts.Minimap.Logger = opts.Logger.WithPrefix("minimap")
	}
	if opts.CaptureTimeout <= 0 {
		opts.CaptureTimeout = 3 * time.Second
	}

	sched := frame.NewScheduler()
	tf := view.NewTransform()
	store := tile.NewStore(tile.Options{
		Provider:  opts.Provider,
		Scheduler: sched,
		Logger:    opts.Logger.WithPrefix("tile"),
	})
	navigator := nav.New(tf, sched, nav.Options{Duration: opts.NavDuration, Logger: opts.Logger.WithPrefix("nav")})

	c := &Canvas{
		Scheduler: sched,
		Transform: tf,
		Store:     store,
		Nav:       navigator,
		Input: input.NewController(tf, store, input.Options{
			BlockWheelDuringGesture: opts.BlockWheelDuringGesture,
			Navigator:               navigator,
			Logger:                  opts.Logger.WithPrefix("input"),
		}),
		Minimap:   minimap.New(store, tf, sched, navigator, opts.Minimap),
		Bridge:    bridge.New(sched, opts.Logger.WithPrefix("bridge")),
		persister: layout.NewPersister(opts.Blobs, layout.PersisterOptions{Logger: opts.Logger.WithPrefix("layout")}),
		captures:  newCaptureCache(opts.CaptureTimeout),
		logger:    opts.Logger,
	}
	c.SetViewport(opts.Viewport)

	c.Bridge.SetHandler(func(r bridge.Request) {
		if _, err := c.Open(r.Address); err != nil {
			c.logger.Warn("bridge request rejected", "url", r.Address, "source", r.Source, "error", err)
		}
	})
	store.Subscribe(func(ev tile.Event) {
		switch ev.Kind {
		case tile.SurfaceEvent:
			if ev.Surface.Kind == surface.PopupRequested {
				c.Bridge.Popup(ev.Surface.Address)
			}
		case tile.Removed:
			c.captures.forget(ev.ID)
		}
	})
	return c
}

// Restore loads the persisted layout, or the demo layout, into the store and
// starts write-through persistence. A seeded demo layout is saved right away.
// It returns the number of tiles restored.
func (c *Canvas) Restore(ctx context.Context) int {
	records, seed := c.persister.Load(ctx)
	n := layout.Restore(c.Store, records, c.logger)
	c.persister.Attach(c.Store)
	if seed {
		c.persister.Save(c.Store.Tiles())
	}
	c.logger.Info("layout restored", "tiles", n)
	return n
}

// Tick runs one frame.
func (c *Canvas) Tick(now time.Time) {
	c.Scheduler.Tick(now)
}

func (c *Canvas) Viewport() common.Size {
	return c.viewport
}

// SetViewport records the main view size in pixels.
func (c *Canvas) SetViewport(size common.Size) {
	if size == c.viewport {
		return
	}
	c.viewport = size
	c.Nav.SetViewport(size)
	c.Minimap.SetViewport(size)
}

// Open creates a tile centered in the current viewport.
func (c *Canvas) Open(address string) (tile.Tile, error) {
	center := c.Transform.ToWorld(c.viewport.Vector().Mult(0.5))
	pos := center.Sub(tile.DefaultSize.Vector().Mult(0.5))
	t, err := c.Store.Create(address, pos, tile.DefaultSize)
	if err != nil {
		return tile.Tile{}, err
	}
	c.Store.Select(t.ID)
	c.logger.Info("tile opened", "tile", t.ID, "url", t.Address)
	return t, nil
}

// OpenAt creates a tile with its top-left at a world point.
func (c *Canvas) OpenAt(address string, world cp.Vector) (tile.Tile, error) {
	return c.Store.Create(address, world, tile.DefaultSize)
}

// CloseSelected removes the selected tile.
func (c *Canvas) CloseSelected() bool {
	return c.Store.Remove(c.Store.Selected())
}

func (c *Canvas) ReloadSelected() bool {
	return c.Store.Reload(c.Store.Selected())
}

func (c *Canvas) BackSelected() bool {
	return c.Store.GoBack(c.Store.Selected())
}

func (c *Canvas) ToggleSelected() bool {
	return c.Store.Toggle(c.Store.Selected())
}

// Focus animates the view to the center of a tile.
func (c *Canvas) Focus(id int) bool {
	t, ok := c.Store.Get(id)
	if !ok {
		return false
	}
	c.Nav.NavigateTo(t.Rect().Center(), true)
	return true
}

// ResetView returns to 100% zoom at the origin.
func (c *Canvas) ResetView() {
	c.Nav.Cancel()
	c.Transform.Reset()
}

// Flush waits for pending layout writes.
func (c *Canvas) Flush() {
	c.persister.Flush()
}

// Close stops persistence and releases every surface.
func (c *Canvas) Close() {
	c.Minimap.Close()
	c.persister.Close()
	c.captures.close()
	c.Store.Close()
}
