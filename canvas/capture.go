package canvas

import (
	"context"
	"image"
	"time"

	"github.com/milk9111/tilecanvas/tile"
)

type capture struct {
	img image.Image
	at  time.Time
}

// captureCache holds the latest raster of each tile. Fields are touched on
// the UI thread only; captures run on their own goroutines and post back.
type captureCache struct {
	timeout  time.Duration
	images   map[int]capture
	inflight map[int]context.CancelFunc
}

func newCaptureCache(timeout time.Duration) *captureCache {
	return &captureCache{
		timeout:  timeout,
		images:   make(map[int]capture),
		inflight: make(map[int]context.CancelFunc),
	}
}

func (cc *captureCache) forget(id int) {
	if cancel, ok := cc.inflight[id]; ok {
		cancel()
		delete(cc.inflight, id)
	}
	delete(cc.images, id)
}

func (cc *captureCache) close() {
	for id := range cc.inflight {
		cc.forget(id)
	}
}

// Raster returns the last capture of a tile, if any.
func (c *Canvas) Raster(id int) (image.Image, time.Time, bool) {
	shot, ok := c.captures.images[id]
	if !ok {
		return nil, time.Time{}, false
	}
	return shot.img, shot.at, true
}

// RefreshCaptures starts a capture for every loaded tile in view that has
// none in flight and none newer than maxAge.
func (c *Canvas) RefreshCaptures(maxAge time.Duration) int {
	visible := c.Transform.VisibleWorld(c.viewport).BB()
	now := c.Scheduler.Now()
	var started int
	for _, t := range c.Store.Tiles() {
		if t.State != tile.Loaded || !visible.Intersects(t.Rect().BB()) {
			continue
		}
		if _, busy := c.captures.inflight[t.ID]; busy {
			continue
		}
		if prev, ok := c.captures.images[t.ID]; ok && now.Sub(prev.at) < maxAge {
			continue
		}
		if c.startCapture(t.ID) {
			started++
		}
	}
	return started
}

func (c *Canvas) startCapture(id int) bool {
	surf, ok := c.Store.Surface(id)
	if !ok {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.captures.timeout)
	c.captures.inflight[id] = cancel

	go func() {
		defer cancel()
		img, err := surf.Capture(ctx)
		c.Scheduler.Post(func() {
			if _, still := c.captures.inflight[id]; !still {
				return
			}
			delete(c.captures.inflight, id)
			if err != nil {
				c.logger.Debug("capture failed", "tile", id, "error", err)
				return
			}
			c.captures.images[id] = capture{img: img, at: c.Scheduler.Now()}
		})
	}()
	return true
}
