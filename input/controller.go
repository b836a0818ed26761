// Package input turns pointer and wheel events into pan, zoom, drag and
// resize gestures on the canvas.
package input

import (
	"github.com/charmbracelet/log"
	"github.com/jakecoffman/cp"

	"github.com/milk9111/tilecanvas/common"
	"github.com/milk9111/tilecanvas/tile"
	"github.com/milk9111/tilecanvas/view"
)

type State int

const (
	Idle State = iota
	Panning
	Dragging
	Resizing
)

func (s State) String() string {
	switch s {
	case Panning:
		return "panning"
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	default:
		return "idle"
	}
}

// Part is the region of a tile under the pointer.
type Part int

const (
	None Part = iota
	Body
	Header
	Handle
)

const (
	ZoomInFactor  = 1.1
	ZoomOutFactor = 0.9
)

// Canceler stops an in-flight navigation tween.
type Canceler interface {
	Cancel()
}

type Options struct {
	// BlockWheelDuringGesture ignores wheel zoom while a gesture is active.
	BlockWheelDuringGesture bool
	// Navigator, when set, is cancelled as soon as a pan starts.
	Navigator Canceler
	Logger    *log.Logger
}

// Controller owns the gesture state machine. At most one gesture is active
// and it captures every move until the pointer is released.
type Controller struct {
	tf    *view.Transform
	store *tile.Store
	opts  Options

	state  State
	target int
	last   cp.Vector
	start  cp.Vector
	// startSize is the tile size in screen units when a resize began.
	startSize common.Size
}

func NewController(tf *view.Transform, store *tile.Store, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Controller{tf: tf, store: store, opts: opts}
}

func (c *Controller) State() State { return c.state }

// SetBlockWheel changes whether wheel zoom is ignored mid-gesture.
func (c *Controller) SetBlockWheel(block bool) {
	c.opts.BlockWheelDuringGesture = block
}

// Target is the tile being dragged or resized, or 0.
func (c *Controller) Target() int { return c.target }

// HitTest finds the topmost tile under a screen point and the part hit.
func (c *Controller) HitTest(screen cp.Vector) (int, Part) {
	world := c.tf.ToWorld(screen)
	tiles := c.store.Tiles()
	for i := len(tiles) - 1; i >= 0; i-- {
		t := tiles[i]
		if !t.Rect().Contains(world) {
			continue
		}
		switch {
		case t.HandleRect().Contains(world):
			return t.ID, Handle
		case t.HeaderRect().Contains(world):
			return t.ID, Header
		default:
			return t.ID, Body
		}
	}
	return 0, None
}

// PointerDown starts a gesture, or selects a tile when the body is hit.
func (c *Controller) PointerDown(p cp.Vector) State {
	if c.state != Idle {
		return c.state
	}
	c.last = p
	c.start = p

	id, part := c.HitTest(p)
	switch part {
	case None:
		if c.opts.Navigator != nil {
			c.opts.Navigator.Cancel()
		}
		c.state = Panning
	case Header:
		c.store.Select(id)
		c.store.BeginGesture(id)
		c.state, c.target = Dragging, id
	case Handle:
		t, _ := c.store.Get(id)
		c.store.Select(id)
		c.store.BeginGesture(id)
		c.store.SetPointerEvents(id, false)
		c.startSize = t.Size.Scale(c.tf.Scale())
		c.state, c.target = Resizing, id
	case Body:
		c.store.Select(id)
	}
	if c.state != Idle {
		c.opts.Logger.Debug("gesture started", "state", c.state, "tile", c.target)
	}
	return c.state
}

// PointerMove applies the active gesture.
func (c *Controller) PointerMove(p cp.Vector) {
	delta := p.Sub(c.last)
	c.last = p

	switch c.state {
	case Panning:
		c.tf.Pan(delta)
	case Dragging:
		t, ok := c.store.Get(c.target)
		if !ok {
			c.reset()
			return
		}
		c.store.SetPosition(c.target, t.Position.Add(delta.Mult(1/c.tf.Scale())))
	case Resizing:
		total := p.Sub(c.start)
		s := c.tf.Scale()
		size := common.Size{W: (c.startSize.W + total.X) / s, H: (c.startSize.H + total.Y) / s}
		if !c.store.SetSize(c.target, size) {
			c.reset()
		}
	}
}

// PointerUp ends the active gesture.
func (c *Controller) PointerUp(p cp.Vector) {
	switch c.state {
	case Dragging:
		c.store.EndGesture(c.target)
	case Resizing:
		c.store.SetPointerEvents(c.target, true)
		c.store.EndGesture(c.target)
	}
	if c.state != Idle {
		c.opts.Logger.Debug("gesture ended", "state", c.state, "tile", c.target)
	}
	c.reset()
}

// Wheel zooms about the cursor. Positive delta zooms out.
func (c *Controller) Wheel(p cp.Vector, delta float64) bool {
	if delta == 0 {
		return false
	}
	if c.opts.BlockWheelDuringGesture && c.state != Idle {
		return false
	}
	factor := ZoomInFactor
	if delta > 0 {
		factor = ZoomOutFactor
	}
	return c.tf.ZoomAbout(p, factor)
}

// Abort drops the active gesture without a final move, for when the host
// loses pointer capture.
func (c *Controller) Abort() {
	c.PointerUp(c.last)
}

func (c *Controller) reset() {
	c.state = Idle
	c.target = 0
	c.startSize = common.Size{}
}
