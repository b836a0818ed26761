package minimap

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/jakecoffman/cp"

	"github.com/milk9111/tilecanvas/common"
	"github.com/milk9111/tilecanvas/frame"
	"github.com/milk9111/tilecanvas/tile"
	"github.com/milk9111/tilecanvas/view"
)

// Navigator moves the viewport to a world point.
type Navigator interface {
	NavigateTo(world cp.Vector, smooth bool)
}

// Proxy is one tile as drawn on the minimap.
type Proxy struct {
	ID       int
	Rect     common.Rect
	Unloaded bool
	Selected bool
	Hovered  bool
}

// Frame is the result of one redraw.
type Frame struct {
	Projection
	Proxies []Proxy
	// Viewport is the visible world rect in minimap pixels.
	Viewport common.Rect
	Seq      uint64
}

// HitTest returns the topmost proxy containing p.
func (f Frame) HitTest(p cp.Vector) (int, bool) {
	for i := len(f.Proxies) - 1; i >= 0; i-- {
		if f.Proxies[i].Rect.Contains(p) {
			return f.Proxies[i].ID, true
		}
	}
	return 0, false
}

type Options struct {
	// Size of the minimap canvas in pixels. Default: 240x180.
	Size    common.Size
	Visible bool
	Logger  *log.Logger
}

// Minimap keeps a Frame in sync with the store and transform. Redraw
// requests are coalesced to one per frame.
type Minimap struct {
	store *tile.Store
	tf    *view.Transform
	sched *frame.Scheduler
	nav   Navigator
	opts  Options

	viewport common.Size
	visible  bool
	pending  bool
	hovered  int
	frame    Frame
	redraws  uint64
	unsub    func()
}

func New(store *tile.Store, tf *view.Transform, sched *frame.Scheduler, nav Navigator, opts Options) *Minimap {
	if opts.Size.W <= 0 || opts.Size.H <= 0 {
		opts.Size = common.Size{W: 240, H: 180}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	m := &Minimap{
		store:   store,
		tf:      tf,
		sched:   sched,
		nav:     nav,
		opts:    opts,
		visible: opts.Visible,
	}
	m.unsub = store.Subscribe(func(ev tile.Event) {
		if ev.Kind != tile.SurfaceEvent {
			m.RequestRedraw()
		}
	})
	tf.Observe(func(*view.Transform) { m.RequestRedraw() })
	m.RequestRedraw()
	return m
}

// RequestRedraw schedules a redraw for the next frame unless one is pending.
func (m *Minimap) RequestRedraw() {
	if m.pending || !m.visible {
		return
	}
	m.pending = true
	m.sched.RequestFrame(m.redraw)
}

func (m *Minimap) redraw(time.Time) {
	m.pending = false
	if !m.visible {
		return
	}
	tiles := m.store.Tiles()
	proj := NewProjection(ComputeBounds(tiles), m.opts.Size)

	proxies := make([]Proxy, 0, len(tiles))
	for _, t := range tiles {
		proxies = append(proxies, Proxy{
			ID:       t.ID,
			Rect:     proj.ForwardRect(t.Rect()),
			Unloaded: t.State == tile.Unloaded,
			Selected: t.Selected,
			Hovered:  t.ID == m.hovered,
		})
	}
	m.redraws++
	m.frame = Frame{
		Projection: proj,
		Proxies:    proxies,
		Viewport:   proj.ForwardRect(m.tf.VisibleWorld(m.viewport)),
		Seq:        m.redraws,
	}
}

// Frame returns the last drawn frame.
func (m *Minimap) Frame() Frame {
	return m.frame
}

// Redraws counts completed redraws.
func (m *Minimap) Redraws() uint64 {
	return m.redraws
}

// Size is the minimap canvas size.
func (m *Minimap) Size() common.Size {
	return m.opts.Size
}

func (m *Minimap) SetSize(size common.Size) {
	if size.W <= 0 || size.H <= 0 || size == m.opts.Size {
		return
	}
	m.opts.Size = size
	m.RequestRedraw()
}

// SetViewport records the main view size used for the viewport indicator.
func (m *Minimap) SetViewport(size common.Size) {
	if size == m.viewport {
		return
	}
	m.viewport = size
	m.RequestRedraw()
}

func (m *Minimap) Visible() bool {
	return m.visible
}

func (m *Minimap) SetVisible(v bool) {
	if v == m.visible {
		return
	}
	m.visible = v
	m.opts.Logger.Debug("visibility", "visible", v)
	m.RequestRedraw()
}

func (m *Minimap) Toggle() {
	m.SetVisible(!m.visible)
}

// Hover highlights the proxy under p. Points outside any proxy clear it.
func (m *Minimap) Hover(p cp.Vector) {
	id, _ := m.frame.HitTest(p)
	if id == m.hovered {
		return
	}
	m.hovered = id
	m.RequestRedraw()
}

// Click recenters the main view on the world point under p.
func (m *Minimap) Click(p cp.Vector) bool {
	if !m.visible || m.frame.Scale == 0 {
		return false
	}
	world := m.frame.Inverse(p)
	if m.nav != nil {
		m.nav.NavigateTo(world, true)
	}
	return true
}

func (m *Minimap) Close() {
	if m.unsub != nil {
		m.unsub()
		m.unsub = nil
	}
}
