package input

import (
	"testing"

	"github.com/jakecoffman/cp"

	"github.com/milk9111/tilecanvas/common"
	"github.com/milk9111/tilecanvas/surface"
	"github.com/milk9111/tilecanvas/tile"
	"github.com/milk9111/tilecanvas/view"
)

type countingCanceler struct{ n int }

func (c *countingCanceler) Cancel() { c.n++ }

func setup(t *testing.T, opts Options) (*Controller, *view.Transform, *tile.Store, *surface.Memory, tile.Tile) {
	t.Helper()
	mem := surface.NewMemory()
	store := tile.NewStore(tile.Options{Provider: mem})
	tf := view.NewTransform()
	a, err := store.Create("a.com", cp.Vector{X: 100, Y: 100}, common.Size{W: 500, H: 300})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return NewController(tf, store, opts), tf, store, mem, a
}

func TestDragDividesByScale(t *testing.T) {
	c, tf, store, _, a := setup(t, Options{})
	tf.SetScale(2)

	var ended int
	store.Subscribe(func(ev tile.Event) {
		if ev.Kind == tile.GestureEnded {
			ended++
		}
	})

	down := tf.ToScreen(cp.Vector{X: 150, Y: 110})
	if st := c.PointerDown(down); st != Dragging {
		t.Fatalf("state = %v, want dragging", st)
	}
	if store.Selected() != a.ID {
		t.Fatalf("dragged tile not selected")
	}
	c.PointerMove(down.Add(cp.Vector{X: 20, Y: 10}))
	c.PointerMove(down.Add(cp.Vector{X: 40, Y: 20}))
	c.PointerUp(down.Add(cp.Vector{X: 40, Y: 20}))

	got, _ := store.Get(a.ID)
	if got.Position != (cp.Vector{X: 120, Y: 110}) {
		t.Fatalf("position = %v, want (120,110)", got.Position)
	}
	if c.State() != Idle || ended != 1 {
		t.Fatalf("state = %v, gesture ends = %d", c.State(), ended)
	}
}

func TestResizeDividesByScaleAndClamps(t *testing.T) {
	cases := []struct {
		name  string
		delta cp.Vector
		want  common.Size
	}{
		{"grow", cp.Vector{X: 100, Y: 40}, common.Size{W: 550, H: 320}},
		{"clamp", cp.Vector{X: -900, Y: -1000}, common.Size{W: tile.MinWidth, H: tile.MinHeight}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, tf, store, mem, a := setup(t, Options{})
			tf.SetScale(2)
			rec, _ := mem.Surface(a.ID)

			down := tf.ToScreen(cp.Vector{X: 595, Y: 395})
			if st := c.PointerDown(down); st != Resizing {
				t.Fatalf("state = %v, want resizing", st)
			}
			if rec.PointerEvents() {
				t.Fatalf("surface still receives pointer events")
			}
			c.PointerMove(down.Add(tc.delta))
			c.PointerUp(down.Add(tc.delta))

			got, _ := store.Get(a.ID)
			if got.Size != tc.want {
				t.Fatalf("size = %+v, want %+v", got.Size, tc.want)
			}
			if !rec.PointerEvents() {
				t.Fatalf("pointer events not restored")
			}
			w, h := rec.Size()
			if w != int(tc.want.W) || h != int(tc.want.H)-surface.HeaderHeight {
				t.Fatalf("surface size = %dx%d", w, h)
			}
		})
	}
}

func TestPanUsesScreenUnitsAndCancelsNavigation(t *testing.T) {
	nav := &countingCanceler{}
	c, tf, _, _, _ := setup(t, Options{Navigator: nav})
	tf.SetScale(3)

	if st := c.PointerDown(cp.Vector{X: 10, Y: 10}); st != Panning {
		t.Fatalf("state = %v, want panning", st)
	}
	c.PointerMove(cp.Vector{X: 40, Y: 50})
	c.PointerUp(cp.Vector{X: 40, Y: 50})

	if tr := tf.Translation(); tr != (cp.Vector{X: 30, Y: 40}) {
		t.Fatalf("translation = %v", tr)
	}
	if nav.n != 1 {
		t.Fatalf("navigator cancelled %d times", nav.n)
	}
}

func TestBodyClickSelectsWithoutGesture(t *testing.T) {
	c, _, store, _, a := setup(t, Options{})
	if st := c.PointerDown(cp.Vector{X: 300, Y: 250}); st != Idle {
		t.Fatalf("state = %v, want idle", st)
	}
	if store.Selected() != a.ID {
		t.Fatalf("body click did not select")
	}
}

func TestHitTestPrefersTopmost(t *testing.T) {
	c, _, store, _, _ := setup(t, Options{})
	b, _ := store.Create("b.com", cp.Vector{X: 300, Y: 200}, common.Size{})

	id, part := c.HitTest(cp.Vector{X: 350, Y: 210})
	if id != b.ID || part != Header {
		t.Fatalf("hit = %d/%v, want %d/header", id, part, b.ID)
	}
	if id, _ := c.HitTest(cp.Vector{X: 2000, Y: 2000}); id != 0 {
		t.Fatalf("hit empty space = %d", id)
	}
}

func TestWheel(t *testing.T) {
	cases := []struct {
		name    string
		block   bool
		gesture bool
		delta   float64
		want    float64
	}{
		{"zoom in", false, false, -1, 1.1},
		{"zoom out", false, false, 1, 0.9},
		{"allowed mid gesture", false, true, -1, 1.1},
		{"blocked mid gesture", true, true, -1, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, tf, _, _, _ := setup(t, Options{BlockWheelDuringGesture: tc.block})
			if tc.gesture {
				c.PointerDown(cp.Vector{X: 150, Y: 110})
			}
			c.Wheel(cp.Vector{X: 400, Y: 300}, tc.delta)
			if !common.NearlyEqual(tf.Scale(), tc.want, 1e-12) {
				t.Fatalf("scale = %v, want %v", tf.Scale(), tc.want)
			}
		})
	}
}
