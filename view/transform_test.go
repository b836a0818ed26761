package view

import (
	"testing"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/tilecanvas/common"
)

const eps = 1e-9

func nearVec(a, b cp.Vector) bool {
	return common.NearlyEqual(a.X, b.X, eps) && common.NearlyEqual(a.Y, b.Y, eps)
}

func TestToWorldToScreenInverse(t *testing.T) {
	tr := NewTransform()
	tr.SetScale(2.5)
	tr.SetTranslation(cp.Vector{X: -120, Y: 37})

	for _, p := range []cp.Vector{{}, {X: 10, Y: 10}, {X: -400, Y: 999}} {
		if got := tr.ToWorld(tr.ToScreen(p)); !nearVec(got, p) {
			t.Fatalf("round trip of %v gave %v", p, got)
		}
	}
}

func TestZoomAboutKeepsCursorAnchored(t *testing.T) {
	cases := []struct {
		name   string
		scale  float64
		factor float64
		cursor cp.Vector
	}{
		{"zoom_in_min", 0.1, 1.1, cp.Vector{X: 400, Y: 300}},
		{"zoom_out_unit", 1, 0.9, cp.Vector{X: 12, Y: 900}},
		{"zoom_in_large", 3.9, 1.1, cp.Vector{X: -50, Y: 20}},
		{"double", 1, 2, cp.Vector{X: 400, Y: 300}},
		{"clamped_max", 4, 1.1, cp.Vector{X: 1, Y: 1}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			tr := NewTransform()
			tr.SetScale(c.scale)
			tr.SetTranslation(cp.Vector{X: 33, Y: -71})
			before := tr.ToWorld(c.cursor)
			tr.ZoomAbout(c.cursor, c.factor)
			after := tr.ToWorld(c.cursor)
			if !nearVec(before, after) {
				t.Fatalf("world point under cursor moved: %v -> %v", before, after)
			}
			if tr.Scale() < MinScale || tr.Scale() > MaxScale {
				t.Fatalf("scale %v escaped bounds", tr.Scale())
			}
		})
	}
}

func TestZoomClampsAndReportsNoop(t *testing.T) {
	tr := NewTransform()
	tr.SetScale(MaxScale)
	if tr.ZoomAbout(cp.Vector{X: 5, Y: 5}, 1.1) {
		t.Fatalf("zoom past max should be a no-op")
	}
	tr.SetScale(0.11)
	tr.ZoomAbout(cp.Vector{}, 0.5)
	if tr.Scale() != MinScale {
		t.Fatalf("expected clamp to %v, got %v", MinScale, tr.Scale())
	}
}

func TestPanIsScaleIndependent(t *testing.T) {
	tr := NewTransform()
	tr.SetScale(3)
	tr.Pan(cp.Vector{X: 10, Y: -4})
	if tr.Translation() != (cp.Vector{X: 10, Y: -4}) {
		t.Fatalf("unexpected translation %v", tr.Translation())
	}
}

func TestVisibleWorld(t *testing.T) {
	tr := NewTransform()
	tr.SetScale(2)
	tr.SetTranslation(cp.Vector{X: -200, Y: 100})
	r := tr.VisibleWorld(common.Size{W: 800, H: 600})
	want := common.NewRect(100, -50, 400, 300)
	if !nearVec(r.Pos, want.Pos) || r.Size != want.Size {
		t.Fatalf("expected %+v, got %+v", want, r)
	}
}

func TestObserversNotified(t *testing.T) {
	tr := NewTransform()
	calls := 0
	tr.Observe(func(*Transform) { calls++ })
	tr.Pan(cp.Vector{X: 1})
	tr.ZoomAbout(cp.Vector{}, 1.1)
	tr.SetTranslation(tr.Translation())
	if calls != 2 {
		t.Fatalf("expected 2 notifications, got %d", calls)
	}
}
