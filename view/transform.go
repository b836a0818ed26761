// Package view holds the world -> viewport transform.
package view

import (
	"math"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/tilecanvas/common"
)

const (
	MinScale = 0.1
	MaxScale = 4.0
)

// Transform maps world space onto the viewport: screen = world*scale + translation.
type Transform struct {
	translation cp.Vector
	scale       float64

	observers []func(*Transform)
}

// NewTransform returns the identity transform.
func NewTransform() *Transform {
	return &Transform{scale: 1}
}

// Translation returns the screen-space offset of the world origin.
func (t *Transform) Translation() cp.Vector {
	if t == nil {
		return cp.Vector{}
	}
	return t.translation
}

// Scale returns the current zoom factor.
func (t *Transform) Scale() float64 {
	if t == nil || t.scale == 0 {
		return 1
	}
	return t.scale
}

// Percent is the zoom level as shown to the user, e.g. 150 for 1.5x.
func (t *Transform) Percent() int {
	return int(math.Round(t.Scale() * 100))
}

// ToScreen converts a world point to viewport coordinates.
func (t *Transform) ToScreen(world cp.Vector) cp.Vector {
	return world.Mult(t.Scale()).Add(t.Translation())
}

// ToWorld converts a viewport point to world coordinates.
func (t *Transform) ToWorld(screen cp.Vector) cp.Vector {
	return screen.Sub(t.Translation()).Mult(1 / t.Scale())
}

// RectToScreen projects a world rect into the viewport.
func (t *Transform) RectToScreen(r common.Rect) common.Rect {
	return common.Rect{Pos: t.ToScreen(r.Pos), Size: r.Size.Scale(t.Scale())}
}

// VisibleWorld returns the world-space rect covered by a viewport of the given size.
func (t *Transform) VisibleWorld(viewport common.Size) common.Rect {
	s := t.Scale()
	return common.Rect{
		Pos:  t.Translation().Neg().Mult(1 / s),
		Size: viewport.Scale(1 / s),
	}
}

// ZoomAbout rescales by factor while keeping the world point under p fixed.
// It reports whether anything changed; a zoom pinned at a scale limit is a no-op.
func (t *Transform) ZoomAbout(p cp.Vector, factor float64) bool {
	if t == nil || factor <= 0 {
		return false
	}
	old := t.Scale()
	next := common.Clamp(old*factor, MinScale, MaxScale)
	if next == old {
		return false
	}
	ratio := next / old
	t.translation = p.Sub(p.Sub(t.translation).Mult(ratio))
	t.scale = next
	t.notify()
	return true
}

// Pan shifts the world by a screen-space delta, independent of scale.
func (t *Transform) Pan(delta cp.Vector) {
	if t == nil || (delta.X == 0 && delta.Y == 0) {
		return
	}
	t.translation = t.translation.Add(delta)
	t.notify()
}

// SetTranslation replaces the translation outright.
func (t *Transform) SetTranslation(v cp.Vector) {
	if t == nil || t.translation.Equal(v) {
		return
	}
	t.translation = v
	t.notify()
}

// SetScale replaces the scale, clamped to [MinScale, MaxScale].
func (t *Transform) SetScale(s float64) {
	if t == nil || s <= 0 {
		return
	}
	s = common.Clamp(s, MinScale, MaxScale)
	if s == t.scale {
		return
	}
	t.scale = s
	t.notify()
}

// Reset returns to identity.
func (t *Transform) Reset() {
	if t == nil {
		return
	}
	t.translation = cp.Vector{}
	t.scale = 1
	t.notify()
}

// CenterOn returns the translation that puts world at the middle of the
// viewport at the current scale, without applying it.
func (t *Transform) CenterOn(world cp.Vector, viewport common.Size) cp.Vector {
	return world.Mult(-t.Scale()).Add(viewport.Vector().Mult(0.5))
}

// Observe registers fn to run after every change.
func (t *Transform) Observe(fn func(*Transform)) {
	if t == nil || fn == nil {
		return
	}
	t.observers = append(t.observers, fn)
}

func (t *Transform) notify() {
	for _, fn := range t.observers {
		fn(t)
	}
}
