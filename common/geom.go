package common

import "github.com/jakecoffman/cp"

// Size is a width/height pair in whatever frame the caller works in.
type Size struct {
	W float64
	H float64
}

// Vector returns the size as a cp.Vector.
func (s Size) Vector() cp.Vector {
	return cp.Vector{X: s.W, Y: s.H}
}

// Scale multiplies both dimensions by f.
func (s Size) Scale(f float64) Size {
	return Size{W: s.W * f, H: s.H * f}
}

// Rect is an axis aligned rectangle anchored at its top-left corner.
// Y grows downward, as on screen.
type Rect struct {
	Pos  cp.Vector
	Size Size
}

func NewRect(x, y, w, h float64) Rect {
	return Rect{Pos: cp.Vector{X: x, Y: y}, Size: Size{W: w, H: h}}
}

// Max returns the bottom-right corner.
func (r Rect) Max() cp.Vector {
	return r.Pos.Add(r.Size.Vector())
}

// Center returns the middle of the rectangle.
func (r Rect) Center() cp.Vector {
	return r.Pos.Add(r.Size.Vector().Mult(0.5))
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p cp.Vector) bool {
	return r.BB().ContainsVect(p)
}

// BB converts r to a chipmunk bounding box. cp treats B/T as min/max Y, which
// lines up with a top-left anchored rect because only ordering matters.
func (r Rect) BB() cp.BB {
	max := r.Max()
	return cp.BB{L: r.Pos.X, B: r.Pos.Y, R: max.X, T: max.Y}
}

// RectFromBB is the inverse of Rect.BB.
func RectFromBB(bb cp.BB) Rect {
	return Rect{
		Pos:  cp.Vector{X: bb.L, Y: bb.B},
		Size: Size{W: bb.R - bb.L, H: bb.T - bb.B},
	}
}

// Pad grows r by pad on every side. A negative pad shrinks it.
func (r Rect) Pad(pad float64) Rect {
	return Rect{
		Pos:  r.Pos.Sub(cp.Vector{X: pad, Y: pad}),
		Size: Size{W: r.Size.W + 2*pad, H: r.Size.H + 2*pad},
	}
}
