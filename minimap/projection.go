// Package minimap projects the whole canvas into a small overview and maps
// clicks on it back to world space.
package minimap

import (
	"math"

	"github.com/jakecoffman/cp"

	"github.com/milk9111/tilecanvas/common"
	"github.com/milk9111/tilecanvas/tile"
)

const (
	// Padding surrounds the union of tile rects, in world units.
	Padding = 200
	// Fill is the share of the minimap the bounds occupy.
	Fill = 0.9
)

// DefaultBounds is shown when there are no tiles.
var DefaultBounds = common.NewRect(-1000, -750, 2000, 1500)

// ComputeBounds is the padded union of every tile rect.
func ComputeBounds(tiles []tile.Tile) common.Rect {
	if len(tiles) == 0 {
		return DefaultBounds
	}
	bb := tiles[0].Rect().BB()
	for _, t := range tiles[1:] {
		bb = bb.Merge(t.Rect().BB())
	}
	return common.RectFromBB(bb).Pad(Padding)
}

// ProjectScale fits bounds into the minimap canvas.
func ProjectScale(canvas common.Size, bounds common.Rect) float64 {
	if bounds.Size.W <= 0 || bounds.Size.H <= 0 {
		return 0
	}
	return math.Min(canvas.W/bounds.Size.W, canvas.H/bounds.Size.H) * Fill
}

// Projection maps world space onto a minimap canvas.
type Projection struct {
	Bounds common.Rect
	Canvas common.Size
	Scale  float64
}

func NewProjection(bounds common.Rect, canvas common.Size) Projection {
	return Projection{Bounds: bounds, Canvas: canvas, Scale: ProjectScale(canvas, bounds)}
}

// Forward maps a world point to minimap pixels.
func (p Projection) Forward(world cp.Vector) cp.Vector {
	return world.Sub(p.Bounds.Center()).Mult(p.Scale).Add(p.Canvas.Vector().Mult(0.5))
}

// Inverse maps minimap pixels back to world space.
func (p Projection) Inverse(mini cp.Vector) cp.Vector {
	if p.Scale == 0 {
		return p.Bounds.Center()
	}
	return mini.Sub(p.Canvas.Vector().Mult(0.5)).Mult(1 / p.Scale).Add(p.Bounds.Center())
}

func (p Projection) ForwardRect(r common.Rect) common.Rect {
	return common.Rect{Pos: p.Forward(r.Pos), Size: r.Size.Scale(p.Scale)}
}
