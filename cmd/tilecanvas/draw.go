package main

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/colornames"

	"github.com/milk9111/tilecanvas/canvas"
	"github.com/milk9111/tilecanvas/common"
	"github.com/milk9111/tilecanvas/surface"
	"github.com/milk9111/tilecanvas/tile"
)

var (
	canvasBackground = color.RGBA{R: 0x1e, G: 0x1e, B: 0x24, A: 0xff}
	tileBackground   = color.RGBA{R: 0xf4, G: 0xf4, B: 0xf4, A: 0xff}
	headerColor      = color.RGBA{R: 0x3a, G: 0x3d, B: 0x46, A: 0xff}
	placeholderColor = color.RGBA{R: 0x55, G: 0x58, B: 0x60, A: 0xff}
	selectedColor    = color.RGBA{R: 0x4a, G: 0x9e, B: 0xff, A: 0xff}
	minimapPanel     = color.RGBA{R: 0x10, G: 0x10, B: 0x14, A: 0xd0}
	proxyColor       = color.RGBA{R: 0x9a, G: 0xa4, B: 0xb4, A: 0xff}
	proxyUnloaded    = color.RGBA{R: 0x5a, G: 0x5e, B: 0x66, A: 0xff}
)

// rasterCache keeps one GPU image per tile, rebuilt when a newer capture
// arrives.
type rasterCache struct {
	images map[int]*ebiten.Image
	at     map[int]time.Time
}

func newRasterCache() *rasterCache {
	return &rasterCache{images: map[int]*ebiten.Image{}, at: map[int]time.Time{}}
}

func (rc *rasterCache) get(c *canvas.Canvas, id int) (*ebiten.Image, bool) {
	src, at, ok := c.Raster(id)
	if !ok {
		return nil, false
	}
	if img, ok := rc.images[id]; ok && rc.at[id].Equal(at) {
		return img, true
	}
	if old, ok := rc.images[id]; ok {
		old.Deallocate()
	}
	img := ebiten.NewImageFromImage(src)
	rc.images[id] = img
	rc.at[id] = at
	return img, true
}

// prune drops images of tiles that no longer exist or are unloaded.
func (rc *rasterCache) prune(c *canvas.Canvas) {
	for id, img := range rc.images {
		t, ok := c.Store.Get(id)
		if ok && t.State == tile.Loaded {
			continue
		}
		img.Deallocate()
		delete(rc.images, id)
		delete(rc.at, id)
	}
}

func fillRect(dst *ebiten.Image, r common.Rect, clr color.Color) {
	vector.FillRect(dst, float32(r.Pos.X), float32(r.Pos.Y), float32(r.Size.W), float32(r.Size.H), clr, false)
}

func strokeRect(dst *ebiten.Image, r common.Rect, width float32, clr color.Color) {
	vector.StrokeRect(dst, float32(r.Pos.X), float32(r.Pos.Y), float32(r.Size.W), float32(r.Size.H), width, clr, false)
}

// drawText draws s clipped to r.
func drawText(dst *ebiten.Image, s string, face text.Face, r common.Rect, pad float64, clr color.Color) {
	clip := image.Rect(int(r.Pos.X), int(r.Pos.Y), int(r.Pos.X+r.Size.W), int(r.Pos.Y+r.Size.H))
	sub, ok := dst.SubImage(clip).(*ebiten.Image)
	if !ok || clip.Empty() {
		return
	}
	_, h := text.Measure(s, face, 0)
	op := &text.DrawOptions{}
	op.GeoM.Translate(r.Pos.X+pad, r.Pos.Y+(r.Size.H-h)/2)
	op.ColorScale.ScaleWithColor(clr)
	text.Draw(sub, s, face, op)
}

func (g *game) drawTile(screen *ebiten.Image, t tile.Tile) {
	tf := g.c.Transform
	body := tf.RectToScreen(t.Rect())
	if !body.BB().Intersects(common.NewRect(0, 0, g.c.Viewport().W, g.c.Viewport().H).BB()) {
		return
	}
	header := tf.RectToScreen(t.HeaderRect())
	content := common.NewRect(body.Pos.X, header.Pos.Y+header.Size.H, body.Size.W, body.Size.H-header.Size.H)

	fillRect(screen, body, tileBackground)

	switch {
	case t.State == tile.Unloaded:
		fillRect(screen, content, placeholderColor)
		if ph, ok := g.c.Store.Placeholder(t.ID); ok {
			drawText(screen, ph.Label(), g.face, content, 12, colornames.Whitesmoke)
		}
	default:
		if img, ok := g.rasters.get(g.c, t.ID); ok {
			b := img.Bounds()
			op := &ebiten.DrawImageOptions{}
			op.GeoM.Scale(content.Size.W/float64(b.Dx()), content.Size.H/float64(b.Dy()))
			op.GeoM.Translate(content.Pos.X, content.Pos.Y)
			op.Filter = ebiten.FilterLinear
			screen.DrawImage(img, op)
		}
	}

	fillRect(screen, header, headerColor)
	label := t.Address
	if t.Title != "" {
		label = t.Title
	}
	if t.State == tile.Unloaded {
		label = "[unloaded] " + label
	}
	drawText(screen, label, g.small, header, 8, colornames.White)

	handle := tf.RectToScreen(t.HandleRect())
	fillRect(screen, handle, colornames.Darkgray)

	if t.Selected {
		strokeRect(screen, body, 2, selectedColor)
	} else {
		strokeRect(screen, body, 1, colornames.Dimgray)
	}
}

func (g *game) drawMinimap(screen *ebiten.Image, r common.Rect) {
	fillRect(screen, r, minimapPanel)
	f := g.c.Minimap.Frame()
	for _, p := range f.Proxies {
		pr := p.Rect
		pr.Pos = pr.Pos.Add(r.Pos)
		clr := color.Color(proxyColor)
		if p.Unloaded {
			clr = proxyUnloaded
		}
		fillRect(screen, pr, clr)
		switch {
		case p.Selected:
			strokeRect(screen, pr, 2, selectedColor)
		case p.Hovered:
			strokeRect(screen, pr, 1, colornames.White)
		}
	}
	vp := f.Viewport
	vp.Pos = vp.Pos.Add(r.Pos)
	strokeRect(screen, vp, 1, colornames.Gold)
	strokeRect(screen, r, 1, colornames.Dimgray)
}

func (g *game) drawStatus(screen *ebiten.Image) {
	status := fmt.Sprintf("%d%%  tiles: %d", g.c.Transform.Percent(), g.c.Store.Len())
	drawText(screen, status, g.small, common.NewRect(0, 0, 240, surface.HeaderHeight), 10, colornames.Lightgray)
}
