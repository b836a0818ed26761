package main

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitenui/ebitenui"
	"github.com/ebitenui/ebitenui/widget"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/jakecoffman/cp"

	"github.com/milk9111/tilecanvas/canvas"
	"github.com/milk9111/tilecanvas/common"
	"github.com/milk9111/tilecanvas/config"
)

const minimapMargin = 12

// game adapts the canvas to ebiten's Update/Draw loop.
type game struct {
	ctx     context.Context
	c       *canvas.Canvas
	cfg     config.Config
	reloads <-chan config.Config
	logger  *log.Logger

	ui     *ebitenui.UI
	dialog *addressDialog
	face   text.Face
	small  text.Face

	rasters   *rasterCache
	clipboard *clipboardReader

	lastCapture  time.Time
	minimapDrag  bool
	lastPointer  cp.Vector
	pointerInUse bool
}

func newGame(ctx context.Context, c *canvas.Canvas, cfg config.Config, reloads <-chan config.Config, logger *log.Logger) (*game, error) {
	face, err := newFontFace(14)
	if err != nil {
		return nil, err
	}
	small, err := newFontFace(12)
	if err != nil {
		return nil, err
	}
	g := &game{
		ctx:       ctx,
		c:         c,
		cfg:       cfg,
		reloads:   reloads,
		logger:    logger,
		face:      face,
		small:     small,
		rasters:   newRasterCache(),
		clipboard: newClipboardReader(logger),
	}
	g.ui, g.dialog = newUI(&g.face, g.open)
	return g, nil
}

func (g *game) open(address string) {
	if _, err := g.c.Open(address); err != nil {
		g.logger.Warn("open failed", "url", address, "error", err)
	}
}

func (g *game) Update() error {
	if g.ctx.Err() != nil {
		return ebiten.Termination
	}
	now := time.Now()
	g.c.Tick(now)
	g.applyReloads()

	typing := g.dialog.Visible()
	if fw := g.ui.GetFocusedWidget(); fw != nil {
		if _, ok := fw.(*widget.TextInput); ok {
			typing = true
		}
	}
	if !typing {
		g.handleKeys()
		g.handlePointer()
	} else if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		g.dialog.Close()
	}

	if now.Sub(g.lastCapture) >= g.cfg.Browser.CaptureInterval {
		g.lastCapture = now
		g.c.RefreshCaptures(g.cfg.Browser.CaptureInterval)
	}
	g.rasters.prune(g.c)

	g.ui.Update()
	return nil
}

func (g *game) applyReloads() {
	select {
	case cfg, ok := <-g.reloads:
		if !ok {
			g.reloads = nil
			return
		}
		g.c.Minimap.SetVisible(cfg.Minimap.Visible)
		g.c.Minimap.SetSize(common.Size{W: float64(cfg.Minimap.Width), H: float64(cfg.Minimap.Height)})
		g.c.Input.SetBlockWheel(cfg.Interaction.BlockWheelDuringGesture)
		g.cfg.Minimap = cfg.Minimap
		g.cfg.Interaction = cfg.Interaction
		g.cfg.Browser.CaptureInterval = cfg.Browser.CaptureInterval
		g.logger.Info("config reloaded")
	default:
	}
}

func (g *game) handleKeys() {
	ctrl := ebiten.IsKeyPressed(ebiten.KeyControl) || ebiten.IsKeyPressed(ebiten.KeyMeta)
	shift := ebiten.IsKeyPressed(ebiten.KeyShift)

	switch {
	case ctrl && inpututil.IsKeyJustPressed(ebiten.KeyN):
		g.dialog.Open()
	case ctrl && shift && inpututil.IsKeyJustPressed(ebiten.KeyV):
		if address, ok := g.clipboard.Text(); ok {
			g.open(address)
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyM):
		g.c.Minimap.Toggle()
	case inpututil.IsKeyJustPressed(ebiten.KeyDelete):
		g.c.CloseSelected()
	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		g.c.ReloadSelected()
	case inpututil.IsKeyJustPressed(ebiten.KeyU):
		g.c.ToggleSelected()
	case inpututil.IsKeyJustPressed(ebiten.KeyBackspace):
		g.c.BackSelected()
	case inpututil.IsKeyJustPressed(ebiten.KeyF):
		g.c.Focus(g.c.Store.Selected())
	case inpututil.IsKeyJustPressed(ebiten.KeyHome):
		g.c.ResetView()
	case inpututil.IsKeyJustPressed(ebiten.KeyEscape):
		g.c.Input.Abort()
	}
}

func (g *game) handlePointer() {
	x, y := ebiten.CursorPosition()
	p := cp.Vector{X: float64(x), Y: float64(y)}
	mini := g.minimapRect()
	inMini := g.c.Minimap.Visible() && mini.Contains(p)

	if inMini {
		g.c.Minimap.Hover(p.Sub(mini.Pos))
	} else {
		g.c.Minimap.Hover(cp.Vector{X: -1, Y: -1})
	}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		if inMini {
			g.minimapDrag = true
			g.c.Minimap.Click(p.Sub(mini.Pos))
		} else {
			g.pointerInUse = true
			g.c.Input.PointerDown(p)
		}
	} else if ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) && p != g.lastPointer {
		switch {
		case g.pointerInUse:
			g.c.Input.PointerMove(p)
		case g.minimapDrag && inMini:
			g.c.Minimap.Click(p.Sub(mini.Pos))
		}
	}
	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		if g.pointerInUse {
			g.c.Input.PointerUp(p)
		}
		g.pointerInUse = false
		g.minimapDrag = false
	}
	g.lastPointer = p

	if _, yoff := ebiten.Wheel(); yoff != 0 && !inMini {
		// ebiten reports positive yoff for wheel-up; the controller zooms
		// out on positive deltas.
		g.c.Input.Wheel(p, -yoff)
	}
}

// minimapRect is the minimap panel in screen pixels, anchored bottom-right.
func (g *game) minimapRect() common.Rect {
	size := g.c.Minimap.Size()
	vp := g.c.Viewport()
	return common.NewRect(vp.W-size.W-minimapMargin, vp.H-size.H-minimapMargin, size.W, size.H)
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(canvasBackground)
	for _, t := range g.c.Store.Tiles() {
		g.drawTile(screen, t)
	}
	if g.c.Minimap.Visible() {
		g.drawMinimap(screen, g.minimapRect())
	}
	g.drawStatus(screen)
	g.ui.Draw(screen)
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.c.SetViewport(common.Size{W: float64(outsideWidth), H: float64(outsideHeight)})
	return outsideWidth, outsideHeight
}
