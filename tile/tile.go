// Package tile owns the tiles on the canvas: their identity, geometry, load
// state and selection, plus the content surface each one hosts.
package tile

import (
	"strings"

	"github.com/jakecoffman/cp"

	"github.com/milk9111/tilecanvas/common"
	"github.com/milk9111/tilecanvas/surface"
)

const (
	MinWidth  = 200
	MinHeight = 150

	// HandleSize is the side of the bottom-right resize handle in world units.
	HandleSize = 16
)

// DefaultSize is used when a tile is created without an explicit size.
var DefaultSize = common.Size{W: 500, H: 300}

type LoadState int

const (
	Loaded LoadState = iota
	Unloaded
)

func (s LoadState) String() string {
	if s == Unloaded {
		return "unloaded"
	}
	return "loaded"
}

// Tile is a snapshot of one tile. Position is the single authoritative
// world-space top-left corner.
type Tile struct {
	ID       int
	Address  string
	Position cp.Vector
	Size     common.Size
	State    LoadState
	Selected bool
	// Title is the last document title seen for the tile, if any.
	Title string
}

func (t Tile) Rect() common.Rect {
	return common.Rect{Pos: t.Position, Size: t.Size}
}

// HeaderRect is the drag strip along the top of the tile.
func (t Tile) HeaderRect() common.Rect {
	return common.NewRect(t.Position.X, t.Position.Y, t.Size.W, surface.HeaderHeight)
}

// HandleRect is the resize handle in the bottom-right corner.
func (t Tile) HandleRect() common.Rect {
	max := t.Rect().Max()
	return common.NewRect(max.X-HandleSize, max.Y-HandleSize, HandleSize, HandleSize)
}

// Placeholder is what an unloaded tile shows in place of its content.
type Placeholder struct {
	ID      int
	Title   string
	Address string
}

// Label is the title when known, otherwise the address.
func (p Placeholder) Label() string {
	if p.Title != "" {
		return p.Title
	}
	return p.Address
}

// NormalizeAddress trims the address and prefixes https:// unless it already
// carries an http or https scheme.
func NormalizeAddress(address string) string {
	address = strings.TrimSpace(address)
	if address == "" {
		return ""
	}
	lower := strings.ToLower(address)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return address
	}
	return "https://" + address
}

// ClampSize enforces the minimum tile size.
func ClampSize(s common.Size) common.Size {
	if s.W < MinWidth {
		s.W = MinWidth
	}
	if s.H < MinHeight {
		s.H = MinHeight
	}
	return s
}
