// Package surface defines the content surface each tile hosts: an opaque,
// embedded page renderer the engine can load, reload, navigate back, query
// and capture, plus the lifecycle events it reports.
package surface

import (
	"context"
	"image"
)

// HeaderHeight is the world-space height of a tile's header strip. The
// surface fills the rest of the tile.
const HeaderHeight = 30

type EventKind int

const (
	LoadStarted EventKind = iota
	LoadStopped
	LoadFailed
	DocumentReady
	// PopupRequested carries the address a page tried to open in a new window.
	PopupRequested
)

func (k EventKind) String() string {
	switch k {
	case LoadStarted:
		return "load-started"
	case LoadStopped:
		return "load-stopped"
	case LoadFailed:
		return "load-failed"
	case DocumentReady:
		return "document-ready"
	case PopupRequested:
		return "popup-requested"
	default:
		return "unknown"
	}
}

// Event is emitted by a surface. Sinks may be invoked from any goroutine.
type Event struct {
	Kind    EventKind
	Address string
	Reason  string
}

// Sink receives surface events.
type Sink func(Event)

// Surface is one tile's content renderer. Load, Reload, GoBack, Resize and
// Suspend must not block on the network; outcomes arrive as events.
type Surface interface {
	Load(address string) error
	Reload() error
	GoBack() error
	CanGoBack() bool
	// Query evaluates script (a JavaScript function expression) in the document.
	Query(ctx context.Context, script string) (any, error)
	Capture(ctx context.Context) (image.Image, error)
	Resize(width, height int) error
	SetPointerEvents(enabled bool)
	Suspend() error
	Close() error
}

// Provider opens a surface for a tile.
type Provider interface {
	Open(tileID int, sink Sink) (Surface, error)
}

// TitleScript reads the document title.
const TitleScript = `() => document.title`

// ContentSize converts a tile size in world units to the surface pixel size.
func ContentSize(width, height float64) (int, int) {
	h := height - HeaderHeight
	if h < 0 {
		h = 0
	}
	return int(width), int(h)
}
