package tile

import "github.com/milk9111/tilecanvas/surface"

type EventKind int

const (
	Created EventKind = iota
	Removed
	Moved
	Resized
	LoadStateChanged
	TitleChanged
	SelectionChanged
	GestureEnded
	// SurfaceEvent forwards a content-surface lifecycle event for a tile.
	SurfaceEvent
)

func (k EventKind) String() string {
	switch k {
	case Created:
		return "created"
	case Removed:
		return "removed"
	case Moved:
		return "moved"
	case Resized:
		return "resized"
	case LoadStateChanged:
		return "load-state-changed"
	case TitleChanged:
		return "title-changed"
	case SelectionChanged:
		return "selection-changed"
	case GestureEnded:
		return "gesture-ended"
	case SurfaceEvent:
		return "surface-event"
	default:
		return "unknown"
	}
}

// Event describes one store change. ID is the affected tile; for
// SelectionChanged it is the newly selected tile (0 for none) and Previous
// the one that lost selection.
type Event struct {
	Kind     EventKind
	ID       int
	Previous int
	// Gesture is set on Moved/Resized emitted while a gesture is in progress.
	Gesture bool
	Surface surface.Event
}

// Mutates reports whether the event changes what gets persisted.
func (e Event) Mutates() bool {
	switch e.Kind {
	case Created, Removed, LoadStateChanged, GestureEnded:
		return true
	case Moved, Resized:
		return !e.Gesture
	default:
		return false
	}
}

type subscription struct {
	id int
	fn func(Event)
}

type observers struct {
	next int
	subs []subscription
}

func (o *observers) add(fn func(Event)) func() {
	o.next++
	id := o.next
	o.subs = append(o.subs, subscription{id: id, fn: fn})
	return func() {
		for i, s := range o.subs {
			if s.id == id {
				o.subs = append(o.subs[:i:i], o.subs[i+1:]...)
				return
			}
		}
	}
}

func (o *observers) emit(ev Event) {
	subs := o.subs
	for _, s := range subs {
		s.fn(ev)
	}
}
