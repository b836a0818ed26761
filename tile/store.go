package tile

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jakecoffman/cp"

	"github.com/milk9111/tilecanvas/common"
	"github.com/milk9111/tilecanvas/frame"
	"github.com/milk9111/tilecanvas/surface"
)

var (
	ErrEmptyAddress = errors.New("tile: empty address")
	ErrUnknownTile  = errors.New("tile: unknown tile")
	ErrDuplicateID  = errors.New("tile: duplicate id")
)

// Options configures a Store.
type Options struct {
	// Provider opens the content surface of each tile. Nil runs the store
	// without surfaces.
	Provider surface.Provider
	// Scheduler receives work completing off the UI thread. Nil applies it
	// on the calling goroutine, which is only safe in single-threaded tools.
	Scheduler *frame.Scheduler
	// TitleTimeout bounds a title query. Default: 5s.
	TitleTimeout time.Duration
	Logger       *log.Logger
}

type entry struct {
	tile    Tile
	surface surface.Surface
	query   *titleQuery
}

// Store is the insertion-ordered set of tiles. All methods must be called
// from the UI thread.
type Store struct {
	opts     Options
	logger   *log.Logger
	entries  map[int]*entry
	order    []int
	nextID   int
	selected int
	gesture  int
	obs      observers
}

func NewStore(opts Options) *Store {
	if opts.TitleTimeout <= 0 {
		opts.TitleTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Store{
		opts:    opts,
		logger:  opts.Logger,
		entries: make(map[int]*entry),
		nextID:  1,
	}
}

// Subscribe registers fn for every store event. The returned func removes it.
func (s *Store) Subscribe(fn func(Event)) func() {
	return s.obs.add(fn)
}

func (s *Store) emit(ev Event) {
	s.obs.emit(ev)
}

// Create adds a loaded tile at pos. A zero size selects DefaultSize.
func (s *Store) Create(address string, pos cp.Vector, size common.Size) (Tile, error) {
	address = NormalizeAddress(address)
	if address == "" {
		return Tile{}, ErrEmptyAddress
	}
	if size.W == 0 && size.H == 0 {
		size = DefaultSize
	}
	id := s.nextID
	s.nextID++
	return s.insert(Tile{ID: id, Address: address, Position: pos, Size: ClampSize(size), State: Loaded}), nil
}

// Restore re-creates a tile from persisted state, keeping its id.
func (s *Store) Restore(t Tile) (Tile, error) {
	t.Address = NormalizeAddress(t.Address)
	if t.Address == "" {
		return Tile{}, ErrEmptyAddress
	}
	if t.ID <= 0 {
		return Tile{}, fmt.Errorf("tile: restore: invalid id %d", t.ID)
	}
	if _, ok := s.entries[t.ID]; ok {
		return Tile{}, fmt.Errorf("tile: restore %d: %w", t.ID, ErrDuplicateID)
	}
	if t.ID >= s.nextID {
		s.nextID = t.ID + 1
	}
	t.Size = ClampSize(t.Size)
	t.Selected = false
	return s.insert(t), nil
}

func (s *Store) insert(t Tile) Tile {
	e := &entry{tile: t}
	s.entries[t.ID] = e
	s.order = append(s.order, t.ID)

	if s.opts.Provider != nil {
		id := t.ID
		surf, err := s.opts.Provider.Open(id, func(ev surface.Event) {
			s.post(func() { s.onSurfaceEvent(id, ev) })
		})
		if err != nil {
			s.logger.Warn("open surface failed", "tile", id, "error", err)
		} else {
			e.surface = surf
			s.resizeSurface(e)
			if t.State == Loaded {
				s.load(e)
			} else if err := surf.Suspend(); err != nil {
				s.logger.Debug("suspend failed", "tile", id, "error", err)
			}
		}
	}

	s.logger.Debug("created", "tile", t.ID, "url", t.Address)
	s.emit(Event{Kind: Created, ID: t.ID})
	return t
}

func (s *Store) post(fn func()) {
	if s.opts.Scheduler == nil {
		fn()
		return
	}
	s.opts.Scheduler.Post(fn)
}

func (s *Store) onSurfaceEvent(id int, ev surface.Event) {
	e, ok := s.entries[id]
	if !ok {
		return
	}
	switch ev.Kind {
	case surface.LoadFailed:
		s.logger.Warn("load failed", "tile", id, "url", ev.Address, "reason", ev.Reason)
	case surface.DocumentReady:
		s.resizeSurface(e)
	default:
		s.logger.Debug("surface event", "tile", id, "event", ev.Kind)
	}
	s.emit(Event{Kind: SurfaceEvent, ID: id, Surface: ev})
}

func (s *Store) load(e *entry) {
	if e.surface == nil {
		return
	}
	if err := e.surface.Load(e.tile.Address); err != nil {
		s.logger.Warn("load failed", "tile", e.tile.ID, "error", err)
	}
}

func (s *Store) resizeSurface(e *entry) {
	if e.surface == nil {
		return
	}
	w, h := surface.ContentSize(e.tile.Size.W, e.tile.Size.H)
	if err := e.surface.Resize(w, h); err != nil {
		s.logger.Debug("resize surface failed", "tile", e.tile.ID, "error", err)
	}
}

// Remove closes and deletes a tile.
func (s *Store) Remove(id int) bool {
	e, ok := s.entries[id]
	if !ok {
		return false
	}
	s.cancelQuery(e)
	if e.surface != nil {
		if err := e.surface.Close(); err != nil {
			s.logger.Debug("close surface failed", "tile", id, "error", err)
		}
	}
	delete(s.entries, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.gesture == id {
		s.gesture = 0
	}
	if s.selected == id {
		s.selected = 0
		s.emit(Event{Kind: SelectionChanged, ID: 0, Previous: id})
	}
	s.logger.Debug("removed", "tile", id)
	s.emit(Event{Kind: Removed, ID: id})
	return true
}

func (s *Store) SetPosition(id int, pos cp.Vector) bool {
	e, ok := s.entries[id]
	if !ok {
		return false
	}
	e.tile.Position = pos
	s.emit(Event{Kind: Moved, ID: id, Gesture: s.gesture == id})
	return true
}

// SetSize resizes a tile, clamped to the minimum. The surface follows
// immediately unless the tile is in a gesture; EndGesture reconciles it then.
func (s *Store) SetSize(id int, size common.Size) bool {
	e, ok := s.entries[id]
	if !ok {
		return false
	}
	e.tile.Size = ClampSize(size)
	inGesture := s.gesture == id
	if !inGesture {
		s.resizeSurface(e)
	}
	s.emit(Event{Kind: Resized, ID: id, Gesture: inGesture})
	return true
}

// SetLoadState moves a tile between Loaded and Unloaded. Setting the current
// state is a no-op returning false.
func (s *Store) SetLoadState(id int, state LoadState) bool {
	e, ok := s.entries[id]
	if !ok || e.tile.State == state {
		return false
	}
	e.tile.State = state
	s.cancelQuery(e)

	switch state {
	case Unloaded:
		if e.surface != nil {
			s.queryTitle(e)
			if err := e.surface.Suspend(); err != nil {
				s.logger.Debug("suspend failed", "tile", id, "error", err)
			}
		}
	case Loaded:
		s.load(e)
	}
	s.logger.Debug("load state", "tile", id, "state", state)
	s.emit(Event{Kind: LoadStateChanged, ID: id})
	return true
}

// Toggle flips the load state.
func (s *Store) Toggle(id int) bool {
	e, ok := s.entries[id]
	if !ok {
		return false
	}
	if e.tile.State == Loaded {
		return s.SetLoadState(id, Unloaded)
	}
	return s.SetLoadState(id, Loaded)
}

// Select makes id the only selected tile. Zero clears the selection.
func (s *Store) Select(id int) bool {
	if id != 0 {
		if _, ok := s.entries[id]; !ok {
			return false
		}
	}
	if s.selected == id {
		return true
	}
	prev := s.selected
	if e, ok := s.entries[prev]; ok {
		e.tile.Selected = false
	}
	if e, ok := s.entries[id]; ok {
		e.tile.Selected = true
	}
	s.selected = id
	s.emit(Event{Kind: SelectionChanged, ID: id, Previous: prev})
	return true
}

// Selected returns the selected tile id, or 0.
func (s *Store) Selected() int {
	return s.selected
}

func (s *Store) Get(id int) (Tile, bool) {
	e, ok := s.entries[id]
	if !ok {
		return Tile{}, false
	}
	return e.tile, true
}

// Tiles returns a snapshot in insertion order.
func (s *Store) Tiles() []Tile {
	out := make([]Tile, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.entries[id].tile)
	}
	return out
}

func (s *Store) Len() int {
	return len(s.order)
}

// NextID is the id the next created tile will get.
func (s *Store) NextID() int {
	return s.nextID
}

// Placeholder returns what an unloaded tile displays.
func (s *Store) Placeholder(id int) (Placeholder, bool) {
	e, ok := s.entries[id]
	if !ok || e.tile.State != Unloaded {
		return Placeholder{}, false
	}
	return Placeholder{ID: id, Title: e.tile.Title, Address: e.tile.Address}, true
}

// Reload asks a loaded tile's surface to reload.
func (s *Store) Reload(id int) bool {
	e, ok := s.entries[id]
	if !ok || e.surface == nil || e.tile.State != Loaded {
		return false
	}
	if err := e.surface.Reload(); err != nil {
		s.logger.Warn("reload failed", "tile", id, "error", err)
		return false
	}
	return true
}

// GoBack navigates a loaded tile back when its history allows.
func (s *Store) GoBack(id int) bool {
	e, ok := s.entries[id]
	if !ok || e.surface == nil || e.tile.State != Loaded || !e.surface.CanGoBack() {
		return false
	}
	if err := e.surface.GoBack(); err != nil {
		s.logger.Warn("back failed", "tile", id, "error", err)
		return false
	}
	return true
}

// SetPointerEvents toggles whether the tile's surface receives pointer input.
func (s *Store) SetPointerEvents(id int, enabled bool) bool {
	e, ok := s.entries[id]
	if !ok || e.surface == nil {
		return false
	}
	e.surface.SetPointerEvents(enabled)
	return true
}

// Capture rasterizes a tile's surface. It blocks until the surface answers
// or ctx ends.
func (s *Store) Capture(ctx context.Context, id int) (image.Image, error) {
	e, ok := s.entries[id]
	if !ok || e.surface == nil {
		return nil, fmt.Errorf("tile: capture %d: %w", id, ErrUnknownTile)
	}
	return e.surface.Capture(ctx)
}

// Surface exposes the content surface of a tile.
func (s *Store) Surface(id int) (surface.Surface, bool) {
	e, ok := s.entries[id]
	if !ok || e.surface == nil {
		return nil, false
	}
	return e.surface, true
}

// BeginGesture marks id as being dragged or resized.
func (s *Store) BeginGesture(id int) bool {
	if _, ok := s.entries[id]; !ok {
		return false
	}
	s.gesture = id
	return true
}

// EndGesture closes the gesture on id, reconciles its surface size and emits
// GestureEnded.
func (s *Store) EndGesture(id int) bool {
	if s.gesture != id || id == 0 {
		return false
	}
	s.gesture = 0
	if e, ok := s.entries[id]; ok {
		s.resizeSurface(e)
	}
	s.emit(Event{Kind: GestureEnded, ID: id})
	return true
}

// Gesture returns the tile currently in a gesture, or 0.
func (s *Store) Gesture() int {
	return s.gesture
}

// Close releases every surface and pending title query.
func (s *Store) Close() {
	for _, id := range s.order {
		e := s.entries[id]
		s.cancelQuery(e)
		if e.surface != nil {
			_ = e.surface.Close()
		}
	}
}
