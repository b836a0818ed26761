package surface

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"sync"
)

// ErrClosed is returned by a Recorder after Close.
var ErrClosed = errors.New("surface: closed")

// Memory is a Provider of in-process Recorders. It backs --no-browser mode
// and the engine's tests.
type Memory struct {
	mu       sync.Mutex
	surfaces map[int]*Recorder

	// Title is what title queries resolve to unless a Recorder overrides it.
	Title string
	// HoldQueries makes Query block until ReleaseQueries or ctx cancellation.
	HoldQueries bool
	release     chan struct{}
}

func NewMemory() *Memory {
	return &Memory{surfaces: make(map[int]*Recorder), release: make(chan struct{})}
}

func (m *Memory) Open(tileID int, sink Sink) (Surface, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := &Recorder{
		id:      tileID,
		sink:    sink,
		pointer: true,
		title:   m.Title,
		hold:    m.HoldQueries,
		release: m.release,
	}
	m.surfaces[tileID] = r
	return r, nil
}

// Surface returns the recorder opened for tileID, if any.
func (m *Memory) Surface(tileID int) (*Recorder, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.surfaces[tileID]
	return r, ok
}

// ReleaseQueries unblocks every held Query.
func (m *Memory) ReleaseQueries() {
	m.mu.Lock()
	defer m.mu.Unlock()
	close(m.release)
	m.release = make(chan struct{})
}

// Recorder is a Surface that remembers what was asked of it.
type Recorder struct {
	mu sync.Mutex

	id        int
	sink      Sink
	title     string
	hold      bool
	release   chan struct{}
	pointer   bool
	suspended bool
	closed    bool
	history   []string
	loads     []string
	reloads   int
	queries   int
	width     int
	height    int
}

func (r *Recorder) Load(address string) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.loads = append(r.loads, address)
	r.history = append(r.history, address)
	r.suspended = false
	sink := r.sink
	r.mu.Unlock()

	if sink != nil {
		sink(Event{Kind: LoadStarted, Address: address})
		sink(Event{Kind: DocumentReady, Address: address})
		sink(Event{Kind: LoadStopped, Address: address})
	}
	return nil
}

func (r *Recorder) Reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.reloads++
	return nil
}

func (r *Recorder) GoBack() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if len(r.history) > 1 {
		r.history = r.history[:len(r.history)-1]
	}
	return nil
}

func (r *Recorder) CanGoBack() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.history) > 1
}

func (r *Recorder) Query(ctx context.Context, script string) (any, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	r.queries++
	hold, release, title := r.hold, r.release, r.title
	r.mu.Unlock()

	if hold {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if script == TitleScript {
		return title, nil
	}
	return nil, nil
}

func (r *Recorder) Capture(ctx context.Context) (image.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	w, h := r.width, r.height
	if w <= 0 || h <= 0 {
		w, h = 1, 1
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}}, image.Point{}, draw.Src)
	return img, nil
}

func (r *Recorder) Resize(width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.width, r.height = width, height
	return nil
}

func (r *Recorder) SetPointerEvents(enabled bool) {
	r.mu.Lock()
	r.pointer = enabled
	r.mu.Unlock()
}

func (r *Recorder) Suspend() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.suspended = true
	return nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// SetTitle changes what title queries resolve to.
func (r *Recorder) SetTitle(title string) {
	r.mu.Lock()
	r.title = title
	r.mu.Unlock()
}

// Emit pushes an event through the recorder's sink as a real surface would.
func (r *Recorder) Emit(ev Event) {
	r.mu.Lock()
	sink := r.sink
	r.mu.Unlock()
	if sink != nil {
		sink(ev)
	}
}

func (r *Recorder) Loads() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.loads...)
}

func (r *Recorder) Reloads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reloads
}

func (r *Recorder) Queries() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.queries
}

func (r *Recorder) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

func (r *Recorder) PointerEvents() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pointer
}

func (r *Recorder) Suspended() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.suspended
}

func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
