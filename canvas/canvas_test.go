package canvas

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/jakecoffman/cp"

	"github.com/milk9111/tilecanvas/blobstore"
	"github.com/milk9111/tilecanvas/common"
	"github.com/milk9111/tilecanvas/layout"
	"github.com/milk9111/tilecanvas/minimap"
	"github.com/milk9111/tilecanvas/surface"
	"github.com/milk9111/tilecanvas/tile"
)

func newTestCanvas(t *testing.T, blobs blobstore.Store) (*Canvas, *surface.Memory) {
	t.Helper()
	mem := surface.NewMemory()
	mem.Title = "Example Domain"
	c := New(Options{
		Provider: mem,
		Blobs:    blobs,
		Viewport: common.Size{W: 800, H: 600},
		Minimap:  minimap.Options{Visible: true},
	})
	t.Cleanup(c.Close)
	return c, mem
}

func tickUntil(t *testing.T, c *Canvas, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		c.Tick(time.Now())
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not reached")
}

func nearly(a, b cp.Vector) bool {
	return common.NearlyEqual(a.X, b.X, 1e-9) && common.NearlyEqual(a.Y, b.Y, 1e-9)
}

func TestCreateZoomUnload(t *testing.T) {
	c, mem := newTestCanvas(t, nil)

	a, err := c.Store.Create("example.com", cp.Vector{X: 100, Y: 100}, common.Size{W: 500, H: 300})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	rec, _ := mem.Surface(a.ID)

	cursor := cp.Vector{X: 400, Y: 300}
	before := c.Transform.ToWorld(cursor)
	c.Transform.ZoomAbout(cursor, 2)
	if c.Transform.Percent() != 200 {
		t.Fatalf("zoom = %d%%", c.Transform.Percent())
	}
	if after := c.Transform.ToWorld(cursor); !nearly(before, after) {
		t.Fatalf("cursor moved in world space: %v -> %v", before, after)
	}

	screen := c.Transform.RectToScreen(a.Rect())
	if screen.Size != (common.Size{W: 1000, H: 600}) {
		t.Fatalf("screen size = %+v", screen.Size)
	}
	if want := (cp.Vector{X: -200, Y: -100}); !nearly(screen.Pos, want) {
		t.Fatalf("screen pos = %v, want %v", screen.Pos, want)
	}

	loads := len(rec.Loads())
	c.Store.Toggle(a.ID)
	tickUntil(t, c, func() bool {
		got, _ := c.Store.Get(a.ID)
		return got.Title != ""
	})
	ph, ok := c.Store.Placeholder(a.ID)
	if !ok || ph.Address != "https://example.com" || ph.Label() != "Example Domain" {
		t.Fatalf("placeholder = %+v, %v", ph, ok)
	}

	c.Transform.Pan(cp.Vector{X: 10})
	c.Store.SetPosition(a.ID, cp.Vector{X: 120, Y: 100})
	c.Tick(time.Now())
	if got := len(rec.Loads()); got != loads {
		t.Fatalf("unloaded surface received %d more loads", got-loads)
	}
}

func TestRestoreDemoLayoutAndPersist(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	blobs.Put(ctx, layout.Key, []byte("not json"))

	c, _ := newTestCanvas(t, blobs)
	if n := c.Restore(ctx); n != 3 {
		t.Fatalf("restored %d tiles", n)
	}
	var addrs []string
	for _, tl := range c.Store.Tiles() {
		addrs = append(addrs, tl.Address)
	}
	want := []string{"https://news.ycombinator.com", "https://www.wikipedia.org", "https://github.com"}
	if !reflect.DeepEqual(addrs, want) {
		t.Fatalf("addresses = %v", addrs)
	}

	c.Store.Remove(2)
	c.Flush()
	got := layout.Deserialize(mustGet(t, blobs))
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 3 {
		t.Fatalf("persisted = %+v", got)
	}

	n, _ := c.Open("example.org")
	if n.ID != 4 {
		t.Fatalf("new id = %d, want 4", n.ID)
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()

	first, _ := newTestCanvas(t, blobs)
	first.Restore(ctx)
	first.Store.SetPosition(1, cp.Vector{X: -50, Y: 25})
	first.Store.SetSize(3, common.Size{W: 640, H: 480})
	first.Store.Toggle(2)
	first.Flush()
	saved := first.Store.Tiles()

	second, _ := newTestCanvas(t, blobs)
	second.Restore(ctx)
	restored := second.Store.Tiles()
	if len(restored) != len(saved) {
		t.Fatalf("restored %d of %d", len(restored), len(saved))
	}
	for i := range saved {
		s, r := saved[i], restored[i]
		if s.ID != r.ID || s.Address != r.Address || s.Position != r.Position || s.Size != r.Size || s.State != r.State {
			t.Fatalf("tile %d: saved %+v restored %+v", i, s, r)
		}
	}
}

func TestOpenCentersInViewport(t *testing.T) {
	c, _ := newTestCanvas(t, nil)
	c.Transform.SetScale(2)
	c.Transform.SetTranslation(cp.Vector{X: 100, Y: 50})

	tl, err := c.Open("example.com")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	center := c.Transform.ToWorld(cp.Vector{X: 400, Y: 300})
	if !nearly(tl.Rect().Center(), center) {
		t.Fatalf("center = %v, want %v", tl.Rect().Center(), center)
	}
	if c.Store.Selected() != tl.ID {
		t.Fatalf("opened tile not selected")
	}
}

func TestBridgeAndPopupsOpenTiles(t *testing.T) {
	c, mem := newTestCanvas(t, nil)
	c.Bridge.Post("from-http.com", "http")
	c.Tick(time.Now())
	if c.Store.Len() != 1 {
		t.Fatalf("tiles = %d", c.Store.Len())
	}

	rec, _ := mem.Surface(1)
	rec.Emit(surface.Event{Kind: surface.PopupRequested, Address: "https://popup.example"})
	tickUntil(t, c, func() bool { return c.Store.Len() == 2 })
	if got, _ := c.Store.Get(2); got.Address != "https://popup.example" {
		t.Fatalf("popup tile = %+v", got)
	}
	for i := 0; i < 3; i++ {
		c.Tick(time.Now())
	}
	if c.Store.Len() != 2 {
		t.Fatalf("one popup opened %d tiles", c.Store.Len()-1)
	}
}

func TestMinimapClickNavigates(t *testing.T) {
	c, _ := newTestCanvas(t, nil)
	a, _ := c.Store.Create("a.com", cp.Vector{X: 1000, Y: 1000}, common.Size{W: 500, H: 300})
	c.Tick(time.Now())

	f := c.Minimap.Frame()
	c.Minimap.Click(f.Forward(a.Rect().Center()))
	if !c.Nav.Active() {
		t.Fatalf("navigation not started")
	}
	t0 := time.Now()
	for i := 0; i <= 4; i++ {
		c.Tick(t0.Add(time.Duration(i) * 100 * time.Millisecond))
	}
	center := c.Transform.ToWorld(cp.Vector{X: 400, Y: 300})
	if !nearly(center, a.Rect().Center()) {
		t.Fatalf("view centered on %v, want %v", center, a.Rect().Center())
	}
}

func TestSelectedActions(t *testing.T) {
	c, mem := newTestCanvas(t, nil)
	tl, _ := c.Open("a.com")
	rec, _ := mem.Surface(tl.ID)

	if !c.ReloadSelected() || rec.Reloads() != 1 {
		t.Fatalf("reload not forwarded")
	}
	if c.BackSelected() {
		t.Fatalf("back with no history should be refused")
	}
	if !c.ToggleSelected() {
		t.Fatalf("toggle refused")
	}
	if got, _ := c.Store.Get(tl.ID); got.State != tile.Unloaded {
		t.Fatalf("state = %v", got.State)
	}
	if !c.CloseSelected() || !rec.Closed() || c.Store.Selected() != 0 {
		t.Fatalf("close selected failed")
	}
}

func TestRefreshCaptures(t *testing.T) {
	c, _ := newTestCanvas(t, nil)
	a, _ := c.Store.Create("a.com", cp.Vector{X: 0, Y: 0}, common.Size{W: 500, H: 300})
	c.Store.Create("far.com", cp.Vector{X: 1e5, Y: 1e5}, common.Size{})
	c.Tick(time.Now())

	if n := c.RefreshCaptures(time.Second); n != 1 {
		t.Fatalf("captures started = %d, want 1", n)
	}
	tickUntil(t, c, func() bool {
		_, _, ok := c.Raster(a.ID)
		return ok
	})
	img, _, _ := c.Raster(a.ID)
	if b := img.Bounds(); b.Dx() != 500 || b.Dy() != 270 {
		t.Fatalf("raster = %v", b)
	}
	if n := c.RefreshCaptures(time.Hour); n != 0 {
		t.Fatalf("fresh raster recaptured")
	}
}

func mustGet(t *testing.T, s blobstore.Store) []byte {
	t.Helper()
	b, err := s.Get(context.Background(), layout.Key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	return b
}

type countingBlobs struct {
	*blobstore.MemoryStore
	mu   sync.Mutex
	puts int
}

func (s *countingBlobs) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.puts++
	s.mu.Unlock()
	return s.MemoryStore.Put(ctx, key, value)
}

func (s *countingBlobs) Puts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

func TestRestoreSeedsDemoLayout(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	c, _ := newTestCanvas(t, blobs)
	c.Restore(ctx)
	c.Flush()

	got := layout.Deserialize(mustGet(t, blobs))
	if !reflect.DeepEqual(got, layout.DemoLayout()) {
		t.Fatalf("seeded layout = %+v", got)
	}
}

func TestRestoreTwiceWritesOncePerChange(t *testing.T) {
	ctx := context.Background()
	blobs := &countingBlobs{MemoryStore: blobstore.NewMemoryStore()}
	c, _ := newTestCanvas(t, blobs)
	c.Restore(ctx)
	if n := c.Restore(ctx); n != 0 {
		t.Fatalf("second restore added %d tiles", n)
	}
	c.Flush()

	before := blobs.Puts()
	c.Store.SetPosition(1, cp.Vector{X: 5, Y: 5})
	c.Flush()
	if got := blobs.Puts() - before; got != 1 {
		t.Fatalf("writes for one move = %d, want 1", got)
	}
}
