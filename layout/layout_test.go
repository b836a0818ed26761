package layout

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/jakecoffman/cp"

	"github.com/milk9111/tilecanvas/blobstore"
	"github.com/milk9111/tilecanvas/common"
	"github.com/milk9111/tilecanvas/tile"
)

func TestRoundTrip(t *testing.T) {
	tiles := []tile.Tile{
		{ID: 1, Address: "https://a.com", Position: cp.Vector{X: 10.5, Y: -20}, Size: common.Size{W: 500, H: 300}},
		{ID: 4, Address: "https://b.com", Position: cp.Vector{X: 700, Y: 150}, Size: common.Size{W: 640, H: 480}, State: tile.Unloaded},
	}
	data, err := Encode(Serialize(tiles))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got := Deserialize(data)
	if !reflect.DeepEqual(got, Serialize(tiles)) {
		t.Fatalf("round trip = %+v", got)
	}
	for i, r := range got {
		if r.Tile() != tiles[i] {
			t.Fatalf("tile %d = %+v, want %+v", i, r.Tile(), tiles[i])
		}
	}
}

func TestDeserializeRejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		blob string
	}{
		{"not json", `not json`},
		{"object", `{"id":1}`},
		{"null", `null`},
		{"zero id", `[{"id":0,"address":"https://a.com","position":{"x":0,"y":0},"size":{"width":500,"height":300}}]`},
		{"fractional id", `[{"id":1.5,"address":"https://a.com","position":{"x":0,"y":0}}]`},
		{"missing id", `[{"address":"https://a.com","position":{"x":0,"y":0}}]`},
		{"empty address", `[{"id":1,"address":"  ","position":{"x":0,"y":0}}]`},
		{"duplicate id", `[{"id":1,"address":"a.com","position":{"x":0,"y":0}},{"id":1,"address":"b.com","position":{"x":0,"y":0}}]`},
		{"bad element", `[1]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Deserialize([]byte(tc.blob)); got != nil {
				t.Fatalf("Deserialize(%s) = %+v, want nil", tc.blob, got)
			}
		})
	}
}

func TestDeserializeMigratesLegacyRecords(t *testing.T) {
	blob := `[{"id":"3","url":"https://news.ycombinator.com","x":40,"y":-10,"width":520,"height":310,"left":100,"top":100}]`
	got := Deserialize([]byte(blob))
	want := []Record{{
		ID:       3,
		Address:  "https://news.ycombinator.com",
		Position: Point{X: 140, Y: 90},
		Size:     Dims{Width: 520, Height: 310},
	}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("legacy = %+v, want %+v", got, want)
	}
}

func TestEmptyArrayIsNotMalformed(t *testing.T) {
	got := Deserialize([]byte(`[]`))
	if got == nil || len(got) != 0 {
		t.Fatalf("Deserialize([]) = %#v", got)
	}
}

type failingStore struct {
	blobstore.Store
}

func (failingStore) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("disk on fire")
}

func (failingStore) Put(ctx context.Context, key string, value []byte) error {
	return errors.New("disk on fire")
}

func TestLoadFallsBackToDemo(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name  string
		store blobstore.Store
		blob  []byte
		seed  bool
	}{
		{"absent", blobstore.NewMemoryStore(), nil, true},
		{"not json", blobstore.NewMemoryStore(), []byte("not json"), true},
		{"empty", blobstore.NewMemoryStore(), []byte("[]"), true},
		{"read error", failingStore{}, nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.blob != nil {
				tc.store.Put(ctx, Key, tc.blob)
			}
			p := NewPersister(tc.store, PersisterOptions{})
			defer p.Close()
			got, seed := p.Load(ctx)
			if !reflect.DeepEqual(got, DemoLayout()) {
				t.Fatalf("load = %+v", got)
			}
			if seed != tc.seed {
				t.Fatalf("seed = %v, want %v", seed, tc.seed)
			}
		})
	}
}

type countingStore struct {
	*blobstore.MemoryStore
	mu   sync.Mutex
	puts int
}

func (s *countingStore) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.puts++
	s.mu.Unlock()
	return s.MemoryStore.Put(ctx, key, value)
}

func TestPersisterWritesThroughAndSkipsGestureMoves(t *testing.T) {
	ctx := context.Background()
	blobs := &countingStore{MemoryStore: blobstore.NewMemoryStore()}
	store := tile.NewStore(tile.Options{})
	p := NewPersister(blobs, PersisterOptions{})
	p.Attach(store)

	a, _ := store.Create("a.com", cp.Vector{}, common.Size{})
	p.Flush()
	before := blobs.puts

	store.BeginGesture(a.ID)
	for i := 1; i <= 10; i++ {
		store.SetPosition(a.ID, cp.Vector{X: float64(i)})
	}
	store.EndGesture(a.ID)
	p.Flush()
	if got := blobs.puts - before; got != 1 {
		t.Fatalf("writes for one gesture = %d, want 1", got)
	}

	store.Toggle(a.ID)
	p.Close()

	got := Deserialize(must(blobs.Get(ctx, Key)))
	if len(got) != 1 || got[0].Position.X != 10 || !got[0].Unloaded {
		t.Fatalf("persisted = %+v", got)
	}
}

func TestAttachSubscribesOnce(t *testing.T) {
	blobs := &countingStore{MemoryStore: blobstore.NewMemoryStore()}
	store := tile.NewStore(tile.Options{})
	p := NewPersister(blobs, PersisterOptions{})
	defer p.Close()
	p.Attach(store)
	p.Attach(store)

	store.Create("a.com", cp.Vector{}, common.Size{})
	p.Flush()
	blobs.mu.Lock()
	puts := blobs.puts
	blobs.mu.Unlock()
	if puts != 1 {
		t.Fatalf("writes = %d, want 1", puts)
	}
}

func TestWriteFailuresAreNotFatal(t *testing.T) {
	store := tile.NewStore(tile.Options{})
	p := NewPersister(failingStore{}, PersisterOptions{})
	p.Attach(store)
	store.Create("a.com", cp.Vector{}, common.Size{})
	p.Flush()
	if p.Failures() != 1 {
		t.Fatalf("failures = %d", p.Failures())
	}
	p.Close()
}

func TestRestoreSkipsRejectedRecords(t *testing.T) {
	store := tile.NewStore(tile.Options{})
	records := append(DemoLayout(), Record{ID: 2, Address: "dup.com"})
	if n := Restore(store, records, nil); n != 3 {
		t.Fatalf("restored = %d, want 3", n)
	}
	if store.NextID() != 4 {
		t.Fatalf("next id = %d", store.NextID())
	}
}

func must(b []byte, err error) []byte {
	if err != nil {
		panic(err)
	}
	return b
}
