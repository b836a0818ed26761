package layout

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/milk9111/tilecanvas/blobstore"
	"github.com/milk9111/tilecanvas/tile"
)

type PersisterOptions struct {
	// Key defaults to "tiles".
	Key string
	// WriteTimeout bounds one blob store write. Default: 5s.
	WriteTimeout time.Duration
	Logger       *log.Logger
}

// Persister writes the whole layout to the blob store after every mutating
// store event. Encoding happens on the caller's goroutine; the write itself
// runs on a background writer that only ever keeps the newest blob.
type Persister struct {
	blobs  blobstore.Store
	opts   PersisterOptions
	logger *log.Logger
	unsub  func()

	mu      sync.Mutex
	cond    *sync.Cond
	pending []byte
	queued  uint64
	written uint64
	failed  uint64
	closed  bool
	kick    chan struct{}
	done    chan struct{}
}

func NewPersister(blobs blobstore.Store, opts PersisterOptions) *Persister {
	if opts.Key == "" {
		opts.Key = Key
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	p := &Persister{
		blobs:  blobs,
		opts:   opts,
		logger: opts.Logger,
		kick:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)
	go p.run()
	return p
}

// Attach subscribes to store and persists on every mutating event. Only the
// first call subscribes.
func (p *Persister) Attach(store *tile.Store) {
	if p.unsub != nil {
		return
	}
	p.unsub = store.Subscribe(func(ev tile.Event) {
		if ev.Mutates() {
			p.Save(store.Tiles())
		}
	})
}

// Load reads the persisted layout. Absent, empty, unreadable or malformed
// state yields the demo layout. seed reports whether that demo layout should
// be written back; it is false after a read error so a store that is only
// briefly unreachable keeps its contents.
func (p *Persister) Load(ctx context.Context) (records []Record, seed bool) {
	blob, err := p.blobs.Get(ctx, p.opts.Key)
	if err != nil {
		p.logger.Warn("read failed, using demo layout", "key", p.opts.Key, "error", err)
		return DemoLayout(), false
	}
	if blob == nil {
		p.logger.Info("nothing saved, using demo layout")
		return DemoLayout(), true
	}
	records = Deserialize(blob)
	if records == nil {
		p.logger.Warn("malformed layout, using demo layout", "bytes", len(blob))
		return DemoLayout(), true
	}
	if len(records) == 0 {
		return DemoLayout(), true
	}
	return records, false
}

// Restore re-creates records in the store. Records the store rejects are
// logged and skipped.
func Restore(store *tile.Store, records []Record, logger *log.Logger) int {
	if logger == nil {
		logger = log.Default()
	}
	var n int
	for _, r := range records {
		if _, err := store.Restore(r.Tile()); err != nil {
			logger.Warn("skipping record", "id", r.ID, "error", err)
			continue
		}
		n++
	}
	return n
}

// Save queues the layout of tiles for writing.
func (p *Persister) Save(tiles []tile.Tile) {
	data, err := Encode(Serialize(tiles))
	if err != nil {
		p.logger.Error("encode failed", "error", err)
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.pending = data
	p.queued++
	select {
	case p.kick <- struct{}{}:
	default:
	}
	p.mu.Unlock()
}

func (p *Persister) run() {
	defer close(p.done)
	for range p.kick {
		p.mu.Lock()
		data, seq := p.pending, p.queued
		p.mu.Unlock()
		if seq == p.writtenSeq() {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), p.opts.WriteTimeout)
		err := p.blobs.Put(ctx, p.opts.Key, data)
		cancel()

		p.mu.Lock()
		if err != nil {
			p.failed++
			p.logger.Warn("write failed", "key", p.opts.Key, "error", err)
		}
		p.written = seq
		p.cond.Broadcast()
		p.mu.Unlock()
	}
}

func (p *Persister) writtenSeq() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written
}

// Flush blocks until every queued layout has been handed to the blob store.
func (p *Persister) Flush() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.written < p.queued {
		p.cond.Wait()
	}
}

// Failures counts writes the blob store rejected.
func (p *Persister) Failures() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failed
}

// Close detaches from the store, flushes and stops the writer.
func (p *Persister) Close() {
	if p.unsub != nil {
		p.unsub()
		p.unsub = nil
	}
	p.Flush()
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.kick)
	p.mu.Unlock()
	<-p.done
}
