// Package frame drives the engine's cooperative per-frame work.
//
// The host calls Tick once per display refresh. Work posted from other
// goroutines is applied first, then every callback requested before the tick
// started runs exactly once. Callbacks requested while a tick is running are
// deferred to the next tick, which is what lets a tween re-arm itself.
package frame

import (
	"sync"
	"time"
)

// Callback runs once on a future frame with that frame's timestamp.
type Callback func(now time.Time)

// Scheduler is not safe for concurrent use except for Post.
type Scheduler struct {
	pending []Callback
	frames  uint64
	now     time.Time

	mu      sync.Mutex
	mailbox []func()
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// RequestFrame queues cb for the next tick.
func (s *Scheduler) RequestFrame(cb Callback) {
	if s == nil || cb == nil {
		return
	}
	s.pending = append(s.pending, cb)
}

// Post hands fn to the UI thread. Safe to call from any goroutine.
func (s *Scheduler) Post(fn func()) {
	if s == nil || fn == nil {
		return
	}
	s.mu.Lock()
	s.mailbox = append(s.mailbox, fn)
	s.mu.Unlock()
}

// Tick runs one frame.
func (s *Scheduler) Tick(now time.Time) {
	if s == nil {
		return
	}
	s.now = now
	s.frames++

	s.mu.Lock()
	posted := s.mailbox
	s.mailbox = nil
	s.mu.Unlock()
	for _, fn := range posted {
		fn()
	}

	due := s.pending
	s.pending = nil
	for _, cb := range due {
		cb(now)
	}
}

// Now returns the timestamp of the most recent tick.
func (s *Scheduler) Now() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.now
}

// Frames returns how many ticks have run.
func (s *Scheduler) Frames() uint64 {
	if s == nil {
		return 0
	}
	return s.frames
}

// Pending reports how many frame callbacks are waiting.
func (s *Scheduler) Pending() int {
	if s == nil {
		return 0
	}
	return len(s.pending)
}
