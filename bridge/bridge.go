// Package bridge carries requests to open new tiles from outside the UI
// thread: pages asking for a pop-up window, the local HTTP endpoint and the
// `tilecanvas open` command.
package bridge

import (
	"strings"

	"github.com/charmbracelet/log"

	"github.com/milk9111/tilecanvas/frame"
)

// Source says where a request came from.
type Source string

const (
	FromPopup Source = "popup"
	FromHTTP  Source = "http"
)

type Request struct {
	Address string
	Source  Source
}

// Bridge hands requests to the UI thread through the scheduler mailbox.
// Requests arriving before a handler is set are held until SetHandler.
type Bridge struct {
	sched  *frame.Scheduler
	logger *log.Logger

	// UI thread only.
	handler func(Request)
	backlog []Request
}

func New(sched *frame.Scheduler, logger *log.Logger) *Bridge {
	if logger == nil {
		logger = log.Default()
	}
	return &Bridge{sched: sched, logger: logger}
}

// SetHandler installs the UI-thread consumer and replays the backlog.
func (b *Bridge) SetHandler(fn func(Request)) {
	b.handler = fn
	backlog := b.backlog
	b.backlog = nil
	for _, req := range backlog {
		b.deliver(req)
	}
}

// Post queues a request. Safe from any goroutine. Blank addresses are
// dropped and reported as false.
func (b *Bridge) Post(address string, source Source) bool {
	address = strings.TrimSpace(address)
	if address == "" {
		return false
	}
	req := Request{Address: address, Source: source}
	b.logger.Debug("request", "url", address, "source", source)
	b.sched.Post(func() { b.deliver(req) })
	return true
}

// Popup adapts Post to the surface pop-up callback.
func (b *Bridge) Popup(address string) {
	b.Post(address, FromPopup)
}

func (b *Bridge) deliver(req Request) {
	if b.handler == nil {
		b.backlog = append(b.backlog, req)
		return
	}
	b.handler(req)
}
