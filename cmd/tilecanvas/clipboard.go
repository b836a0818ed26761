package main

import (
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"golang.design/x/clipboard"
)

// clipboardReader reads page addresses off the system clipboard. Init runs
// on first use; a failed init disables pasting for the session.
type clipboardReader struct {
	once   sync.Once
	ok     bool
	logger *log.Logger
}

func newClipboardReader(logger *log.Logger) *clipboardReader {
	return &clipboardReader{logger: logger}
}

func (r *clipboardReader) Text() (string, bool) {
	r.once.Do(func() {
		if err := clipboard.Init(); err != nil {
			r.logger.Warn("clipboard unavailable", "error", err)
			return
		}
		r.ok = true
	})
	if !r.ok {
		return "", false
	}
	txt := strings.TrimSpace(string(clipboard.Read(clipboard.FmtText)))
	if txt == "" || strings.ContainsAny(txt, " \n\t") {
		return "", false
	}
	return txt, true
}
