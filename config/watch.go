package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce drops repeated events for the same file inside this window;
// editors often write a file several times per save.
const debounce = 100 * time.Millisecond

// Watcher reports edits to one config file. The directory is watched rather
// than the file so atomic replace-by-rename saves are seen.
type Watcher struct {
	watcher *fsnotify.Watcher
	path    string
	Events  chan string
	Errors  chan error
	closeCh chan struct{}
	once    sync.Once
}

func NewWatcher(path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, err
	}

	watcher := &Watcher{
		watcher: w,
		path:    abs,
		Events:  make(chan string, 16),
		Errors:  make(chan error, 1),
		closeCh: make(chan struct{}),
	}
	go watcher.run()
	return watcher, nil
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) run() {
	defer close(w.Events)
	defer close(w.Errors)

	var last time.Time
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			now := time.Now()
			if now.Sub(last) < debounce {
				continue
			}
			last = now
			select {
			case w.Events <- event.Name:
			case <-w.closeCh:
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			default:
			}
		case <-w.closeCh:
			return
		}
	}
}

// Reloads turns file events into parsed configs. Files that fail to parse
// are reported on errs and skipped. The channel closes with the watcher.
func (w *Watcher) Reloads(errs func(error)) <-chan Config {
	out := make(chan Config, 1)
	go func() {
		defer close(out)
		for {
			select {
			case name, ok := <-w.Events:
				if !ok {
					return
				}
				// Wait out the rest of the save before reading.
				time.Sleep(debounce / 2)
				cfg, err := Load(name)
				if err != nil {
					if errs != nil {
						errs(err)
					}
					continue
				}
				out <- cfg
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				if errs != nil {
					errs(err)
				}
			}
		}
	}()
	return out
}
