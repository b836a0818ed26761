package surface

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// rodSurface drives one Chrome page. Navigation work runs on goroutines so
// the UI thread never waits on the network.
type rodSurface struct {
	id     int
	page   *rod.Page
	sink   Sink
	cfg    BrowserConfig
	logger *log.Logger
	cancel context.CancelFunc

	mu        sync.Mutex
	address   string
	title     string
	canBack   bool
	pointer   bool
	suspended bool
}

func (s *rodSurface) emit(ev Event) {
	if s.sink != nil {
		s.sink(ev)
	}
}

func (s *rodSurface) watch() {
	frameID := s.page.FrameID
	s.page.EachEvent(
		func(e *proto.PageFrameStartedLoading) {
			if e.FrameID != frameID {
				return
			}
			s.emit(Event{Kind: LoadStarted, Address: s.currentAddress()})
		},
		func(e *proto.PageFrameStoppedLoading) {
			if e.FrameID != frameID {
				return
			}
			s.refreshDocument()
			s.emit(Event{Kind: LoadStopped, Address: s.currentAddress()})
		},
		func(e *proto.PageDomContentEventFired) {
			s.emit(Event{Kind: DocumentReady, Address: s.currentAddress()})
		},
		func(e *proto.PageWindowOpen) {
			s.logger.Info("popup intercepted", "url", e.URL)
			s.emit(Event{Kind: PopupRequested, Address: e.URL})
		},
	)()
}

func (s *rodSurface) currentAddress() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.address
}

// refreshDocument caches history depth and title of the loaded document.
// Nothing is cached while parked on about:blank.
func (s *rodSurface) refreshDocument() {
	if s.isSuspended() {
		return
	}
	hist, err := s.page.GetNavigationHistory()
	if err != nil {
		return
	}
	info, err := s.page.Info()
	s.mu.Lock()
	s.canBack = hist.CurrentIndex > 0
	if err == nil {
		s.title = info.Title
	}
	s.mu.Unlock()
}

func (s *rodSurface) isSuspended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suspended
}

func (s *rodSurface) Load(address string) error {
	s.mu.Lock()
	s.address = address
	s.suspended = false
	s.mu.Unlock()

	go func() {
		if err := s.page.Timeout(s.cfg.NavigateTimeout).Navigate(address); err != nil {
			s.logger.Warn("navigate failed", "url", address, "error", err)
			s.emit(Event{Kind: LoadFailed, Address: address, Reason: err.Error()})
		}
	}()
	return nil
}

func (s *rodSurface) Reload() error {
	go func() {
		if err := s.page.Timeout(s.cfg.NavigateTimeout).Reload(); err != nil {
			s.emit(Event{Kind: LoadFailed, Address: s.currentAddress(), Reason: err.Error()})
		}
	}()
	return nil
}

func (s *rodSurface) GoBack() error {
	if !s.CanGoBack() {
		return nil
	}
	go func() {
		if err := s.page.NavigateBack(); err != nil {
			s.logger.Debug("history back failed", "error", err)
		}
	}()
	return nil
}

func (s *rodSurface) CanGoBack() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canBack
}

// Query evaluates script in the page. A suspended page answers title
// queries from the title cached before it was parked.
func (s *rodSurface) Query(ctx context.Context, script string) (any, error) {
	if script == TitleScript {
		s.mu.Lock()
		suspended, title := s.suspended, s.title
		s.mu.Unlock()
		if suspended {
			return title, nil
		}
	}
	res, err := s.page.Context(ctx).Eval(script)
	if err != nil {
		return nil, fmt.Errorf("surface: query tile %d: %w", s.id, err)
	}
	return res.Value.Val(), nil
}

func (s *rodSurface) Capture(ctx context.Context) (image.Image, error) {
	data, err := s.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("surface: capture tile %d: %w", s.id, err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("surface: decode capture tile %d: %w", s.id, err)
	}
	return img, nil
}

func (s *rodSurface) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	go func() {
		err := s.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             width,
			Height:            height,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			s.logger.Debug("resize failed", "width", width, "height", height, "error", err)
		}
	}()
	return nil
}

// SetPointerEvents records whether the host should forward pointer input to
// the page; Chrome itself has no notion of it.
func (s *rodSurface) SetPointerEvents(enabled bool) {
	s.mu.Lock()
	s.pointer = enabled
	s.mu.Unlock()
}

// Suspend parks the page on about:blank so Chrome can drop the document.
func (s *rodSurface) Suspend() error {
	s.mu.Lock()
	s.suspended = true
	s.mu.Unlock()
	go func() {
		if err := s.page.Navigate("about:blank"); err != nil {
			s.logger.Debug("suspend failed", "error", err)
		}
	}()
	return nil
}

func (s *rodSurface) Close() error {
	err := s.page.Context(context.Background()).Close()
	s.cancel()
	return err
}
