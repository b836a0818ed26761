package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// DefaultAddr is where the bridge listens unless configured otherwise.
const DefaultAddr = "127.0.0.1:7788"

const maxBody = 64 << 10

type openRequest struct {
	URL string `json:"url"`
}

type openResponse struct {
	Status string `json:"status"`
	URL    string `json:"url,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Server exposes the bridge over HTTP.
type Server struct {
	bridge *Bridge
	logger *log.Logger
	router *chi.Mux
	srv    *http.Server
	ln     net.Listener
}

func NewServer(b *Bridge, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{bridge: b, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Post("/tiles", s.handleOpen)
	r.Get("/healthz", s.handleHealth)
	s.router = r
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"took", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// handleOpen accepts {"url": "..."}, a url= form field or a plain-text body.
// POST /tiles
func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	address, err := readAddress(w, r)
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, openResponse{Status: "error", Error: err.Error()})
		return
	}
	if !s.bridge.Post(address, FromHTTP) {
		writeJSON(w, http.StatusBadRequest, openResponse{Status: "error", Error: "url required"})
		return
	}
	writeJSON(w, http.StatusAccepted, openResponse{Status: "queued", URL: address})
}

// GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, openResponse{Status: "ok"})
}

func readAddress(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch ct {
	case "application/json":
		var req openRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", fmt.Errorf("invalid json body: %w", err)
		}
		return strings.TrimSpace(req.URL), nil
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseForm(); err != nil {
			return "", fmt.Errorf("invalid form body: %w", err)
		}
		return strings.TrimSpace(r.PostFormValue("url")), nil
	default:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return "", fmt.Errorf("read body: %w", err)
		}
		return strings.TrimSpace(string(body)), nil
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Listen binds addr. Use "127.0.0.1:0" for an ephemeral port.
func (s *Server) Listen(addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bridge: listen %s: %w", addr, err)
	}
	s.ln = ln
	s.srv = &http.Server{Handler: s.router, ReadHeaderTimeout: 5 * time.Second}
	return nil
}

// Addr is the bound address once Listen succeeded.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Serve runs until ctx ends.
func (s *Server) Serve(ctx context.Context) error {
	if s.srv == nil {
		return errors.New("bridge: Serve before Listen")
	}
	s.logger.Info("listening", "addr", s.Addr())

	errc := make(chan error, 1)
	go func() { errc <- s.srv.Serve(s.ln) }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("bridge: serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}
