package bridge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/milk9111/tilecanvas/frame"
)

func newTestBridge() (*Bridge, *frame.Scheduler, *[]Request) {
	sched := frame.NewScheduler()
	b := New(sched, nil)
	var got []Request
	b.SetHandler(func(r Request) { got = append(got, r) })
	return b, sched, &got
}

func TestPostDeliversOnTick(t *testing.T) {
	b, sched, got := newTestBridge()
	b.Post(" example.com ", FromPopup)
	if len(*got) != 0 {
		t.Fatalf("delivered before tick")
	}
	sched.Tick(time.Now())
	if len(*got) != 1 || (*got)[0].Address != "example.com" || (*got)[0].Source != FromPopup {
		t.Fatalf("got %+v", *got)
	}
	if b.Post("   ", FromHTTP) {
		t.Fatalf("blank address accepted")
	}
}

func TestBacklogReplaysOnSetHandler(t *testing.T) {
	sched := frame.NewScheduler()
	b := New(sched, nil)
	b.Popup("a.com")
	b.Popup("b.com")
	sched.Tick(time.Now())

	var got []string
	b.SetHandler(func(r Request) { got = append(got, r.Address) })
	if strings.Join(got, ",") != "a.com,b.com" {
		t.Fatalf("replayed %v", got)
	}
}

func TestHTTPOpen(t *testing.T) {
	cases := []struct {
		name        string
		contentType string
		body        string
		status      int
		want        string
	}{
		{"json", "application/json", `{"url":"github.com"}`, http.StatusAccepted, "github.com"},
		{"form", "application/x-www-form-urlencoded", "url=https%3A%2F%2Fwww.wikipedia.org", http.StatusAccepted, "https://www.wikipedia.org"},
		{"plain", "text/plain", "news.ycombinator.com\n", http.StatusAccepted, "news.ycombinator.com"},
		{"bad json", "application/json", `{"url":`, http.StatusBadRequest, ""},
		{"empty", "application/json", `{"url":""}`, http.StatusBadRequest, ""},
		{"oversized plain", "text/plain", strings.Repeat("a", maxBody+1), http.StatusRequestEntityTooLarge, ""},
		{"oversized json", "application/json", `{"url":"` + strings.Repeat("a", maxBody) + `"}`, http.StatusRequestEntityTooLarge, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, sched, got := newTestBridge()
			srv := NewServer(b, nil)

			req := httptest.NewRequest(http.MethodPost, "/tiles", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", tc.contentType)
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.status, rec.Body.String())
			}
			sched.Tick(time.Now())
			if tc.want == "" {
				if len(*got) != 0 {
					t.Fatalf("unexpected delivery %+v", *got)
				}
				return
			}
			if len(*got) != 1 || (*got)[0].Address != tc.want || (*got)[0].Source != FromHTTP {
				t.Fatalf("got %+v", *got)
			}
		})
	}
}

func TestHealthz(t *testing.T) {
	b, _, _ := newTestBridge()
	rec := httptest.NewRecorder()
	NewServer(b, nil).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestClientAgainstServer(t *testing.T) {
	b, sched, got := newTestBridge()
	srv := NewServer(b, nil)
	if err := srv.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	if err := Open(context.Background(), srv.Addr(), "example.com"); err != nil {
		t.Fatalf("open: %v", err)
	}
	sched.Tick(time.Now())
	if len(*got) != 1 || (*got)[0].Address != "example.com" {
		t.Fatalf("got %+v", *got)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("serve: %v", err)
	}
}
