package common

import (
	"testing"

	"github.com/jakecoffman/cp"
)

func TestEaseOutCubic(t *testing.T) {
	cases := []struct {
		name string
		in   float64
		want float64
	}{
		{"start", 0, 0},
		{"end", 1, 1},
		{"half", 0.5, 0.875},
		{"below_range", -1, 0},
		{"above_range", 2, 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := EaseOutCubic(c.in); !NearlyEqual(got, c.want, 1e-12) {
				t.Fatalf("EaseOutCubic(%v) = %v, want %v", c.in, got, c.want)
			}
		})
	}
}

func TestRectBBRoundTrip(t *testing.T) {
	r := NewRect(-50, 20, 300, 150)
	back := RectFromBB(r.BB())
	if back != r {
		t.Fatalf("expected %+v, got %+v", r, back)
	}
	if !r.Contains(cp.Vector{X: 250, Y: 170}) {
		t.Fatalf("expected bottom-right corner to be contained")
	}
	if r.Contains(cp.Vector{X: 251, Y: 0}) {
		t.Fatalf("point outside rect reported as contained")
	}
	padded := r.Pad(10)
	if padded.Pos.X != -60 || padded.Size.W != 320 || padded.Size.H != 170 {
		t.Fatalf("unexpected padded rect %+v", padded)
	}
}
