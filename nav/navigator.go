// Package nav moves the viewport to a world point, either at once or with a
// short eased tween driven by the frame scheduler.
package nav

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/jakecoffman/cp"

	"github.com/milk9111/tilecanvas/common"
	"github.com/milk9111/tilecanvas/frame"
	"github.com/milk9111/tilecanvas/view"
)

// DefaultDuration is the length of a smooth navigation.
const DefaultDuration = 300 * time.Millisecond

type Options struct {
	Duration time.Duration
	Logger   *log.Logger
}

// Navigator tweens the transform translation. Every call bumps a generation
// token and frame callbacks of older generations do nothing.
type Navigator struct {
	tf    *view.Transform
	sched *frame.Scheduler
	opts  Options

	viewport common.Size
	gen      uint64
	active   bool
	from     cp.Vector
	to       cp.Vector
	start    time.Time
}

func New(tf *view.Transform, sched *frame.Scheduler, opts Options) *Navigator {
	if opts.Duration <= 0 {
		opts.Duration = DefaultDuration
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Navigator{tf: tf, sched: sched, opts: opts}
}

// SetViewport records the size of the main view in pixels.
func (n *Navigator) SetViewport(size common.Size) {
	n.viewport = size
}

// Target is the translation that centers world in the viewport at the
// current scale.
func (n *Navigator) Target(world cp.Vector) cp.Vector {
	return n.tf.CenterOn(world, n.viewport)
}

// NavigateTo centers the view on world.
func (n *Navigator) NavigateTo(world cp.Vector, smooth bool) {
	n.gen++
	target := n.Target(world)
	if !smooth {
		n.active = false
		n.tf.SetTranslation(target)
		return
	}

	n.active = true
	n.from = n.tf.Translation()
	n.to = target
	n.start = time.Time{}
	n.opts.Logger.Debug("tween", "from", n.from, "to", n.to)

	gen := n.gen
	n.sched.RequestFrame(func(now time.Time) { n.step(gen, now) })
}

func (n *Navigator) step(gen uint64, now time.Time) {
	if gen != n.gen || !n.active {
		return
	}
	if n.start.IsZero() {
		n.start = now
	}
	progress := float64(now.Sub(n.start)) / float64(n.opts.Duration)
	if progress > 1 {
		progress = 1
	}
	eased := common.EaseOutCubic(progress)
	n.tf.SetTranslation(n.from.Lerp(n.to, eased))

	if progress >= 1 {
		n.active = false
		return
	}
	n.sched.RequestFrame(func(now time.Time) { n.step(gen, now) })
}

// Cancel stops an in-flight tween where it is.
func (n *Navigator) Cancel() {
	if !n.active {
		return
	}
	n.gen++
	n.active = false
}

// Active reports whether a tween is running.
func (n *Navigator) Active() bool {
	return n.active
}
