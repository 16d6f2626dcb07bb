package refresh

import (
	"log/slog"
	"time"

	"github.com/tinytelemetry/refresher/internal/model"
)

// Action is the caller-owned refresh work. It is invoked once per
// activation, after the reveal animation completes. The caller ends the
// refresh with Binder.Stop (or Controller.SetLoading(false)).
type Action func()

// Controller maps the offset samples of one surface to pull-to-refresh
// states and drives the inset animations that reveal and hide the
// affordance.
type Controller struct {
	surface  Surface
	renderer Renderer
	action   Action
	logger   *slog.Logger

	extent   float64
	duration time.Duration

	state          State
	progress       float64
	previousOffset float64
	loading        bool

	config   SurfaceConfig
	captured bool

	sub Subscription
	// generation increases with every reveal, retract and detach; an
	// animation completion only acts if its generation is still current.
	generation uint64
	detached   bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithExtent sets the affordance height, which is also the pull threshold.
func WithExtent(extent float64) Option {
	return func(c *Controller) {
		if extent > 0 {
			c.extent = extent
		}
	}
}

// WithAnimationDuration sets the reveal/retract animation duration.
func WithAnimationDuration(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.duration = d
		}
	}
}

// WithLogger sets the logger used for state transition debugging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func newController(surface Surface, renderer Renderer, action Action, opts ...Option) *Controller {
	c := &Controller{
		surface:  surface,
		renderer: renderer,
		action:   action,
		logger:   slog.New(slog.DiscardHandler),
		extent:   model.DefaultAffordanceHeight,
		duration: model.DefaultAnimationDuration,
		state:    StatePulling,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// attach captures the surface configuration and subscribes to offset
// changes. The subscription delivers an initial sample immediately.
func (c *Controller) attach() {
	c.renderer.OnInit()
	c.renderer.OnLayout(model.Bounds{Width: c.surface.Width(), Height: c.extent})
	c.captureConfig()
	c.sub = c.surface.Subscribe(c.HandleSample)
}

// detach unsubscribes, drops in-flight animations and puts the surface
// back to its captured configuration. Later calls on c are no-ops.
func (c *Controller) detach() {
	if c.detached {
		return
	}
	c.detached = true
	c.generation++
	if c.sub != nil {
		c.sub.Cancel()
		c.sub = nil
	}
	c.surface.StopAnimations()
	if c.loading {
		c.loading = false
		c.renderer.StopAnimating()
	}
	if c.captured {
		c.surface.SetBounces(c.config.Bounces)
		c.surface.SetContentInset(c.config.Inset)
	}
	c.logger.Debug("refresh controller detached", "state", c.state)
}

// Layout passes the current surface width to the renderer. Call it after
// the surface is resized.
func (c *Controller) Layout() {
	if c.detached {
		return
	}
	c.renderer.OnLayout(model.Bounds{Width: c.surface.Width(), Height: c.extent})
}

func (c *Controller) captureConfig() {
	if c.captured {
		return
	}
	c.config = SurfaceConfig{
		Bounces: c.surface.Bounces(),
		Inset:   c.surface.ContentInset(),
	}
	c.captured = true
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Progress returns the last reported pull progress. Values above 1 are
// possible while the surface is pulled past the threshold.
func (c *Controller) Progress() float64 { return c.progress }

// Loading reports whether the controller is refreshing.
func (c *Controller) Loading() bool { return c.loading }

// Extent returns the affordance height.
func (c *Controller) Extent() float64 { return c.extent }

// Renderer returns the attached renderer.
func (c *Controller) Renderer() Renderer { return c.renderer }

// Detached reports whether the controller has been detached from its surface.
func (c *Controller) Detached() bool { return c.detached }

// HandleSample classifies one offset sample.
//
// The threshold test uses the offset recorded by the previous sample; the
// current offset is only stored for the next call. This one-sample lag is
// observable (progress trails the finger by one notification) and kept as is.
func (c *Controller) HandleSample(s Sample) {
	if c.detached {
		return
	}

	offsetWithoutInsets := c.previousOffset + c.config.Inset.Top
	if offsetWithoutInsets < -c.extent {
		if !s.Dragging && !c.loading {
			c.SetLoading(true)
		} else if !c.loading {
			c.setState(StateReadyToRelease)
			c.setProgress(-offsetWithoutInsets / c.extent)
		}
	} else if !c.loading && offsetWithoutInsets < 0 {
		c.setState(StatePulling)
		c.setProgress(-offsetWithoutInsets / c.extent)
	}
	c.previousOffset = s.Offset
}

// SetLoading enters or leaves the refreshing state independently of the
// gesture. Entering is latched: a second SetLoading(true) before
// SetLoading(false) does nothing, so the action runs once per activation.
func (c *Controller) SetLoading(loading bool) {
	if c.detached || loading == c.loading {
		return
	}
	c.loading = loading
	if loading {
		c.setState(StateRefreshing)
		c.renderer.StartAnimating()
		c.startAnimating()
		return
	}
	c.renderer.StopAnimating()
	c.stopAnimating()
}

// startAnimating pins the affordance open: the top inset grows by the
// extent and the content slides down to reveal it, then the action runs.
func (c *Controller) startAnimating() {
	c.captureConfig()

	insets := c.config.Inset
	insets.Top += c.extent

	// Inset changes made inside an animation do not move the offset on
	// their own, so put the content back where the finger left it first.
	c.surface.SetContentOffset(c.previousOffset)
	c.surface.SetBounces(false)

	gen := c.nextGeneration()
	c.logger.Debug("refresh reveal", "generation", gen, "offset", c.previousOffset, "inset_top", insets.Top)

	c.surface.Animate(Animation{
		Duration: c.duration,
		Options:  AnimationAllowAnimatedContent | AnimationBeginFromCurrentState,
		Apply: func() {
			c.surface.SetContentInset(insets)
			c.surface.SetContentOffset(-insets.Top)
		},
		Completion: func(bool) {
			if !c.current(gen) || !c.loading {
				c.logger.Debug("refresh reveal superseded", "generation", gen)
				return
			}
			c.logger.Debug("refresh action", "generation", gen)
			c.action()
		},
	})
}

// stopAnimating restores bounce and animates the inset back to the
// captured original; progress resets once the retract finishes.
func (c *Controller) stopAnimating() {
	c.surface.SetBounces(c.config.Bounces)

	original := c.config.Inset
	gen := c.nextGeneration()
	c.logger.Debug("refresh retract", "generation", gen, "inset_top", original.Top)

	c.surface.Animate(Animation{
		Duration: c.duration,
		Options:  AnimationAllowAnimatedContent | AnimationBeginFromCurrentState,
		Apply: func() {
			c.surface.SetContentInset(original)
		},
		Completion: func(bool) {
			if !c.current(gen) {
				return
			}
			c.setProgress(0)
		},
	})
}

func (c *Controller) nextGeneration() uint64 {
	c.generation++
	return c.generation
}

func (c *Controller) current(gen uint64) bool {
	return !c.detached && gen == c.generation
}

func (c *Controller) setState(s State) {
	if s == c.state {
		return
	}
	previous := c.state
	c.state = s
	c.logger.Debug("refresh state", "previous", previous, "state", s)
	c.renderer.OnStateChanged(previous, s)
}

func (c *Controller) setProgress(p float64) {
	if p == c.progress {
		return
	}
	c.progress = p
	c.renderer.OnProgressChanged(p)
}
