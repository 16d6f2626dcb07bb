package refresh

import (
	"errors"
	"log/slog"
)

var (
	ErrNilSurface = errors.New("refresh: surface is nil")
	ErrNilAction  = errors.New("refresh: action is nil")
)

// Binder attaches pull-to-refresh controllers to scroll surfaces. A surface
// has at most one controller; attaching again replaces the previous one.
// Binder is not safe for concurrent use; call it from the UI thread.
type Binder struct {
	controllers map[Surface]*Controller
	logger      *slog.Logger
}

// NewBinder creates an empty Binder. A nil logger discards output.
func NewBinder(logger *slog.Logger) *Binder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Binder{
		controllers: make(map[Surface]*Controller),
		logger:      logger,
	}
}

// Attach adds pull-to-refresh to surface. A nil renderer selects the
// default TextRenderer. Any controller already on surface is detached first.
func (b *Binder) Attach(surface Surface, renderer Renderer, action Action, opts ...Option) (*Controller, error) {
	if surface == nil {
		return nil, ErrNilSurface
	}
	if action == nil {
		return nil, ErrNilAction
	}
	if renderer == nil {
		renderer = NewTextRenderer()
	}

	b.Detach(surface)

	opts = append([]Option{WithLogger(b.logger)}, opts...)
	c := newController(surface, renderer, action, opts...)
	b.controllers[surface] = c
	c.attach()

	b.logger.Debug("refresh attached", "extent", c.extent, "duration", c.duration)
	return c, nil
}

// Detach removes the controller from surface and restores the surface's
// captured bounce and inset configuration. It is a no-op when surface has
// no controller.
func (b *Binder) Detach(surface Surface) {
	if surface == nil {
		return
	}
	c, ok := b.controllers[surface]
	if !ok {
		return
	}
	delete(b.controllers, surface)
	c.detach()
}

// Start enters the refreshing state as if the user had pulled.
func (b *Binder) Start(surface Surface) {
	if c, ok := b.Controller(surface); ok {
		c.SetLoading(true)
	}
}

// Stop ends a refresh and retracts the affordance.
func (b *Binder) Stop(surface Surface) {
	if c, ok := b.Controller(surface); ok {
		c.SetLoading(false)
	}
}

// Has reports whether surface has pull-to-refresh attached.
func (b *Binder) Has(surface Surface) bool {
	_, ok := b.Controller(surface)
	return ok
}

// Controller returns the controller attached to surface.
func (b *Binder) Controller(surface Surface) (*Controller, bool) {
	if surface == nil {
		return nil, false
	}
	c, ok := b.controllers[surface]
	return c, ok
}
