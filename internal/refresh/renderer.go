package refresh

import "github.com/tinytelemetry/refresher/internal/model"

// Renderer draws the pull-to-refresh affordance. The controller calls these
// hooks; a renderer never mutates the surface itself.
type Renderer interface {
	// OnInit is called once when the renderer is attached.
	OnInit()
	// OnLayout is called with the affordance bounds: surface width by extent.
	OnLayout(bounds model.Bounds)
	OnStateChanged(previous, current State)
	OnProgressChanged(progress float64)
	// StartAnimating and StopAnimating drive the renderer's own loading
	// animation, separate from the surface inset animation.
	StartAnimating()
	StopAnimating()
}
