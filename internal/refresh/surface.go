package refresh

import (
	"time"

	"github.com/tinytelemetry/refresher/internal/model"
)

// Sample is one content-offset notification from a Surface.
type Sample struct {
	Offset   float64 // vertical content offset
	Dragging bool    // user is actively dragging the surface
}

// Subscription is returned by Surface.Subscribe. Cancel is idempotent.
type Subscription interface {
	Cancel()
}

// AnimationOptions mirror the host animation system's option flags.
type AnimationOptions uint8

const (
	AnimationAllowAnimatedContent AnimationOptions = 1 << iota
	AnimationBeginFromCurrentState
)

// Animation describes one animated change of surface properties.
// Apply sets the final values; the host interpolates towards them over
// Duration and then calls Completion. finished is false when the animation
// was superseded or stopped before reaching its end.
type Animation struct {
	Duration   time.Duration
	Options    AnimationOptions
	Apply      func()
	Completion func(finished bool)
}

// Surface is the host scroll surface capability set consumed by a Controller.
//
// Implementations must be comparable (typically pointer types) since the
// Binder keys controllers by surface. All methods are called from the
// host's single UI thread.
type Surface interface {
	ContentOffset() float64
	SetContentOffset(offset float64)
	ContentInset() model.Insets
	SetContentInset(insets model.Insets)
	Bounces() bool
	SetBounces(bounces bool)
	IsDragging() bool
	Width() float64

	// Subscribe registers fn for offset changes. fn is called once
	// synchronously with the current offset before Subscribe returns.
	Subscribe(fn func(Sample)) Subscription

	Animate(a Animation)
	// StopAnimations ends in-flight animations. The surface settles on
	// their target values and their completions run with finished=false.
	StopAnimations()
}

// SurfaceConfig is the surface configuration captured on attach and
// restored on stop and detach.
type SurfaceConfig struct {
	Bounces bool
	Inset   model.Insets
}
