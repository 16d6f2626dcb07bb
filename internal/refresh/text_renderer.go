package refresh

import (
	"math"
	"time"

	"github.com/tinytelemetry/refresher/internal/model"
)

// Default label texts.
const (
	DefaultPullText    = "Pull to refresh"
	DefaultReleaseText = "Release to refresh"
	DefaultLoadingText = "Loading ..."
)

// Loader stroke animation: both stroke ends sweep back and forth while
// refreshing.
const (
	strokeHalfPeriod = 500 * time.Millisecond
	strokeRepeats    = 100 // each repeat is one forward plus one reverse sweep

	strokeEndFrom   = 0.2
	strokeEndTo     = 1.0
	strokeStartFrom = 0.0
	strokeStartTo   = 0.8
)

// TextRenderer is the default Renderer. It keeps a label that follows the
// state and a horizontal loader stroke whose visible span follows the pull
// progress, or sweeps on a loop while refreshing. Drawing is left to the
// host, which reads Label, Stroke and Bounds.
type TextRenderer struct {
	PullText    string
	ReleaseText string
	LoadingText string

	label     string
	progress  float64
	bounds    model.Bounds
	animating bool
	animStart time.Time
	now       func() time.Time
}

// NewTextRenderer returns a TextRenderer with the default labels.
func NewTextRenderer() *TextRenderer {
	return &TextRenderer{
		PullText:    DefaultPullText,
		ReleaseText: DefaultReleaseText,
		LoadingText: DefaultLoadingText,
		now:         time.Now,
	}
}

func (r *TextRenderer) OnInit() {
	r.label = r.PullText
}

func (r *TextRenderer) OnLayout(bounds model.Bounds) {
	r.bounds = bounds
}

func (r *TextRenderer) OnStateChanged(_, current State) {
	switch current {
	case StatePulling:
		r.label = r.PullText
	case StateReadyToRelease:
		r.label = r.ReleaseText
	case StateRefreshing:
		r.label = r.LoadingText
	}
}

func (r *TextRenderer) OnProgressChanged(progress float64) {
	r.progress = progress
}

func (r *TextRenderer) StartAnimating() {
	r.animating = true
	r.animStart = r.now()
}

func (r *TextRenderer) StopAnimating() {
	r.animating = false
}

// Label returns the text for the current state.
func (r *TextRenderer) Label() string { return r.label }

// Bounds returns the last laid-out bounds.
func (r *TextRenderer) Bounds() model.Bounds { return r.bounds }

// Progress returns the last reported progress.
func (r *TextRenderer) Progress() float64 { return r.progress }

// Animating reports whether the loading animation is running at now.
func (r *TextRenderer) Animating(now time.Time) bool {
	if !r.animating {
		return false
	}
	return now.Sub(r.animStart) < 2*strokeRepeats*strokeHalfPeriod
}

// Stroke returns the visible span of the loader stroke as fractions of the
// width, start <= end.
func (r *TextRenderer) Stroke(now time.Time) (start, end float64) {
	if !r.Animating(now) {
		return 0, math.Max(0, math.Min(1, r.progress))
	}

	elapsed := now.Sub(r.animStart)
	if elapsed < 0 {
		elapsed = 0
	}
	sweep := int64(elapsed / strokeHalfPeriod)
	f := float64(elapsed%strokeHalfPeriod) / float64(strokeHalfPeriod)
	if sweep%2 == 1 {
		f = 1 - f
	}
	start = strokeStartFrom + (strokeStartTo-strokeStartFrom)*f
	end = strokeEndFrom + (strokeEndTo-strokeEndFrom)*f
	return start, end
}
