package tui

import (
	"math"
	"strings"
	"time"

	"github.com/tinytelemetry/refresher/internal/model"
	"github.com/tinytelemetry/refresher/internal/refresh"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	defaultFrameInterval = 33 * time.Millisecond
	springBackDuration   = 300 * time.Millisecond
	wheelReleaseDelay    = 200 * time.Millisecond

	// Overscroll past the top moves the content by half the drag distance.
	overscrollResistance = 0.5
	wheelStep            = 1.0
)

// animationFrameMsg advances the surface animation with the given id.
type animationFrameMsg struct {
	id uint64
	at time.Time
}

// wheelReleaseMsg ends a wheel overscroll if no wheel event arrived since.
type wheelReleaseMsg struct {
	seq uint64
}

type surfaceValues struct {
	offset float64
	inset  model.Insets
}

type surfaceAnimation struct {
	id         uint64
	startedAt  time.Time
	duration   time.Duration
	from, to   surfaceValues
	completion func(finished bool)
}

// ScrollSurface is a terminal scroll surface: a viewport whose vertical
// content offset may go negative (pulled past the top) and whose offset and
// insets can be animated. One row is one point. It implements
// refresh.Surface; all methods must be called from the Bubble Tea Update
// loop. Commands produced by animations and gestures are collected and
// returned by Cmd.
type ScrollSurface struct {
	vp       viewport.Model
	offset   float64
	inset    model.Insets
	bounces  bool
	dragging bool

	subs    map[int]func(refresh.Sample)
	nextSub int

	anim       *surfaceAnimation
	nextAnimID uint64
	capturing  bool
	target     surfaceValues

	// drag gesture
	wheelDragging bool
	wheelSeq      uint64
	anchorY       int
	anchorRaw     float64

	cmds          []tea.Cmd
	frameInterval time.Duration
	now           func() time.Time
}

// NewScrollSurface creates a bouncing surface of the given size.
func NewScrollSurface(width, height int) *ScrollSurface {
	return &ScrollSurface{
		vp:            viewport.New(width, height),
		bounces:       true,
		subs:          make(map[int]func(refresh.Sample)),
		frameInterval: defaultFrameInterval,
		now:           time.Now,
	}
}

// SetSize resizes the visible area.
func (s *ScrollSurface) SetSize(width, height int) {
	s.vp.Width = max(0, width)
	s.vp.Height = max(0, height)
	s.clampRest()
}

// Height returns the visible height in rows.
func (s *ScrollSurface) Height() int { return s.vp.Height }

// SetContent replaces the scrolled content.
func (s *ScrollSurface) SetContent(content string) {
	s.vp.SetContent(content)
	s.clampRest()
}

// LineCount returns the number of content lines.
func (s *ScrollSurface) LineCount() int { return s.vp.TotalLineCount() }

// Cmd returns and clears the commands queued since the last call.
func (s *ScrollSurface) Cmd() tea.Cmd {
	cmds := s.cmds
	s.cmds = nil
	return tea.Batch(cmds...)
}

// Animating reports whether an animation is in flight.
func (s *ScrollSurface) Animating() bool { return s.anim != nil }

func (s *ScrollSurface) ContentOffset() float64 { return s.offset }

func (s *ScrollSurface) SetContentOffset(offset float64) {
	if s.capturing {
		s.target.offset = offset
		return
	}
	s.setOffset(offset)
}

func (s *ScrollSurface) ContentInset() model.Insets { return s.inset }

func (s *ScrollSurface) SetContentInset(insets model.Insets) {
	if s.capturing {
		s.target.inset = insets
		return
	}
	s.applyValues(surfaceValues{offset: s.offset, inset: insets})
}

func (s *ScrollSurface) Bounces() bool { return s.bounces }

func (s *ScrollSurface) SetBounces(bounces bool) { s.bounces = bounces }

func (s *ScrollSurface) IsDragging() bool { return s.dragging }

func (s *ScrollSurface) Width() float64 { return float64(s.vp.Width) }

type surfaceSubscription struct {
	surface *ScrollSurface
	id      int
}

func (x *surfaceSubscription) Cancel() { delete(x.surface.subs, x.id) }

func (s *ScrollSurface) Subscribe(fn func(refresh.Sample)) refresh.Subscription {
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	fn(s.sample())
	return &surfaceSubscription{surface: s, id: id}
}

// Animate interpolates offset and insets from their current values to the
// values Apply sets. An animation in flight is replaced and its completion
// runs with finished=false, so every animation begins from the current state.
func (s *ScrollSurface) Animate(a refresh.Animation) {
	from := surfaceValues{offset: s.offset, inset: s.inset}
	s.target = from
	s.capturing = true
	if a.Apply != nil {
		a.Apply()
	}
	s.capturing = false
	to := s.target

	prev := s.anim
	s.anim = nil

	if a.Duration <= 0 {
		s.applyValues(to)
		interrupted(prev)
		if a.Completion != nil {
			a.Completion(true)
		}
		return
	}

	s.nextAnimID++
	s.anim = &surfaceAnimation{
		id:         s.nextAnimID,
		startedAt:  s.now(),
		duration:   a.Duration,
		from:       from,
		to:         to,
		completion: a.Completion,
	}
	s.cmds = append(s.cmds, s.frameCmd(s.nextAnimID))
	interrupted(prev)
}

// StopAnimations jumps an in-flight animation to its final values and runs
// its completion with finished=false.
func (s *ScrollSurface) StopAnimations() {
	a := s.anim
	if a == nil {
		return
	}
	s.anim = nil
	s.applyValues(a.to)
	interrupted(a)
}

func interrupted(a *surfaceAnimation) {
	if a != nil && a.completion != nil {
		a.completion(false)
	}
}

// Update handles the surface's own messages and reports whether msg was one.
func (s *ScrollSurface) Update(msg tea.Msg) bool {
	switch msg := msg.(type) {
	case animationFrameMsg:
		s.stepAnimation(msg.id, msg.at)
		return true
	case wheelReleaseMsg:
		if msg.seq == s.wheelSeq && s.wheelDragging {
			s.release()
		}
		return true
	}
	return false
}

func (s *ScrollSurface) stepAnimation(id uint64, at time.Time) {
	a := s.anim
	if a == nil || a.id != id {
		return
	}

	t := float64(at.Sub(a.startedAt)) / float64(a.duration)
	if t >= 1 {
		s.anim = nil
		s.applyValues(a.to)
		if a.completion != nil {
			a.completion(true)
		}
		return
	}

	e := easeInOut(math.Max(0, t))
	s.applyValues(surfaceValues{
		offset: lerp(a.from.offset, a.to.offset, e),
		inset: model.Insets{
			Top:    lerp(a.from.inset.Top, a.to.inset.Top, e),
			Left:   lerp(a.from.inset.Left, a.to.inset.Left, e),
			Bottom: lerp(a.from.inset.Bottom, a.to.inset.Bottom, e),
			Right:  lerp(a.from.inset.Right, a.to.inset.Right, e),
		},
	})
	// A subscriber may have replaced the animation.
	if s.anim == a {
		s.cmds = append(s.cmds, s.frameCmd(id))
	}
}

func (s *ScrollSurface) frameCmd(id uint64) tea.Cmd {
	return tea.Tick(s.frameInterval, func(t time.Time) tea.Msg {
		return animationFrameMsg{id: id, at: t}
	})
}

// applyValues sets insets then offset. A shrinking top inset pulls a
// resting offset along so the content follows the retracting inset.
func (s *ScrollSurface) applyValues(v surfaceValues) {
	prevTop := s.inset.Top
	s.inset = v.inset
	offset := v.offset
	if v.inset.Top < prevTop && !s.dragging {
		offset = math.Max(offset, -v.inset.Top)
	}
	s.setOffset(offset)
}

func (s *ScrollSurface) setOffset(offset float64) {
	if offset == s.offset {
		return
	}
	s.offset = offset
	s.notify()
}

func (s *ScrollSurface) sample() refresh.Sample {
	return refresh.Sample{Offset: s.offset, Dragging: s.dragging}
}

func (s *ScrollSurface) notify() {
	sample := s.sample()
	for _, fn := range s.subs {
		fn(sample)
	}
}

func (s *ScrollSurface) minOffset() float64 { return -s.inset.Top }

func (s *ScrollSurface) maxOffset() float64 {
	m := float64(s.vp.TotalLineCount()-s.vp.Height) + s.inset.Bottom
	return math.Max(m, s.minOffset())
}

// clampRest keeps a resting offset inside the scrollable range.
func (s *ScrollSurface) clampRest() {
	if s.dragging || s.anim != nil {
		return
	}
	if s.offset > s.maxOffset() {
		s.setOffset(s.maxOffset())
	}
}

// ScrollBy scrolls the content by delta rows, clamped to the scrollable
// range. It does nothing while the surface is being dragged.
func (s *ScrollSurface) ScrollBy(delta float64) {
	if s.dragging {
		return
	}
	s.setOffset(math.Min(math.Max(s.offset+delta, s.minOffset()), s.maxOffset()))
}

// ScrollToTop moves to the resting top position.
func (s *ScrollSurface) ScrollToTop() { s.ScrollBy(s.minOffset() - s.offset) }

// ScrollToBottom moves to the last page.
func (s *ScrollSurface) ScrollToBottom() { s.ScrollBy(s.maxOffset() - s.offset) }

// HandleMouse applies a mouse event whose Y is relative to the surface top.
func (s *ScrollSurface) HandleMouse(msg tea.MouseMsg) {
	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonLeft:
			s.beginDrag(msg.Y)
		case tea.MouseButtonWheelUp:
			s.Wheel(-1)
		case tea.MouseButtonWheelDown:
			s.Wheel(1)
		}
	case tea.MouseActionMotion:
		if s.dragging && !s.wheelDragging {
			s.dragTo(msg.Y)
		}
	case tea.MouseActionRelease:
		if s.dragging && !s.wheelDragging {
			s.release()
		}
	}
}

func (s *ScrollSurface) beginDrag(y int) {
	s.StopAnimations()
	s.dragging = true
	s.wheelDragging = false
	s.anchorY = y
	s.anchorRaw = s.unresist(s.offset)
	s.notify()
}

func (s *ScrollSurface) dragTo(y int) {
	raw := s.anchorRaw - float64(y-s.anchorY)
	s.setOffset(s.resist(raw))
}

// resist maps an unconstrained drag offset to the displayed offset.
func (s *ScrollSurface) resist(raw float64) float64 {
	lo, hi := s.minOffset(), s.maxOffset()
	switch {
	case raw > hi:
		return hi
	case raw >= lo:
		return raw
	case !s.bounces:
		return lo
	default:
		return lo + (raw-lo)*overscrollResistance
	}
}

func (s *ScrollSurface) unresist(offset float64) float64 {
	lo := s.minOffset()
	if offset >= lo {
		return offset
	}
	return lo + (offset-lo)/overscrollResistance
}

// Wheel scrolls by one wheel notch; negative is up. Scrolling up at the
// top overscrolls like a drag that ends once the wheel goes quiet.
func (s *ScrollSurface) Wheel(direction int) {
	if s.dragging && !s.wheelDragging {
		return
	}
	delta := float64(direction) * wheelStep
	atTop := s.offset <= s.minOffset()
	if !s.wheelDragging && !(delta < 0 && atTop && s.bounces) {
		s.ScrollBy(delta)
		return
	}

	if !s.wheelDragging {
		s.StopAnimations()
		s.dragging = true
		s.wheelDragging = true
	}
	offset := math.Min(s.offset+delta*overscrollResistance, s.minOffset())
	if offset == s.offset {
		s.notify()
	} else {
		s.setOffset(offset)
	}

	s.wheelSeq++
	seq := s.wheelSeq
	s.cmds = append(s.cmds, tea.Tick(wheelReleaseDelay, func(time.Time) tea.Msg {
		return wheelReleaseMsg{seq: seq}
	}))
}

// release ends a drag. Subscribers see a non-dragging sample first; if none
// of them started an animation the surface springs back into range.
func (s *ScrollSurface) release() {
	s.dragging = false
	s.wheelDragging = false
	s.notify()
	if s.anim != nil {
		return
	}
	if s.offset < s.minOffset() || s.offset > s.maxOffset() {
		s.Animate(refresh.Animation{
			Duration: springBackDuration,
			Options:  refresh.AnimationBeginFromCurrentState,
			Apply: func() {
				s.SetContentOffset(math.Min(math.Max(s.offset, s.minOffset()), s.maxOffset()))
			},
		})
	}
}

// View renders the surface. Rows uncovered above the content top are
// filled by top, which receives their count and the width.
func (s *ScrollSurface) View(top func(rows, width int) string) string {
	h := s.vp.Height
	if h <= 0 {
		return ""
	}

	vp := s.vp
	uncovered := 0
	if s.offset < 0 {
		uncovered = min(h, int(math.Round(-s.offset)))
	}
	if uncovered == 0 {
		vp.SetYOffset(int(math.Max(0, s.offset)))
		return vp.View()
	}

	var header string
	if top != nil {
		header = top(uncovered, vp.Width)
	} else {
		header = strings.Repeat("\n", uncovered-1)
	}
	if uncovered == h {
		return header
	}
	vp.Height = h - uncovered
	vp.SetYOffset(0)
	return lipgloss.JoinVertical(lipgloss.Left, header, vp.View())
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

func easeInOut(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	return 1 - math.Pow(-2*t+2, 2)/2
}
