package tui

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/tinytelemetry/refresher/internal/model"
	"github.com/tinytelemetry/refresher/internal/refresh"

	tea "github.com/charmbracelet/bubbletea"
)

var testBase = time.Unix(1_700_000_000, 0)

func newTestSurface(lines int) *ScrollSurface {
	s := NewScrollSurface(20, 5)
	s.now = func() time.Time { return testBase }
	content := make([]string, lines)
	for i := range content {
		content[i] = string(rune('a' + i%26))
	}
	s.SetContent(strings.Join(content, "\n"))
	return s
}

func record(s *ScrollSurface) *[]refresh.Sample {
	var got []refresh.Sample
	s.Subscribe(func(sample refresh.Sample) { got = append(got, sample) })
	return &got
}

func press(s *ScrollSurface, y int) {
	s.HandleMouse(tea.MouseMsg{Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
}

func motion(s *ScrollSurface, y int) {
	s.HandleMouse(tea.MouseMsg{Y: y, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
}

func releaseMouse(s *ScrollSurface) {
	s.HandleMouse(tea.MouseMsg{Action: tea.MouseActionRelease, Button: tea.MouseButtonNone})
}

// frame advances the running animation to testBase+at.
func frame(t *testing.T, s *ScrollSurface, at time.Duration) {
	t.Helper()
	if s.anim == nil {
		t.Fatalf("no animation in flight at %v", at)
	}
	s.Update(animationFrameMsg{id: s.anim.id, at: testBase.Add(at)})
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestScrollSurface_SubscribeEmitsInitialSample(t *testing.T) {
	t.Parallel()

	s := newTestSurface(10)
	s.ScrollBy(2)
	got := record(s)

	if len(*got) != 1 || (*got)[0] != (refresh.Sample{Offset: 2}) {
		t.Fatalf("initial samples = %+v, want one {2 false}", *got)
	}
}

func TestScrollSurface_DragRubberBandsPastTop(t *testing.T) {
	t.Parallel()

	s := newTestSurface(10)
	got := record(s)

	press(s, 0)
	motion(s, 4)
	if off := s.ContentOffset(); off != -2 {
		t.Fatalf("offset after 4-row pull = %v, want -2", off)
	}
	last := (*got)[len(*got)-1]
	if !last.Dragging || last.Offset != -2 {
		t.Fatalf("last sample = %+v, want {-2 true}", last)
	}

	// Dragging back into range follows the pointer one to one.
	motion(s, -2)
	if off := s.ContentOffset(); off != 2 {
		t.Fatalf("offset after dragging up = %v, want 2", off)
	}
}

func TestScrollSurface_DragClampsWithoutBounce(t *testing.T) {
	t.Parallel()

	s := newTestSurface(10)
	s.SetBounces(false)
	press(s, 0)
	motion(s, 6)
	if off := s.ContentOffset(); off != 0 {
		t.Fatalf("offset = %v, want clamped to 0", off)
	}

	// Never past the last page either.
	motion(s, -50)
	if off := s.ContentOffset(); off != 5 {
		t.Fatalf("offset = %v, want max 5", off)
	}
}

func TestScrollSurface_ReleaseSpringsBack(t *testing.T) {
	t.Parallel()

	s := newTestSurface(10)
	got := record(s)

	press(s, 0)
	motion(s, 4)
	releaseMouse(s)

	last := (*got)[len(*got)-1]
	if last.Dragging || last.Offset != -2 {
		t.Fatalf("release sample = %+v, want {-2 false}", last)
	}
	if !s.Animating() {
		t.Fatal("expected spring-back animation after release")
	}
	if s.Cmd() == nil {
		t.Fatal("expected a frame command")
	}

	frame(t, s, springBackDuration/2)
	if off := s.ContentOffset(); !approx(off, -1) {
		t.Fatalf("offset halfway = %v, want -1", off)
	}
	frame(t, s, springBackDuration)
	if off := s.ContentOffset(); off != 0 || s.Animating() {
		t.Fatalf("offset = %v animating = %v, want 0 and done", off, s.Animating())
	}
}

func TestScrollSurface_AnimateInterruptsPrevious(t *testing.T) {
	t.Parallel()

	s := newTestSurface(10)
	var results []string

	s.Animate(refresh.Animation{
		Duration:   time.Second,
		Apply:      func() { s.SetContentOffset(4) },
		Completion: func(finished bool) { results = append(results, "first:"+fmtBool(finished)) },
	})
	// Apply is captured, not applied.
	if off := s.ContentOffset(); off != 0 {
		t.Fatalf("offset before first frame = %v, want 0", off)
	}
	frame(t, s, 500*time.Millisecond)
	mid := s.ContentOffset()
	if !approx(mid, 2) {
		t.Fatalf("offset halfway = %v, want 2", mid)
	}

	s.Animate(refresh.Animation{
		Duration:   time.Second,
		Apply:      func() { s.SetContentOffset(0) },
		Completion: func(finished bool) { results = append(results, "second:"+fmtBool(finished)) },
	})
	if len(results) != 1 || results[0] != "first:false" {
		t.Fatalf("results = %v, want [first:false]", results)
	}

	// The replacement starts from where the first one was interrupted.
	if !approx(s.anim.from.offset, mid) {
		t.Fatalf("second animation starts at %v, want %v", s.anim.from.offset, mid)
	}
	frame(t, s, time.Second)
	if len(results) != 2 || results[1] != "second:true" {
		t.Fatalf("results = %v, want second:true last", results)
	}
}

func TestScrollSurface_StaleFrameIgnored(t *testing.T) {
	t.Parallel()

	s := newTestSurface(10)
	s.Animate(refresh.Animation{Duration: time.Second, Apply: func() { s.SetContentOffset(4) }})
	stale := s.anim.id
	s.Animate(refresh.Animation{Duration: time.Second, Apply: func() { s.SetContentOffset(2) }})

	s.Update(animationFrameMsg{id: stale, at: testBase.Add(time.Second)})
	if off := s.ContentOffset(); off != 0 {
		t.Fatalf("offset = %v after stale frame, want 0", off)
	}
}

func TestScrollSurface_StopAnimationsJumpsToTarget(t *testing.T) {
	t.Parallel()

	s := newTestSurface(10)
	var finished []bool
	s.Animate(refresh.Animation{
		Duration: time.Second,
		Apply: func() {
			s.SetContentInset(model.Insets{Top: 3})
			s.SetContentOffset(-3)
		},
		Completion: func(f bool) { finished = append(finished, f) },
	})
	s.StopAnimations()

	if s.ContentInset().Top != 3 || s.ContentOffset() != -3 {
		t.Fatalf("inset/offset = %v/%v, want 3/-3", s.ContentInset().Top, s.ContentOffset())
	}
	if len(finished) != 1 || finished[0] {
		t.Fatalf("completions = %v, want [false]", finished)
	}
	s.StopAnimations()
	if len(finished) != 1 {
		t.Fatal("StopAnimations with nothing in flight ran a completion")
	}
}

func TestScrollSurface_ZeroDurationAppliesImmediately(t *testing.T) {
	t.Parallel()

	s := newTestSurface(10)
	done := false
	s.Animate(refresh.Animation{
		Apply:      func() { s.SetContentOffset(3) },
		Completion: func(f bool) { done = f },
	})
	if s.ContentOffset() != 3 || !done || s.Animating() {
		t.Fatalf("offset = %v done = %v animating = %v", s.ContentOffset(), done, s.Animating())
	}
}

func TestScrollSurface_ShrinkingInsetPullsOffsetAlong(t *testing.T) {
	t.Parallel()

	s := newTestSurface(10)
	s.SetContentInset(model.Insets{Top: 3})
	s.SetContentOffset(-3)

	s.Animate(refresh.Animation{
		Duration: time.Second,
		Apply:    func() { s.SetContentInset(model.Insets{}) },
	})
	frame(t, s, 500*time.Millisecond)
	if off := s.ContentOffset(); !approx(off, -1.5) {
		t.Fatalf("offset halfway = %v, want -1.5", off)
	}
	frame(t, s, time.Second)
	if off := s.ContentOffset(); off != 0 {
		t.Fatalf("offset = %v, want 0", off)
	}
}

func TestScrollSurface_WheelOverscrollReleasesWhenQuiet(t *testing.T) {
	t.Parallel()

	s := newTestSurface(10)
	got := record(s)

	for range 4 {
		s.Wheel(-1)
	}
	if !s.IsDragging() || s.ContentOffset() != -2 {
		t.Fatalf("dragging = %v offset = %v, want true -2", s.IsDragging(), s.ContentOffset())
	}

	s.Update(wheelReleaseMsg{seq: s.wheelSeq - 1})
	if !s.IsDragging() {
		t.Fatal("an older wheel release ended the drag")
	}

	s.Update(wheelReleaseMsg{seq: s.wheelSeq})
	if s.IsDragging() {
		t.Fatal("still dragging after the wheel went quiet")
	}
	last := (*got)[len(*got)-1]
	if last.Dragging || last.Offset != -2 {
		t.Fatalf("release sample = %+v, want {-2 false}", last)
	}
	if !s.Animating() {
		t.Fatal("expected spring-back after wheel release")
	}
}

func TestScrollSurface_WheelScrollsInsideRange(t *testing.T) {
	t.Parallel()

	s := newTestSurface(10)
	s.Wheel(1)
	s.Wheel(1)
	if s.ContentOffset() != 2 || s.IsDragging() {
		t.Fatalf("offset = %v dragging = %v, want 2 false", s.ContentOffset(), s.IsDragging())
	}
}

func TestScrollSurface_ViewFillsUncoveredRows(t *testing.T) {
	t.Parallel()

	s := NewScrollSurface(3, 4)
	s.SetContent("a\nb\nc\nd\ne")
	press(s, 0)
	motion(s, 4) // offset -2

	var asked int
	view := s.View(func(rows, width int) string {
		asked = rows
		return strings.TrimSuffix(strings.Repeat("xxx\n", rows), "\n")
	})
	lines := strings.Split(view, "\n")
	if asked != 2 || len(lines) != 4 {
		t.Fatalf("rows asked = %d, lines = %q", asked, lines)
	}
	if lines[0] != "xxx" || lines[1] != "xxx" || !strings.HasPrefix(lines[2], "a") || !strings.HasPrefix(lines[3], "b") {
		t.Fatalf("view = %q", lines)
	}
}

func TestScrollSurface_PullToRefresh(t *testing.T) {
	t.Parallel()

	s := newTestSurface(10)
	b := refresh.NewBinder(nil)
	actions := 0
	c, err := b.Attach(s, nil, func() { actions++ },
		refresh.WithExtent(3),
		refresh.WithAnimationDuration(300*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}

	press(s, 0)
	motion(s, 4)  // -2
	motion(s, 8)  // -4
	motion(s, 10) // -5
	if c.State() != refresh.StateReadyToRelease {
		t.Fatalf("state = %v, want ready-to-release", c.State())
	}

	releaseMouse(s)
	if c.State() != refresh.StateRefreshing || s.Bounces() {
		t.Fatalf("state = %v bounces = %v, want refreshing without bounce", c.State(), s.Bounces())
	}
	if actions != 0 {
		t.Fatal("action ran before the reveal finished")
	}

	frame(t, s, 300*time.Millisecond)
	if actions != 1 {
		t.Fatalf("actions = %d, want 1", actions)
	}
	if s.ContentInset().Top != 3 || s.ContentOffset() != -3 {
		t.Fatalf("inset/offset = %v/%v, want 3/-3", s.ContentInset().Top, s.ContentOffset())
	}

	b.Stop(s)
	frame(t, s, 300*time.Millisecond)
	if s.ContentInset().Top != 0 || s.ContentOffset() != 0 || !s.Bounces() {
		t.Fatalf("after stop: inset %v offset %v bounces %v", s.ContentInset().Top, s.ContentOffset(), s.Bounces())
	}
	if c.Progress() != 0 || c.Loading() {
		t.Fatalf("progress = %v loading = %v, want 0 false", c.Progress(), c.Loading())
	}
}

func fmtBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
