package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/tinytelemetry/refresher/internal/model"
	"github.com/tinytelemetry/refresher/internal/refresh"

	"github.com/charmbracelet/lipgloss"
)

func newLaidOutRenderer(width, extent float64) *refresh.TextRenderer {
	r := refresh.NewTextRenderer()
	r.OnInit()
	r.OnLayout(model.Bounds{Width: width, Height: extent})
	return r
}

func TestRenderAffordance_BottomRowsShowFirst(t *testing.T) {
	t.Parallel()

	r := newLaidOutRenderer(20, 3)
	now := time.Unix(100, 0)

	one := renderAffordance(r, 1, 20, now)
	if strings.Contains(one, "\n") || strings.Contains(one, refresh.DefaultPullText) {
		t.Fatalf("one row = %q, want only the stroke row", one)
	}

	two := strings.Split(renderAffordance(r, 2, 20, now), "\n")
	if len(two) != 2 || !strings.Contains(two[0], refresh.DefaultPullText) {
		t.Fatalf("two rows = %q, want label above stroke", two)
	}

	five := strings.Split(renderAffordance(r, 5, 20, now), "\n")
	if len(five) != 5 || strings.TrimSpace(five[0]) != "" {
		t.Fatalf("five rows = %q, want blank padding on top", five)
	}
	for i, line := range five {
		if w := lipgloss.Width(line); w != 20 {
			t.Fatalf("row %d width = %d, want 20", i, w)
		}
	}
}

func TestRenderStroke_FollowsProgress(t *testing.T) {
	t.Parallel()

	r := newLaidOutRenderer(10, 3)
	now := time.Unix(100, 0)

	r.OnProgressChanged(0.5)
	if got := renderStroke(r, 10, now); strings.Count(got, "━") != 5 || strings.Count(got, "─") != 5 {
		t.Fatalf("stroke at 0.5 = %q", got)
	}

	r.OnProgressChanged(2)
	if got := renderStroke(r, 10, now); strings.Count(got, "━") != 10 {
		t.Fatalf("stroke past threshold = %q, want full", got)
	}
}

func TestRenderAffordance_SpinnerWhileLoading(t *testing.T) {
	t.Parallel()

	r := newLaidOutRenderer(30, 3)
	r.OnStateChanged(refresh.StatePulling, refresh.StateRefreshing)
	r.StartAnimating()

	out := renderAffordance(r, 3, 30, time.Now())
	if !strings.Contains(out, refresh.DefaultLoadingText) {
		t.Fatalf("affordance = %q, want loading text", out)
	}
	found := false
	for _, f := range spinnerFrames {
		if strings.Contains(out, f) {
			found = true
		}
	}
	if !found {
		t.Fatalf("affordance = %q, want a spinner frame", out)
	}
}
