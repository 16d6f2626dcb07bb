package tui

import (
	"math"
	"strings"
	"time"

	"github.com/tinytelemetry/refresher/internal/refresh"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 120 * time.Millisecond

// SpinnerTickMsg triggers a re-render while the loader animates.
type SpinnerTickMsg struct{}

func spinnerTick() tea.Cmd {
	return tea.Tick(spinnerInterval, func(_ time.Time) tea.Msg {
		return SpinnerTickMsg{}
	})
}

// renderAffordance draws the bottom rows of the pull-to-refresh affordance
// of r: the label centered in the area above a loader stroke. When more
// rows are uncovered than the affordance is tall, blank rows pad the top.
func renderAffordance(r *refresh.TextRenderer, rows, width int, now time.Time) string {
	if rows <= 0 || width <= 0 {
		return ""
	}
	skin := ActiveSkin()

	extent := max(1, int(math.Round(r.Bounds().Height)))
	lines := make([]string, extent)

	label := r.Label()
	if r.Animating(now) {
		label = spinnerFrames[now.UnixMilli()/spinnerInterval.Milliseconds()%int64(len(spinnerFrames))] + " " + label
	}
	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(skin.Colors.Label)).
		Italic(true).
		Width(width).
		Align(lipgloss.Center)

	if extent == 1 {
		lines[0] = labelStyle.Render(label)
	} else {
		for i := range lines[:extent-1] {
			lines[i] = strings.Repeat(" ", width)
		}
		lines[(extent-1)/2] = labelStyle.Render(label)
		lines[extent-1] = renderStroke(r, width, now)
	}

	for len(lines) < rows {
		lines = append([]string{strings.Repeat(" ", width)}, lines...)
	}
	return strings.Join(lines[len(lines)-rows:], "\n")
}

// renderStroke draws the loader stroke as a heavy line over a light
// separator spanning the full width.
func renderStroke(r *refresh.TextRenderer, width int, now time.Time) string {
	start, end := r.Stroke(now)
	from := int(math.Round(start * float64(width)))
	to := int(math.Round(end * float64(width)))
	from = min(max(from, 0), width)
	to = min(max(to, from), width)

	strokeStyle := lipgloss.NewStyle().Foreground(ColorBlue)
	sepStyle := lipgloss.NewStyle().Foreground(ColorGray)

	return sepStyle.Render(strings.Repeat("─", from)) +
		strokeStyle.Render(strings.Repeat("━", to-from)) +
		sepStyle.Render(strings.Repeat("─", width-to))
}
