package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tinytelemetry/refresher/internal/feed"
	"github.com/tinytelemetry/refresher/internal/model"
	"github.com/tinytelemetry/refresher/internal/refresh"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// FeedPageID identifies the feed page.
const FeedPageID = "feed"

const (
	headerHeight   = 1
	statusHeight   = 1
	refreshTimeout = 10 * time.Second
)

// FeedLoader refreshes and reads the feed shown by the page.
type FeedLoader interface {
	Refresh(ctx context.Context) (feed.Snapshot, error)
	Latest(ctx context.Context) (feed.Snapshot, error)
}

// FeedPageConfig configures a FeedPage. A zero AnimationDuration reveals
// and retracts the affordance without animating.
type FeedPageConfig struct {
	Loader             FeedLoader
	AffordanceHeight   float64
	AnimationDuration  time.Duration
	RefreshOnStart     bool
	ReverseScrollWheel bool
	Logger             *slog.Logger
}

// feedLoadedMsg carries the result of a feed read. refresh is false for
// the initial read that does not fetch; seq identifies the fetch that
// produced a refresh result.
type feedLoadedMsg struct {
	snap    feed.Snapshot
	err     error
	refresh bool
	seq     uint64
}

// FeedPage shows the feed in a scroll surface with pull-to-refresh. Pulling
// past the affordance (or pressing r) refreshes the feed through the
// loader; the affordance retracts when the result arrives.
type FeedPage struct {
	cfg    FeedPageConfig
	logger *slog.Logger
	keys   KeyMap
	help   help.Model

	surface  *ScrollSurface
	binder   *refresh.Binder
	renderer *refresh.TextRenderer

	items      []model.FeedItem
	total      int64
	lastAdded  int
	lastLoaded time.Time
	lastErr    error

	// fetchSeq numbers refresh fetches. Only the result of the latest
	// one, while it is still in flight, ends the refresh.
	fetchSeq      uint64
	fetchInFlight bool
	spinning      bool
	showHelp      bool
	pending       []tea.Cmd

	width  int
	height int
	now    func() time.Time
}

// NewFeedPage creates the page and attaches pull-to-refresh to its surface.
func NewFeedPage(cfg FeedPageConfig) (*FeedPage, error) {
	if cfg.Loader == nil {
		return nil, fmt.Errorf("feed page: loader is nil")
	}
	if cfg.AffordanceHeight <= 0 {
		cfg.AffordanceHeight = model.DefaultAffordanceHeight
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	p := &FeedPage{
		cfg:      cfg,
		logger:   logger,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		surface:  NewScrollSurface(0, 0),
		binder:   refresh.NewBinder(logger),
		renderer: refresh.NewTextRenderer(),
		now:      time.Now,
	}
	ActiveSkin().ApplyTexts(p.renderer)
	if err := p.attach(); err != nil {
		return nil, err
	}
	p.surface.SetContent(p.renderItems())
	return p, nil
}

func (p *FeedPage) attach() error {
	_, err := p.binder.Attach(p.surface, p.renderer, p.refreshAction,
		refresh.WithExtent(p.cfg.AffordanceHeight),
		refresh.WithAnimationDuration(p.cfg.AnimationDuration),
	)
	return err
}

// refreshAction runs once the affordance is revealed; the fetch result
// comes back as a feedLoadedMsg.
func (p *FeedPage) refreshAction() {
	p.fetchSeq++
	p.fetchInFlight = true
	seq := p.fetchSeq
	loader := p.cfg.Loader
	p.pending = append(p.pending, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		snap, err := loader.Refresh(ctx)
		return feedLoadedMsg{snap: snap, err: err, refresh: true, seq: seq}
	})
}

func (p *FeedPage) latestCmd() tea.Cmd {
	loader := p.cfg.Loader
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		snap, err := loader.Latest(ctx)
		return feedLoadedMsg{snap: snap, err: err}
	}
}

func (p *FeedPage) ID() string { return FeedPageID }

func (p *FeedPage) Init() tea.Cmd {
	if p.cfg.RefreshOnStart {
		p.binder.Start(p.surface)
	}
	return tea.Batch(p.latestCmd(), p.flush())
}

func (p *FeedPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.resize(msg.Width, msg.Height)
	case tea.KeyMsg:
		cmd = p.handleKey(msg)
	case tea.MouseMsg:
		p.handleMouse(msg)
	case feedLoadedMsg:
		p.handleLoaded(msg)
	case SpinnerTickMsg:
		p.spinning = false
	case SkinChangedMsg:
		p.reloadSkin(msg)
	default:
		p.surface.Update(msg)
	}
	return tea.Batch(cmd, p.flush()), nil
}

// flush collects the commands queued by the surface and the refresh
// action, and keeps the spinner ticking while the loader animates.
func (p *FeedPage) flush() tea.Cmd {
	cmds := append(p.pending, p.surface.Cmd())
	p.pending = nil
	if !p.spinning && p.renderer.Animating(p.now()) {
		p.spinning = true
		cmds = append(cmds, spinnerTick())
	}
	return tea.Batch(cmds...)
}

func (p *FeedPage) resize(width, height int) {
	p.width = width
	p.height = height
	p.help.Width = width
	p.surface.SetSize(width, height-headerHeight-statusHeight)
	if c, ok := p.binder.Controller(p.surface); ok {
		c.Layout()
	}
	p.surface.SetContent(p.renderItems())
}

func (p *FeedPage) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, p.keys.ForceQuit), key.Matches(msg, p.keys.Quit):
		return tea.Quit
	case key.Matches(msg, p.keys.Help):
		p.showHelp = !p.showHelp
		return nil
	}
	if p.showHelp {
		if key.Matches(msg, p.keys.StopRefresh) {
			p.showHelp = false
		}
		return nil
	}

	switch {
	case key.Matches(msg, p.keys.Refresh):
		p.binder.Start(p.surface)
	case key.Matches(msg, p.keys.StopRefresh):
		p.binder.Stop(p.surface)
	case key.Matches(msg, p.keys.TogglePull):
		p.togglePull()
	case key.Matches(msg, p.keys.Up):
		p.surface.ScrollBy(-1)
	case key.Matches(msg, p.keys.Down):
		p.surface.ScrollBy(1)
	case key.Matches(msg, p.keys.PageUp):
		p.surface.ScrollBy(-float64(max(1, p.surface.Height())))
	case key.Matches(msg, p.keys.PageDown):
		p.surface.ScrollBy(float64(max(1, p.surface.Height())))
	case key.Matches(msg, p.keys.Home):
		p.surface.ScrollToTop()
	case key.Matches(msg, p.keys.End):
		p.surface.ScrollToBottom()
	}
	return nil
}

func (p *FeedPage) togglePull() {
	if p.binder.Has(p.surface) {
		p.binder.Detach(p.surface)
		// Orphan the outstanding fetch so its result cannot end a later refresh.
		p.fetchSeq++
		p.fetchInFlight = false
		p.logger.Info("pull-to-refresh disabled")
		return
	}
	if err := p.attach(); err != nil {
		p.lastErr = err
		return
	}
	p.logger.Info("pull-to-refresh enabled")
}

func (p *FeedPage) handleMouse(msg tea.MouseMsg) {
	if p.showHelp {
		return
	}
	msg.Y -= headerHeight
	if msg.Action == tea.MouseActionPress && (msg.Y < 0 || msg.Y >= p.surface.Height()) {
		return
	}
	if p.cfg.ReverseScrollWheel {
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			msg.Button = tea.MouseButtonWheelDown
		case tea.MouseButtonWheelDown:
			msg.Button = tea.MouseButtonWheelUp
		}
	}
	p.surface.HandleMouse(msg)
}

func (p *FeedPage) handleLoaded(msg feedLoadedMsg) {
	if msg.refresh && (!p.fetchInFlight || msg.seq != p.fetchSeq) {
		p.logger.Debug("dropping stale refresh result", "seq", msg.seq, "current", p.fetchSeq)
		return
	}
	if msg.err != nil {
		p.lastErr = msg.err
		p.logger.Warn("feed load failed", "refresh", msg.refresh, "error", msg.err)
	} else {
		p.lastErr = nil
		p.items = msg.snap.Items
		p.total = msg.snap.Total
		p.lastAdded = msg.snap.Added
		p.lastLoaded = msg.snap.LoadedAt
		p.surface.SetContent(p.renderItems())
	}
	if !msg.refresh {
		return
	}
	// A failed refresh still ends the refresh so the affordance retracts.
	p.fetchInFlight = false
	p.binder.Stop(p.surface)
}

func (p *FeedPage) reloadSkin(msg SkinChangedMsg) {
	if err := InitializeSkin(msg.Name, msg.Dir); err != nil {
		p.lastErr = err
		p.logger.Warn("skin reload failed", "skin", msg.Name, "error", err)
		return
	}
	ActiveSkin().ApplyTexts(p.renderer)
	// Refresh the label with the new texts.
	if c, ok := p.binder.Controller(p.surface); ok {
		p.renderer.OnStateChanged(c.State(), c.State())
	}
	p.surface.SetContent(p.renderItems())
	p.logger.Info("skin reloaded", "skin", msg.Name)
}

func (p *FeedPage) renderItems() string {
	if len(p.items) == 0 {
		return lipgloss.NewStyle().
			Foreground(ColorGray).
			Italic(true).
			Render("No items yet. Pull down or press r to refresh.")
	}

	timeStyle := lipgloss.NewStyle().Foreground(ColorGray)
	newStyle := lipgloss.NewStyle().Foreground(ColorGreen).Bold(true)
	sourceStyle := lipgloss.NewStyle().Foreground(ColorBlue)
	lineStyle := lipgloss.NewStyle()
	if p.width > 0 {
		lineStyle = lineStyle.MaxWidth(p.width)
	}

	lines := make([]string, 0, len(p.items))
	for i, item := range p.items {
		title := item.Title
		if i < p.lastAdded {
			title = newStyle.Render(title)
		}
		line := fmt.Sprintf("%s %s %s",
			timeStyle.Render(item.CreatedAt.Format("15:04:05")),
			sourceStyle.Render("["+item.Source+"]"),
			title,
		)
		if item.Body != "" {
			line += " " + timeStyle.Render(item.Body)
		}
		lines = append(lines, lineStyle.Render(line))
	}
	return strings.Join(lines, "\n")
}

func (p *FeedPage) View(width, height int) string {
	if p.showHelp {
		return p.renderHelp(width, height)
	}
	affordance := func(rows, w int) string {
		return renderAffordance(p.renderer, rows, w, p.now())
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		p.renderHeader(width),
		p.surface.View(affordance),
		p.renderStatusLine(width),
	)
}

func (p *FeedPage) renderHeader(width int) string {
	title := lipgloss.NewStyle().Foreground(ColorBlue).Bold(true).Render("Refresher")

	info := fmt.Sprintf("%d of %d items", len(p.items), p.total)
	if !p.lastLoaded.IsZero() {
		info += " · updated " + p.lastLoaded.Format("15:04:05")
	}
	right := lipgloss.NewStyle().Foreground(ColorGray).Render(info)

	gap := max(1, width-lipgloss.Width(title)-lipgloss.Width(right))
	return lipgloss.NewStyle().MaxWidth(width).Render(title + strings.Repeat(" ", gap) + right)
}

func (p *FeedPage) renderStatusLine(width int) string {
	base := lipgloss.NewStyle().Background(ColorNavy).Foreground(ColorWhite)

	var left string
	switch c, ok := p.binder.Controller(p.surface); {
	case !ok:
		left = lipgloss.NewStyle().Inherit(base).Foreground(ColorYellow).Render(" pull-to-refresh off")
	case c.Loading():
		left = base.Render(fmt.Sprintf(" %s", c.State()))
	default:
		left = base.Render(fmt.Sprintf(" %s %3.0f%%", c.State(), c.Progress()*100))
	}
	if p.lastErr != nil {
		left += lipgloss.NewStyle().Inherit(base).Foreground(ColorRed).Render("  " + p.lastErr.Error())
	}

	right := base.Render(p.help.ShortHelpView(p.keys.ShortHelp()) + " ")
	gap := max(0, width-lipgloss.Width(left)-lipgloss.Width(right))
	line := left + base.Render(strings.Repeat(" ", gap)) + right
	return lipgloss.NewStyle().MaxWidth(width).Render(line)
}

func (p *FeedPage) renderHelp(width, height int) string {
	body := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Foreground(ColorBlue).Bold(true).Render("Help"),
		"",
		"Drag the list down with the mouse, or scroll up past the top,",
		"until the label reads release, then let go to refresh.",
		"",
		p.help.FullHelpView(p.keys.FullHelp()),
	)
	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBlue).
		Padding(1, 2).
		Render(body)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, modal)
}
