package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/tinytelemetry/refresher/internal/feed"
	"github.com/tinytelemetry/refresher/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	var configPath string
	var dbPath string
	var showVersion bool

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/refresher/config.yml)")
	flag.StringVar(&dbPath, "db", "", "override the feed database path (\":memory:\" for a throwaway feed)")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("Refresher - pull-to-refresh feed\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if cfg.DBPath == ":memory:" {
		cfg.DBPath = ""
	}

	if err := runTUI(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger sends slog output to the log file; the terminal belongs to the TUI.
func newLogger(cfg config) (*slog.Logger, func(), error) {
	level, err := cfg.slogLevel()
	if err != nil {
		return nil, nil, err
	}
	f, err := tea.LogToFile(cfg.LogFile, "refresher")
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file %s: %w", cfg.LogFile, err)
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	return logger, func() { f.Close() }, nil
}

func runTUI(cfg config) error {
	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	dir, err := configDir()
	if err != nil {
		return err
	}
	if err := tui.InitializeSkin(cfg.Skin, dir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to load skin '%s': %v (using default)\n", cfg.Skin, err)
		logger.Warn("skin load failed", "skin", cfg.Skin, "error", err)
	}

	store, err := feed.NewStore(cfg.DBPath, cfg.QueryTimeout)
	if err != nil {
		return fmt.Errorf("opening feed database: %w", err)
	}
	defer store.Close()
	if st, err := store.SchemaStatus(context.Background()); err != nil {
		logger.Warn("reading feed schema failed", "error", err)
	} else {
		logger.Info("feed database ready", "path", cfg.DBPath, "schema", st.Applied, "migrated", store.Migrated())
	}

	opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithMouseCellMotion()}

	var source feed.Source
	switch cfg.Source {
	case sourceStdin:
		lines := feed.NewLineSource(context.Background(), sourceStdin, os.Stdin, feed.LineConfig{Logger: logger})
		defer lines.Stop()
		source = lines
		// Keys and mouse come from the terminal while stdin carries the feed.
		opts = append(opts, tea.WithInputTTY())
	default:
		source = feed.NewSyntheticSource(cfg.ItemsPerRefresh)
	}

	loader := feed.NewLoader(store, source, cfg.FeedLimit, logger)

	page, err := tui.NewFeedPage(tui.FeedPageConfig{
		Loader:             loader,
		AffordanceHeight:   cfg.AffordanceHeight,
		AnimationDuration:  cfg.AnimationDuration,
		RefreshOnStart:     cfg.RefreshOnStart,
		ReverseScrollWheel: cfg.ReverseScrollWheel,
		Logger:             logger,
	})
	if err != nil {
		return err
	}
	app := tui.NewApp(page)

	logger.Info("starting", "version", version, "db", cfg.DBPath, "source", source.Name(), "skin", cfg.Skin)

	p := tea.NewProgram(app, opts...)

	if cfg.Skin != "" && cfg.Skin != defaultSkin {
		w, err := tui.WatchSkin(cfg.Skin, dir, func() {
			p.Send(tui.SkinChangedMsg{Name: cfg.Skin, Dir: dir})
		}, logger)
		if err != nil {
			logger.Warn("skin watch disabled", "skin", cfg.Skin, "error", err)
		} else {
			defer w.Close()
		}
	}

	if _, err := p.Run(); err != nil {
		if strings.Contains(err.Error(), "TTY") || strings.Contains(err.Error(), "/dev/tty") {
			return fmt.Errorf("TUI requires a real terminal")
		}
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
