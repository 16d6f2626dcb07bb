package feed

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/tinytelemetry/refresher/internal/model"
)

const (
	// DefaultLineBuffer is the default number of lines held between fetches.
	DefaultLineBuffer = 10_000

	// DefaultMaxLineSize is the default maximum size (in bytes) of a single line.
	DefaultMaxLineSize = 1024 * 1024 // 1MB
)

// LineConfig holds tunable parameters for a LineSource.
type LineConfig struct {
	BufferSize  int
	MaxLineSize int
	PerFetch    int // lines returned per Fetch; 0 means everything buffered
	Logger      *slog.Logger
}

// LineSource turns lines read from a stream (usually piped stdin) into feed
// items. A background goroutine buffers lines as they arrive and every
// Fetch drains what has arrived since the previous one.
type LineSource struct {
	name     string
	ch       chan string
	cancel   context.CancelFunc
	perFetch int
	now      func() time.Time
	logger   *slog.Logger
}

// NewLineSource starts reading r in a background goroutine until ctx is
// done, Stop is called or r is exhausted.
func NewLineSource(ctx context.Context, name string, r io.Reader, conf ...LineConfig) *LineSource {
	c := LineConfig{BufferSize: DefaultLineBuffer, MaxLineSize: DefaultMaxLineSize}
	if len(conf) > 0 {
		if conf[0].BufferSize > 0 {
			c.BufferSize = conf[0].BufferSize
		}
		if conf[0].MaxLineSize > 0 {
			c.MaxLineSize = conf[0].MaxLineSize
		}
		c.PerFetch = conf[0].PerFetch
		c.Logger = conf[0].Logger
	}
	if c.PerFetch <= 0 {
		c.PerFetch = c.BufferSize
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &LineSource{
		name:     name,
		ch:       make(chan string, c.BufferSize),
		cancel:   cancel,
		perFetch: c.PerFetch,
		now:      time.Now,
		logger:   c.Logger,
	}
	go s.read(ctx, r, c.MaxLineSize)
	return s
}

func (s *LineSource) read(ctx context.Context, r io.Reader, maxLineSize int) {
	defer close(s.ch)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	// A single goroutine does the blocking scan; the loop below only
	// selects on its results and ctx.
	type scanResult struct {
		line string
		ok   bool
	}
	results := make(chan scanResult)
	go func() {
		defer close(results)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			select {
			case results <- scanResult{line: line, ok: true}:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			if errors.Is(err, bufio.ErrTooLong) {
				s.logger.Warn("line exceeded max size, stopping source", "source", s.name, "max_bytes", maxLineSize)
				return
			}
			s.logger.Warn("line source scan failed", "source", s.name, "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-results:
			if !ok || !r.ok {
				return
			}
			select {
			case s.ch <- r.line:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *LineSource) Name() string { return s.name }

// Fetch returns the lines buffered since the last call, newest last in
// arrival order and newest first by CreatedAt. It never blocks.
func (s *LineSource) Fetch(ctx context.Context) ([]model.FeedItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := s.now()
	var items []model.FeedItem
	for len(items) < s.perFetch {
		select {
		case line, ok := <-s.ch:
			if !ok {
				return items, nil
			}
			items = append(items, model.FeedItem{
				CreatedAt: now.Add(time.Duration(len(items)) * time.Millisecond),
				Title:     line,
				Source:    s.name,
			})
		default:
			return items, nil
		}
	}
	return items, nil
}

// Stop ends the background reader. It is safe to call more than once.
func (s *LineSource) Stop() { s.cancel() }
