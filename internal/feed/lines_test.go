package feed

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/tinytelemetry/refresher/internal/model"
)

// fetchUntil polls src until it has returned want items in total.
func fetchUntil(t *testing.T, src *LineSource, want int) []model.FeedItem {
	t.Helper()
	var got []model.FeedItem
	deadline := time.Now().Add(2 * time.Second)
	for len(got) < want {
		if time.Now().After(deadline) {
			t.Fatalf("timed out with %d of %d items", len(got), want)
		}
		items, err := src.Fetch(context.Background())
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		got = append(got, items...)
		time.Sleep(5 * time.Millisecond)
	}
	return got
}

func TestLineSourceFetchesBufferedLines(t *testing.T) {
	t.Parallel()

	src := NewLineSource(context.Background(), "stdin", strings.NewReader("first\n\nsecond\nthird\n"))
	defer src.Stop()

	items := fetchUntil(t, src, 3)
	if len(items) != 3 {
		t.Fatalf("items = %d, want 3 (blank lines skipped)", len(items))
	}
	if items[0].Title != "first" || items[2].Title != "third" || items[0].Source != "stdin" {
		t.Fatalf("items = %+v", items)
	}
}

func TestLineSourcePerFetchLimit(t *testing.T) {
	t.Parallel()

	src := NewLineSource(context.Background(), "pipe", strings.NewReader("a\nb\nc\n"), LineConfig{PerFetch: 2})
	defer src.Stop()

	// Wait until the reader has drained the input into the buffer.
	deadline := time.Now().Add(2 * time.Second)
	for len(src.ch) < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("buffered %d lines, want 3", len(src.ch))
		}
		time.Sleep(5 * time.Millisecond)
	}

	first, err := src.Fetch(context.Background())
	if err != nil || len(first) != 2 {
		t.Fatalf("first fetch = %d items, err %v; want 2", len(first), err)
	}
	if !first[1].CreatedAt.After(first[0].CreatedAt) {
		t.Fatal("later lines should sort first")
	}
	rest, err := src.Fetch(context.Background())
	if err != nil || len(rest) != 1 || rest[0].Title != "c" {
		t.Fatalf("second fetch = %+v, err %v", rest, err)
	}
}

func TestLineSourceFetchDoesNotBlock(t *testing.T) {
	t.Parallel()

	r, w := io.Pipe()
	defer w.Close()
	src := NewLineSource(context.Background(), "pipe", r)
	defer src.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		items, err := src.Fetch(context.Background())
		if err != nil || len(items) != 0 {
			t.Errorf("Fetch = %d items, err %v; want none", len(items), err)
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Fetch blocked on an idle reader")
	}

	go func() { _, _ = io.WriteString(w, "late\n") }()
	if items := fetchUntil(t, src, 1); items[0].Title != "late" {
		t.Fatalf("items = %+v", items)
	}
}

func TestLineSourceStopIsIdempotent(t *testing.T) {
	t.Parallel()

	r, w := io.Pipe()
	defer w.Close()

	src := NewLineSource(context.Background(), "pipe", r)
	src.Stop()
	src.Stop()

	select {
	case _, ok := <-src.ch:
		if ok {
			t.Fatal("expected buffer to be closed after Stop")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for buffer to close")
	}
}

func TestLineSourceCanceledContext(t *testing.T) {
	t.Parallel()

	src := NewLineSource(context.Background(), "pipe", strings.NewReader("x\n"))
	defer src.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Fetch(ctx); err == nil {
		t.Fatal("expected context error")
	}
}
