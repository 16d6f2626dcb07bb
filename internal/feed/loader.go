package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tinytelemetry/refresher/internal/model"

	"golang.org/x/sync/singleflight"
)

// Snapshot is the feed state after one refresh.
type Snapshot struct {
	Items    []model.FeedItem
	Added    int
	Total    int64
	LoadedAt time.Time
	Shared   bool // result was produced by a concurrent refresh
}

// Loader pulls new items from a Source into a store and reads back the
// latest ones. Concurrent Refresh calls share a single run.
type Loader struct {
	store  model.FeedStore
	source Source
	limit  int
	logger *slog.Logger

	group singleflight.Group
}

// NewLoader creates a Loader. limit bounds the items returned per snapshot.
func NewLoader(store model.FeedStore, source Source, limit int, logger *slog.Logger) *Loader {
	if limit <= 0 {
		limit = model.DefaultFeedLimit
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{store: store, source: source, limit: limit, logger: logger}
}

// Refresh fetches new items, stores them and returns the latest snapshot.
func (l *Loader) Refresh(ctx context.Context) (Snapshot, error) {
	v, err, shared := l.group.Do("refresh", func() (any, error) {
		return l.refresh(ctx)
	})
	if err != nil {
		return Snapshot{}, err
	}
	snap := v.(Snapshot)
	snap.Shared = shared
	return snap, nil
}

// Latest reads the current snapshot without fetching.
func (l *Loader) Latest(ctx context.Context) (Snapshot, error) {
	return l.read(ctx, 0)
}

func (l *Loader) refresh(ctx context.Context) (Snapshot, error) {
	var added int
	if l.source != nil {
		items, err := l.source.Fetch(ctx)
		if err != nil {
			return Snapshot{}, fmt.Errorf("feed: fetch from %s: %w", l.source.Name(), err)
		}
		if err := l.store.InsertItems(ctx, items); err != nil {
			return Snapshot{}, err
		}
		added = len(items)
	}

	snap, err := l.read(ctx, added)
	if err != nil {
		return Snapshot{}, err
	}
	l.logger.Info("feed refreshed", "added", added, "total", snap.Total)
	return snap, nil
}

func (l *Loader) read(ctx context.Context, added int) (Snapshot, error) {
	items, err := l.store.LatestItems(ctx, l.limit)
	if err != nil {
		return Snapshot{}, err
	}
	total, err := l.store.ItemCount(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Items:    items,
		Added:    added,
		Total:    total,
		LoadedAt: time.Now(),
	}, nil
}
