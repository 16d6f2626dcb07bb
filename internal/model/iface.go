package model

import "context"

// FeedReader provides read-only queries on feed items.
type FeedReader interface {
	LatestItems(ctx context.Context, limit int) ([]FeedItem, error)
	ItemCount(ctx context.Context) (int64, error)
}

// FeedWriter provides append-oriented writes for new feed items.
type FeedWriter interface {
	InsertItems(ctx context.Context, items []FeedItem) error
}

// FeedStore is the unified read/write contract used by the feed loader.
type FeedStore interface {
	FeedReader
	FeedWriter
}
