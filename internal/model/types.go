package model

import "time"

// Insets is the padding added around a scroll surface's scrollable region.
type Insets struct {
	Top    float64
	Left   float64
	Bottom float64
	Right  float64
}

// Bounds is the size of a laid-out element.
type Bounds struct {
	Width  float64
	Height float64
}

// FeedItem is a single entry shown in the refreshable feed.
// It is the canonical type for storage and display.
type FeedItem struct {
	ID        int64
	CreatedAt time.Time
	Title     string
	Body      string
	Source    string
}
