package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tinytelemetry/refresher/internal/model"
)

// Source produces the items that a refresh adds to the feed.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]model.FeedItem, error)
}

var (
	syntheticSubjects = []string{"build", "deploy", "backup", "index", "report", "sync", "cache", "release"}
	syntheticVerbs    = []string{"finished", "started", "queued", "retried", "skipped", "verified"}
)

// SyntheticSource generates a fixed number of deterministic items per fetch.
// It stands in for a remote feed in the demo and in tests.
type SyntheticSource struct {
	perFetch int
	now      func() time.Time

	mu  sync.Mutex
	seq int
}

// NewSyntheticSource returns a source producing perFetch items per Fetch.
func NewSyntheticSource(perFetch int) *SyntheticSource {
	if perFetch <= 0 {
		perFetch = model.DefaultItemsPerRefresh
	}
	return &SyntheticSource{perFetch: perFetch, now: time.Now}
}

func (s *SyntheticSource) Name() string { return "synthetic" }

func (s *SyntheticSource) Fetch(ctx context.Context) ([]model.FeedItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	items := make([]model.FeedItem, 0, s.perFetch)
	for i := 0; i < s.perFetch; i++ {
		s.seq++
		subject := syntheticSubjects[s.seq%len(syntheticSubjects)]
		verb := syntheticVerbs[s.seq%len(syntheticVerbs)]
		items = append(items, model.FeedItem{
			// Later items in a batch sort first.
			CreatedAt: now.Add(time.Duration(i) * time.Millisecond),
			Title:     fmt.Sprintf("#%d %s %s", s.seq, subject, verb),
			Body:      fmt.Sprintf("%s %s at %s", subject, verb, now.Format(time.TimeOnly)),
			Source:    s.Name(),
		})
	}
	return items, nil
}
