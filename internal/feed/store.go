package feed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tinytelemetry/refresher/internal/feed/migrate"
	"github.com/tinytelemetry/refresher/internal/model"

	_ "github.com/duckdb/duckdb-go/v2"
)

// ErrInvalidLimit is returned by queries given a non-positive limit.
var ErrInvalidLimit = errors.New("feed: limit must be positive")

// Store keeps feed items in DuckDB.
type Store struct {
	db           *sql.DB
	mu           sync.RWMutex
	dbPath       string
	migrated     []string
	QueryTimeout time.Duration
}

// NewStore opens or creates a DuckDB database and applies migrations.
// If dbPath is empty, an in-memory database is used.
// An optional queryTimeout can be passed; it defaults to 30s.
func NewStore(dbPath string, queryTimeout ...time.Duration) (*Store, error) {
	dsn := ""
	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("feed: mkdir: %w", err)
		}
		dsn = dbPath
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("feed: open: %w", err)
	}

	qt := 30 * time.Second
	if len(queryTimeout) > 0 && queryTimeout[0] > 0 {
		qt = queryTimeout[0]
	}

	ctx, cancel := context.WithTimeout(context.Background(), qt)
	defer cancel()
	migrated, err := migrate.NewRunner(db).Run(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("feed: migrate: %w", err)
	}

	return &Store{
		db:           db,
		dbPath:       dbPath,
		migrated:     migrated,
		QueryTimeout: qt,
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DBPath returns the database file path, empty for in-memory stores.
func (s *Store) DBPath() string {
	return s.dbPath
}

// Migrated returns the migrations NewStore applied when opening the database.
func (s *Store) Migrated() []string {
	return s.migrated
}

// SchemaStatus reports the feed schema version of the open database.
func (s *Store) SchemaStatus(ctx context.Context) (migrate.Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()
	return migrate.NewRunner(s.db).Status(ctx)
}

// queryCtx bounds a query by QueryTimeout on top of the caller's deadline.
func (s *Store) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, s.QueryTimeout)
}

// InsertItems appends items in a single transaction. IDs are assigned by
// the database; a zero CreatedAt is stored as the insert time.
func (s *Store) InsertItems(ctx context.Context, items []model.FeedItem) error {
	if len(items) == 0 {
		return nil
	}

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("feed: begin insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO feed_items (created_at, title, body, source) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("feed: prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, it := range items {
		createdAt := it.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		if _, err := stmt.ExecContext(ctx, createdAt, it.Title, it.Body, it.Source); err != nil {
			return fmt.Errorf("feed: insert %q: %w", it.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("feed: commit insert: %w", err)
	}
	return nil
}

// LatestItems returns up to limit items, newest first.
func (s *Store) LatestItems(ctx context.Context, limit int) ([]model.FeedItem, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, title, body, source
		FROM feed_items
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("feed: latest items: %w", err)
	}
	defer rows.Close()

	items := make([]model.FeedItem, 0, limit)
	for rows.Next() {
		var it model.FeedItem
		if err := rows.Scan(&it.ID, &it.CreatedAt, &it.Title, &it.Body, &it.Source); err != nil {
			return nil, fmt.Errorf("feed: scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ItemCount returns the number of stored items.
func (s *Store) ItemCount(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feed_items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("feed: count items: %w", err)
	}
	return n, nil
}
