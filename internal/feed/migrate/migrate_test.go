package migrate

import (
	"context"
	"database/sql"
	"slices"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
)

var allFiles = []string{"001_feed_items.sql", "002_feed_items_created_at_idx.sql"}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("open duckdb: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunCreatesFeedSchema(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	done, err := NewRunner(db).Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !slices.Equal(done, allFiles) {
		t.Fatalf("applied = %v, want %v", done, allFiles)
	}

	for _, table := range []string{"feed_items", "schema_migrations"} {
		var name string
		err := db.QueryRowContext(ctx, "SELECT table_name FROM information_schema.tables WHERE table_name = ?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestRunIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	r := NewRunner(db)

	if _, err := r.Run(ctx); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	done, err := r.Run(ctx)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if len(done) != 0 {
		t.Fatalf("second Run applied %v, want nothing", done)
	}

	st, err := r.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Applied != 2 || st.Latest != 2 || !st.UpToDate() {
		t.Errorf("status = %+v, want applied=2 latest=2 up to date", st)
	}
}

func TestStatusBeforeRun(t *testing.T) {
	db := openTestDB(t)

	st, err := NewRunner(db).Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Applied != 0 || st.Latest != 2 || st.UpToDate() {
		t.Errorf("status = %+v, want applied=0 latest=2 pending", st)
	}
	if !slices.Equal(st.Pending, allFiles) {
		t.Errorf("pending = %v, want %v", st.Pending, allFiles)
	}
}

func TestRunStopsOnCanceledContext(t *testing.T) {
	db := openTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewRunner(db).Run(ctx); err == nil {
		t.Fatal("Run with canceled context succeeded")
	}
}
