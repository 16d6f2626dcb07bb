package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"
)

//go:embed migrations/*.sql
var files embed.FS

// Status describes the feed schema in a database.
type Status struct {
	Applied int      // highest applied version, 0 for an empty database
	Latest  int      // highest version shipped with this binary
	Pending []string // file names not yet applied, in order
}

// UpToDate reports whether no migration is pending.
func (s Status) UpToDate() bool { return len(s.Pending) == 0 }

// Runner brings a database up to the feed schema.
type Runner struct{ db *sql.DB }

// NewRunner creates a migration runner for the given database connection.
func NewRunner(db *sql.DB) *Runner {
	return &Runner{db: db}
}

type step struct {
	version int
	file    string
	body    string
}

// steps returns the embedded NNN_name.sql files ordered by version.
func steps() ([]step, error) {
	names, err := fs.Glob(files, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("listing feed migrations: %w", err)
	}

	out := make([]step, 0, len(names))
	for _, name := range names {
		file := path.Base(name)
		prefix, _, ok := strings.Cut(file, "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("feed migration %s: bad version: %w", file, err)
		}
		body, err := files.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("feed migration %s: %w", file, err)
		}
		out = append(out, step{version: version, file: file, body: string(body)})
	}
	slices.SortFunc(out, func(a, b step) int { return a.version - b.version })
	return out, nil
}

// applied creates the bookkeeping table when missing and returns the
// highest recorded version.
func (r *Runner) applied(ctx context.Context) (int, error) {
	if _, err := r.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		name       VARCHAR NOT NULL,
		applied_at TIMESTAMP DEFAULT current_timestamp
	)`); err != nil {
		return 0, fmt.Errorf("creating schema_migrations: %w", err)
	}

	var v sql.NullInt64
	if err := r.db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&v); err != nil {
		return 0, fmt.Errorf("reading feed schema version: %w", err)
	}
	return int(v.Int64), nil
}

// plan returns the current status and the steps still to run.
func (r *Runner) plan(ctx context.Context) (Status, []step, error) {
	all, err := steps()
	if err != nil {
		return Status{}, nil, err
	}
	current, err := r.applied(ctx)
	if err != nil {
		return Status{}, nil, err
	}

	st := Status{Applied: current}
	var todo []step
	for _, s := range all {
		st.Latest = max(st.Latest, s.version)
		if s.version > current {
			todo = append(todo, s)
			st.Pending = append(st.Pending, s.file)
		}
	}
	return st, todo, nil
}

// Status reports the applied and pending feed migrations without running any.
func (r *Runner) Status(ctx context.Context) (Status, error) {
	st, _, err := r.plan(ctx)
	return st, err
}

// Run applies pending migrations in version order, one transaction each,
// and returns the file names it applied.
func (r *Runner) Run(ctx context.Context) ([]string, error) {
	_, todo, err := r.plan(ctx)
	if err != nil {
		return nil, err
	}

	var done []string
	for _, s := range todo {
		if err := r.apply(ctx, s); err != nil {
			return done, err
		}
		done = append(done, s.file)
	}
	return done, nil
}

func (r *Runner) apply(ctx context.Context, s step) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("feed migration %s: begin: %w", s.file, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.body); err != nil {
		return fmt.Errorf("feed migration %s: %w", s.file, err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version, name) VALUES (?, ?)", s.version, s.file); err != nil {
		return fmt.Errorf("feed migration %s: record: %w", s.file, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("feed migration %s: commit: %w", s.file, err)
	}
	return nil
}
