package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pbaille/pathranger/internal/domain"
	"github.com/pbaille/pathranger/internal/frecency"
	"github.com/pbaille/pathranger/internal/logging"
)

//go:embed schema.sql
var schema string

// schemaVersion is stored in PRAGMA user_version.
const schemaVersion = 1

const (
	DefaultBusyTimeout = time.Second
	DefaultRetryBudget = 3 * time.Second
)

// Options tunes a Store. Zero values select the defaults.
type Options struct {
	HalfLife    time.Duration
	BusyTimeout time.Duration
	RetryBudget time.Duration
	Logger      *slog.Logger
}

// Store handles database operations
type Store struct {
	db          *sql.DB
	path        string
	model       frecency.Model
	retryBudget time.Duration
	logger      *slog.Logger
}

// New opens the database at dbPath and creates the schema if needed
func New(dbPath string, opts Options) (*Store, error) {
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = DefaultBusyTimeout
	}
	if opts.RetryBudget <= 0 {
		opts.RetryBudget = DefaultRetryBudget
	}

	dsn := fmt.Sprintf("%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=FULL",
		dbPath, opts.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, &domain.StorageError{Op: "open database", Err: err}
	}

	s := &Store{
		db:          db,
		path:        dbPath,
		model:       frecency.New(opts.HalfLife),
		retryBudget: opts.RetryBudget,
		logger:      logging.OrDiscard(opts.Logger),
	}

	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file location
func (s *Store) Path() string {
	return s.path
}

// Model returns the frecency model used to update rank accumulators
func (s *Store) Model() frecency.Model {
	return s.model
}

func (s *Store) migrate(ctx context.Context) error {
	return s.write(ctx, "init schema", func(q querier) error {
		var version int
		if err := q.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
			return err
		}

		switch {
		case version == schemaVersion:
			return nil
		case version > schemaVersion:
			return &domain.StorageError{
				Op:  "init schema",
				Err: fmt.Errorf("database schema version %d is newer than supported version %d", version, schemaVersion),
			}
		}

		s.logger.Debug("initializing schema", "path", s.path, "from", version, "to", schemaVersion)
		if _, err := q.ExecContext(ctx, schema); err != nil {
			return err
		}
		_, err := q.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion))
		return err
	})
}

// RecordVisit counts one visit of path at the given instant, creating the
// entry on first visit, and returns the updated entry.
func (s *Store) RecordVisit(ctx context.Context, path string, at time.Time) (domain.Entry, error) {
	var entry domain.Entry
	err := s.write(ctx, "record visit", func(q querier) error {
		var err error
		entry, err = s.recordVisit(ctx, q, path, at)
		return err
	})
	return entry, err
}

func (s *Store) recordVisit(ctx context.Context, q querier, path string, at time.Time) (domain.Entry, error) {
	at = at.UTC()

	prev, found, err := getEntry(ctx, q, path)
	if err != nil {
		return domain.Entry{}, err
	}

	next := domain.Entry{
		Path:            path,
		VisitCount:      1,
		LastVisited:     at,
		RankAccumulator: s.model.Accumulate(prev, at),
	}

	if !found {
		_, err = q.ExecContext(ctx,
			"INSERT INTO entries (path, visit_count, last_visited, rank_accumulator) VALUES (?, ?, ?, ?)",
			next.Path, next.VisitCount, next.LastVisited, next.RankAccumulator,
		)
		if err != nil {
			return domain.Entry{}, fmt.Errorf("insert entry: %w", err)
		}
		return next, nil
	}

	next.VisitCount = prev.VisitCount + 1
	_, err = q.ExecContext(ctx,
		"UPDATE entries SET visit_count = ?, last_visited = ?, rank_accumulator = ? WHERE path = ?",
		next.VisitCount, next.LastVisited, next.RankAccumulator, next.Path,
	)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("update entry: %w", err)
	}
	return next, nil
}

// GetEntry retrieves the entry for path; found is false when it was never visited
func (s *Store) GetEntry(ctx context.Context, path string) (entry domain.Entry, found bool, err error) {
	err = s.read(ctx, "get entry", func(q querier) error {
		entry, found, err = getEntry(ctx, q, path)
		return err
	})
	return entry, found, err
}

func getEntry(ctx context.Context, q querier, path string) (domain.Entry, bool, error) {
	var e domain.Entry
	err := q.QueryRowContext(ctx,
		"SELECT path, visit_count, last_visited, rank_accumulator FROM entries WHERE path = ?",
		path,
	).Scan(&e.Path, &e.VisitCount, &e.LastVisited, &e.RankAccumulator)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Entry{}, false, nil
	}
	if err != nil {
		return domain.Entry{}, false, fmt.Errorf("get entry: %w", err)
	}
	return e, true, nil
}

// ListEntries returns every entry in no particular order
func (s *Store) ListEntries(ctx context.Context) ([]domain.Entry, error) {
	var entries []domain.Entry
	err := s.read(ctx, "list entries", func(q querier) error {
		var err error
		entries, err = listEntries(ctx, q)
		return err
	})
	return entries, err
}

func listEntries(ctx context.Context, q querier) ([]domain.Entry, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT path, visit_count, last_visited, rank_accumulator FROM entries",
	)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.Entry
	for rows.Next() {
		var e domain.Entry
		if err := rows.Scan(&e.Path, &e.VisitCount, &e.LastVisited, &e.RankAccumulator); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// DeleteEntry removes the entry for path. Tags pointing at it are kept.
func (s *Store) DeleteEntry(ctx context.Context, path string) (bool, error) {
	var deleted bool
	err := s.write(ctx, "delete entry", func(q querier) error {
		res, err := q.ExecContext(ctx, "DELETE FROM entries WHERE path = ?", path)
		if err != nil {
			return fmt.Errorf("delete entry: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		deleted = n > 0
		return nil
	})
	return deleted, err
}

// Snapshot returns all entries and tags as seen by a single transaction
func (s *Store) Snapshot(ctx context.Context) ([]domain.Entry, []domain.Tag, error) {
	var (
		entries []domain.Entry
		tags    []domain.Tag
	)
	err := s.read(ctx, "snapshot", func(q querier) error {
		var err error
		if entries, err = listEntries(ctx, q); err != nil {
			return err
		}
		tags, err = listTags(ctx, q)
		return err
	})
	return entries, tags, err
}
