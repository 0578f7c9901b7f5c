package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/mattn/go-sqlite3"

	"github.com/pbaille/pathranger/internal/domain"
)

// querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// isBusy reports whether err is SQLite lock contention.
func isBusy(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}

func (s *Store) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond
	b.MaxElapsedTime = s.retryBudget
	return b
}

// retry runs fn until it succeeds, fails with a non-busy error, or the
// retry budget is spent. The returned error is already classified.
func (s *Store) retry(ctx context.Context, op string, fn func() error) error {
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		if isBusy(err) {
			s.logger.Warn("database busy", "op", op, "attempt", attempt, "error", err)
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(s.newBackOff(), ctx))

	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	case isBusy(err):
		return fmt.Errorf("%s after %d attempts: %w", op, attempt, domain.ErrStorageBusy)
	case errors.Is(err, domain.ErrNotFound), domain.IsStorageError(err):
		return err
	default:
		return &domain.StorageError{Op: op, Err: err}
	}
}

// write runs fn inside a BEGIN IMMEDIATE transaction on a dedicated
// connection, so concurrent writers from other processes are serialized by
// SQLite's reserved lock. Busy failures are retried.
func (s *Store) write(ctx context.Context, op string, fn func(q querier) error) error {
	return s.retry(ctx, op, func() error {
		return s.writeOnce(ctx, fn)
	})
}

func (s *Store) writeOnce(ctx context.Context, fn func(q querier) error) (err error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	if err := fn(conn); err != nil {
		return err
	}
	_, err = conn.ExecContext(ctx, "COMMIT")
	return err
}

// read runs fn inside a deferred transaction so multi-statement reads see
// one committed snapshot.
func (s *Store) read(ctx context.Context, op string, fn func(q querier) error) error {
	return s.retry(ctx, op, func() error {
		tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if err := fn(tx); err != nil {
			return err
		}
		return tx.Commit()
	})
}
