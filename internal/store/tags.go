package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pbaille/pathranger/internal/domain"
)

// SetTag binds name to path, replacing any previous binding. The target is
// recorded as visited in the same transaction so every tag points at an
// existing entry.
func (s *Store) SetTag(ctx context.Context, name, path string, at time.Time) (domain.Tag, error) {
	var tag domain.Tag
	err := s.write(ctx, "set tag", func(q querier) error {
		at := at.UTC()

		var id string
		err := q.QueryRowContext(ctx, "SELECT id FROM tags WHERE name = ?", name).Scan(&id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			id = uuid.New().String()
			_, err = q.ExecContext(ctx,
				"INSERT INTO tags (name, id, path, created_at) VALUES (?, ?, ?, ?)",
				name, id, path, at,
			)
			if err != nil {
				return fmt.Errorf("insert tag: %w", err)
			}
		case err != nil:
			return fmt.Errorf("find tag: %w", err)
		default:
			_, err = q.ExecContext(ctx,
				"UPDATE tags SET path = ?, created_at = ? WHERE name = ?",
				path, at, name,
			)
			if err != nil {
				return fmt.Errorf("update tag: %w", err)
			}
		}

		if _, err := s.recordVisit(ctx, q, path, at); err != nil {
			return err
		}

		tag = domain.Tag{ID: id, Name: name, Path: path, CreatedAt: at}
		return nil
	})
	return tag, err
}

// RemoveTag deletes the tag called name. Removing an absent tag is not an error.
func (s *Store) RemoveTag(ctx context.Context, name string) (bool, error) {
	var removed bool
	err := s.write(ctx, "remove tag", func(q querier) error {
		res, err := q.ExecContext(ctx, "DELETE FROM tags WHERE name = ?", name)
		if err != nil {
			return fmt.Errorf("delete tag: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		removed = n > 0
		return nil
	})
	return removed, err
}

// ResolveTag returns the path bound to name
func (s *Store) ResolveTag(ctx context.Context, name string) (path string, found bool, err error) {
	err = s.read(ctx, "resolve tag", func(q querier) error {
		err := q.QueryRowContext(ctx, "SELECT path FROM tags WHERE name = ?", name).Scan(&path)
		if errors.Is(err, sql.ErrNoRows) {
			found = false
			return nil
		}
		if err != nil {
			return fmt.Errorf("resolve tag: %w", err)
		}
		found = true
		return nil
	})
	return path, found, err
}

// ListTags returns all tags ordered by name
func (s *Store) ListTags(ctx context.Context) ([]domain.Tag, error) {
	var tags []domain.Tag
	err := s.read(ctx, "list tags", func(q querier) error {
		var err error
		tags, err = listTags(ctx, q)
		return err
	})
	return tags, err
}

func listTags(ctx context.Context, q querier) ([]domain.Tag, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, name, path, created_at FROM tags ORDER BY name",
	)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []domain.Tag
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Path, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}

	return tags, rows.Err()
}
