package query

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultPruneConcurrency bounds parallel directory checks during Prune.
const DefaultPruneConcurrency = 8

// ExistsFunc reports whether the directory at path still exists.
type ExistsFunc func(path string) (bool, error)

// Forget deletes the entry for path. Tags pointing at it are left alone.
func (s *Service) Forget(ctx context.Context, path string) (bool, error) {
	p, err := cleanPath(path)
	if err != nil {
		return false, err
	}

	deleted, err := s.store.DeleteEntry(ctx, p)
	if err != nil {
		return false, err
	}
	s.logger.Debug("entry forgotten", "path", p, "existed", deleted)
	return deleted, nil
}

// Prune deletes every entry whose directory no longer exists and returns the
// removed paths in lexical order. Existence checks run concurrently, at most
// concurrency at a time.
func (s *Service) Prune(ctx context.Context, exists ExistsFunc, concurrency int) ([]string, error) {
	if concurrency <= 0 {
		concurrency = DefaultPruneConcurrency
	}

	entries, err := s.store.ListEntries(ctx)
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		missing []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, e := range entries {
		path := e.Path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ok, err := exists(path)
			if err != nil {
				return fmt.Errorf("check %s: %w", path, err)
			}
			if !ok {
				mu.Lock()
				missing = append(missing, path)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Strings(missing)
	removed := make([]string, 0, len(missing))
	for _, path := range missing {
		deleted, err := s.store.DeleteEntry(ctx, path)
		if err != nil {
			return removed, err
		}
		if deleted {
			removed = append(removed, path)
		}
	}

	s.logger.Debug("pruned entries", "checked", len(entries), "removed", len(removed))
	return removed, nil
}
