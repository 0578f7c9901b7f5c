// Package query answers navigation questions (top, recent, search, goto)
// from the entry store and applies tag mutations.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pbaille/pathranger/internal/domain"
	"github.com/pbaille/pathranger/internal/frecency"
	"github.com/pbaille/pathranger/internal/fuzzy"
	"github.com/pbaille/pathranger/internal/logging"
)

// Store is the persistence the service needs. *store.Store implements it.
type Store interface {
	RecordVisit(ctx context.Context, path string, at time.Time) (domain.Entry, error)
	ListEntries(ctx context.Context) ([]domain.Entry, error)
	DeleteEntry(ctx context.Context, path string) (bool, error)
	SetTag(ctx context.Context, name, path string, at time.Time) (domain.Tag, error)
	RemoveTag(ctx context.Context, name string) (bool, error)
	ResolveTag(ctx context.Context, name string) (string, bool, error)
	ListTags(ctx context.Context) ([]domain.Tag, error)
	Snapshot(ctx context.Context) ([]domain.Entry, []domain.Tag, error)
}

// Service orchestrates the store, the frecency model and the fuzzy matcher
type Service struct {
	store  Store
	model  frecency.Model
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Service
type Option func(*Service)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = logging.OrDiscard(l) }
}

// New creates a Service. model must use the same half-life as the store.
func New(store Store, model frecency.Model, opts ...Option) *Service {
	s := &Service{
		store:  store,
		model:  model,
		now:    time.Now,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnDirectoryChange records a visit of path. It returns once the visit is durable.
func (s *Service) OnDirectoryChange(ctx context.Context, path string) (domain.Entry, error) {
	p, err := cleanPath(path)
	if err != nil {
		return domain.Entry{}, err
	}

	e, err := s.store.RecordVisit(ctx, p, s.now())
	if err != nil {
		return domain.Entry{}, err
	}
	s.logger.Debug("visit recorded", "path", e.Path, "visits", e.VisitCount)
	return e, nil
}

// Top returns the n entries with the highest frecency right now.
func (s *Service) Top(ctx context.Context, n int) ([]domain.RankedEntry, error) {
	if n <= 0 {
		return []domain.RankedEntry{}, nil
	}

	entries, err := s.store.ListEntries(ctx)
	if err != nil {
		return nil, err
	}

	ranked := s.rank(entries, s.now())
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.LastVisited.Equal(b.LastVisited) {
			return a.LastVisited.After(b.LastVisited)
		}
		return a.Path < b.Path
	})
	return head(ranked, n), nil
}

// Recent returns the n most recently visited entries, ignoring frequency.
func (s *Service) Recent(ctx context.Context, n int) ([]domain.RankedEntry, error) {
	if n <= 0 {
		return []domain.RankedEntry{}, nil
	}

	entries, err := s.store.ListEntries(ctx)
	if err != nil {
		return nil, err
	}

	ranked := s.rank(entries, s.now())
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if !a.LastVisited.Equal(b.LastVisited) {
			return a.LastVisited.After(b.LastVisited)
		}
		return a.Path < b.Path
	})
	return head(ranked, n), nil
}

const (
	pathKeyPrefix = "path:"
	tagKeyPrefix  = "tag:"
)

// Search fuzzy-matches query against known paths and tag names. Among equal
// matches the more frecent path wins. limit <= 0 returns every match.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	entries, tags, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	frecencies := make(map[string]float64, len(entries))
	candidates := make([]fuzzy.Candidate, 0, len(entries)+len(tags))
	for _, e := range entries {
		frecencies[e.Path] = s.model.Score(e, now)
		candidates = append(candidates, fuzzy.Candidate{Key: pathKeyPrefix + e.Path, Text: e.Path})
	}
	targets := make(map[string]string, len(tags))
	for _, t := range tags {
		targets[t.Name] = t.Path
		candidates = append(candidates, fuzzy.Candidate{Key: tagKeyPrefix + t.Name, Text: t.Name})
	}

	matches := fuzzy.Match(query, candidates)
	results := make([]domain.SearchResult, len(matches))
	for i, m := range matches {
		r := domain.SearchResult{MatchScore: m.Score}
		if name, ok := strings.CutPrefix(m.Key, tagKeyPrefix); ok {
			r.Kind = domain.KindTag
			r.Tag = name
			r.Path = targets[name]
		} else {
			r.Kind = domain.KindPath
			r.Path = m.Text
		}
		r.Frecency = frecencies[r.Path]
		results[i] = r
	}

	// Stable: equal results keep the matcher's length and lexical tie-break.
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.MatchScore != b.MatchScore {
			return a.MatchScore > b.MatchScore
		}
		return a.Frecency > b.Frecency
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Goto resolves target to a directory: a tag name wins, otherwise the best
// fuzzy match among known paths. The same store state and target always
// yield the same path.
func (s *Service) Goto(ctx context.Context, target string) (string, error) {
	if strings.TrimSpace(target) == "" {
		return "", fmt.Errorf("goto: empty target: %w", domain.ErrNotFound)
	}

	path, found, err := s.store.ResolveTag(ctx, target)
	if err != nil {
		return "", err
	}
	if found {
		return path, nil
	}

	entries, err := s.store.ListEntries(ctx)
	if err != nil {
		return "", err
	}

	candidates := make([]fuzzy.Candidate, len(entries))
	for i, e := range entries {
		candidates[i] = fuzzy.Candidate{Key: e.Path, Text: e.Path}
	}
	matches := fuzzy.Match(target, candidates)
	if len(matches) == 0 {
		return "", fmt.Errorf("goto %q: %w", target, domain.ErrNotFound)
	}

	now := s.now()
	frecencies := make(map[string]float64, len(entries))
	for _, e := range entries {
		frecencies[e.Path] = s.model.Score(e, now)
	}

	best := matches[0]
	for _, m := range matches[1:] {
		if m.Score < best.Score {
			break
		}
		if frecencies[m.Key] > frecencies[best.Key] {
			best = m
		}
	}
	return best.Key, nil
}

// Mark binds name to path. Marking also counts as a visit of path, so an
// unvisited directory becomes an entry.
func (s *Service) Mark(ctx context.Context, name, path string) (domain.Tag, error) {
	if err := ValidateTagName(name); err != nil {
		return domain.Tag{}, err
	}
	p, err := cleanPath(path)
	if err != nil {
		return domain.Tag{}, err
	}

	tag, err := s.store.SetTag(ctx, name, p, s.now())
	if err != nil {
		return domain.Tag{}, err
	}
	s.logger.Debug("tag set", "tag", tag.Name, "path", tag.Path)
	return tag, nil
}

// Untag removes the tag called name. It reports whether the tag existed;
// an absent tag is not an error.
func (s *Service) Untag(ctx context.Context, name string) (bool, error) {
	if err := ValidateTagName(name); err != nil {
		return false, err
	}

	removed, err := s.store.RemoveTag(ctx, name)
	if err != nil {
		return false, err
	}
	s.logger.Debug("tag removed", "tag", name, "existed", removed)
	return removed, nil
}

// ResolveTag returns the path bound to name and whether the tag exists.
func (s *Service) ResolveTag(ctx context.Context, name string) (string, bool, error) {
	if err := ValidateTagName(name); err != nil {
		return "", false, err
	}
	return s.store.ResolveTag(ctx, name)
}

// Tags lists every tag ordered by name.
func (s *Service) Tags(ctx context.Context) ([]domain.Tag, error) {
	return s.store.ListTags(ctx)
}

// ValidateTagName rejects empty names and names containing a path separator.
func ValidateTagName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("tag name is empty: %w", domain.ErrInvalidTagName)
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, filepath.Separator) {
		return fmt.Errorf("tag name %q contains a path separator: %w", name, domain.ErrInvalidTagName)
	}
	return nil
}

func cleanPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is empty: %w", domain.ErrInvalidPath)
	}
	p := filepath.Clean(path)
	if !filepath.IsAbs(p) {
		return "", fmt.Errorf("path %q is not absolute: %w", path, domain.ErrInvalidPath)
	}
	return p, nil
}

func (s *Service) rank(entries []domain.Entry, now time.Time) []domain.RankedEntry {
	ranked := make([]domain.RankedEntry, len(entries))
	for i, e := range entries {
		ranked[i] = domain.RankedEntry{Entry: e, Score: s.model.Score(e, now)}
	}
	return ranked
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
