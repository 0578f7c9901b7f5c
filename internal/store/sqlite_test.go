package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/pbaille/pathranger/internal/domain"
	"github.com/pbaille/pathranger/internal/frecency"
)

var t0 = time.Date(2024, 5, 10, 9, 30, 0, 123456789, time.UTC)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pathranger.db")
	s, err := New(path, Options{HalfLife: 24 * time.Hour})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestNew_InitializesSchemaIdempotently(t *testing.T) {
	s, path := newTestStore(t)
	_, err := s.RecordVisit(context.Background(), "/a", t0)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := New(path, Options{})
	require.NoError(t, err)
	defer reopened.Close()

	e, found, err := reopened.GetEntry(context.Background(), "/a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(1), e.VisitCount)
}

func TestNew_CreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.db")
	s, err := New(path, Options{})
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
	assert.Equal(t, path, s.Path())
}

func TestNew_RejectsNewerSchema(t *testing.T) {
	_, path := newTestStore(t)

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec("PRAGMA user_version = 99")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = New(path, Options{})
	require.Error(t, err)
	assert.True(t, domain.IsStorageError(err))
	assert.Contains(t, err.Error(), "newer than supported")
}

func TestNew_NotADatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.db")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("not a sqlite file ", 64)), 0644))

	_, err := New(path, Options{})
	require.Error(t, err)
	assert.True(t, domain.IsStorageError(err))
}

func TestRecordVisit_CountsAndTimestamps(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	var last time.Time
	for i := 0; i < 7; i++ {
		last = t0.Add(time.Duration(i) * 90 * time.Minute)
		e, err := s.RecordVisit(ctx, "/home/u/src", last)
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), e.VisitCount)
	}

	e, found, err := s.GetEntry(ctx, "/home/u/src")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(7), e.VisitCount)
	assert.True(t, last.Equal(e.LastVisited), "want %v got %v", last, e.LastVisited)
}

func TestRecordVisit_AccumulatesDecayedRank(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.RecordVisit(ctx, "/a", t0)
	require.NoError(t, err)
	e, err := s.RecordVisit(ctx, "/a", t0.Add(24*time.Hour))
	require.NoError(t, err)

	assert.InDelta(t, 1.5, e.RankAccumulator, 1e-9)

	stored, _, err := s.GetEntry(ctx, "/a")
	require.NoError(t, err)
	assert.InDelta(t, 1.5, stored.RankAccumulator, 1e-9)
	assert.Equal(t, frecency.New(24*time.Hour), s.Model())
}

func TestGetEntry_Absent(t *testing.T) {
	s, _ := newTestStore(t)

	_, found, err := s.GetEntry(context.Background(), "/nowhere")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestListEntries(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	entries, err := s.ListEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	for _, p := range []string{"/a", "/b", "/a", "/c"} {
		_, err := s.RecordVisit(ctx, p, t0)
		require.NoError(t, err)
	}

	entries, err = s.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	counts := map[string]int64{}
	for _, e := range entries {
		counts[e.Path] = e.VisitCount
	}
	assert.Equal(t, map[string]int64{"/a": 2, "/b": 1, "/c": 1}, counts)
}

func TestDeleteEntry(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.RecordVisit(ctx, "/gone", t0)
	require.NoError(t, err)

	deleted, err := s.DeleteEntry(ctx, "/gone")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.DeleteEntry(ctx, "/gone")
	require.NoError(t, err)
	assert.False(t, deleted)

	_, found, err := s.GetEntry(ctx, "/gone")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRecordVisit_ConcurrentStores(t *testing.T) {
	_, path := newTestStore(t)
	const n = 16

	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			// One Store per goroutine, like independent shell processes.
			s, err := New(path, Options{HalfLife: 24 * time.Hour, RetryBudget: 20 * time.Second})
			if err != nil {
				return err
			}
			defer s.Close()
			_, err = s.RecordVisit(context.Background(), "/same", t0)
			return err
		})
	}
	require.NoError(t, g.Wait())

	s, err := New(path, Options{})
	require.NoError(t, err)
	defer s.Close()

	e, found, err := s.GetEntry(context.Background(), "/same")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(n), e.VisitCount)
	assert.InDelta(t, float64(n), e.RankAccumulator, 1e-9)
}

func TestRecordVisit_BusyAfterRetryBudget(t *testing.T) {
	_, path := newTestStore(t)

	s, err := New(path, Options{BusyTimeout: 10 * time.Millisecond, RetryBudget: 100 * time.Millisecond})
	require.NoError(t, err)
	defer s.Close()

	holder, err := sql.Open("sqlite3", path+"?_busy_timeout=10")
	require.NoError(t, err)
	defer holder.Close()

	ctx := context.Background()
	conn, err := holder.Conn(ctx)
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.ExecContext(ctx, "BEGIN IMMEDIATE")
	require.NoError(t, err)

	start := time.Now()
	_, err = s.RecordVisit(ctx, "/locked", t0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStorageBusy), "got %v", err)
	assert.Less(t, time.Since(start), 5*time.Second)

	_, err = conn.ExecContext(ctx, "ROLLBACK")
	require.NoError(t, err)

	e, err := s.RecordVisit(ctx, "/locked", t0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), e.VisitCount)
}

func TestRecordVisit_CanceledContext(t *testing.T) {
	s, _ := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.RecordVisit(ctx, "/a", t0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestSnapshot(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.RecordVisit(ctx, fmt.Sprintf("/dir%d", i), t0)
		require.NoError(t, err)
	}
	_, err := s.SetTag(ctx, "one", "/dir1", t0)
	require.NoError(t, err)

	entries, tags, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	require.Len(t, tags, 1)
	assert.Equal(t, "/dir1", tags[0].Path)
}
