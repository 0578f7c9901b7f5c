package frecency

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/pathranger/internal/domain"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNew_DefaultHalfLife(t *testing.T) {
	assert.Equal(t, DefaultHalfLife, New(0).HalfLife)
	assert.Equal(t, DefaultHalfLife, New(-time.Hour).HalfLife)
	assert.Equal(t, 2*time.Hour, New(2*time.Hour).HalfLife)
}

func TestDecay(t *testing.T) {
	m := New(24 * time.Hour)

	tests := []struct {
		name string
		age  time.Duration
		want float64
	}{
		{"zero age", 0, 1},
		{"negative age", -time.Hour, 1},
		{"one half-life", 24 * time.Hour, 0.5},
		{"two half-lives", 48 * time.Hour, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, m.Decay(tt.age), 1e-12)
		})
	}
}

func TestScore_Deterministic(t *testing.T) {
	m := New(24 * time.Hour)
	e := domain.Entry{Path: "/a", VisitCount: 4, LastVisited: t0, RankAccumulator: 3.2}
	now := t0.Add(37 * time.Hour)

	first := m.Score(e, now)
	second := m.Score(e, now)
	assert.Equal(t, first, second)
	assert.Equal(t, 3.2, e.RankAccumulator, "score must not mutate the entry")
}

func TestScore_NonIncreasingInAge(t *testing.T) {
	m := New(6 * time.Hour)
	e := domain.Entry{Path: "/a", VisitCount: 10, LastVisited: t0, RankAccumulator: 7}

	prev := math.Inf(1)
	for h := -3; h <= 24*60; h += 7 {
		s := m.Score(e, t0.Add(time.Duration(h)*time.Hour))
		require.LessOrEqual(t, s, prev, "age %dh", h)
		require.GreaterOrEqual(t, s, 0.0)
		prev = s
	}
}

func TestScore_NonDecreasingInVisits(t *testing.T) {
	m := New(24 * time.Hour)
	now := t0.Add(5 * time.Hour)

	// Entries built by visiting the same instants, differing only in how many visits.
	var e domain.Entry
	prev := 0.0
	for i := 1; i <= 20; i++ {
		e.RankAccumulator = m.Accumulate(e, t0)
		e.VisitCount++
		e.LastVisited = t0
		s := m.Score(e, now)
		require.GreaterOrEqual(t, s, prev, "visits %d", i)
		prev = s
	}
}

func TestScore_ClockSkew(t *testing.T) {
	m := New(24 * time.Hour)
	e := domain.Entry{Path: "/a", VisitCount: 1, LastVisited: t0, RankAccumulator: VisitIncrement}

	assert.Equal(t, VisitIncrement, m.Score(e, t0))
	assert.Equal(t, VisitIncrement, m.Score(e, t0.Add(-48*time.Hour)))
}

func TestScore_VeryOld(t *testing.T) {
	m := New(time.Hour)
	e := domain.Entry{Path: "/a", VisitCount: 1000, LastVisited: t0, RankAccumulator: 1000}

	s := m.Score(e, t0.Add(100*365*24*time.Hour))
	assert.False(t, math.IsNaN(s))
	assert.GreaterOrEqual(t, s, 0.0)
	assert.Less(t, s, 1e-9)
}

func TestScore_CorruptAccumulator(t *testing.T) {
	m := New(time.Hour)
	for _, acc := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), -5} {
		e := domain.Entry{Path: "/a", VisitCount: 1, LastVisited: t0, RankAccumulator: acc}
		assert.Equal(t, 0.0, m.Score(e, t0))
	}
}

func TestAccumulate(t *testing.T) {
	m := New(24 * time.Hour)

	assert.Equal(t, VisitIncrement, m.Accumulate(domain.Entry{}, t0))

	e := domain.Entry{Path: "/a", VisitCount: 1, LastVisited: t0, RankAccumulator: 1}
	// One half-life later the old visit is worth 0.5.
	assert.InDelta(t, 1.5, m.Accumulate(e, t0.Add(24*time.Hour)), 1e-12)
	// Same instant: plain sum.
	assert.InDelta(t, 2, m.Accumulate(e, t0), 1e-12)
}

// A revisit restarts decay: an old favourite recovers immediately.
func TestAccumulate_RevisitRecovers(t *testing.T) {
	m := New(24 * time.Hour)
	e := domain.Entry{Path: "/a", VisitCount: 50, LastVisited: t0, RankAccumulator: 40}

	later := t0.Add(10 * 24 * time.Hour)
	before := m.Score(e, later)

	e.RankAccumulator = m.Accumulate(e, later)
	e.VisitCount++
	e.LastVisited = later

	assert.Greater(t, m.Score(e, later), before+0.99)
}
