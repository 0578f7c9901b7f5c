// Package frecency scores directory entries by blending how often and how
// recently they were visited. Decay is evaluated lazily from the stored
// accumulator and the last visit time; nothing is ever rewritten on read.
package frecency

import (
	"math"
	"time"

	"github.com/pbaille/pathranger/internal/domain"
)

const (
	// DefaultHalfLife is the age at which accumulated rank has lost half its weight.
	DefaultHalfLife = 7 * 24 * time.Hour

	// VisitIncrement is the weight a single visit adds to the accumulator.
	VisitIncrement = 1.0
)

// Model holds the aging policy
type Model struct {
	HalfLife time.Duration
}

// New creates a Model, falling back to DefaultHalfLife for non-positive values
func New(halfLife time.Duration) Model {
	if halfLife <= 0 {
		halfLife = DefaultHalfLife
	}
	return Model{HalfLife: halfLife}
}

// Decay returns the multiplier applied to rank accumulated age ago.
// It is 1 for age <= 0 and tends to 0 as age grows.
func (m Model) Decay(age time.Duration) float64 {
	if age <= 0 {
		return 1
	}
	hl := m.HalfLife
	if hl <= 0 {
		hl = DefaultHalfLife
	}
	return math.Exp2(-float64(age) / float64(hl))
}

// Score returns the frecency of e at now. It never mutates e.
func (m Model) Score(e domain.Entry, now time.Time) float64 {
	acc := sanitize(e.RankAccumulator)
	if acc == 0 {
		return 0
	}
	return acc * m.Decay(now.Sub(e.LastVisited))
}

// Accumulate returns the accumulator after a visit at the given instant:
// the previous rank decayed to that instant plus one VisitIncrement.
// A zero entry (no previous visit) yields VisitIncrement.
func (m Model) Accumulate(prev domain.Entry, at time.Time) float64 {
	if prev.VisitCount <= 0 {
		return VisitIncrement
	}
	return m.Score(prev, at) + VisitIncrement
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
