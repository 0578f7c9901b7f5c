// Package fuzzy ranks candidate strings against a query using
// case-insensitive subsequence matching tuned for filesystem paths.
//
// A candidate matches only if every query character appears in it in order.
// Matches fall into tiers that never overlap:
//
//	exact      the whole text, or its last path segment, equals the query
//	prefix     the text or one of its path segments starts with the query
//	contiguous the query occurs as a substring
//	scattered  the query is only a subsequence
//
// Within a tier, hits in the last path segment, hits starting on a word
// boundary and shorter texts score higher.
package fuzzy

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// Baseline is the score every candidate gets for an empty query.
const Baseline = 1.0

const (
	tierScattered  = 1000.0
	tierContiguous = 2000.0
	tierPrefix     = 3000.0
	tierExact      = 4000.0

	segmentBonus  = 200.0
	boundaryBonus = 100.0
	lengthWeight  = 300.0
	qualityWeight = 300.0
	lengthScale   = 32.0
)

// alignment weights for scattered matches
const (
	charPoints        = 1.0
	boundaryPoints    = 2.0
	consecutivePoints = 1.5
	gapPenalty        = 0.05
	maxGapPenalized   = 10
)

// Candidate is one string to match, identified by Key
type Candidate struct {
	Key  string
	Text string
}

// Result is a matching candidate with its score
type Result struct {
	Key   string
	Text  string
	Score float64
}

// Match scores every candidate against query and returns the matching ones,
// best first. Ties are broken by shorter text, then text, then key.
func Match(query string, candidates []Candidate) []Result {
	q := lowerRunes(query)
	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		score, ok := score(q, c.Text)
		if !ok {
			continue
		}
		results = append(results, Result{Key: c.Key, Text: c.Text, Score: score})
	}
	Sort(results)
	return results
}

// Score returns the match score of query against text and whether it matched at all.
func Score(query, text string) (float64, bool) {
	return score(lowerRunes(query), text)
}

// Sort orders results by score descending with the deterministic tie-break used by Match.
func Sort(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return Less(results[i], results[j])
	})
}

// Less reports whether a ranks before b.
func Less(a, b Result) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	la, lb := runeLen(a.Text), runeLen(b.Text)
	if la != lb {
		return la < lb
	}
	if a.Text != b.Text {
		return a.Text < b.Text
	}
	return a.Key < b.Key
}

func score(q []rune, text string) (float64, bool) {
	if len(q) == 0 {
		return Baseline, true
	}

	orig := []rune(text)
	t := make([]rune, len(orig))
	for i, r := range orig {
		t[i] = unicode.ToLower(r)
	}
	if len(q) > len(t) || !isSubsequence(q, t) {
		return 0, false
	}

	qs, ts := string(q), string(t)
	baseStart := lastSegmentStart(t)
	base := string(t[baseStart:])
	length := lengthWeight * lengthScale / (float64(len(t)) + lengthScale)

	switch {
	case ts == qs || strings.TrimRight(base, `/\`) == qs:
		return tierExact + length, true

	case strings.HasPrefix(ts, qs) || segmentHasPrefix(t, q):
		s := tierPrefix + length
		if strings.HasPrefix(base, qs) {
			s += segmentBonus
		}
		return s, true

	case strings.Contains(ts, qs):
		s := tierContiguous + length
		if strings.Contains(base, qs) {
			s += segmentBonus
		}
		if occursAtBoundary(orig, t, q) {
			s += boundaryBonus
		}
		return s, true
	}

	s := tierScattered + length + qualityWeight*alignment(orig, t, q)
	if isSubsequence(q, t[baseStart:]) {
		s += segmentBonus
	}
	return s, true
}

func isSubsequence(q, t []rune) bool {
	i := 0
	for _, r := range t {
		if i < len(q) && q[i] == r {
			i++
		}
	}
	return i == len(q)
}

func isPathSep(r rune) bool {
	return r == '/' || r == '\\'
}

func isWordSep(r rune) bool {
	return isPathSep(r) || r == '-' || r == '_' || r == '.' || r == ' '
}

// lastSegmentStart returns the index where the last non-empty path segment begins.
func lastSegmentStart(t []rune) int {
	end := len(t)
	for end > 0 && isPathSep(t[end-1]) {
		end--
	}
	for i := end - 1; i >= 0; i-- {
		if isPathSep(t[i]) {
			return i + 1
		}
	}
	return 0
}

func segmentHasPrefix(t, q []rune) bool {
	for i := 1; i+len(q) <= len(t); i++ {
		if isPathSep(t[i-1]) && hasPrefixAt(t, q, i) {
			return true
		}
	}
	return false
}

func occursAtBoundary(orig, t, q []rune) bool {
	for i := 0; i+len(q) <= len(t); i++ {
		if isBoundary(orig, i) && hasPrefixAt(t, q, i) {
			return true
		}
	}
	return false
}

func hasPrefixAt(t, q []rune, at int) bool {
	for k, r := range q {
		if t[at+k] != r {
			return false
		}
	}
	return true
}

// isBoundary reports whether position i starts a word: after a separator
// or at a lower-to-upper case change.
func isBoundary(orig []rune, i int) bool {
	if i == 0 {
		return true
	}
	prev, cur := orig[i-1], orig[i]
	if isWordSep(prev) {
		return true
	}
	return unicode.IsLower(prev) && unicode.IsUpper(cur)
}

// alignment finds the best placement of q in t and returns its quality in [0, 1].
func alignment(orig, t, q []rune) float64 {
	n, m := len(t), len(q)
	negInf := math.Inf(-1)

	prev := make([]float64, n)
	cur := make([]float64, n)
	for j := range prev {
		prev[j] = negInf
	}

	for i := 0; i < m; i++ {
		for j := range cur {
			cur[j] = negInf
		}
		for j := i; j < n; j++ {
			if t[j] != q[i] {
				continue
			}
			points := charPoints
			if isBoundary(orig, j) {
				points += boundaryPoints
			}
			if i == 0 {
				cur[j] = points
				continue
			}
			best := negInf
			for k := i - 1; k < j; k++ {
				if prev[k] == negInf {
					continue
				}
				v := prev[k]
				if k == j-1 {
					v += consecutivePoints
				} else {
					v -= gapPenalty * float64(min(j-k-1, maxGapPenalized))
				}
				if v > best {
					best = v
				}
			}
			if best != negInf {
				cur[j] = best + points
			}
		}
		prev, cur = cur, prev
	}

	best := negInf
	for _, v := range prev {
		if v > best {
			best = v
		}
	}

	maxPoints := float64(m)*(charPoints+boundaryPoints) + float64(m-1)*consecutivePoints
	quality := best / maxPoints
	if quality < 0 {
		quality = 0
	}
	if quality > 1 {
		quality = 1
	}
	return quality
}

func lowerRunes(s string) []rune {
	rs := []rune(s)
	for i, r := range rs {
		rs[i] = unicode.ToLower(r)
	}
	return rs
}

func runeLen(s string) int {
	return len([]rune(s))
}
