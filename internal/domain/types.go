package domain

import "time"

// Entry is the visit history of one absolute directory path
type Entry struct {
	Path            string    `json:"path" yaml:"path"`
	VisitCount      int64     `json:"visit_count" yaml:"visit_count"`
	LastVisited     time.Time `json:"last_visited" yaml:"last_visited"`
	RankAccumulator float64   `json:"rank_accumulator" yaml:"rank_accumulator"`
}

// Tag binds a user-chosen name to one directory
type Tag struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Path      string    `json:"path" yaml:"path"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// RankedEntry is an entry together with its frecency at query time
type RankedEntry struct {
	Entry
	Score float64 `json:"score" yaml:"score"`
}

// MatchKind tells whether a search hit came from a path or a tag name
type MatchKind string

const (
	KindPath MatchKind = "path"
	KindTag  MatchKind = "tag"
)

// SearchResult is one hit of a fuzzy search over paths and tags
type SearchResult struct {
	Kind       MatchKind `json:"kind" yaml:"kind"`
	Tag        string    `json:"tag,omitempty" yaml:"tag,omitempty"`
	Path       string    `json:"path" yaml:"path"`
	MatchScore float64   `json:"match_score" yaml:"match_score"`
	Frecency   float64   `json:"frecency" yaml:"frecency"`
}
