package search

import (
	"strings"

	"github.com/mmcdole/cinelist/internal/domain"
	"github.com/sahilm/fuzzy"
)

// FilterResult is a movie matched by a list filter, with match metadata for highlighting
type FilterResult struct {
	Movie          domain.Movie
	Index          int   // Position in the filtered list
	MatchedIndexes []int // Byte positions in the title that matched
	Score          int   // Higher is better
}

// FilterIndex implements sahilm/fuzzy.Source over a list of movies
type FilterIndex struct {
	movies      []domain.Movie
	lowerTitles []string // Pre-computed lowercase titles
}

// NewFilterIndex builds an index over movies in display order
func NewFilterIndex(movies []domain.Movie) *FilterIndex {
	idx := &FilterIndex{
		movies:      movies,
		lowerTitles: make([]string, len(movies)),
	}
	for i, m := range movies {
		idx.lowerTitles[i] = strings.ToLower(m.Title)
	}
	return idx
}

// String returns the lowercase title at index i (implements fuzzy.Source)
func (idx *FilterIndex) String(i int) string { return idx.lowerTitles[i] }

// Len returns the number of movies (implements fuzzy.Source)
func (idx *FilterIndex) Len() int { return len(idx.movies) }

// Filter returns the movies matching query, best first. An empty query
// returns every movie in order.
func (idx *FilterIndex) Filter(query string) []FilterResult {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		results := make([]FilterResult, len(idx.movies))
		for i, m := range idx.movies {
			results[i] = FilterResult{Movie: m, Index: i}
		}
		return results
	}

	matches := fuzzy.FindFrom(query, idx)
	results := make([]FilterResult, len(matches))
	for i, match := range matches {
		results[i] = FilterResult{
			Movie:          idx.movies[match.Index],
			Index:          match.Index,
			MatchedIndexes: match.MatchedIndexes,
			Score:          match.Score,
		}
	}
	return results
}
