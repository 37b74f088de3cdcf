package search

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mmcdole/cinelist/internal/domain"
)

// Results is the outcome of a search
type Results struct {
	Query  string
	Movies []domain.Movie
	Total  int  // Remote total, or len(Movies) for local results
	Local  bool // Served from the local index because the remote search failed
}

// Service searches the remote catalog and ranks results locally
type Service struct {
	client domain.SearchClient
	logger *slog.Logger

	// Local index of movies seen while browsing, used when offline
	indexMu sync.RWMutex
	index   map[int]domain.Movie
}

// NewService creates a new search service
func NewService(client domain.SearchClient, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client: client,
		logger: logger,
		index:  make(map[int]domain.Movie),
	}
}

// Search runs a server-side search and re-ranks the first page locally.
// If the server cannot be reached the local index is searched instead.
func (s *Service) Search(ctx context.Context, query string) (Results, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Results{}, nil
	}

	s.logger.Debug("searching", "query", query)

	page, err := s.client.SearchMovies(ctx, query, 1)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, domain.ErrAuthFailed) {
			return Results{}, err
		}
		s.logger.Warn("server search failed, falling back to local", "error", err)
		local := s.SearchLocal(query)
		return Results{Query: query, Movies: local, Total: len(local), Local: true}, nil
	}

	s.IndexMovies(page.Results)
	ranked := rankResults(page.Results, query)
	s.logger.Debug("search complete", "query", query, "results", len(ranked), "total", page.TotalResults)

	return Results{Query: query, Movies: ranked, Total: page.TotalResults}, nil
}

// IndexMovies adds movies to the local search index
func (s *Service) IndexMovies(movies []domain.Movie) {
	if len(movies) == 0 {
		return
	}
	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	for _, m := range movies {
		s.index[m.ID] = m
	}
}

// ClearIndex removes all movies from the local index
func (s *Service) ClearIndex() {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	s.index = make(map[int]domain.Movie)
	s.logger.Debug("cleared search index")
}

// SearchLocal performs fuzzy search against the local index only
func (s *Service) SearchLocal(query string) []domain.Movie {
	s.indexMu.RLock()
	movies := make([]domain.Movie, 0, len(s.index))
	for _, m := range s.index {
		movies = append(movies, m)
	}
	s.indexMu.RUnlock()

	if len(movies) == 0 {
		return nil
	}
	// Map iteration order is random; keep ties deterministic
	slices.SortFunc(movies, func(a, b domain.Movie) int { return a.ID - b.ID })

	titles := make([]string, len(movies))
	for i, m := range movies {
		titles[i] = m.Title
	}

	matches := fuzzy.RankFindFold(query, titles)
	sort.Stable(matches)

	results := make([]domain.Movie, 0, len(matches))
	for _, match := range matches {
		results = append(results, movies[match.OriginalIndex])
	}
	return results
}

// rankResults moves titles that fuzzy-match the query ahead of the rest,
// closest first. Server order breaks ties.
func rankResults(movies []domain.Movie, query string) []domain.Movie {
	type ranked struct {
		movie domain.Movie
		score int
	}

	items := make([]ranked, len(movies))
	for i, m := range movies {
		score := fuzzy.RankMatchFold(query, m.Title)
		if score < 0 {
			score = int(^uint(0) >> 1) // No match sorts last
		}
		items[i] = ranked{movie: m, score: score}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].score < items[j].score
	})

	results := make([]domain.Movie, len(items))
	for i, r := range items {
		results[i] = r.movie
	}
	return results
}
