// Package browse holds the popular-movies list. It is never mutated locally,
// so it pages through the remote list with a plain page counter.
package browse

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/mmcdole/cinelist/internal/domain"
)

// List mirrors the popular-movies pages fetched so far.
type List struct {
	source domain.MovieSource
	logger *slog.Logger

	mu          sync.Mutex
	region      string
	items       []domain.Movie
	ids         map[int]struct{}
	page        int // last consumed page, 0 before the first
	remoteTotal int
	loading     bool
	generation  string
}

// New creates an empty list for the given region
func New(source domain.MovieSource, region string, logger *slog.Logger) *List {
	if logger == nil {
		logger = slog.Default()
	}
	l := &List{source: source, logger: logger}
	l.reset(region)
	return l
}

func (l *List) reset(region string) {
	l.region = region
	l.items = nil
	l.ids = make(map[int]struct{})
	l.page = 0
	l.remoteTotal = 0
	l.loading = false
	l.generation = uuid.NewString()
}

// Reset discards all pages and switches region. In-flight pages are dropped.
func (l *List) Reset(region string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reset(region)
}

// Items returns a copy of the movies fetched so far
func (l *List) Items() []domain.Movie {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.items)
}

// Len returns the number of movies fetched so far
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Region returns the region the list is fetched for
func (l *List) Region() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.region
}

// HasMore reports whether the first page is pending or more pages exist
func (l *List) HasMore() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.page == 0 || len(l.items) < l.remoteTotal
}

// IsLoading reports whether a page is being fetched
func (l *List) IsLoading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading
}

type pageRequest struct {
	page       int
	region     string
	generation string
}

func (l *List) begin() (pageRequest, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loading {
		return pageRequest{}, false
	}
	if l.page > 0 && len(l.items) >= l.remoteTotal {
		return pageRequest{}, false
	}
	l.loading = true
	return pageRequest{page: l.page + 1, region: l.region, generation: l.generation}, true
}

// LoadMore fetches the next page if more exist and nothing is loading.
// It reports whether a page was appended.
func (l *List) LoadMore(ctx context.Context) (bool, error) {
	req, ok := l.begin()
	if !ok {
		return false, nil
	}

	l.logger.Debug("fetching popular movies", "page", req.page, "region", req.region)
	page, err := l.source.PopularMovies(ctx, req.page, req.region)

	l.mu.Lock()
	defer l.mu.Unlock()

	if req.generation != l.generation {
		l.logger.Info("discarded popular page from previous session", "page", req.page)
		return false, domain.ErrStaleFetch
	}
	l.loading = false

	if err != nil {
		l.logger.Error("failed to fetch popular movies", "error", err, "page", req.page)
		return false, fmt.Errorf("fetching popular movies page %d: %w", req.page, err)
	}
	if len(page.Results) == 0 {
		// Treat an empty page as the end of the list
		l.page = req.page
		l.remoteTotal = len(l.items)
		return false, nil
	}

	for _, mv := range page.Results {
		if _, dup := l.ids[mv.ID]; dup {
			continue
		}
		l.items = append(l.items, mv)
		l.ids[mv.ID] = struct{}{}
	}
	l.page = req.page
	l.remoteTotal = page.TotalResults
	if page.TotalPages > 0 && req.page >= page.TotalPages {
		// Popular totals are approximate; stop at the last page
		l.remoteTotal = len(l.items)
	}
	return true, nil
}
