// Package catalog serves genre and country reference data, reading through
// the cache store and refreshing from the network when entries expire.
package catalog

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/cinelist/internal/domain"
)

// DefaultTTL is used when no TTL is configured
const DefaultTTL = 7 * 24 * time.Hour

// Service caches genres and countries
type Service struct {
	client domain.CatalogClient
	store  domain.CatalogStore
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu           sync.RWMutex
	genreNames   map[int]string
	countryNames map[string]string
}

// NewService creates a catalog service
func NewService(client domain.CatalogClient, store domain.CatalogStore, ttl time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		client:       client,
		store:        store,
		ttl:          ttl,
		logger:       logger,
		now:          time.Now,
		genreNames:   make(map[int]string),
		countryNames: make(map[string]string),
	}
}

func (s *Service) fresh(fetchedAt int64) bool {
	return s.now().Sub(time.Unix(fetchedAt, 0)) < s.ttl
}

// Genres returns the movie genres, from cache when fresh
func (s *Service) Genres(ctx context.Context) ([]domain.Genre, error) {
	cached, fetchedAt, ok := s.store.GetGenres()
	if ok && s.fresh(fetchedAt) {
		s.logger.Debug("cache hit", "key", "genres")
		s.indexGenres(cached)
		return cached, nil
	}

	genres, err := s.client.Genres(ctx)
	if err != nil {
		if ok {
			s.logger.Warn("genre refresh failed, using stale cache", "error", err)
			s.indexGenres(cached)
			return cached, nil
		}
		s.logger.Error("failed to get genres", "error", err)
		return nil, err
	}

	if err := s.store.SaveGenres(genres); err != nil {
		s.logger.Warn("failed to cache genres", "error", err)
	}
	s.indexGenres(genres)
	s.logger.Info("loaded genres", "count", len(genres))
	return genres, nil
}

// Countries returns the country list, from cache when fresh
func (s *Service) Countries(ctx context.Context) ([]domain.Country, error) {
	cached, fetchedAt, ok := s.store.GetCountries()
	if ok && s.fresh(fetchedAt) {
		s.logger.Debug("cache hit", "key", "countries")
		s.indexCountries(cached)
		return cached, nil
	}

	countries, err := s.client.Countries(ctx)
	if err != nil {
		if ok {
			s.logger.Warn("country refresh failed, using stale cache", "error", err)
			s.indexCountries(cached)
			return cached, nil
		}
		s.logger.Error("failed to get countries", "error", err)
		return nil, err
	}

	if err := s.store.SaveCountries(countries); err != nil {
		s.logger.Warn("failed to cache countries", "error", err)
	}
	s.indexCountries(countries)
	s.logger.Info("loaded countries", "count", len(countries))
	return countries, nil
}

// Load fetches both lists
func (s *Service) Load(ctx context.Context) error {
	if _, err := s.Genres(ctx); err != nil {
		return err
	}
	_, err := s.Countries(ctx)
	return err
}

func (s *Service) indexGenres(genres []domain.Genre) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range genres {
		s.genreNames[g.ID] = g.Name
	}
}

func (s *Service) indexCountries(countries []domain.Country) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range countries {
		s.countryNames[strings.ToUpper(c.Code)] = c.EnglishName
	}
}

// GenreNames resolves genre ids to names, skipping unknown ids
func (s *Service) GenreNames(ids []int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := s.genreNames[id]; ok {
			names = append(names, name)
		}
	}
	return names
}

// CountryName resolves an ISO 3166-1 code, falling back to the code itself
func (s *Service) CountryName(code string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if name, ok := s.countryNames[strings.ToUpper(code)]; ok && name != "" {
		return name
	}
	return code
}

// Refresh drops cached reference data and reloads it
func (s *Service) Refresh(ctx context.Context) error {
	s.store.InvalidateAll()
	return s.Load(ctx)
}
