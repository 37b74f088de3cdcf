package tmdb

import (
	"strings"

	"github.com/mmcdole/cinelist/internal/domain"
)

// MapMovie converts a TMDB movie result to a domain movie
func MapMovie(r MovieResult) domain.Movie {
	m := domain.Movie{
		ID:            r.ID,
		Title:         strings.TrimSpace(r.Title),
		OriginalTitle: r.OriginalTitle,
		Overview:      r.Overview,
		ReleaseDate:   r.ReleaseDate,
		GenreIDs:      r.GenreIDs,
		VoteAverage:   r.VoteAverage,
		VoteCount:     r.VoteCount,
		Popularity:    r.Popularity,
		PosterPath:    r.PosterPath,
		Adult:         r.Adult,
	}
	if m.Title == "" {
		m.Title = r.OriginalTitle
	}
	if r.OriginalLanguage != "" {
		m.Languages = []string{r.OriginalLanguage}
	}
	return m
}

// MapMovies converts a slice of results, dropping entries without an id
func MapMovies(results []MovieResult) []domain.Movie {
	movies := make([]domain.Movie, 0, len(results))
	for _, r := range results {
		if r.ID == 0 {
			continue
		}
		movies = append(movies, MapMovie(r))
	}
	return movies
}

// MapMoviePage converts a paginated envelope
func MapMoviePage(p MoviePage) domain.Page[domain.Movie] {
	return domain.Page[domain.Movie]{
		Results:      MapMovies(p.Results),
		Page:         p.Page,
		TotalPages:   p.TotalPages,
		TotalResults: p.TotalResults,
	}
}

// MapAccount converts the account response
func MapAccount(a AccountResponse) domain.Account {
	return domain.Account{
		ID:           a.ID,
		Username:     a.Username,
		Name:         a.Name,
		CountryCode:  strings.ToUpper(a.Country),
		Language:     a.Language,
		IncludeAdult: a.IncludeAdult,
	}
}

// MapGenres converts the genre list
func MapGenres(l GenreList) []domain.Genre {
	genres := make([]domain.Genre, 0, len(l.Genres))
	for _, g := range l.Genres {
		genres = append(genres, domain.Genre{ID: g.ID, Name: g.Name})
	}
	return genres
}

// MapCountries converts the country configuration list
func MapCountries(results []CountryResult) []domain.Country {
	countries := make([]domain.Country, 0, len(results))
	for _, c := range results {
		if c.Code == "" {
			continue
		}
		countries = append(countries, domain.Country{
			Code:        strings.ToUpper(c.Code),
			EnglishName: c.EnglishName,
			NativeName:  c.NativeName,
		})
	}
	return countries
}
