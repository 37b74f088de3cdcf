package domain

import "context"

// WatchListSource is the remote collaborator behind the watch list.
// Implemented by the TMDB client.
type WatchListSource interface {
	// FetchWatchListPage returns one 1-indexed page of the account's watch list
	FetchWatchListPage(ctx context.Context, page int, sort SortOrder) (Page[Movie], error)

	// ConfirmAdd adds the movie remotely, or reports it was already present
	ConfirmAdd(ctx context.Context, movieID int) (AddConfirmation, error)

	// ConfirmRemove removes the movie remotely; false means the server refused
	ConfirmRemove(ctx context.Context, movieID int) (bool, error)
}

// MovieSource provides the popular-movies browse list.
type MovieSource interface {
	PopularMovies(ctx context.Context, page int, region string) (Page[Movie], error)
}

// SearchClient provides server-side catalog search.
type SearchClient interface {
	SearchMovies(ctx context.Context, query string, page int) (Page[Movie], error)
}

// CatalogClient provides reference data from the network.
type CatalogClient interface {
	Genres(ctx context.Context) ([]Genre, error)
	Countries(ctx context.Context) ([]Country, error)
}

// AccountClient provides the authenticated account.
type AccountClient interface {
	Account(ctx context.Context) (Account, error)
}

// CatalogStore caches reference data (bbolt + memory).
type CatalogStore interface {
	GetGenres() ([]Genre, int64, bool)
	SaveGenres(genres []Genre) error

	GetCountries() ([]Country, int64, bool)
	SaveCountries(countries []Country) error

	InvalidateAll()
	Close() error
}
