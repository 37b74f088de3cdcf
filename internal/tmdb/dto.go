package tmdb

import "encoding/json"

// MovieResult is a movie entry in TMDB list responses
type MovieResult struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"original_title,omitempty"`
	OriginalLanguage string  `json:"original_language,omitempty"`
	Overview         string  `json:"overview,omitempty"`
	ReleaseDate      string  `json:"release_date,omitempty"`
	GenreIDs         []int   `json:"genre_ids,omitempty"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
	Popularity       float64 `json:"popularity"`
	PosterPath       string  `json:"poster_path,omitempty"`
	BackdropPath     string  `json:"backdrop_path,omitempty"`
	Adult            bool    `json:"adult"`
	Video            bool    `json:"video,omitempty"`
}

// MoviePage is the paginated envelope used by list endpoints
type MoviePage struct {
	Page         int           `json:"page"`
	Results      []MovieResult `json:"results"`
	TotalPages   int           `json:"total_pages"`
	TotalResults int           `json:"total_results"`
}

// AccountResponse is the body of GET /account
type AccountResponse struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	Name         string `json:"name"`
	Country      string `json:"iso_3166_1"`
	Language     string `json:"iso_639_1"`
	IncludeAdult bool   `json:"include_adult"`
}

// GenreList is the body of GET /genre/movie/list
type GenreList struct {
	Genres []GenreResult `json:"genres"`
}

// GenreResult is a single genre
type GenreResult struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// CountryResult is an entry of GET /configuration/countries
type CountryResult struct {
	Code        string `json:"iso_3166_1"`
	EnglishName string `json:"english_name"`
	NativeName  string `json:"native_name,omitempty"`
}

// AccountStates is the body of GET /movie/{id}/account_states.
// Rated is either false or an object, so it is left raw.
type AccountStates struct {
	ID        int             `json:"id"`
	Favorite  bool            `json:"favorite"`
	Watchlist bool            `json:"watchlist"`
	Rated     json.RawMessage `json:"rated,omitempty"`
}

// WatchlistRequest is the body of POST /account/{id}/watchlist
type WatchlistRequest struct {
	MediaType string `json:"media_type"`
	MediaID   int    `json:"media_id"`
	Watchlist bool   `json:"watchlist"`
}

// StatusResponse is TMDB's generic status envelope, also used for errors
type StatusResponse struct {
	Success       *bool  `json:"success,omitempty"`
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
}

// OK reports whether the envelope signals success. Older endpoints omit the
// success flag and signal through status_code alone.
func (s StatusResponse) OK() bool {
	if s.Success != nil {
		return *s.Success
	}
	switch s.StatusCode {
	case statusSuccess, statusUpdated, statusDeleted:
		return true
	}
	return false
}

// TMDB status codes this client interprets
const (
	statusSuccess = 1
	statusUpdated = 12
	statusDeleted = 13
)

// RequestTokenResponse is the body of GET /authentication/token/new
type RequestTokenResponse struct {
	Success      bool   `json:"success"`
	ExpiresAt    string `json:"expires_at"`
	RequestToken string `json:"request_token"`
}

// SessionResponse is the body of POST /authentication/session/new
type SessionResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id"`
}

type loginRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	RequestToken string `json:"request_token"`
}

type tokenRequest struct {
	RequestToken string `json:"request_token"`
}

type sessionRequest struct {
	SessionID string `json:"session_id"`
}
