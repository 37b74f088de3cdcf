package domain

import (
	"fmt"
	"strings"
)

// Movie is a catalog entry. The watch list algorithms only inspect ID;
// the remaining fields are display metadata.
type Movie struct {
	ID            int      // TMDB movie identifier
	Title         string   // Display title
	OriginalTitle string   // Title in the original language
	Overview      string   // Plot synopsis
	ReleaseDate   string   // YYYY-MM-DD, may be empty
	GenreIDs      []int    // Genre identifiers, resolved via the catalog
	VoteAverage   float64  // 0-10 community rating
	VoteCount     int      // Number of votes
	Popularity    float64  // TMDB popularity score
	PosterPath    string   // Relative poster path
	Adult         bool     // Adult content flag
	Languages     []string // Spoken languages, when known
}

// Year returns the release year, or 0 when the release date is unknown
func (m Movie) Year() int {
	if len(m.ReleaseDate) < 4 {
		return 0
	}
	var y int
	if _, err := fmt.Sscanf(m.ReleaseDate[:4], "%d", &y); err != nil {
		return 0
	}
	return y
}

// DisplayTitle returns the title with the release year when known
func (m Movie) DisplayTitle() string {
	if y := m.Year(); y > 0 {
		return fmt.Sprintf("%s (%d)", m.Title, y)
	}
	return m.Title
}

// FormattedRating returns the rating like "7.8 (12,345 votes)"
func (m Movie) FormattedRating() string {
	if m.VoteCount == 0 {
		return "not rated"
	}
	return fmt.Sprintf("%.1f (%s votes)", m.VoteAverage, groupThousands(m.VoteCount))
}

func groupThousands(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// Account is the authenticated TMDB account
type Account struct {
	ID           int    // Account identifier used in watch list endpoints
	Username     string // Login name
	Name         string // Display name, may be empty
	CountryCode  string // ISO 3166-1 region (iso_3166_1)
	Language     string // ISO 639-1 (iso_639_1)
	IncludeAdult bool   // Whether adult titles are requested
}

// DisplayName returns the name if set, else the username
func (a Account) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Username
}

// Genre is a TMDB movie genre
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Country is a TMDB configuration country
type Country struct {
	Code        string `json:"iso_3166_1"`
	EnglishName string `json:"english_name"`
	NativeName  string `json:"native_name,omitempty"`
}

// Page is one page of a server-paginated list
type Page[T any] struct {
	Results      []T
	Page         int // 1-indexed page number the server returned
	TotalPages   int
	TotalResults int
}

// SortOrder selects the server ordering of the watch list
type SortOrder string

const (
	// SortCreatedDesc lists the most recently added movies first.
	// Local adds prepend, so the mirror relies on this ordering.
	SortCreatedDesc SortOrder = "created_at.desc"
	SortCreatedAsc  SortOrder = "created_at.asc"
)

// AddConfirmation is the remote answer to an add request
type AddConfirmation struct {
	Success        bool // The remote list now contains the movie because of this call
	AlreadyPresent bool // The movie was already on the remote list; nothing was changed
}
