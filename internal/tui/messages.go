package tui

import (
	"github.com/mmcdole/cinelist/internal/domain"
	"github.com/mmcdole/cinelist/internal/search"
	"github.com/mmcdole/cinelist/internal/watchlist"
)

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// MoviesPageMsg signals that a popular-movies page request finished
type MoviesPageMsg struct {
	Loaded bool // A page was appended
	Err    error
}

// WatchListChangedMsg carries the watch list state after any change
type WatchListChangedMsg struct {
	Snapshot watchlist.Snapshot
}

// WatchListFetchedMsg signals that a watch list page request finished
type WatchListFetchedMsg struct {
	Fetched bool
	Err     error
}

// MutationKind is the watch list change a MutationMsg reports
type MutationKind int

const (
	MutationAdd MutationKind = iota
	MutationRemove
)

// MutationMsg reports the result of an add or remove
type MutationMsg struct {
	Kind    MutationKind
	Movie   domain.Movie
	Outcome watchlist.Outcome
	Err     error
}

// SearchResultsMsg signals that search results are ready
type SearchResultsMsg struct {
	Results search.Results
	Err     error
}

// CatalogLoadedMsg signals that genres and countries are available
type CatalogLoadedMsg struct {
	Err error
}

// ScrollIdleMsg fires after the scroll idle delay; Seq identifies the scroll burst
type ScrollIdleMsg struct {
	Seq int
}

// LogoutCompleteMsg signals that the session and cache have been cleared
type LogoutCompleteMsg struct {
	Error error
}

// ClearStatusMsg clears the status bar message
type ClearStatusMsg struct{}
