package tui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/cinelist/internal/browse"
	"github.com/mmcdole/cinelist/internal/catalog"
	"github.com/mmcdole/cinelist/internal/domain"
	"github.com/mmcdole/cinelist/internal/search"
	"github.com/mmcdole/cinelist/internal/watchlist"
)

// Command factories for async operations

// LoadMoviesCmd loads the next page of popular movies
func LoadMoviesCmd(list *browse.List) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		loaded, err := list.LoadMore(ctx)
		return MoviesPageMsg{Loaded: loaded, Err: err}
	}
}

// LoadWatchListCmd fetches the first watch list page for the session
func LoadWatchListCmd(ctrl *watchlist.Controller) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := ctrl.Load(ctx)
		return WatchListFetchedMsg{Fetched: err == nil, Err: err}
	}
}

// EndReachedCmd asks the controller for the next watch list page
func EndReachedCmd(ctrl *watchlist.Controller) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		fetched, err := ctrl.EndReached(ctx)
		return WatchListFetchedMsg{Fetched: fetched, Err: err}
	}
}

// AddCmd adds a movie to the watch list
func AddCmd(ctrl *watchlist.Controller, movie domain.Movie) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		outcome, err := ctrl.Add(ctx, movie)
		return MutationMsg{Kind: MutationAdd, Movie: movie, Outcome: outcome, Err: err}
	}
}

// RemoveCmd removes a movie from the watch list
func RemoveCmd(ctrl *watchlist.Controller, movie domain.Movie) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		outcome, err := ctrl.Remove(ctx, movie.ID)
		return MutationMsg{Kind: MutationRemove, Movie: movie, Outcome: outcome, Err: err}
	}
}

// SearchCmd runs a catalog search
func SearchCmd(svc *search.Service, query string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		results, err := svc.Search(ctx, query)
		return SearchResultsMsg{Results: results, Err: err}
	}
}

// LoadCatalogCmd loads genres and countries
func LoadCatalogCmd(svc *catalog.Service, refresh bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		var err error
		if refresh {
			err = svc.Refresh(ctx)
		} else {
			err = svc.Load(ctx)
		}
		return CatalogLoadedMsg{Err: err}
	}
}

// WaitForWatchListCmd blocks until the watch list reports a change
func WaitForWatchListCmd(ch <-chan watchlist.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}
		return WatchListChangedMsg{Snapshot: snap}
	}
}

// ScrollIdleCmd reports the end of a scroll burst after delay
func ScrollIdleCmd(seq int, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return ScrollIdleMsg{Seq: seq}
	})
}

// LogoutCmd ends the remote session and clears local credentials and cache
func LogoutCmd(logout func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		if logout == nil {
			return LogoutCompleteMsg{}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		return LogoutCompleteMsg{Error: logout(ctx)}
	}
}

// ClearStatusCmd returns a command that clears status after a delay
func ClearStatusCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}

// isStale reports whether err only means the result belongs to a reset list
func isStale(err error) bool {
	return errors.Is(err, domain.ErrStaleFetch)
}
