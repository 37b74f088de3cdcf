package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/cinelist/internal/browse"
	"github.com/mmcdole/cinelist/internal/catalog"
	"github.com/mmcdole/cinelist/internal/domain"
	"github.com/mmcdole/cinelist/internal/search"
	"github.com/mmcdole/cinelist/internal/tui/components"
	"github.com/mmcdole/cinelist/internal/tui/styles"
	"github.com/mmcdole/cinelist/internal/watchlist"
)

// ApplicationState represents the current state of the application
type ApplicationState int

const (
	StateBrowsing ApplicationState = iota
	StateHelp
	StateConfirmLogout
)

// Tab is one of the top-level screens
type Tab int

const (
	TabMovies Tab = iota
	TabWatchList
	TabSearch
	TabProfile
)

var tabNames = []string{"Movies", "Watch List", "Search", "Profile"}

// String returns the tab label
func (t Tab) String() string {
	if int(t) < len(tabNames) {
		return tabNames[t]
	}
	return "Unknown"
}

// Layout proportions
const (
	ListColumnPercent = 60
	MinInspectorWidth = 30
	MinColumnWidth    = 20

	// Vertical layout: tab bar + footer
	ChromeHeight = 2

	DefaultScrollIdle = 400 * time.Millisecond
)

// Deps holds everything the TUI drives
type Deps struct {
	Movies     *browse.List
	WatchList  *watchlist.Controller
	Search     *search.Service
	Catalog    *catalog.Service
	Account    domain.Account
	Region     string // ISO 3166-1 region of the popular list
	ScrollIdle time.Duration
	Logout     func(ctx context.Context) error
	Logger     *slog.Logger
}

// Model is the main Bubble Tea model for the application
type Model struct {
	// Application state
	State ApplicationState
	Ready bool
	Tab   Tab

	// Services
	Movies    *browse.List
	WatchList *watchlist.Controller
	SearchSvc *search.Service
	Catalog   *catalog.Service
	Account   domain.Account
	Region    string
	logout    func(ctx context.Context) error
	logger    *slog.Logger

	// UI Components
	MoviesCol   *components.ListColumn
	WatchCol    *components.ListColumn
	ResultsCol  *components.ListColumn
	SearchInput textinput.Model
	Inspector   components.Inspector
	Notice      components.NoticeModal
	Spinner     spinner.Model

	// Watch list change feed
	watchCh      chan watchlist.Snapshot
	unsubscribe  func()
	watchVersion uint64

	// Scroll state: a burst of navigation keys is one scroll gesture
	scrollIdle time.Duration
	scrollSeq  int

	// Dimensions
	Width  int
	Height int

	// UI state
	StatusMsg     string
	StatusIsErr   bool
	ShowInspector bool
	Searching     bool
	loggedOut     bool
}

// NewModel creates a new application model
func NewModel(deps Deps) Model {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	idle := deps.ScrollIdle
	if idle <= 0 {
		idle = DefaultScrollIdle
	}

	ctrl := deps.WatchList

	moviesCol := components.NewListColumn("Popular Movies")
	moviesCol.SetShowRank(true)
	moviesCol.SetListed(ctrl.Contains)
	moviesCol.SetEmptyState(components.EmptyState{Title: "No movies available in your country"})
	moviesCol.SetLoading(true)
	moviesCol.SetFocused(true)

	watchCol := components.NewListColumn("Watch List")
	watchCol.SetEmptyState(components.EmptyState{
		Title: "Watch List is empty",
		Hint:  "Go to Movies Tab to start adding movies to your watch list !",
	})
	watchCol.SetLoading(true)

	resultsCol := components.NewListColumn("Results")
	resultsCol.SetListed(ctrl.Contains)
	resultsCol.SetEmptyState(components.EmptyState{Title: "No results", Hint: "Type a title and press enter"})

	ti := textinput.New()
	ti.Placeholder = "search movies..."
	ti.Prompt = "? "
	ti.PromptStyle = styles.FilterPromptStyle
	ti.TextStyle = styles.FilterStyle
	ti.CharLimit = 100

	sp := spinner.New(
		spinner.WithSpinner(spinner.Spinner{Frames: styles.SpinnerFrames, FPS: 100 * time.Millisecond}),
		spinner.WithStyle(styles.SpinnerStyle),
	)

	ch := make(chan watchlist.Snapshot, 1)
	observer := NewChannelObserver(ch)
	unsubscribe := ctrl.Subscribe(observer.OnChange)

	return Model{
		State:         StateBrowsing,
		Tab:           TabMovies,
		Movies:        deps.Movies,
		WatchList:     ctrl,
		SearchSvc:     deps.Search,
		Catalog:       deps.Catalog,
		Account:       deps.Account,
		Region:        deps.Region,
		logout:        deps.Logout,
		logger:        logger,
		MoviesCol:     moviesCol,
		WatchCol:      watchCol,
		ResultsCol:    resultsCol,
		SearchInput:   ti,
		Inspector:     components.NewInspector(),
		Notice:        components.NewNoticeModal(),
		Spinner:       sp,
		watchCh:       ch,
		unsubscribe:   unsubscribe,
		scrollIdle:    idle,
		ShowInspector: true,
	}
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.Spinner.Tick,
		LoadMoviesCmd(m.Movies),
		LoadWatchListCmd(m.WatchList),
		LoadCatalogCmd(m.Catalog, false),
		WaitForWatchListCmd(m.watchCh),
	)
}

// Close detaches the model from the watch list
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// LoggedOut reports whether the program ended through logout
func (m Model) LoggedOut() bool {
	return m.loggedOut
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		m.updateLayout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case MoviesPageMsg:
		m.MoviesCol.SetLoading(false)
		m.MoviesCol.SetLoadingMore(false)
		if msg.Err != nil {
			if isStale(msg.Err) {
				return m, nil
			}
			return m, m.setStatus(ErrMsg{Err: msg.Err, Context: "loading movies"}.Error(), true)
		}
		items := m.Movies.Items()
		m.MoviesCol.SetItems(items)
		m.SearchSvc.IndexMovies(items)
		m.updateInspector()
		return m, nil

	case WatchListChangedMsg:
		if msg.Snapshot.Version < m.watchVersion {
			return m, WaitForWatchListCmd(m.watchCh)
		}
		m.watchVersion = msg.Snapshot.Version
		m.applyWatchSnapshot(msg.Snapshot)
		return m, WaitForWatchListCmd(m.watchCh)

	case WatchListFetchedMsg:
		if msg.Err != nil && !isStale(msg.Err) {
			return m, m.setStatus(ErrMsg{Err: msg.Err, Context: "loading watch list"}.Error(), true)
		}
		return m, nil

	case MutationMsg:
		return m.handleMutation(msg)

	case SearchResultsMsg:
		m.Searching = false
		if msg.Err != nil {
			return m, m.setStatus(ErrMsg{Err: msg.Err, Context: "searching"}.Error(), true)
		}
		title := fmt.Sprintf("Results for %q (%d)", msg.Results.Query, msg.Results.Total)
		if msg.Results.Local {
			title += " · offline"
		}
		m.ResultsCol.SetTitle(title)
		m.ResultsCol.SetItems(msg.Results.Movies)
		m.ResultsCol.SetSelectedIndex(0)
		m.updateInspector()
		return m, nil

	case CatalogLoadedMsg:
		if msg.Err != nil {
			m.logger.Warn("catalog unavailable", "error", msg.Err)
			return m, m.setStatus(ErrMsg{Err: msg.Err, Context: "loading genres"}.Error(), true)
		}
		m.updateInspector()
		return m, nil

	case ScrollIdleMsg:
		// Only the last key of a burst ends the scroll
		if msg.Seq == m.scrollSeq {
			m.WatchList.SetScrolling(false)
		}
		return m, nil

	case LogoutCompleteMsg:
		if msg.Error != nil {
			m.State = StateBrowsing
			return m, m.setStatus(ErrMsg{Err: msg.Error, Context: "logging out"}.Error(), true)
		}
		m.WatchList.Reset()
		m.SearchSvc.ClearIndex()
		m.Movies.Reset(m.Region)
		m.loggedOut = true
		m.logger.Info("logged out")
		return m, tea.Quit

	case ClearStatusMsg:
		m.StatusMsg = ""
		m.StatusIsErr = false
		return m, nil
	}

	return m, nil
}

// applyWatchSnapshot renders the mirrored watch list state
func (m *Model) applyWatchSnapshot(snap watchlist.Snapshot) {
	m.WatchCol.SetLoading(snap.Loading && !snap.Primed)
	m.WatchCol.SetLoadingMore(snap.Loading && snap.Primed)

	if !snap.Primed && !snap.Loading {
		m.WatchCol.SetEmptyState(components.EmptyState{Title: "Watch List unavailable", Hint: "Press r to retry"})
	} else {
		m.WatchCol.SetEmptyState(components.EmptyState{
			Title: "Watch List is empty",
			Hint:  "Go to Movies Tab to start adding movies to your watch list !",
		})
	}

	title := "Watch List"
	if snap.Primed {
		title = fmt.Sprintf("Watch List (%d)", snap.RemoteTotal)
	}
	m.WatchCol.SetTitle(title)
	m.WatchCol.SetItems(snap.Items)
	m.SearchSvc.IndexMovies(snap.Items)
	m.updateInspector()
}

func (m Model) handleMutation(msg MutationMsg) (tea.Model, tea.Cmd) {
	if isStale(msg.Err) {
		return m, nil
	}

	switch msg.Outcome {
	case watchlist.OutcomeApplied:
		text := fmt.Sprintf("Added %s to your watch list", msg.Movie.Title)
		if msg.Kind == MutationRemove {
			text = fmt.Sprintf("Removed %s from your watch list", msg.Movie.Title)
		}
		return m, m.setStatus(text, false)

	case watchlist.OutcomeAlreadyPresent:
		m.Notice.Show("Action Denied", "The movie is already in your watch list")

	case watchlist.OutcomeRejected:
		m.Notice.Show("Action Denied", "The movie database did not accept the change")

	default:
		body := "Could not update your watch list"
		switch {
		case errors.Is(msg.Err, domain.ErrServerOffline):
			body = "The movie database is unreachable. Check your connection and try again."
		case errors.Is(msg.Err, domain.ErrAuthFailed):
			body = "Your session has expired. Log out and sign in again."
		}
		m.Notice.Show("Something went wrong", body)
	}
	return m, nil
}

// setStatus shows a footer message that clears itself
func (m *Model) setStatus(text string, isErr bool) tea.Cmd {
	m.StatusMsg = text
	m.StatusIsErr = isErr
	return ClearStatusCmd(4 * time.Second)
}

// activeColumn returns the list shown on the current tab, if any
func (m Model) activeColumn() *components.ListColumn {
	switch m.Tab {
	case TabMovies:
		return m.MoviesCol
	case TabWatchList:
		return m.WatchCol
	case TabSearch:
		return m.ResultsCol
	default:
		return nil
	}
}

// switchTab focuses the list of the new tab
func (m *Model) switchTab(tab Tab) tea.Cmd {
	m.Tab = tab
	for _, col := range []*components.ListColumn{m.MoviesCol, m.WatchCol, m.ResultsCol} {
		col.SetFocused(col == m.activeColumn())
	}
	// Leaving the watch list ends any scroll gesture on it
	m.WatchList.SetScrolling(false)

	var cmd tea.Cmd
	if tab == TabSearch && m.ResultsCol.IsEmpty() {
		cmd = m.SearchInput.Focus()
	} else {
		m.SearchInput.Blur()
	}
	m.updateLayout()
	m.updateInspector()
	return cmd
}

// updateInspector shows the movie under the cursor of the active list
func (m *Model) updateInspector() {
	col := m.activeColumn()
	if col == nil {
		m.Inspector.SetMovie(nil, nil, false)
		return
	}
	movie, ok := col.SelectedMovie()
	if !ok {
		m.Inspector.SetMovie(nil, nil, false)
		return
	}
	m.Inspector.SetMovie(&movie, m.Catalog.GenreNames(movie.GenreIDs), m.WatchList.Contains(movie.ID))
}
