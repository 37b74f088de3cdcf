package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/cinelist/internal/tui/components"
)

// handleKeyMsg handles keyboard input
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Ctrl+C always quits
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// A notice blocks everything until acknowledged
	if m.Notice.HandleKey(msg.String()) {
		return m, nil
	}

	// Handle state-specific keys
	switch m.State {
	case StateHelp:
		m.State = StateBrowsing
		return m, nil

	case StateConfirmLogout:
		switch {
		case key.Matches(msg, Keys.Confirm):
			return m, LogoutCmd(m.logout)
		case key.Matches(msg, Keys.Deny):
			m.State = StateBrowsing
		}
		return m, nil
	}

	// Search input captures typing
	if m.Tab == TabSearch && m.SearchInput.Focused() {
		return m.handleSearchInput(msg)
	}

	// List filter captures typing
	col := m.activeColumn()
	if col != nil && col.IsFilterTyping() {
		cmd, _ := col.Update(msg)
		m.updateInspector()
		return m, cmd
	}

	// Global keys
	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, Keys.Help):
		m.State = StateHelp
		return m, nil

	case key.Matches(msg, Keys.MoviesTab):
		return m, m.switchTab(TabMovies)
	case key.Matches(msg, Keys.WatchTab):
		return m, m.switchTab(TabWatchList)
	case key.Matches(msg, Keys.SearchTab):
		return m, m.switchTab(TabSearch)
	case key.Matches(msg, Keys.ProfileTab):
		return m, m.switchTab(TabProfile)
	case key.Matches(msg, Keys.NextTab):
		return m, m.switchTab((m.Tab + 1) % Tab(len(tabNames)))
	case key.Matches(msg, Keys.PrevTab):
		return m, m.switchTab((m.Tab + Tab(len(tabNames)) - 1) % Tab(len(tabNames)))

	case key.Matches(msg, Keys.Logout):
		m.State = StateConfirmLogout
		return m, nil

	case key.Matches(msg, Keys.ToggleInspector):
		m.ShowInspector = !m.ShowInspector
		m.updateLayout()
		return m, nil

	case key.Matches(msg, Keys.Refresh):
		return m, m.refreshCurrentTab()
	}

	if col == nil {
		return m, nil
	}

	switch {
	case key.Matches(msg, Keys.Filter):
		if m.Tab == TabSearch {
			// On the search tab "/" returns to the query
			return m, m.SearchInput.Focus()
		}
		col.ToggleFilter()
		m.updateLayout()
		return m, nil

	case key.Matches(msg, Keys.Escape):
		if col.IsFiltering() {
			col.ClearFilter()
			m.updateLayout()
		}
		return m, nil

	case key.Matches(msg, Keys.Enter):
		return m, m.primaryAction(col)

	case key.Matches(msg, Keys.Add):
		if m.Tab == TabWatchList {
			return m, nil
		}
		if movie, ok := col.SelectedMovie(); ok {
			return m, AddCmd(m.WatchList, movie)
		}
		return m, nil

	case key.Matches(msg, Keys.Remove):
		if movie, ok := col.SelectedMovie(); ok && m.WatchList.Contains(movie.ID) {
			return m, RemoveCmd(m.WatchList, movie)
		}
		return m, nil
	}

	// Navigation
	cmd, _ := col.Update(msg)
	m.updateInspector()
	if !isScrollKey(msg.String()) {
		return m, cmd
	}
	// A key at the edge of the list still counts as scrolling
	return m, tea.Batch(cmd, m.onScroll(col))
}

// primaryAction is the enter key: add on browse lists, remove on the watch list
func (m Model) primaryAction(col *components.ListColumn) tea.Cmd {
	movie, ok := col.SelectedMovie()
	if !ok {
		return nil
	}
	if m.Tab == TabWatchList {
		return RemoveCmd(m.WatchList, movie)
	}
	return AddCmd(m.WatchList, movie)
}

// onScroll maps a navigation key to a scroll gesture and pages when the
// cursor nears the end of the list.
func (m *Model) onScroll(col *components.ListColumn) tea.Cmd {
	var cmds []tea.Cmd

	switch m.Tab {
	case TabWatchList:
		m.scrollSeq++
		m.WatchList.SetScrolling(true)
		cmds = append(cmds, ScrollIdleCmd(m.scrollSeq, m.scrollIdle))
		if col.NearEnd() && m.WatchList.ShouldFetch() {
			cmds = append(cmds, EndReachedCmd(m.WatchList))
		}

	case TabMovies:
		if col.NearEnd() && m.Movies.HasMore() && !m.Movies.IsLoading() {
			m.MoviesCol.SetLoadingMore(true)
			cmds = append(cmds, LoadMoviesCmd(m.Movies))
		}
	}

	return tea.Batch(cmds...)
}

func (m Model) handleSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.SearchInput.Blur()
		return m, nil
	case "enter":
		query := strings.TrimSpace(m.SearchInput.Value())
		if query == "" {
			return m, nil
		}
		m.SearchInput.Blur()
		m.Searching = true
		return m, SearchCmd(m.SearchSvc, query)
	case "tab", "shift+tab":
		m.SearchInput.Blur()
		if msg.String() == "tab" {
			return m, m.switchTab((m.Tab + 1) % Tab(len(tabNames)))
		}
		return m, m.switchTab(m.Tab - 1)
	}

	var cmd tea.Cmd
	m.SearchInput, cmd = m.SearchInput.Update(msg)
	return m, cmd
}

// refreshCurrentTab reloads the data behind the current tab
func (m *Model) refreshCurrentTab() tea.Cmd {
	switch m.Tab {
	case TabMovies:
		m.Movies.Reset(m.Region)
		m.MoviesCol.SetItems(nil)
		m.MoviesCol.SetLoading(true)
		return LoadMoviesCmd(m.Movies)
	case TabWatchList:
		return LoadWatchListCmd(m.WatchList)
	case TabProfile:
		return LoadCatalogCmd(m.Catalog, true)
	default:
		return nil
	}
}
