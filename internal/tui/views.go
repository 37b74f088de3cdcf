package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/cinelist/internal/tui/components"
	"github.com/mmcdole/cinelist/internal/tui/styles"
)

// View renders the application
func (m Model) View() string {
	if !m.Ready {
		return "Loading..."
	}

	if m.Notice.IsVisible() {
		return m.Notice.View(m.Width, m.Height)
	}

	switch m.State {
	case StateHelp:
		return m.renderHelp()
	case StateConfirmLogout:
		return m.renderLogoutConfirmation()
	}

	spin := m.Spinner.View()
	for _, col := range []*components.ListColumn{m.MoviesCol, m.WatchCol, m.ResultsCol} {
		col.SetSpinner(spin)
	}

	var content string
	switch m.Tab {
	case TabProfile:
		content = m.renderProfile()
	case TabSearch:
		content = m.SearchInput.View() + "\n" + m.renderColumns(m.ResultsCol)
	default:
		content = m.renderColumns(m.activeColumn())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderTabs(),
		content,
		m.renderFooter(),
	)
}

// renderColumns renders a list with the inspector beside it
func (m Model) renderColumns(col *components.ListColumn) string {
	layout := m.calculateColumnLayout(m.Width)
	if layout.inspectorWidth == 0 {
		return col.View()
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, col.View(), m.Inspector.View())
}

// renderTabs renders the tab bar
func (m Model) renderTabs() string {
	tabs := make([]string, len(tabNames))
	for i, name := range tabNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if Tab(i) == m.Tab {
			tabs[i] = styles.ActiveTabStyle.Render(label)
		} else {
			tabs[i] = styles.InactiveTabStyle.Render(label)
		}
	}
	bar := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)

	name := styles.DimStyle.Render(m.Account.DisplayName() + " ")
	gap := m.Width - lipgloss.Width(bar) - lipgloss.Width(name)
	if gap < 1 {
		return bar
	}
	return bar + strings.Repeat(" ", gap) + name
}

// renderFooter renders the status line with key hints
func (m Model) renderFooter() string {
	var left string
	switch {
	case m.Searching:
		left = m.Spinner.View() + " " + styles.DimStyle.Render("Searching...")
	case m.StatusMsg != "":
		if m.StatusIsErr {
			left = styles.ErrorStyle.Render(m.StatusMsg)
		} else {
			left = styles.SuccessStyle.Render(m.StatusMsg)
		}
	}

	var hints []string
	switch m.Tab {
	case TabMovies:
		hints = append(hints, styles.HelpHint("enter", "add"), styles.HelpHint("/", "filter"))
	case TabWatchList:
		hints = append(hints, styles.HelpHint("enter", "remove"), styles.HelpHint("/", "filter"))
	case TabSearch:
		hints = append(hints, styles.HelpHint("enter", "add"), styles.HelpHint("/", "new search"))
	case TabProfile:
		hints = append(hints, styles.HelpHint("L", "log out"))
	}
	center := strings.Join(hints, "  ")
	right := styles.HelpHint("?", "help")

	leftWidth := lipgloss.Width(left)
	centerWidth := lipgloss.Width(center)
	rightWidth := lipgloss.Width(right)

	if leftWidth+centerWidth+rightWidth >= m.Width {
		gap := max(m.Width-leftWidth-rightWidth, 0)
		return left + strings.Repeat(" ", gap) + right
	}

	available := m.Width - leftWidth - rightWidth
	leftPad := (available - centerWidth) / 2
	rightPad := available - centerWidth - leftPad

	return left + strings.Repeat(" ", leftPad) + center + strings.Repeat(" ", rightPad) + right
}

// renderProfile renders the account greeting
func (m Model) renderProfile() string {
	country := m.Catalog.CountryName(m.Region)
	if country == "" {
		country = "your country"
	}

	snap := m.WatchList.Snapshot()
	listed := "loading..."
	if snap.Primed {
		listed = fmt.Sprintf("%d movies", snap.RemoteTotal)
	}

	body := lipgloss.JoinVertical(lipgloss.Center,
		styles.TitleStyle.Render("Hello "+m.Account.DisplayName()),
		"",
		components.WordWrap(fmt.Sprintf(
			"Check out popular movies in %s on the Movies Tab and make your own Watch List !", country), 50),
		"",
		styles.DimStyle.Render("Watch List: "+listed),
		"",
		styles.HelpHint("L", "Log out"),
	)

	return lipgloss.Place(m.Width, m.contentHeight(),
		lipgloss.Center, lipgloss.Center,
		body)
}

// renderHelp renders the help screen
func (m Model) renderHelp() string {
	help := `
NAVIGATION                      WATCH LIST
  j/k        Up/down               Enter  Add (Movies, Search)
  g/Home     First item            Enter  Remove (Watch List)
  G/End      Last item             a      Add to watch list
  C-u/C-d    Half page             d      Remove from watch list
  1-4        Switch tab
  Tab        Next tab

SEARCH & VIEW                   OTHER
  /          Filter list           r      Refresh
  /          New search (Search)   L      Log out
  i          Toggle details        q      Quit
  Esc        Close / Cancel        ?      This help

Press any key to return...
`

	return lipgloss.Place(m.Width, m.Height,
		lipgloss.Center, lipgloss.Center,
		styles.ModalStyle.Render(help))
}

// renderLogoutConfirmation renders the logout confirmation modal
func (m Model) renderLogoutConfirmation() string {
	modal := `
              Log Out?

  This will end your TMDB session and
  clear the cached reference data.

        [Y] Yes      [N] No
`

	return lipgloss.Place(m.Width, m.Height,
		lipgloss.Center, lipgloss.Center,
		styles.ModalStyle.Render(modal))
}
