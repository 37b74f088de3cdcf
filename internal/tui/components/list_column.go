package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/cinelist/internal/domain"
	"github.com/mmcdole/cinelist/internal/search"
	"github.com/mmcdole/cinelist/internal/tui/styles"
)

// Layout constants for list columns
const (
	// Border adds 1 char on each side (left+right for width, top+bottom for height)
	BorderWidth  = 2
	BorderHeight = 2

	// Scroll indicators ("↑ more" and "↓ more") each take 1 line
	ScrollIndicatorLines = 2

	// EndReachedThreshold is the fraction of visible rows that counts as "near the end"
	EndReachedThreshold = 0.1
)

// EmptyState is shown when a loaded list has no movies
type EmptyState struct {
	Title string
	Hint  string
}

// ListColumn is a scrollable, filterable list of movies
type ListColumn struct {
	movies []domain.Movie

	// Selection
	cursor     int
	offset     int
	maxVisible int

	// Dimensions
	width   int
	height  int
	focused bool

	title string
	empty EmptyState

	// Loading state: the spinner is rendered by the caller
	loading     bool
	loadingMore bool
	spinner     string

	// Marks movies already on the watch list
	listed func(id int) bool

	// Prefix rows with their position in the unfiltered list
	showRank bool

	// Filter state
	filterActive bool
	filterInput  textinput.Model
	filterQuery  string
	filtered     []search.FilterResult // nil when no query is applied
	index        *search.FilterIndex
}

// NewListColumn creates a new list column with the given title
func NewListColumn(title string) *ListColumn {
	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.Prompt = "/ "
	ti.PromptStyle = styles.FilterPromptStyle
	ti.TextStyle = styles.FilterStyle

	return &ListColumn{
		title:       title,
		filterInput: ti,
		empty:       EmptyState{Title: "No movies"},
		index:       search.NewFilterIndex(nil),
	}
}

// Update handles navigation and filter input. It reports whether the cursor moved.
func (c *ListColumn) Update(msg tea.Msg) (tea.Cmd, bool) {
	if !c.focused {
		return nil, false
	}

	// Typing into the filter
	if c.filterActive && c.filterInput.Focused() {
		if msg, ok := msg.(tea.KeyMsg); ok {
			switch msg.String() {
			case "esc":
				c.clearFilter()
				return nil, false
			case "enter":
				// Accept filter, blur input to allow navigation
				c.filterInput.Blur()
				return nil, false
			case "backspace":
				if c.filterInput.Value() == "" {
					c.clearFilter()
					return nil, false
				}
			}
		}

		var cmd tea.Cmd
		c.filterInput, cmd = c.filterInput.Update(msg)
		c.applyFilter()
		return cmd, false
	}

	if c.filterActive {
		if msg, ok := msg.(tea.KeyMsg); ok {
			switch msg.String() {
			case "esc":
				c.clearFilter()
				return nil, false
			case "/":
				c.filterInput.Focus()
				return nil, false
			}
		}
	}

	count := c.ItemCount()
	if count == 0 {
		return nil, false
	}

	before := c.cursor
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "j", "down":
			if c.cursor < count-1 {
				c.cursor++
			}
		case "k", "up":
			if c.cursor > 0 {
				c.cursor--
			}
		case "g", "home":
			c.cursor = 0
		case "G", "end":
			c.cursor = count - 1
		case "ctrl+d", "pgdown":
			c.cursor += max(1, c.maxVisible/2)
			if c.cursor >= count {
				c.cursor = count - 1
			}
		case "ctrl+u", "pgup":
			c.cursor -= max(1, c.maxVisible/2)
			if c.cursor < 0 {
				c.cursor = 0
			}
		}
	}
	c.ensureVisible()

	return nil, c.cursor != before
}

// View renders the bordered column
func (c *ListColumn) View() string {
	style := styles.InactiveBorder
	if c.focused {
		style = styles.ActiveBorder
	}

	content := c.renderContent()

	// Subtract frame (border) size so total rendered size equals c.width x c.height
	frameW, frameH := style.GetFrameSize()

	return style.
		Width(c.width - frameW).
		Height(c.height - frameH).
		Render(content)
}

// SetSize updates the column dimensions
func (c *ListColumn) SetSize(width, height int) {
	c.width = width
	c.height = height
	c.recalcMaxVisible()
	c.ensureVisible()
}

func (c *ListColumn) Width() int  { return c.width }
func (c *ListColumn) Height() int { return c.height }

func (c *ListColumn) SetFocused(focused bool) { c.focused = focused }
func (c *ListColumn) IsFocused() bool         { return c.focused }

func (c *ListColumn) Title() string         { return c.title }
func (c *ListColumn) SetTitle(title string) { c.title = title }

// SetEmptyState sets the text shown when the list is loaded but empty
func (c *ListColumn) SetEmptyState(empty EmptyState) { c.empty = empty }

// SetShowRank toggles the rank prefix
func (c *ListColumn) SetShowRank(show bool) { c.showRank = show }

// SetListed sets the predicate used to mark movies already on the watch list
func (c *ListColumn) SetListed(fn func(id int) bool) { c.listed = fn }

// SetItems replaces the movies. The cursor stays on the same position, clamped
// to the new length, so appended pages and removals do not jump the view.
func (c *ListColumn) SetItems(movies []domain.Movie) {
	c.movies = movies
	c.index = search.NewFilterIndex(movies)
	if c.filterActive && c.filterQuery != "" {
		c.filtered = c.index.Filter(c.filterQuery)
	}
	count := c.ItemCount()
	if c.cursor >= count {
		c.cursor = max(0, count-1)
	}
	c.ensureVisible()
}

// Items returns the unfiltered movies
func (c *ListColumn) Items() []domain.Movie { return c.movies }

// SetLoading shows the full-column loading state (first page)
func (c *ListColumn) SetLoading(loading bool) { c.loading = loading }

func (c *ListColumn) IsLoading() bool { return c.loading }

// SetLoadingMore shows the footer spinner while a further page loads
func (c *ListColumn) SetLoadingMore(loading bool) { c.loadingMore = loading }

// SetSpinner sets the rendered spinner frame
func (c *ListColumn) SetSpinner(frame string) { c.spinner = frame }

// SelectedMovie returns the movie under the cursor
func (c *ListColumn) SelectedMovie() (domain.Movie, bool) {
	count := c.ItemCount()
	if count == 0 || c.cursor >= count {
		return domain.Movie{}, false
	}
	return c.movies[c.mapIndex(c.cursor)], true
}

func (c *ListColumn) SelectedIndex() int { return c.cursor }

// SetSelectedIndex moves the cursor, clamped to the list
func (c *ListColumn) SetSelectedIndex(idx int) {
	last := c.ItemCount() - 1
	if last < 0 {
		c.cursor = 0
		return
	}
	c.cursor = min(max(idx, 0), last)
	c.ensureVisible()
}

// ItemCount returns the number of visible (filtered) movies
func (c *ListColumn) ItemCount() int {
	if c.filtered != nil {
		return len(c.filtered)
	}
	return len(c.movies)
}

func (c *ListColumn) IsEmpty() bool { return c.ItemCount() == 0 }

// MaxVisible returns how many rows fit in the column
func (c *ListColumn) MaxVisible() int { return c.maxVisible }

// NearEnd reports whether the cursor is within the last rows of the list,
// max(1, visible*EndReachedThreshold) of them. Filtered views never page.
func (c *ListColumn) NearEnd() bool {
	if c.filtered != nil || len(c.movies) == 0 {
		return false
	}
	threshold := max(1, int(float64(c.maxVisible)*EndReachedThreshold))
	return c.cursor >= len(c.movies)-threshold
}

// ToggleFilter activates the filter input
func (c *ListColumn) ToggleFilter() {
	c.filterActive = true
	c.filterInput.Focus()
	c.recalcMaxVisible()
}

// IsFiltering returns true if filter mode is active
func (c *ListColumn) IsFiltering() bool { return c.filterActive }

// IsFilterTyping returns true if filter is active AND input is focused
func (c *ListColumn) IsFilterTyping() bool {
	return c.filterActive && c.filterInput.Focused()
}

// ClearFilter deactivates the filter and shows all movies
func (c *ListColumn) ClearFilter() { c.clearFilter() }

func (c *ListColumn) recalcMaxVisible() {
	// Interior height minus title line and scroll indicators
	interiorHeight := c.height - BorderHeight
	c.maxVisible = interiorHeight - ScrollIndicatorLines - 1
	if c.filterActive {
		c.maxVisible--
	}
	if c.maxVisible < 1 {
		c.maxVisible = 1
	}
}

func (c *ListColumn) ensureVisible() {
	if c.maxVisible <= 0 {
		return
	}
	if c.cursor < c.offset {
		c.offset = c.cursor
	}
	if c.cursor >= c.offset+c.maxVisible {
		c.offset = c.cursor - c.maxVisible + 1
	}
	if c.offset < 0 {
		c.offset = 0
	}
}

func (c *ListColumn) clearFilter() {
	c.filterActive = false
	c.filterQuery = ""
	c.filtered = nil
	c.filterInput.SetValue("")
	c.filterInput.Blur()
	c.recalcMaxVisible()
	c.ensureVisible()
}

func (c *ListColumn) applyFilter() {
	query := c.filterInput.Value()
	c.filterQuery = query

	if strings.TrimSpace(query) == "" {
		c.filtered = nil
		return
	}

	c.filtered = c.index.Filter(query)
	c.cursor = 0
	c.offset = 0
}

func (c *ListColumn) mapIndex(i int) int {
	if c.filtered != nil && i < len(c.filtered) {
		return c.filtered[i].Index
	}
	return i
}

func (c *ListColumn) matchedIndexes(i int) []int {
	if c.filtered != nil && i < len(c.filtered) {
		return c.filtered[i].MatchedIndexes
	}
	return nil
}

// Rendering

func (c *ListColumn) renderContent() string {
	itemWidth := c.width - BorderWidth
	if itemWidth < 10 {
		itemWidth = 10
	}

	titleLine := styles.AccentStyle.Render(styles.Truncate(c.title, itemWidth))

	if c.loading {
		loadingLine := styles.DimStyle.Render(c.spinner + " Loading...")
		return titleLine + "\n \n" + loadingLine + "\n "
	}

	count := c.ItemCount()
	if count == 0 {
		if c.filterActive && c.filterQuery != "" {
			return titleLine + "\n \n" + styles.DimStyle.Render("No matches") + "\n \n" + c.renderFilterBar()
		}
		lines := []string{titleLine, " ", styles.TitleStyle.Render(c.empty.Title)}
		if c.empty.Hint != "" {
			lines = append(lines, styles.DimStyle.Render(c.empty.Hint))
		}
		return strings.Join(lines, "\n")
	}

	end := min(c.offset+c.maxVisible, count)

	lines := make([]string, 0, end-c.offset)
	for i := c.offset; i < end; i++ {
		idx := c.mapIndex(i)
		lines = append(lines, c.renderMovieItem(idx, c.matchedIndexes(i), i == c.cursor, itemWidth))
	}

	// Header and footer lines are always reserved to prevent layout shifts
	header := " "
	if c.offset > 0 {
		header = styles.DimStyle.Render("↑ more")
	}

	footer := " "
	switch {
	case c.loadingMore:
		footer = styles.DimStyle.Render(c.spinner + " loading more...")
	case end < count:
		footer = styles.DimStyle.Render("↓ more")
	}

	content := titleLine + "\n" + header + "\n" + strings.Join(lines, "\n") + "\n" + footer
	if c.filterActive {
		content += "\n" + c.renderFilterBar()
	}
	return content
}

func (c *ListColumn) renderMovieItem(idx int, matched []int, selected bool, width int) string {
	movie := c.movies[idx]
	marker := " "
	markerFg := styles.Green
	if c.listed != nil && c.listed(movie.ID) {
		marker = styles.ListedChar
	}

	rating := ""
	if movie.VoteCount > 0 {
		rating = fmt.Sprintf(" %.1f", movie.VoteAverage)
	}
	ratingFg := styles.Yellow

	year := ""
	if y := movie.Year(); y > 0 {
		year = fmt.Sprintf(" (%d)", y)
	}

	rank := ""
	if c.showRank {
		rank = fmt.Sprintf("%3d ", idx+1)
	}
	rankFg := styles.DimGray

	// Available space: width - marker(1) - space(1) - rank - rating - margins(2)
	available := width - 4 - len(rank) - len([]rune(rating))
	if available < 5 {
		available = 5
	}
	title := styles.Truncate(movie.Title+year, available)

	parts := []styles.RowPart{{Text: marker, Foreground: &markerFg}, {Text: " "}}
	if rank != "" {
		parts = append(parts, styles.RowPart{Text: rank, Foreground: &rankFg})
	}
	parts = append(parts, highlightParts(title, matched)...)
	parts = append(parts, styles.RowPart{Text: rating, Foreground: &ratingFg})

	return styles.RenderListRow(parts, selected, width)
}

// highlightParts splits title into runs so fuzzy-matched bytes render in the accent color
func highlightParts(title string, matched []int) []styles.RowPart {
	if len(matched) == 0 {
		return []styles.RowPart{{Text: title}}
	}

	hit := make(map[int]bool, len(matched))
	for _, i := range matched {
		hit[i] = true
	}

	accent := styles.Accent
	var parts []styles.RowPart
	var run strings.Builder
	runHit := false
	flush := func() {
		if run.Len() == 0 {
			return
		}
		p := styles.RowPart{Text: run.String()}
		if runHit {
			p.Foreground = &accent
			p.Bold = true
		}
		parts = append(parts, p)
		run.Reset()
	}

	for i, r := range title {
		if hit[i] != runHit {
			flush()
			runHit = hit[i]
		}
		run.WriteRune(r)
	}
	flush()
	return parts
}

func (c *ListColumn) renderFilterBar() string {
	input := c.filterInput.View()
	countStr := ""
	if c.filterQuery != "" {
		countStr = styles.DimStyle.Render(fmt.Sprintf(" [%d/%d]", c.ItemCount(), len(c.movies)))
	}
	return input + countStr
}
