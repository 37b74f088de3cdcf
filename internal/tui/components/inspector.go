package components

import (
	"fmt"
	"strings"

	"github.com/mmcdole/cinelist/internal/domain"
	"github.com/mmcdole/cinelist/internal/tui/styles"
)

// Layout constants for inspector
const (
	InspectorBorderHeight = 2
)

// Inspector displays details for the selected movie
type Inspector struct {
	movie  *domain.Movie
	genres []string
	listed bool
	width  int
	height int
}

// NewInspector creates a new inspector component
func NewInspector() Inspector {
	return Inspector{}
}

// SetMovie sets the movie to display; nil clears the pane
func (i *Inspector) SetMovie(movie *domain.Movie, genres []string, listed bool) {
	i.movie = movie
	i.genres = genres
	i.listed = listed
}

// SetSize updates the component dimensions
func (i *Inspector) SetSize(width, height int) {
	i.width = width
	i.height = height
}

// HasMovie returns true if there is a movie to display
func (i Inspector) HasMovie() bool {
	return i.movie != nil
}

// View renders the component
func (i Inspector) View() string {
	style := styles.InactiveBorder

	// Border takes 2 chars (1 each side), leave 1 char safety margin
	contentWidth := i.width - 3
	if contentWidth < 10 {
		contentWidth = 10
	}

	var content string
	if i.movie == nil {
		content = styles.DimStyle.Render("No movie selected")
	} else {
		content = i.renderMovie(contentWidth)
	}

	// Clip to the available height so long overviews do not push the layout
	maxLines := i.height - InspectorBorderHeight
	if maxLines > 0 {
		lines := strings.Split(content, "\n")
		if len(lines) > maxLines {
			content = strings.Join(lines[:maxLines], "\n")
		}
	}

	frameW, frameH := style.GetFrameSize()
	return style.
		Width(i.width - frameW).
		Height(i.height - frameH).
		Render(content)
}

func (i Inspector) renderMovie(width int) string {
	m := i.movie
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render(WordWrap(m.Title, width)))
	b.WriteString("\n")
	if m.OriginalTitle != "" && m.OriginalTitle != m.Title {
		b.WriteString(styles.SubtitleStyle.Render(WordWrap(m.OriginalTitle, width)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	var meta []string
	if y := m.Year(); y > 0 {
		meta = append(meta, fmt.Sprintf("%d", y))
	}
	if len(m.Languages) > 0 {
		meta = append(meta, strings.ToUpper(strings.Join(m.Languages, ", ")))
	}
	if len(meta) > 0 {
		b.WriteString(styles.SubtitleStyle.Render(strings.Join(meta, " · ")))
		b.WriteString("\n")
	}

	b.WriteString(styles.RatingStyle.Render("★ " + m.FormattedRating()))
	b.WriteString("\n")

	if len(i.genres) > 0 {
		b.WriteString(styles.AccentStyle.Render(WordWrap(strings.Join(i.genres, ", "), width)))
		b.WriteString("\n")
	}

	if i.listed {
		b.WriteString(styles.SuccessStyle.Render(styles.ListedChar + " On your watch list"))
		b.WriteString("\n")
	}

	if m.Overview != "" {
		b.WriteString("\n")
		b.WriteString(WordWrap(m.Overview, width))
	}

	return b.String()
}

// WordWrap wraps text at word boundaries to the given width
func WordWrap(text string, width int) string {
	if width <= 0 {
		return text
	}

	var result strings.Builder
	lineLen := 0

	for _, word := range strings.Fields(text) {
		wordLen := len([]rune(word))

		if lineLen > 0 && lineLen+wordLen+1 > width {
			result.WriteString("\n")
			lineLen = 0
		}
		if lineLen > 0 {
			result.WriteString(" ")
			lineLen++
		}

		result.WriteString(word)
		lineLen += wordLen
	}

	return result.String()
}
