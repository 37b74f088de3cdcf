package components

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/cinelist/internal/tui/styles"
)

// NoticeModal is a blocking message the user must acknowledge
type NoticeModal struct {
	visible bool
	title   string
	body    string
}

// NewNoticeModal creates a hidden notice
func NewNoticeModal() NoticeModal {
	return NoticeModal{}
}

// Show displays the notice
func (m *NoticeModal) Show(title, body string) {
	m.visible = true
	m.title = title
	m.body = body
}

// Hide dismisses the notice
func (m *NoticeModal) Hide() {
	m.visible = false
}

// IsVisible returns whether the notice is shown
func (m NoticeModal) IsVisible() bool {
	return m.visible
}

// Title returns the notice title
func (m NoticeModal) Title() string {
	return m.title
}

// Body returns the notice text
func (m NoticeModal) Body() string {
	return m.body
}

// HandleKey dismisses the notice on enter or esc; it reports whether the key was consumed
func (m *NoticeModal) HandleKey(k string) bool {
	if !m.visible {
		return false
	}
	switch k {
	case "enter", "esc", " ", "q":
		m.Hide()
	}
	// Every key is swallowed while the notice is up
	return true
}

// View renders the notice centered in the given area
func (m NoticeModal) View(width, height int) string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		styles.ModalTitleStyle.Render(m.title),
		WordWrap(m.body, 40),
		"",
		styles.DimStyle.Render("[Enter] OK"),
	)

	return lipgloss.Place(width, height,
		lipgloss.Center, lipgloss.Center,
		styles.ModalStyle.Render(content))
}
