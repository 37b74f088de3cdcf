package tui

// columnLayout holds calculated widths for the View
type columnLayout struct {
	listWidth      int
	inspectorWidth int // 0 if not shown
}

// calculateColumnLayout splits the width between the list and the inspector
func (m Model) calculateColumnLayout(availableWidth int) columnLayout {
	if !m.ShowInspector {
		return columnLayout{listWidth: availableWidth}
	}

	list := max(availableWidth*ListColumnPercent/100, MinColumnWidth)
	inspector := availableWidth - list
	if inspector < MinInspectorWidth {
		// Too narrow for two panes
		return columnLayout{listWidth: availableWidth}
	}
	return columnLayout{listWidth: list, inspectorWidth: inspector}
}

// contentHeight is the height left for the active tab
func (m Model) contentHeight() int {
	h := m.Height - ChromeHeight
	if m.Tab == TabSearch {
		h-- // search input line
	}
	return max(h, 1)
}

// updateLayout updates component sizes based on window size
func (m *Model) updateLayout() {
	if m.Width == 0 || m.Height == 0 {
		return
	}

	layout := m.calculateColumnLayout(m.Width)
	height := m.contentHeight()

	if col := m.activeColumn(); col != nil {
		col.SetSize(layout.listWidth, height)
	}
	if layout.inspectorWidth > 0 {
		m.Inspector.SetSize(layout.inspectorWidth, height)
	}
	m.SearchInput.Width = max(m.Width-4, 10)
}
