package view

import (
	tea "github.com/charmbracelet/bubbletea"
)

// chromeRows is the vertical space taken above and below a table by the
// title, filter line, and key help.
const chromeRows = 10

// CommonModel carries the terminal size shared by every console view.
type CommonModel struct {
	Width  int
	Height int
}

// TableHeight is the rows left for a table once the chrome is accounted
// for. Never shrinks below a few rows so the cursor stays visible on
// tiny terminals.
func (m CommonModel) TableHeight() int {
	h := m.Height - chromeRows
	if h < 3 {
		h = 3
	}

	return h
}

// BackMsg returns control to the main menu.
type BackMsg struct{}

func Back() tea.Msg {
	return BackMsg{}
}
