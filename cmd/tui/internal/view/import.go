package view

import (
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/filepicker"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/carvex/warranty/internal/claim"
	"github.com/carvex/warranty/internal/importer"
)

type importState int

const (
	importStateSourceSelect importState = iota
	importStateFilePick
	importStateImporting
	importStateResult
)

type ImportModel struct {
	CommonModel
	claimSvc      *claim.Service
	importService *importer.Service

	state          importState
	filePicker     filepicker.Model
	selectedSource importer.Source
	sourceOptions  []importer.Source
	sourceCursor   int

	status string
	err    error
}

func NewImportModel(claimSvc *claim.Service, impSvc *importer.Service) ImportModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.ShowHidden = false
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.SetHeight(15)

	return ImportModel{
		claimSvc:      claimSvc,
		importService: impSvc,
		filePicker:    fp,
		sourceOptions: []importer.Source{importer.SourceDMS},
	}
}

func (m ImportModel) Title() string { return "Import Claims" }

func (m ImportModel) ShortHelp() string {
	return "Esc: back | Enter: select"
}

func (m ImportModel) Init() tea.Cmd {
	return m.filePicker.Init()
}

func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m.handleEsc()
		}

		if m.state == importStateSourceSelect {
			return m.updateSourceSelect(msg)
		}

	case importResultMsg:
		m.state = importStateResult

		if msg.err != nil {
			m.err = msg.err
			m.status = fmt.Sprintf("Error: %v", msg.err)

			return m, nil
		}

		m.status = fmt.Sprintf("Imported %d claims (%d skipped).", msg.imported, msg.skipped)

		return m, nil
	}

	if m.state != importStateFilePick {
		return m, nil
	}

	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)

	if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
		m.state = importStateImporting
		m.status = fmt.Sprintf("Importing from %s...", path)

		return m, m.importCmd(path)
	}

	return m, cmd
}

func (m ImportModel) handleEsc() (tea.Model, tea.Cmd) {
	switch m.state {
	case importStateFilePick:
		m.state = importStateSourceSelect
		return m, nil
	case importStateResult:
		m.state = importStateSourceSelect
		m.err = nil
		m.status = ""

		return m, nil
	}

	return m, Back
}

func (m ImportModel) updateSourceSelect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyUp:
		if m.sourceCursor > 0 {
			m.sourceCursor--
		}
	case tea.KeyDown:
		if m.sourceCursor < len(m.sourceOptions)-1 {
			m.sourceCursor++
		}
	case tea.KeyEnter:
		m.selectedSource = m.sourceOptions[m.sourceCursor]
		m.state = importStateFilePick

		return m, m.filePicker.Init()
	}

	return m, nil
}

func (m ImportModel) View() string {
	switch m.state {
	case importStateSourceSelect:
		s := "Select source system:\n\n"

		for i, src := range m.sourceOptions {
			cursor := "  "
			if i == m.sourceCursor {
				cursor = "> "
			}

			s += fmt.Sprintf("%s%s\n", cursor, src)
		}

		return lipgloss.NewStyle().Padding(2).Render(s)

	case importStateFilePick:
		return lipgloss.NewStyle().Padding(1).Render(
			"Pick an export file:\n\n" + m.filePicker.View(),
		)

	case importStateImporting, importStateResult:
		return lipgloss.NewStyle().Padding(2).Render(m.status)
	}

	return ""
}

// Messages

type importResultMsg struct {
	imported int
	skipped  int
	err      error
}

func (m ImportModel) importCmd(path string) tea.Cmd {
	source := m.selectedSource

	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return importResultMsg{err: err}
		}
		defer f.Close()

		params, err := m.importService.Import(source, f)
		if err != nil {
			return importResultMsg{err: err}
		}

		ctx, cancel := DbCtx()
		defer cancel()

		imported, skipped := 0, 0

		for _, p := range params {
			if _, err := m.claimSvc.Create(ctx, OpsActor, p); err != nil {
				skipped++
				continue
			}

			imported++
		}

		return importResultMsg{imported: imported, skipped: skipped}
	}
}
