package main

import (
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/carvex/warranty/cmd/tui/internal/view"
	"github.com/carvex/warranty/internal/cancellation"
	"github.com/carvex/warranty/internal/claim"
	claimStore "github.com/carvex/warranty/internal/claim/store"
	"github.com/carvex/warranty/internal/config"
	"github.com/carvex/warranty/internal/database"
	"github.com/carvex/warranty/internal/history"
	historyStore "github.com/carvex/warranty/internal/history/store"
	"github.com/carvex/warranty/internal/importer"
)

type model struct {
	claimService   *claim.Service
	cancelService  *cancellation.Service
	historyService *history.Service
	importService  *importer.Service

	currentView View

	claimsView view.ClaimsModel
	cancelView view.CancelModel
	importView view.ImportModel
}

type View int

const (
	ViewMenu   View = 0
	ViewClaims View = 1
	ViewCancel View = 2
	ViewImport View = 3
)

func initialModel() model {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	claimSvc := claim.NewService(claimStore.New(db))
	cancelSvc := cancellation.NewService(claimStore.New(db))
	historySvc := history.NewService(historyStore.New(db))
	impSvc := importer.NewService()

	return model{
		claimService:   claimSvc,
		cancelService:  cancelSvc,
		historyService: historySvc,
		importService:  impSvc,
		currentView:    ViewMenu,
		claimsView:     view.NewClaimsModel(claimSvc, historySvc),
		cancelView:     view.NewCancelModel(claimSvc, cancelSvc),
		importView:     view.NewImportModel(claimSvc, impSvc),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.currentView == ViewMenu {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewClaims
				m.claimsView = view.NewClaimsModel(m.claimService, m.historyService)

				return m, m.claimsView.Init()
			case "2":
				m.currentView = ViewCancel
				m.cancelView = view.NewCancelModel(m.claimService, m.cancelService)

				return m, m.cancelView.Init()
			case "3":
				m.currentView = ViewImport
				m.importView = view.NewImportModel(m.claimService, m.importService)

				return m, m.importView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewClaims:
		var newModel tea.Model
		newModel, cmd = m.claimsView.Update(msg)
		m.claimsView = newModel.(view.ClaimsModel)
	case ViewCancel:
		var newModel tea.Model
		newModel, cmd = m.cancelView.Update(msg)
		m.cancelView = newModel.(view.CancelModel)
	case ViewImport:
		var newModel tea.Model
		newModel, cmd = m.importView.Update(msg)
		m.importView = newModel.(view.ImportModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"Warranty TUI\n\n" +
				"1. Browse Claims\n" +
				"2. Cancel Requests\n" +
				"3. Import Claims\n\n" +
				"q. Quit",
		)
	case ViewClaims:
		return m.claimsView.View()
	case ViewCancel:
		return m.cancelView.View()
	case ViewImport:
		return m.importView.View()
	}

	return "Unknown View"
}

func main() {
	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
