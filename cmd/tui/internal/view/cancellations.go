package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/carvex/warranty/internal/cancellation"
	"github.com/carvex/warranty/internal/claim"
)

type cancelState int

const (
	cancelStateBrowse cancelState = iota
	cancelStateResolve
)

// CancelModel shows claims with a pending cancel request and lets staff
// approve or reject them.
type CancelModel struct {
	CommonModel
	claimSvc  *claim.Service
	cancelSvc *cancellation.Service

	state  cancelState
	table  table.Model
	claims []*claim.Claim
	form   *huh.Form

	loading bool
	err     error
	status  string

	// Form bindings
	formDecision string
	formNote     string
}

func NewCancelModel(claimSvc *claim.Service, cancelSvc *cancellation.Service) CancelModel {
	columns := []table.Column{
		{Title: "Claim No.", Width: 16},
		{Title: "Status", Width: 26},
		{Title: "Reason", Width: 36},
		{Title: "Requests", Width: 9},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return CancelModel{
		claimSvc:  claimSvc,
		cancelSvc: cancelSvc,
		table:     t,
	}
}

func (m CancelModel) Title() string { return "Cancel Requests" }

func (m CancelModel) ShortHelp() string {
	if m.state == cancelStateResolve {
		return "Navigate form | Esc: cancel"
	}

	return "Esc: back | Enter: resolve | r: refresh"
}

func (m CancelModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m CancelModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadCancelsMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.claims = msg.claims
		m.refreshTable()

		return m, nil

	case cancelResolvedMsg:
		m.state = cancelStateBrowse
		m.form = nil
		m.table.Focus()

		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.status = fmt.Sprintf("Request %sd", m.formDecision)
		}

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.table.SetHeight(m.TableHeight())
		return m, nil
	}

	switch m.state {
	case cancelStateBrowse:
		return m.updateBrowse(msg)
	case cancelStateResolve:
		return m.updateResolve(msg)
	}

	return m, nil
}

func (m CancelModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "enter":
			return m.enterResolveMode()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m CancelModel) enterResolveMode() (tea.Model, tea.Cmd) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.claims) {
		return m, nil
	}

	m.formDecision = string(cancellation.DecisionApprove)
	m.formNote = ""

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("decision").
				Title("Decision").
				Options(
					huh.NewOption("Approve", string(cancellation.DecisionApprove)),
					huh.NewOption("Reject", string(cancellation.DecisionReject)),
				).
				Value(&m.formDecision),

			huh.NewInput().
				Key("note").
				Title("Note").
				Value(&m.formNote),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = cancelStateResolve
	m.table.Blur()

	return m, m.form.Init()
}

func (m CancelModel) updateResolve(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyEsc {
			m.state = cancelStateBrowse
			m.form = nil
			m.table.Focus()

			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	return m, m.resolveCmd()
}

func (m CancelModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading cancel requests...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := tableView

	if m.state == cancelStateResolve && m.form != nil {
		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(48).
			Render("Resolve Cancel Request\n\n" + m.form.View())

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *CancelModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.claims))
	for _, c := range m.claims {
		rows = append(rows, table.Row{
			c.ClaimNumber,
			string(c.Status),
			c.PendingCancelReason,
			fmt.Sprintf("%d/%d", c.CancelRequestCount, claim.MaxCancelRequests),
		})
	}

	m.table.SetRows(rows)
}

// Messages

type loadCancelsMsg struct {
	claims []*claim.Claim
	err    error
}

func (m CancelModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		claims, err := m.claimSvc.List(ctx, claim.ListFilter{})
		if err != nil {
			return loadCancelsMsg{err: err}
		}

		pending := make([]*claim.Claim, 0, len(claims))
		for _, c := range claims {
			if c.HasPendingCancelRequest() {
				pending = append(pending, c)
			}
		}

		return loadCancelsMsg{claims: pending}
	}
}

type cancelResolvedMsg struct {
	err error
}

func (m CancelModel) resolveCmd() tea.Cmd {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.claims) {
		return nil
	}

	c := m.claims[idx]
	decision := cancellation.Decision(m.formDecision)
	note := m.formNote

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		_, err := m.cancelSvc.Resolve(ctx, c.ID, OpsActor, c.Version, decision, note)

		return cancelResolvedMsg{err: err}
	}
}
