package view

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/google/uuid"

	"github.com/carvex/warranty/internal/claim"
	"github.com/carvex/warranty/internal/history"
	"github.com/carvex/warranty/internal/workorder"
)

type claimsState int

const (
	claimsStateBrowse claimsState = iota
	claimsStateDetail
	claimsStateCommand
)

// statusCycle is the status filter rotation for the browse view. nil means all.
var statusCycle = []*claim.Status{
	nil,
	ptr(claim.StatusDraft),
	ptr(claim.StatusOpen),
	ptr(claim.StatusPendingEVMApproval),
	ptr(claim.StatusRepairInProgress),
	ptr(claim.StatusReadyForHandover),
	ptr(claim.StatusClaimDone),
}

func ptr[T any](v T) *T { return &v }

type ClaimsModel struct {
	CommonModel
	claimSvc   *claim.Service
	historySvc *history.Service

	state claimsState
	table table.Model

	claims  []*claim.Claim
	current *claim.Claim
	entries []*history.Entry

	statusFilterIdx int
	filter          claim.ListFilter

	form *huh.Form

	loading bool
	err     error
	status  string

	// Form bindings
	formCommand string
	formAmount  string
	formNote    string
}

func NewClaimsModel(claimSvc *claim.Service, historySvc *history.Service) ClaimsModel {
	columns := []table.Column{
		{Title: "Claim No.", Width: 16},
		{Title: "Status", Width: 26},
		{Title: "Repair", Width: 12},
		{Title: "Est. Cost", Width: 10},
		{Title: "Ver", Width: 4},
		{Title: "Created", Width: 17},
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

	return ClaimsModel{
		claimSvc:   claimSvc,
		historySvc: historySvc,
		table:      t,
		filter:     claim.ListFilter{},
	}
}

func (m ClaimsModel) Title() string { return "Claims" }

func (m ClaimsModel) ShortHelp() string {
	switch m.state {
	case claimsStateDetail:
		return "Esc: back | c: command"
	case claimsStateCommand:
		return "Navigate form | Esc: cancel"
	}

	return "Esc: back | Enter: detail | s: status filter | r: refresh"
}

func (m ClaimsModel) Init() tea.Cmd {
	return m.loadClaimsCmd()
}

func (m ClaimsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadClaimsMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.claims = msg.claims
		m.err = nil
		m.refreshTable()

		return m, nil

	case loadDetailMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}

		m.current = msg.claim
		m.entries = msg.entries
		m.state = claimsStateDetail

		return m, nil

	case claimAppliedMsg:
		m.form = nil
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
			m.state = claimsStateDetail

			return m, nil
		}

		m.status = fmt.Sprintf("Applied %s", m.formCommand)
		m.state = claimsStateDetail

		return m, m.loadDetailCmd(msg.claimID)

	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.table.SetHeight(m.TableHeight())
		return m, nil
	}

	switch m.state {
	case claimsStateBrowse:
		return m.updateBrowse(msg)
	case claimsStateDetail:
		return m.updateDetail(msg)
	case claimsStateCommand:
		return m.updateCommand(msg)
	}

	return m, nil
}

func (m ClaimsModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadClaimsCmd()
		case "s":
			m.statusFilterIdx = (m.statusFilterIdx + 1) % len(statusCycle)
			m.filter.Status = statusCycle[m.statusFilterIdx]

			return m, m.loadClaimsCmd()
		case "enter":
			idx := m.table.Cursor()
			if idx < 0 || idx >= len(m.claims) {
				return m, nil
			}

			return m, m.loadDetailCmd(m.claims[idx].ID)
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m ClaimsModel) updateDetail(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			m.state = claimsStateBrowse
			m.current = nil
			m.status = ""

			return m, m.loadClaimsCmd()
		case "c":
			return m.enterCommandMode()
		}
	}

	return m, nil
}

func (m ClaimsModel) enterCommandMode() (tea.Model, tea.Cmd) {
	if m.current == nil {
		return m, nil
	}

	m.formCommand = ""
	m.formAmount = ""
	m.formNote = ""

	options := make([]huh.Option[string], 0, len(commandNames))
	for _, name := range commandNames {
		options = append(options, huh.NewOption(string(name), string(name)))
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("command").
				Title("Command").
				Options(options...).
				Value(&m.formCommand),

			huh.NewInput().
				Key("amount").
				Title("Amount (cents)").
				Placeholder("0").
				Value(&m.formAmount).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return nil
					}

					if _, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err != nil {
						return fmt.Errorf("not a number")
					}

					return nil
				}),

			huh.NewInput().
				Key("note").
				Title("Note").
				Value(&m.formNote),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = claimsStateCommand

	return m, m.form.Init()
}

func (m ClaimsModel) updateCommand(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyEsc {
			m.state = claimsStateDetail
			m.form = nil

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

	return m, m.applyCmd()
}

func (m ClaimsModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading claims...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	switch m.state {
	case claimsStateDetail, claimsStateCommand:
		return m.viewDetail()
	}

	filterLabel := "All"
	if f := statusCycle[m.statusFilterIdx]; f != nil {
		filterLabel = string(*f)
	}

	header := fmt.Sprintf("Filter: [s] Status: %s", activeStyle(filterLabel))

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableView,
	)

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m ClaimsModel) viewDetail() string {
	c := m.current
	if c == nil {
		return ""
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Claim %s\n\n", c.ClaimNumber)
	fmt.Fprintf(&b, "Status:      %s\n", c.Status)
	fmt.Fprintf(&b, "Repair type: %s\n", orDash(string(c.RepairType)))
	fmt.Fprintf(&b, "Version:     %d\n", c.Version)
	fmt.Fprintf(&b, "Est. cost:   %s\n", FormatCents(c.EstimatedRepairCost))
	fmt.Fprintf(&b, "Warranty:    %s\n", FormatCents(c.WarrantyCost))
	fmt.Fprintf(&b, "Rejections:  %d/%d  Resubmits: %d/%d  Cancel req.: %d/%d\n",
		c.RejectionCount, claim.MaxRejections,
		c.ResubmitCount, claim.MaxResubmits,
		c.CancelRequestCount, claim.MaxCancelRequests,
	)

	if len(c.MissingRequirements) > 0 {
		fmt.Fprintf(&b, "Missing:     %s\n", strings.Join(c.MissingRequirements, ", "))
	}

	if c.PendingCancelReason != "" {
		fmt.Fprintf(&b, "Cancel req.: %s\n", c.PendingCancelReason)
	}

	b.WriteString("\nHistory:\n")

	for _, e := range m.entries {
		fmt.Fprintf(&b, "  %s  %-26s %s\n", FormatTime(e.ChangedAt), e.StatusCode, e.Note)
	}

	content := lipgloss.NewStyle().
		Padding(1, 2).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(b.String())

	if m.state == claimsStateCommand && m.form != nil {
		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(48).
			Render("Apply Command\n\n" + m.form.View())

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func activeStyle(s string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Render(s)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}

func (m *ClaimsModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.claims))
	for _, c := range m.claims {
		rows = append(rows, table.Row{
			c.ClaimNumber,
			string(c.Status),
			orDash(string(c.RepairType)),
			FormatCents(c.EstimatedRepairCost),
			strconv.Itoa(c.Version),
			FormatTime(c.CreatedAt),
		})
	}

	m.table.SetRows(rows)
}

// commandNames drives the command picker. Order follows the lifecycle.
var commandNames = []claim.CommandName{
	claim.CmdToIntake,
	claim.CmdSubmitDiagnostic,
	claim.CmdSubmitToEVM,
	claim.CmdApprove,
	claim.CmdReject,
	claim.CmdCreateWorkOrder,
	claim.CmdResubmit,
	claim.CmdMoveToHandover,
	claim.CmdReportProblem,
	claim.CmdResolveProblem,
	claim.CmdStartRepair,
	claim.CmdAwaitParts,
	claim.CmdRequirePayment,
	claim.CmdConfirmPayment,
	claim.CmdMarkWorkDone,
	claim.CmdPrepareHandover,
	claim.CmdCompleteClaim,
	claim.CmdReopen,
}

// buildCommand maps the generic form fields onto a concrete command payload.
func buildCommand(name claim.CommandName, c *claim.Claim, amount int64, note string) (claim.Command, error) {
	switch name {
	case claim.CmdToIntake:
		return claim.ToIntake{}, nil
	case claim.CmdSubmitDiagnostic:
		return claim.SubmitDiagnostic{Summary: note}, nil
	case claim.CmdSubmitToEVM:
		return claim.SubmitToEVM{EstimatedRepairCost: amount, TotalEstimatedCost: amount}, nil
	case claim.CmdApprove:
		return claim.Approve{WarrantyCost: amount}, nil
	case claim.CmdReject:
		return claim.Reject{Reason: note}, nil
	case claim.CmdCreateWorkOrder:
		if c.AssignedTechnicianID == nil {
			return nil, fmt.Errorf("claim has no assigned technician")
		}

		woType := workorder.TypeSC
		if c.RepairType == claim.RepairTypeEVM {
			woType = workorder.TypeEVM
		}

		return claim.CreateWorkOrder{Type: woType, TechnicianID: *c.AssignedTechnicianID}, nil
	case claim.CmdResubmit:
		return claim.Resubmit{Note: note}, nil
	case claim.CmdMoveToHandover:
		return claim.MoveToHandover{Note: note}, nil
	case claim.CmdReportProblem:
		return claim.ReportProblem{ProblemType: "other", Description: note}, nil
	case claim.CmdResolveProblem:
		return claim.ResolveProblem{Action: "resolved", Notes: note}, nil
	case claim.CmdStartRepair:
		return claim.StartRepair{}, nil
	case claim.CmdAwaitParts:
		return claim.AwaitParts{Parts: note}, nil
	case claim.CmdRequirePayment:
		return claim.RequirePayment{}, nil
	case claim.CmdConfirmPayment:
		return claim.ConfirmPayment{}, nil
	case claim.CmdMarkWorkDone:
		return claim.MarkWorkDone{Notes: note}, nil
	case claim.CmdPrepareHandover:
		return claim.PrepareHandover{Note: note}, nil
	case claim.CmdCompleteClaim:
		return claim.CompleteClaim{Notes: note, CompanyPaidCost: amount}, nil
	case claim.CmdReopen:
		return claim.Reopen{Reason: note}, nil
	}

	return nil, fmt.Errorf("unknown command: %s", name)
}

// Messages

type loadClaimsMsg struct {
	claims []*claim.Claim
	err    error
}

func (m ClaimsModel) loadClaimsCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		claims, err := m.claimSvc.List(ctx, m.filter)

		return loadClaimsMsg{claims: claims, err: err}
	}
}

type loadDetailMsg struct {
	claim   *claim.Claim
	entries []*history.Entry
	err     error
}

func (m ClaimsModel) loadDetailCmd(id uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		c, err := m.claimSvc.Get(ctx, id)
		if err != nil {
			return loadDetailMsg{err: err}
		}

		entries, err := m.historySvc.ListByClaim(ctx, id)
		if err != nil {
			return loadDetailMsg{err: err}
		}

		return loadDetailMsg{claim: c, entries: entries}
	}
}

type claimAppliedMsg struct {
	claimID uuid.UUID
	err     error
}

func (m ClaimsModel) applyCmd() tea.Cmd {
	c := m.current
	if c == nil {
		return nil
	}

	amount := int64(0)
	if s := strings.TrimSpace(m.formAmount); s != "" {
		amount, _ = strconv.ParseInt(s, 10, 64)
	}

	cmd, err := buildCommand(claim.CommandName(m.formCommand), c, amount, m.formNote)
	if err != nil {
		return func() tea.Msg {
			return claimAppliedMsg{claimID: c.ID, err: err}
		}
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		_, err := m.claimSvc.Apply(ctx, c.ID, OpsActor, c.Version, cmd)

		return claimAppliedMsg{claimID: c.ID, err: err}
	}
}
