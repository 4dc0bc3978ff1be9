package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/jvillar/tienda/internal/auth"
	"github.com/jvillar/tienda/internal/catalog"
	"github.com/jvillar/tienda/internal/receipt"
	"github.com/jvillar/tienda/internal/sale"
)

type salesState int

const (
	salesStateBrowse salesState = iota
	salesStateVoid
	salesStateReceipt
)

type SalesModel struct {
	CommonModel
	saleService    *sale.Service
	catalogService *catalog.Service
	actor          auth.Actor
	storeName      string

	state salesState
	table table.Model
	sales []*sale.Sale
	form  *huh.Form

	// Filter cycling
	statusFilterIdx int
	dateFilterIdx   int

	filter      sale.ListFilter
	receiptText string
	loading     bool
	err         error
	status      string

	// Form bindings
	formReason string
}

func NewSalesModel(saleSvc *sale.Service, catalogSvc *catalog.Service, actor auth.Actor, storeName string) SalesModel {
	columns := []table.Column{
		{Title: "Date", Width: 17},
		{Title: "Status", Width: 8},
		{Title: "Total", Width: 10},
		{Title: "Method", Width: 14},
		{Title: "Customer", Width: 24},
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

	return SalesModel{
		saleService:    saleSvc,
		catalogService: catalogSvc,
		actor:          actor,
		storeName:      storeName,
		table:          t,
		filter:         sale.ListFilter{},
	}
}

func (m SalesModel) Title() string { return "Sales" }
func (m SalesModel) ShortHelp() string {
	switch m.state {
	case salesStateVoid:
		return "Navigate form | Esc: cancel"
	case salesStateReceipt:
		return "Esc: back"
	default:
		return "Esc: back | v: void | p: receipt | s: status filter | d: date filter | r: refresh"
	}
}

func (m SalesModel) Init() tea.Cmd {
	return m.loadSalesCmd()
}

func (m SalesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadSalesMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.sales = msg.sales
		m.err = nil
		m.refreshTable()
		return m, nil

	case voidDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Void failed: %v", msg.err)
		} else {
			m.status = "Sale voided, stock restored"
		}
		m.state = salesStateBrowse
		m.form = nil
		m.table.Focus()
		return m, m.loadSalesCmd()

	case receiptMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Receipt failed: %v", msg.err)
			return m, nil
		}
		m.state = salesStateReceipt
		m.receiptText = msg.text
		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil
	}

	switch m.state {
	case salesStateBrowse:
		return m.updateBrowse(msg)
	case salesStateVoid:
		return m.updateVoid(msg)
	case salesStateReceipt:
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
			m.state = salesStateBrowse
			m.receiptText = ""
			return m, nil
		}
	}

	return m, nil
}

func (m SalesModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadSalesCmd()
		case "v":
			return m.enterVoidMode()
		case "p":
			return m, m.receiptCmd()
		case "s":
			m.statusFilterIdx = (m.statusFilterIdx + 1) % 3
			m.applyFilter()
			return m, m.loadSalesCmd()
		case "d":
			m.dateFilterIdx = (m.dateFilterIdx + 1) % 3
			m.applyFilter()
			return m, m.loadSalesCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m SalesModel) enterVoidMode() (tea.Model, tea.Cmd) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.sales) {
		return m, nil
	}

	if m.sales[idx].Status == sale.StatusVoided {
		m.status = "Sale is already voided"
		return m, nil
	}

	m.formReason = ""
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("reason").
				Title("Void reason").
				Placeholder("wrong item, customer return, ...").
				Value(&m.formReason).
				Validate(func(s string) error {
					if len([]rune(strings.TrimSpace(s))) < 5 {
						return fmt.Errorf("reason must be at least 5 characters")
					}
					return nil
				}),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = salesStateVoid
	m.table.Blur()
	return m, m.form.Init()
}

func (m SalesModel) updateVoid(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyEsc {
			m.state = salesStateBrowse
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

	return m, m.voidCmd()
}

func (m SalesModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading sales...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	if m.state == salesStateReceipt {
		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Render(m.receiptText)

		return lipgloss.NewStyle().Padding(1).Render(panel + "\n\nEsc: back")
	}

	statusLabels := []string{"All", "Active", "Voided"}
	dateLabels := []string{"All Time", "Today", "This Month"}

	header := fmt.Sprintf(
		"Filter: [s] Status: %s | [d] Date: %s",
		activeStyle(statusLabels[m.statusFilterIdx]),
		activeStyle(dateLabels[m.dateFilterIdx]),
	)

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableView,
	)

	if m.state == salesStateVoid && m.form != nil {
		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(48).
			Render("Void Sale\n\n" + m.form.View())

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

func (m *SalesModel) applyFilter() {
	switch m.statusFilterIdx {
	case 1:
		status := sale.StatusActive
		m.filter.Status = &status
	case 2:
		status := sale.StatusVoided
		m.filter.Status = &status
	default:
		m.filter.Status = nil
	}

	now := time.Now()
	switch m.dateFilterIdx {
	case 1:
		s := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		e := s.AddDate(0, 0, 1).Add(-time.Nanosecond)
		m.filter.StartDate = &s
		m.filter.EndDate = &e
	case 2:
		s := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		e := s.AddDate(0, 1, 0).Add(-time.Nanosecond)
		m.filter.StartDate = &s
		m.filter.EndDate = &e
	default:
		m.filter.StartDate = nil
		m.filter.EndDate = nil
	}
}

func (m *SalesModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.sales))
	for _, s := range m.sales {
		rows = append(rows, table.Row{
			FormatDate(s.CreatedAt),
			string(s.Status),
			FormatMoney(s.Total),
			string(s.PaymentMethod),
			s.CustomerName,
		})
	}
	m.table.SetRows(rows)
}

// Messages

type loadSalesMsg struct {
	sales []*sale.Sale
	err   error
}

func (m SalesModel) loadSalesCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		sales, err := m.saleService.List(ctx, m.filter)
		return loadSalesMsg{sales: sales, err: err}
	}
}

type voidDoneMsg struct {
	err error
}

func (m SalesModel) voidCmd() tea.Cmd {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.sales) {
		return nil
	}

	saleID := m.sales[idx].ID
	reason := strings.TrimSpace(m.formReason)

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		_, err := m.saleService.VoidSale(ctx, saleID, m.actor, reason)
		return voidDoneMsg{err: err}
	}
}

type receiptMsg struct {
	text string
	err  error
}

func (m SalesModel) receiptCmd() tea.Cmd {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.sales) {
		return nil
	}

	selected := m.sales[idx]

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		products := make(map[string]*catalog.Product, len(selected.Lines))

		for _, line := range selected.Lines {
			p, err := m.catalogService.Get(ctx, line.ProductID)
			if err != nil {
				continue
			}

			products[line.ProductID.String()] = p
		}

		return receiptMsg{text: receipt.Render(m.storeName, selected, products)}
	}
}
