package view

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/jvillar/tienda/internal/auth"
	"github.com/jvillar/tienda/internal/catalog"
	"github.com/jvillar/tienda/internal/receipt"
	"github.com/jvillar/tienda/internal/sale"
)

type checkoutState int

const (
	checkoutStateBrowse checkoutState = iota
	checkoutStateQuantity
	checkoutStatePay
	checkoutStateDone
)

type cartLine struct {
	product  *catalog.Product
	quantity int
}

type CheckoutModel struct {
	CommonModel
	saleService    *sale.Service
	catalogService *catalog.Service
	actor          auth.Actor
	storeName      string

	state    checkoutState
	table    table.Model
	products []*catalog.Product
	cart     []cartLine
	form     *huh.Form

	receiptText string
	loading     bool
	err         error
	status      string

	// Form bindings
	formQuantity string
	formCustomer string
	formMethod   string
	formTendered string
}

func NewCheckoutModel(saleSvc *sale.Service, catalogSvc *catalog.Service, actor auth.Actor, storeName string) CheckoutModel {
	columns := []table.Column{
		{Title: "Product", Width: 30},
		{Title: "Price", Width: 10},
		{Title: "Stock", Width: 8},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
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

	return CheckoutModel{
		saleService:    saleSvc,
		catalogService: catalogSvc,
		actor:          actor,
		storeName:      storeName,
		table:          t,
	}
}

func (m CheckoutModel) Title() string { return "Checkout" }
func (m CheckoutModel) ShortHelp() string {
	switch m.state {
	case checkoutStateBrowse:
		return "Esc: back | a: add to cart | c: charge | x: clear cart | r: refresh"
	case checkoutStateDone:
		return "Esc: new sale"
	default:
		return "Navigate form | Esc: cancel"
	}
}

func (m CheckoutModel) Init() tea.Cmd {
	return m.loadProductsCmd()
}

func (m CheckoutModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadProductsMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.products = msg.products
		m.err = nil
		m.refreshTable()
		return m, nil

	case checkoutDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Checkout failed: %v", msg.err)
			m.state = checkoutStateBrowse
			m.form = nil
			m.table.Focus()
			return m, nil
		}
		m.state = checkoutStateDone
		m.form = nil
		m.cart = nil
		m.receiptText = msg.receiptText
		m.status = ""
		return m, m.loadProductsCmd()

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil
	}

	switch m.state {
	case checkoutStateBrowse:
		return m.updateBrowse(msg)
	case checkoutStateQuantity, checkoutStatePay:
		return m.updateForm(msg)
	case checkoutStateDone:
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
			m.state = checkoutStateBrowse
			m.receiptText = ""
			m.table.Focus()
			return m, nil
		}
	}

	return m, nil
}

func (m CheckoutModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadProductsCmd()
		case "a":
			return m.enterQuantity()
		case "x":
			m.cart = nil
			m.status = ""
			return m, nil
		case "c":
			if len(m.cart) == 0 {
				m.status = "Cart is empty"
				return m, nil
			}
			return m.enterPayment()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m CheckoutModel) enterQuantity() (tea.Model, tea.Cmd) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.products) {
		return m, nil
	}

	m.formQuantity = "1"
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("quantity").
				Title(fmt.Sprintf("Quantity of %s", m.products[idx].Name)).
				Value(&m.formQuantity).
				Validate(func(s string) error {
					n, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil || n <= 0 {
						return fmt.Errorf("enter a positive whole number")
					}
					return nil
				}),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = checkoutStateQuantity
	m.table.Blur()
	return m, m.form.Init()
}

func (m CheckoutModel) enterPayment() (tea.Model, tea.Cmd) {
	m.formCustomer = ""
	m.formMethod = string(sale.MethodCash)
	m.formTendered = ""

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("customer").
				Title("Customer name (optional)").
				Value(&m.formCustomer),

			huh.NewSelect[string]().
				Key("method").
				Title("Payment method").
				Options(
					huh.NewOption("Cash", string(sale.MethodCash)),
					huh.NewOption("Card", string(sale.MethodCard)),
					huh.NewOption("Transfer", string(sale.MethodTransfer)),
					huh.NewOption("Mobile wallet", string(sale.MethodMobileWallet)),
				).
				Value(&m.formMethod),

			huh.NewInput().
				Key("tendered").
				Title(fmt.Sprintf("Amount tendered (total %s)", FormatMoney(m.cartTotal()))).
				Value(&m.formTendered).
				Validate(func(s string) error {
					d, err := decimal.NewFromString(strings.TrimSpace(s))
					if err != nil || d.IsNegative() {
						return fmt.Errorf("enter a non-negative amount")
					}
					return nil
				}),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = checkoutStatePay
	m.table.Blur()
	return m, m.form.Init()
}

func (m CheckoutModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyEsc {
			m.state = checkoutStateBrowse
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

	if m.state == checkoutStateQuantity {
		return m.addToCart()
	}

	return m, m.checkoutCmd()
}

func (m CheckoutModel) addToCart() (tea.Model, tea.Cmd) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.products) {
		return m, nil
	}

	quantity, _ := strconv.Atoi(strings.TrimSpace(m.formQuantity))
	product := m.products[idx]

	merged := false
	for i := range m.cart {
		if m.cart[i].product.ID == product.ID {
			m.cart[i].quantity += quantity
			merged = true
			break
		}
	}

	if !merged {
		m.cart = append(m.cart, cartLine{product: product, quantity: quantity})
	}

	m.state = checkoutStateBrowse
	m.form = nil
	m.status = ""
	m.table.Focus()
	return m, nil
}

func (m CheckoutModel) cartTotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range m.cart {
		total = total.Add(line.product.UnitPrice.Mul(decimal.NewFromInt(int64(line.quantity))))
	}
	return total
}

func (m CheckoutModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading products...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	if m.state == checkoutStateDone {
		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Render(m.receiptText)

		return lipgloss.NewStyle().Padding(1).Render(panel + "\n\nEsc: new sale")
	}

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := lipgloss.JoinVertical(lipgloss.Left, tableView, m.cartView())

	if m.form != nil {
		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(48).
			Render(m.form.View())

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m CheckoutModel) cartView() string {
	if len(m.cart) == 0 {
		return lipgloss.NewStyle().Faint(true).Render("Cart is empty")
	}

	var sb strings.Builder
	sb.WriteString("Cart:\n")

	for _, line := range m.cart {
		subtotal := line.product.UnitPrice.Mul(decimal.NewFromInt(int64(line.quantity)))
		fmt.Fprintf(&sb, "  %d x %s @ %s = %s\n",
			line.quantity, line.product.Name,
			FormatMoney(line.product.UnitPrice), FormatMoney(subtotal))
	}

	fmt.Fprintf(&sb, "Total: %s", FormatMoney(m.cartTotal()))

	return sb.String()
}

func (m *CheckoutModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.products))
	for _, p := range m.products {
		rows = append(rows, table.Row{
			p.Name,
			FormatMoney(p.UnitPrice),
			strconv.Itoa(p.StockQuantity),
		})
	}
	m.table.SetRows(rows)
}

// Messages

type loadProductsMsg struct {
	products []*catalog.Product
	err      error
}

func (m CheckoutModel) loadProductsCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		products, err := m.catalogService.List(ctx, true)
		return loadProductsMsg{products: products, err: err}
	}
}

type checkoutDoneMsg struct {
	receiptText string
	err         error
}

func (m CheckoutModel) checkoutCmd() tea.Cmd {
	params := sale.CreateParams{
		CustomerName:  strings.TrimSpace(m.formCustomer),
		PaymentMethod: sale.PaymentMethod(m.formMethod),
		CreatedBy:     &m.actor.ID,
	}

	params.AmountTendered, _ = decimal.NewFromString(strings.TrimSpace(m.formTendered))

	names := make(map[string]*catalog.Product, len(m.cart))
	for _, line := range m.cart {
		params.Lines = append(params.Lines, sale.LineInput{
			ProductID: line.product.ID,
			Quantity:  line.quantity,
		})
		names[line.product.ID.String()] = line.product
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		created, err := m.saleService.CreateSale(ctx, params)
		if err != nil {
			return checkoutDoneMsg{err: err}
		}

		return checkoutDoneMsg{receiptText: receipt.Render(m.storeName, created, names)}
	}
}
