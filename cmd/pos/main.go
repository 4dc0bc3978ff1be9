package main

import (
	"context"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/jvillar/tienda/cmd/pos/internal/view"
	"github.com/jvillar/tienda/internal/audit"
	auditStore "github.com/jvillar/tienda/internal/audit/store"
	"github.com/jvillar/tienda/internal/auth"
	"github.com/jvillar/tienda/internal/catalog"
	catalogStore "github.com/jvillar/tienda/internal/catalog/store"
	"github.com/jvillar/tienda/internal/config"
	"github.com/jvillar/tienda/internal/database"
	"github.com/jvillar/tienda/internal/sale"
	saleStore "github.com/jvillar/tienda/internal/sale/store"
)

type model struct {
	saleService    *sale.Service
	catalogService *catalog.Service
	actor          auth.Actor
	storeName      string

	currentView View

	checkoutView view.CheckoutModel
	salesView    view.SalesModel
}

type View int

const (
	ViewMenu     View = 0
	ViewCheckout View = 1
	ViewSales    View = 2
)

func initialModel() model {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(context.Background(), cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	gate := auth.NewRoleGate()

	auditSvc := audit.NewService(auditStore.New(db))
	catalogSvc := catalog.NewService(catalogStore.New(db))
	saleSvc := sale.NewService(saleStore.New(db), gate, auditSvc, sale.Policy{
		VoidWindow:      cfg.VoidWindow(),
		MinReasonLen:    cfg.Void.MinReasonLen,
		DefaultSellerID: cfg.Auth.DefaultSellerID,
	})

	// The terminal is the counter: whoever runs it acts as the configured
	// seller account.
	actor := auth.Actor{ID: cfg.Auth.DefaultSellerID, Name: "counter", Role: auth.RoleSeller}

	return model{
		saleService:    saleSvc,
		catalogService: catalogSvc,
		actor:          actor,
		storeName:      cfg.App.Name,
		currentView:    ViewMenu,
		checkoutView:   view.NewCheckoutModel(saleSvc, catalogSvc, actor, cfg.App.Name),
		salesView:      view.NewSalesModel(saleSvc, catalogSvc, actor, cfg.App.Name),
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
				m.currentView = ViewCheckout
				m.checkoutView = view.NewCheckoutModel(m.saleService, m.catalogService, m.actor, m.storeName)

				return m, m.checkoutView.Init()
			case "2":
				m.currentView = ViewSales
				m.salesView = view.NewSalesModel(m.saleService, m.catalogService, m.actor, m.storeName)

				return m, m.salesView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewCheckout:
		var newModel tea.Model
		newModel, cmd = m.checkoutView.Update(msg)
		m.checkoutView = newModel.(view.CheckoutModel)
	case ViewSales:
		var newModel tea.Model
		newModel, cmd = m.salesView.Update(msg)
		m.salesView = newModel.(view.SalesModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			m.storeName + " POS\n\n" +
				"1. Checkout\n" +
				"2. Sales\n\n" +
				"q. Quit",
		)
	case ViewCheckout:
		return m.checkoutView.View()
	case ViewSales:
		return m.salesView.View()
	}

	return "Unknown View"
}

func main() {
	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run POS", "error", err)
		os.Exit(1)
	}
}
