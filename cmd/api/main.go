package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jvillar/tienda/internal/audit"
	auditStore "github.com/jvillar/tienda/internal/audit/store"
	"github.com/jvillar/tienda/internal/auth"
	"github.com/jvillar/tienda/internal/catalog"
	catalogStore "github.com/jvillar/tienda/internal/catalog/store"
	"github.com/jvillar/tienda/internal/config"
	"github.com/jvillar/tienda/internal/database"
	tiendaHttp "github.com/jvillar/tienda/internal/http"
	catalogHandler "github.com/jvillar/tienda/internal/http/catalog"
	saleHandler "github.com/jvillar/tienda/internal/http/sale"
	"github.com/jvillar/tienda/internal/sale"
	saleStore "github.com/jvillar/tienda/internal/sale/store"
)

func main() {
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
	defer db.Close()

	gate := auth.NewRoleGate()

	var (
		auditService   = audit.NewService(auditStore.New(db))
		catalogService = catalog.NewService(catalogStore.New(db))
		saleService    = sale.NewService(saleStore.New(db), gate, auditService, sale.Policy{
			VoidWindow:      cfg.VoidWindow(),
			MinReasonLen:    cfg.Void.MinReasonLen,
			DefaultSellerID: cfg.Auth.DefaultSellerID,
		})
	)

	var (
		salesH   = saleHandler.NewHandler(saleService, catalogService, gate, cfg.App.Name)
		catalogH = catalogHandler.NewHandler(catalogService, gate)
	)

	router := tiendaHttp.New(cfg.Auth.JWTSecret, salesH, catalogH)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	slog.Info("starting server", "port", port)

	if err := http.ListenAndServe(port, router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
