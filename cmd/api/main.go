package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/carvex/warranty/internal/cancellation"
	"github.com/carvex/warranty/internal/claim"
	claimStore "github.com/carvex/warranty/internal/claim/store"
	"github.com/carvex/warranty/internal/config"
	"github.com/carvex/warranty/internal/database"
	"github.com/carvex/warranty/internal/history"
	historyStore "github.com/carvex/warranty/internal/history/store"
	warrantyHttp "github.com/carvex/warranty/internal/http"
	claimHandler "github.com/carvex/warranty/internal/http/claim"
	importHandler "github.com/carvex/warranty/internal/http/importcsv"
	woHandler "github.com/carvex/warranty/internal/http/workorder"
	"github.com/carvex/warranty/internal/importer"
	"github.com/carvex/warranty/internal/workorder"
	woStore "github.com/carvex/warranty/internal/workorder/store"
)

func main() {
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
	defer db.Close()

	var (
		claimService     = claim.NewService(claimStore.New(db))
		cancelService    = cancellation.NewService(claimStore.New(db))
		workOrderService = workorder.NewService(woStore.New(db))
		historyService   = history.NewService(historyStore.New(db))
		importService    = importer.NewService()
	)

	var (
		claimH     = claimHandler.NewHandler(claimService, cancelService, historyService)
		workOrderH = woHandler.NewHandler(workOrderService)
		importH    = importHandler.NewHandler(importService, claimService)
	)

	router := warrantyHttp.New(cfg.Auth.JWTSecret, claimH, workOrderH, importH)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	slog.Info("starting server", "port", port)

	if err := http.ListenAndServe(port, router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
