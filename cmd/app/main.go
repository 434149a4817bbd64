package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chris/stealth-ledger/pkg/bootstrap"
	"github.com/chris/stealth-ledger/pkg/config"
	"github.com/chris/stealth-ledger/pkg/handlers"
	"github.com/chris/stealth-ledger/pkg/handlers/assets"
	"github.com/chris/stealth-ledger/pkg/handlers/balances"
	"github.com/chris/stealth-ledger/pkg/handlers/payments"
	"github.com/chris/stealth-ledger/pkg/handlers/withdrawals"
	"github.com/chris/stealth-ledger/pkg/ingest"
	"github.com/chris/stealth-ledger/pkg/inventory"
	"github.com/chris/stealth-ledger/pkg/ledger"
	"github.com/chris/stealth-ledger/pkg/logging"
	"github.com/chris/stealth-ledger/pkg/resolver"
	"github.com/chris/stealth-ledger/pkg/scanner"
	"github.com/chris/stealth-ledger/pkg/withdrawal"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogJSON)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := bootstrap.NewStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to create store", "error", err)
		os.Exit(1)
	}

	client, err := bootstrap.NewChainClient(cfg, logger)
	if err != nil {
		logger.Error("failed to create chain client", "error", err)
		os.Exit(1)
	}

	notifier, closeNotifier, err := bootstrap.NewNotifier(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to create notifier", "error", err)
		os.Exit(1)
	}

	ledgerSvc := ledger.NewService(store, notifier, logger)
	withdrawalSvc := withdrawal.NewService(store, ledgerSvc, client, client.TreasuryAddress(), cfg.WithdrawalConfirmTimeout, logger)
	inventorySvc := inventory.NewService(store, store, notifier, logger)
	pipeline := ingest.New(
		scanner.New(client, cfg.Stealth.ModuleAccount, cfg.Stealth.EventType, logger),
		resolver.New(nil, logger),
		ledgerSvc,
		client,
		logger,
	)

	handler := handlers.NewApiHandler(
		payments.NewPaymentsHandler(ledgerSvc, pipeline),
		balances.NewBalancesHandler(ledgerSvc),
		withdrawals.NewWithdrawalsHandler(withdrawalSvc),
		assets.NewAssetsHandler(inventorySvc),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handlers.NewRouter(handler, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.HTTPPort, "storage", cfg.StorageBackend, "notify", cfg.Notify.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	if err := closeNotifier(shutdownCtx); err != nil {
		logger.Error("failed to drain notifications", "error", err)
	}
}
