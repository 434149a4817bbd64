package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/chris/stealth-ledger/pkg/bootstrap"
	"github.com/chris/stealth-ledger/pkg/chain/aptos"
	"github.com/chris/stealth-ledger/pkg/config"
	"github.com/chris/stealth-ledger/pkg/ledger"
	"github.com/chris/stealth-ledger/pkg/logging"
	"github.com/chris/stealth-ledger/pkg/notify"
	"github.com/chris/stealth-ledger/pkg/reconcile"
	"github.com/chris/stealth-ledger/pkg/storage"
	"github.com/chris/stealth-ledger/pkg/withdrawal"
)

var (
	store  storage.Storage
	client *aptos.Client
	cfg    *config.Config
	logger *slog.Logger
)

func init() {
	cfg = config.Load()
	logger = logging.New(cfg.LogLevel, cfg.LogJSON)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	var err error
	store, err = bootstrap.NewStore(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to create store", "error", err)
		os.Exit(1)
	}
	client, err = bootstrap.NewChainClient(cfg, logger)
	if err != nil {
		logger.Error("failed to create chain client", "error", err)
		os.Exit(1)
	}
}

// HandleRequest is triggered by an EventBridge Schedule.
func HandleRequest(ctx context.Context) (*reconcile.Report, error) {
	logger.InfoContext(ctx, "starting reconciliation", "min_age", cfg.ReconcileMinAge)

	// Publish synchronously and release the notifier before returning: the
	// execution environment may freeze right after the invocation.
	var report *reconcile.Report
	err := bootstrap.WithPublisher(ctx, cfg, func(notifier notify.Notifier) error {
		ledgerSvc := ledger.NewService(store, notifier, logger)
		withdrawalSvc := withdrawal.NewService(store, ledgerSvc, client, client.TreasuryAddress(), cfg.WithdrawalConfirmTimeout, logger)

		var err error
		report, err = reconcile.New(store, ledgerSvc, withdrawalSvc, client, logger).Run(ctx, cfg.ReconcileMinAge)
		return err
	})
	if err != nil {
		logger.ErrorContext(ctx, "reconciliation failed", "error", err)
		return nil, err
	}

	logger.InfoContext(ctx, "reconciliation finished",
		"credited", report.Credited,
		"already_credited", report.AlreadyCredited,
		"credit_failed", report.CreditFailed,
		"stuck_withdrawals", len(report.Stuck),
	)
	return report, nil
}

func main() {
	lambda.Start(HandleRequest)
}
