package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/chris/stealth-ledger/pkg/attribution"
	"github.com/chris/stealth-ledger/pkg/bootstrap"
	"github.com/chris/stealth-ledger/pkg/config"
	"github.com/chris/stealth-ledger/pkg/logging"
)

var consumer *attribution.Consumer

func init() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogJSON)

	if err := cfg.Tables.Validate(); err != nil && cfg.StorageBackend == config.StorageDynamoDB {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	store, err := bootstrap.NewStore(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to create store", "error", err)
		os.Exit(1)
	}
	consumer = attribution.NewConsumer(store, logger)
}

func main() {
	// The SQS event source mapping must enable ReportBatchItemFailures.
	lambda.Start(consumer.HandleSQS)
}
