// Package bootstrap builds the dependencies shared by the server and the lambdas
// from a loaded config.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/chris/stealth-ledger/pkg/chain/aptos"
	"github.com/chris/stealth-ledger/pkg/config"
	"github.com/chris/stealth-ledger/pkg/notify"
	"github.com/chris/stealth-ledger/pkg/storage"
	dydbstore "github.com/chris/stealth-ledger/pkg/storage/dynamodb"
	"github.com/chris/stealth-ledger/pkg/storage/memory"
)

// NewStore returns the configured storage backend.
func NewStore(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.StorageBackend {
	case config.StorageMemory:
		return memory.New(), nil
	case config.StorageDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("unable to load SDK config: %w", err)
		}
		return dydbstore.New(dynamodb.NewFromConfig(awsCfg), dydbstore.Tables{
			Payments:            cfg.Tables.Payments,
			Balances:            cfg.Tables.Balances,
			BalanceTransactions: cfg.Tables.BalanceTransactions,
			Withdrawals:         cfg.Tables.Withdrawals,
			Assets:              cfg.Tables.Assets,
			Holdings:            cfg.Tables.Holdings,
			AssetTransactions:   cfg.Tables.AssetTransactions,
			Attributions:        cfg.Tables.Attributions,
		}), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// NewChainClient returns a fullnode client. It can submit transfers only when a
// treasury key is configured; a configured treasury address must match the key.
func NewChainClient(cfg *config.Config, logger *slog.Logger) (*aptos.Client, error) {
	var signer *aptos.Signer
	if cfg.Treasury.PrivateKey != "" {
		s, err := aptos.NewSigner(cfg.Treasury.PrivateKey)
		if err != nil {
			return nil, err
		}
		if cfg.Treasury.Address != "" && !strings.EqualFold(cfg.Treasury.Address, s.Address) {
			return nil, fmt.Errorf("TREASURY_ADDRESS %s does not match the treasury key (%s)", cfg.Treasury.Address, s.Address)
		}
		signer = s
	} else {
		logger.Warn("no treasury key configured, withdrawals will fail")
	}

	return aptos.NewClient(aptos.Config{
		BaseURL:      cfg.Chain.NodeURL,
		ChainID:      uint8(cfg.Chain.ChainID),
		APIKey:       cfg.Chain.APIKey,
		RateLimit:    cfg.Chain.RateLimit,
		MaxRetries:   cfg.Chain.MaxRetries,
		RetryDelay:   cfg.Chain.RetryDelay,
		HTTPTimeout:  cfg.Chain.HTTPTimeout,
		PollInterval: cfg.Chain.PollInterval,
	}, signer, logger)
}

// NewPublisher returns the configured notifier backend, publishing synchronously,
// and a func that releases it.
func NewPublisher(ctx context.Context, cfg *config.Config) (notify.Notifier, func() error, error) {
	switch cfg.Notify.Backend {
	case config.NotifyNone:
		return notify.Noop{}, func() error { return nil }, nil
	case config.NotifySQS:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to load SDK config: %w", err)
		}
		return notify.NewSQSNotifier(sqs.NewFromConfig(awsCfg), cfg.Notify.SQSQueueURL), func() error { return nil }, nil
	case config.NotifyKafka:
		k := notify.NewKafkaNotifier(cfg.Notify.KafkaBroker, cfg.Notify.KafkaTopic)
		return k, k.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown notify backend %q", cfg.Notify.Backend)
	}
}

// WithPublisher runs fn with a synchronous notifier and releases the notifier when
// fn returns. fn's error wins over a release error.
func WithPublisher(ctx context.Context, cfg *config.Config, fn func(notify.Notifier) error) (err error) {
	notifier, release, err := NewPublisher(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := release(); rerr != nil && err == nil {
			err = fmt.Errorf("failed to release notifier: %w", rerr)
		}
	}()
	return fn(notifier)
}

// NewNotifier returns the configured notifier behind a non-blocking queue, and a
// func that drains the queue on shutdown.
func NewNotifier(ctx context.Context, cfg *config.Config, logger *slog.Logger) (notify.Notifier, func(context.Context) error, error) {
	next, release, err := NewPublisher(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if _, ok := next.(notify.Noop); ok {
		return next, func(context.Context) error { return nil }, nil
	}

	async := notify.NewAsync(next, cfg.Notify.Buffer, logger)
	shutdown := func(ctx context.Context) error {
		return errors.Join(async.Close(ctx), release())
	}
	return async, shutdown, nil
}
