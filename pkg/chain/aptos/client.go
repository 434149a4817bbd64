// Package aptos implements chain.Client on top of the Aptos Go SDK node client.
package aptos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	aptossdk "github.com/aptos-labs/aptos-go-sdk"
	aptosapi "github.com/aptos-labs/aptos-go-sdk/api"
	"github.com/chris/stealth-ledger/pkg/chain"
	"golang.org/x/time/rate"
)

// Node is the part of the SDK node client this package uses.
type Node interface {
	AccountTransactions(account aptossdk.AccountAddress, start *uint64, limit *uint64) ([]*aptosapi.CommittedTransaction, error)
	TransactionByHash(txnHash string) (*aptosapi.Transaction, error)
	TransactionByVersion(version uint64) (*aptosapi.CommittedTransaction, error)
	AccountResource(address aptossdk.AccountAddress, resourceType string, ledgerVersion ...uint64) (map[string]any, error)
	View(payload *aptossdk.ViewPayload, ledgerVersion ...uint64) ([]any, error)
	BuildTransaction(sender aptossdk.AccountAddress, payload aptossdk.TransactionPayload, options ...any) (*aptossdk.RawTransaction, error)
	SubmitTransaction(signed *aptossdk.SignedTransaction) (*aptosapi.SubmitTransactionResponse, error)
	WaitForTransaction(txnHash string, options ...any) (*aptosapi.UserTransaction, error)
}

// Config holds the node connection settings.
type Config struct {
	BaseURL      string
	ChainID      uint8
	APIKey       string
	RateLimit    float64
	MaxRetries   int
	RetryDelay   time.Duration
	HTTPTimeout  time.Duration
	PollInterval time.Duration
}

// Client provides rate limited, retried access to a fullnode.
type Client struct {
	node         Node
	limiter      *rate.Limiter
	maxRetries   int
	retryDelay   time.Duration
	pollInterval time.Duration
	signer       *Signer
	logger       *slog.Logger
}

// NewClient connects an SDK node client to cfg.BaseURL. signer may be nil for
// read-only use.
func NewClient(cfg Config, signer *Signer, logger *slog.Logger) (*Client, error) {
	node, err := aptossdk.NewNodeClient(cfg.BaseURL, cfg.ChainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create node client: %w", err)
	}
	if cfg.HTTPTimeout > 0 {
		node.SetTimeout(cfg.HTTPTimeout)
	}
	if cfg.APIKey != "" {
		node.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	return NewClientWithNode(node, cfg, signer, logger), nil
}

// NewClientWithNode wraps an existing node client.
func NewClientWithNode(node Node, cfg Config, signer *Signer, logger *slog.Logger) *Client {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 4
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Client{
		node:         node,
		limiter:      rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
		pollInterval: cfg.PollInterval,
		signer:       signer,
		logger:       logger,
	}
}

// Make sure we conform to the interface
var _ chain.Client = (*Client)(nil)

// TreasuryAddress is the address transfers are sent from, or "" when read-only.
func (c *Client) TreasuryAddress() string {
	if c.signer == nil {
		return ""
	}
	return c.signer.Address
}

func parseAddress(s string) (aptossdk.AccountAddress, error) {
	var addr aptossdk.AccountAddress
	if err := addr.ParseStringRelaxed(s); err != nil {
		return addr, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return addr, nil
}

func fromUserTransaction(ut *aptosapi.UserTransaction) (chain.Transaction, error) {
	tx := chain.Transaction{
		Version:   ut.Version,
		Hash:      ut.Hash,
		Success:   ut.Success,
		VMStatus:  ut.VmStatus,
		Timestamp: time.UnixMicro(int64(ut.Timestamp)).UTC(),
	}
	if ut.Sender != nil {
		tx.Sender = ut.Sender.String()
	}
	if ut.Events == nil {
		return tx, nil
	}
	tx.Events = make([]chain.Event, 0, len(ut.Events))
	for i, e := range ut.Events {
		data := make(map[string]json.RawMessage, len(e.Data))
		for k, v := range e.Data {
			raw, err := json.Marshal(v)
			if err != nil {
				return chain.Transaction{}, fmt.Errorf("event %d of %s: field %s: %w", i, ut.Hash, k, err)
			}
			data[k] = raw
		}
		tx.Events = append(tx.Events, chain.Event{
			Type:           e.Type,
			SequenceNumber: strconv.FormatUint(e.SequenceNumber, 10),
			Data:           data,
		})
	}
	return tx, nil
}

// ListAccountTransactions returns the latest transactions sent by account.
func (c *Client) ListAccountTransactions(ctx context.Context, account string, limit int) ([]chain.Transaction, error) {
	addr, err := parseAddress(account)
	if err != nil {
		return nil, err
	}
	n := uint64(limit)

	var committed []*aptosapi.CommittedTransaction
	err = c.read(ctx, func() error {
		var err error
		committed, err = c.node.AccountTransactions(addr, nil, &n)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for %s: %w", account, err)
	}

	txs := make([]chain.Transaction, 0, len(committed))
	for _, ct := range committed {
		ut, err := ct.UserTransaction()
		if err != nil {
			continue
		}
		tx, err := fromUserTransaction(ut)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// GetTransactionByHash fetches a committed transaction. A pending transaction is reported as chain.ErrNotFound.
func (c *Client) GetTransactionByHash(ctx context.Context, hash string) (*chain.Transaction, error) {
	var found *aptosapi.Transaction
	err := c.read(ctx, func() error {
		var err error
		found, err = c.node.TransactionByHash(hash)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", hash, err)
	}
	if found.Type == aptosapi.TransactionVariantPending {
		return nil, fmt.Errorf("transaction %s is pending: %w", hash, chain.ErrNotFound)
	}
	ut, err := found.UserTransaction()
	if err != nil {
		return nil, fmt.Errorf("transaction %s is not a user transaction: %w", hash, err)
	}
	tx, err := fromUserTransaction(ut)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// GetTransactionByVersion fetches a committed transaction by ledger version.
func (c *Client) GetTransactionByVersion(ctx context.Context, version uint64) (*chain.Transaction, error) {
	var found *aptosapi.CommittedTransaction
	err := c.read(ctx, func() error {
		var err error
		found, err = c.node.TransactionByVersion(version)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction at version %d: %w", version, err)
	}
	ut, err := found.UserTransaction()
	if err != nil {
		return nil, fmt.Errorf("transaction at version %d is not a user transaction: %w", version, err)
	}
	tx, err := fromUserTransaction(ut)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// coinTypeTag parses a struct coin type such as 0x1::aptos_coin::AptosCoin.
func coinTypeTag(coinType string) (*aptossdk.TypeTag, error) {
	parts := strings.Split(coinType, "::")
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return nil, fmt.Errorf("invalid coin type %q", coinType)
	}
	addr, err := parseAddress(parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid coin type %q: %w", coinType, err)
	}
	return &aptossdk.TypeTag{Value: &aptossdk.StructTag{
		Address: addr,
		Module:  parts[1],
		Name:    parts[2],
	}}, nil
}

// GetCoinBalance calls the 0x1::coin::balance view function, which also counts
// the paired fungible asset store.
func (c *Client) GetCoinBalance(ctx context.Context, address, coinType string) (uint64, error) {
	addr, err := parseAddress(address)
	if err != nil {
		return 0, err
	}
	tag, err := coinTypeTag(coinType)
	if err != nil {
		return 0, err
	}

	var out []any
	err = c.read(ctx, func() error {
		var err error
		out, err = c.node.View(&aptossdk.ViewPayload{
			Module:   aptossdk.ModuleId{Address: aptossdk.AccountOne, Name: "coin"},
			Function: "balance",
			ArgTypes: []aptossdk.TypeTag{*tag},
			Args:     [][]byte{addr[:]},
		})
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get %s balance of %s: %w", coinType, address, err)
	}
	if len(out) == 0 {
		return 0, fmt.Errorf("empty balance response for %s", address)
	}
	value, err := uintOf(out[0])
	if err != nil {
		return 0, fmt.Errorf("invalid coin balance: %w", err)
	}
	return value, nil
}

// GetCoinInfo reads the CoinInfo resource published at the coin type's address.
func (c *Client) GetCoinInfo(ctx context.Context, coinType string) (*chain.CoinInfo, error) {
	if _, err := coinTypeTag(coinType); err != nil {
		return nil, err
	}
	publisher, _, _ := strings.Cut(coinType, "::")
	addr, err := parseAddress(publisher)
	if err != nil {
		return nil, err
	}

	var resource map[string]any
	err = c.read(ctx, func() error {
		var err error
		resource, err = c.node.AccountResource(addr, fmt.Sprintf("0x1::coin::CoinInfo<%s>", coinType))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get coin info for %s: %w", coinType, err)
	}

	data, _ := resource["data"].(map[string]any)
	decimals, err := uintOf(data["decimals"])
	if err != nil || decimals > 255 {
		return nil, fmt.Errorf("invalid decimals for %s: %v", coinType, data["decimals"])
	}
	name, _ := data["name"].(string)
	symbol, _ := data["symbol"].(string)

	return &chain.CoinInfo{
		CoinType: coinType,
		Name:     name,
		Symbol:   symbol,
		Decimals: uint8(decimals),
	}, nil
}

// uintOf reads a Move integer returned as a JSON number or string.
func uintOf(v any) (uint64, error) {
	switch n := v.(type) {
	case string:
		return strconv.ParseUint(n, 10, 64)
	case float64:
		if n < 0 || n != float64(uint64(n)) {
			return 0, fmt.Errorf("not an unsigned integer: %v", n)
		}
		return uint64(n), nil
	case json.Number:
		return strconv.ParseUint(n.String(), 10, 64)
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

// WaitForConfirmation waits until txHash is committed. Anything short of a
// committed transaction within timeout is reported as chain.ErrConfirmationTimeout.
func (c *Client) WaitForConfirmation(ctx context.Context, txHash string, timeout time.Duration) (*chain.Transaction, error) {
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		timeout = time.Until(deadline)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", chain.ErrConfirmationTimeout, txHash, err)
	}

	ut, err := c.node.WaitForTransaction(txHash, aptossdk.PollPeriod(c.pollInterval), aptossdk.PollTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", chain.ErrConfirmationTimeout, txHash, err)
	}
	tx, err := fromUserTransaction(ut)
	if err != nil {
		return nil, err
	}
	if !tx.Success {
		return &tx, fmt.Errorf("%w: %s", chain.ErrTransactionFailed, tx.VMStatus)
	}
	return &tx, nil
}

func statusOf(err error) int {
	var httpErr *aptossdk.HttpError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// retryable reports transport errors, 429 and 5xx.
func retryable(err error) bool {
	status := statusOf(err)
	return status == 0 || status == http.StatusTooManyRequests || status >= 500
}

// read runs an idempotent node call with rate limiting and retries. A 404 is
// reported as chain.ErrNotFound.
func (c *Client) read(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}
		if werr := c.limiter.Wait(ctx); werr != nil {
			return fmt.Errorf("rate limit error: %w", werr)
		}
		err = fn()
		if err == nil || !retryable(err) {
			break
		}
	}
	if statusOf(err) == http.StatusNotFound {
		return fmt.Errorf("%w: %v", chain.ErrNotFound, err)
	}
	return err
}
