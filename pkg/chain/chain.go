// Package chain defines the account-model blockchain client the ledger consumes.
package chain

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrConfirmationTimeout is returned when a submitted transaction was not seen
// committed before the wait expired. The transfer may still land.
var ErrConfirmationTimeout = errors.New("timed out waiting for confirmation")

// ErrSubmissionUnknown is returned when a transfer may have reached the node but
// no answer came back. The transfer may still land.
var ErrSubmissionUnknown = errors.New("transfer submission outcome unknown")

// ErrTransactionFailed is returned when the chain committed a transaction that aborted.
var ErrTransactionFailed = errors.New("transaction failed on chain")

// ErrNotFound is returned when the node does not know a transaction or resource.
var ErrNotFound = errors.New("not found on chain")

// Event is one raw event emitted by a committed transaction. Data is kept as raw
// JSON per field so the scanner can decode it strictly.
type Event struct {
	Type           string                     `json:"type"`
	SequenceNumber string                     `json:"sequence_number"`
	Data           map[string]json.RawMessage `json:"data"`
}

// Transaction is a committed transaction as reported by the node.
// Events is nil when the listing did not include them inline.
type Transaction struct {
	Version   uint64    `json:"version"`
	Hash      string    `json:"hash"`
	Success   bool      `json:"success"`
	VMStatus  string    `json:"vm_status"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	Events    []Event   `json:"events"`
}

// CoinInfo is the metadata of a coin type.
type CoinInfo struct {
	CoinType string `json:"coin_type"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// TransferRequest moves Amount base units of CoinType from the treasury to To.
type TransferRequest struct {
	To       string
	Amount   uint64
	CoinType string
}

// Client is the chain client interface.
type Client interface {
	// ListAccountTransactions returns the most recent transactions sent by account, oldest first.
	ListAccountTransactions(ctx context.Context, account string, limit int) ([]Transaction, error)

	// GetTransactionByHash fetches one committed transaction with its events.
	GetTransactionByHash(ctx context.Context, hash string) (*Transaction, error)

	// GetTransactionByVersion fetches one committed transaction with its events.
	GetTransactionByVersion(ctx context.Context, version uint64) (*Transaction, error)

	// GetCoinBalance returns the balance of coinType held by address, in base units.
	GetCoinBalance(ctx context.Context, address, coinType string) (uint64, error)

	// GetCoinInfo returns the symbol and decimals of coinType.
	GetCoinInfo(ctx context.Context, coinType string) (*CoinInfo, error)

	// SubmitTransfer signs and submits a transfer from the treasury and returns its hash.
	// An error wrapping ErrSubmissionUnknown means the node may have accepted it.
	SubmitTransfer(ctx context.Context, req TransferRequest) (string, error)

	// WaitForConfirmation blocks until txHash is committed or timeout elapses.
	WaitForConfirmation(ctx context.Context, txHash string, timeout time.Duration) (*Transaction, error)
}
