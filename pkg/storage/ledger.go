package storage

import (
	"context"
	"time"

	"github.com/chris/stealth-ledger/pkg/models"
)

// PaymentStore defines the interface for stealth payment records.
type PaymentStore interface {
	// InsertPayment creates a payment row, failing with ErrAlreadyExists if one exists for its TxHash.
	InsertPayment(ctx context.Context, payment *models.StealthPayment) error

	// GetPaymentByTxHash retrieves a payment by the hash of the transaction that carried it.
	GetPaymentByTxHash(ctx context.Context, txHash string) (*models.StealthPayment, error)

	// ListUncreditedPayments retrieves payments whose credit has not landed and that are older than minAge.
	ListUncreditedPayments(ctx context.Context, minAge time.Duration) ([]models.StealthPayment, error)
}

// BalanceReader defines the interface for reading balances and the ledger.
type BalanceReader interface {
	// GetBalance retrieves the balance row for a user and token.
	GetBalance(ctx context.Context, userID, tokenAddress string) (*models.UserBalance, error)

	// ListBalances retrieves every balance row of a user.
	ListBalances(ctx context.Context, userID string) ([]models.UserBalance, error)

	// ListBalanceTransactions retrieves a user's most recent ledger entries across all tokens, newest first.
	ListBalanceTransactions(ctx context.Context, userID string, limit int32) ([]models.BalanceTransaction, error)

	// ListAccountEntries retrieves every ledger entry of one account in sequence order.
	ListAccountEntries(ctx context.Context, userID, tokenAddress string) ([]models.BalanceTransaction, error)
}

// Credit is one atomic deposit: the new balance state, its ledger entry and the
// payment flag flip. ExpectedVersion 0 means the balance row does not exist yet.
type Credit struct {
	PaymentTxHash   string
	ExpectedVersion int64
	Balance         *models.UserBalance
	Entry           *models.BalanceTransaction
}

// Debit is one atomic withdrawal debit that consumes a previously placed hold.
type Debit struct {
	WithdrawalID    string
	ExpectedVersion int64
	Balance         *models.UserBalance
	Entry           *models.BalanceTransaction
}

// LedgerWriter defines the privileged interface for moving balances.
// Every method is atomic across all the rows it touches.
type LedgerWriter interface {
	// CreditPayment applies a Credit. It fails with ErrVersionConflict if the balance
	// changed since it was read and ErrAlreadyCredited if the payment flag was already set.
	CreditPayment(ctx context.Context, credit Credit) error

	// HoldFunds lowers Available by amount if at least amount is available, otherwise ErrInsufficientFunds.
	HoldFunds(ctx context.Context, userID, tokenAddress string, amount uint64) error

	// ReleaseHold returns a previously held amount to Available.
	ReleaseHold(ctx context.Context, userID, tokenAddress string, amount uint64) error

	// DebitWithdrawal applies a Debit and marks the withdrawal DEBITED.
	DebitWithdrawal(ctx context.Context, debit Debit) error
}
