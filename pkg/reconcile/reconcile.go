// Package reconcile finds ledger work that did not complete in the request path:
// recorded payments whose credit failed, and withdrawals that stopped between
// submission and debit.
//
// Payments are credited again, which is safe because a payment is credited at
// most once. Withdrawals are only reported with their on-chain state; a transfer
// is never resubmitted and a debit is never applied without an operator.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chris/stealth-ledger/pkg/chain"
	"github.com/chris/stealth-ledger/pkg/ledger"
	"github.com/chris/stealth-ledger/pkg/models"
)

// Chain states reported for a stuck withdrawal.
const (
	ChainSucceeded    = "SUCCEEDED"
	ChainFailed       = "FAILED"
	ChainNotFound     = "NOT_FOUND"
	ChainUnknown      = "UNKNOWN"
	ChainNotSubmitted = "NOT_SUBMITTED"
)

// PaymentLister lists payments whose credit has not landed.
type PaymentLister interface {
	ListUncreditedPayments(ctx context.Context, minAge time.Duration) ([]models.StealthPayment, error)
}

// Crediter retries the credit of a recorded payment.
type Crediter interface {
	CreditPayment(ctx context.Context, txHash string) (*ledger.RecordResult, error)
}

// WithdrawalLister lists withdrawals that need an operator.
type WithdrawalLister interface {
	Stuck(ctx context.Context, minAge time.Duration) ([]models.Withdrawal, error)
}

// TxReader looks up a transaction on chain.
type TxReader interface {
	GetTransactionByHash(ctx context.Context, hash string) (*chain.Transaction, error)
}

// Reconciler runs one reconciliation pass.
type Reconciler struct {
	payments    PaymentLister
	ledger      Crediter
	withdrawals WithdrawalLister
	chain       TxReader
	logger      *slog.Logger
}

// New creates a Reconciler.
func New(payments PaymentLister, ledger Crediter, withdrawals WithdrawalLister, chain TxReader, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		payments:    payments,
		ledger:      ledger,
		withdrawals: withdrawals,
		chain:       chain,
		logger:      logger,
	}
}

// StuckWithdrawal is a withdrawal an operator has to resolve.
type StuckWithdrawal struct {
	WithdrawalID string `json:"withdrawal_id"`
	UserID       string `json:"user_id"`
	Status       string `json:"status"`
	TxHash       string `json:"tx_hash,omitempty"`
	ChainState   string `json:"chain_state"`
	Amount       uint64 `json:"amount"`
}

// Report summarizes a pass.
type Report struct {
	Credited        int               `json:"credited"`
	AlreadyCredited int               `json:"already_credited"`
	CreditFailed    int               `json:"credit_failed"`
	Stuck           []StuckWithdrawal `json:"stuck"`
}

// Run credits stranded payments and reports stuck withdrawals older than minAge.
// A single failing payment or lookup does not stop the pass.
func (r *Reconciler) Run(ctx context.Context, minAge time.Duration) (*Report, error) {
	report := &Report{Stuck: []StuckWithdrawal{}}

	pending, err := r.payments.ListUncreditedPayments(ctx, minAge)
	if err != nil {
		return nil, fmt.Errorf("failed to list uncredited payments: %w", err)
	}
	for _, p := range pending {
		res, err := r.ledger.CreditPayment(ctx, p.TxHash)
		switch {
		case err != nil:
			report.CreditFailed++
			r.logger.ErrorContext(ctx, "credit retry failed", "tx_hash", p.TxHash, "user_id", p.UserID, "error", err)
		case res.AlreadyCredited:
			report.AlreadyCredited++
		default:
			report.Credited++
			r.logger.InfoContext(ctx, "stranded payment credited", "tx_hash", p.TxHash, "payment_id", res.PaymentID)
		}
	}

	stuck, err := r.withdrawals.Stuck(ctx, minAge)
	if err != nil {
		return nil, fmt.Errorf("failed to list stuck withdrawals: %w", err)
	}
	for _, w := range stuck {
		entry := StuckWithdrawal{
			WithdrawalID: w.ID,
			UserID:       w.UserID,
			Status:       string(w.Status),
			TxHash:       w.TxHash,
			Amount:       w.Amount,
			ChainState:   r.chainState(ctx, w.TxHash),
		}
		r.logger.WarnContext(ctx, "withdrawal needs an operator",
			"withdrawal_id", entry.WithdrawalID,
			"status", entry.Status,
			"tx_hash", entry.TxHash,
			"chain_state", entry.ChainState,
		)
		report.Stuck = append(report.Stuck, entry)
	}

	return report, nil
}

func (r *Reconciler) chainState(ctx context.Context, txHash string) string {
	if txHash == "" {
		return ChainNotSubmitted
	}
	tx, err := r.chain.GetTransactionByHash(ctx, txHash)
	switch {
	case errors.Is(err, chain.ErrNotFound):
		return ChainNotFound
	case err != nil:
		r.logger.WarnContext(ctx, "failed to look up transfer", "tx_hash", txHash, "error", err)
		return ChainUnknown
	case tx.Success:
		return ChainSucceeded
	default:
		return ChainFailed
	}
}
