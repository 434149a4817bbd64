// Package withdrawal sequences on-chain withdrawals against the internal ledger.
//
// A withdrawal moves REQUESTED -> BALANCE_CHECKED -> SUBMITTED -> CONFIRMED -> DEBITED.
// Funds are held before the transfer is submitted and the balance is only debited
// once the chain confirms it. A transfer is never resubmitted.
package withdrawal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chris/stealth-ledger/pkg/apperrors"
	"github.com/chris/stealth-ledger/pkg/chain"
	"github.com/chris/stealth-ledger/pkg/models"
	"github.com/chris/stealth-ledger/pkg/storage"
	"github.com/google/uuid"
)

// Chain is the subset of chain.Client used to move funds.
type Chain interface {
	GetCoinBalance(ctx context.Context, address, coinType string) (uint64, error)
	SubmitTransfer(ctx context.Context, req chain.TransferRequest) (string, error)
	WaitForConfirmation(ctx context.Context, txHash string, timeout time.Duration) (*chain.Transaction, error)
}

// Ledger is the balance side of a withdrawal.
type Ledger interface {
	HoldFunds(ctx context.Context, userID, tokenAddress string, amount uint64) error
	ReleaseHold(ctx context.Context, userID, tokenAddress string, amount uint64) error
	DebitWithdrawal(ctx context.Context, w *models.Withdrawal) (*models.BalanceTransaction, error)
}

// Service is the withdrawal sequencer.
type Service struct {
	store          storage.WithdrawalStore
	ledger         Ledger
	chain          Chain
	treasury       string
	confirmTimeout time.Duration
	logger         *slog.Logger
	now            func() time.Time
}

// NewService creates a new withdrawal Service. treasury is the address transfers
// are sent from; when empty its balance is not checked before a withdrawal.
func NewService(store storage.WithdrawalStore, ledger Ledger, client Chain, treasury string, confirmTimeout time.Duration, logger *slog.Logger) *Service {
	return &Service{
		store:          store,
		ledger:         ledger,
		chain:          client,
		treasury:       treasury,
		confirmTimeout: confirmTimeout,
		logger:         logger,
		now:            time.Now,
	}
}

// WithdrawInput is a request to send Amount of TokenAddress to Destination.
type WithdrawInput struct {
	UserID       string
	Destination  string
	TokenAddress string
	Amount       uint64
}

func (in WithdrawInput) validate() error {
	switch {
	case in.UserID == "":
		return apperrors.Validation("user id is required")
	case !strings.HasPrefix(in.Destination, "0x") || len(in.Destination) < 3:
		return apperrors.Validation("destination must be a 0x-prefixed address")
	case in.TokenAddress == "":
		return apperrors.Validation("token address is required")
	case in.Amount == 0:
		return apperrors.Validation("amount must be greater than zero")
	}
	return nil
}

// Result describes a completed withdrawal.
type Result struct {
	Withdrawal *models.Withdrawal
	Entry      *models.BalanceTransaction
}

// Withdraw runs a withdrawal to completion or to a persisted failure state.
//
// Once funds are held the remaining steps run detached from ctx: a caller that
// goes away must not strand the hold or leave the status behind the chain.
func (s *Service) Withdraw(ctx context.Context, in WithdrawInput) (*Result, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.checkTreasury(ctx, in); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	w := &models.Withdrawal{
		ID:           uuid.NewString(),
		UserID:       in.UserID,
		Destination:  in.Destination,
		TokenAddress: in.TokenAddress,
		Amount:       in.Amount,
		Status:       models.WithdrawalRequested,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateWithdrawal(ctx, w); err != nil {
		return nil, apperrors.Upstream(err, "failed to create withdrawal")
	}
	logger := s.logger.With("withdrawal_id", w.ID, "user_id", w.UserID, "amount", w.Amount)

	// Balance check: the hold fails unless the available balance covers the amount.
	if err := s.ledger.HoldFunds(ctx, w.UserID, w.TokenAddress, w.Amount); err != nil {
		s.transition(context.WithoutCancel(ctx), w, models.WithdrawalFailed, err.Error())
		logger.InfoContext(ctx, "withdrawal rejected", "error", err)
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)
	s.transition(ctx, w, models.WithdrawalBalanceChecked, "")

	txHash, err := s.chain.SubmitTransfer(ctx, chain.TransferRequest{
		To:       w.Destination,
		Amount:   w.Amount,
		CoinType: w.TokenAddress,
	})
	if errors.Is(err, chain.ErrSubmissionUnknown) {
		// The node may have the transfer, so the hold stays in place.
		s.transition(ctx, w, models.WithdrawalSubmissionUnknown, err.Error())
		logger.ErrorContext(ctx, "transfer submission outcome unknown", "error", err)
		return nil, apperrors.Wrap(apperrors.ErrSubmissionOutcomeUnknown, err)
	}
	if err != nil {
		s.release(ctx, w)
		s.transition(ctx, w, models.WithdrawalFailed, err.Error())
		logger.ErrorContext(ctx, "transfer submission failed", "error", err)
		return nil, apperrors.Upstream(err, "failed to submit transfer")
	}
	w.TxHash = txHash
	s.transition(ctx, w, models.WithdrawalSubmitted, "")
	logger = logger.With("tx_hash", txHash)

	if _, err := s.chain.WaitForConfirmation(ctx, txHash, s.confirmTimeout); err != nil {
		if errors.Is(err, chain.ErrTransactionFailed) {
			s.release(ctx, w)
			s.transition(ctx, w, models.WithdrawalFailed, err.Error())
			logger.ErrorContext(ctx, "transfer failed on chain", "error", err)
			return nil, apperrors.Upstream(err, "transfer %s failed on chain", txHash)
		}
		// The transfer may still land, so the hold stays in place.
		s.transition(ctx, w, models.WithdrawalConfirmationTimeout, err.Error())
		logger.ErrorContext(ctx, "transfer outcome unknown", "error", err)
		return nil, apperrors.Wrap(apperrors.ErrConfirmationTimeout, err)
	}
	s.transition(ctx, w, models.WithdrawalConfirmed, "")

	entry, err := s.ledger.DebitWithdrawal(ctx, w)
	if err != nil {
		s.transition(ctx, w, models.WithdrawalDebitFailed, err.Error())
		logger.ErrorContext(ctx, "transfer confirmed but debit failed", "error", err)
		return nil, apperrors.Wrap(apperrors.ErrBalanceUpdateFailedAfterWithdrawal, err)
	}
	w.Status = models.WithdrawalDebited
	w.UpdatedAt = entry.CreatedAt

	return &Result{Withdrawal: w, Entry: entry}, nil
}

// checkTreasury rejects a withdrawal the treasury cannot fund before any record
// or hold exists.
func (s *Service) checkTreasury(ctx context.Context, in WithdrawInput) error {
	if s.treasury == "" {
		return nil
	}
	balance, err := s.chain.GetCoinBalance(ctx, s.treasury, in.TokenAddress)
	if err != nil {
		return apperrors.Upstream(err, "failed to read treasury balance")
	}
	if balance < in.Amount {
		s.logger.ErrorContext(ctx, "treasury cannot fund withdrawal",
			"user_id", in.UserID, "token_address", in.TokenAddress, "amount", in.Amount, "treasury_balance", balance)
		return apperrors.Wrap(apperrors.ErrTreasuryUnderfunded, fmt.Errorf("treasury holds %d, need %d", balance, in.Amount))
	}
	return nil
}

// transition persists a status change. A failed write is logged and leaves
// w.Status at the last persisted value; the flow continues because the chain
// side of the withdrawal cannot be undone.
func (s *Service) transition(ctx context.Context, w *models.Withdrawal, to models.WithdrawalStatus, reason string) {
	from := w.Status
	next := *w
	next.Status = to
	next.FailureReason = reason
	next.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateWithdrawal(ctx, &next, from); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist withdrawal status",
			"withdrawal_id", w.ID, "from", from, "to", to, "error", err)
		return
	}
	*w = next
}

func (s *Service) release(ctx context.Context, w *models.Withdrawal) {
	if err := s.ledger.ReleaseHold(ctx, w.UserID, w.TokenAddress, w.Amount); err != nil {
		s.logger.ErrorContext(ctx, "failed to release withdrawal hold", "withdrawal_id", w.ID, "error", err)
	}
}

// GetWithdrawal returns a withdrawal by id.
func (s *Service) GetWithdrawal(ctx context.Context, id string) (*models.Withdrawal, error) {
	w, err := s.store.GetWithdrawal(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperrors.NotFound("withdrawal %s not found", id)
	}
	if err != nil {
		return nil, apperrors.Upstream(err, "failed to get withdrawal")
	}
	return w, nil
}

// ListWithdrawals returns a user's withdrawals, newest first.
func (s *Service) ListWithdrawals(ctx context.Context, userID string) ([]models.Withdrawal, error) {
	if userID == "" {
		return nil, apperrors.Validation("user id is required")
	}
	list, err := s.store.ListWithdrawalsByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Upstream(err, "failed to list withdrawals")
	}
	if list == nil {
		list = []models.Withdrawal{}
	}
	return list, nil
}

// stuckStatuses are the non-terminal or ambiguous states a withdrawal should not
// linger in. A REQUESTED or BALANCE_CHECKED withdrawal may be holding funds.
var stuckStatuses = []models.WithdrawalStatus{
	models.WithdrawalConfirmationTimeout,
	models.WithdrawalSubmissionUnknown,
	models.WithdrawalDebitFailed,
	models.WithdrawalConfirmed,
	models.WithdrawalSubmitted,
	models.WithdrawalBalanceChecked,
	models.WithdrawalRequested,
}

// Stuck returns withdrawals older than minAge that need an operator.
func (s *Service) Stuck(ctx context.Context, minAge time.Duration) ([]models.Withdrawal, error) {
	var out []models.Withdrawal
	for _, status := range stuckStatuses {
		list, err := s.store.ListWithdrawalsByStatus(ctx, status, minAge)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s withdrawals: %w", status, err)
		}
		out = append(out, list...)
	}
	return out, nil
}
