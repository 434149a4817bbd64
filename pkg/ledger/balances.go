package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/chris/stealth-ledger/pkg/apperrors"
	"github.com/chris/stealth-ledger/pkg/models"
	"github.com/chris/stealth-ledger/pkg/notify"
	"github.com/chris/stealth-ledger/pkg/storage"
	"github.com/google/uuid"
)

// GetBalance returns one balance of a user.
func (s *Service) GetBalance(ctx context.Context, userID, tokenAddress string) (*models.UserBalance, error) {
	if userID == "" || tokenAddress == "" {
		return nil, apperrors.Validation("user id and token address are required")
	}
	b, err := s.store.GetBalance(ctx, userID, tokenAddress)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperrors.NotFound("no %s balance for user %s", tokenAddress, userID)
	}
	if err != nil {
		return nil, apperrors.Upstream(err, "failed to get balance")
	}
	return b, nil
}

// ListBalances returns every balance of a user.
func (s *Service) ListBalances(ctx context.Context, userID string) ([]models.UserBalance, error) {
	if userID == "" {
		return nil, apperrors.Validation("user id is required")
	}
	balances, err := s.store.ListBalances(ctx, userID)
	if err != nil {
		return nil, apperrors.Upstream(err, "failed to list balances")
	}
	if balances == nil {
		balances = []models.UserBalance{}
	}
	return balances, nil
}

// ListTransactions returns a user's latest ledger entries, newest first.
// A limit of 0 uses the default page size.
func (s *Service) ListTransactions(ctx context.Context, userID string, limit int) ([]models.BalanceTransaction, error) {
	if userID == "" {
		return nil, apperrors.Validation("user id is required")
	}
	switch {
	case limit < 0:
		return nil, apperrors.Validation("limit must not be negative")
	case limit == 0:
		limit = defaultHistoryLimit
	case limit > maxHistoryLimit:
		limit = maxHistoryLimit
	}

	entries, err := s.store.ListBalanceTransactions(ctx, userID, int32(limit))
	if err != nil {
		return nil, apperrors.Upstream(err, "failed to list transactions")
	}
	if entries == nil {
		entries = []models.BalanceTransaction{}
	}
	return entries, nil
}

// ReplayBalance folds an account's ledger entries in sequence order and returns
// the resulting balance. It fails if any entry does not continue from the previous one.
func (s *Service) ReplayBalance(ctx context.Context, userID, tokenAddress string) (uint64, error) {
	entries, err := s.store.ListAccountEntries(ctx, userID, tokenAddress)
	if err != nil {
		return 0, apperrors.Upstream(err, "failed to list ledger entries")
	}
	return Replay(entries)
}

// Replay folds entries, which must be in sequence order.
func Replay(entries []models.BalanceTransaction) (uint64, error) {
	var running uint64
	for i, e := range entries {
		if e.BalanceBefore != running {
			return 0, fmt.Errorf("entry %d (%s) starts at %d, expected %d", i, e.ID, e.BalanceBefore, running)
		}
		switch e.Type {
		case models.Deposit:
			running += e.Amount
		case models.Withdraw:
			if e.Amount > running {
				return 0, fmt.Errorf("entry %d (%s) withdraws %d from %d", i, e.ID, e.Amount, running)
			}
			running -= e.Amount
		default:
			return 0, fmt.Errorf("entry %d (%s) has unknown type %q", i, e.ID, e.Type)
		}
		if e.BalanceAfter != running {
			return 0, fmt.Errorf("entry %d (%s) ends at %d, expected %d", i, e.ID, e.BalanceAfter, running)
		}
	}
	return running, nil
}

// HoldFunds reserves amount of a balance for an in-flight withdrawal.
func (s *Service) HoldFunds(ctx context.Context, userID, tokenAddress string, amount uint64) error {
	err := s.store.HoldFunds(ctx, userID, tokenAddress, amount)
	if errors.Is(err, storage.ErrInsufficientFunds) {
		return apperrors.Wrap(apperrors.ErrInsufficientBalance, err)
	}
	if err != nil {
		return apperrors.Upstream(err, "failed to hold funds")
	}
	return nil
}

// ReleaseHold returns a held amount to the available balance.
func (s *Service) ReleaseHold(ctx context.Context, userID, tokenAddress string, amount uint64) error {
	if err := s.store.ReleaseHold(ctx, userID, tokenAddress, amount); err != nil {
		return fmt.Errorf("failed to release hold: %w", err)
	}
	return nil
}

// DebitWithdrawal consumes the hold of a confirmed withdrawal, lowering the balance
// and appending the WITHDRAW entry. The withdrawal is marked DEBITED in the same write.
func (s *Service) DebitWithdrawal(ctx context.Context, w *models.Withdrawal) (*models.BalanceTransaction, error) {
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		current, err := s.store.GetBalance(ctx, w.UserID, w.TokenAddress)
		if err != nil {
			return nil, fmt.Errorf("failed to read balance: %w", err)
		}
		if current.Balance < w.Amount {
			return nil, fmt.Errorf("balance %d is below confirmed withdrawal %d", current.Balance, w.Amount)
		}

		now := s.now().UTC()
		next := *current
		next.Balance = current.Balance - w.Amount
		next.Version = current.Version + 1
		next.UpdatedAt = now

		entry := &models.BalanceTransaction{
			AccountKey:    models.AccountKey(w.UserID, w.TokenAddress),
			Sequence:      next.Version,
			ID:            uuid.NewString(),
			UserID:        w.UserID,
			Type:          models.Withdraw,
			Amount:        w.Amount,
			TokenAddress:  w.TokenAddress,
			TxHash:        w.TxHash,
			BalanceBefore: current.Balance,
			BalanceAfter:  next.Balance,
			Note:          "withdrawal " + w.ID,
			CreatedAt:     now,
		}

		err = s.store.DebitWithdrawal(ctx, storage.Debit{
			WithdrawalID:    w.ID,
			ExpectedVersion: current.Version,
			Balance:         &next,
			Entry:           entry,
		})
		switch {
		case err == nil:
			s.logger.InfoContext(ctx, "withdrawal debited",
				"withdrawal_id", w.ID,
				"user_id", w.UserID,
				"amount", w.Amount,
				"balance_after", entry.BalanceAfter,
			)
			s.publish(ctx, notify.NewEvent(notify.KindWithdrawalDebited, w.UserID, w.ID, w.Amount, w.TokenAddress))
			return entry, nil
		case errors.Is(err, storage.ErrVersionConflict):
			s.logger.DebugContext(ctx, "balance changed during debit, retrying", "withdrawal_id", w.ID, "attempt", attempt)
		default:
			return nil, err
		}
	}
	return nil, fmt.Errorf("balance kept changing after %d attempts", maxWriteAttempts)
}
