// Package memory is an in-process Storage used for local development and tests.
// It applies the same conditional-write rules as the DynamoDB store under one mutex.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/chris/stealth-ledger/pkg/models"
	"github.com/chris/stealth-ledger/pkg/storage"
)

type balanceKey struct{ userID, token string }

type holdingKey struct{ userID, assetID string }

// Store implements storage.Storage in memory.
type Store struct {
	mu sync.Mutex

	payments     map[string]models.StealthPayment
	balances     map[balanceKey]models.UserBalance
	entries      map[string][]models.BalanceTransaction
	withdrawals  map[string]models.Withdrawal
	assets       map[string]models.Asset
	holdings     map[holdingKey]models.Holding
	assetTxs     map[string]models.AssetTransaction
	claims       map[string]models.PaymentClaim
	attributions map[string]models.Attribution

	now func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		payments:     make(map[string]models.StealthPayment),
		balances:     make(map[balanceKey]models.UserBalance),
		entries:      make(map[string][]models.BalanceTransaction),
		withdrawals:  make(map[string]models.Withdrawal),
		assets:       make(map[string]models.Asset),
		holdings:     make(map[holdingKey]models.Holding),
		assetTxs:     make(map[string]models.AssetTransaction),
		claims:       make(map[string]models.PaymentClaim),
		attributions: make(map[string]models.Attribution),
		now:          time.Now,
	}
}

// SetClock replaces the clock used for age cutoffs.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Make sure we conform to the interface
var _ storage.Storage = (*Store)(nil)

func (s *Store) InsertPayment(ctx context.Context, payment *models.StealthPayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.payments[payment.TxHash]; ok {
		return storage.ErrAlreadyExists
	}
	s.payments[payment.TxHash] = *payment
	return nil
}

func (s *Store) GetPaymentByTxHash(ctx context.Context, txHash string) (*models.StealthPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[txHash]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &p, nil
}

func (s *Store) ListUncreditedPayments(ctx context.Context, minAge time.Duration) ([]models.StealthPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-minAge)
	var out []models.StealthPayment
	for _, p := range s.payments {
		if p.CreditStatus == models.CreditPending && p.CreatedAt.Before(cutoff) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetBalance(ctx context.Context, userID, tokenAddress string) (*models.UserBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.balances[balanceKey{userID, tokenAddress}]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &b, nil
}

func (s *Store) ListBalances(ctx context.Context, userID string) ([]models.UserBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.UserBalance
	for k, b := range s.balances {
		if k.userID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TokenAddress < out[j].TokenAddress })
	return out, nil
}

func (s *Store) ListBalanceTransactions(ctx context.Context, userID string, limit int32) ([]models.BalanceTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.BalanceTransaction
	for _, list := range s.entries {
		for _, e := range list {
			if e.UserID == userID {
				out = append(out, e)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Sequence > out[j].Sequence
	})
	if limit > 0 && int(limit) < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListAccountEntries(ctx context.Context, userID, tokenAddress string) ([]models.BalanceTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.entries[models.AccountKey(userID, tokenAddress)]
	out := make([]models.BalanceTransaction, len(list))
	copy(out, list)
	return out, nil
}

func (s *Store) CreditPayment(ctx context.Context, credit storage.Credit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := balanceKey{credit.Balance.UserID, credit.Balance.TokenAddress}
	current, exists := s.balances[key]
	if credit.ExpectedVersion == 0 && exists {
		return storage.ErrVersionConflict
	}
	if credit.ExpectedVersion != 0 && (!exists || current.Version != credit.ExpectedVersion) {
		return storage.ErrVersionConflict
	}
	payment, ok := s.payments[credit.PaymentTxHash]
	if !ok {
		return storage.ErrNotFound
	}
	if payment.BalanceCredited {
		return storage.ErrAlreadyCredited
	}

	next := *credit.Balance
	if exists {
		// Holds placed since the read must survive, so Available moves by the delta.
		next.Available = current.Available + credit.Entry.Amount
	}
	s.balances[key] = next
	s.appendEntry(*credit.Entry)

	payment.BalanceCredited = true
	payment.BalanceTransactionID = credit.Entry.ID
	payment.CreditStatus = models.CreditCredited
	s.payments[credit.PaymentTxHash] = payment
	return nil
}

func (s *Store) HoldFunds(ctx context.Context, userID, tokenAddress string, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := balanceKey{userID, tokenAddress}
	b, ok := s.balances[key]
	if !ok || b.Available < amount {
		return storage.ErrInsufficientFunds
	}
	b.Available -= amount
	s.balances[key] = b
	return nil
}

func (s *Store) ReleaseHold(ctx context.Context, userID, tokenAddress string, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := balanceKey{userID, tokenAddress}
	b, ok := s.balances[key]
	if !ok {
		return storage.ErrNotFound
	}
	b.Available += amount
	s.balances[key] = b
	return nil
}

func (s *Store) DebitWithdrawal(ctx context.Context, debit storage.Debit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := balanceKey{debit.Balance.UserID, debit.Balance.TokenAddress}
	current, ok := s.balances[key]
	if !ok || current.Version != debit.ExpectedVersion || current.Balance < debit.Entry.Amount {
		return storage.ErrVersionConflict
	}
	w, ok := s.withdrawals[debit.WithdrawalID]
	if !ok || w.Status == models.WithdrawalDebited {
		return storage.ErrStatusConflict
	}

	current.Balance = debit.Balance.Balance
	current.Version = debit.Balance.Version
	current.UpdatedAt = debit.Balance.UpdatedAt
	s.balances[key] = current
	s.appendEntry(*debit.Entry)

	w.Status = models.WithdrawalDebited
	w.UpdatedAt = debit.Entry.CreatedAt
	s.withdrawals[debit.WithdrawalID] = w
	return nil
}

func (s *Store) appendEntry(e models.BalanceTransaction) {
	s.entries[e.AccountKey] = append(s.entries[e.AccountKey], e)
}

func (s *Store) CreateWithdrawal(ctx context.Context, w *models.Withdrawal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.withdrawals[w.ID]; ok {
		return storage.ErrAlreadyExists
	}
	s.withdrawals[w.ID] = *w
	return nil
}

func (s *Store) UpdateWithdrawal(ctx context.Context, w *models.Withdrawal, from models.WithdrawalStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.withdrawals[w.ID]
	if !ok || current.Status != from {
		return storage.ErrStatusConflict
	}
	current.Status = w.Status
	current.TxHash = w.TxHash
	current.FailureReason = w.FailureReason
	current.UpdatedAt = w.UpdatedAt
	s.withdrawals[w.ID] = current
	return nil
}

func (s *Store) GetWithdrawal(ctx context.Context, id string) (*models.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.withdrawals[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &w, nil
}

func (s *Store) ListWithdrawalsByUser(ctx context.Context, userID string) ([]models.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Withdrawal
	for _, w := range s.withdrawals {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListWithdrawalsByStatus(ctx context.Context, status models.WithdrawalStatus, minAge time.Duration) ([]models.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-minAge)
	var out []models.Withdrawal
	for _, w := range s.withdrawals {
		if w.Status == status && w.CreatedAt.Before(cutoff) {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) RecordAttribution(ctx context.Context, a *models.Attribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.attributions[a.EventID]; ok {
		return storage.ErrAlreadyExists
	}
	s.attributions[a.EventID] = *a
	return nil
}
