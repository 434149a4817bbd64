// Package ledger records confirmed stealth payments and moves internal balances.
// Every balance change is written together with its ledger entry, guarded by the
// balance row's version, so replaying an account's entries reproduces its balance.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chris/stealth-ledger/pkg/apperrors"
	"github.com/chris/stealth-ledger/pkg/models"
	"github.com/chris/stealth-ledger/pkg/notify"
	"github.com/chris/stealth-ledger/pkg/storage"
	"github.com/google/uuid"
)

const (
	maxWriteAttempts = 5
	maxDecimals      = 18

	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// Store is the persistence the ledger needs.
type Store interface {
	storage.PaymentStore
	storage.BalanceReader
	storage.LedgerWriter
}

// Service is the payment ledger.
type Service struct {
	store    Store
	notifier notify.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a new ledger Service.
func NewService(store Store, notifier notify.Notifier, logger *slog.Logger) *Service {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Service{store: store, notifier: notifier, logger: logger, now: time.Now}
}

// RecordPaymentInput holds the details of a confirmed payment to record.
type RecordPaymentInput struct {
	UserID          string
	TxHash          string
	StealthAddress  string
	PayerAddress    string
	Amount          uint64
	TokenSymbol     string
	TokenAddress    string
	Decimals        uint8
	Label           string
	Note            string
	EphemeralPubkey string
}

func (in RecordPaymentInput) validate() error {
	switch {
	case in.UserID == "":
		return apperrors.Validation("user id is required")
	case in.TxHash == "":
		return apperrors.Validation("tx hash is required")
	case in.StealthAddress == "":
		return apperrors.Validation("stealth address is required")
	case in.PayerAddress == "":
		return apperrors.Validation("payer address is required")
	case in.TokenAddress == "":
		return apperrors.Validation("token address is required")
	case in.Amount == 0:
		return apperrors.Validation("amount must be greater than zero")
	case in.Decimals > maxDecimals:
		return apperrors.Validation("decimals must be at most %d", maxDecimals)
	}
	return nil
}

// RecordResult is the outcome of recording a payment.
type RecordResult struct {
	PaymentID       string
	AlreadyCredited bool
}

// RecordPayment records a payment and credits its owner at most once per tx hash.
// Recording the same payment again returns the original payment id.
func (s *Service) RecordPayment(ctx context.Context, in RecordPaymentInput) (*RecordResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	payment := &models.StealthPayment{
		ID:              uuid.NewString(),
		UserID:          in.UserID,
		TxHash:          in.TxHash,
		StealthAddress:  in.StealthAddress,
		PayerAddress:    in.PayerAddress,
		Amount:          in.Amount,
		TokenSymbol:     in.TokenSymbol,
		TokenAddress:    in.TokenAddress,
		Decimals:        in.Decimals,
		Label:           in.Label,
		Note:            in.Note,
		EphemeralPubkey: in.EphemeralPubkey,
		Status:          models.PaymentConfirmed,
		ConfirmedAt:     now,
		CreditStatus:    models.CreditPending,
		CreatedAt:       now,
	}

	err := s.store.InsertPayment(ctx, payment)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrAlreadyExists):
		existing, err := s.store.GetPaymentByTxHash(ctx, in.TxHash)
		if err != nil {
			return nil, apperrors.Upstream(err, "failed to load payment %s", in.TxHash)
		}
		if existing.UserID != in.UserID {
			return nil, apperrors.Conflict("payment %s is already recorded for another user", in.TxHash)
		}
		if existing.BalanceCredited {
			s.logger.InfoContext(ctx, "payment already credited", "tx_hash", in.TxHash, "payment_id", existing.ID)
			return &RecordResult{PaymentID: existing.ID, AlreadyCredited: true}, nil
		}
		payment = existing
	default:
		return nil, apperrors.Upstream(err, "failed to record payment %s", in.TxHash)
	}

	return s.credit(ctx, payment)
}

// CreditPayment retries the credit of an already recorded payment.
func (s *Service) CreditPayment(ctx context.Context, txHash string) (*RecordResult, error) {
	payment, err := s.store.GetPaymentByTxHash(ctx, txHash)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperrors.NotFound("payment %s not found", txHash)
	}
	if err != nil {
		return nil, apperrors.Upstream(err, "failed to load payment %s", txHash)
	}
	if payment.BalanceCredited {
		return &RecordResult{PaymentID: payment.ID, AlreadyCredited: true}, nil
	}
	return s.credit(ctx, payment)
}

func (s *Service) credit(ctx context.Context, payment *models.StealthPayment) (*RecordResult, error) {
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		credit, err := s.buildCredit(ctx, payment)
		if err != nil {
			return nil, s.creditFailed(ctx, payment, err)
		}

		err = s.store.CreditPayment(ctx, credit)
		switch {
		case err == nil:
			s.logger.InfoContext(ctx, "payment credited",
				"payment_id", payment.ID,
				"tx_hash", payment.TxHash,
				"user_id", payment.UserID,
				"amount", payment.Amount,
				"balance_after", credit.Entry.BalanceAfter,
			)
			s.publish(ctx, notify.NewEvent(notify.KindPaymentRecorded, payment.UserID, payment.TxHash, payment.Amount, payment.TokenAddress))
			return &RecordResult{PaymentID: payment.ID}, nil
		case errors.Is(err, storage.ErrAlreadyCredited):
			return &RecordResult{PaymentID: payment.ID, AlreadyCredited: true}, nil
		case errors.Is(err, storage.ErrVersionConflict):
			s.logger.DebugContext(ctx, "balance changed during credit, retrying", "tx_hash", payment.TxHash, "attempt", attempt)
		default:
			return nil, s.creditFailed(ctx, payment, err)
		}
	}
	return nil, s.creditFailed(ctx, payment, fmt.Errorf("balance kept changing after %d attempts", maxWriteAttempts))
}

func (s *Service) creditFailed(ctx context.Context, payment *models.StealthPayment, err error) error {
	s.logger.ErrorContext(ctx, "payment recorded but credit failed",
		"payment_id", payment.ID,
		"tx_hash", payment.TxHash,
		"user_id", payment.UserID,
		"error", err,
	)
	return apperrors.Wrap(apperrors.ErrPaymentRecordedCreditFailed, err)
}

func (s *Service) buildCredit(ctx context.Context, payment *models.StealthPayment) (storage.Credit, error) {
	now := s.now().UTC()

	current, err := s.store.GetBalance(ctx, payment.UserID, payment.TokenAddress)
	if errors.Is(err, storage.ErrNotFound) {
		current = &models.UserBalance{
			ID:           uuid.NewString(),
			UserID:       payment.UserID,
			TokenSymbol:  payment.TokenSymbol,
			TokenAddress: payment.TokenAddress,
			Decimals:     payment.Decimals,
		}
	} else if err != nil {
		return storage.Credit{}, fmt.Errorf("failed to read balance: %w", err)
	}

	before := current.Balance
	after := before + payment.Amount
	if after < before {
		return storage.Credit{}, fmt.Errorf("balance overflow crediting %d to %d", payment.Amount, before)
	}

	next := *current
	next.Balance = after
	next.Available = current.Available + payment.Amount
	next.Version = current.Version + 1
	next.UpdatedAt = now

	return storage.Credit{
		PaymentTxHash:   payment.TxHash,
		ExpectedVersion: current.Version,
		Balance:         &next,
		Entry: &models.BalanceTransaction{
			AccountKey:    models.AccountKey(payment.UserID, payment.TokenAddress),
			Sequence:      next.Version,
			ID:            uuid.NewString(),
			UserID:        payment.UserID,
			Type:          models.Deposit,
			Amount:        payment.Amount,
			TokenAddress:  payment.TokenAddress,
			PaymentID:     payment.ID,
			TxHash:        payment.TxHash,
			BalanceBefore: before,
			BalanceAfter:  after,
			Note:          payment.Note,
			CreatedAt:     now,
		},
	}, nil
}

func (s *Service) publish(ctx context.Context, event notify.Event) {
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish notification", "kind", event.Kind, "reference", event.Reference, "error", err)
	}
}
