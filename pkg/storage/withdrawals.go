package storage

import (
	"context"
	"time"

	"github.com/chris/stealth-ledger/pkg/models"
)

// WithdrawalStore defines the interface for withdrawal records.
type WithdrawalStore interface {
	// CreateWithdrawal inserts a new withdrawal record.
	CreateWithdrawal(ctx context.Context, w *models.Withdrawal) error

	// UpdateWithdrawal moves a withdrawal from one status to another, setting TxHash
	// and FailureReason from w. It fails with ErrStatusConflict if the stored status is not from.
	UpdateWithdrawal(ctx context.Context, w *models.Withdrawal, from models.WithdrawalStatus) error

	// GetWithdrawal retrieves a withdrawal by ID.
	GetWithdrawal(ctx context.Context, id string) (*models.Withdrawal, error)

	// ListWithdrawalsByUser retrieves a user's withdrawals, newest first.
	ListWithdrawalsByUser(ctx context.Context, userID string) ([]models.Withdrawal, error)

	// ListWithdrawalsByStatus retrieves withdrawals in a status that are older than minAge.
	ListWithdrawalsByStatus(ctx context.Context, status models.WithdrawalStatus, minAge time.Duration) ([]models.Withdrawal, error)
}

// AttributionStore defines the interface for telemetry attribution rows.
type AttributionStore interface {
	// RecordAttribution inserts an attribution row, failing with ErrAlreadyExists on a replayed event.
	RecordAttribution(ctx context.Context, a *models.Attribution) error
}
