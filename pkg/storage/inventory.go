package storage

import (
	"context"

	"github.com/chris/stealth-ledger/pkg/models"
)

// ShareAllocation is one atomic change to an asset's share pool together with the
// purchase record and the buyer's holding. ExpectedAvailable guards the pool
// (compare-and-swap); NewAvailable and NewStatus are written when it matches.
type ShareAllocation struct {
	AssetID           string
	ExpectedAvailable uint32
	NewAvailable      uint32
	NewStatus         models.AssetStatus
	UnitPrice         string
	Transaction       *models.AssetTransaction
	// Claim is set for purchases paid by a confirmed payment.
	Claim *models.PaymentClaim
}

// InventoryStore defines the interface for the share inventory ledger.
type InventoryStore interface {
	// CreateAsset lists a new asset, failing with ErrAlreadyExists on a duplicate AssetID.
	CreateAsset(ctx context.Context, asset *models.Asset) error

	// GetAsset retrieves an asset by ID.
	GetAsset(ctx context.Context, assetID string) (*models.Asset, error)

	// ListAssets retrieves all listed assets.
	ListAssets(ctx context.Context) ([]models.Asset, error)

	// AllocateShares applies a ShareAllocation. It fails with ErrVersionConflict when
	// the pool moved and ErrAlreadyClaimed when the claim row already exists.
	AllocateShares(ctx context.Context, alloc ShareAllocation) error

	// CompleteReservation marks a pending reservation COMPLETED with the paying
	// transaction's hash and writes the claim. It fails with ErrStatusConflict when the
	// reservation is no longer pending and ErrAlreadyClaimed when the claim exists.
	CompleteReservation(ctx context.Context, reservation *models.AssetTransaction, claim *models.PaymentClaim) error

	// ReleaseReservation marks a pending reservation FAILED and returns its shares to
	// the pool and takes them back from the holding, guarded like AllocateShares.
	ReleaseReservation(ctx context.Context, alloc ShareAllocation) error

	// GetAssetTransaction retrieves a purchase record by ID.
	GetAssetTransaction(ctx context.Context, id string) (*models.AssetTransaction, error)

	// GetPaymentClaim retrieves the claim for a payment, if any.
	GetPaymentClaim(ctx context.Context, paymentTxHash string) (*models.PaymentClaim, error)

	// GetHolding retrieves one holding.
	GetHolding(ctx context.Context, userID, assetID string) (*models.Holding, error)

	// ListHoldings retrieves every holding of a user.
	ListHoldings(ctx context.Context, userID string) ([]models.Holding, error)
}
