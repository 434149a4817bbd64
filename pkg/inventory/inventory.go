// Package inventory is the share inventory ledger for tokenized assets with a
// fixed share supply.
//
// Shares leave an asset's pool either through a reservation, which is later
// completed by a payment carrying the reservation id in its label, or through a
// direct purchase paid by a labelled payment. Each payment can pay for at most one
// purchase, and completing a reservation never grants its shares a second time.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/chris/stealth-ledger/pkg/apperrors"
	"github.com/chris/stealth-ledger/pkg/models"
	"github.com/chris/stealth-ledger/pkg/notify"
	"github.com/chris/stealth-ledger/pkg/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxAllocationAttempts = 10

// PaymentReader looks up recorded payments.
type PaymentReader interface {
	GetPaymentByTxHash(ctx context.Context, txHash string) (*models.StealthPayment, error)
}

// Service is the share inventory ledger.
type Service struct {
	store    storage.InventoryStore
	payments PaymentReader
	notifier notify.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a new inventory Service.
func NewService(store storage.InventoryStore, payments PaymentReader, notifier notify.Notifier, logger *slog.Logger) *Service {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Service{store: store, payments: payments, notifier: notifier, logger: logger, now: time.Now}
}

// ParseLabel splits a payment label of the form "assetId" or "assetId#reservationId".
func ParseLabel(label string) (assetID, reservationID string) {
	assetID, reservationID, _ = strings.Cut(strings.TrimSpace(label), "#")
	return assetID, reservationID
}

// ReservationLabel is the label a payer attaches to pay for a reservation.
func ReservationLabel(assetID, reservationID string) string {
	return assetID + "#" + reservationID
}

// DisplayAmount converts base units to display units of a token with decimals places.
func DisplayAmount(amount uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals))
}

func statusAfter(current models.AssetStatus, available uint32) models.AssetStatus {
	switch {
	case current == models.AssetDelisted:
		return models.AssetDelisted
	case available == 0:
		return models.AssetSoldOut
	default:
		return models.AssetActive
	}
}

func (s *Service) loadAsset(ctx context.Context, assetID string) (*models.Asset, error) {
	asset, err := s.store.GetAsset(ctx, assetID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperrors.NotFound("asset %s not found", assetID)
	}
	if err != nil {
		return nil, apperrors.Upstream(err, "failed to get asset")
	}
	return asset, nil
}

// checkAvailable reports whether quantity shares can leave the pool of asset.
func checkAvailable(asset *models.Asset, quantity uint32) error {
	if asset.Status == models.AssetDelisted {
		return apperrors.Conflict("asset %s is delisted", asset.AssetID)
	}
	if asset.Status == models.AssetSoldOut || asset.AvailableShares < quantity {
		return apperrors.Wrap(apperrors.ErrInsufficientShares,
			fmt.Errorf("asset %s has %d shares available, %d requested", asset.AssetID, asset.AvailableShares, quantity))
	}
	return nil
}

// CreateAssetInput describes a new listing.
type CreateAssetInput struct {
	AssetID       string
	Name          string
	Location      string
	TotalShares   uint32
	PricePerShare string
	TokenAddress  string
}

// CreateAsset lists a new asset with its full supply available.
func (s *Service) CreateAsset(ctx context.Context, in CreateAssetInput) (*models.Asset, error) {
	if in.AssetID == "" || strings.Contains(in.AssetID, "#") {
		return nil, apperrors.Validation("asset id is required and must not contain '#'")
	}
	if in.Name == "" {
		return nil, apperrors.Validation("name is required")
	}
	if in.TotalShares == 0 {
		return nil, apperrors.Validation("total shares must be greater than zero")
	}
	if in.TokenAddress == "" {
		return nil, apperrors.Validation("token address is required")
	}
	price, err := decimal.NewFromString(in.PricePerShare)
	if err != nil || !price.IsPositive() {
		return nil, apperrors.Validation("price per share must be a positive decimal")
	}

	now := s.now().UTC()
	asset := &models.Asset{
		AssetID:         in.AssetID,
		Name:            in.Name,
		Location:        in.Location,
		TotalShares:     in.TotalShares,
		AvailableShares: in.TotalShares,
		PricePerShare:   price.String(),
		TokenAddress:    in.TokenAddress,
		Status:          models.AssetActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.CreateAsset(ctx, asset); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, apperrors.Conflict("asset %s already exists", in.AssetID)
		}
		return nil, apperrors.Upstream(err, "failed to create asset")
	}
	return asset, nil
}

// GetAsset returns one asset.
func (s *Service) GetAsset(ctx context.Context, assetID string) (*models.Asset, error) {
	return s.loadAsset(ctx, assetID)
}

// ListAssets returns every listed asset.
func (s *Service) ListAssets(ctx context.Context) ([]models.Asset, error) {
	assets, err := s.store.ListAssets(ctx)
	if err != nil {
		return nil, apperrors.Upstream(err, "failed to list assets")
	}
	if assets == nil {
		assets = []models.Asset{}
	}
	return assets, nil
}

// Reservation is a provisional share allocation awaiting payment.
type Reservation struct {
	ID              string `json:"id"`
	AssetID         string `json:"asset_id"`
	Quantity        uint32 `json:"quantity"`
	TotalPrice      string `json:"total_price"`
	TransactionHash string `json:"transaction_hash"`
	PaymentLabel    string `json:"payment_label"`
}

// Reserve takes quantity shares out of an asset's pool for userID and grants the
// holding immediately. The payment that settles it must carry PaymentLabel.
func (s *Service) Reserve(ctx context.Context, assetID, userID string, quantity uint32) (*Reservation, error) {
	if assetID == "" || userID == "" {
		return nil, apperrors.Validation("asset id and user id are required")
	}
	if quantity == 0 {
		return nil, apperrors.Validation("quantity must be greater than zero")
	}

	for attempt := 1; attempt <= maxAllocationAttempts; attempt++ {
		asset, err := s.loadAsset(ctx, assetID)
		if err != nil {
			return nil, err
		}
		if err := checkAvailable(asset, quantity); err != nil {
			return nil, err
		}
		price, err := decimal.NewFromString(asset.PricePerShare)
		if err != nil {
			return nil, fmt.Errorf("asset %s has invalid price %q: %w", assetID, asset.PricePerShare, err)
		}

		now := s.now().UTC()
		id := uuid.NewString()
		total := price.Mul(decimal.NewFromInt(int64(quantity)))
		tx := &models.AssetTransaction{
			ID:              id,
			AssetID:         assetID,
			BuyerUserID:     userID,
			Quantity:        quantity,
			TotalPrice:      total.String(),
			Status:          models.AssetTxPending,
			TransactionHash: models.PendingHashPrefix + id,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		remaining := asset.AvailableShares - quantity

		err = s.store.AllocateShares(ctx, storage.ShareAllocation{
			AssetID:           assetID,
			ExpectedAvailable: asset.AvailableShares,
			NewAvailable:      remaining,
			NewStatus:         statusAfter(asset.Status, remaining),
			UnitPrice:         asset.PricePerShare,
			Transaction:       tx,
		})
		switch {
		case err == nil:
			s.logger.InfoContext(ctx, "shares reserved",
				"reservation_id", id,
				"asset_id", assetID,
				"user_id", userID,
				"quantity", quantity,
				"available_after", remaining,
			)
			return &Reservation{
				ID:              id,
				AssetID:         assetID,
				Quantity:        quantity,
				TotalPrice:      tx.TotalPrice,
				TransactionHash: tx.TransactionHash,
				PaymentLabel:    ReservationLabel(assetID, id),
			}, nil
		case errors.Is(err, storage.ErrVersionConflict):
			s.logger.DebugContext(ctx, "share pool moved, retrying", "asset_id", assetID, "attempt", attempt)
		default:
			return nil, apperrors.Upstream(err, "failed to reserve shares")
		}
	}
	return nil, apperrors.Conflict("asset %s is under heavy contention, try again", assetID)
}

// CancelReservation returns the shares of a pending reservation to the pool.
func (s *Service) CancelReservation(ctx context.Context, userID, reservationID string) error {
	res, err := s.loadReservation(ctx, reservationID)
	if err != nil {
		return err
	}
	if res.BuyerUserID != userID {
		return apperrors.NotFound("reservation %s not found", reservationID)
	}
	if res.Status != models.AssetTxPending {
		return apperrors.Conflict("reservation %s is %s", reservationID, res.Status)
	}

	for attempt := 1; attempt <= maxAllocationAttempts; attempt++ {
		asset, err := s.loadAsset(ctx, res.AssetID)
		if err != nil {
			return err
		}
		restored := asset.AvailableShares + res.Quantity
		if restored > asset.TotalShares {
			return fmt.Errorf("asset %s would exceed its supply: %d > %d", asset.AssetID, restored, asset.TotalShares)
		}

		failed := *res
		failed.Status = models.AssetTxFailed
		failed.UpdatedAt = s.now().UTC()

		err = s.store.ReleaseReservation(ctx, storage.ShareAllocation{
			AssetID:           res.AssetID,
			ExpectedAvailable: asset.AvailableShares,
			NewAvailable:      restored,
			NewStatus:         statusAfter(asset.Status, restored),
			Transaction:       &failed,
		})
		switch {
		case err == nil:
			s.logger.InfoContext(ctx, "reservation cancelled", "reservation_id", reservationID, "asset_id", res.AssetID)
			return nil
		case errors.Is(err, storage.ErrVersionConflict):
			continue
		case errors.Is(err, storage.ErrStatusConflict):
			return apperrors.Conflict("reservation %s is no longer pending", reservationID)
		default:
			return apperrors.Upstream(err, "failed to cancel reservation")
		}
	}
	return apperrors.Conflict("asset %s is under heavy contention, try again", res.AssetID)
}

func (s *Service) loadReservation(ctx context.Context, id string) (*models.AssetTransaction, error) {
	res, err := s.store.GetAssetTransaction(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperrors.NotFound("reservation %s not found", id)
	}
	if err != nil {
		return nil, apperrors.Upstream(err, "failed to get reservation")
	}
	return res, nil
}

// Position is one holding valued at the asset's current price.
type Position struct {
	models.Holding
	AssetName     string `json:"asset_name"`
	Location      string `json:"location"`
	PricePerShare string `json:"price_per_share"`
	TokenAddress  string `json:"token_address"`
	Value         string `json:"value"`
}

// Portfolio is a user's share positions with totals per pricing token.
type Portfolio struct {
	UserID    string            `json:"user_id"`
	Positions []Position        `json:"positions"`
	Totals    map[string]string `json:"totals"`
}

// GetPortfolio returns the holdings of userID joined with their assets.
func (s *Service) GetPortfolio(ctx context.Context, userID string) (*Portfolio, error) {
	if userID == "" {
		return nil, apperrors.Validation("user id is required")
	}
	holdings, err := s.store.ListHoldings(ctx, userID)
	if err != nil {
		return nil, apperrors.Upstream(err, "failed to list holdings")
	}

	portfolio := &Portfolio{UserID: userID, Positions: []Position{}, Totals: map[string]string{}}
	totals := map[string]decimal.Decimal{}
	for _, h := range holdings {
		asset, err := s.loadAsset(ctx, h.AssetID)
		if err != nil {
			return nil, err
		}
		price, err := decimal.NewFromString(asset.PricePerShare)
		if err != nil {
			return nil, fmt.Errorf("asset %s has invalid price %q: %w", asset.AssetID, asset.PricePerShare, err)
		}
		value := price.Mul(decimal.NewFromInt(int64(h.Quantity)))
		totals[asset.TokenAddress] = totals[asset.TokenAddress].Add(value)

		portfolio.Positions = append(portfolio.Positions, Position{
			Holding:       h,
			AssetName:     asset.Name,
			Location:      asset.Location,
			PricePerShare: asset.PricePerShare,
			TokenAddress:  asset.TokenAddress,
			Value:         value.String(),
		})
	}
	for token, total := range totals {
		portfolio.Totals[token] = total.String()
	}
	return portfolio, nil
}

// sharesFor returns how many whole shares paid buys at price.
func sharesFor(paid, price decimal.Decimal) (uint32, error) {
	q, _ := paid.QuoRem(price, 0)
	if !q.IsPositive() {
		return 0, apperrors.Validation("payment of %s does not cover one share at %s", paid, price)
	}
	if q.GreaterThan(decimal.NewFromInt(math.MaxUint32)) {
		return 0, apperrors.Validation("payment of %s buys more shares than any asset has", paid)
	}
	return uint32(q.IntPart()), nil
}
