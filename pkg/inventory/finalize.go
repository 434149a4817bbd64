package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/chris/stealth-ledger/pkg/apperrors"
	"github.com/chris/stealth-ledger/pkg/models"
	"github.com/chris/stealth-ledger/pkg/notify"
	"github.com/chris/stealth-ledger/pkg/storage"
	"github.com/shopspring/decimal"
)

// DirectPurchasePrefix prefixes the id of a purchase made without a reservation.
const DirectPurchasePrefix = "purchase#"

// FinalizeInput names the payment that pays for shares. ReservationID overrides
// the reservation carried in the payment's label.
type FinalizeInput struct {
	UserID        string
	PaymentTxHash string
	ReservationID string
}

// FinalizeResult describes the purchase a payment settled.
type FinalizeResult struct {
	AssetTransactionID string `json:"asset_transaction_id"`
	AssetID            string `json:"asset_id"`
	Quantity           uint32 `json:"quantity"`
	TotalPrice         string `json:"total_price"`
	TransactionHash    string `json:"transaction_hash"`
	AlreadyFinalized   bool   `json:"already_finalized"`
}

func resultOf(tx *models.AssetTransaction, already bool) *FinalizeResult {
	return &FinalizeResult{
		AssetTransactionID: tx.ID,
		AssetID:            tx.AssetID,
		Quantity:           tx.Quantity,
		TotalPrice:         tx.TotalPrice,
		TransactionHash:    tx.TransactionHash,
		AlreadyFinalized:   already,
	}
}

// Finalize settles a share purchase with a confirmed payment. A payment whose label
// names a reservation completes that reservation; a payment labelled with only an
// asset id buys as many whole shares as it covers. Finalizing the same payment again
// returns the original purchase.
func (s *Service) Finalize(ctx context.Context, in FinalizeInput) (*FinalizeResult, error) {
	if in.UserID == "" || in.PaymentTxHash == "" {
		return nil, apperrors.Validation("user id and payment tx hash are required")
	}

	payment, err := s.payments.GetPaymentByTxHash(ctx, in.PaymentTxHash)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperrors.NotFound("payment %s not found", in.PaymentTxHash)
	}
	if err != nil {
		return nil, apperrors.Upstream(err, "failed to get payment")
	}
	if payment.Status != models.PaymentConfirmed {
		return nil, apperrors.Validation("payment %s is not confirmed", in.PaymentTxHash)
	}

	assetID, reservationID := ParseLabel(payment.Label)
	if in.ReservationID != "" {
		reservationID = in.ReservationID
	}
	if reservationID != "" {
		return s.completeReservation(ctx, in.UserID, assetID, reservationID, payment)
	}
	if assetID == "" {
		return nil, apperrors.Validation("payment %s carries no asset label", in.PaymentTxHash)
	}
	return s.directPurchase(ctx, in.UserID, assetID, payment)
}

func (s *Service) completeReservation(ctx context.Context, userID, labelAsset, reservationID string, payment *models.StealthPayment) (*FinalizeResult, error) {
	res, err := s.loadReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.BuyerUserID != userID {
		return nil, apperrors.Conflict("reservation %s belongs to another user", reservationID)
	}
	if labelAsset != "" && labelAsset != res.AssetID {
		return nil, apperrors.Validation("payment is labelled for asset %s, reservation is for %s", labelAsset, res.AssetID)
	}
	if done, err := settled(res, payment.TxHash); done || err != nil {
		if err != nil {
			return nil, err
		}
		return resultOf(res, true), nil
	}

	asset, err := s.loadAsset(ctx, res.AssetID)
	if err != nil {
		return nil, err
	}
	if err := covers(asset, payment, res.TotalPrice); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	completed := *res
	completed.Status = models.AssetTxCompleted
	completed.TransactionHash = payment.TxHash
	completed.PaymentTxHash = payment.TxHash
	completed.UpdatedAt = now
	claim := &models.PaymentClaim{
		ID:                 models.ClaimID(payment.TxHash),
		PaymentTxHash:      payment.TxHash,
		AssetTransactionID: res.ID,
		ClaimedAt:          now,
	}

	err = s.store.CompleteReservation(ctx, &completed, claim)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrStatusConflict), errors.Is(err, storage.ErrAlreadyClaimed):
		// Lost a race with another finalize; decide from what it wrote.
		current, gerr := s.loadReservation(ctx, reservationID)
		if gerr != nil {
			return nil, gerr
		}
		if done, serr := settled(current, payment.TxHash); done {
			return resultOf(current, true), nil
		} else if serr != nil {
			return nil, serr
		}
		return nil, apperrors.Conflict("payment %s already paid for another purchase", payment.TxHash)
	default:
		return nil, apperrors.Upstream(err, "failed to complete reservation")
	}

	s.logger.InfoContext(ctx, "reservation completed",
		"reservation_id", res.ID,
		"asset_id", res.AssetID,
		"user_id", userID,
		"payment_tx_hash", payment.TxHash,
	)
	s.publish(ctx, userID, &completed, payment)
	return resultOf(&completed, false), nil
}

// settled reports whether res was already completed by paymentTxHash. A reservation
// completed by another payment or cancelled is a conflict.
func settled(res *models.AssetTransaction, paymentTxHash string) (bool, error) {
	switch res.Status {
	case models.AssetTxCompleted:
		if res.PaymentTxHash == paymentTxHash {
			return true, nil
		}
		return false, apperrors.Conflict("reservation %s was paid by another payment", res.ID)
	case models.AssetTxFailed:
		return false, apperrors.Conflict("reservation %s was cancelled", res.ID)
	}
	return false, nil
}

// covers checks that payment is in the asset's token and pays at least price.
func covers(asset *models.Asset, payment *models.StealthPayment, price string) error {
	if payment.TokenAddress != asset.TokenAddress {
		return apperrors.Validation("payment is in %s, asset %s is priced in %s", payment.TokenAddress, asset.AssetID, asset.TokenAddress)
	}
	want, err := decimal.NewFromString(price)
	if err != nil {
		return fmt.Errorf("invalid price %q: %w", price, err)
	}
	paid := DisplayAmount(payment.Amount, payment.Decimals)
	if paid.LessThan(want) {
		return apperrors.Validation("payment of %s does not cover %s", paid, want)
	}
	return nil
}

// directPurchase spends a payment with no reservation behind it. Only the user the
// payment was recorded for can spend it.
func (s *Service) directPurchase(ctx context.Context, userID, assetID string, payment *models.StealthPayment) (*FinalizeResult, error) {
	if payment.UserID != userID {
		return nil, apperrors.Conflict("payment %s belongs to another user", payment.TxHash)
	}
	if result, err := s.existingPurchase(ctx, userID, payment.TxHash); result != nil || err != nil {
		return result, err
	}

	for attempt := 1; attempt <= maxAllocationAttempts; attempt++ {
		asset, err := s.loadAsset(ctx, assetID)
		if err != nil {
			return nil, err
		}
		if payment.TokenAddress != asset.TokenAddress {
			return nil, apperrors.Validation("payment is in %s, asset %s is priced in %s", payment.TokenAddress, assetID, asset.TokenAddress)
		}
		price, err := decimal.NewFromString(asset.PricePerShare)
		if err != nil {
			return nil, fmt.Errorf("asset %s has invalid price %q: %w", assetID, asset.PricePerShare, err)
		}
		quantity, err := sharesFor(DisplayAmount(payment.Amount, payment.Decimals), price)
		if err != nil {
			return nil, err
		}
		if err := checkAvailable(asset, quantity); err != nil {
			return nil, err
		}

		now := s.now().UTC()
		tx := &models.AssetTransaction{
			ID:              DirectPurchasePrefix + payment.TxHash,
			AssetID:         assetID,
			BuyerUserID:     userID,
			Quantity:        quantity,
			TotalPrice:      price.Mul(decimal.NewFromInt(int64(quantity))).String(),
			Status:          models.AssetTxCompleted,
			TransactionHash: payment.TxHash,
			PaymentTxHash:   payment.TxHash,
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
			Claim: &models.PaymentClaim{
				ID:                 models.ClaimID(payment.TxHash),
				PaymentTxHash:      payment.TxHash,
				AssetTransactionID: tx.ID,
				ClaimedAt:          now,
			},
		})
		switch {
		case err == nil:
			s.logger.InfoContext(ctx, "shares purchased",
				"asset_id", assetID,
				"user_id", userID,
				"quantity", quantity,
				"payment_tx_hash", payment.TxHash,
				"available_after", remaining,
			)
			s.publish(ctx, userID, tx, payment)
			return resultOf(tx, false), nil
		case errors.Is(err, storage.ErrAlreadyClaimed), errors.Is(err, storage.ErrAlreadyExists):
			result, eerr := s.existingPurchase(ctx, userID, payment.TxHash)
			if eerr != nil {
				return nil, eerr
			}
			if result != nil {
				return result, nil
			}
			return nil, apperrors.Conflict("payment %s already paid for another purchase", payment.TxHash)
		case errors.Is(err, storage.ErrVersionConflict):
			s.logger.DebugContext(ctx, "share pool moved, retrying", "asset_id", assetID, "attempt", attempt)
		default:
			return nil, apperrors.Upstream(err, "failed to purchase shares")
		}
	}
	return nil, apperrors.Conflict("asset %s is under heavy contention, try again", assetID)
}

// existingPurchase returns the purchase already paid by paymentTxHash, or nil when
// the payment is unclaimed.
func (s *Service) existingPurchase(ctx context.Context, userID, paymentTxHash string) (*FinalizeResult, error) {
	claim, err := s.store.GetPaymentClaim(ctx, paymentTxHash)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Upstream(err, "failed to get payment claim")
	}
	tx, err := s.store.GetAssetTransaction(ctx, claim.AssetTransactionID)
	if err != nil {
		return nil, apperrors.Upstream(err, "failed to get purchase %s", claim.AssetTransactionID)
	}
	if tx.BuyerUserID != userID {
		return nil, apperrors.Conflict("payment %s already paid for another user's purchase", paymentTxHash)
	}
	return resultOf(tx, true), nil
}

func (s *Service) publish(ctx context.Context, userID string, tx *models.AssetTransaction, payment *models.StealthPayment) {
	event := notify.NewEvent(notify.KindSharesPurchased, userID, tx.ID, payment.Amount, payment.TokenAddress)
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event", "kind", event.Kind, "reference", event.Reference, "error", err)
	}
}
