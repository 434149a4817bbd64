package memory

import (
	"context"
	"sort"

	"github.com/chris/stealth-ledger/pkg/models"
	"github.com/chris/stealth-ledger/pkg/storage"
)

func (s *Store) CreateAsset(ctx context.Context, asset *models.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assets[asset.AssetID]; ok {
		return storage.ErrAlreadyExists
	}
	s.assets[asset.AssetID] = *asset
	return nil
}

func (s *Store) GetAsset(ctx context.Context, assetID string) (*models.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.assets[assetID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &a, nil
}

func (s *Store) ListAssets(ctx context.Context) ([]models.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Asset, 0, len(s.assets))
	for _, a := range s.assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) AllocateShares(ctx context.Context, alloc storage.ShareAllocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	asset, ok := s.assets[alloc.AssetID]
	if !ok || asset.AvailableShares != alloc.ExpectedAvailable || asset.Status != models.AssetActive {
		return storage.ErrVersionConflict
	}
	if _, exists := s.assetTxs[alloc.Transaction.ID]; exists {
		return storage.ErrAlreadyExists
	}
	if alloc.Claim != nil {
		if _, claimed := s.claims[alloc.Claim.ID]; claimed {
			return storage.ErrAlreadyClaimed
		}
		s.claims[alloc.Claim.ID] = *alloc.Claim
	}

	tx := alloc.Transaction
	asset.AvailableShares = alloc.NewAvailable
	asset.Status = alloc.NewStatus
	asset.UpdatedAt = tx.UpdatedAt
	s.assets[alloc.AssetID] = asset
	s.assetTxs[tx.ID] = *tx

	key := holdingKey{tx.BuyerUserID, tx.AssetID}
	h := s.holdings[key]
	h.UserID = tx.BuyerUserID
	h.AssetID = tx.AssetID
	h.Quantity += tx.Quantity
	h.PurchasePrice = alloc.UnitPrice
	h.PurchaseDate = tx.UpdatedAt
	h.TransactionHash = tx.TransactionHash
	s.holdings[key] = h
	return nil
}

func (s *Store) CompleteReservation(ctx context.Context, reservation *models.AssetTransaction, claim *models.PaymentClaim) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.assetTxs[reservation.ID]
	if !ok || current.Status != models.AssetTxPending {
		return storage.ErrStatusConflict
	}
	if _, claimed := s.claims[claim.ID]; claimed {
		return storage.ErrAlreadyClaimed
	}
	s.claims[claim.ID] = *claim

	current.Status = models.AssetTxCompleted
	current.TransactionHash = reservation.TransactionHash
	current.PaymentTxHash = reservation.PaymentTxHash
	current.UpdatedAt = reservation.UpdatedAt
	s.assetTxs[reservation.ID] = current

	key := holdingKey{current.BuyerUserID, current.AssetID}
	if h, ok := s.holdings[key]; ok {
		h.TransactionHash = reservation.TransactionHash
		s.holdings[key] = h
	}
	return nil
}

func (s *Store) ReleaseReservation(ctx context.Context, alloc storage.ShareAllocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	asset, ok := s.assets[alloc.AssetID]
	if !ok || asset.AvailableShares != alloc.ExpectedAvailable {
		return storage.ErrVersionConflict
	}
	tx := alloc.Transaction
	current, ok := s.assetTxs[tx.ID]
	if !ok || current.Status != models.AssetTxPending {
		return storage.ErrStatusConflict
	}
	key := holdingKey{current.BuyerUserID, current.AssetID}
	h, ok := s.holdings[key]
	if !ok || h.Quantity < current.Quantity {
		return storage.ErrStatusConflict
	}

	asset.AvailableShares = alloc.NewAvailable
	asset.Status = alloc.NewStatus
	asset.UpdatedAt = tx.UpdatedAt
	s.assets[alloc.AssetID] = asset

	current.Status = models.AssetTxFailed
	current.UpdatedAt = tx.UpdatedAt
	s.assetTxs[tx.ID] = current

	h.Quantity -= current.Quantity
	s.holdings[key] = h
	return nil
}

func (s *Store) GetAssetTransaction(ctx context.Context, id string) (*models.AssetTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.assetTxs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &tx, nil
}

func (s *Store) GetPaymentClaim(ctx context.Context, paymentTxHash string) (*models.PaymentClaim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.claims[models.ClaimID(paymentTxHash)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &c, nil
}

func (s *Store) GetHolding(ctx context.Context, userID, assetID string) (*models.Holding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.holdings[holdingKey{userID, assetID}]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &h, nil
}

func (s *Store) ListHoldings(ctx context.Context, userID string) ([]models.Holding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Holding
	for k, h := range s.holdings {
		if k.userID == userID && h.Quantity > 0 {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssetID < out[j].AssetID })
	return out, nil
}

// HeldShares sums every holding of an asset. Tests use it to check the supply bound.
func (s *Store) HeldShares(assetID string) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total uint32
	for k, h := range s.holdings {
		if k.assetID == assetID {
			total += h.Quantity
		}
	}
	return total
}
