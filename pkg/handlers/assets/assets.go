package assets

import (
	"context"
	"math"
	"net/http"

	"github.com/chris/stealth-ledger/pkg/api"
	"github.com/chris/stealth-ledger/pkg/apperrors"
	"github.com/chris/stealth-ledger/pkg/handlers/respond"
	"github.com/chris/stealth-ledger/pkg/inventory"
	"github.com/chris/stealth-ledger/pkg/mapping"
	"github.com/chris/stealth-ledger/pkg/models"
)

// Inventory is the share inventory ledger.
type Inventory interface {
	CreateAsset(ctx context.Context, in inventory.CreateAssetInput) (*models.Asset, error)
	ListAssets(ctx context.Context) ([]models.Asset, error)
	Reserve(ctx context.Context, assetID, userID string, quantity uint32) (*inventory.Reservation, error)
	CancelReservation(ctx context.Context, userID, reservationID string) error
	Finalize(ctx context.Context, in inventory.FinalizeInput) (*inventory.FinalizeResult, error)
	GetPortfolio(ctx context.Context, userID string) (*inventory.Portfolio, error)
}

// AssetsHandler holds the dependencies for asset and share handlers.
type AssetsHandler struct {
	Inventory Inventory
}

// NewAssetsHandler creates a new AssetsHandler.
func NewAssetsHandler(inv Inventory) *AssetsHandler {
	return &AssetsHandler{Inventory: inv}
}

func (h *AssetsHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.Inventory.ListAssets(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	apiAssets := make([]*api.Asset, len(assets))
	for i, a := range assets {
		apiAssets[i] = mapping.ToApiAsset(&a)
	}
	respond.JSON(w, http.StatusOK, apiAssets)
}

// CreateAsset lists a new asset with its full share supply available.
func (h *AssetsHandler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	var body api.NewAsset
	if err := respond.Decode(r, &body); err != nil {
		respond.Error(w, r, err)
		return
	}

	in, err := mapping.ToDomainNewAsset(&body)
	if err != nil {
		respond.Error(w, r, apperrors.Validation("%v", err))
		return
	}

	asset, err := h.Inventory.CreateAsset(r.Context(), in)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, mapping.ToApiAsset(asset))
}

// ReserveShares takes shares out of the pool until a payment settles them.
func (h *AssetsHandler) ReserveShares(w http.ResponseWriter, r *http.Request, assetId string) {
	var body api.NewReservation
	if err := respond.Decode(r, &body); err != nil {
		respond.Error(w, r, err)
		return
	}
	if body.Quantity <= 0 || int64(body.Quantity) > math.MaxUint32 {
		respond.Error(w, r, apperrors.Validation("quantity must be between 1 and %d", uint32(math.MaxUint32)))
		return
	}

	res, err := h.Inventory.Reserve(r.Context(), assetId, body.UserId, uint32(body.Quantity))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, mapping.ToApiReservation(res))
}

func (h *AssetsHandler) CancelReservation(w http.ResponseWriter, r *http.Request, userId string, reservationId string) {
	if err := h.Inventory.CancelReservation(r.Context(), userId, reservationId); err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.NoContent(w)
}

// FinalizePurchase settles shares with a confirmed payment.
func (h *AssetsHandler) FinalizePurchase(w http.ResponseWriter, r *http.Request, userId string) {
	var body api.FinalizePurchase
	if err := respond.Decode(r, &body); err != nil {
		respond.Error(w, r, err)
		return
	}

	in := inventory.FinalizeInput{UserID: userId, PaymentTxHash: body.PaymentTxHash}
	if body.ReservationId != nil {
		in.ReservationID = *body.ReservationId
	}

	res, err := h.Inventory.Finalize(r.Context(), in)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	status := http.StatusCreated
	if res.AlreadyFinalized {
		status = http.StatusOK
	}
	respond.JSON(w, status, mapping.ToApiPurchase(res))
}

func (h *AssetsHandler) GetPortfolio(w http.ResponseWriter, r *http.Request, userId string) {
	portfolio, err := h.Inventory.GetPortfolio(r.Context(), userId)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, mapping.ToApiPortfolio(portfolio))
}
