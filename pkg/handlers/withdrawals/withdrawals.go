package withdrawals

import (
	"context"
	"net/http"

	"github.com/chris/stealth-ledger/pkg/api"
	"github.com/chris/stealth-ledger/pkg/apperrors"
	"github.com/chris/stealth-ledger/pkg/handlers/respond"
	"github.com/chris/stealth-ledger/pkg/mapping"
	"github.com/chris/stealth-ledger/pkg/models"
	"github.com/chris/stealth-ledger/pkg/withdrawal"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

// Sequencer runs and looks up withdrawals.
type Sequencer interface {
	Withdraw(ctx context.Context, in withdrawal.WithdrawInput) (*withdrawal.Result, error)
	GetWithdrawal(ctx context.Context, id string) (*models.Withdrawal, error)
	ListWithdrawals(ctx context.Context, userID string) ([]models.Withdrawal, error)
}

// WithdrawalsHandler holds the dependencies for withdrawal-related handlers.
type WithdrawalsHandler struct {
	Service Sequencer
}

// NewWithdrawalsHandler creates a new WithdrawalsHandler.
func NewWithdrawalsHandler(service Sequencer) *WithdrawalsHandler {
	return &WithdrawalsHandler{Service: service}
}

// CreateWithdrawal sends funds on chain and debits the balance once confirmed.
// The request blocks until the withdrawal is debited or has failed.
func (h *WithdrawalsHandler) CreateWithdrawal(w http.ResponseWriter, r *http.Request, userId string) {
	var body api.NewWithdrawal
	if err := respond.Decode(r, &body); err != nil {
		respond.Error(w, r, err)
		return
	}

	amount, err := mapping.ParseAmount(body.Amount)
	if err != nil {
		respond.Error(w, r, apperrors.Validation("%v", err))
		return
	}

	res, err := h.Service.Withdraw(r.Context(), withdrawal.WithdrawInput{
		UserID:       userId,
		Destination:  body.Destination,
		TokenAddress: body.TokenAddress,
		Amount:       amount,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, api.WithdrawalResult{
		Withdrawal: *mapping.ToApiWithdrawal(res.Withdrawal),
		Entry:      *mapping.ToApiLedgerEntry(res.Entry),
	})
}

func (h *WithdrawalsHandler) GetWithdrawal(w http.ResponseWriter, r *http.Request, withdrawalId openapi_types.UUID) {
	wd, err := h.Service.GetWithdrawal(r.Context(), withdrawalId.String())
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, mapping.ToApiWithdrawal(wd))
}

func (h *WithdrawalsHandler) ListWithdrawals(w http.ResponseWriter, r *http.Request, userId string) {
	list, err := h.Service.ListWithdrawals(r.Context(), userId)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	apiList := make([]*api.Withdrawal, len(list))
	for i, wd := range list {
		apiList[i] = mapping.ToApiWithdrawal(&wd)
	}
	respond.JSON(w, http.StatusOK, apiList)
}
