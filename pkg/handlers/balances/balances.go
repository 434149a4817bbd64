package balances

import (
	"context"
	"net/http"

	"github.com/chris/stealth-ledger/pkg/api"
	"github.com/chris/stealth-ledger/pkg/handlers/respond"
	"github.com/chris/stealth-ledger/pkg/mapping"
	"github.com/chris/stealth-ledger/pkg/models"
)

// Reader is the read side of the ledger.
type Reader interface {
	GetBalance(ctx context.Context, userID, tokenAddress string) (*models.UserBalance, error)
	ListBalances(ctx context.Context, userID string) ([]models.UserBalance, error)
	ListTransactions(ctx context.Context, userID string, limit int) ([]models.BalanceTransaction, error)
}

// BalancesHandler holds the dependencies for balance-related handlers.
type BalancesHandler struct {
	Ledger Reader
}

// NewBalancesHandler creates a new BalancesHandler.
func NewBalancesHandler(ledger Reader) *BalancesHandler {
	return &BalancesHandler{Ledger: ledger}
}

func (h *BalancesHandler) ListBalances(w http.ResponseWriter, r *http.Request, userId string) {
	balances, err := h.Ledger.ListBalances(r.Context(), userId)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	apiBalances := make([]*api.Balance, len(balances))
	for i, b := range balances {
		apiBalances[i] = mapping.ToApiBalance(&b)
	}
	respond.JSON(w, http.StatusOK, apiBalances)
}

func (h *BalancesHandler) GetBalance(w http.ResponseWriter, r *http.Request, userId string, params api.GetBalanceParams) {
	balance, err := h.Ledger.GetBalance(r.Context(), userId, params.Token)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, mapping.ToApiBalance(balance))
}

// ListTransactions returns the user's ledger entries, newest first.
func (h *BalancesHandler) ListTransactions(w http.ResponseWriter, r *http.Request, userId string, params api.ListTransactionsParams) {
	limit := 0
	if params.Limit != nil {
		limit = *params.Limit
	}

	entries, err := h.Ledger.ListTransactions(r.Context(), userId, limit)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	apiEntries := make([]*api.LedgerEntry, len(entries))
	for i, entry := range entries {
		apiEntries[i] = mapping.ToApiLedgerEntry(&entry)
	}
	respond.JSON(w, http.StatusOK, apiEntries)
}
