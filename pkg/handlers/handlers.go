package handlers

import (
	"net/http"

	"github.com/chris/stealth-ledger/pkg/api"
	"github.com/chris/stealth-ledger/pkg/handlers/assets"
	"github.com/chris/stealth-ledger/pkg/handlers/balances"
	"github.com/chris/stealth-ledger/pkg/handlers/payments"
	"github.com/chris/stealth-ledger/pkg/handlers/respond"
	"github.com/chris/stealth-ledger/pkg/handlers/withdrawals"
)

// ApiHandler implements the generated server interface by composing the
// per-area handlers.
type ApiHandler struct {
	*payments.PaymentsHandler
	*balances.BalancesHandler
	*withdrawals.WithdrawalsHandler
	*assets.AssetsHandler
}

// Make sure we conform to the interface
var _ api.ServerInterface = (*ApiHandler)(nil)

// NewApiHandler creates a new ApiHandler.
func NewApiHandler(
	p *payments.PaymentsHandler,
	b *balances.BalancesHandler,
	w *withdrawals.WithdrawalsHandler,
	a *assets.AssetsHandler,
) *ApiHandler {
	return &ApiHandler{
		PaymentsHandler:    p,
		BalancesHandler:    b,
		WithdrawalsHandler: w,
		AssetsHandler:      a,
	}
}

func (h *ApiHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, api.Health{Status: "ok"})
}
