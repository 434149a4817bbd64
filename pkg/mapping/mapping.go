package mapping

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chris/stealth-ledger/pkg/api"
	"github.com/chris/stealth-ledger/pkg/ingest"
	"github.com/chris/stealth-ledger/pkg/inventory"
	"github.com/chris/stealth-ledger/pkg/ledger"
	"github.com/chris/stealth-ledger/pkg/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ParseAmount parses a base-unit token amount. Amounts travel as strings so that
// values above 2^53 survive JSON clients.
func ParseAmount(s string) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: must be a non-negative integer in base units", s)
	}
	return v, nil
}

// FormatAmount renders a base-unit amount.
func FormatAmount(v uint64) string {
	return strconv.FormatUint(v, 10)
}

// FormatUnits renders a base-unit amount in display units, e.g. 150000000 with 8
// decimals is "1.5".
func FormatUnits(amount uint64, decimals uint8) string {
	return inventory.DisplayAmount(amount, decimals).String()
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ToDomainPayment converts an API NewPayment to ledger input for userID.
func ToDomainPayment(userID string, p *api.NewPayment) (ledger.RecordPaymentInput, error) {
	amount, err := ParseAmount(p.Amount)
	if err != nil {
		return ledger.RecordPaymentInput{}, err
	}
	if p.Decimals < 0 || p.Decimals > 255 {
		return ledger.RecordPaymentInput{}, fmt.Errorf("invalid decimals %d", p.Decimals)
	}
	return ledger.RecordPaymentInput{
		UserID:          userID,
		TxHash:          p.TxHash,
		StealthAddress:  p.StealthAddress,
		PayerAddress:    p.PayerAddress,
		Amount:          amount,
		TokenSymbol:     p.TokenSymbol,
		TokenAddress:    p.TokenAddress,
		Decimals:        uint8(p.Decimals),
		Label:           value(p.Label),
		Note:            value(p.Note),
		EphemeralPubkey: p.EphemeralPubkey,
	}, nil
}

// ToApiPaymentRecorded converts a ledger result to the API model.
func ToApiPaymentRecorded(res *ledger.RecordResult) *api.PaymentRecorded {
	return &api.PaymentRecorded{
		PaymentId:       res.PaymentID,
		AlreadyCredited: res.AlreadyCredited,
	}
}

// ToDomainScanRequest converts an API ScanRequest for userID.
func ToDomainScanRequest(userID string, req *api.ScanRequest) (ingest.Request, error) {
	out := ingest.Request{
		UserID:   userID,
		ViewKey:  req.ViewKey,
		SpendKey: req.SpendKey,
		CoinType: req.CoinType,
	}
	if req.Limit != nil {
		out.Limit = *req.Limit
	}
	if req.SinceVersion != nil && *req.SinceVersion != "" {
		v, err := strconv.ParseUint(*req.SinceVersion, 10, 64)
		if err != nil {
			return ingest.Request{}, fmt.Errorf("invalid sinceVersion %q", *req.SinceVersion)
		}
		out.SinceVersion = &v
	}
	return out, nil
}

// ToApiScanReport converts an ingest report to the API model.
func ToApiScanReport(r *ingest.Report) *api.ScanReport {
	payments := make([]api.ScanOutcome, len(r.Payments))
	for i, p := range r.Payments {
		payments[i] = api.ScanOutcome{
			TxHash:         p.TxHash,
			StealthAddress: p.StealthAddress,
			Amount:         FormatAmount(p.Amount),
			Label:          optional(p.Label),
			PaymentId:      optional(p.PaymentID),
			Status:         api.ScanOutcomeStatus(p.Status),
		}
		if p.Error != "" {
			payments[i].Error = &api.Error{Code: p.ErrorCode, Message: p.Error}
		}
	}
	return &api.ScanReport{
		Scanned:       r.Scanned,
		Owned:         r.Owned,
		Recorded:      r.Recorded,
		Failed:        r.Failed,
		LatestVersion: strconv.FormatUint(r.LatestVersion, 10),
		Payments:      payments,
	}
}

// ToApiBalance converts a domain UserBalance to an API Balance.
func ToApiBalance(b *models.UserBalance) *api.Balance {
	return &api.Balance{
		UserId:         b.UserID,
		TokenSymbol:    b.TokenSymbol,
		TokenAddress:   b.TokenAddress,
		Decimals:       int(b.Decimals),
		Balance:        FormatAmount(b.Balance),
		Available:      FormatAmount(b.Available),
		DisplayBalance: FormatUnits(b.Balance, b.Decimals),
		UpdatedAt:      b.UpdatedAt,
	}
}

// ToApiLedgerEntry converts a domain BalanceTransaction to an API LedgerEntry.
func ToApiLedgerEntry(e *models.BalanceTransaction) *api.LedgerEntry {
	return &api.LedgerEntry{
		Id:            e.ID,
		Sequence:      e.Sequence,
		Type:          api.LedgerEntryType(e.Type),
		Amount:        FormatAmount(e.Amount),
		TokenAddress:  e.TokenAddress,
		PaymentId:     optional(e.PaymentID),
		TxHash:        optional(e.TxHash),
		BalanceBefore: FormatAmount(e.BalanceBefore),
		BalanceAfter:  FormatAmount(e.BalanceAfter),
		Note:          optional(e.Note),
		CreatedAt:     e.CreatedAt,
	}
}

// ToApiWithdrawal converts a domain Withdrawal to an API Withdrawal.
func ToApiWithdrawal(w *models.Withdrawal) *api.Withdrawal {
	id, err := uuid.Parse(w.ID)
	if err != nil {
		id = uuid.Nil
	}
	return &api.Withdrawal{
		Id:            id,
		UserId:        w.UserID,
		Destination:   w.Destination,
		TokenAddress:  w.TokenAddress,
		Amount:        FormatAmount(w.Amount),
		Status:        api.WithdrawalStatus(w.Status),
		TxHash:        optional(w.TxHash),
		FailureReason: optional(w.FailureReason),
		CreatedAt:     w.CreatedAt,
		UpdatedAt:     w.UpdatedAt,
	}
}

// ToApiAsset converts a domain Asset to an API Asset.
func ToApiAsset(a *models.Asset) *api.Asset {
	return &api.Asset{
		AssetId:         a.AssetID,
		Name:            a.Name,
		Location:        a.Location,
		TotalShares:     int(a.TotalShares),
		AvailableShares: int(a.AvailableShares),
		PricePerShare:   a.PricePerShare,
		TokenAddress:    a.TokenAddress,
		Status:          api.AssetStatus(a.Status),
		CreatedAt:       a.CreatedAt,
	}
}

// ToDomainNewAsset converts an API NewAsset to inventory input.
func ToDomainNewAsset(a *api.NewAsset) (inventory.CreateAssetInput, error) {
	if a.TotalShares <= 0 || int64(a.TotalShares) > int64(^uint32(0)) {
		return inventory.CreateAssetInput{}, fmt.Errorf("totalShares must be between 1 and %d", ^uint32(0))
	}
	if _, err := decimal.NewFromString(a.PricePerShare); err != nil {
		return inventory.CreateAssetInput{}, fmt.Errorf("invalid pricePerShare %q", a.PricePerShare)
	}
	return inventory.CreateAssetInput{
		AssetID:       a.AssetId,
		Name:          a.Name,
		Location:      value(a.Location),
		TotalShares:   uint32(a.TotalShares),
		PricePerShare: a.PricePerShare,
		TokenAddress:  a.TokenAddress,
	}, nil
}

// ToApiReservation converts an inventory Reservation to the API model.
func ToApiReservation(r *inventory.Reservation) *api.Reservation {
	return &api.Reservation{
		ReservationId:   r.ID,
		AssetId:         r.AssetID,
		Quantity:        int(r.Quantity),
		TotalPrice:      r.TotalPrice,
		TransactionHash: r.TransactionHash,
		PaymentLabel:    r.PaymentLabel,
	}
}

// ToApiPurchase converts a finalize result to the API model.
func ToApiPurchase(r *inventory.FinalizeResult) *api.Purchase {
	return &api.Purchase{
		AssetTransactionId: r.AssetTransactionID,
		AssetId:            r.AssetID,
		Quantity:           int(r.Quantity),
		TotalPrice:         r.TotalPrice,
		TransactionHash:    r.TransactionHash,
		AlreadyFinalized:   r.AlreadyFinalized,
	}
}

// ToApiPortfolio converts an inventory Portfolio to the API model.
func ToApiPortfolio(p *inventory.Portfolio) *api.Portfolio {
	positions := make([]api.Position, len(p.Positions))
	for i, pos := range p.Positions {
		positions[i] = api.Position{
			AssetId:       pos.AssetID,
			AssetName:     pos.AssetName,
			Location:      pos.Location,
			Quantity:      int(pos.Quantity),
			PurchasePrice: pos.PurchasePrice,
			PricePerShare: pos.PricePerShare,
			Value:         pos.Value,
			TokenAddress:  pos.TokenAddress,
			PurchaseDate:  pos.PurchaseDate,
		}
	}
	return &api.Portfolio{
		UserId:    p.UserID,
		Positions: positions,
		Totals:    p.Totals,
	}
}
