package mapping

import (
	"testing"
	"time"

	"github.com/chris/stealth-ledger/pkg/api"
	"github.com/chris/stealth-ledger/pkg/ingest"
	"github.com/chris/stealth-ledger/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount("18446744073709551615")
	require.NoError(t, err)
	assert.Equal(t, ^uint64(0), v)

	for _, bad := range []string{"", "-1", "1.5", "18446744073709551616", "ten"} {
		_, err := ParseAmount(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatUnits(t *testing.T) {
	assert.Equal(t, "1.5", FormatUnits(150_000_000, 8))
	assert.Equal(t, "0.00000001", FormatUnits(1, 8))
	assert.Equal(t, "42", FormatUnits(42, 0))
	assert.Equal(t, "0", FormatUnits(0, 6))
}

func TestToDomainPayment(t *testing.T) {
	label := "villa#r1"
	in, err := ToDomainPayment("user1", &api.NewPayment{
		TxHash: "0xh", Amount: "500", Decimals: 8, TokenAddress: "t", Label: &label,
	})

	require.NoError(t, err)
	assert.Equal(t, "user1", in.UserID)
	assert.Equal(t, uint64(500), in.Amount)
	assert.Equal(t, "villa#r1", in.Label)
	assert.Empty(t, in.Note)

	_, err = ToDomainPayment("user1", &api.NewPayment{Amount: "500", Decimals: 300})
	assert.Error(t, err)
}

func TestToApiWithdrawal(t *testing.T) {
	id := uuid.New()
	w := ToApiWithdrawal(&models.Withdrawal{
		ID: id.String(), Amount: 200, Status: models.WithdrawalDebited, TxHash: "0xout", CreatedAt: time.Now(),
	})

	assert.Equal(t, id, w.Id)
	assert.Equal(t, "200", w.Amount)
	assert.Equal(t, api.WithdrawalStatusDEBITED, w.Status)
	require.NotNil(t, w.TxHash)
	assert.Nil(t, w.FailureReason)
}

func TestToDomainScanRequest(t *testing.T) {
	since := "77"
	limit := 10
	req, err := ToDomainScanRequest("user1", &api.ScanRequest{CoinType: "c", SinceVersion: &since, Limit: &limit})

	require.NoError(t, err)
	require.NotNil(t, req.SinceVersion)
	assert.Equal(t, uint64(77), *req.SinceVersion)
	assert.Equal(t, 10, req.Limit)

	bad := "seventy"
	_, err = ToDomainScanRequest("user1", &api.ScanRequest{SinceVersion: &bad})
	assert.Error(t, err)
}

func TestToApiScanReport(t *testing.T) {
	r := ToApiScanReport(&ingest.Report{
		LatestVersion: 12,
		Payments: []ingest.Outcome{
			{TxHash: "0xa", Amount: 5, Status: ingest.StatusRecorded, PaymentID: "p1"},
			{TxHash: "0xb", Amount: 6, Status: ingest.StatusFailed, Error: "boom", ErrorCode: "UPSTREAM"},
		},
	})

	assert.Equal(t, "12", r.LatestVersion)
	assert.Nil(t, r.Payments[0].Error)
	require.NotNil(t, r.Payments[1].Error)
	assert.Equal(t, "UPSTREAM", r.Payments[1].Error.Code)
	assert.Equal(t, api.ScanOutcomeStatusFAILED, r.Payments[1].Status)
}

func TestToDomainNewAsset(t *testing.T) {
	_, err := ToDomainNewAsset(&api.NewAsset{AssetId: "a", TotalShares: 0, PricePerShare: "1"})
	assert.Error(t, err)

	_, err = ToDomainNewAsset(&api.NewAsset{AssetId: "a", TotalShares: 5, PricePerShare: "one"})
	assert.Error(t, err)

	in, err := ToDomainNewAsset(&api.NewAsset{AssetId: "a", TotalShares: 5, PricePerShare: "1.25"})
	require.NoError(t, err)
	assert.Equal(t, uint32(5), in.TotalShares)
}
