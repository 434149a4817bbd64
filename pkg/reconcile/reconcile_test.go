package reconcile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/chris/stealth-ledger/pkg/chain"
	"github.com/chris/stealth-ledger/pkg/chain/mocks"
	"github.com/chris/stealth-ledger/pkg/ledger"
	"github.com/chris/stealth-ledger/pkg/models"
	"github.com/chris/stealth-ledger/pkg/storage/memory"
	"github.com/chris/stealth-ledger/pkg/withdrawal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const token = "0x1::aptos_coin::AptosCoin"

type fixture struct {
	store  *memory.Store
	ledger *ledger.Service
	chain  *mocks.Client
	rec    *Reconciler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()
	store.SetClock(func() time.Time { return time.Now().Add(time.Hour) })
	led := ledger.NewService(store, nil, logger)
	client := mocks.NewClient(t)
	wd := withdrawal.NewService(store, led, client, "", time.Second, logger)
	return &fixture{
		store:  store,
		ledger: led,
		chain:  client,
		rec:    New(store, led, wd, client, logger),
	}
}

// strand stores a payment whose credit never happened.
func (f *fixture) strand(t *testing.T, txHash string, amount uint64) {
	t.Helper()
	now := time.Now()
	require.NoError(t, f.store.InsertPayment(context.Background(), &models.StealthPayment{
		ID: "p-" + txHash, UserID: "user1", TxHash: txHash, StealthAddress: "0xs", PayerAddress: "0xp",
		Amount: amount, TokenSymbol: "APT", TokenAddress: token, Decimals: 8,
		Status: models.PaymentConfirmed, ConfirmedAt: now, CreditStatus: models.CreditPending, CreatedAt: now,
	}))
}

func (f *fixture) withdrawalIn(t *testing.T, id string, status models.WithdrawalStatus, txHash string) {
	t.Helper()
	now := time.Now()
	require.NoError(t, f.store.CreateWithdrawal(context.Background(), &models.Withdrawal{
		ID: id, UserID: "user1", Destination: "0xdest", TokenAddress: token, Amount: 10,
		Status: status, TxHash: txHash, CreatedAt: now, UpdatedAt: now,
	}))
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("Credits Stranded Payments", func(t *testing.T) {
		f := newFixture(t)
		f.strand(t, "0xa", 100)
		f.strand(t, "0xb", 50)

		report, err := f.rec.Run(ctx, 5*time.Minute)

		require.NoError(t, err)
		assert.Equal(t, 2, report.Credited)
		assert.Empty(t, report.Stuck)

		b, err := f.ledger.GetBalance(ctx, "user1", token)
		require.NoError(t, err)
		assert.Equal(t, uint64(150), b.Balance)

		// A second pass finds nothing to do.
		report, err = f.rec.Run(ctx, 5*time.Minute)
		require.NoError(t, err)
		assert.Zero(t, report.Credited)
		assert.Zero(t, report.CreditFailed)
	})

	t.Run("Reports Stuck Withdrawals", func(t *testing.T) {
		f := newFixture(t)
		f.withdrawalIn(t, "w-timeout", models.WithdrawalConfirmationTimeout, "0xlost")
		f.withdrawalIn(t, "w-debit", models.WithdrawalDebitFailed, "0xdone")
		f.withdrawalIn(t, "w-flaky", models.WithdrawalSubmitted, "0xflaky")
		f.withdrawalIn(t, "w-ok", models.WithdrawalDebited, "0xfine")
		f.withdrawalIn(t, "w-held", models.WithdrawalBalanceChecked, "")
		f.withdrawalIn(t, "w-new", models.WithdrawalRequested, "")
		f.withdrawalIn(t, "w-unsure", models.WithdrawalSubmissionUnknown, "")

		f.chain.On("GetTransactionByHash", mock.Anything, "0xlost").Return(nil, chain.ErrNotFound).Once()
		f.chain.On("GetTransactionByHash", mock.Anything, "0xdone").Return(&chain.Transaction{Hash: "0xdone", Success: true}, nil).Once()
		f.chain.On("GetTransactionByHash", mock.Anything, "0xflaky").Return(nil, errors.New("503")).Once()

		report, err := f.rec.Run(ctx, 5*time.Minute)

		require.NoError(t, err)
		require.Len(t, report.Stuck, 6)
		states := map[string]string{}
		for _, s := range report.Stuck {
			states[s.WithdrawalID] = s.ChainState
		}
		assert.Equal(t, map[string]string{
			"w-timeout": ChainNotFound,
			"w-debit":   ChainSucceeded,
			"w-flaky":   ChainUnknown,
			"w-held":    ChainNotSubmitted,
			"w-new":     ChainNotSubmitted,
			"w-unsure":  ChainNotSubmitted,
		}, states)
		f.chain.AssertNotCalled(t, "SubmitTransfer", mock.Anything, mock.Anything)
	})

	t.Run("Too Young", func(t *testing.T) {
		f := newFixture(t)
		f.strand(t, "0xa", 100)

		report, err := f.rec.Run(ctx, 2*time.Hour)

		require.NoError(t, err)
		assert.Zero(t, report.Credited)
	})
}
