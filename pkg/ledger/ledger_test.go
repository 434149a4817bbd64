package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/chris/stealth-ledger/pkg/apperrors"
	"github.com/chris/stealth-ledger/pkg/models"
	"github.com/chris/stealth-ledger/pkg/notify"
	notifymocks "github.com/chris/stealth-ledger/pkg/notify/mocks"
	"github.com/chris/stealth-ledger/pkg/storage"
	"github.com/chris/stealth-ledger/pkg/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const token = "0x1::aptos_coin::AptosCoin"

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func paymentInput(txHash string, amount uint64) RecordPaymentInput {
	return RecordPaymentInput{
		UserID:         "user1",
		TxHash:         txHash,
		StealthAddress: "0xstealth",
		PayerAddress:   "0xpayer",
		Amount:         amount,
		TokenSymbol:    "APT",
		TokenAddress:   token,
		Decimals:       8,
	}
}

// flakyStore fails the first creditFailures credits with creditErr.
type flakyStore struct {
	*memory.Store
	mu             sync.Mutex
	creditErr      error
	creditFailures int
}

func (f *flakyStore) CreditPayment(ctx context.Context, credit storage.Credit) error {
	f.mu.Lock()
	if f.creditFailures > 0 {
		f.creditFailures--
		f.mu.Unlock()
		return f.creditErr
	}
	f.mu.Unlock()
	return f.Store.CreditPayment(ctx, credit)
}

func TestRecordPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("Credits New Balance", func(t *testing.T) {
		store := memory.New()
		notifier := notifymocks.NewNotifier(t)
		notifier.On("Notify", mock.Anything, mock.MatchedBy(func(e notify.Event) bool {
			return e.Kind == notify.KindPaymentRecorded && e.Reference == "h1" && e.Amount == 500
		})).Return(nil).Once()
		svc := NewService(store, notifier, discard())

		res, err := svc.RecordPayment(ctx, paymentInput("h1", 500))

		require.NoError(t, err)
		assert.NotEmpty(t, res.PaymentID)
		assert.False(t, res.AlreadyCredited)

		balance, err := svc.GetBalance(ctx, "user1", token)
		require.NoError(t, err)
		assert.Equal(t, uint64(500), balance.Balance)
		assert.Equal(t, uint64(500), balance.Available)

		entries, err := svc.ListTransactions(ctx, "user1", 0)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, models.Deposit, entries[0].Type)
		assert.Equal(t, uint64(0), entries[0].BalanceBefore)
		assert.Equal(t, uint64(500), entries[0].BalanceAfter)
		assert.Equal(t, res.PaymentID, entries[0].PaymentID)

		payment, err := store.GetPaymentByTxHash(ctx, "h1")
		require.NoError(t, err)
		assert.True(t, payment.BalanceCredited)
		assert.Equal(t, entries[0].ID, payment.BalanceTransactionID)
	})

	t.Run("Replay Is A No-op", func(t *testing.T) {
		store := memory.New()
		svc := NewService(store, nil, discard())

		first, err := svc.RecordPayment(ctx, paymentInput("h1", 500))
		require.NoError(t, err)
		second, err := svc.RecordPayment(ctx, paymentInput("h1", 500))
		require.NoError(t, err)

		assert.Equal(t, first.PaymentID, second.PaymentID)
		assert.True(t, second.AlreadyCredited)

		balance, _ := svc.GetBalance(ctx, "user1", token)
		assert.Equal(t, uint64(500), balance.Balance)
		entries, _ := svc.ListTransactions(ctx, "user1", 0)
		assert.Len(t, entries, 1)
	})

	t.Run("Same Hash Different User", func(t *testing.T) {
		svc := NewService(memory.New(), nil, discard())
		_, err := svc.RecordPayment(ctx, paymentInput("h1", 500))
		require.NoError(t, err)

		in := paymentInput("h1", 500)
		in.UserID = "user2"
		_, err = svc.RecordPayment(ctx, in)

		assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
	})

	t.Run("Validation", func(t *testing.T) {
		store := memory.New()
		svc := NewService(store, nil, discard())

		cases := map[string]func(*RecordPaymentInput){
			"zero amount":   func(in *RecordPaymentInput) { in.Amount = 0 },
			"no user":       func(in *RecordPaymentInput) { in.UserID = "" },
			"no tx hash":    func(in *RecordPaymentInput) { in.TxHash = "" },
			"no token":      func(in *RecordPaymentInput) { in.TokenAddress = "" },
			"no payer":      func(in *RecordPaymentInput) { in.PayerAddress = "" },
			"no stealth":    func(in *RecordPaymentInput) { in.StealthAddress = "" },
			"huge decimals": func(in *RecordPaymentInput) { in.Decimals = 19 },
		}
		for name, mutate := range cases {
			in := paymentInput("h-"+name, 10)
			mutate(&in)
			_, err := svc.RecordPayment(ctx, in)
			assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err), name)
		}

		_, err := store.GetPaymentByTxHash(ctx, "h-zero amount")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("Credit Failure Leaves Payment Uncredited", func(t *testing.T) {
		store := &flakyStore{Store: memory.New(), creditErr: errors.New("throughput exceeded"), creditFailures: 1}
		svc := NewService(store, nil, discard())

		_, err := svc.RecordPayment(ctx, paymentInput("h1", 500))

		assert.ErrorIs(t, err, apperrors.ErrPaymentRecordedCreditFailed)
		assert.Equal(t, apperrors.KindReconciliationRequired, apperrors.KindOf(err))

		payment, err := store.GetPaymentByTxHash(ctx, "h1")
		require.NoError(t, err)
		assert.False(t, payment.BalanceCredited)
		assert.Equal(t, models.CreditPending, payment.CreditStatus)

		// a later sweep repairs it
		res, err := svc.CreditPayment(ctx, "h1")
		require.NoError(t, err)
		assert.Equal(t, payment.ID, res.PaymentID)
		balance, _ := svc.GetBalance(ctx, "user1", token)
		assert.Equal(t, uint64(500), balance.Balance)
	})

	t.Run("Retries Version Conflicts", func(t *testing.T) {
		store := &flakyStore{Store: memory.New(), creditErr: storage.ErrVersionConflict, creditFailures: 3}
		svc := NewService(store, nil, discard())

		_, err := svc.RecordPayment(ctx, paymentInput("h1", 500))

		assert.NoError(t, err)
	})

	t.Run("Gives Up After Persistent Conflicts", func(t *testing.T) {
		store := &flakyStore{Store: memory.New(), creditErr: storage.ErrVersionConflict, creditFailures: maxWriteAttempts}
		svc := NewService(store, nil, discard())

		_, err := svc.RecordPayment(ctx, paymentInput("h1", 500))

		assert.ErrorIs(t, err, apperrors.ErrPaymentRecordedCreditFailed)
	})

	t.Run("Notifier Failure Does Not Fail Credit", func(t *testing.T) {
		notifier := notifymocks.NewNotifier(t)
		notifier.On("Notify", mock.Anything, mock.Anything).Return(errors.New("queue down")).Once()
		svc := NewService(memory.New(), notifier, discard())

		_, err := svc.RecordPayment(ctx, paymentInput("h1", 500))

		assert.NoError(t, err)
	})
}

func TestConcurrentCredits(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.New(), nil, discard())

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers*2)
	for i := 0; i < workers; i++ {
		wg.Add(2)
		in := paymentInput(fmt.Sprintf("h%d", i), uint64(10+i))
		// every payment is detected twice concurrently
		for j := 0; j < 2; j++ {
			go func() {
				defer wg.Done()
				if _, err := svc.RecordPayment(ctx, in); err != nil {
					errs <- err
				}
			}()
		}
	}
	wg.Wait()
	close(errs)

	// Contention can exhaust the retry budget; such payments stay uncredited for the sweep.
	for err := range errs {
		assert.ErrorIs(t, err, apperrors.ErrPaymentRecordedCreditFailed)
	}
	for i := 0; i < workers; i++ {
		_, err := svc.CreditPayment(ctx, fmt.Sprintf("h%d", i))
		require.NoError(t, err)
	}

	var want uint64
	for i := 0; i < workers; i++ {
		want += uint64(10 + i)
	}
	balance, err := svc.GetBalance(ctx, "user1", token)
	require.NoError(t, err)
	assert.Equal(t, want, balance.Balance)

	replayed, err := svc.ReplayBalance(ctx, "user1", token)
	require.NoError(t, err)
	assert.Equal(t, balance.Balance, replayed)

	entries, _ := svc.ListTransactions(ctx, "user1", maxHistoryLimit)
	assert.Len(t, entries, workers)
}

func TestReplay(t *testing.T) {
	t.Run("Consistent Log", func(t *testing.T) {
		got, err := Replay([]models.BalanceTransaction{
			{Type: models.Deposit, Amount: 500, BalanceBefore: 0, BalanceAfter: 500},
			{Type: models.Withdraw, Amount: 200, BalanceBefore: 500, BalanceAfter: 300},
		})

		assert.NoError(t, err)
		assert.Equal(t, uint64(300), got)
	})

	t.Run("Broken Chain", func(t *testing.T) {
		_, err := Replay([]models.BalanceTransaction{
			{Type: models.Deposit, Amount: 500, BalanceBefore: 0, BalanceAfter: 500},
			{Type: models.Deposit, Amount: 1, BalanceBefore: 400, BalanceAfter: 401},
		})

		assert.Error(t, err)
	})

	t.Run("Wrong After", func(t *testing.T) {
		_, err := Replay([]models.BalanceTransaction{
			{Type: models.Deposit, Amount: 500, BalanceBefore: 0, BalanceAfter: 501},
		})

		assert.Error(t, err)
	})
}

func TestReads(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.New(), nil, discard())

	t.Run("Unknown Balance", func(t *testing.T) {
		_, err := svc.GetBalance(ctx, "nobody", token)
		assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	})

	t.Run("Empty Lists", func(t *testing.T) {
		balances, err := svc.ListBalances(ctx, "nobody")
		require.NoError(t, err)
		assert.NotNil(t, balances)
		assert.Empty(t, balances)

		entries, err := svc.ListTransactions(ctx, "nobody", 10)
		require.NoError(t, err)
		assert.NotNil(t, entries)
	})

	t.Run("Negative Limit", func(t *testing.T) {
		_, err := svc.ListTransactions(ctx, "user1", -1)
		assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	})
}
