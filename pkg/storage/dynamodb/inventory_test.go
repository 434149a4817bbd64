package dynamodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/chris/stealth-ledger/pkg/models"
	"github.com/chris/stealth-ledger/pkg/storage"
	"github.com/chris/stealth-ledger/pkg/storage/dynamodb/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func testAllocation(withClaim bool) storage.ShareAllocation {
	now := time.Now()
	alloc := storage.ShareAllocation{
		AssetID:           "villa-1",
		ExpectedAvailable: 10,
		NewAvailable:      4,
		NewStatus:         models.AssetActive,
		UnitPrice:         "2.5",
		Transaction: &models.AssetTransaction{
			ID: "r1", AssetID: "villa-1", BuyerUserID: "buyer", Quantity: 6, TotalPrice: "15",
			Status: models.AssetTxPending, TransactionHash: models.PendingHashPrefix + "r1",
			CreatedAt: now, UpdatedAt: now,
		},
	}
	if withClaim {
		alloc.Claim = &models.PaymentClaim{ID: models.ClaimID("0xpay"), PaymentTxHash: "0xpay", AssetTransactionID: "r1", ClaimedAt: now}
	}
	return alloc
}

func TestAllocateShares(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables())

		mockClient.On("TransactWriteItems", mock.Anything, mock.MatchedBy(func(in *dynamodb.TransactWriteItemsInput) bool {
			return len(in.TransactItems) == 3 &&
				*in.TransactItems[0].Update.ConditionExpression == "available_shares = :expected AND #status = :active"
		})).Return(&dynamodb.TransactWriteItemsOutput{}, nil).Once()

		err := store.AllocateShares(context.Background(), testAllocation(false))

		assert.NoError(t, err)
		mockClient.AssertExpectations(t)
	})

	t.Run("Success With Claim", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables())

		mockClient.On("TransactWriteItems", mock.Anything, mock.MatchedBy(func(in *dynamodb.TransactWriteItemsInput) bool {
			return len(in.TransactItems) == 4 && *in.TransactItems[3].Put.TableName == "asset_transactions"
		})).Return(&dynamodb.TransactWriteItemsOutput{}, nil).Once()

		err := store.AllocateShares(context.Background(), testAllocation(true))

		assert.NoError(t, err)
		mockClient.AssertExpectations(t)
	})

	t.Run("Pool Moved", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables())

		mockClient.On("TransactWriteItems", mock.Anything, mock.Anything).Return(nil, cancelledAt(0, 3)).Once()

		err := store.AllocateShares(context.Background(), testAllocation(false))

		assert.ErrorIs(t, err, storage.ErrVersionConflict)
		mockClient.AssertExpectations(t)
	})

	t.Run("Payment Already Claimed", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables())

		mockClient.On("TransactWriteItems", mock.Anything, mock.Anything).Return(nil, cancelledAt(3, 4)).Once()

		err := store.AllocateShares(context.Background(), testAllocation(true))

		assert.ErrorIs(t, err, storage.ErrAlreadyClaimed)
		mockClient.AssertExpectations(t)
	})

	t.Run("Transaction Fails", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables())

		mockClient.On("TransactWriteItems", mock.Anything, mock.Anything).Return(nil, errors.New("boom")).Once()

		err := store.AllocateShares(context.Background(), testAllocation(false))

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to execute share allocation")
		mockClient.AssertExpectations(t)
	})
}

func TestCompleteReservation(t *testing.T) {
	now := time.Now()
	reservation := &models.AssetTransaction{
		ID: "r1", AssetID: "villa-1", BuyerUserID: "buyer", Quantity: 6,
		Status: models.AssetTxPending, TransactionHash: "0xpay", PaymentTxHash: "0xpay", UpdatedAt: now,
	}
	claim := &models.PaymentClaim{ID: models.ClaimID("0xpay"), PaymentTxHash: "0xpay", AssetTransactionID: "r1", ClaimedAt: now}

	t.Run("Success", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables())

		mockClient.On("TransactWriteItems", mock.Anything, mock.Anything).Return(&dynamodb.TransactWriteItemsOutput{}, nil).Once()

		assert.NoError(t, store.CompleteReservation(context.Background(), reservation, claim))
		mockClient.AssertExpectations(t)
	})

	t.Run("Not Pending", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables())

		mockClient.On("TransactWriteItems", mock.Anything, mock.Anything).Return(nil, cancelledAt(0, 3)).Once()

		err := store.CompleteReservation(context.Background(), reservation, claim)

		assert.ErrorIs(t, err, storage.ErrStatusConflict)
		mockClient.AssertExpectations(t)
	})

	t.Run("Claim Exists", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables())

		mockClient.On("TransactWriteItems", mock.Anything, mock.Anything).Return(nil, cancelledAt(1, 3)).Once()

		err := store.CompleteReservation(context.Background(), reservation, claim)

		assert.ErrorIs(t, err, storage.ErrAlreadyClaimed)
		mockClient.AssertExpectations(t)
	})
}
