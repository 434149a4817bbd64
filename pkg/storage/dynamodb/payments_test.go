package dynamodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/stealth-ledger/pkg/models"
	"github.com/chris/stealth-ledger/pkg/storage"
	"github.com/chris/stealth-ledger/pkg/storage/dynamodb/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testTables() Tables {
	return Tables{
		Payments:            "payments",
		Balances:            "balances",
		BalanceTransactions: "balance_transactions",
		Withdrawals:         "withdrawals",
		Assets:              "assets",
		Holdings:            "holdings",
		AssetTransactions:   "asset_transactions",
		Attributions:        "attributions",
	}
}

func TestInsertPayment(t *testing.T) {
	payment := &models.StealthPayment{ID: "p1", UserID: "user1", TxHash: "0xh1", Amount: 500, CreditStatus: models.CreditPending}

	t.Run("Success", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables())

		mockClient.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
			return *in.TableName == "payments" && *in.ConditionExpression == "attribute_not_exists(tx_hash)"
		})).Return(&dynamodb.PutItemOutput{}, nil).Once()

		err := store.InsertPayment(context.Background(), payment)

		assert.NoError(t, err)
		mockClient.AssertExpectations(t)
	})

	t.Run("Duplicate Tx Hash", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables())

		mockClient.On("PutItem", mock.Anything, mock.Anything).
			Return(nil, &types.ConditionalCheckFailedException{Message: aws.String("exists")}).Once()

		err := store.InsertPayment(context.Background(), payment)

		assert.ErrorIs(t, err, storage.ErrAlreadyExists)
		mockClient.AssertExpectations(t)
	})

	t.Run("Storage Error", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables())

		mockClient.On("PutItem", mock.Anything, mock.Anything).Return(nil, errors.New("throttled")).Once()

		err := store.InsertPayment(context.Background(), payment)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to insert payment")
		mockClient.AssertExpectations(t)
	})
}

func TestGetPaymentByTxHash(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables())

		expected := models.StealthPayment{ID: "p1", UserID: "user1", TxHash: "0xh1", Amount: 500, BalanceCredited: true}
		av, err := attributevalue.MarshalMap(expected)
		require.NoError(t, err)
		mockClient.On("GetItem", mock.Anything, mock.Anything).Once().Return(&dynamodb.GetItemOutput{Item: av}, nil)

		payment, err := store.GetPaymentByTxHash(context.Background(), "0xh1")

		assert.NoError(t, err)
		assert.Equal(t, "p1", payment.ID)
		assert.True(t, payment.BalanceCredited)
		mockClient.AssertExpectations(t)
	})

	t.Run("Not Found", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables())

		mockClient.On("GetItem", mock.Anything, mock.Anything).Once().Return(&dynamodb.GetItemOutput{}, nil)

		_, err := store.GetPaymentByTxHash(context.Background(), "0xmissing")

		assert.ErrorIs(t, err, storage.ErrNotFound)
		mockClient.AssertExpectations(t)
	})
}

func TestListUncreditedPayments(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables())

		item, err := attributevalue.MarshalMap(models.StealthPayment{ID: "p1", TxHash: "0xh1", CreditStatus: models.CreditPending, CreatedAt: time.Now().Add(-time.Hour)})
		require.NoError(t, err)
		mockClient.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
			return *in.IndexName == paymentsCreditGSI
		})).Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{item}}, nil).Once()

		payments, err := store.ListUncreditedPayments(context.Background(), 10*time.Minute)

		assert.NoError(t, err)
		assert.Len(t, payments, 1)
		assert.Equal(t, "0xh1", payments[0].TxHash)
		mockClient.AssertExpectations(t)
	})

	t.Run("Storage Error", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables())

		mockClient.On("Query", mock.Anything, mock.Anything).Return(nil, errors.New("query failed")).Once()

		_, err := store.ListUncreditedPayments(context.Background(), 10*time.Minute)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to query for uncredited payments")
		mockClient.AssertExpectations(t)
	})
}
