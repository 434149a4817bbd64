package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/stealth-ledger/pkg/models"
	"github.com/chris/stealth-ledger/pkg/storage"
)

// InsertPayment creates the payment row. The tx_hash key makes concurrent
// detections of the same transaction collapse to one row.
func (s *Store) InsertPayment(ctx context.Context, payment *models.StealthPayment) error {
	paymentAV, err := attributevalue.MarshalMap(payment)
	if err != nil {
		return fmt.Errorf("failed to marshal payment: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName:           aws.String(s.Tables.Payments),
		Item:                paymentAV,
		ConditionExpression: aws.String("attribute_not_exists(tx_hash)"),
	}

	if _, err := s.Client.PutItem(ctx, input); err != nil {
		if isConditionFailed(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert payment: %w", err)
	}

	return nil
}

// GetPaymentByTxHash retrieves a payment by transaction hash.
func (s *Store) GetPaymentByTxHash(ctx context.Context, txHash string) (*models.StealthPayment, error) {
	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.Tables.Payments),
		Key:            stringKey("tx_hash", txHash),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get payment from DynamoDB: %w", err)
	}

	if result.Item == nil {
		return nil, storage.ErrNotFound
	}

	var payment models.StealthPayment
	if err := attributevalue.UnmarshalMap(result.Item, &payment); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment: %w", err)
	}

	return &payment, nil
}

// ListUncreditedPayments queries the credit status index for rows left in the
// needs-reconciliation state for longer than minAge.
func (s *Store) ListUncreditedPayments(ctx context.Context, minAge time.Duration) ([]models.StealthPayment, error) {
	cutoffTime := time.Now().Add(-minAge)
	cutoffTimeStr, err := cutoffTime.MarshalText()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cutoff time: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.Tables.Payments),
		IndexName:              aws.String(paymentsCreditGSI),
		KeyConditionExpression: aws.String("credit_status = :status AND created_at < :cutoff"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(models.CreditPending)},
			":cutoff": &types.AttributeValueMemberS{Value: string(cutoffTimeStr)},
		},
	}

	result, err := s.Client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query for uncredited payments: %w", err)
	}

	var payments []models.StealthPayment
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &payments); err != nil {
		return nil, fmt.Errorf("failed to unmarshal uncredited payments: %w", err)
	}

	return payments, nil
}
