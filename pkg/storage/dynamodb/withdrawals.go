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

// CreateWithdrawal inserts a new withdrawal record.
func (s *Store) CreateWithdrawal(ctx context.Context, w *models.Withdrawal) error {
	withdrawalAV, err := attributevalue.MarshalMap(w)
	if err != nil {
		return fmt.Errorf("failed to marshal withdrawal: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName:           aws.String(s.Tables.Withdrawals),
		Item:                withdrawalAV,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	}

	if _, err := s.Client.PutItem(ctx, input); err != nil {
		if isConditionFailed(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create withdrawal: %w", err)
	}

	return nil
}

// UpdateWithdrawal performs a conditional status transition.
func (s *Store) UpdateWithdrawal(ctx context.Context, w *models.Withdrawal, from models.WithdrawalStatus) error {
	values, err := marshalValues(map[string]any{
		":to":     string(w.Status),
		":from":   string(from),
		":hash":   w.TxHash,
		":reason": w.FailureReason,
		":now":    w.UpdatedAt,
	})
	if err != nil {
		return err
	}

	input := &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.Tables.Withdrawals),
		Key:                 stringKey("id", w.ID),
		UpdateExpression:    aws.String("SET #status = :to, tx_hash = :hash, failure_reason = :reason, updated_at = :now"),
		ConditionExpression: aws.String("#status = :from"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: values,
	}

	if _, err := s.Client.UpdateItem(ctx, input); err != nil {
		if isConditionFailed(err) {
			return storage.ErrStatusConflict
		}
		return fmt.Errorf("failed to update withdrawal status to %s: %w", w.Status, err)
	}

	return nil
}

// GetWithdrawal retrieves a withdrawal by ID.
func (s *Store) GetWithdrawal(ctx context.Context, id string) (*models.Withdrawal, error) {
	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.Tables.Withdrawals),
		Key:       stringKey("id", id),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawal from DynamoDB: %w", err)
	}

	if result.Item == nil {
		return nil, storage.ErrNotFound
	}

	var w models.Withdrawal
	if err := attributevalue.UnmarshalMap(result.Item, &w); err != nil {
		return nil, fmt.Errorf("failed to unmarshal withdrawal: %w", err)
	}

	return &w, nil
}

// ListWithdrawalsByUser retrieves a user's withdrawals, newest first.
func (s *Store) ListWithdrawalsByUser(ctx context.Context, userID string) ([]models.Withdrawal, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.Tables.Withdrawals),
		IndexName:              aws.String(withdrawalUserGSI),
		KeyConditionExpression: aws.String("user_id = :userID"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":userID": &types.AttributeValueMemberS{Value: userID},
		},
		ScanIndexForward: aws.Bool(false),
	}

	result, err := s.Client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query for withdrawals by user ID: %w", err)
	}

	var withdrawals []models.Withdrawal
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &withdrawals); err != nil {
		return nil, fmt.Errorf("failed to unmarshal withdrawals: %w", err)
	}

	return withdrawals, nil
}

// ListWithdrawalsByStatus finds withdrawals that have sat in a status for longer than minAge.
func (s *Store) ListWithdrawalsByStatus(ctx context.Context, status models.WithdrawalStatus, minAge time.Duration) ([]models.Withdrawal, error) {
	cutoffTime := time.Now().Add(-minAge)
	cutoffTimeStr, err := cutoffTime.MarshalText()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cutoff time: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.Tables.Withdrawals),
		IndexName:              aws.String(withdrawalStatusGSI),
		KeyConditionExpression: aws.String("#status = :status AND created_at < :cutoff"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(status)},
			":cutoff": &types.AttributeValueMemberS{Value: string(cutoffTimeStr)},
		},
	}

	result, err := s.Client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query for %s withdrawals: %w", status, err)
	}

	var withdrawals []models.Withdrawal
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &withdrawals); err != nil {
		return nil, fmt.Errorf("failed to unmarshal withdrawals: %w", err)
	}

	return withdrawals, nil
}

// RecordAttribution inserts an attribution row once per event.
func (s *Store) RecordAttribution(ctx context.Context, a *models.Attribution) error {
	attributionAV, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("failed to marshal attribution: %w", err)
	}

	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.Tables.Attributions),
		Item:                attributionAV,
		ConditionExpression: aws.String("attribute_not_exists(event_id)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("failed to record attribution: %w", err)
	}

	return nil
}
