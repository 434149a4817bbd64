package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/stealth-ledger/pkg/models"
	"github.com/chris/stealth-ledger/pkg/storage"
)

// GetBalance retrieves a balance row with a strongly consistent read, since the
// returned version feeds the next conditional write.
func (s *Store) GetBalance(ctx context.Context, userID, tokenAddress string) (*models.UserBalance, error) {
	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.Tables.Balances),
		Key:            compositeKey("user_id", userID, "token_address", tokenAddress),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get balance from DynamoDB: %w", err)
	}

	if result.Item == nil {
		return nil, storage.ErrNotFound
	}

	var balance models.UserBalance
	if err := attributevalue.UnmarshalMap(result.Item, &balance); err != nil {
		return nil, fmt.Errorf("failed to unmarshal balance: %w", err)
	}

	return &balance, nil
}

// ListBalances retrieves every balance row of a user.
func (s *Store) ListBalances(ctx context.Context, userID string) ([]models.UserBalance, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.Tables.Balances),
		KeyConditionExpression: aws.String("user_id = :userID"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":userID": &types.AttributeValueMemberS{Value: userID},
		},
	}

	result, err := s.Client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query balances: %w", err)
	}

	var balances []models.UserBalance
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &balances); err != nil {
		return nil, fmt.Errorf("failed to unmarshal balances: %w", err)
	}

	return balances, nil
}

// ListBalanceTransactions retrieves a user's most recent ledger entries.
func (s *Store) ListBalanceTransactions(ctx context.Context, userID string, limit int32) ([]models.BalanceTransaction, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.Tables.BalanceTransactions),
		IndexName:              aws.String(ledgerUserGSI),
		KeyConditionExpression: aws.String("user_id = :userID"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":userID": &types.AttributeValueMemberS{Value: userID},
		},
		ScanIndexForward: aws.Bool(false), // Sort by created_at in descending order
		Limit:            &limit,
	}

	result, err := s.Client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query for ledger entries: %w", err)
	}

	var entries []models.BalanceTransaction
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ledger entries: %w", err)
	}

	return entries, nil
}

// ListAccountEntries pages through every ledger entry of one account in sequence order.
func (s *Store) ListAccountEntries(ctx context.Context, userID, tokenAddress string) ([]models.BalanceTransaction, error) {
	var entries []models.BalanceTransaction
	var startKey map[string]types.AttributeValue

	for {
		result, err := s.Client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.Tables.BalanceTransactions),
			KeyConditionExpression: aws.String("account_key = :account"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":account": &types.AttributeValueMemberS{Value: models.AccountKey(userID, tokenAddress)},
			},
			ConsistentRead:    aws.Bool(true),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query account entries: %w", err)
		}

		var page []models.BalanceTransaction
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal account entries: %w", err)
		}
		entries = append(entries, page...)

		if len(result.LastEvaluatedKey) == 0 {
			return entries, nil
		}
		startKey = result.LastEvaluatedKey
	}
}
