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

// CreateAsset lists a new asset.
func (s *Store) CreateAsset(ctx context.Context, asset *models.Asset) error {
	assetAV, err := attributevalue.MarshalMap(asset)
	if err != nil {
		return fmt.Errorf("failed to marshal asset: %w", err)
	}

	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.Tables.Assets),
		Item:                assetAV,
		ConditionExpression: aws.String("attribute_not_exists(asset_id)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create asset in DynamoDB: %w", err)
	}

	return nil
}

// GetAsset retrieves an asset with a strongly consistent read.
func (s *Store) GetAsset(ctx context.Context, assetID string) (*models.Asset, error) {
	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.Tables.Assets),
		Key:            stringKey("asset_id", assetID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get asset from DynamoDB: %w", err)
	}

	if result.Item == nil {
		return nil, storage.ErrNotFound
	}

	var asset models.Asset
	if err := attributevalue.UnmarshalMap(result.Item, &asset); err != nil {
		return nil, fmt.Errorf("failed to unmarshal asset: %w", err)
	}

	return &asset, nil
}

// ListAssets retrieves all assets from DynamoDB.
func (s *Store) ListAssets(ctx context.Context) ([]models.Asset, error) {
	result, err := s.Client.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(s.Tables.Assets),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan assets table: %w", err)
	}

	var assets []models.Asset
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &assets); err != nil {
		return nil, fmt.Errorf("failed to unmarshal assets: %w", err)
	}

	return assets, nil
}

// AllocateShares takes shares from the pool with a compare-and-swap on
// available_shares, records the purchase and accumulates the holding.
func (s *Store) AllocateShares(ctx context.Context, alloc storage.ShareAllocation) error {
	tx := alloc.Transaction
	txAV, err := attributevalue.MarshalMap(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal asset transaction: %w", err)
	}

	assetValues, err := marshalValues(map[string]any{
		":expected":  alloc.ExpectedAvailable,
		":available": alloc.NewAvailable,
		":status":    string(alloc.NewStatus),
		":active":    string(models.AssetActive),
		":now":       tx.UpdatedAt,
	})
	if err != nil {
		return err
	}

	holdingValues, err := marshalValues(map[string]any{
		":zero":  0,
		":qty":   tx.Quantity,
		":price": alloc.UnitPrice,
		":now":   tx.UpdatedAt,
		":hash":  tx.TransactionHash,
	})
	if err != nil {
		return err
	}

	items := []types.TransactWriteItem{
		{
			// Operation 1: Compare-and-swap the share pool.
			Update: &types.Update{
				TableName:           aws.String(s.Tables.Assets),
				Key:                 stringKey("asset_id", alloc.AssetID),
				UpdateExpression:    aws.String("SET available_shares = :available, #status = :status, updated_at = :now"),
				ConditionExpression: aws.String("available_shares = :expected AND #status = :active"),
				ExpressionAttributeNames: map[string]string{
					"#status": "status",
				},
				ExpressionAttributeValues: assetValues,
			},
		},
		{
			// Operation 2: Record the purchase.
			Put: &types.Put{
				TableName:           aws.String(s.Tables.AssetTransactions),
				Item:                txAV,
				ConditionExpression: aws.String("attribute_not_exists(id)"),
			},
		},
		{
			// Operation 3: Grant or accumulate the holding.
			Update: &types.Update{
				TableName:                 aws.String(s.Tables.Holdings),
				Key:                       compositeKey("user_id", tx.BuyerUserID, "asset_id", tx.AssetID),
				UpdateExpression:          aws.String("SET quantity = if_not_exists(quantity, :zero) + :qty, purchase_price = :price, purchase_date = :now, transaction_hash = :hash"),
				ExpressionAttributeValues: holdingValues,
			},
		},
	}

	if alloc.Claim != nil {
		claimAV, err := attributevalue.MarshalMap(alloc.Claim)
		if err != nil {
			return fmt.Errorf("failed to marshal payment claim: %w", err)
		}
		items = append(items, types.TransactWriteItem{
			// Operation 4: Consume the paying transaction.
			Put: &types.Put{
				TableName:           aws.String(s.Tables.AssetTransactions),
				Item:                claimAV,
				ConditionExpression: aws.String("attribute_not_exists(id)"),
			},
		})
	}

	_, err = s.Client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		if idx, ok := conditionFailedAt(err); ok {
			switch idx {
			case 0:
				return storage.ErrVersionConflict
			case 1:
				return storage.ErrAlreadyExists
			default:
				return storage.ErrAlreadyClaimed
			}
		}
		return fmt.Errorf("failed to execute share allocation: %w", err)
	}

	return nil
}

// CompleteReservation swaps the placeholder hash of a pending reservation for the
// paying transaction's hash. Shares and holding quantity do not move.
func (s *Store) CompleteReservation(ctx context.Context, reservation *models.AssetTransaction, claim *models.PaymentClaim) error {
	claimAV, err := attributevalue.MarshalMap(claim)
	if err != nil {
		return fmt.Errorf("failed to marshal payment claim: %w", err)
	}

	txValues, err := marshalValues(map[string]any{
		":completed": string(models.AssetTxCompleted),
		":pending":   string(models.AssetTxPending),
		":hash":      reservation.TransactionHash,
		":payment":   reservation.PaymentTxHash,
		":now":       reservation.UpdatedAt,
	})
	if err != nil {
		return err
	}

	holdingValues, err := marshalValues(map[string]any{":hash": reservation.TransactionHash})
	if err != nil {
		return err
	}

	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Update: &types.Update{
					TableName:           aws.String(s.Tables.AssetTransactions),
					Key:                 stringKey("id", reservation.ID),
					UpdateExpression:    aws.String("SET #status = :completed, transaction_hash = :hash, payment_tx_hash = :payment, updated_at = :now"),
					ConditionExpression: aws.String("#status = :pending"),
					ExpressionAttributeNames: map[string]string{
						"#status": "status",
					},
					ExpressionAttributeValues: txValues,
				},
			},
			{
				Put: &types.Put{
					TableName:           aws.String(s.Tables.AssetTransactions),
					Item:                claimAV,
					ConditionExpression: aws.String("attribute_not_exists(id)"),
				},
			},
			{
				Update: &types.Update{
					TableName:                 aws.String(s.Tables.Holdings),
					Key:                       compositeKey("user_id", reservation.BuyerUserID, "asset_id", reservation.AssetID),
					UpdateExpression:          aws.String("SET transaction_hash = :hash"),
					ConditionExpression:       aws.String("attribute_exists(user_id)"),
					ExpressionAttributeValues: holdingValues,
				},
			},
		},
	}

	_, err = s.Client.TransactWriteItems(ctx, input)
	if err != nil {
		if idx, ok := conditionFailedAt(err); ok {
			if idx == 1 {
				return storage.ErrAlreadyClaimed
			}
			return storage.ErrStatusConflict
		}
		return fmt.Errorf("failed to complete reservation: %w", err)
	}

	return nil
}

// ReleaseReservation fails a pending reservation and puts its shares back.
func (s *Store) ReleaseReservation(ctx context.Context, alloc storage.ShareAllocation) error {
	tx := alloc.Transaction

	assetValues, err := marshalValues(map[string]any{
		":expected":  alloc.ExpectedAvailable,
		":available": alloc.NewAvailable,
		":status":    string(alloc.NewStatus),
		":now":       tx.UpdatedAt,
	})
	if err != nil {
		return err
	}

	txValues, err := marshalValues(map[string]any{
		":failed":  string(models.AssetTxFailed),
		":pending": string(models.AssetTxPending),
		":now":     tx.UpdatedAt,
	})
	if err != nil {
		return err
	}

	holdingValues, err := marshalValues(map[string]any{":qty": tx.Quantity})
	if err != nil {
		return err
	}

	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Update: &types.Update{
					TableName:           aws.String(s.Tables.Assets),
					Key:                 stringKey("asset_id", alloc.AssetID),
					UpdateExpression:    aws.String("SET available_shares = :available, #status = :status, updated_at = :now"),
					ConditionExpression: aws.String("available_shares = :expected"),
					ExpressionAttributeNames: map[string]string{
						"#status": "status",
					},
					ExpressionAttributeValues: assetValues,
				},
			},
			{
				Update: &types.Update{
					TableName:           aws.String(s.Tables.AssetTransactions),
					Key:                 stringKey("id", tx.ID),
					UpdateExpression:    aws.String("SET #status = :failed, updated_at = :now"),
					ConditionExpression: aws.String("#status = :pending"),
					ExpressionAttributeNames: map[string]string{
						"#status": "status",
					},
					ExpressionAttributeValues: txValues,
				},
			},
			{
				Update: &types.Update{
					TableName:                 aws.String(s.Tables.Holdings),
					Key:                       compositeKey("user_id", tx.BuyerUserID, "asset_id", tx.AssetID),
					UpdateExpression:          aws.String("SET quantity = quantity - :qty"),
					ConditionExpression:       aws.String("quantity >= :qty"),
					ExpressionAttributeValues: holdingValues,
				},
			},
		},
	}

	_, err = s.Client.TransactWriteItems(ctx, input)
	if err != nil {
		if idx, ok := conditionFailedAt(err); ok {
			if idx == 0 {
				return storage.ErrVersionConflict
			}
			return storage.ErrStatusConflict
		}
		return fmt.Errorf("failed to release reservation: %w", err)
	}

	return nil
}

// GetAssetTransaction retrieves a purchase record by ID.
func (s *Store) GetAssetTransaction(ctx context.Context, id string) (*models.AssetTransaction, error) {
	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.Tables.AssetTransactions),
		Key:            stringKey("id", id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get asset transaction from DynamoDB: %w", err)
	}

	if result.Item == nil {
		return nil, storage.ErrNotFound
	}

	var tx models.AssetTransaction
	if err := attributevalue.UnmarshalMap(result.Item, &tx); err != nil {
		return nil, fmt.Errorf("failed to unmarshal asset transaction: %w", err)
	}

	return &tx, nil
}

// GetPaymentClaim retrieves the claim row for a payment.
func (s *Store) GetPaymentClaim(ctx context.Context, paymentTxHash string) (*models.PaymentClaim, error) {
	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.Tables.AssetTransactions),
		Key:            stringKey("id", models.ClaimID(paymentTxHash)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get payment claim from DynamoDB: %w", err)
	}

	if result.Item == nil {
		return nil, storage.ErrNotFound
	}

	var claim models.PaymentClaim
	if err := attributevalue.UnmarshalMap(result.Item, &claim); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment claim: %w", err)
	}

	return &claim, nil
}

// GetHolding retrieves one holding.
func (s *Store) GetHolding(ctx context.Context, userID, assetID string) (*models.Holding, error) {
	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.Tables.Holdings),
		Key:       compositeKey("user_id", userID, "asset_id", assetID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get holding from DynamoDB: %w", err)
	}

	if result.Item == nil {
		return nil, storage.ErrNotFound
	}

	var holding models.Holding
	if err := attributevalue.UnmarshalMap(result.Item, &holding); err != nil {
		return nil, fmt.Errorf("failed to unmarshal holding: %w", err)
	}

	return &holding, nil
}

// ListHoldings retrieves every non-empty holding of a user.
func (s *Store) ListHoldings(ctx context.Context, userID string) ([]models.Holding, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.Tables.Holdings),
		KeyConditionExpression: aws.String("user_id = :userID"),
		FilterExpression:       aws.String("quantity > :zero"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":userID": &types.AttributeValueMemberS{Value: userID},
			":zero":   &types.AttributeValueMemberN{Value: "0"},
		},
	}

	result, err := s.Client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}

	var holdings []models.Holding
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &holdings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal holdings: %w", err)
	}

	return holdings, nil
}
