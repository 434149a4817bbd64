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

// CreditPayment writes the balance, the deposit entry and the payment's credit
// flag in a single TransactWriteItems call.
func (s *Store) CreditPayment(ctx context.Context, credit storage.Credit) error {
	entryAV, err := attributevalue.MarshalMap(credit.Entry)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger entry: %w", err)
	}

	balanceOp, err := s.creditBalanceOp(credit)
	if err != nil {
		return err
	}

	flagValues, err := marshalValues(map[string]any{
		":true":     true,
		":false":    false,
		":entry":    credit.Entry.ID,
		":credited": string(models.CreditCredited),
	})
	if err != nil {
		return err
	}

	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			// Operation 1: Create or update the balance row.
			balanceOp,
			{
				// Operation 2: Append the deposit entry.
				Put: &types.Put{
					TableName:           aws.String(s.Tables.BalanceTransactions),
					Item:                entryAV,
					ConditionExpression: aws.String("attribute_not_exists(account_key)"),
				},
			},
			{
				// Operation 3: Flip the payment's credit flag exactly once.
				Update: &types.Update{
					TableName:                 aws.String(s.Tables.Payments),
					Key:                       stringKey("tx_hash", credit.PaymentTxHash),
					UpdateExpression:          aws.String("SET balance_credited = :true, balance_transaction_id = :entry, credit_status = :credited"),
					ConditionExpression:       aws.String("balance_credited = :false"),
					ExpressionAttributeValues: flagValues,
				},
			},
		},
	}

	_, err = s.Client.TransactWriteItems(ctx, input)
	if err != nil {
		if idx, ok := conditionFailedAt(err); ok {
			if idx == 2 {
				return storage.ErrAlreadyCredited
			}
			return storage.ErrVersionConflict
		}
		return fmt.Errorf("failed to execute credit transaction: %w", err)
	}

	return nil
}

func (s *Store) creditBalanceOp(credit storage.Credit) (types.TransactWriteItem, error) {
	b := credit.Balance
	if credit.ExpectedVersion == 0 {
		balanceAV, err := attributevalue.MarshalMap(b)
		if err != nil {
			return types.TransactWriteItem{}, fmt.Errorf("failed to marshal balance: %w", err)
		}
		return types.TransactWriteItem{
			Put: &types.Put{
				TableName:           aws.String(s.Tables.Balances),
				Item:                balanceAV,
				ConditionExpression: aws.String("attribute_not_exists(user_id)"),
			},
		}, nil
	}

	values, err := marshalValues(map[string]any{
		":after":    b.Balance,
		":amount":   credit.Entry.Amount,
		":next":     b.Version,
		":version":  credit.ExpectedVersion,
		":now":      b.UpdatedAt,
		":symbol":   b.TokenSymbol,
		":decimals": b.Decimals,
	})
	if err != nil {
		return types.TransactWriteItem{}, err
	}

	// available moves by the delta so holds placed since the read survive.
	return types.TransactWriteItem{
		Update: &types.Update{
			TableName:                 aws.String(s.Tables.Balances),
			Key:                       compositeKey("user_id", b.UserID, "token_address", b.TokenAddress),
			UpdateExpression:          aws.String("SET balance = :after, available = available + :amount, version = :next, updated_at = :now, token_symbol = :symbol, decimals = :decimals"),
			ConditionExpression:       aws.String("version = :version"),
			ExpressionAttributeValues: values,
		},
	}, nil
}

// HoldFunds reserves part of the available balance for an in-flight withdrawal.
func (s *Store) HoldFunds(ctx context.Context, userID, tokenAddress string, amount uint64) error {
	values, err := marshalValues(map[string]any{":amount": amount})
	if err != nil {
		return err
	}

	input := &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.Tables.Balances),
		Key:                       compositeKey("user_id", userID, "token_address", tokenAddress),
		UpdateExpression:          aws.String("SET available = available - :amount"),
		ConditionExpression:       aws.String("attribute_exists(user_id) AND available >= :amount"),
		ExpressionAttributeValues: values,
	}

	if _, err := s.Client.UpdateItem(ctx, input); err != nil {
		if isConditionFailed(err) {
			return storage.ErrInsufficientFunds
		}
		return fmt.Errorf("failed to place hold: %w", err)
	}

	return nil
}

// ReleaseHold returns a held amount to the available balance.
func (s *Store) ReleaseHold(ctx context.Context, userID, tokenAddress string, amount uint64) error {
	values, err := marshalValues(map[string]any{":amount": amount})
	if err != nil {
		return err
	}

	input := &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.Tables.Balances),
		Key:                       compositeKey("user_id", userID, "token_address", tokenAddress),
		UpdateExpression:          aws.String("SET available = available + :amount"),
		ConditionExpression:       aws.String("attribute_exists(user_id)"),
		ExpressionAttributeValues: values,
	}

	if _, err := s.Client.UpdateItem(ctx, input); err != nil {
		if isConditionFailed(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("failed to release hold: %w", err)
	}

	return nil
}

// DebitWithdrawal lowers the balance, appends the withdraw entry and marks the
// withdrawal DEBITED in one transaction. The hold was already taken from available.
func (s *Store) DebitWithdrawal(ctx context.Context, debit storage.Debit) error {
	entryAV, err := attributevalue.MarshalMap(debit.Entry)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger entry: %w", err)
	}

	b := debit.Balance
	balanceValues, err := marshalValues(map[string]any{
		":after":   b.Balance,
		":amount":  debit.Entry.Amount,
		":next":    b.Version,
		":version": debit.ExpectedVersion,
		":now":     b.UpdatedAt,
	})
	if err != nil {
		return err
	}

	withdrawalValues, err := marshalValues(map[string]any{
		":debited": string(models.WithdrawalDebited),
		":now":     debit.Entry.CreatedAt,
	})
	if err != nil {
		return err
	}

	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				// Operation 1: Debit the balance.
				Update: &types.Update{
					TableName:                 aws.String(s.Tables.Balances),
					Key:                       compositeKey("user_id", b.UserID, "token_address", b.TokenAddress),
					UpdateExpression:          aws.String("SET balance = :after, version = :next, updated_at = :now"),
					ConditionExpression:       aws.String("version = :version AND balance >= :amount"),
					ExpressionAttributeValues: balanceValues,
				},
			},
			{
				// Operation 2: Append the withdraw entry.
				Put: &types.Put{
					TableName:           aws.String(s.Tables.BalanceTransactions),
					Item:                entryAV,
					ConditionExpression: aws.String("attribute_not_exists(account_key)"),
				},
			},
			{
				// Operation 3: Mark the withdrawal debited.
				Update: &types.Update{
					TableName:           aws.String(s.Tables.Withdrawals),
					Key:                 stringKey("id", debit.WithdrawalID),
					UpdateExpression:    aws.String("SET #status = :debited, updated_at = :now"),
					ConditionExpression: aws.String("attribute_exists(id) AND #status <> :debited"),
					ExpressionAttributeNames: map[string]string{
						"#status": "status",
					},
					ExpressionAttributeValues: withdrawalValues,
				},
			},
		},
	}

	_, err = s.Client.TransactWriteItems(ctx, input)
	if err != nil {
		if idx, ok := conditionFailedAt(err); ok {
			if idx == 2 {
				return storage.ErrStatusConflict
			}
			return storage.ErrVersionConflict
		}
		return fmt.Errorf("failed to execute debit transaction: %w", err)
	}

	return nil
}
