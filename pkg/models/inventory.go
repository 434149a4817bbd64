package models

import "time"

// AssetStatus defines the listing state of a tokenized asset.
type AssetStatus string

const (
	AssetActive   AssetStatus = "ACTIVE"
	AssetSoldOut  AssetStatus = "SOLD_OUT"
	AssetDelisted AssetStatus = "DELISTED"
)

// AssetTransactionStatus defines the possible states of a share purchase.
type AssetTransactionStatus string

const (
	AssetTxPending   AssetTransactionStatus = "PENDING"
	AssetTxCompleted AssetTransactionStatus = "COMPLETED"
	AssetTxFailed    AssetTransactionStatus = "FAILED"
)

// PendingHashPrefix marks a reservation that has not been matched to a payment yet.
const PendingHashPrefix = "pending:"

// Asset is a tokenized asset with a fixed share supply.
// PricePerShare is a decimal string in display units of TokenAddress.
type Asset struct {
	AssetID         string      `json:"asset_id" dynamodbav:"asset_id"`
	Name            string      `json:"name" dynamodbav:"name"`
	Location        string      `json:"location" dynamodbav:"location"`
	TotalShares     uint32      `json:"total_shares" dynamodbav:"total_shares"`
	AvailableShares uint32      `json:"available_shares" dynamodbav:"available_shares"`
	PricePerShare   string      `json:"price_per_share" dynamodbav:"price_per_share"`
	TokenAddress    string      `json:"token_address" dynamodbav:"token_address"`
	Status          AssetStatus `json:"status" dynamodbav:"status"`
	CreatedAt       time.Time   `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at" dynamodbav:"updated_at"`
}

// Holding is the accumulated share position of one user in one asset.
type Holding struct {
	UserID          string    `json:"user_id" dynamodbav:"user_id"`
	AssetID         string    `json:"asset_id" dynamodbav:"asset_id"`
	Quantity        uint32    `json:"quantity" dynamodbav:"quantity"`
	PurchasePrice   string    `json:"purchase_price" dynamodbav:"purchase_price"`
	PurchaseDate    time.Time `json:"purchase_date" dynamodbav:"purchase_date"`
	TransactionHash string    `json:"transaction_hash" dynamodbav:"transaction_hash"`
}

// AssetTransaction records one share purchase. For reservations ID is the
// reservation id and TransactionHash starts as PendingHashPrefix+ID.
type AssetTransaction struct {
	ID              string                 `json:"id" dynamodbav:"id"`
	AssetID         string                 `json:"asset_id" dynamodbav:"asset_id"`
	BuyerUserID     string                 `json:"buyer_user_id" dynamodbav:"buyer_user_id"`
	Quantity        uint32                 `json:"quantity" dynamodbav:"quantity"`
	TotalPrice      string                 `json:"total_price" dynamodbav:"total_price"`
	Status          AssetTransactionStatus `json:"status" dynamodbav:"status"`
	TransactionHash string                 `json:"transaction_hash" dynamodbav:"transaction_hash"`
	PaymentTxHash   string                 `json:"payment_tx_hash,omitempty" dynamodbav:"payment_tx_hash,omitempty"`
	CreatedAt       time.Time              `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at" dynamodbav:"updated_at"`
}

// PaymentClaim marks a payment as consumed by exactly one share purchase.
// It lives in the asset transactions table under ID "claim#<txHash>".
type PaymentClaim struct {
	ID                 string    `json:"id" dynamodbav:"id"`
	PaymentTxHash      string    `json:"payment_tx_hash" dynamodbav:"payment_tx_hash"`
	AssetTransactionID string    `json:"asset_transaction_id" dynamodbav:"asset_transaction_id"`
	ClaimedAt          time.Time `json:"claimed_at" dynamodbav:"claimed_at"`
}

// ClaimID returns the key of the claim row for a payment.
func ClaimID(paymentTxHash string) string {
	return "claim#" + paymentTxHash
}
