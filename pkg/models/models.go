package models

import (
	"time"
)

// PaymentStatus defines the possible states of a detected stealth payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentConfirmed PaymentStatus = "CONFIRMED"
)

// CreditStatus mirrors BalanceCredited as a string so uncredited rows can be
// found through a GSI.
type CreditStatus string

const (
	CreditPending  CreditStatus = "PENDING"
	CreditCredited CreditStatus = "CREDITED"
)

// BalanceTransactionType is the direction of a ledger entry.
type BalanceTransactionType string

const (
	Deposit  BalanceTransactionType = "DEPOSIT"
	Withdraw BalanceTransactionType = "WITHDRAW"
)

// PaymentEvent is a normalized payment event read from the chain. It is never persisted.
type PaymentEvent struct {
	StealthOwner    string `json:"stealth_owner"`
	Payer           string `json:"payer"`
	Amount          uint64 `json:"amount"`
	Label           []byte `json:"label,omitempty"`
	EphemeralPubkey []byte `json:"eph_pubkey"`
	Payload         []byte `json:"payload,omitempty"`
	Note            []byte `json:"note,omitempty"`
	TxHash          string `json:"tx_hash"`
	EventIndex      int    `json:"event_index"`
	Version         uint64 `json:"version"`
}

// ScannedPayment is a PaymentEvent that passed the ownership test for a set of keys.
// StealthPrivateKey is the spending key for StealthAddress and must never be logged.
type ScannedPayment struct {
	StealthAddress    string `json:"stealth_address"`
	Payer             string `json:"payer"`
	Amount            uint64 `json:"amount"`
	DecryptedLabel    string `json:"decrypted_label,omitempty"`
	DecryptedNote     string `json:"decrypted_note,omitempty"`
	StealthPrivateKey []byte `json:"-"`
	EphemeralPubkey   []byte `json:"eph_pubkey"`
	TxHash            string `json:"tx_hash"`
	EventIndex        int    `json:"event_index"`
	Version           uint64 `json:"version"`
}

// StealthPayment is a persisted, confirmed inbound payment. At most one exists per TxHash.
type StealthPayment struct {
	ID                   string        `json:"id" dynamodbav:"id"`
	UserID               string        `json:"user_id" dynamodbav:"user_id"`
	TxHash               string        `json:"tx_hash" dynamodbav:"tx_hash"`
	StealthAddress       string        `json:"stealth_address" dynamodbav:"stealth_address"`
	PayerAddress         string        `json:"payer_address" dynamodbav:"payer_address"`
	Amount               uint64        `json:"amount" dynamodbav:"amount"`
	TokenSymbol          string        `json:"token_symbol" dynamodbav:"token_symbol"`
	TokenAddress         string        `json:"token_address" dynamodbav:"token_address"`
	Decimals             uint8         `json:"decimals" dynamodbav:"decimals"`
	Label                string        `json:"label,omitempty" dynamodbav:"label,omitempty"`
	Note                 string        `json:"note,omitempty" dynamodbav:"note,omitempty"`
	EphemeralPubkey      string        `json:"ephemeral_pubkey" dynamodbav:"ephemeral_pubkey"`
	Status               PaymentStatus `json:"status" dynamodbav:"status"`
	ConfirmedAt          time.Time     `json:"confirmed_at" dynamodbav:"confirmed_at"`
	BalanceCredited      bool          `json:"balance_credited" dynamodbav:"balance_credited"`
	BalanceTransactionID string        `json:"balance_transaction_id,omitempty" dynamodbav:"balance_transaction_id,omitempty"`
	CreditStatus         CreditStatus  `json:"credit_status" dynamodbav:"credit_status"`
	CreatedAt            time.Time     `json:"created_at" dynamodbav:"created_at"`
}

// UserBalance is the current balance snapshot for one (user, token) account.
// Available is Balance minus in-flight withdrawal holds. Version is bumped on
// every ledger write and equals the Sequence of the latest BalanceTransaction.
type UserBalance struct {
	ID           string    `json:"id" dynamodbav:"id"`
	UserID       string    `json:"user_id" dynamodbav:"user_id"`
	TokenSymbol  string    `json:"token_symbol" dynamodbav:"token_symbol"`
	TokenAddress string    `json:"token_address" dynamodbav:"token_address"`
	Decimals     uint8     `json:"decimals" dynamodbav:"decimals"`
	Balance      uint64    `json:"balance" dynamodbav:"balance"`
	Available    uint64    `json:"available" dynamodbav:"available"`
	Version      int64     `json:"version" dynamodbav:"version"`
	UpdatedAt    time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// BalanceTransaction is an append-only ledger entry.
type BalanceTransaction struct {
	AccountKey    string                 `json:"-" dynamodbav:"account_key"`
	Sequence      int64                  `json:"sequence" dynamodbav:"sequence"`
	ID            string                 `json:"id" dynamodbav:"id"`
	UserID        string                 `json:"user_id" dynamodbav:"user_id"`
	Type          BalanceTransactionType `json:"type" dynamodbav:"type"`
	Amount        uint64                 `json:"amount" dynamodbav:"amount"`
	TokenAddress  string                 `json:"token_address" dynamodbav:"token_address"`
	PaymentID     string                 `json:"payment_id,omitempty" dynamodbav:"payment_id,omitempty"`
	TxHash        string                 `json:"tx_hash,omitempty" dynamodbav:"tx_hash,omitempty"`
	BalanceBefore uint64                 `json:"balance_before" dynamodbav:"balance_before"`
	BalanceAfter  uint64                 `json:"balance_after" dynamodbav:"balance_after"`
	Note          string                 `json:"note,omitempty" dynamodbav:"note,omitempty"`
	CreatedAt     time.Time              `json:"created_at" dynamodbav:"created_at"`
}

// AccountKey builds the partition key shared by a balance row's ledger entries.
func AccountKey(userID, tokenAddress string) string {
	return userID + "#" + tokenAddress
}
