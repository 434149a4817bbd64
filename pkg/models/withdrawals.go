package models

import "time"

// WithdrawalStatus tracks a withdrawal through its state machine.
type WithdrawalStatus string

const (
	WithdrawalRequested           WithdrawalStatus = "REQUESTED"
	WithdrawalBalanceChecked      WithdrawalStatus = "BALANCE_CHECKED"
	WithdrawalSubmitted           WithdrawalStatus = "SUBMITTED"
	WithdrawalConfirmed           WithdrawalStatus = "CONFIRMED"
	WithdrawalDebited             WithdrawalStatus = "DEBITED"
	WithdrawalFailed              WithdrawalStatus = "FAILED"
	WithdrawalSubmissionUnknown   WithdrawalStatus = "SUBMISSION_UNKNOWN"
	WithdrawalConfirmationTimeout WithdrawalStatus = "CONFIRMATION_TIMEOUT"
	WithdrawalDebitFailed         WithdrawalStatus = "DEBIT_FAILED"
)

// Withdrawal is the durable record of a withdrawal request.
type Withdrawal struct {
	ID            string           `json:"id" dynamodbav:"id"`
	UserID        string           `json:"user_id" dynamodbav:"user_id"`
	Destination   string           `json:"destination" dynamodbav:"destination"`
	TokenAddress  string           `json:"token_address" dynamodbav:"token_address"`
	Amount        uint64           `json:"amount" dynamodbav:"amount"`
	Status        WithdrawalStatus `json:"status" dynamodbav:"status"`
	TxHash        string           `json:"tx_hash,omitempty" dynamodbav:"tx_hash,omitempty"`
	FailureReason string           `json:"failure_reason,omitempty" dynamodbav:"failure_reason,omitempty"`
	CreatedAt     time.Time        `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at" dynamodbav:"updated_at"`
}

// Attribution is a telemetry row written by the attribution consumer.
type Attribution struct {
	EventID    string    `json:"event_id" dynamodbav:"event_id"`
	Kind       string    `json:"kind" dynamodbav:"kind"`
	UserID     string    `json:"user_id" dynamodbav:"user_id"`
	Reference  string    `json:"reference" dynamodbav:"reference"`
	Amount     uint64    `json:"amount" dynamodbav:"amount"`
	RecordedAt time.Time `json:"recorded_at" dynamodbav:"recorded_at"`
}
