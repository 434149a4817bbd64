// Package notify publishes best-effort side events (attribution, rewards,
// analytics) outside the transactional path.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event kinds.
const (
	KindPaymentRecorded   = "payment.recorded"
	KindWithdrawalDebited = "withdrawal.debited"
	KindSharesPurchased   = "shares.purchased"
)

// Event is a notification about a completed ledger mutation.
type Event struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	UserID       string    `json:"user_id"`
	Reference    string    `json:"reference"`
	Amount       uint64    `json:"amount"`
	TokenAddress string    `json:"token_address,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// NewEvent stamps a new event with an id and the current time.
func NewEvent(kind, userID, reference string, amount uint64, tokenAddress string) Event {
	return Event{
		ID:           uuid.NewString(),
		Kind:         kind,
		UserID:       userID,
		Reference:    reference,
		Amount:       amount,
		TokenAddress: tokenAddress,
		OccurredAt:   time.Now().UTC(),
	}
}

// Notifier defines the interface for a component that publishes events.
type Notifier interface {
	// Notify publishes an event. Callers must not let its error affect a committed mutation.
	Notify(ctx context.Context, event Event) error
}

// Noop discards every event.
type Noop struct{}

// Notify implements Notifier.
func (Noop) Notify(context.Context, Event) error { return nil }
