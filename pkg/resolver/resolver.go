// Package resolver decides which scanned payment events belong to a key holder.
package resolver

import (
	"context"
	"log/slog"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/chris/stealth-ledger/pkg/models"
	"github.com/chris/stealth-ledger/pkg/stealth"
)

// ScanFunc is the stealth module's ownership test. It returns nil, nil for events
// addressed to someone else.
type ScanFunc func(event models.PaymentEvent, viewKey, spendKey *btcec.PrivateKey) (*models.ScannedPayment, error)

// Resolver applies the ownership test to payment events.
type Resolver struct {
	scan   ScanFunc
	logger *slog.Logger
}

// New creates a Resolver. A nil scan uses stealth.ScanEvent.
func New(scan ScanFunc, logger *slog.Logger) *Resolver {
	if scan == nil {
		scan = stealth.ScanEvent
	}
	return &Resolver{scan: scan, logger: logger}
}

// Resolve returns the decrypted payment if event is addressed to the keys, or nil.
// Errors from the ownership test are logged and treated as not owned.
func (r *Resolver) Resolve(ctx context.Context, event models.PaymentEvent, viewKey, spendKey *btcec.PrivateKey) *models.ScannedPayment {
	payment, err := r.scan(event, viewKey, spendKey)
	if err != nil {
		r.logger.WarnContext(ctx, "ownership test failed", "tx_hash", event.TxHash, "event_index", event.EventIndex, "error", err)
		return nil
	}
	return payment
}

// ResolveAll resolves every event and keeps the owned ones, in input order.
func (r *Resolver) ResolveAll(ctx context.Context, events []models.PaymentEvent, viewKey, spendKey *btcec.PrivateKey) []models.ScannedPayment {
	owned := []models.ScannedPayment{}
	for _, event := range events {
		if ctx.Err() != nil {
			break
		}
		if payment := r.Resolve(ctx, event, viewKey, spendKey); payment != nil {
			owned = append(owned, *payment)
		}
	}
	r.logger.DebugContext(ctx, "resolved payment events", "scanned", len(events), "owned", len(owned))
	return owned
}
