// Package scanner reads stealth payment events from the chain.
package scanner

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/chris/stealth-ledger/pkg/chain"
	"github.com/chris/stealth-ledger/pkg/models"
)

// ChainReader is the subset of chain.Client the scanner needs.
type ChainReader interface {
	ListAccountTransactions(ctx context.Context, account string, limit int) ([]chain.Transaction, error)
	GetTransactionByHash(ctx context.Context, hash string) (*chain.Transaction, error)
	GetTransactionByVersion(ctx context.Context, version uint64) (*chain.Transaction, error)
}

// Scanner lists the payment events emitted through the stealth module account.
type Scanner struct {
	chain         ChainReader
	moduleAccount string
	eventType     string
	logger        *slog.Logger
}

// New creates a Scanner. eventType is matched as a substring of the Move event type,
// e.g. "::stealth::PaymentEvent".
func New(client ChainReader, moduleAccount, eventType string, logger *slog.Logger) *Scanner {
	return &Scanner{
		chain:         client,
		moduleAccount: moduleAccount,
		eventType:     eventType,
		logger:        logger,
	}
}

var errMissingField = errors.New("missing required field")

// ScanPayments returns the payment events for coinType found in the latest limit
// transactions above sinceVersion. Fetch errors abort the scan and yield no events;
// callers poll again.
func (s *Scanner) ScanPayments(ctx context.Context, coinType string, limit int, sinceVersion *uint64) []models.PaymentEvent {
	txs, err := s.chain.ListAccountTransactions(ctx, s.moduleAccount, limit)
	if err != nil {
		s.logger.Error("failed to list module transactions", "account", s.moduleAccount, "error", err)
		return []models.PaymentEvent{}
	}

	var events []models.PaymentEvent
	for _, tx := range txs {
		if sinceVersion != nil && tx.Version <= *sinceVersion {
			continue
		}

		if !tx.Success {
			continue
		}

		raw, err := s.eventsOf(ctx, tx)
		if err != nil {
			s.logger.Error("failed to fetch transaction events", "tx_hash", tx.Hash, "version", tx.Version, "error", err)
			return []models.PaymentEvent{}
		}

		for i, ev := range raw {
			if !s.matches(ev.Type, coinType) {
				continue
			}
			payment, err := decodePaymentEvent(ev)
			if err != nil {
				s.logger.Warn("dropping malformed payment event", "tx_hash", tx.Hash, "event_index", i, "error", err)
				continue
			}
			payment.TxHash = tx.Hash
			payment.EventIndex = i
			payment.Version = tx.Version
			events = append(events, payment)
		}
	}

	if events == nil {
		events = []models.PaymentEvent{}
	}
	return events
}

// eventsOf returns the inline events of tx, falling back to a lookup by hash and
// then by version when the listing omitted them.
func (s *Scanner) eventsOf(ctx context.Context, tx chain.Transaction) ([]chain.Event, error) {
	if tx.Events != nil {
		return tx.Events, nil
	}

	full, err := s.chain.GetTransactionByHash(ctx, tx.Hash)
	if err == nil {
		return full.Events, nil
	}
	s.logger.Debug("lookup by hash failed, trying version", "tx_hash", tx.Hash, "error", err)

	full, err = s.chain.GetTransactionByVersion(ctx, tx.Version)
	if err != nil {
		return nil, err
	}
	return full.Events, nil
}

func (s *Scanner) matches(eventType, coinType string) bool {
	compact := strings.ReplaceAll(eventType, " ", "")
	if !strings.Contains(compact, s.eventType) {
		return false
	}
	return coinType == "" || strings.Contains(compact, strings.ReplaceAll(coinType, " ", ""))
}

func decodePaymentEvent(ev chain.Event) (models.PaymentEvent, error) {
	var p models.PaymentEvent
	var err error

	if p.StealthOwner, err = stringField(ev.Data, "stealth_owner", true); err != nil {
		return p, err
	}
	if p.EphemeralPubkey, err = bytesField(ev.Data, "eph_pubkey", true); err != nil {
		return p, err
	}
	if p.Payer, err = stringField(ev.Data, "payer", false); err != nil {
		return p, err
	}
	if p.Amount, err = amountField(ev.Data, "amount"); err != nil {
		return p, err
	}
	if p.Label, err = bytesField(ev.Data, "label", false); err != nil {
		return p, err
	}
	if p.Payload, err = bytesField(ev.Data, "payload", false); err != nil {
		return p, err
	}
	if p.Note, err = bytesField(ev.Data, "note", false); err != nil {
		return p, err
	}
	return p, nil
}

func stringField(data map[string]json.RawMessage, key string, required bool) (string, error) {
	raw, ok := data[key]
	if !ok || string(raw) == "null" {
		if required {
			return "", fmt.Errorf("%w: %s", errMissingField, key)
		}
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("field %s: %w", key, err)
	}
	if required && s == "" {
		return "", fmt.Errorf("%w: %s", errMissingField, key)
	}
	return s, nil
}

// amountField accepts both a JSON number and the decimal string form nodes use for u64.
func amountField(data map[string]json.RawMessage, key string) (uint64, error) {
	raw, ok := data[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", errMissingField, key)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("field %s: %w", key, err)
		}
		return v, nil
	}
	var n uint64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("field %s: %w", key, err)
	}
	return n, nil
}

// bytesField accepts a 0x hex string or a JSON array of byte values.
func bytesField(data map[string]json.RawMessage, key string, required bool) ([]byte, error) {
	raw, ok := data[key]
	if !ok || string(raw) == "null" {
		if required {
			return nil, fmt.Errorf("%w: %s", errMissingField, key)
		}
		return nil, nil
	}

	var out []byte
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		out, err = hex.DecodeString(strings.TrimPrefix(s, "0x"))
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
	} else {
		var arr []uint8
		var nums []int
		if err := json.Unmarshal(raw, &nums); err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		for _, n := range nums {
			if n < 0 || n > 255 {
				return nil, fmt.Errorf("field %s: byte out of range: %d", key, n)
			}
			arr = append(arr, uint8(n))
		}
		out = arr
	}

	if required && len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", errMissingField, key)
	}
	return out, nil
}
