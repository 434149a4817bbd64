// Package ingest runs the payment pipeline for one user: scan the chain, keep the
// events addressed to the user's keys and record each one in the ledger.
package ingest

import (
	"context"
	"encoding/hex"
	"log/slog"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/chris/stealth-ledger/pkg/apperrors"
	"github.com/chris/stealth-ledger/pkg/chain"
	"github.com/chris/stealth-ledger/pkg/ledger"
	"github.com/chris/stealth-ledger/pkg/models"
	"github.com/chris/stealth-ledger/pkg/stealth"
)

const (
	defaultScanLimit = 100
	maxScanLimit     = 1000
)

// Outcome statuses.
const (
	StatusRecorded        = "RECORDED"
	StatusAlreadyCredited = "ALREADY_CREDITED"
	StatusFailed          = "FAILED"
)

// Scanner lists payment events.
type Scanner interface {
	ScanPayments(ctx context.Context, coinType string, limit int, sinceVersion *uint64) []models.PaymentEvent
}

// Resolver keeps the events owned by a key pair.
type Resolver interface {
	ResolveAll(ctx context.Context, events []models.PaymentEvent, viewKey, spendKey *btcec.PrivateKey) []models.ScannedPayment
}

// Recorder records payments in the ledger.
type Recorder interface {
	RecordPayment(ctx context.Context, in ledger.RecordPaymentInput) (*ledger.RecordResult, error)
}

// CoinReader resolves coin metadata.
type CoinReader interface {
	GetCoinInfo(ctx context.Context, coinType string) (*chain.CoinInfo, error)
}

// Pipeline composes the scanner, resolver and ledger.
type Pipeline struct {
	scanner  Scanner
	resolver Resolver
	recorder Recorder
	coins    CoinReader
	logger   *slog.Logger
}

// New creates a Pipeline.
func New(scanner Scanner, resolver Resolver, recorder Recorder, coins CoinReader, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		scanner:  scanner,
		resolver: resolver,
		recorder: recorder,
		coins:    coins,
		logger:   logger,
	}
}

// Request asks to scan for payments to one user's keys.
type Request struct {
	UserID       string
	ViewKey      string
	SpendKey     string
	CoinType     string
	Limit        int
	SinceVersion *uint64
}

// Outcome is what happened to one owned payment.
type Outcome struct {
	TxHash         string `json:"tx_hash"`
	StealthAddress string `json:"stealth_address"`
	Amount         uint64 `json:"amount"`
	Label          string `json:"label,omitempty"`
	PaymentID      string `json:"payment_id,omitempty"`
	Status         string `json:"status"`
	Error          string `json:"error,omitempty"`
	ErrorCode      string `json:"error_code,omitempty"`
}

// Report summarizes one run.
type Report struct {
	Scanned       int       `json:"scanned"`
	Owned         int       `json:"owned"`
	Recorded      int       `json:"recorded"`
	Failed        int       `json:"failed"`
	LatestVersion uint64    `json:"latest_version"`
	Payments      []Outcome `json:"payments"`
}

// ScanAndRecord scans, resolves and records. Only bad input fails the call; a
// payment that cannot be recorded is reported in its Outcome and the rest continue.
func (p *Pipeline) ScanAndRecord(ctx context.Context, req Request) (*Report, error) {
	if req.UserID == "" || req.CoinType == "" {
		return nil, apperrors.Validation("user id and coin type are required")
	}
	switch {
	case req.Limit < 0:
		return nil, apperrors.Validation("limit must not be negative")
	case req.Limit == 0:
		req.Limit = defaultScanLimit
	case req.Limit > maxScanLimit:
		req.Limit = maxScanLimit
	}
	keys, err := stealth.ParseKeys(req.ViewKey, req.SpendKey)
	if err != nil {
		return nil, apperrors.Validation("invalid stealth keys: %v", err)
	}
	coin, err := p.coins.GetCoinInfo(ctx, req.CoinType)
	if err != nil {
		return nil, apperrors.Upstream(err, "failed to get coin info for %s", req.CoinType)
	}

	events := p.scanner.ScanPayments(ctx, req.CoinType, req.Limit, req.SinceVersion)
	owned := p.resolver.ResolveAll(ctx, events, keys.View, keys.Spend)

	report := &Report{Scanned: len(events), Owned: len(owned), Payments: []Outcome{}}
	if req.SinceVersion != nil {
		report.LatestVersion = *req.SinceVersion
	}
	for _, e := range events {
		if e.Version > report.LatestVersion {
			report.LatestVersion = e.Version
		}
	}

	for _, sp := range owned {
		out := Outcome{
			TxHash:         sp.TxHash,
			StealthAddress: sp.StealthAddress,
			Amount:         sp.Amount,
			Label:          sp.DecryptedLabel,
		}
		res, err := p.recorder.RecordPayment(ctx, ledger.RecordPaymentInput{
			UserID:          req.UserID,
			TxHash:          sp.TxHash,
			StealthAddress:  sp.StealthAddress,
			PayerAddress:    sp.Payer,
			Amount:          sp.Amount,
			TokenSymbol:     coin.Symbol,
			TokenAddress:    req.CoinType,
			Decimals:        coin.Decimals,
			Label:           sp.DecryptedLabel,
			Note:            sp.DecryptedNote,
			EphemeralPubkey: hex.EncodeToString(sp.EphemeralPubkey),
		})
		switch {
		case err != nil:
			out.Status = StatusFailed
			out.Error = err.Error()
			out.ErrorCode = apperrors.CodeOf(err)
			report.Failed++
			p.logger.ErrorContext(ctx, "failed to record scanned payment",
				"user_id", req.UserID, "tx_hash", sp.TxHash, "error", err)
		case res.AlreadyCredited:
			out.Status = StatusAlreadyCredited
			out.PaymentID = res.PaymentID
		default:
			out.Status = StatusRecorded
			out.PaymentID = res.PaymentID
			report.Recorded++
		}
		report.Payments = append(report.Payments, out)
	}

	p.logger.InfoContext(ctx, "scan complete",
		"user_id", req.UserID,
		"scanned", report.Scanned,
		"owned", report.Owned,
		"recorded", report.Recorded,
		"failed", report.Failed,
	)
	return report, nil
}
