package payments

import (
	"context"
	"net/http"

	"github.com/chris/stealth-ledger/pkg/api"
	"github.com/chris/stealth-ledger/pkg/apperrors"
	"github.com/chris/stealth-ledger/pkg/handlers/respond"
	"github.com/chris/stealth-ledger/pkg/ingest"
	"github.com/chris/stealth-ledger/pkg/ledger"
	"github.com/chris/stealth-ledger/pkg/mapping"
)

// Recorder records a payment that was resolved outside this service.
type Recorder interface {
	RecordPayment(ctx context.Context, in ledger.RecordPaymentInput) (*ledger.RecordResult, error)
}

// Scanner runs the scan, resolve and record pipeline.
type Scanner interface {
	ScanAndRecord(ctx context.Context, req ingest.Request) (*ingest.Report, error)
}

// PaymentsHandler holds the dependencies for payment-related handlers.
type PaymentsHandler struct {
	Ledger   Recorder
	Pipeline Scanner
}

// NewPaymentsHandler creates a new PaymentsHandler.
func NewPaymentsHandler(ledger Recorder, pipeline Scanner) *PaymentsHandler {
	return &PaymentsHandler{Ledger: ledger, Pipeline: pipeline}
}

// RecordPayment records a payment and credits the user's balance.
func (h *PaymentsHandler) RecordPayment(w http.ResponseWriter, r *http.Request, userId string) {
	var body api.NewPayment
	if err := respond.Decode(r, &body); err != nil {
		respond.Error(w, r, err)
		return
	}

	in, err := mapping.ToDomainPayment(userId, &body)
	if err != nil {
		respond.Error(w, r, apperrors.Validation("%v", err))
		return
	}

	res, err := h.Ledger.RecordPayment(r.Context(), in)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	status := http.StatusCreated
	if res.AlreadyCredited {
		status = http.StatusOK
	}
	respond.JSON(w, status, mapping.ToApiPaymentRecorded(res))
}

// ScanPayments scans the chain for payments to the user's keys and records them.
func (h *PaymentsHandler) ScanPayments(w http.ResponseWriter, r *http.Request, userId string) {
	var body api.ScanRequest
	if err := respond.Decode(r, &body); err != nil {
		respond.Error(w, r, err)
		return
	}

	req, err := mapping.ToDomainScanRequest(userId, &body)
	if err != nil {
		respond.Error(w, r, apperrors.Validation("%v", err))
		return
	}

	report, err := h.Pipeline.ScanAndRecord(r.Context(), req)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, mapping.ToApiScanReport(report))
}
