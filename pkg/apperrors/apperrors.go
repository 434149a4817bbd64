// Package apperrors defines the error taxonomy shared by the ledger services
// and its mapping onto HTTP status codes.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error by how the caller should react to it.
type Kind string

const (
	KindValidation             Kind = "VALIDATION"
	KindNotFound               Kind = "NOT_FOUND"
	KindInsufficientResource   Kind = "INSUFFICIENT_RESOURCE"
	KindConflict               Kind = "CONFLICT"
	KindUpstream               Kind = "UPSTREAM"
	KindReconciliationRequired Kind = "RECONCILIATION_REQUIRED"
	KindInternal               Kind = "INTERNAL"
)

// Error is a classified application error. Two Errors match under errors.Is
// when their Codes are equal, so the named values below can be used as targets.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// Named errors.
var (
	ErrInsufficientBalance = &Error{
		Kind:    KindInsufficientResource,
		Code:    "INSUFFICIENT_BALANCE",
		Message: "insufficient balance",
	}
	ErrInsufficientShares = &Error{
		Kind:    KindInsufficientResource,
		Code:    "INSUFFICIENT_SHARES",
		Message: "insufficient shares available",
	}
	ErrTreasuryUnderfunded = &Error{
		Kind:    KindUpstream,
		Code:    "TREASURY_UNDERFUNDED",
		Message: "treasury cannot cover the withdrawal",
	}
	ErrSubmissionOutcomeUnknown = &Error{
		Kind:    KindReconciliationRequired,
		Code:    "SUBMISSION_OUTCOME_UNKNOWN",
		Message: "transfer submission outcome unknown",
	}
	ErrConfirmationTimeout = &Error{
		Kind:    KindReconciliationRequired,
		Code:    "CONFIRMATION_TIMEOUT",
		Message: "transfer submitted but confirmation timed out",
	}
	ErrBalanceUpdateFailedAfterWithdrawal = &Error{
		Kind:    KindReconciliationRequired,
		Code:    "BALANCE_UPDATE_FAILED_AFTER_WITHDRAWAL",
		Message: "transfer confirmed on-chain but balance debit failed",
	}
	ErrPaymentRecordedCreditFailed = &Error{
		Kind:    KindReconciliationRequired,
		Code:    "PAYMENT_RECORDED_CREDIT_FAILED",
		Message: "payment recorded but balance credit failed",
	}
)

// Wrap returns a copy of a named error carrying cause.
func Wrap(named *Error, cause error) *Error {
	return &Error{Kind: named.Kind, Code: named.Code, Message: named.Message, Err: cause}
}

func newf(kind Kind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Validation reports invalid input rejected before any side effect.
func Validation(format string, args ...any) *Error {
	return newf(KindValidation, "VALIDATION_ERROR", format, args...)
}

// NotFound reports an unknown user, asset, balance or record.
func NotFound(format string, args ...any) *Error {
	return newf(KindNotFound, "NOT_FOUND", format, args...)
}

// Conflict reports a request that contradicts existing state.
func Conflict(format string, args ...any) *Error {
	return newf(KindConflict, "CONFLICT", format, args...)
}

// Upstream wraps a chain client or store failure.
func Upstream(cause error, format string, args ...any) *Error {
	e := newf(KindUpstream, "UPSTREAM_ERROR", format, args...)
	e.Err = cause
	return e
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// CodeOf returns the Code of the first *Error in err's chain.
func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "INTERNAL_ERROR"
}

// HTTPStatus maps err onto the status code the API responds with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindInsufficientResource:
		return http.StatusUnprocessableEntity
	case KindConflict:
		return http.StatusConflict
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
