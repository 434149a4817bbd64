package storage

import "errors"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists is returned when a unique insert collides with an existing record.
var ErrAlreadyExists = errors.New("record already exists")

// ErrVersionConflict is returned when an optimistic concurrency check fails because
// the row changed since it was read. Callers re-read and retry.
var ErrVersionConflict = errors.New("version conflict")

// ErrInsufficientFunds is returned when an account has an insufficient available balance for a hold.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrAlreadyCredited is returned when a payment's credit flag was already set by another writer.
var ErrAlreadyCredited = errors.New("payment already credited")

// ErrStatusConflict is returned when a record is not in the state a transition expects.
var ErrStatusConflict = errors.New("record not in expected state")

// ErrAlreadyClaimed is returned when a payment has already been used for a share purchase.
var ErrAlreadyClaimed = errors.New("payment already claimed")
