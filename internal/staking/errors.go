package staking

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by ledger operations.
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidToken       = errors.New("invalid token")
	ErrMissingIntent      = errors.New("missing stake intent")
	ErrAccrualUndefined   = errors.New("accrual undefined: no tokens staked")
	ErrStorage            = errors.New("storage failure")
	ErrNotInitialized     = errors.New("ledger not initialized")
	ErrAlreadyInitialized = errors.New("ledger already initialized")
	ErrDuplicateRequest   = errors.New("duplicate request")
	ErrInvalidAddress     = errors.New("invalid address")
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrUnauthorized, "Unauthorized"},
	{ErrInvalidToken, "InvalidToken"},
	{ErrMissingIntent, "MissingIntent"},
	{ErrAccrualUndefined, "AccrualUndefined"},
	{ErrDuplicateRequest, "DuplicateRequest"},
	{ErrNotInitialized, "NotInitialized"},
	{ErrAlreadyInitialized, "AlreadyInitialized"},
	{ErrInvalidAddress, "InvalidAddress"},
	{ErrInvalidMessage, "InvalidMessage"},
	{ErrStorage, "StorageFailure"},
}

// KindOf returns the public error kind of err. Errors that match no sentinel
// can only come from below the ledger and are reported as StorageFailure.
func KindOf(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "StorageFailure"
}

func isLedgerError(err error) bool {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return true
		}
	}
	return false
}

// wrapStorage tags errors raised by the store with ErrStorage.
func wrapStorage(err error) error {
	if err == nil || isLedgerError(err) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStorage, err)
}
