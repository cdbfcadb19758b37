package common

import "errors"

// Ledger and content store error kinds. Callers match with errors.Is;
// wrapped errors carry the details.
var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrNotFound            = errors.New("not found")
	ErrNotOwner            = errors.New("not owner")
	ErrNotAuthorized       = errors.New("not authorized")
	ErrAlreadySold         = errors.New("item already sold")
	ErrInsufficientPayment = errors.New("payment does not match total price")
	ErrOwnershipMismatch   = errors.New("ownership mismatch")

	// ErrTransient marks failures that are safe to retry (network faults,
	// ledger or content store unavailable). Retries happen at the publish
	// stage boundary only, never inside a single call.
	ErrTransient = errors.New("transient failure")

	// ErrFatal marks a broken ledger invariant. It is logged and surfaced,
	// never swallowed.
	ErrFatal = errors.New("ledger invariant violation")
)
