package domain

import "errors"

// Business-rule failures are shared across repos and services so handlers
// can map them to status codes with errors.Is.
var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrSelfTransfer        = errors.New("cannot transfer to self")
	ErrAccountNotFound     = errors.New("account not found")
	ErrUnknownPricing      = errors.New("no pricing rule for amount")
	ErrConcurrencyConflict = errors.New("concurrent modification, retry")
	ErrTransferFailed      = errors.New("transfer failed")
	ErrSettlementFailed    = errors.New("settlement failed")
	ErrInvalidPageToken    = errors.New("invalid page token")
)
