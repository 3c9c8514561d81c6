package domain

import "errors"

var (
	// ErrAccountNotFound is returned when an account doesn't exist
	ErrAccountNotFound = errors.New("account not found")

	// ErrInsufficientFunds is returned when the sender doesn't have enough balance
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAmount is returned when the transfer amount is not positive
	ErrInvalidAmount = errors.New("invalid amount: must be positive")

	// ErrSameAccount is returned when sender and receiver are the same
	ErrSameAccount = errors.New("sender and receiver must be different accounts")

	// ErrUnsupportedOperation is returned for single-sided transfers
	// (top-up or withdrawal), which this engine does not implement.
	ErrUnsupportedOperation = errors.New("single-sided operations are not supported")

	// ErrCurrencyMismatch is returned when account and transfer currencies don't match
	ErrCurrencyMismatch = errors.New("currency mismatch between accounts and transfer")
)
