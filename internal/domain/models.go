package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account is a bank account balance row. The balance uses exact decimal
// arithmetic; it is only ever mutated by a coordinator that holds the
// account's lock stripe, inside a committed store transaction.
type Account struct {
	ID        uuid.UUID       // Unique identifier of the account
	Balance   decimal.Decimal // Current balance, exact decimal
	Currency  string          // ISO 4217 currency code
	UpdatedAt time.Time       // Timestamp of the last balance mutation
}

// LedgerEntry records one completed transfer. Entries are append-only and
// immutable; the id and insertion timestamp are assigned by the store at
// commit time.
type LedgerEntry struct {
	ID         int64           // Server-assigned identifier
	RequestID  string          // Caller-supplied correlation token
	SenderID   uuid.UUID       // Debited account
	ReceiverID uuid.UUID       // Credited account
	Amount     decimal.Decimal // Positive transfer magnitude
	Currency   string
	Inserted   time.Time // Set by the store at commit
}

// TransferRequest is an accepted transfer command. It is ephemeral: the
// request itself is never persisted, only its outcome (a ledger entry on
// success, notifications either way).
//
// RequestID is a caller-supplied correlation token. It is NOT enforced
// unique by the store: resubmitting the same token applies the transfer
// again.
type TransferRequest struct {
	RequestID  string
	SenderID   uuid.UUID
	ReceiverID uuid.UUID
	Amount     decimal.Decimal
	Currency   string
}

// Notification is the asynchronous outcome of a transfer attempt, delivered
// per recipient through the notification publisher.
type Notification struct {
	RequestID  string          `json:"requestId"`
	SenderID   uuid.UUID       `json:"senderId"`
	ReceiverID uuid.UUID       `json:"receiverId"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Successful bool            `json:"successful"`
	Error      string          `json:"error,omitempty"`
}

// Debit subtracts amount from the account balance and refreshes the
// timestamp. The caller is responsible for the sufficient-funds check.
func (a *Account) Debit(amount decimal.Decimal, at time.Time) {
	a.Balance = a.Balance.Sub(amount)
	a.UpdatedAt = at
}

// Credit adds amount to the account balance and refreshes the timestamp.
func (a *Account) Credit(amount decimal.Decimal, at time.Time) {
	a.Balance = a.Balance.Add(amount)
	a.UpdatedAt = at
}

// HasSufficientFunds reports whether the balance covers amount. An exact
// zero remainder is allowed.
func (a *Account) HasSufficientFunds(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}
