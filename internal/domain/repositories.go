package domain

import (
	"context"

	"github.com/google/uuid"
)

// AccountRepository defines the data access contract for accounts.
// Accounts are created by an out-of-scope provisioning path; the engine
// only reads them and persists balance mutations.
type AccountRepository interface {
	// GetByID retrieves a single account.
	// Returns ErrAccountNotFound if the account doesn't exist.
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// GetByIDs retrieves the accounts for the given ids, returning only
	// those that exist. Callers detect missing participants by comparing
	// the result against the requested id set.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]Account, error)

	// Save persists updated balances and timestamps for the given
	// accounts. When called inside a transaction context the writes join
	// that transaction, so they can be composed atomically with a ledger
	// append.
	Save(ctx context.Context, accounts ...*Account) error
}

// LedgerRepository defines the data access contract for the append-only
// transfer log.
type LedgerRepository interface {
	// Append persists a new ledger entry and fills in the server-assigned
	// id and insertion timestamp on the passed entry.
	Append(ctx context.Context, entry *LedgerEntry) error
}

// TransactionManager defines the interface for managing store transactions.
// This abstraction allows the coordinator to commit the balance mutation and
// the ledger append as one atomic unit without being coupled to a specific
// database implementation.
type TransactionManager interface {
	// WithTransaction executes the given function within a transaction.
	// If the function returns an error, the transaction is rolled back.
	// Otherwise, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Notifier publishes transfer outcome notifications. Delivery is
// at-least-once; notifications published for the same account id are
// delivered to that account's observers in publish order.
type Notifier interface {
	Publish(ctx context.Context, accountID uuid.UUID, n Notification) error
}
