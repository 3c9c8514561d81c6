// Package memory provides an in-memory implementation of the store
// contracts. It mirrors the PostgreSQL store closely enough to back unit
// tests and local runs: thread-safe, serial transactions with rollback on
// error, server-assigned ledger ids.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/finflow/transfer-service/internal/domain"
)

// Store holds accounts and ledger entries in memory.
type Store struct {
	mu          sync.Mutex
	accounts    map[uuid.UUID]domain.Account
	entries     []domain.LedgerEntry
	nextEntryID int64

	// txMu serializes WithTransaction; rollback restores a snapshot of the
	// whole store, so transactions must not interleave.
	txMu sync.Mutex
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		accounts:    make(map[uuid.UUID]domain.Account),
		nextEntryID: 1,
	}
}

// Put inserts or replaces an account. Seeding helper for tests and local
// runs; provisioning is outside the engine.
func (s *Store) Put(account domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.ID] = account
}

// GetByID retrieves a single account.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &account, nil
}

// GetByIDs retrieves the accounts that exist among the given ids.
func (s *Store) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := make([]domain.Account, 0, len(ids))
	for _, id := range ids {
		if account, ok := s.accounts[id]; ok {
			accounts = append(accounts, account)
		}
	}
	return accounts, nil
}

// Save persists updated accounts.
func (s *Store) Save(ctx context.Context, accounts ...*domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, account := range accounts {
		if _, ok := s.accounts[account.ID]; !ok {
			return domain.ErrAccountNotFound
		}
		s.accounts[account.ID] = *account
	}
	return nil
}

// Append stores a new ledger entry, assigning the id and insertion
// timestamp the way the database would.
func (s *Store) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.ID = s.nextEntryID
	s.nextEntryID++
	entry.Inserted = time.Now().UTC()
	s.entries = append(s.entries, *entry)
	return nil
}

// WithTransaction runs fn atomically against the store: on error every
// mutation made by fn is rolled back. Transactions are serialized, which is
// correct here because the coordinator's stripe locks already prevent two
// mutators from touching the same accounts.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	accountsSnapshot := make(map[uuid.UUID]domain.Account, len(s.accounts))
	for id, account := range s.accounts {
		accountsSnapshot[id] = account
	}
	entriesLen := len(s.entries)
	nextID := s.nextEntryID
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.accounts = accountsSnapshot
		s.entries = s.entries[:entriesLen]
		s.nextEntryID = nextID
		s.mu.Unlock()
		return err
	}
	return nil
}

// Entries returns a copy of all ledger entries in insertion order.
func (s *Store) Entries() []domain.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]domain.LedgerEntry, len(s.entries))
	copy(copied, s.entries)
	return copied
}

// Compile-time checks: Store satisfies all three store contracts.
var (
	_ domain.AccountRepository  = (*Store)(nil)
	_ domain.LedgerRepository   = (*Store)(nil)
	_ domain.TransactionManager = (*Store)(nil)
)
