package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finflow/transfer-service/internal/domain"
)

// LedgerRepository implements domain.LedgerRepository using PostgreSQL. The
// ledger is append-only; the id and insertion timestamp are assigned by the
// database.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// Append inserts one ledger entry and fills in the server-assigned id and
// insertion timestamp on the passed entry. The request id column carries the
// caller's correlation token; it is intentionally not unique, so duplicate
// submissions append duplicate entries.
func (r *LedgerRepository) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (request_id, sender_id, receiver_id, amount, currency)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, inserted
	`

	var row pgx.Row
	if tx := getTx(ctx); tx != nil {
		row = tx.QueryRow(ctx, query, entry.RequestID, entry.SenderID, entry.ReceiverID, entry.Amount, entry.Currency)
	} else {
		row = r.pool.QueryRow(ctx, query, entry.RequestID, entry.SenderID, entry.ReceiverID, entry.Amount, entry.Currency)
	}

	if err := row.Scan(&entry.ID, &entry.Inserted); err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

// ListBySender returns the entries debited from one account in insertion
// order. Used by tests and operational tooling; the engine itself never
// reads the ledger.
func (r *LedgerRepository) ListBySender(ctx context.Context, senderID uuid.UUID) ([]domain.LedgerEntry, error) {
	query := `
		SELECT id, request_id, sender_id, receiver_id, amount, currency, inserted
		FROM ledger_entries
		WHERE sender_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, senderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var entry domain.LedgerEntry
		err := rows.Scan(
			&entry.ID,
			&entry.RequestID,
			&entry.SenderID,
			&entry.ReceiverID,
			&entry.Amount,
			&entry.Currency,
			&entry.Inserted,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ledger entries: %w", err)
	}
	return entries, nil
}

var _ domain.LedgerRepository = (*LedgerRepository)(nil)
