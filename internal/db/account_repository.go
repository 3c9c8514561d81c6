package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finflow/transfer-service/internal/domain"
)

// AccountRepository implements domain.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// GetByID retrieves an account by its unique identifier.
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `
		SELECT id, balance, currency, updated_at
		FROM accounts
		WHERE id = $1
	`

	var row pgx.Row
	if tx := getTx(ctx); tx != nil {
		row = tx.QueryRow(ctx, query, id)
	} else {
		row = r.pool.QueryRow(ctx, query, id)
	}

	var account domain.Account
	err := row.Scan(&account.ID, &account.Balance, &account.Currency, &account.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

// GetByIDs retrieves the accounts for the given ids, returning only rows
// that exist. The caller compares the result against the requested set to
// identify missing participants.
func (r *AccountRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Account, error) {
	query := `
		SELECT id, balance, currency, updated_at
		FROM accounts
		WHERE id = ANY($1)
	`

	var rows pgx.Rows
	var err error
	if tx := getTx(ctx); tx != nil {
		rows, err = tx.Query(ctx, query, ids)
	} else {
		rows, err = r.pool.Query(ctx, query, ids)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0, len(ids))
	for rows.Next() {
		var account domain.Account
		if err := rows.Scan(&account.ID, &account.Balance, &account.Currency, &account.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read accounts: %w", err)
	}
	return accounts, nil
}

// Save persists updated balances and timestamps. When called inside a
// transaction context the updates join that transaction.
func (r *AccountRepository) Save(ctx context.Context, accounts ...*domain.Account) error {
	query := `
		UPDATE accounts
		SET balance = $2,
		    updated_at = $3
		WHERE id = $1
	`

	for _, account := range accounts {
		var rowsAffected int64
		if tx := getTx(ctx); tx != nil {
			result, err := tx.Exec(ctx, query, account.ID, account.Balance, account.UpdatedAt)
			if err != nil {
				return fmt.Errorf("failed to update account: %w", err)
			}
			rowsAffected = result.RowsAffected()
		} else {
			result, err := r.pool.Exec(ctx, query, account.ID, account.Balance, account.UpdatedAt)
			if err != nil {
				return fmt.Errorf("failed to update account: %w", err)
			}
			rowsAffected = result.RowsAffected()
		}
		if rowsAffected == 0 {
			return domain.ErrAccountNotFound
		}
	}
	return nil
}

// Create inserts a new account row. Account provisioning is outside the
// transfer engine; this exists for seeding and tests.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, balance, currency, updated_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.pool.Exec(ctx, query, account.ID, account.Balance, account.Currency, account.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

var _ domain.AccountRepository = (*AccountRepository)(nil)
