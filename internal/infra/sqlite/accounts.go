package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mboyd/fintrack/internal/domain"
)

const accountColumns = "id, name, bank_name, account_number, balance, created_at, updated_at"

// CreateAccount inserts a new account.
func (s *Store) CreateAccount(ctx context.Context, a *domain.Account) error {
	return s.withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO accounts (id, name, bank_name, account_number, balance, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.Name, a.BankName, a.AccountNumber, a.Balance,
			fmtTime(a.CreatedAt), fmtTime(a.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert account: %w", err)
		}
		return nil
	})
}

// ListAccounts returns all accounts ordered by creation time descending.
func (s *Store) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+accountColumns+" FROM accounts ORDER BY created_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []domain.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

// GetAccount returns one account by id.
func (s *Store) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id = ?", id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "account", ID: id}
	}
	return a, err
}

// IncrementBalance applies delta to the stored balance as an atomic
// relative update and returns the refreshed account. This is never a
// read-then-overwrite: concurrent increments cannot lose updates.
func (s *Store) IncrementBalance(ctx context.Context, accountID string, delta float64) (*domain.Account, error) {
	err := s.withRetry(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			"UPDATE accounts SET balance = balance + ?, updated_at = ? WHERE id = ?",
			delta, fmtTime(time.Now()), accountID,
		)
		if err != nil {
			return fmt.Errorf("increment balance: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return &domain.ErrNotFound{Resource: "account", ID: accountID}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetAccount(ctx, accountID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(r rowScanner) (*domain.Account, error) {
	var a domain.Account
	var created, updated string
	if err := r.Scan(&a.ID, &a.Name, &a.BankName, &a.AccountNumber, &a.Balance, &created, &updated); err != nil {
		return nil, err
	}
	var err error
	if a.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("parse account created_at: %w", err)
	}
	if a.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, fmt.Errorf("parse account updated_at: %w", err)
	}
	return &a, nil
}
