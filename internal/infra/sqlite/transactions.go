package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mboyd/fintrack/internal/domain"
)

const transactionColumns = "id, account_id, date, description, amount, type, category, comment, created_at"

const insertTransactionSQL = `INSERT INTO transactions
	(id, account_id, date, description, amount, type, category, comment, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func transactionArgs(t *domain.Transaction) []any {
	var category, comment any
	if t.Category != "" {
		category = t.Category
	}
	if t.Comment != "" {
		comment = t.Comment
	}
	return []any{
		t.ID, t.AccountID, fmtDate(t.Date), t.Description, t.Amount, t.Type,
		category, comment, fmtTime(t.CreatedAt),
	}
}

// CreateTransaction inserts a single transaction. The owning account must
// already exist.
func (s *Store) CreateTransaction(ctx context.Context, t *domain.Transaction) error {
	return s.withRetry(ctx, func() error {
		if _, err := s.GetAccount(ctx, t.AccountID); err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx, insertTransactionSQL, transactionArgs(t)...); err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		return nil
	})
}

// ImportTransactions inserts all rows and applies their signed sum to the
// owning account's balance in a single database transaction. The balance
// is mutated exactly once per import; on any failure nothing is committed.
func (s *Store) ImportTransactions(ctx context.Context, accountID string, rows []domain.Transaction) error {
	return s.withRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin import: %w", err)
		}
		defer tx.Rollback()

		var one int
		err = tx.QueryRowContext(ctx, "SELECT 1 FROM accounts WHERE id = ?", accountID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return &domain.ErrNotFound{Resource: "account", ID: accountID}
		}
		if err != nil {
			return fmt.Errorf("check account: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, insertTransactionSQL)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		var delta float64
		for i := range rows {
			if _, err := stmt.ExecContext(ctx, transactionArgs(&rows[i])...); err != nil {
				return fmt.Errorf("insert row %d: %w", i+1, err)
			}
			delta += rows[i].SignedAmount()
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE accounts SET balance = balance + ?, updated_at = ? WHERE id = ?",
			delta, fmtTime(time.Now()), accountID,
		); err != nil {
			return fmt.Errorf("apply balance delta: %w", err)
		}

		return tx.Commit()
	})
}

// ListTransactions returns every transaction ordered by date descending,
// each carrying its tags.
func (s *Store) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	return s.queryTransactions(ctx,
		"SELECT "+transactionColumns+" FROM transactions ORDER BY date DESC, created_at DESC")
}

// RecentTransactions returns the account's most recent transactions.
func (s *Store) RecentTransactions(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error) {
	return s.queryTransactions(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE account_id = ? ORDER BY date DESC, created_at DESC LIMIT ?",
		accountID, limit)
}

// GetTransaction returns one transaction with its tags.
func (s *Store) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	list, err := s.queryTransactions(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: id}
	}
	return &list[0], nil
}

// UpdateTransaction applies a partial update: only supplied fields change.
func (s *Store) UpdateTransaction(ctx context.Context, id string, category, comment *string) (*domain.Transaction, error) {
	sets := make([]string, 0, 2)
	args := make([]any, 0, 3)
	if category != nil {
		sets = append(sets, "category = ?")
		if *category == "" {
			args = append(args, nil)
		} else {
			args = append(args, *category)
		}
	}
	if comment != nil {
		sets = append(sets, "comment = ?")
		args = append(args, *comment)
	}
	if len(sets) == 0 {
		return s.GetTransaction(ctx, id)
	}
	args = append(args, id)

	err := s.withRetry(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			"UPDATE transactions SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
		if err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return &domain.ErrNotFound{Resource: "transaction", ID: id}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetTransaction(ctx, id)
}

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	txs := []domain.Transaction{}
	ids := []string{}
	for rows.Next() {
		var t domain.Transaction
		var date, created string
		var category, comment sql.NullString
		if err := rows.Scan(&t.ID, &t.AccountID, &date, &t.Description, &t.Amount,
			&t.Type, &category, &comment, &created); err != nil {
			return nil, err
		}
		if t.Date, err = parseDate(date); err != nil {
			return nil, fmt.Errorf("parse transaction date: %w", err)
		}
		if t.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("parse transaction created_at: %w", err)
		}
		t.Category = category.String
		t.Comment = comment.String
		t.Tags = []domain.Tag{}
		txs = append(txs, t)
		ids = append(ids, t.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tagsByTx, err := s.loadTags(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range txs {
		if tags, ok := tagsByTx[txs[i].ID]; ok {
			txs[i].Tags = tags
		}
	}
	return txs, nil
}

// loadTags fetches tag associations for the given transaction ids in one query.
func (s *Store) loadTags(ctx context.Context, txIDs []string) (map[string][]domain.Tag, error) {
	if len(txIDs) == 0 {
		return map[string][]domain.Tag{}, nil
	}

	placeholders := strings.Repeat("?,", len(txIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(txIDs))
	for i, id := range txIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT tt.transaction_id, g.id, g.name
		 FROM transaction_tags tt
		 JOIN tags g ON g.id = tt.tag_id
		 WHERE tt.transaction_id IN (`+placeholders+`)
		 ORDER BY g.name`, args...)
	if err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}
	defer rows.Close()

	out := map[string][]domain.Tag{}
	for rows.Next() {
		var txID string
		var tag domain.Tag
		if err := rows.Scan(&txID, &tag.ID, &tag.Name); err != nil {
			return nil, err
		}
		out[txID] = append(out[txID], tag)
	}
	return out, rows.Err()
}
