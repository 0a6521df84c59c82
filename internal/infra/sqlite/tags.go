package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mboyd/fintrack/internal/domain"
)

// AttachTag links a tag to a transaction, creating the tag by name if it
// does not exist yet. Attaching the same tag twice is a no-op, so the
// operation is safe to repeat.
func (s *Store) AttachTag(ctx context.Context, transactionID, tagName string) (*domain.Transaction, error) {
	err := s.withRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin attach: %w", err)
		}
		defer tx.Rollback()

		var one int
		err = tx.QueryRowContext(ctx, "SELECT 1 FROM transactions WHERE id = ?", transactionID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return &domain.ErrNotFound{Resource: "transaction", ID: transactionID}
		}
		if err != nil {
			return fmt.Errorf("check transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO tags (id, name) VALUES (?, ?) ON CONFLICT(name) DO NOTHING",
			uuid.NewString(), tagName,
		); err != nil {
			return fmt.Errorf("ensure tag: %w", err)
		}

		var tagID string
		if err := tx.QueryRowContext(ctx,
			"SELECT id FROM tags WHERE name = ?", tagName,
		).Scan(&tagID); err != nil {
			return fmt.Errorf("resolve tag: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO transaction_tags (transaction_id, tag_id) VALUES (?, ?)",
			transactionID, tagID,
		); err != nil {
			return fmt.Errorf("link tag: %w", err)
		}

		return tx.Commit()
	})
	if err != nil {
		return nil, err
	}
	return s.GetTransaction(ctx, transactionID)
}

// ListTags returns all tags ordered by name.
func (s *Store) ListTags(ctx context.Context) ([]domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM tags ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	tags := []domain.Tag{}
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// CreateTag inserts a standalone tag. Duplicate names conflict.
func (s *Store) CreateTag(ctx context.Context, t *domain.Tag) error {
	return s.withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			"INSERT INTO tags (id, name) VALUES (?, ?)", t.ID, t.Name)
		if err != nil {
			if isUniqueViolation(err) {
				return &domain.ErrConflict{Message: fmt.Sprintf("tag already exists: %s", t.Name)}
			}
			return fmt.Errorf("insert tag: %w", err)
		}
		return nil
	})
}

// DeleteTag removes a tag and, via cascade, all its transaction links.
func (s *Store) DeleteTag(ctx context.Context, id string) error {
	return s.withRetry(ctx, func() error {
		res, err := s.db.ExecContext(ctx, "DELETE FROM tags WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("delete tag: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return &domain.ErrNotFound{Resource: "tag", ID: id}
		}
		return nil
	})
}
