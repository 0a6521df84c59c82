// Package sqlite implements the LedgerStore port on an embedded SQLite
// database. Statement imports run as a single transaction and balance
// updates are relative (`balance = balance + ?`), which is what keeps
// account balances correct when imports interleave.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mboyd/fintrack/internal/infra/resilience"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339Nano
)

// Store is the SQLite-backed ledger store.
type Store struct {
	db      *sql.DB
	logger  *zap.Logger
	retry   resilience.Config
	onRetry func()
}

// Open opens (or creates) the database at path, runs migrations, and
// returns a ready store.
func Open(path string, retry resilience.Config, logger *zap.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := runMigrations(path); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{db: db, logger: logger, retry: retry}, nil
}

// SetRetryHook installs a callback invoked once per retried write,
// used to feed the store-retry metric.
func (s *Store) SetRetryHook(fn func()) {
	s.onRetry = fn
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks store liveness.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// withRetry runs a write operation, retrying only on transient lock
// contention. Permanent errors (constraint violations, not-found) are
// returned immediately.
func (s *Store) withRetry(ctx context.Context, fn func() error) error {
	var permanent error
	attempts := 0
	err := resilience.RetryWithBackoff(ctx, s.retry, func() error {
		attempts++
		if attempts > 1 && s.onRetry != nil {
			s.onRetry()
		}
		err := fn()
		if err == nil {
			return nil
		}
		if !isBusy(err) {
			permanent = err
			return nil
		}
		s.logger.Warn("store write contended, retrying",
			zap.Int("attempt", attempts),
			zap.Error(err),
		)
		return err
	})
	if permanent != nil {
		return permanent
	}
	return err
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY")
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func fmtDate(t time.Time) string { return t.UTC().Format(dateLayout) }

func fmtTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
