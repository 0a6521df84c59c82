// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the service layer
// from concrete implementations. The store is constructed once and passed
// in at initialization; there is no ambient global store handle.
package port

import (
	"context"
	"time"

	"github.com/mboyd/fintrack/internal/domain"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	Clear()
}

// LedgerStore defines all data operations for the ledger.
// Implemented by the SQLite adapter (or any other persistence layer).
//
// Implementations must execute IncrementBalance as an atomic relative
// adjustment (never a read-then-overwrite) and ImportTransactions as a
// single all-or-nothing transaction, since correctness of account balances
// under concurrent imports depends on both properties.
type LedgerStore interface {
	// Accounts
	CreateAccount(ctx context.Context, account *domain.Account) error
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	IncrementBalance(ctx context.Context, accountID string, delta float64) (*domain.Account, error)

	// Transactions
	CreateTransaction(ctx context.Context, tx *domain.Transaction) error
	ListTransactions(ctx context.Context) ([]domain.Transaction, error)
	RecentTransactions(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)
	UpdateTransaction(ctx context.Context, id string, category, comment *string) (*domain.Transaction, error)

	// Statement import: inserts all rows and applies one aggregate balance
	// increment inside a single transaction.
	ImportTransactions(ctx context.Context, accountID string, rows []domain.Transaction) error

	// Tags
	AttachTag(ctx context.Context, transactionID, tagName string) (*domain.Transaction, error)
	ListTags(ctx context.Context) ([]domain.Tag, error)
	CreateTag(ctx context.Context, tag *domain.Tag) error
	DeleteTag(ctx context.Context, id string) error

	// Reports: parameterized aggregates stay inside the store so callers
	// never bypass its invariant boundary with ad hoc queries.
	ReportSummary(ctx context.Context, start, end time.Time) (*domain.ReportSummary, error)
	ReportByMonth(ctx context.Context, start, end time.Time) ([]domain.MonthlyReport, error)
	ReportByAccount(ctx context.Context, start, end time.Time) ([]domain.AccountReport, error)

	// Health
	Ping(ctx context.Context) error
}
