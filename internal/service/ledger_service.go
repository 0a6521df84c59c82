// Package service provides the business logic layer (use cases).
// LedgerService handles accounts and transactions, ImportService handles
// statement imports, ReportService handles aggregates, TagService handles
// tags and categories.
package service

import (
	"context"
	"time"

	"github.com/mboyd/fintrack/internal/domain"
	"github.com/mboyd/fintrack/internal/infra/observability"
	"github.com/mboyd/fintrack/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ledgerTracer = otel.Tracer("service/ledger")

// Defaults applied when an account is created without bank details.
const (
	defaultBankName      = "Default Bank"
	defaultAccountNumber = "****0000"
)

// LedgerService orchestrates account and transaction operations.
type LedgerService struct {
	store       port.LedgerStore
	reportCache port.Cache[any]
	metrics     *observability.Metrics
	logger      *zap.Logger
	recentLimit int
}

// NewLedgerService creates a new ledger service. recentLimit bounds how many
// recent transactions each account carries in ListAccounts.
func NewLedgerService(store port.LedgerStore, reportCache port.Cache[any], metrics *observability.Metrics, logger *zap.Logger, recentLimit int) *LedgerService {
	return &LedgerService{
		store:       store,
		reportCache: reportCache,
		metrics:     metrics,
		logger:      logger,
		recentLimit: recentLimit,
	}
}

// ============================================================
// Accounts
// ============================================================

func (s *LedgerService) CreateAccount(ctx context.Context, req *domain.CreateAccountRequest) (*domain.Account, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreateAccount")
	defer span.End()

	if req.Name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "required"}
	}
	if req.BankName == "" {
		req.BankName = defaultBankName
	}
	if req.AccountNumber == "" {
		req.AccountNumber = defaultAccountNumber
	}

	now := time.Now()
	account := &domain.Account{
		ID:            uuid.NewString(),
		Name:          req.Name,
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.CreateAccount(ctx, account); err != nil {
		s.logger.Error("failed to create account", zap.String("name", req.Name), zap.Error(err))
		return nil, err
	}

	s.logger.Info("account created",
		zap.String("account_id", account.ID),
		zap.String("name", account.Name),
	)
	return account, nil
}

// ListAccounts returns all accounts, each with its most recent transactions.
// The per-account lookups fan out concurrently.
func (s *LedgerService) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListAccounts")
	defer span.End()

	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range accounts {
		i := i
		g.Go(func() error {
			recent, err := s.store.RecentTransactions(gctx, accounts[i].ID, s.recentLimit)
			if err != nil {
				return err
			}
			accounts[i].Transactions = recent
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (s *LedgerService) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.GetAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", id))

	return s.store.GetAccount(ctx, id)
}

// ============================================================
// Transactions
// ============================================================

func (s *LedgerService) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListTransactions")
	defer span.End()

	return s.store.ListTransactions(ctx)
}

func (s *LedgerService) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.GetTransaction")
	defer span.End()

	return s.store.GetTransaction(ctx, id)
}

// CreateTransaction records a single transaction and applies its signed
// amount to the owning account's balance.
func (s *LedgerService) CreateTransaction(ctx context.Context, req *domain.CreateTransactionRequest) (*domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreateTransaction")
	defer span.End()

	if req.AccountID == "" {
		return nil, &domain.ErrValidation{Field: "account_id", Message: "required"}
	}
	if req.Description == "" {
		return nil, &domain.ErrValidation{Field: "description", Message: "required"}
	}
	if req.Amount < 0 {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must be a non-negative magnitude"}
	}
	if !domain.ValidTransactionType(req.Type) {
		return nil, &domain.ErrValidation{Field: "type", Message: "must be credit or debit"}
	}
	if req.Category != "" && !domain.ValidCategory(req.Category) {
		return nil, &domain.ErrValidation{Field: "category", Message: "must be one of Income, Expense, Asset, Liability"}
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, &domain.ErrValidation{Field: "date", Message: "must be YYYY-MM-DD"}
	}

	txn := &domain.Transaction{
		ID:          uuid.NewString(),
		AccountID:   req.AccountID,
		Date:        date,
		Description: req.Description,
		Amount:      req.Amount,
		Type:        req.Type,
		Category:    req.Category,
		Comment:     req.Comment,
		Tags:        []domain.Tag{},
		CreatedAt:   time.Now(),
	}

	if err := s.store.CreateTransaction(ctx, txn); err != nil {
		s.logger.Error("failed to create transaction",
			zap.String("account_id", req.AccountID), zap.Error(err))
		return nil, err
	}
	if _, err := s.store.IncrementBalance(ctx, req.AccountID, txn.SignedAmount()); err != nil {
		s.logger.Error("failed to apply balance delta",
			zap.String("account_id", req.AccountID),
			zap.String("transaction_id", txn.ID),
			zap.Error(err))
		return nil, err
	}
	s.reportCache.Clear()

	s.logger.Info("transaction created",
		zap.String("transaction_id", txn.ID),
		zap.String("account_id", txn.AccountID),
		zap.Float64("amount", txn.Amount),
		zap.String("type", txn.Type),
	)
	return txn, nil
}

// UpdateTransaction applies a partial update to category and/or comment.
func (s *LedgerService) UpdateTransaction(ctx context.Context, id string, req *domain.UpdateTransactionRequest) (*domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.UpdateTransaction")
	defer span.End()

	if req.Category != nil && *req.Category != "" && !domain.ValidCategory(*req.Category) {
		return nil, &domain.ErrValidation{Field: "category", Message: "must be one of Income, Expense, Asset, Liability"}
	}

	txn, err := s.store.UpdateTransaction(ctx, id, req.Category, req.Comment)
	if err != nil {
		return nil, err
	}
	s.reportCache.Clear()
	return txn, nil
}

// AttachTag attaches a named tag to a transaction, creating the tag on
// first use. Re-attaching the same tag is a no-op.
func (s *LedgerService) AttachTag(ctx context.Context, transactionID, tagName string) (*domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.AttachTag")
	defer span.End()

	if tagName == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "required"}
	}
	return s.store.AttachTag(ctx, transactionID, tagName)
}
