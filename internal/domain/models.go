// Package domain defines the core business entities for the finance tracker.
// These models are independent of the storage layer and represent the
// canonical data structures used throughout the service.
package domain

import "time"

// ============================================================
// Accounts
// ============================================================

// Account is a named money container with a running balance.
// The balance equals the signed sum of all transactions referencing the
// account (credit = +amount, debit = -amount) after any committed import.
type Account struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	BankName      string    `json:"bank_name"`
	AccountNumber string    `json:"account_number"` // masked, e.g. ****0000
	Balance       float64   `json:"balance"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// Transactions carries the account's most recent transactions when the
	// caller asked for them (GET /accounts); empty otherwise.
	Transactions []Transaction `json:"transactions,omitempty"`
}

// ============================================================
// Transactions
// ============================================================

// Transaction direction. Credit increases the owning account's balance,
// debit decreases it.
const (
	TypeCredit = "credit"
	TypeDebit  = "debit"
)

// Transaction is a single dated money movement against one account.
// Amount is always a non-negative magnitude; direction is carried by Type.
type Transaction struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"account_id"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Type        string    `json:"type"` // credit | debit
	Category    string    `json:"category,omitempty"`
	Comment     string    `json:"comment,omitempty"`
	Tags        []Tag     `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
}

// SignedAmount returns +Amount for credits and -Amount for debits.
func (t *Transaction) SignedAmount() float64 {
	if t.Type == TypeDebit {
		return -t.Amount
	}
	return t.Amount
}

// ============================================================
// Categories
// ============================================================

// Category values form a closed set classifying a transaction's
// accounting nature.
const (
	CategoryIncome    = "Income"
	CategoryExpense   = "Expense"
	CategoryAsset     = "Asset"
	CategoryLiability = "Liability"
)

// Categories returns the closed category set, in display order.
func Categories() []string {
	return []string{CategoryIncome, CategoryExpense, CategoryAsset, CategoryLiability}
}

// ValidCategory reports whether c is a member of the closed category set.
func ValidCategory(c string) bool {
	switch c {
	case CategoryIncome, CategoryExpense, CategoryAsset, CategoryLiability:
		return true
	}
	return false
}

// ValidTransactionType reports whether t is credit or debit.
func ValidTransactionType(t string) bool {
	return t == TypeCredit || t == TypeDebit
}

// ============================================================
// Tags
// ============================================================

// Tag is a free-form label, many-to-many with transactions.
// Name is the natural key and is unique (exact match) across the store.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ============================================================
// Reports
// ============================================================

// ReportSummary holds income/expense totals over a date range.
// Income sums amounts whose signed value is positive, expense sums the
// absolute value of negative ones; a signed value of exactly zero
// contributes to neither.
type ReportSummary struct {
	TotalIncome  float64 `json:"total_income"`
	TotalExpense float64 `json:"total_expense"`
}

// MonthlyReport is one report row per calendar month, most recent first.
type MonthlyReport struct {
	Month        string  `json:"month"` // YYYY-MM
	TotalIncome  float64 `json:"total_income"`
	TotalExpense float64 `json:"total_expense"`
}

// AccountReport is one report row per account with activity in range.
type AccountReport struct {
	AccountName  string  `json:"account_name"`
	TotalIncome  float64 `json:"total_income"`
	TotalExpense float64 `json:"total_expense"`
}

// ============================================================
// Import
// ============================================================

// ImportResult summarizes a committed statement import.
type ImportResult struct {
	Success          bool `json:"success"`
	TransactionCount int  `json:"transactionCount"`
}

// ============================================================
// Requests
// ============================================================

// CreateAccountRequest is the payload for creating an account.
type CreateAccountRequest struct {
	Name          string `json:"name"`
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
}

// CreateTransactionRequest is the payload for recording a single
// transaction by hand. Date is YYYY-MM-DD.
type CreateTransactionRequest struct {
	AccountID   string  `json:"account_id"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Type        string  `json:"type"`
	Category    string  `json:"category,omitempty"`
	Comment     string  `json:"comment,omitempty"`
}

// UpdateTransactionRequest is a partial update: nil fields are untouched,
// an empty category clears it.
type UpdateTransactionRequest struct {
	Category *string `json:"category"`
	Comment  *string `json:"comment"`
}

// AttachTagRequest names the tag to attach to a transaction.
type AttachTagRequest struct {
	Name string `json:"name"`
}

// CreateTagRequest names a standalone tag to create.
type CreateTagRequest struct {
	Name string `json:"name"`
}
