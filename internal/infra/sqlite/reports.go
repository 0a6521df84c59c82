package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/mboyd/fintrack/internal/domain"
)

// Income counts positive credit amounts, expense counts positive debit
// amounts. Zero-amount rows contribute to neither side.
const (
	incomeExpr  = "COALESCE(SUM(CASE WHEN type = 'credit' AND amount > 0 THEN amount ELSE 0 END), 0)"
	expenseExpr = "COALESCE(SUM(CASE WHEN type = 'debit' AND amount > 0 THEN amount ELSE 0 END), 0)"
)

// ReportSummary totals income and expense over the inclusive date range.
func (s *Store) ReportSummary(ctx context.Context, start, end time.Time) (*domain.ReportSummary, error) {
	var r domain.ReportSummary
	err := s.db.QueryRowContext(ctx,
		"SELECT "+incomeExpr+", "+expenseExpr+" FROM transactions WHERE date >= ? AND date <= ?",
		fmtDate(start), fmtDate(end),
	).Scan(&r.TotalIncome, &r.TotalExpense)
	if err != nil {
		return nil, fmt.Errorf("report summary: %w", err)
	}
	return &r, nil
}

// ReportByMonth groups totals by calendar month, newest first.
func (s *Store) ReportByMonth(ctx context.Context, start, end time.Time) ([]domain.MonthlyReport, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT substr(date, 1, 7) AS month, `+incomeExpr+`, `+expenseExpr+`
		 FROM transactions
		 WHERE date >= ? AND date <= ?
		 GROUP BY month
		 ORDER BY month DESC`,
		fmtDate(start), fmtDate(end),
	)
	if err != nil {
		return nil, fmt.Errorf("report by month: %w", err)
	}
	defer rows.Close()

	reports := []domain.MonthlyReport{}
	for rows.Next() {
		var r domain.MonthlyReport
		if err := rows.Scan(&r.Month, &r.TotalIncome, &r.TotalExpense); err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// ReportByAccount groups totals by owning account. Accounts with no
// transactions in range are omitted.
func (s *Store) ReportByAccount(ctx context.Context, start, end time.Time) ([]domain.AccountReport, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.name, `+incomeExpr+`, `+expenseExpr+`
		 FROM transactions t
		 JOIN accounts a ON a.id = t.account_id
		 WHERE t.date >= ? AND t.date <= ?
		 GROUP BY a.id, a.name
		 ORDER BY a.name`,
		fmtDate(start), fmtDate(end),
	)
	if err != nil {
		return nil, fmt.Errorf("report by account: %w", err)
	}
	defer rows.Close()

	reports := []domain.AccountReport{}
	for rows.Next() {
		var r domain.AccountReport
		if err := rows.Scan(&r.AccountName, &r.TotalIncome, &r.TotalExpense); err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}
