package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository aggregates document-level figures for the P&L.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SalesTotals aggregates revenue, returns, and captured COGS from posted
// sales and return entries over [from, to). Journal entries map one-to-one
// onto source documents, which keeps the report at document granularity.
func (r *Repository) SalesTotals(ctx context.Context, from, to time.Time) (SalesTotals, error) {
	var totals SalesTotals
	err := r.pool.QueryRow(ctx, `SELECT
  COALESCE(SUM(jl.credit) FILTER (WHERE a.subtype='sales_revenue' AND je.type='SALES'), 0),
  COALESCE(SUM(jl.debit)  FILTER (WHERE a.subtype='sales_returns' AND je.type='RETURN'), 0),
  COALESCE(SUM(jl.debit - jl.credit) FILTER (WHERE a.subtype='cogs'), 0)
FROM journal_lines jl
JOIN journal_entries je ON je.id = jl.je_id
JOIN accounts a ON a.id = jl.account_id
WHERE je.date >= $1 AND je.date < $2 AND je.type IN ('SALES','RETURN')`, from, to).
		Scan(&totals.Revenue, &totals.Returns, &totals.COGS)
	return totals, err
}

// ExpenseRows sums operating-expense postings per account over [from, to),
// excluding cost of goods sold which the P&L reports separately.
func (r *Repository) ExpenseRows(ctx context.Context, from, to time.Time) ([]ExpenseRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT a.code, a.name, COALESCE(SUM(jl.debit - jl.credit), 0)
FROM journal_lines jl
JOIN journal_entries je ON je.id = jl.je_id
JOIN accounts a ON a.id = jl.account_id
WHERE je.date >= $1 AND je.date < $2 AND a.type = 'EXPENSE' AND a.subtype <> 'cogs'
GROUP BY a.code, a.name
ORDER BY a.code`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ExpenseRow
	for rows.Next() {
		var row ExpenseRow
		if err := rows.Scan(&row.Code, &row.Name, &row.Amount); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
