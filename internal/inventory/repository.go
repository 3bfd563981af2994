package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-dms/meridian/internal/shared"
)

// TxRepository exposes the transactional operations the valuation engine
// performs per movement.
type TxRepository interface {
	GetValuationForUpdate(ctx context.Context, productID int64) (Valuation, error)
	UpsertValuation(ctx context.Context, v Valuation) error
	InsertTransaction(ctx context.Context, tx Transaction) (Transaction, error)
	UpdateProductStock(ctx context.Context, productID int64, qty float64) error
}

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes the callback inside a repeatable-read transaction.
// Serialization aborts surface as shared.ErrConflict.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &txRepo{tx: tx}); err != nil {
		return conflictErr(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return conflictErr(err)
	}
	return nil
}

func conflictErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01") {
		return fmt.Errorf("%w: %s", shared.ErrConflict, pgErr.Message)
	}
	return err
}

// GetValuation reads the current valuation row.
func (r *Repository) GetValuation(ctx context.Context, productID int64) (Valuation, error) {
	var v Valuation
	err := r.pool.QueryRow(ctx, `SELECT product_id, qty, avg_cost, total_value, updated_at FROM inventory_valuations WHERE product_id=$1`, productID).
		Scan(&v.ProductID, &v.Qty, &v.AvgCost, &v.TotalValue, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Valuation{}, ErrValuationNotFound
	}
	return v, err
}

// TotalValue sums the valuation across all products.
func (r *Repository) TotalValue(ctx context.Context) (float64, error) {
	var total float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(total_value),0) FROM inventory_valuations`).Scan(&total)
	return total, err
}

const txColumns = `id, product_id, tx_type, qty_in, qty_out, unit_cost, balance_after, source_type, source_id, source_number, reason, actor_id, created_at`

// ListTransactions returns the movement log for a product, oldest first.
func (r *Repository) ListTransactions(ctx context.Context, productID int64, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT `+txColumns+` FROM inventory_transactions WHERE product_id=$1 ORDER BY id ASC LIMIT $2`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// AllTransactions returns a product's complete movement log, oldest first.
func (r *Repository) AllTransactions(ctx context.Context, productID int64) ([]Transaction, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+txColumns+` FROM inventory_transactions WHERE product_id=$1 ORDER BY id ASC`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ProductIDs lists products with a valuation row, for the rebuild job.
func (r *Repository) ProductIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT product_id FROM inventory_valuations ORDER BY product_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.ProductID, &t.Type, &t.QtyIn, &t.QtyOut, &t.UnitCost, &t.BalanceAfter,
		&t.SourceType, &t.SourceID, &t.SourceNumber, &t.Reason, &t.ActorID, &t.CreatedAt)
	return t, err
}

type txRepo struct {
	tx pgx.Tx
}

func (r *txRepo) GetValuationForUpdate(ctx context.Context, productID int64) (Valuation, error) {
	var v Valuation
	err := r.tx.QueryRow(ctx, `SELECT product_id, qty, avg_cost, total_value, updated_at FROM inventory_valuations WHERE product_id=$1 FOR UPDATE`, productID).
		Scan(&v.ProductID, &v.Qty, &v.AvgCost, &v.TotalValue, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Valuation{ProductID: productID}, ErrValuationNotFound
	}
	return v, err
}

func (r *txRepo) UpsertValuation(ctx context.Context, v Valuation) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO inventory_valuations (product_id, qty, avg_cost, total_value, updated_at)
VALUES ($1,$2,$3,$4,NOW())
ON CONFLICT (product_id) DO UPDATE SET qty=EXCLUDED.qty, avg_cost=EXCLUDED.avg_cost, total_value=EXCLUDED.total_value, updated_at=NOW()`,
		v.ProductID, toNumeric(v.Qty), toNumeric4(v.AvgCost), toNumeric(v.TotalValue))
	return err
}

func (r *txRepo) InsertTransaction(ctx context.Context, t Transaction) (Transaction, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO inventory_transactions (product_id, tx_type, qty_in, qty_out, unit_cost, balance_after, source_type, source_id, source_number, reason, actor_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING id, created_at`,
		t.ProductID, t.Type, toNumeric(t.QtyIn), toNumeric(t.QtyOut), toNumeric4(t.UnitCost), toNumeric(t.BalanceAfter),
		t.SourceType, t.SourceID, t.SourceNumber, t.Reason, nullInt(t.ActorID)).Scan(&t.ID, &t.CreatedAt)
	return t, err
}

func (r *txRepo) UpdateProductStock(ctx context.Context, productID int64, qty float64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE products SET current_stock=$2, updated_at=NOW() WHERE id=$1`, productID, toNumeric(qty))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func nullInt(val int64) any {
	if val == 0 {
		return nil
	}
	return val
}

func toNumeric(v float64) any {
	return fmt.Sprintf("%.2f", v)
}

// toNumeric4 keeps four decimals for unit costs so blended averages round less.
func toNumeric4(v float64) any {
	return fmt.Sprintf("%.4f", v)
}
