package ap

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-dms/meridian/internal/shared"
)

// Repository reads vendor records.
type Repository interface {
	GetVendor(ctx context.Context, id int64) (Vendor, error)
	SumBalances(ctx context.Context) (float64, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) GetVendor(ctx context.Context, id int64) (Vendor, error) {
	var v Vendor
	err := r.db.QueryRow(ctx, `SELECT id, code, name, balance, created_at, updated_at FROM vendors WHERE id=$1`, id).
		Scan(&v.ID, &v.Code, &v.Name, &v.Balance, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Vendor{}, shared.ErrNotFound
	}
	return v, err
}

// SumBalances totals cached vendor balances for the balance sheet's payable
// substitution.
func (r *repository) SumBalances(ctx context.Context) (float64, error) {
	var total float64
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(balance),0) FROM vendors`).Scan(&total)
	return total, err
}
