package ar

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-dms/meridian/internal/shared"
)

// Repository reads customer records.
type Repository interface {
	GetCustomer(ctx context.Context, id int64) (Customer, error)
	SumBalances(ctx context.Context) (float64, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	var c Customer
	err := r.db.QueryRow(ctx, `SELECT id, code, name, balance, created_at, updated_at FROM customers WHERE id=$1`, id).
		Scan(&c.ID, &c.Code, &c.Name, &c.Balance, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, shared.ErrNotFound
	}
	return c, err
}

// SumBalances totals cached customer balances; the balance sheet substitutes
// this for the receivable control account.
func (r *repository) SumBalances(ctx context.Context) (float64, error) {
	var total float64
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(balance),0) FROM customers`).Scan(&total)
	return total, err
}
