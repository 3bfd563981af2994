package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrSerialization indicates the storage engine aborted the transaction due to
// a concurrent write on the same rows. Callers may retry the whole operation.
var ErrSerialization = errors.New("platform/db: serialization conflict")

// WithTx runs fn inside a RepeatableRead transaction, committing on success
// and rolling back on error. Serialization failures (SQLSTATE 40001) are
// normalised to ErrSerialization so services can retry.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return normalize(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return normalize(fmt.Errorf("platform/db: commit tx: %w", err))
	}

	return nil
}

func normalize(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "40001" {
		return fmt.Errorf("%w: %s", ErrSerialization, pgErr.Message)
	}
	return err
}
