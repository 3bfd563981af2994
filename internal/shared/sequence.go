package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SequenceStore hands out gapless-enough, collision-free document numbers.
// Counters are keyed by (kind, period) and advanced with a single atomic
// upsert, never by counting existing documents.
type SequenceStore struct {
	pool *pgxpool.Pool
}

// NewSequenceStore constructs the store.
func NewSequenceStore(pool *pgxpool.Pool) *SequenceStore {
	return &SequenceStore{pool: pool}
}

const nextSequenceSQL = `INSERT INTO sequences (kind, period, value) VALUES ($1, $2, 1)
ON CONFLICT (kind, period) DO UPDATE SET value = sequences.value + 1
RETURNING value`

// Next advances the counter for (kind, period) and returns the new value.
func (s *SequenceStore) Next(ctx context.Context, kind, period string) (int64, error) {
	if s == nil {
		return 0, errors.New("sequence store not initialised")
	}
	var value int64
	if err := s.pool.QueryRow(ctx, nextSequenceSQL, kind, period).Scan(&value); err != nil {
		return 0, fmt.Errorf("sequence %s/%s: %w", kind, period, err)
	}
	return value, nil
}

// NextNumber formats the advanced counter as <KIND>-<PERIOD>-<00001>.
func (s *SequenceStore) NextNumber(ctx context.Context, kind string, at time.Time) (string, error) {
	period := Period(at)
	value, err := s.Next(ctx, kind, period)
	if err != nil {
		return "", err
	}
	return FormatNumber(kind, period, value), nil
}

// Period renders the calendar-month scope used for numbering.
func Period(at time.Time) string {
	return at.Format("200601")
}

// FormatNumber renders a human-readable document number.
func FormatNumber(kind, period string, value int64) string {
	return fmt.Sprintf("%s-%s-%05d", kind, period, value)
}
