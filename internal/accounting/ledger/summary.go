package ledger

import (
	"context"
	"time"
)

// RefreshDailySummary recomputes the (account, day) summary from the day's
// cash book rows. Opening is the prior day's closing, zero when no prior day
// exists. The upsert is a full recompute, so re-running for the same day is
// idempotent.
func RefreshDailySummary(ctx context.Context, tx Tx, accountID int64, day time.Time) error {
	day = Day(day)

	opening, err := tx.PriorDayClosing(ctx, accountID, day)
	if err != nil {
		return err
	}
	in, out, count, err := tx.CashBookDayTotals(ctx, accountID, day)
	if err != nil {
		return err
	}

	return tx.UpsertDailySummary(ctx, DailySummary{
		AccountID: accountID,
		Day:       day,
		Opening:   opening,
		TotalIn:   in,
		TotalOut:  out,
		Closing:   opening + in - out,
		TxCount:   count,
	})
}
