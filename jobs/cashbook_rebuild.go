package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/meridian-dms/meridian/internal/accounting/ledger"
	jobmetrics "github.com/meridian-dms/meridian/internal/jobs"
)

// CashBookRebuildJob recomputes the daily cash summary chain for every
// cash/bank account, oldest day first so each day's opening picks up the
// freshly rewritten prior closing.
type CashBookRebuildJob struct {
	Ledger *ledger.Repository
	Logger *slog.Logger
	Meter  *jobmetrics.Metrics
}

// NewCashBookRebuildJob initialises the rebuild handler.
func NewCashBookRebuildJob(repo *ledger.Repository, logger *slog.Logger, meter *jobmetrics.Metrics) *CashBookRebuildJob {
	return &CashBookRebuildJob{Ledger: repo, Logger: logger, Meter: meter}
}

// Handle executes the rebuild as an Asynq task.
func (j *CashBookRebuildJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Ledger == nil {
		return errors.New("cash book rebuild: handler not configured")
	}
	tracker := j.Meter.Track("cashbook_rebuild")
	return tracker.End(j.Run(ctx))
}

// Run walks every cash account's active days and refreshes each summary.
func (j *CashBookRebuildJob) Run(ctx context.Context) error {
	accountIDs, err := j.Ledger.CashAccountIDs(ctx)
	if err != nil {
		return err
	}
	rebuilt := 0
	for _, accountID := range accountIDs {
		days, err := j.Ledger.CashBookDays(ctx, accountID)
		if err != nil {
			return err
		}
		if len(days) == 0 {
			continue
		}
		err = j.Ledger.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
			for _, day := range days {
				if err := ledger.RefreshDailySummary(ctx, tx, accountID, day); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		rebuilt += len(days)
	}
	j.Logger.Info("cash book rebuild completed",
		slog.Int("accounts", len(accountIDs)),
		slog.Int("days", rebuilt))
	return nil
}
