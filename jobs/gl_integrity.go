package jobs

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/meridian-dms/meridian/internal/jobs"
)

// balanceTolerance matches the posting tolerance for rounding drift.
const balanceTolerance = 0.01

// IntegrityReport summarises what the ledger check found.
type IntegrityReport struct {
	UnbalancedEntries []int64
	DriftedAccounts   []int64
	BrokenSummaries   int64
}

// Clean reports whether no violation was found.
func (r IntegrityReport) Clean() bool {
	return len(r.UnbalancedEntries) == 0 && len(r.DriftedAccounts) == 0 && r.BrokenSummaries == 0
}

// GLIntegrityJob verifies the double-entry invariants that posting is meant
// to preserve: every journal entry balances, each account's cached balance
// equals its last ledger running balance, and each daily cash summary closes
// at opening + in - out.
type GLIntegrityJob struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
	Meter  *jobmetrics.Metrics
}

// NewGLIntegrityJob initialises the integrity check handler.
func NewGLIntegrityJob(pool *pgxpool.Pool, logger *slog.Logger, meter *jobmetrics.Metrics) *GLIntegrityJob {
	return &GLIntegrityJob{Pool: pool, Logger: logger, Meter: meter}
}

// Handle executes the integrity check as an Asynq task.
func (j *GLIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("gl integrity: handler not configured")
	}
	tracker := j.Meter.Track("gl_integrity")
	report, err := j.Run(ctx)
	if err != nil {
		return tracker.End(err)
	}
	if !report.Clean() {
		j.Logger.Warn("ledger integrity violations",
			slog.Int("unbalanced_entries", len(report.UnbalancedEntries)),
			slog.Int("drifted_accounts", len(report.DriftedAccounts)),
			slog.Int64("broken_summaries", report.BrokenSummaries))
	} else {
		j.Logger.Info("ledger integrity clean", slog.String("job", "gl_integrity"))
	}
	return tracker.End(nil)
}

// Run performs the three checks and returns the findings.
func (j *GLIntegrityJob) Run(ctx context.Context) (IntegrityReport, error) {
	var report IntegrityReport

	rows, err := j.Pool.Query(ctx, `
SELECT je.id
FROM journal_entries je
JOIN journal_lines jl ON jl.je_id = je.id
GROUP BY je.id
HAVING ABS(SUM(jl.debit) - SUM(jl.credit)) > $1`, balanceTolerance)
	if err != nil {
		return report, err
	}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return report, err
		}
		report.UnbalancedEntries = append(report.UnbalancedEntries, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return report, err
	}

	rows, err = j.Pool.Query(ctx, `
SELECT a.id, a.balance, COALESCE(le.running_balance, 0)
FROM accounts a
LEFT JOIN LATERAL (
    SELECT running_balance FROM ledger_entries
    WHERE account_id = a.id ORDER BY id DESC LIMIT 1
) le ON TRUE
WHERE le.running_balance IS NOT NULL`)
	if err != nil {
		return report, err
	}
	for rows.Next() {
		var id int64
		var cached, replayed float64
		if err := rows.Scan(&id, &cached, &replayed); err != nil {
			rows.Close()
			return report, err
		}
		if math.Abs(cached-replayed) > balanceTolerance {
			report.DriftedAccounts = append(report.DriftedAccounts, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return report, err
	}

	err = j.Pool.QueryRow(ctx, `
SELECT COUNT(*) FROM daily_cash_summaries
WHERE ABS(closing - (opening + total_in - total_out)) > $1`, balanceTolerance).Scan(&report.BrokenSummaries)
	if err != nil {
		return report, err
	}

	return report, nil
}
