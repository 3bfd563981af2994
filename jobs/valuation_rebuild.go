package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/meridian-dms/meridian/internal/inventory"
	jobmetrics "github.com/meridian-dms/meridian/internal/jobs"
)

// ValuationRebuildJob replays every product's movement log and rewrites
// valuation rows that drifted from the replayed figures.
type ValuationRebuildJob struct {
	Rebuilder *inventory.Rebuilder
	Logger    *slog.Logger
	Meter     *jobmetrics.Metrics
}

// NewValuationRebuildJob initialises the rebuild handler.
func NewValuationRebuildJob(rebuilder *inventory.Rebuilder, logger *slog.Logger, meter *jobmetrics.Metrics) *ValuationRebuildJob {
	return &ValuationRebuildJob{Rebuilder: rebuilder, Logger: logger, Meter: meter}
}

// Handle executes the rebuild as an Asynq task.
func (j *ValuationRebuildJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Rebuilder == nil {
		return errors.New("valuation rebuild: handler not configured")
	}
	tracker := j.Meter.Track("valuation_rebuild")
	results, err := j.Rebuilder.RebuildAll(ctx)
	if err != nil {
		return tracker.End(err)
	}
	drifted := 0
	for _, r := range results {
		if r.Drifted {
			drifted++
			j.Logger.Warn("valuation drift corrected",
				slog.Int64("product_id", r.ProductID),
				slog.Float64("qty", r.Qty),
				slog.Float64("avg_cost", r.AvgCost))
		}
	}
	j.Logger.Info("valuation rebuild completed",
		slog.Int("products", len(results)),
		slog.Int("drifted", drifted))
	return tracker.End(nil)
}
