package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrity verifies journal balance and ledger/account drift.
	TaskLedgerIntegrity = "ledger:integrity"
	// TaskValuationRebuild replays the movement log into fresh valuations.
	TaskValuationRebuild = "inventory:rebuild"
	// TaskCashBookRebuild recomputes the daily cash summary chain.
	TaskCashBookRebuild = "cashbook:rebuild"
)

// ScheduledPayload carries scheduling metadata shared by the periodic jobs.
type ScheduledPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewLedgerIntegrityTask constructs the integrity check task.
func NewLedgerIntegrityTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ScheduledPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, body, asynq.Queue(QueueDefault)), nil
}

// NewValuationRebuildTask constructs the valuation rebuild task.
func NewValuationRebuildTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ScheduledPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskValuationRebuild, body, asynq.Queue(QueueDefault)), nil
}

// NewCashBookRebuildTask constructs the cash book rebuild task.
func NewCashBookRebuildTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ScheduledPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCashBookRebuild, body, asynq.Queue(QueueDefault)), nil
}
