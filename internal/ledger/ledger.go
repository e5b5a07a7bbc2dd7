// Package ledger provides the execution ledger: one row per
// (job type, campaign scope, scheduled time) with a uniqueness constraint.
// The ledger is the idempotency gate for every orchestrated job run.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Execution statuses.
const (
	StatusRunning   = "RUNNING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
	// StatusSkippedDuplicate is never persisted; it is the reported outcome
	// of an attempt that observed an existing row for its execution id.
	StatusSkippedDuplicate = "SKIPPED_DUPLICATE"
)

// BeginResult is the outcome of TryBegin.
type BeginResult int

const (
	// Started means this caller owns the execution and must run the job body.
	Started BeginResult = iota
	// AlreadyRunning means another caller owns a live execution for this id.
	AlreadyRunning
	// AlreadyFinished means the execution already completed or failed.
	// The job body must not be re-run; a failed execution retries under a
	// fresh id derived from the next scheduled time, never the stale one.
	AlreadyFinished
)

// JobExecution is one ledger row.
type JobExecution struct {
	ExecutionID    string     `json:"executionId"`
	JobType        string     `json:"jobType"`
	CampaignID     uuid.UUID  `json:"campaignId"`
	ScheduledAt    time.Time  `json:"scheduledAt"`
	Status         string     `json:"status"`
	StartedAt      time.Time  `json:"startedAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	LeadsProcessed int        `json:"leadsProcessed"`
	LeadsErrored   int        `json:"leadsErrored"`
	// LeadsDeferred counts records the run held back without a state
	// change, cap vetoes and review holds included.
	LeadsDeferred int    `json:"leadsDeferred"`
	ErrorMessage  string `json:"errorMessage,omitempty"`
}

// ExecutionID derives the deterministic idempotency key for one scheduled run.
func ExecutionID(jobType string, campaignID uuid.UUID, scheduledAt time.Time) string {
	return fmt.Sprintf("%s:%s:%s", jobType, campaignID, scheduledAt.UTC().Format(time.RFC3339))
}

// Ledger records execution attempts. TryBegin must be atomic with respect to
// the execution id uniqueness constraint: of concurrent callers with the same
// id exactly one observes Started.
type Ledger interface {
	TryBegin(ctx context.Context, execution JobExecution) (BeginResult, JobExecution, error)
	Complete(ctx context.Context, executionID string, processed, errored, deferred int) error
	Fail(ctx context.Context, executionID string, message string) error
	Get(ctx context.Context, executionID string) (JobExecution, error)
	// Recent returns the newest executions for a campaign, newest first.
	Recent(ctx context.Context, campaignID uuid.UUID, limit int) ([]JobExecution, error)
	// LastByJobType returns the most recent execution per job type for a
	// campaign, for the dashboard's last/next run display.
	LastByJobType(ctx context.Context, campaignID uuid.UUID) (map[string]JobExecution, error)
	// RecoverStale marks RUNNING rows older than the timeout as FAILED and
	// returns how many were recovered. The stale id is never re-run; the
	// retry happens under the next scheduled-time-derived id.
	RecoverStale(ctx context.Context, olderThan time.Duration) (int, error)
}
