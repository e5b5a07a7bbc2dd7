package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no ledger row exists for an execution id.
var ErrNotFound = errors.New("job execution not found")

// PostgresLedger enforces idempotency through the unique index on
// execution_id; the atomic insert-or-detect is a single statement, so it
// stays correct across process restarts and multiple orchestrator instances.
type PostgresLedger struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres-backed ledger.
func NewPostgres(pool *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{pool: pool}
}

const executionColumns = `execution_id, job_type, campaign_id, scheduled_at,
	status, started_at, completed_at, leads_processed, leads_errored,
	leads_deferred, error_message`

// TryBegin inserts the RUNNING row, or observes the existing one. The
// ON CONFLICT DO NOTHING plus the follow-up read makes concurrent callers
// race safely: exactly one gets Started.
func (l *PostgresLedger) TryBegin(ctx context.Context, execution JobExecution) (BeginResult, JobExecution, error) {
	row := l.pool.QueryRow(ctx,
		`INSERT INTO cam_job_executions
			(execution_id, job_type, campaign_id, scheduled_at, status, started_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 ON CONFLICT (execution_id) DO NOTHING
		 RETURNING `+executionColumns,
		execution.ExecutionID, execution.JobType, execution.CampaignID,
		execution.ScheduledAt, StatusRunning)

	inserted, err := scanExecution(row)
	if err == nil {
		return Started, inserted, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return AlreadyFinished, JobExecution{}, err
	}

	existing, err := l.Get(ctx, execution.ExecutionID)
	if err != nil {
		return AlreadyFinished, JobExecution{}, err
	}
	if existing.Status == StatusRunning {
		return AlreadyRunning, existing, nil
	}
	return AlreadyFinished, existing, nil
}

// Complete finalizes an execution with aggregate counts.
func (l *PostgresLedger) Complete(ctx context.Context, executionID string, processed, errored, deferred int) error {
	tag, err := l.pool.Exec(ctx,
		`UPDATE cam_job_executions
		 SET status = $2, completed_at = now(),
		     leads_processed = $3, leads_errored = $4, leads_deferred = $5
		 WHERE execution_id = $1 AND status = $6`,
		executionID, StatusCompleted, processed, errored, deferred, StatusRunning)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Fail finalizes an execution with an error message.
func (l *PostgresLedger) Fail(ctx context.Context, executionID string, message string) error {
	tag, err := l.pool.Exec(ctx,
		`UPDATE cam_job_executions
		 SET status = $2, completed_at = now(), error_message = $3
		 WHERE execution_id = $1 AND status = $4`,
		executionID, StatusFailed, message, StatusRunning)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Get fetches one ledger row.
func (l *PostgresLedger) Get(ctx context.Context, executionID string) (JobExecution, error) {
	row := l.pool.QueryRow(ctx,
		`SELECT `+executionColumns+` FROM cam_job_executions WHERE execution_id = $1`,
		executionID)
	execution, err := scanExecution(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return JobExecution{}, ErrNotFound
	}
	return execution, err
}

// Recent returns the newest executions for a campaign.
func (l *PostgresLedger) Recent(ctx context.Context, campaignID uuid.UUID, limit int) ([]JobExecution, error) {
	if limit < 1 {
		limit = 20
	}
	rows, err := l.pool.Query(ctx,
		`SELECT `+executionColumns+`
		 FROM cam_job_executions
		 WHERE campaign_id = $1
		 ORDER BY scheduled_at DESC
		 LIMIT $2`,
		campaignID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectExecutions(rows)
}

// LastByJobType returns the most recent execution per job type.
func (l *PostgresLedger) LastByJobType(ctx context.Context, campaignID uuid.UUID) (map[string]JobExecution, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT DISTINCT ON (job_type) `+executionColumns+`
		 FROM cam_job_executions
		 WHERE campaign_id = $1
		 ORDER BY job_type, scheduled_at DESC`,
		campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	executions, err := collectExecutions(rows)
	if err != nil {
		return nil, err
	}

	result := make(map[string]JobExecution, len(executions))
	for _, execution := range executions {
		result[execution.JobType] = execution
	}
	return result, nil
}

// RecoverStale marks RUNNING rows older than the timeout as FAILED.
func (l *PostgresLedger) RecoverStale(ctx context.Context, olderThan time.Duration) (int, error) {
	tag, err := l.pool.Exec(ctx,
		`UPDATE cam_job_executions
		 SET status = $1, completed_at = now(),
		     error_message = 'recovered: execution exceeded timeout'
		 WHERE status = $2 AND started_at < now() - $3::interval`,
		StatusFailed, StatusRunning, olderThan.String())
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExecution(row rowScanner) (JobExecution, error) {
	var (
		execution JobExecution
		message   *string
	)
	err := row.Scan(&execution.ExecutionID, &execution.JobType,
		&execution.CampaignID, &execution.ScheduledAt, &execution.Status,
		&execution.StartedAt, &execution.CompletedAt,
		&execution.LeadsProcessed, &execution.LeadsErrored,
		&execution.LeadsDeferred, &message)
	if err != nil {
		return JobExecution{}, err
	}
	if message != nil {
		execution.ErrorMessage = *message
	}
	return execution, nil
}

func collectExecutions(rows pgx.Rows) ([]JobExecution, error) {
	var results []JobExecution
	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, execution)
	}
	return results, rows.Err()
}

// Compile-time check that PostgresLedger implements Ledger.
var _ Ledger = (*PostgresLedger)(nil)
