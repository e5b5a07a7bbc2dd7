package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLedger is an in-process Ledger for tests and local development.
// A single mutex guards the map, so TryBegin keeps the exactly-one-Started
// guarantee for concurrent callers within the process.
type MemoryLedger struct {
	mu         sync.Mutex
	executions map[string]JobExecution
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *MemoryLedger {
	return &MemoryLedger{executions: make(map[string]JobExecution)}
}

func (l *MemoryLedger) TryBegin(_ context.Context, execution JobExecution) (BeginResult, JobExecution, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.executions[execution.ExecutionID]; ok {
		if existing.Status == StatusRunning {
			return AlreadyRunning, existing, nil
		}
		return AlreadyFinished, existing, nil
	}

	execution.Status = StatusRunning
	execution.StartedAt = time.Now().UTC()
	execution.CompletedAt = nil
	l.executions[execution.ExecutionID] = execution
	return Started, execution, nil
}

func (l *MemoryLedger) Complete(_ context.Context, executionID string, processed, errored, deferred int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	execution, ok := l.executions[executionID]
	if !ok || execution.Status != StatusRunning {
		return ErrNotFound
	}
	now := time.Now().UTC()
	execution.Status = StatusCompleted
	execution.CompletedAt = &now
	execution.LeadsProcessed = processed
	execution.LeadsErrored = errored
	execution.LeadsDeferred = deferred
	l.executions[executionID] = execution
	return nil
}

func (l *MemoryLedger) Fail(_ context.Context, executionID string, message string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	execution, ok := l.executions[executionID]
	if !ok || execution.Status != StatusRunning {
		return ErrNotFound
	}
	now := time.Now().UTC()
	execution.Status = StatusFailed
	execution.CompletedAt = &now
	execution.ErrorMessage = message
	l.executions[executionID] = execution
	return nil
}

func (l *MemoryLedger) Get(_ context.Context, executionID string) (JobExecution, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	execution, ok := l.executions[executionID]
	if !ok {
		return JobExecution{}, ErrNotFound
	}
	return execution, nil
}

func (l *MemoryLedger) Recent(_ context.Context, campaignID uuid.UUID, limit int) ([]JobExecution, error) {
	if limit < 1 {
		limit = 20
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var results []JobExecution
	for _, execution := range l.executions {
		if execution.CampaignID == campaignID {
			results = append(results, execution)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].ScheduledAt.After(results[j].ScheduledAt)
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (l *MemoryLedger) LastByJobType(_ context.Context, campaignID uuid.UUID) (map[string]JobExecution, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := make(map[string]JobExecution)
	for _, execution := range l.executions {
		if execution.CampaignID != campaignID {
			continue
		}
		last, ok := result[execution.JobType]
		if !ok || execution.ScheduledAt.After(last.ScheduledAt) {
			result[execution.JobType] = execution
		}
	}
	return result, nil
}

func (l *MemoryLedger) RecoverStale(_ context.Context, olderThan time.Duration) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().UTC().Add(-olderThan)
	recovered := 0
	for id, execution := range l.executions {
		if execution.Status != StatusRunning || !execution.StartedAt.Before(cutoff) {
			continue
		}
		now := time.Now().UTC()
		execution.Status = StatusFailed
		execution.CompletedAt = &now
		execution.ErrorMessage = "recovered: execution exceeded timeout"
		l.executions[id] = execution
		recovered++
	}
	return recovered, nil
}

var _ Ledger = (*MemoryLedger)(nil)
