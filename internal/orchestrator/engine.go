package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cam_backend/internal/campaigns"
	camevents "cam_backend/internal/events"
	"cam_backend/internal/leads/domain"
	"cam_backend/internal/leads/repository"
	"cam_backend/internal/ledger"
	"cam_backend/internal/pipeline"
	"cam_backend/platform/apperr"
	"cam_backend/platform/events"
	"cam_backend/platform/logger"
)

// Reported outcomes beyond the persisted ledger statuses.
const (
	// StatusSkippedInactive reports a run refused because the campaign is
	// paused or killed. No ledger row is written.
	StatusSkippedInactive = "SKIPPED_INACTIVE"
)

// CampaignReader is the slice of the campaign repository the engine needs.
type CampaignReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (campaigns.Campaign, error)
	ListActive(ctx context.Context) ([]campaigns.Campaign, error)
}

// RunReport summarizes one job run attempt. Deferred is the subset of
// Processed that was held back without a state change and retries next
// cycle, cap vetoes included.
type RunReport struct {
	ExecutionID string `json:"executionId"`
	JobType     string `json:"jobType"`
	Status      string `json:"status"`
	Processed   int    `json:"processed"`
	Errored     int    `json:"errored"`
	Deferred    int    `json:"deferred"`
}

// Engine executes one job run end to end: ledger gate, batch fetch, stage
// processor, finalization. A processor crash is contained to its own run.
type Engine struct {
	ledger     ledger.Ledger
	leads      repository.Store
	campaigns  CampaignReader
	processors map[string]pipeline.Processor
	bus        events.Bus
	log        *logger.Logger

	maxLeadsPerRun int
}

// NewEngine wires the run engine. processors is keyed by job type.
func NewEngine(ldg ledger.Ledger, leads repository.Store, campaignReader CampaignReader, processors map[string]pipeline.Processor, bus events.Bus, log *logger.Logger, maxLeadsPerRun int) *Engine {
	if maxLeadsPerRun < 1 {
		maxLeadsPerRun = 200
	}
	return &Engine{
		ledger:         ldg,
		leads:          leads,
		campaigns:      campaignReader,
		processors:     processors,
		bus:            bus,
		log:            log,
		maxLeadsPerRun: maxLeadsPerRun,
	}
}

// RunJob executes one (jobType, campaign, scheduledAt) attempt. The ledger
// absorbs duplicate attempts; only the holder of a Started row runs the
// processor body.
func (e *Engine) RunJob(ctx context.Context, jobType string, campaignID uuid.UUID, scheduledAt time.Time) (RunReport, error) {
	processor, ok := e.processors[jobType]
	if !ok {
		return RunReport{}, apperr.Validation("unknown job type: " + jobType)
	}

	campaign, err := e.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return RunReport{}, err
	}
	executionID := ledger.ExecutionID(jobType, campaignID, scheduledAt)
	report := RunReport{ExecutionID: executionID, JobType: jobType}

	if !campaign.AcceptsAutomation() {
		report.Status = StatusSkippedInactive
		return report, nil
	}

	begin, existing, err := e.ledger.TryBegin(ctx, ledger.JobExecution{
		ExecutionID: executionID,
		JobType:     jobType,
		CampaignID:  campaignID,
		ScheduledAt: scheduledAt.UTC(),
	})
	if err != nil {
		return RunReport{}, err
	}
	if begin != ledger.Started {
		// The second attempt observes the first attempt's row and takes no
		// side effects beyond this log line.
		e.log.JobExecution(jobType, executionID, ledger.StatusSkippedDuplicate, existing.LeadsProcessed, existing.LeadsErrored, existing.LeadsDeferred, 0)
		report.Status = ledger.StatusSkippedDuplicate
		report.Processed = existing.LeadsProcessed
		report.Errored = existing.LeadsErrored
		report.Deferred = existing.LeadsDeferred
		return report, nil
	}

	started := time.Now()
	result, runErr := e.runProcessor(ctx, processor, campaign)
	took := time.Since(started)

	if runErr != nil {
		if failErr := e.ledger.Fail(ctx, executionID, runErr.Error()); failErr != nil {
			e.log.Error("failed to finalize crashed execution", "execution_id", executionID, "error", failErr)
		}
		e.log.JobExecution(jobType, executionID, ledger.StatusFailed, 0, 0, 0, took)
		report.Status = ledger.StatusFailed
		e.publishCompleted(ctx, report, campaignID)
		return report, runErr
	}

	processed := result.Processed()
	errored := len(result.Errors)
	if err := e.ledger.Complete(ctx, executionID, processed, errored, result.Deferred); err != nil {
		return RunReport{}, err
	}

	for _, recordErr := range result.Errors {
		e.log.Warn("record failed during job run", "execution_id", executionID, "lead_id", recordErr.LeadID, "reason", recordErr.Reason)
	}
	e.log.JobExecution(jobType, executionID, ledger.StatusCompleted, processed, errored, result.Deferred, took)

	report.Status = ledger.StatusCompleted
	report.Processed = processed
	report.Errored = errored
	report.Deferred = result.Deferred
	e.publishCompleted(ctx, report, campaignID)
	return report, nil
}

// runProcessor invokes the stage with panic containment. A crashing
// processor fails its own execution and nothing else.
func (e *Engine) runProcessor(ctx context.Context, processor pipeline.Processor, campaign campaigns.Campaign) (result pipeline.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processor panic: %v", r)
		}
	}()

	batch, err := e.buildBatch(ctx, processor, campaign)
	if err != nil {
		return pipeline.Result{}, err
	}
	return processor.Process(ctx, batch, campaign), nil
}

// buildBatch queries the processor's input statuses up to the run bound.
func (e *Engine) buildBatch(ctx context.Context, processor pipeline.Processor, campaign campaigns.Campaign) ([]domain.Lead, error) {
	statuses := processor.BatchStatuses()
	if len(statuses) == 0 {
		return nil, nil
	}

	var batch []domain.Lead
	remaining := e.maxLeadsPerRun
	for _, status := range statuses {
		if remaining <= 0 {
			break
		}
		leads, err := e.leads.QueryByStatus(ctx, campaign.ID, status, remaining)
		if err != nil {
			return nil, err
		}
		batch = append(batch, leads...)
		remaining -= len(leads)
	}
	return batch, nil
}

func (e *Engine) publishCompleted(ctx context.Context, report RunReport, campaignID uuid.UUID) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(ctx, camevents.JobCompleted{
		BaseEvent:   events.NewBaseEvent(),
		ExecutionID: report.ExecutionID,
		JobType:     report.JobType,
		CampaignID:  campaignID,
		Status:      report.Status,
		Processed:   report.Processed,
		Errored:     report.Errored,
		Deferred:    report.Deferred,
	})
}
