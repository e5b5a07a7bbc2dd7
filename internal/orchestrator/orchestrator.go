package orchestrator

import (
	"context"
	"time"

	"cam_backend/platform/config"
	"cam_backend/platform/logger"
)

// StaleRecoverer is the ledger slice the recovery sweep needs.
type StaleRecoverer interface {
	RecoverStale(ctx context.Context, olderThan time.Duration) (int, error)
}

// Orchestrator runs the tick loop: every tick it computes the current window
// per job type and campaign and enqueues the corresponding run. A window is
// dispatched at most once per process; across processes and restarts the
// ledger deduplicates.
type Orchestrator struct {
	campaigns  CampaignReader
	dispatcher JobDispatcher
	recoverer  StaleRecoverer
	schedules  []Schedule
	log        *logger.Logger

	tickInterval     time.Duration
	executionTimeout time.Duration
	sweepInterval    time.Duration

	dispatched map[string]time.Time
	now        func() time.Time
}

// New creates the orchestrator loop.
func New(cfg config.OrchestratorConfig, campaignReader CampaignReader, dispatcher JobDispatcher, recoverer StaleRecoverer, schedules []Schedule, log *logger.Logger) *Orchestrator {
	if len(schedules) == 0 {
		schedules = DefaultSchedules()
	}
	return &Orchestrator{
		campaigns:        campaignReader,
		dispatcher:       dispatcher,
		recoverer:        recoverer,
		schedules:        schedules,
		log:              log,
		tickInterval:     cfg.GetTickInterval(),
		executionTimeout: cfg.GetExecutionTimeout(),
		sweepInterval:    cfg.GetRecoverySweepInterval(),
		dispatched:       make(map[string]time.Time),
		now:              time.Now,
	}
}

// Run blocks until the context is cancelled.
func (o *Orchestrator) Run(ctx context.Context) {
	interval := o.tickInterval
	if interval <= 0 {
		interval = time.Minute
	}

	go o.recoveryLoop(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	o.log.Info("orchestrator started", "tick_interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			o.log.Info("orchestrator stopped")
			return
		case <-ticker.C:
			o.Tick(ctx)
		}
	}
}

// Tick dispatches every due (campaign, jobType) window exactly once per
// process. Exported for the engine tests and the manual trigger path.
func (o *Orchestrator) Tick(ctx context.Context) {
	active, err := o.campaigns.ListActive(ctx)
	if err != nil {
		o.log.Error("failed to list active campaigns", "error", err)
		return
	}

	now := o.now()
	for _, campaign := range active {
		if !campaign.AcceptsAutomation() {
			continue
		}
		for _, schedule := range o.schedules {
			window := schedule.ScheduledTimeFor(now)
			key := schedule.JobType + ":" + campaign.ID.String()
			if last, ok := o.dispatched[key]; ok && !window.After(last) {
				continue
			}

			err := o.dispatcher.DispatchJobRun(ctx, JobRunPayload{
				JobType:     schedule.JobType,
				CampaignID:  campaign.ID.String(),
				ScheduledAt: window,
			})
			if err != nil {
				// Leave the window undispatched; the next tick retries.
				o.log.Error("failed to dispatch job run", "job_type", schedule.JobType, "campaign_id", campaign.ID, "error", err)
				continue
			}
			o.dispatched[key] = window
		}
	}
}

// recoveryLoop periodically re-opens executions stuck in RUNNING past the
// timeout. The stale ids are marked FAILED; the retry happens under the next
// window's id, never the stale one.
func (o *Orchestrator) recoveryLoop(ctx context.Context) {
	interval := o.sweepInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	timeout := o.executionTimeout
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			recovered, err := o.recoverer.RecoverStale(ctx, timeout)
			if err != nil {
				o.log.Error("stale execution sweep failed", "error", err)
				continue
			}
			if recovered > 0 {
				o.log.Warn("recovered stale executions", "count", recovered)
			}
		}
	}
}
