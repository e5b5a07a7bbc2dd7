package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"cam_backend/internal/leads/domain"
	"cam_backend/internal/leads/repository"
	"cam_backend/internal/ledger"
	"cam_backend/internal/review"
)

// DashboardView is the read-only per-campaign operations summary. Building
// it never mutates state.
type DashboardView struct {
	CampaignID       uuid.UUID                      `json:"campaignId"`
	StatusCounts     map[domain.Status]int          `json:"statusCounts"`
	LastRuns         map[string]ledger.JobExecution `json:"lastRuns"`
	NextRuns         map[string]time.Time           `json:"nextRuns"`
	RecentExecutions []ledger.JobExecution          `json:"recentExecutions"`
	PendingReviews   int                            `json:"pendingReviews"`
	// DeferredLastRun is each job type's deferred count from its most
	// recent execution, drawn from the ledger so it spans processes.
	DeferredLastRun map[string]int `json:"deferredLastRun"`
	// CapVetoes counts safety-cap denials per channel observed by this
	// process since it started.
	CapVetoes      map[string]int  `json:"capVetoes"`
	RecentActivity []ActivityEntry `json:"recentActivity"`
}

// Dashboard aggregates the view from the lead store, the ledger, the review
// task store, and the event-fed activity log.
type Dashboard struct {
	leads     repository.StatusAggregator
	ledger    ledger.Ledger
	reviews   review.TaskStore
	activity  *ActivityLog
	schedules []Schedule
	now       func() time.Time
}

// NewDashboard creates the dashboard aggregator. activity may be nil.
func NewDashboard(leads repository.StatusAggregator, ldg ledger.Ledger, reviews review.TaskStore, activity *ActivityLog, schedules []Schedule) *Dashboard {
	if len(schedules) == 0 {
		schedules = DefaultSchedules()
	}
	return &Dashboard{
		leads:     leads,
		ledger:    ldg,
		reviews:   reviews,
		activity:  activity,
		schedules: schedules,
		now:       time.Now,
	}
}

// View builds the summary for one campaign.
func (d *Dashboard) View(ctx context.Context, campaignID uuid.UUID) (DashboardView, error) {
	counts, err := d.leads.CountByStatus(ctx, campaignID)
	if err != nil {
		return DashboardView{}, err
	}

	lastRuns, err := d.ledger.LastByJobType(ctx, campaignID)
	if err != nil {
		return DashboardView{}, err
	}

	recent, err := d.ledger.Recent(ctx, campaignID, 20)
	if err != nil {
		return DashboardView{}, err
	}

	pending, err := d.reviews.ListPending(ctx, &campaignID, 500)
	if err != nil {
		return DashboardView{}, err
	}

	now := d.now()
	nextRuns := make(map[string]time.Time, len(d.schedules))
	for _, schedule := range d.schedules {
		nextRuns[schedule.JobType] = schedule.NextRunAfter(now)
	}

	deferred := make(map[string]int, len(lastRuns))
	for jobType, execution := range lastRuns {
		deferred[jobType] = execution.LeadsDeferred
	}

	capVetoes := map[string]int{}
	var feed []ActivityEntry
	if d.activity != nil {
		capVetoes = d.activity.CapVetoes(campaignID)
		feed = d.activity.Recent(campaignID)
	}

	return DashboardView{
		CampaignID:       campaignID,
		StatusCounts:     counts,
		LastRuns:         lastRuns,
		NextRuns:         nextRuns,
		RecentExecutions: recent,
		PendingReviews:   len(pending),
		DeferredLastRun:  deferred,
		CapVetoes:        capVetoes,
		RecentActivity:   feed,
	}, nil
}
