package orchestrator

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cam_backend/platform/httpkit"
)

// JobRunner executes one job run synchronously. Satisfied by *Engine.
type JobRunner interface {
	RunJob(ctx context.Context, jobType string, campaignID uuid.UUID, scheduledAt time.Time) (RunReport, error)
}

// Handler exposes manual job triggers and the per-campaign dashboard.
type Handler struct {
	runner    JobRunner
	dashboard *Dashboard
	schedules []Schedule

	now func() time.Time
}

// NewHandler creates the operations handler.
func NewHandler(runner JobRunner, dashboard *Dashboard, schedules []Schedule) *Handler {
	if len(schedules) == 0 {
		schedules = DefaultSchedules()
	}
	return &Handler{
		runner:    runner,
		dashboard: dashboard,
		schedules: schedules,
		now:       time.Now,
	}
}

// TriggerJob runs one job for a campaign in the current schedule window.
// Triggering a window the orchestrator already ran reports SKIPPED_DUPLICATE
// with a 200; the ledger is the authority either way.
// POST /api/v1/jobs/:jobType/trigger?campaignId=...
func (h *Handler) TriggerJob(c *gin.Context) {
	jobType := c.Param("jobType")
	schedule, ok := h.scheduleFor(jobType)
	if !ok {
		httpkit.Error(c, http.StatusBadRequest, "unknown job type: "+jobType, nil)
		return
	}

	campaignID, err := uuid.Parse(c.Query("campaignId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "campaignId query parameter is required", nil)
		return
	}

	report, err := h.runner.RunJob(c.Request.Context(), jobType, campaignID, schedule.ScheduledTimeFor(h.now()))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, report)
}

// CampaignDashboard returns the read-only operations summary for a campaign.
// GET /api/v1/campaigns/:id/dashboard
func (h *Handler) CampaignDashboard(c *gin.Context) {
	campaignID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid campaign ID", nil)
		return
	}

	view, err := h.dashboard.View(c.Request.Context(), campaignID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, view)
}

func (h *Handler) scheduleFor(jobType string) (Schedule, bool) {
	for _, schedule := range h.schedules {
		if schedule.JobType == jobType {
			return schedule, true
		}
	}
	return Schedule{}, false
}
