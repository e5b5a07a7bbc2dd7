// Package handler exposes lead records over HTTP: read access for operators
// and manual enqueueing into the harvest queue.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cam_backend/internal/leads/domain"
	"cam_backend/internal/leads/repository"
	"cam_backend/internal/leads/transport"
	"cam_backend/platform/apperr"
	"cam_backend/platform/httpkit"
	"cam_backend/platform/validator"
)

// ManualQueue accepts operator-entered leads for the next harvest run.
// Satisfied by *sources.ManualSource.
type ManualQueue interface {
	Enqueue(campaignID uuid.UUID, lead domain.Lead)
	Pending(campaignID uuid.UUID) int
}

const (
	msgInvalidRequest = "invalid request"
	msgInvalidLeadID  = "invalid lead ID"
)

// Handler handles HTTP requests for leads.
type Handler struct {
	leads  repository.Store
	manual ManualQueue
	val    *validator.Validator
}

// New creates the leads handler. manual may be nil when the deployment has
// no manual source; the enqueue endpoint then reports 503.
func New(leads repository.Store, manual ManualQueue, val *validator.Validator) *Handler {
	return &Handler{leads: leads, manual: manual, val: val}
}

// ListByCampaign lists leads of one campaign in a given lifecycle status.
// GET /api/v1/campaigns/:id/leads?status=...&limit=...
func (h *Handler) ListByCampaign(c *gin.Context) {
	campaignID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid campaign ID", nil)
		return
	}

	var query transport.ListLeadsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	status := domain.Status(query.Status)
	if !domain.IsKnownStatus(status) {
		httpkit.Error(c, http.StatusBadRequest, "unknown status: "+query.Status, nil)
		return
	}
	limit := query.Limit
	if limit < 1 || limit > 500 {
		limit = 100
	}

	leads, err := h.leads.QueryByStatus(c.Request.Context(), campaignID, status, limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, leads)
}

// GetByID returns one lead.
// GET /api/v1/leads/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	lead, err := h.leads.GetByID(c.Request.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		err = apperr.NotFound("lead not found")
	}
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

// Engagement returns the lead's engagement event log, oldest first.
// GET /api/v1/leads/:id/engagement
func (h *Handler) Engagement(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	events, err := h.leads.ListEngagement(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, events)
}

// CreateManual queues a lead for the campaign's next harvest run. The lead
// enters the pipeline through the same dedup gate as sourced leads.
// POST /api/v1/campaigns/:id/leads
func (h *Handler) CreateManual(c *gin.Context) {
	if h.manual == nil {
		httpkit.Error(c, http.StatusServiceUnavailable, "manual lead intake is not configured", nil)
		return
	}

	campaignID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid campaign ID", nil)
		return
	}

	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	h.manual.Enqueue(campaignID, req.ToLead(campaignID))
	httpkit.JSON(c, http.StatusAccepted, transport.EnqueueResponse{
		CampaignID: campaignID,
		Queued:     h.manual.Pending(campaignID),
		Source:     "manual",
	})
}
