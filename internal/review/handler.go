package review

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cam_backend/platform/httpkit"
	"cam_backend/platform/validator"
)

// FlagRequest marks a lead for human review.
type FlagRequest struct {
	LeadID uuid.UUID `json:"leadId" validate:"required"`
	Type   string    `json:"type" validate:"required"`
	Reason string    `json:"reason" validate:"required,max=500"`
}

// RejectRequest optionally overrides the rejection reason.
type RejectRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

const msgInvalidLeadID = "invalid lead ID"

// Handler handles HTTP requests for the review gate.
type Handler struct {
	svc *Service
	val *validator.Validator
}

// NewHandler creates the review handler.
func NewHandler(svc *Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// ListPending returns open review tasks, oldest first.
// GET /api/v1/review-tasks?campaignId=...&limit=...
func (h *Handler) ListPending(c *gin.Context) {
	var campaignID *uuid.UUID
	if raw := c.Query("campaignId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid campaign ID", nil)
			return
		}
		campaignID = &id
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			httpkit.Error(c, http.StatusBadRequest, "invalid limit", nil)
			return
		}
		limit = parsed
	}

	tasks, err := h.svc.ListPending(c.Request.Context(), campaignID, limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, tasks)
}

// Flag creates or replaces the review task for a lead.
// POST /api/v1/review-tasks
func (h *Handler) Flag(c *gin.Context) {
	var req FlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	task, err := h.svc.Flag(c.Request.Context(), req.LeadID, req.Type, req.Reason)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, task)
}

// Approve clears the flag so automation resumes the lead.
// POST /api/v1/review-tasks/:leadId/approve
func (h *Handler) Approve(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	if httpkit.HandleError(c, h.svc.Approve(c.Request.Context(), leadID)) {
		return
	}
	httpkit.OK(c, gin.H{"resolution": ResolutionApproved})
}

// Reject disqualifies the lead.
// POST /api/v1/review-tasks/:leadId/reject
func (h *Handler) Reject(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	var req RejectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
			return
		}
	}

	if httpkit.HandleError(c, h.svc.Reject(c.Request.Context(), leadID, req.Reason)) {
		return
	}
	httpkit.OK(c, gin.H{"resolution": ResolutionRejected})
}

// Skip suppresses the lead without contact.
// POST /api/v1/review-tasks/:leadId/skip
func (h *Handler) Skip(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	if httpkit.HandleError(c, h.svc.Skip(c.Request.Context(), leadID)) {
		return
	}
	httpkit.OK(c, gin.H{"resolution": ResolutionSkipped})
}
