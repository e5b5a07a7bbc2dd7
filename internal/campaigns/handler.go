package campaigns

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cam_backend/platform/apperr"
	"cam_backend/platform/httpkit"
	"cam_backend/platform/validator"
)

// Store is the campaign persistence port consumed by the HTTP handler.
type Store interface {
	Create(ctx context.Context, p CreateParams) (Campaign, error)
	GetByID(ctx context.Context, id uuid.UUID) (Campaign, error)
	List(ctx context.Context) ([]Campaign, error)
	SetFlags(ctx context.Context, id uuid.UUID, active, paused, killed bool) (Campaign, error)
}

// CreateCampaignRequest is the payload for creating a campaign.
type CreateCampaignRequest struct {
	Name               string                `json:"name" validate:"required,max=200"`
	Niche              string                `json:"niche" validate:"max=200"`
	Channels           []string              `json:"channels" validate:"omitempty,dive,oneof=email social"`
	ChannelCaps        map[string]ChannelCap `json:"channelCaps"`
	Target             TargetProfile         `json:"target"`
	Qualification      *QualificationRules   `json:"qualification"`
	Metrics            TargetMetrics         `json:"metrics"`
	MaxLeadsPerHarvest int                   `json:"maxLeadsPerHarvest" validate:"omitempty,min=1,max=10000"`
	PhoneRegion        string                `json:"phoneRegion" validate:"omitempty,len=2"`
}

const msgInvalidCampaignID = "invalid campaign ID"

// Handler handles HTTP requests for campaign management.
type Handler struct {
	store Store
	val   *validator.Validator
}

// NewHandler creates the campaigns handler.
func NewHandler(store Store, val *validator.Validator) *Handler {
	return &Handler{store: store, val: val}
}

// Create registers a new campaign. It starts active and unpaused.
// POST /api/v1/campaigns
func (h *Handler) Create(c *gin.Context) {
	var req CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	channels := req.Channels
	if len(channels) == 0 {
		channels = []string{ChannelEmail}
	}
	params := CreateParams{
		Name:               req.Name,
		Niche:              req.Niche,
		Channels:           channels,
		ChannelCaps:        req.ChannelCaps,
		Target:             req.Target,
		Metrics:            req.Metrics,
		MaxLeadsPerHarvest: req.MaxLeadsPerHarvest,
		PhoneRegion:        req.PhoneRegion,
	}
	if req.Qualification != nil {
		params.Qualification = *req.Qualification
	}

	campaign, err := h.store.Create(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, campaign)
}

// List returns all campaigns, including paused and killed ones.
// GET /api/v1/campaigns
func (h *Handler) List(c *gin.Context) {
	result, err := h.store.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetByID returns one campaign.
// GET /api/v1/campaigns/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidCampaignID, nil)
		return
	}

	campaign, err := h.store.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, mapNotFound(err)) {
		return
	}
	httpkit.OK(c, campaign)
}

// Pause suspends automation for the campaign. In-flight executions finish;
// no new windows are dispatched until resume.
// POST /api/v1/campaigns/:id/pause
func (h *Handler) Pause(c *gin.Context) {
	h.setFlags(c, func(campaign Campaign) (bool, bool, bool) {
		return campaign.Active, true, campaign.Killed
	})
}

// Resume lifts a pause. A killed campaign stays killed.
// POST /api/v1/campaigns/:id/resume
func (h *Handler) Resume(c *gin.Context) {
	h.setFlags(c, func(campaign Campaign) (bool, bool, bool) {
		return campaign.Active, false, campaign.Killed
	})
}

// Kill permanently stops the campaign. There is no unkill endpoint.
// POST /api/v1/campaigns/:id/kill
func (h *Handler) Kill(c *gin.Context) {
	h.setFlags(c, func(campaign Campaign) (bool, bool, bool) {
		return campaign.Active, campaign.Paused, true
	})
}

func (h *Handler) setFlags(c *gin.Context, flags func(Campaign) (active, paused, killed bool)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidCampaignID, nil)
		return
	}

	campaign, err := h.store.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, mapNotFound(err)) {
		return
	}

	active, paused, killed := flags(campaign)
	updated, err := h.store.SetFlags(c.Request.Context(), id, active, paused, killed)
	if httpkit.HandleError(c, mapNotFound(err)) {
		return
	}
	httpkit.OK(c, updated)
}

func mapNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("campaign not found")
	}
	return err
}
