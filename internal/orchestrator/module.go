package orchestrator

import (
	apphttp "cam_backend/internal/http"
)

// Module exposes the orchestration surface over HTTP: manual triggers and
// the campaign dashboard. The tick loop itself runs in the worker binary.
type Module struct {
	handler *Handler
}

// NewModule creates the orchestration HTTP module.
func NewModule(runner JobRunner, dashboard *Dashboard, schedules []Schedule) *Module {
	return &Module{handler: NewHandler(runner, dashboard, schedules)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "orchestrator"
}

// RegisterRoutes mounts the job trigger and dashboard routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.POST("/jobs/:jobType/trigger", m.handler.TriggerJob)
	ctx.Protected.GET("/campaigns/:id/dashboard", m.handler.CampaignDashboard)
}

var _ apphttp.Module = (*Module)(nil)
