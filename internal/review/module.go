package review

import (
	apphttp "cam_backend/internal/http"
	"cam_backend/internal/leads/repository"
	"cam_backend/platform/events"
	"cam_backend/platform/logger"
	"cam_backend/platform/validator"
)

// Module is the review gate module implementing http.Module.
type Module struct {
	handler *Handler
	service *Service
	tasks   TaskStore
}

// NewModule creates and initializes the review module.
func NewModule(leads repository.Store, tasks TaskStore, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	svc := NewService(leads, tasks, bus, log)
	return &Module{
		handler: NewHandler(svc, val),
		service: svc,
		tasks:   tasks,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "review"
}

// Service returns the review service for the pipeline stages.
func (m *Module) Service() *Service {
	return m.service
}

// TaskStore returns the underlying task store for the dashboard.
func (m *Module) TaskStore() TaskStore {
	return m.tasks
}

// RegisterRoutes mounts the review gate routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/review-tasks")
	group.GET("", m.handler.ListPending)
	group.POST("", m.handler.Flag)
	group.POST("/:leadId/approve", m.handler.Approve)
	group.POST("/:leadId/reject", m.handler.Reject)
	group.POST("/:leadId/skip", m.handler.Skip)
}

var _ apphttp.Module = (*Module)(nil)
