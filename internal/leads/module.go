// Package leads assembles the leads bounded context for HTTP registration.
package leads

import (
	apphttp "cam_backend/internal/http"
	"cam_backend/internal/leads/handler"
	"cam_backend/internal/leads/repository"
	"cam_backend/platform/validator"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	store   repository.Store
}

// NewModule creates and initializes the leads module. manual may be nil.
func NewModule(store repository.Store, manual handler.ManualQueue, val *validator.Validator) *Module {
	return &Module{
		handler: handler.New(store, manual, val),
		store:   store,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Store returns the lead store for external use.
func (m *Module) Store() repository.Store {
	return m.store
}

// RegisterRoutes mounts the lead routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/campaigns/:id/leads", m.handler.ListByCampaign)
	ctx.Protected.POST("/campaigns/:id/leads", m.handler.CreateManual)
	ctx.Protected.GET("/leads/:id", m.handler.GetByID)
	ctx.Protected.GET("/leads/:id/engagement", m.handler.Engagement)
}

var _ apphttp.Module = (*Module)(nil)
