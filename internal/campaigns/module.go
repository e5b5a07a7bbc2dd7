package campaigns

import (
	apphttp "cam_backend/internal/http"
	"cam_backend/platform/validator"
)

// Module is the campaigns bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	store   Store
}

// NewModule creates and initializes the campaigns module.
func NewModule(store Store, val *validator.Validator) *Module {
	return &Module{
		handler: NewHandler(store, val),
		store:   store,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "campaigns"
}

// Store returns the campaign store for external use.
func (m *Module) Store() Store {
	return m.store
}

// RegisterRoutes mounts campaign management routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/campaigns")
	group.POST("", m.handler.Create)
	group.GET("", m.handler.List)
	group.GET("/:id", m.handler.GetByID)
	group.POST("/:id/pause", m.handler.Pause)
	group.POST("/:id/resume", m.handler.Resume)
	group.POST("/:id/kill", m.handler.Kill)
}

var _ apphttp.Module = (*Module)(nil)
