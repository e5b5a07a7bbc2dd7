package replies

import (
	apphttp "cam_backend/internal/http"
)

// Module exposes the reply ingestion trigger implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule creates the replies module. ingestor may be nil.
func NewModule(ingestor *Ingestor) *Module {
	return &Module{handler: NewHandler(ingestor)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "replies"
}

// RegisterRoutes mounts the reply routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.POST("/replies/ingest", m.handler.TriggerIngest)
}

var _ apphttp.Module = (*Module)(nil)
