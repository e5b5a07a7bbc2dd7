package auth

import (
	apphttp "cam_backend/internal/http"
	"cam_backend/platform/config"
	"cam_backend/platform/validator"
)

// Module is the operator authentication module implementing http.Module.
type Module struct {
	handler *Handler
	service *Service
}

// NewModule creates and initializes the auth module.
func NewModule(cfg config.AuthServiceConfig, val *validator.Validator) *Module {
	svc := NewService(cfg)
	return &Module{
		handler: NewHandler(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "auth"
}

// Service returns the service layer for external use.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterRoutes mounts the auth routes. Login sits behind the stricter
// per-IP rate limiter.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	authGroup := ctx.V1.Group("/auth")
	authGroup.Use(ctx.AuthRateLimiter.RateLimit())
	authGroup.POST("/login", m.handler.Login)
}

var _ apphttp.Module = (*Module)(nil)
