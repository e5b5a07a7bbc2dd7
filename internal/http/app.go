// Package http defines the module registration layer between the composition
// root and the gin router.
package http

import (
	"context"

	"cam_backend/platform/config"
	"cam_backend/platform/events"
	"cam_backend/platform/logger"
)

// RouterConfig is the slice of application config the router needs.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker is pinged by the health endpoint. *pgxpool.Pool satisfies it.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App carries the wired dependencies from main into the router. Main builds
// it once; the router reads it and constructs nothing itself.
type App struct {
	Config   RouterConfig
	Logger   *logger.Logger
	Health   HealthChecker
	EventBus events.Bus
	// Modules are registered in order; each mounts its own routes.
	Modules []Module
}
