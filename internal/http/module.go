package http

import (
	"cam_backend/platform/config"
	"cam_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Module is implemented by every domain module that exposes HTTP routes.
// The router only knows modules through this interface.
type Module interface {
	// Name identifies the module in startup logs.
	Name() string
	// RegisterRoutes mounts the module's routes using the shared context.
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext bundles the route groups and middleware modules mount onto.
type RouterContext struct {
	// Engine is the root gin engine, for modules that need it directly.
	Engine *gin.Engine
	// V1 is the unauthenticated /api/v1 group.
	V1 *gin.RouterGroup
	// Protected is the JWT-guarded group under /api/v1.
	Protected *gin.RouterGroup
	// Config scopes modules to the JWT settings only.
	Config config.JWTConfig
	// AuthMiddleware is the token check applied to Protected.
	AuthMiddleware gin.HandlerFunc
	// AuthRateLimiter throttles the login endpoint per client IP.
	AuthRateLimiter *httpkit.AuthRateLimiter
}
