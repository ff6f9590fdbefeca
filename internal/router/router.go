package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-manager/internal/handler"
	"github.com/iliyamo/task-manager/internal/middleware"
	"github.com/iliyamo/task-manager/internal/utils"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo, health echo.HandlerFunc) {
	e.GET("/healthz", health)
}

// RegisterAuth registers the authentication routes.  Register and login
// are public and guarded only by the rate limiter; /api/auth/me requires
// a session token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, tokens *utils.TokenIssuer, limiter echo.MiddlewareFunc) {
	g := e.Group("/api/auth")
	g.POST("/register", a.Register, limiter)
	g.POST("/login", a.Login, limiter)
	g.GET("/me", a.Me, middleware.JWTAuth(tokens))
}

// RegisterTasks registers the task routes.  The JWT gate runs before every
// handler, followed by the per-user read cache.
func RegisterTasks(e *echo.Echo, h *handler.TaskHandler, tokens *utils.TokenIssuer, cache *middleware.ResponseCache) {
	g := e.Group("/api/tasks", middleware.JWTAuth(tokens), cache.Middleware())
	g.GET("", h.List)
	g.GET("/stats", h.Stats)
	g.GET("/:id", h.Get)
	g.POST("", h.Create)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}
