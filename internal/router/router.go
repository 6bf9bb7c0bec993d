package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/lab-equipment-reservation/internal/handler"    // import the handlers that implement the pages
	"github.com/iliyamo/lab-equipment-reservation/internal/middleware" // import middleware for authentication and role enforcement
	"github.com/iliyamo/lab-equipment-reservation/internal/model"      // role names
)

// Guards are the middleware shared by every protected group.  Auth
// resolves the identity from the bearer token and the session store;
// Limit is the Redis token bucket (a pass-through when disabled).
type Guards struct {
	Auth  echo.MiddlewareFunc
	Limit echo.MiddlewareFunc
}

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo, checks map[string]handler.HealthCheck) {
	// This endpoint can be used by load balancers or monitoring systems to
	// verify that the service and its own dependencies are up.
	e.GET("/healthz", handler.Health(checks))
}

// RegisterAuth registers all authentication-related routes.  Login and
// refresh live under /v1/auth without a token; logout and /v1/me need one.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, gd Guards) {
	g := e.Group("/v1/auth")
	// Login verifies credentials against the login sheet and opens a session.
	g.POST("/login", a.Login, gd.Limit)
	// Refresh rotates the refresh token and extends the session.
	g.POST("/refresh", a.Refresh, gd.Limit)
	// Logout ends the current session, or all of them with ?all=true.
	g.POST("/logout", a.Logout, gd.Auth)

	auth := e.Group("/v1", gd.Auth, middleware.RequireRole(model.RoleFaculty, model.RoleStaff, model.RoleAdmin))
	// Returns the authenticated user's identity record.
	auth.GET("/me", a.Me)
}
