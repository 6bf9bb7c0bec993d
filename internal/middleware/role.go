package middleware // middleware provides shared request processing for handlers

import (
    "net/http" // http package defines standard HTTP status codes

    "github.com/labstack/echo/v4" // echo provides middleware chaining and context

    "github.com/iliyamo/lab-equipment-reservation/internal/model"
)

// RequireRole returns a middleware function that enforces that the
// authenticated user has one of the specified roles (FACULTY, STAFF,
// ADMIN).  Role names are compared case-insensitively because the login
// sheet is edited by hand.  If the user's role is not in the allowed set,
// the request is aborted with a 403 Forbidden response.  It assumes
// JWTAuth ran first.
func RequireRole(roles ...string) echo.MiddlewareFunc {
    allowed := make(map[string]bool, len(roles))
    for _, r := range roles {
        allowed[model.NormalizeRole(r)] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            id, ok := CurrentIdentity(c)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
            }
            if !allowed[model.NormalizeRole(id.Role)] {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            return next(c)
        }
    }
}
