package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "context"  // context is passed to the session lookup
    "errors"   // errors distinguishes an expired session from a Redis failure
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/lab-equipment-reservation/internal/model"   // Identity carried through the request
    "github.com/iliyamo/lab-equipment-reservation/internal/session" // ErrNoSession sentinel
    "github.com/iliyamo/lab-equipment-reservation/internal/utils"   // access token parsing
)

// IdentityResolver looks up the identity record of a session id.
// *session.Store implements it.
type IdentityResolver interface {
    Identity(ctx context.Context, sid string) (model.Identity, error)
}

// JWTAuth returns an Echo middleware that validates a Bearer access token,
// loads the session's identity record and stores it in the request
// context.  Handlers read it back with CurrentIdentity; they never look
// the user up themselves.  The provided secret must match the one used
// when issuing tokens.
func JWTAuth(secret string, sessions IdentityResolver) echo.MiddlewareFunc {
    // The outer function returns a middleware function.  Echo executes this
    // once when registering the middleware.
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        // The returned handler is invoked for each incoming HTTP request.
        return func(c echo.Context) error {
            // A valid header starts with "Bearer " followed by the JWT.
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            claims, err := utils.ParseAccessToken(secret, raw)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }

            // The token only proves who signed in; the identity record in
            // Redis is the source of truth and disappears on logout.
            id, err := sessions.Identity(c.Request().Context(), claims.SessionID)
            if errors.Is(err, session.ErrNoSession) {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "session expired"})
            }
            if err != nil {
                c.Logger().Errorf("session lookup: %v", err)
                return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "session store unavailable"})
            }
            if !strings.EqualFold(id.Email, claims.Email) {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }

            setIdentity(c, id, claims.SessionID)
            return next(c)
        }
    }
}
