package middleware

// identity.go stores and reads the authenticated identity on the Echo
// context.  JWTAuth is the only writer.

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/lab-equipment-reservation/internal/model"
)

const (
    identityKey  = "identity"
    sessionIDKey = "sid"
)

func setIdentity(c echo.Context, id model.Identity, sid string) {
    id.Role = model.NormalizeRole(id.Role)
    c.Set(identityKey, id)
    c.Set(sessionIDKey, sid)
    c.Set("user_id", id.Email)
    c.Set("role", id.Role)
}

// CurrentIdentity returns the identity stored by JWTAuth.
func CurrentIdentity(c echo.Context) (model.Identity, bool) {
    id, ok := c.Get(identityKey).(model.Identity)
    return id, ok
}

// SessionID returns the session id of the current request, or "".
func SessionID(c echo.Context) string {
    s, _ := c.Get(sessionIDKey).(string)
    return s
}

// userID returns the identity string used for rate-limit keys.  It returns
// "guest" when no user is authenticated.
func userID(c echo.Context) string {
    if id, ok := CurrentIdentity(c); ok {
        return id.Sender()
    }
    return "guest"
}
