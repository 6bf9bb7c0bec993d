package handler // handler defines http handlers

import (
    "context"  // context bounds remote calls made on behalf of a request
    "errors"   // errors matches sentinel and typed errors
    "net/http" // HTTP status codes
    "strconv"  // strconv parses pagination parameters
    "time"     // time bounds remote calls

    "github.com/labstack/echo/v4" // echo defines request context types
    "go.uber.org/zap"             // structured logging

    "github.com/iliyamo/lab-equipment-reservation/internal/chat"        // ErrEmptyMessage
    "github.com/iliyamo/lab-equipment-reservation/internal/client"      // APIError / ErrNotFound
    "github.com/iliyamo/lab-equipment-reservation/internal/inventory"   // assignment errors
    "github.com/iliyamo/lab-equipment-reservation/internal/middleware"  // CurrentIdentity
    "github.com/iliyamo/lab-equipment-reservation/internal/model"       // Identity
    "github.com/iliyamo/lab-equipment-reservation/internal/reservation" // guard and validation errors
)

// remoteTimeout bounds every handler's calls to the remote APIs on top
// of the HTTP client's own timeout.
const remoteTimeout = 30 * time.Second

func remoteCtx(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), remoteTimeout)
}

// identity extracts the identity placed by JWTAuth.  Routes are always
// mounted behind JWTAuth, so a missing identity means a wiring mistake;
// it is still answered with 401 rather than a panic.
func identity(c echo.Context) (model.Identity, error) {
    id, ok := middleware.CurrentIdentity(c)
    if !ok {
        return model.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
    }
    return id, nil
}

// respondError maps workflow and remote errors to HTTP responses:
// validation 422, guards 409, not found 404 (server message when there is
// one), anything else from the remote API 502 with a generic "failed to
// <action>" message.  The detailed error only goes to the log.
func respondError(c echo.Context, log *zap.Logger, err error, action string) error {
    var ve *reservation.ValidationError
    switch {
    case errors.As(err, &ve):
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": ve.Message, "field": ve.Field})
    case errors.Is(err, reservation.ErrInvalidTransition):
        return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
    case errors.Is(err, inventory.ErrIncompleteAssignment),
        errors.Is(err, inventory.ErrInsufficientStock),
        errors.Is(err, inventory.ErrTypeMismatch):
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
    case errors.Is(err, chat.ErrEmptyMessage):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    case errors.Is(err, client.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": client.ServerMessage(err, "reservation not found")})
    case errors.Is(err, context.DeadlineExceeded):
        log.Warn(action+" timed out", zap.Error(err))
        return c.JSON(http.StatusGatewayTimeout, echo.Map{"error": "failed to " + action})
    }
    log.Error(action+" failed", zap.Error(err))
    return c.JSON(http.StatusBadGateway, echo.Map{"error": "failed to " + action})
}

// queryInt parses an integer query parameter, returning def when absent
// or malformed.
func queryInt(c echo.Context, name string, def int) int {
    if n, err := strconv.Atoi(c.QueryParam(name)); err == nil {
        return n
    }
    return def
}
