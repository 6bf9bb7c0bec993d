package handler // declare the package name; contains HTTP handlers

import (
    "context"  // context bounds each dependency check
    "net/http" // net/http provides status codes and response helpers
    "time"     // time sets the check timeout

    "github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// HealthCheck probes one dependency.  A nil error means healthy.
type HealthCheck func(ctx context.Context) error

// Health returns a health-check endpoint used by load balancers and
// monitoring systems.  With no checks it always answers 200 "ok".  Each
// named check is run with a short timeout; any failure turns the answer
// into 503 with the failing names listed.  The remote APIs are not
// probed: they are not ours to restart.
func Health(checks map[string]HealthCheck) echo.HandlerFunc {
    return func(c echo.Context) error {
        if len(checks) == 0 {
            return c.String(http.StatusOK, "ok")
        }
        ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
        defer cancel()
        status := echo.Map{}
        healthy := true
        for name, check := range checks {
            if err := check(ctx); err != nil {
                status[name] = err.Error()
                healthy = false
                continue
            }
            status[name] = "ok"
        }
        if !healthy {
            return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "degraded", "checks": status})
        }
        return c.JSON(http.StatusOK, echo.Map{"status": "ok", "checks": status})
    }
}
