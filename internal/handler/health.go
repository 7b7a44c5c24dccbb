package handler // declare the package name; contains HTTP handlers

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
)

// Pinger is anything with a health probe, e.g. *sql.DB.
type Pinger interface {
    PingContext(ctx context.Context) error
}

// Health is the liveness probe used by load balancers.  It returns plain
// "ok" with 200.
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}

// Ready reports 503 until the database answers a ping.
func Ready(db Pinger) echo.HandlerFunc {
    return func(c echo.Context) error {
        ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
        defer cancel()
        if db == nil || db.PingContext(ctx) != nil {
            return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
        }
        return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
    }
}
