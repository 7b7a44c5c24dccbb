package middleware

import (
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"
)

// CtxRequestID is the context key of the per-request id.
const CtxRequestID = "request_id"

// RequestLogger tags each request with an id (reusing X-Request-ID when the
// client sent one) and logs method, path, status and latency once the
// handler returns.  5xx responses are logged at error level.
func RequestLogger(log *logrus.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            id := c.Request().Header.Get(echo.HeaderXRequestID)
            if id == "" {
                id = uuid.NewString()
            }
            c.Set(CtxRequestID, id)
            c.Response().Header().Set(echo.HeaderXRequestID, id)

            start := time.Now()
            err := next(c)
            if err != nil {
                // let echo write the error response so the status below is final
                c.Error(err)
            }

            status := c.Response().Status
            entry := log.WithFields(logrus.Fields{
                "request_id": id,
                "method":     c.Request().Method,
                "path":       c.Path(),
                "uri":        c.Request().RequestURI,
                "status":     status,
                "latency_ms": time.Since(start).Milliseconds(),
                "ip":         c.RealIP(),
            })
            if uid, ok := UserID(c); ok {
                entry = entry.WithField("user_id", uid)
            }
            switch {
            case status >= 500:
                if err != nil {
                    entry = entry.WithError(err)
                }
                entry.Error("request")
            case status >= 400:
                entry.Warn("request")
            default:
                entry.Info("request")
            }
            return nil
        }
    }
}
