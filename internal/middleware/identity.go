package middleware

// identity.go holds the helpers that read the caller's identity back out of
// the echo context once JWTAuth has run.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// UserID returns the authenticated admin's id and whether one is present.
func UserID(c echo.Context) (uint64, bool) {
    id, ok := c.Get(CtxUserID).(uint64)
    return id, ok && id != 0
}

// Email returns the authenticated admin's email, or "" for anonymous calls.
func Email(c echo.Context) string {
    s, _ := c.Get(CtxEmail).(string)
    return s
}

// RequestID returns the id assigned by RequestLogger.
func RequestID(c echo.Context) string {
    s, _ := c.Get(CtxRequestID).(string)
    return s
}

// currentUserID is the rate-limit key part for the caller; "anon" before login.
func currentUserID(c echo.Context) string {
    if id, ok := UserID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}
