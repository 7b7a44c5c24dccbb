package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/civeni-admin/internal/utils"
)

// Context keys set by JWTAuth.
const (
    CtxUserID = "user_id"
    CtxRole   = "role"
    CtxEmail  = "email"
)

// JWTAuth validates a Bearer access token and stores the caller's id (uint64),
// role and email in the echo context.  The secret must match the one used
// when issuing tokens.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
            }
            claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
            if err != nil {
                return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
            }
            id, _ := claims.UserID() // ParseAccessToken already checked the subject
            c.Set(CtxUserID, id)
            c.Set(CtxRole, claims.Role)
            c.Set(CtxEmail, claims.Email)
            return next(c)
        }
    }
}
