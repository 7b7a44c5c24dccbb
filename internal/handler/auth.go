package handler

import (
    "context"
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/civeni-admin/internal/config"
    "github.com/iliyamo/civeni-admin/internal/middleware"
    "github.com/iliyamo/civeni-admin/internal/model"
    "github.com/iliyamo/civeni-admin/internal/repository"
    "github.com/iliyamo/civeni-admin/internal/utils"
)

// UserStore is the part of repository.UserRepo the auth endpoints use.
type UserStore interface {
    Create(ctx context.Context, email, password string, cost int) (uint64, error)
    GetByEmail(ctx context.Context, email string) (model.AdminUser, error)
    GetByID(ctx context.Context, id uint64) (model.AdminUser, error)
}

// TokenStore is the part of repository.TokenRepo the auth endpoints use.
type TokenStore interface {
    StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
    ValidateRefresh(ctx context.Context, tokenHash string, now time.Time) (model.RefreshToken, error)
    RevokeByHash(ctx context.Context, tokenHash string) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
    Cfg    config.Config
    Users  UserStore
    Tokens TokenStore
    Log    *logrus.Logger
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore, log *logrus.Logger) *AuthHandler {
    return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Log: log}
}

// ----- DTOs -----

type loginReq struct {
    Email    string `json:"email" validate:"required,email"`
    Password string `json:"password" validate:"required"`
}

type createAdminReq struct {
    Email    string `json:"email" validate:"required,email,max=255"`
    Password string `json:"password" validate:"required,min=8,max=72"`
}

type refreshReq struct {
    RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}

type userPart struct {
    ID    uint64 `json:"id"`
    Email string `json:"email"`
    Role  string `json:"role"`
}

type authResp struct {
    User    userPart  `json:"user"`
    Access  tokenPart `json:"access"`
    Refresh tokenPart `json:"refresh"`
}

// issue signs an access token and stores a fresh refresh token for u.
func (h *AuthHandler) issue(ctx context.Context, u model.AdminUser) (authResp, error) {
    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Email, u.Role, h.Cfg.AccessTTLMin)
    if err != nil {
        return authResp{}, err
    }
    refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
    if err != nil {
        return authResp{}, err
    }
    if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
        return authResp{}, err
    }
    return authResp{
        User:    userPart{ID: u.ID, Email: u.Email, Role: u.Role},
        Access:  tokenPart{Token: access.Token, Expires: access.Exp},
        Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
    }, nil
}

// Login verifies credentials of an active admin and returns a token pair.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    if err := validate.Struct(req); err != nil {
        return validationError(c, err)
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.GetByEmail(ctx, req.Email)
    if err != nil {
        if errors.Is(err, repository.ErrUserNotFound) {
            return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
        }
        return respondError(c, h.Log, "Login", err)
    }
    if !utils.VerifyPassword(u.PasswordHash, req.Password) {
        return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
    }
    if !u.IsActive || u.Role != model.RoleAdmin {
        return c.JSON(http.StatusForbidden, map[string]string{"error": "account not allowed"})
    }

    resp, err := h.issue(ctx, u)
    if err != nil {
        return respondError(c, h.Log, "Login", err)
    }
    return c.JSON(http.StatusOK, resp)
}

// Refresh validates a refresh token by hash, revokes it and issues a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
        return c.JSON(http.StatusBadRequest, map[string]string{"error": "refresh_token required"})
    }
    hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    tok, err := h.Tokens.ValidateRefresh(ctx, hash, time.Now())
    if err != nil {
        if errors.Is(err, repository.ErrTokenInvalid) {
            return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid refresh"})
        }
        return respondError(c, h.Log, "Refresh", err)
    }
    if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
        return respondError(c, h.Log, "Refresh", err)
    }

    u, err := h.Users.GetByID(ctx, tok.UserID)
    if err != nil {
        if errors.Is(err, repository.ErrUserNotFound) {
            return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid refresh"})
        }
        return respondError(c, h.Log, "Refresh", err)
    }
    if !u.IsActive {
        return c.JSON(http.StatusForbidden, map[string]string{"error": "account not allowed"})
    }
    resp, err := h.issue(ctx, u)
    if err != nil {
        return respondError(c, h.Log, "Refresh", err)
    }
    return c.JSON(http.StatusOK, resp)
}

// Logout revokes the given refresh token.  Revoking an unknown or already
// revoked token is not an error.
func (h *AuthHandler) Logout(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
        return c.JSON(http.StatusBadRequest, map[string]string{"error": "refresh_token required"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))); err != nil {
        return respondError(c, h.Log, "Logout", err)
    }
    return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated admin.
func (h *AuthHandler) Me(c echo.Context) error {
    id, ok := middleware.UserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
    }
    u, err := h.Users.GetByID(c.Request().Context(), id)
    if err != nil {
        return respondError(c, h.Log, "Me", err)
    }
    return c.JSON(http.StatusOK, userPart{ID: u.ID, Email: u.Email, Role: u.Role})
}

// CreateAdmin lets an admin register another admin account.
func (h *AuthHandler) CreateAdmin(c echo.Context) error {
    var req createAdminReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    if err := validate.Struct(req); err != nil {
        return validationError(c, err)
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    id, err := h.Users.Create(ctx, req.Email, req.Password, h.Cfg.BcryptCost)
    if err != nil {
        return respondError(c, h.Log, "CreateAdmin", err)
    }
    if h.Log != nil {
        h.Log.WithFields(logrus.Fields{"module": "auth", "created_id": id, "by": middleware.Email(c)}).Info("admin created")
    }
    return c.JSON(http.StatusCreated, userPart{ID: id, Email: req.Email, Role: model.RoleAdmin})
}
