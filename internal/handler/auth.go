package handler

import (
    "context"  // provides context with cancellation for remote and DB calls
    "errors"   // errors matches sentinel values from the sheet client and repositories
    "net/http" // HTTP status codes and primitives
    "strings"  // string manipulation utilities
    "time"     // timeouts for remote and DB calls

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing
    "go.uber.org/zap"             // structured logging

    "github.com/iliyamo/lab-equipment-reservation/internal/client"     // ErrInvalidCredentials from the login sheet
    "github.com/iliyamo/lab-equipment-reservation/internal/config"     // app configuration
    "github.com/iliyamo/lab-equipment-reservation/internal/middleware" // CurrentIdentity / SessionID
    "github.com/iliyamo/lab-equipment-reservation/internal/model"      // Identity
    "github.com/iliyamo/lab-equipment-reservation/internal/repository" // ErrTokenNotFound
    "github.com/iliyamo/lab-equipment-reservation/internal/utils"      // token issuing and hashing
)

// Authenticator verifies credentials against the login sheet.
type Authenticator interface {
    Login(ctx context.Context, email, password string) (model.Identity, error)
}

// SessionStore keeps the identity record referenced by access tokens.
type SessionStore interface {
    Create(ctx context.Context, id model.Identity) (string, error)
    Identity(ctx context.Context, sid string) (model.Identity, error)
    Touch(ctx context.Context, sid string) error
    Delete(ctx context.Context, sid string) error
    RevokeAllForUser(ctx context.Context, email string) error
}

// TokenStore persists hashed refresh tokens.
type TokenStore interface {
    StoreRefresh(ctx context.Context, email, sessionID, tokenHash string, exp time.Time) error
    ValidateRefresh(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
    RevokeByHash(ctx context.Context, tokenHash string) error
    RevokeSession(ctx context.Context, sessionID string) error
    RevokeAllForUser(ctx context.Context, email string) error
}

// AuthHandler bundles dependencies for auth endpoints.  Passwords are
// never seen by the backend's own storage: the login sheet verifies them
// and the backend only keeps the resulting identity in Redis.
type AuthHandler struct {
    Cfg      config.Config
    Auth     Authenticator
    Sessions SessionStore
    Tokens   TokenStore
    Log      *zap.Logger
}

// NewAuthHandler returns the login, refresh, me and logout handler.  a
// checks credentials against the sheet API, s holds sessions and t the
// hashed refresh tokens.
func NewAuthHandler(cfg config.Config, a Authenticator, s SessionStore, t TokenStore, log *zap.Logger) *AuthHandler {
    if log == nil {
        log = zap.NewNop()
    }
    return &AuthHandler{Cfg: cfg, Auth: a, Sessions: s, Tokens: t, Log: log}
}

// ----- DTOs -----

type loginReq struct {
    Email    string `json:"email" validate:"required,email"`
    Password string `json:"password" validate:"required"`
}
type refreshReq struct {
    RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}
type authResp struct {
    User    model.Identity `json:"user"`
    Access  tokenPart      `json:"access"`
    Refresh tokenPart      `json:"refresh"`
}

// issue creates the access/refresh pair for session sid.
func (h *AuthHandler) issue(ctx context.Context, id model.Identity, sid string) (authResp, error) {
    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, id.Email, id.Role, sid, h.Cfg.AccessTTLMin)
    if err != nil {
        return authResp{}, err
    }
    refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
    if err != nil {
        return authResp{}, err
    }
    if err := h.Tokens.StoreRefresh(ctx, id.Email, sid, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
        return authResp{}, err
    }
    return authResp{
        User:    id,
        Access:  tokenPart{Token: access.Token, Expires: access.Exp},
        Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
    }, nil
}

// Login: verify against the login sheet, open a session and return a token pair.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    if err := c.Validate(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), h.Cfg.HTTPTimeout+5*time.Second)
    defer cancel()

    id, err := h.Auth.Login(ctx, req.Email, req.Password)
    if errors.Is(err, client.ErrInvalidCredentials) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }
    if err != nil {
        h.Log.Error("login sheet call failed", zap.Error(err))
        return c.JSON(http.StatusBadGateway, echo.Map{"error": "failed to reach login service"})
    }
    id.Role = model.NormalizeRole(id.Role)
    if id.Email == "" {
        id.Email = req.Email
    }

    sid, err := h.Sessions.Create(ctx, id)
    if err != nil {
        h.Log.Error("create session", zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create session failed"})
    }
    resp, err := h.issue(ctx, id, sid)
    if err != nil {
        h.Log.Error("issue tokens", zap.Error(err))
        _ = h.Sessions.Delete(ctx, sid)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
    }
    h.Log.Info("login", zap.String("email", id.Email), zap.String("role", id.Role))
    return c.JSON(http.StatusOK, resp)
}

// Refresh: validate by hash, revoke old, issue new.  The session must
// still exist; logging out elsewhere invalidates outstanding refresh tokens.
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
    }
    hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    tok, err := h.Tokens.ValidateRefresh(ctx, hash)
    if err != nil {
        if !errors.Is(err, repository.ErrTokenNotFound) {
            h.Log.Error("validate refresh", zap.Error(err))
        }
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
    }
    id, err := h.Sessions.Identity(ctx, tok.SessionID)
    if err != nil {
        _ = h.Tokens.RevokeSession(ctx, tok.SessionID)
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "session expired"})
    }
    _ = h.Tokens.RevokeByHash(ctx, hash)
    if err := h.Sessions.Touch(ctx, tok.SessionID); err != nil {
        h.Log.Warn("touch session", zap.Error(err))
    }

    resp, err := h.issue(ctx, id, tok.SessionID)
    if err != nil {
        h.Log.Error("issue tokens", zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
    }
    return c.JSON(http.StatusOK, resp)
}

// Logout ends the current session (protected).  With ?all=true every
// session of the user is ended.
func (h *AuthHandler) Logout(c echo.Context) error {
    id, ok := middleware.CurrentIdentity(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    sid := middleware.SessionID(c)

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if c.QueryParam("all") == "true" {
        if err := h.Sessions.RevokeAllForUser(ctx, id.Email); err != nil {
            h.Log.Error("revoke sessions", zap.Error(err))
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
        }
        if err := h.Tokens.RevokeAllForUser(ctx, id.Email); err != nil {
            h.Log.Error("revoke tokens", zap.Error(err))
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
        }
        return c.NoContent(http.StatusNoContent)
    }

    if err := h.Sessions.Delete(ctx, sid); err != nil {
        h.Log.Error("delete session", zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
    }
    if err := h.Tokens.RevokeSession(ctx, sid); err != nil {
        h.Log.Warn("revoke session tokens", zap.Error(err))
    }
    return c.NoContent(http.StatusNoContent)
}

// Me returns the identity of the current session.
func (h *AuthHandler) Me(c echo.Context) error {
    id, ok := middleware.CurrentIdentity(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "user":     id,
        "is_staff": id.IsStaff(),
    })
}
