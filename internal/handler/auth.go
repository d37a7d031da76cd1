package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"leasing-site-api/internal/auth"
	"leasing-site-api/internal/logger"
	"leasing-site-api/internal/middleware"
	"leasing-site-api/internal/model"
	"leasing-site-api/internal/store"
)

const refreshCookie = "refresh_token"

type signupRequest struct {
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	FullName string `json:"full_name" binding:"max=120"`
	Locale   string `json:"locale" binding:"omitempty,max=10"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type sessionResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	TokenType    string         `json:"token_type"`
	ExpiresIn    int            `json:"expires_in"`
	User         *model.Profile `json:"user"`
}

func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	locale := req.Locale
	if h.Catalog != nil && !h.Catalog.Supported(locale) {
		locale = h.Catalog.Default()
	}

	p := &model.Profile{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		FullName:     strings.TrimSpace(req.FullName),
		Locale:       locale,
	}
	if err := h.Auth.CreateProfile(c.Request.Context(), p); err != nil {
		if errors.Is(err, store.ErrConflict) {
			// unique violation = dup email, but don't reveal that
			abort(c, http.StatusConflict, "registration failed")
			return
		}
		fail(c, err)
		return
	}
	h.startSession(c, http.StatusCreated, p)
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	p, err := h.Auth.ProfileByEmail(c.Request.Context(), req.Email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		fail(c, err)
		return
	}
	if p == nil || !auth.CheckPassword(p.PasswordHash, req.Password) {
		abort(c, http.StatusUnauthorized, "invalid credentials")
		return
	}
	h.startSession(c, http.StatusOK, p)
}

// Refresh rotates the refresh token. Presenting a token that was already
// rotated revokes every token of that user.
func (h *Handler) Refresh(c *gin.Context) {
	raw, _ := c.Cookie(refreshCookie)
	if raw == "" {
		var req refreshRequest
		_ = c.ShouldBindJSON(&req)
		raw = req.RefreshToken
	}
	if raw == "" {
		abort(c, http.StatusUnauthorized, "missing refresh token")
		return
	}

	ctx := c.Request.Context()
	rt, err := h.Auth.GetRefreshTokenByHash(ctx, auth.HashRefreshToken(raw))
	if errors.Is(err, store.ErrNotFound) {
		abort(c, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	if rt.Revoked {
		logger.From(c).Warn("refresh token reuse", zap.String("user_id", rt.UserID))
		if err := h.Auth.RevokeAllRefreshTokens(ctx, rt.UserID); err != nil {
			fail(c, err)
			return
		}
		h.clearRefreshCookie(c)
		abort(c, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	if h.now().After(rt.ExpiresAt) {
		abort(c, http.StatusUnauthorized, "refresh token expired")
		return
	}

	p, err := h.Auth.ProfileByID(ctx, rt.UserID)
	if errors.Is(err, store.ErrNotFound) {
		abort(c, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	if err != nil {
		fail(c, err)
		return
	}

	newRaw, newHash, err := auth.GenerateRefreshToken()
	if err != nil {
		fail(c, err)
		return
	}
	err = h.Auth.RotateRefreshToken(ctx, rt.ID, rt.UserID, newHash, h.now().Add(h.Options.RefreshTTL))
	if errors.Is(err, store.ErrConflict) {
		abort(c, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	h.writeSession(c, http.StatusOK, p, newRaw)
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.Auth.RevokeAllRefreshTokens(c.Request.Context(), middleware.UserID(c)); err != nil {
		fail(c, err)
		return
	}
	h.clearRefreshCookie(c)
	c.Status(http.StatusNoContent)
}

func (h *Handler) Me(c *gin.Context) {
	p, err := h.Auth.ProfileByID(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) startSession(c *gin.Context, status int, p *model.Profile) {
	raw, hash, err := auth.GenerateRefreshToken()
	if err != nil {
		fail(c, err)
		return
	}
	if _, err := h.Auth.CreateRefreshToken(c.Request.Context(), p.ID, hash, h.now().Add(h.Options.RefreshTTL)); err != nil {
		fail(c, err)
		return
	}
	h.writeSession(c, status, p, raw)
}

func (h *Handler) writeSession(c *gin.Context, status int, p *model.Profile, refresh string) {
	access, err := h.Tokens.Make(p.ID, p.Email, p.IsAdmin)
	if err != nil {
		fail(c, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookie, refresh, int(h.Options.RefreshTTL.Seconds()), "/api/auth",
		h.Options.CookieDomain, h.Options.CookieSecure, true)
	c.JSON(status, sessionResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int(h.Tokens.TTL().Seconds()),
		User:         p,
	})
}

func (h *Handler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookie, "", -1, "/api/auth", h.Options.CookieDomain, h.Options.CookieSecure, true)
}
