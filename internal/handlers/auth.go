package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"

	"github.com/communehq/commune/internal/auth"
	apierrors "github.com/communehq/commune/internal/errors"
	"github.com/communehq/commune/internal/logger"
	"github.com/communehq/commune/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const oauthStateCookie = "commune_oauth_state"

// Register creates an email/password account
// POST /api/v1/auth/register
func (h *Handlers) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Locale == "" {
		req.Locale = util.GetLocale(c).String()
	}

	resp, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "user")
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Login authenticates with email, password and, when enabled, a TOTP code
// POST /api/v1/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req auth.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Me returns the authenticated account
// GET /api/v1/auth/me
func (h *Handlers) Me(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// GoogleLogin redirects to Google's consent page
// GET /api/v1/auth/google
func (h *Handlers) GoogleLogin(c *gin.Context) {
	state, err := randomState()
	if err != nil {
		util.RespondInternalError(c, err)
		return
	}
	url := h.auth.GoogleAuthURL(state)
	if url == "" {
		respondError(c, auth.ErrOAuthNotConfigured, "")
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, 600, "/", "", c.Request.TLS != nil, true)
	c.Redirect(http.StatusTemporaryRedirect, url)
}

// GoogleCallback completes Google sign-in and returns a Commune token
// GET /api/v1/auth/google/callback
func (h *Handlers) GoogleCallback(c *gin.Context) {
	expected, err := c.Cookie(oauthStateCookie)
	if err != nil || expected == "" || c.Query("state") != expected {
		util.RespondWithAPIError(c, apierrors.BadRequest("invalid request body").WithDetails("oauth state mismatch"))
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/", "", c.Request.TLS != nil, true)

	code := c.Query("code")
	if code == "" {
		util.RespondValidationError(c, "code", "invalid input")
		return
	}

	resp, err := h.auth.HandleGoogleCallback(c.Request.Context(), code)
	if err != nil {
		logger.Log.Warn("Google sign-in failed", zap.Error(err))
		respondError(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func randomState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// EnableTwoFactor starts TOTP enrollment and returns the secret
// POST /api/v1/auth/2fa/enable
func (h *Handlers) EnableTwoFactor(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	setup, err := h.auth.BeginTwoFactor(c.Request.Context(), user)
	if err != nil {
		respondError(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, setup)
}

type twoFactorCodeRequest struct {
	Code string `json:"code" binding:"required,len=6,numeric"`
}

// VerifyTwoFactor confirms enrollment with a current code
// POST /api/v1/auth/2fa/verify
func (h *Handlers) VerifyTwoFactor(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	var req twoFactorCodeRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.auth.ConfirmTwoFactor(c.Request.Context(), user, req.Code); err != nil {
		respondError(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"two_factor_enabled": true})
}

// DisableTwoFactor turns TOTP off after checking a current code
// POST /api/v1/auth/2fa/disable
func (h *Handlers) DisableTwoFactor(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	var req twoFactorCodeRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.auth.DisableTwoFactor(c.Request.Context(), user, req.Code); err != nil {
		respondError(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"two_factor_enabled": false})
}
