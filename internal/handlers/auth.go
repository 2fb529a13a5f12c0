package handlers

import (
	"net/http"

	"github.com/counseldesk/backend/internal/logger"
	"github.com/counseldesk/backend/internal/middleware"
	"github.com/counseldesk/backend/internal/session"
	"github.com/counseldesk/backend/internal/util"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const stateCookie = "oauth_state"

// GoogleLogin redirects the browser to Google's consent screen
func (h *Handlers) GoogleLogin(c *gin.Context) {
	state := uuid.New().String()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, 600, "/", "", h.secureCookies(), true)
	c.Redirect(http.StatusTemporaryRedirect, h.auth.GoogleAuthURL(state))
}

// GoogleCallback completes the Google OAuth flow, issues the session
// cookie, and sends the browser back to the dashboard.
func (h *Handlers) GoogleCallback(c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		logger.Log.Warn("Google sign-in denied", zap.String("error", errParam))
		c.Redirect(http.StatusTemporaryRedirect, h.cfg.FrontendURL+"?auth_error=denied")
		return
	}

	code := c.Query("code")
	if code == "" {
		util.RespondBadRequest(c, "missing authorization code")
		return
	}

	expected, err := c.Cookie(stateCookie)
	if err != nil || expected == "" || c.Query("state") != expected {
		util.RespondUnauthorized(c, "state mismatch")
		return
	}
	c.SetCookie(stateCookie, "", -1, "/", "", h.secureCookies(), true)

	signed, _, err := h.auth.HandleGoogleCallback(c.Request.Context(), code)
	if err != nil {
		util.RespondError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, signed, int(session.DefaultTTL.Seconds()), "/", "", h.secureCookies(), true)
	c.Redirect(http.StatusTemporaryRedirect, h.cfg.FrontendURL)
}

// ClioLogin redirects the browser to the case-management consent screen
func (h *Handlers) ClioLogin(c *gin.Context) {
	state := c.Query("state")
	c.Redirect(http.StatusTemporaryRedirect, h.auth.ClioAuthURL(state))
}

// Me returns the signed-in user's profile
func (h *Handlers) Me(c *gin.Context) {
	sess := middleware.GetSession(c)
	if sess == nil {
		util.RespondUnauthorized(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":      sess.UserID,
			"email":   sess.Email,
			"name":    sess.Name,
			"picture": sess.Picture,
		},
		"expires_at": sess.ExpiresAt,
	})
}

// SignOut clears the session cookie. Case-management tokens live in
// the browser, so the client discards those itself.
func (h *Handlers) SignOut(c *gin.Context) {
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.secureCookies(), true)
	c.JSON(http.StatusOK, gin.H{"status": "signed out"})
}

func (h *Handlers) secureCookies() bool {
	return h.cfg.Environment == "production"
}
