package middleware

import (
	"strings"

	"github.com/counseldesk/backend/internal/logger"
	"github.com/counseldesk/backend/internal/session"
	"github.com/counseldesk/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// SessionCookie carries the signed session token for browser callers.
	SessionCookie = "counseldesk_session"

	// ClioTokenHeader carries the case-management access token. The
	// browser owns these tokens; they never enter the session.
	ClioTokenHeader = "X-Clio-Token"

	sessionKey = "session"
)

// RequireSession validates the session token from the cookie or a
// Bearer header and stores the session on the context. Requests
// without a valid session get a 401.
func RequireSession(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c)
		if token == "" {
			util.RespondUnauthorized(c, "authentication required")
			c.Abort()
			return
		}

		sess, err := sessions.Validate(token)
		if err != nil {
			logger.Log.Debug("session validation failed", zap.Error(err))
			util.RespondUnauthorized(c, "invalid or expired session")
			c.Abort()
			return
		}

		c.Set(sessionKey, sess)
		c.Next()
	}
}

func sessionToken(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
		return cookie
	}
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// GetSession returns the session stored by RequireSession
func GetSession(c *gin.Context) *session.Session {
	if v, ok := c.Get(sessionKey); ok {
		if sess, ok := v.(*session.Session); ok {
			return sess
		}
	}
	return nil
}

// ClioToken returns the per-request case-management token, empty when
// the caller has not connected that provider.
func ClioToken(c *gin.Context) string {
	return c.GetHeader(ClioTokenHeader)
}
