package middleware

import (
	"strings"

	"github.com/communehq/commune/internal/auth"
	"github.com/communehq/commune/internal/logger"
	"github.com/communehq/commune/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// bearerToken reads the JWT from the Authorization header, or from the
// token query parameter for WebSocket upgrades which cannot set headers.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return c.Query("token")
}

// RequireAuth rejects requests without a valid token and stores the caller
// on the context.
func RequireAuth(authenticator auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			util.RespondUnauthorized(c, "authentication required")
			return
		}
		user, err := authenticator.ValidateToken(c.Request.Context(), token)
		if err != nil {
			logger.Log.Debug("Token rejected",
				logger.WithRequestID(c.GetString(util.RequestIDKey)),
				zap.Error(err),
			)
			util.RespondUnauthorized(c, "invalid or expired token")
			return
		}
		util.SetUser(c, user)
		applyUserLocale(c, user.Locale)
		c.Next()
	}
}

// OptionalAuth identifies the caller when a valid token is present and
// otherwise lets the request through anonymously.
func OptionalAuth(authenticator auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if user, err := authenticator.ValidateToken(c.Request.Context(), token); err == nil {
				util.SetUser(c, user)
				applyUserLocale(c, user.Locale)
			}
		}
		c.Next()
	}
}
