package util

import (
	"net/http"

	"github.com/communehq/commune/internal/models"
	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
)

// Context keys shared by middleware and handlers.
const (
	UserIDKey     = "user_id"
	UserKey       = "user"
	RequestIDKey  = "request_id"
	LocaleKey     = "locale"
	TranslatorKey = "translator"
)

// SetUser stores the authenticated user on the context.
func SetUser(c *gin.Context, user *models.User) {
	c.Set(UserKey, user)
	c.Set(UserIDKey, user.ID)
}

// GetUserFromContext extracts the authenticated user from the Gin context.
// If the user is not authenticated, it automatically responds with 401 Unauthorized.
func GetUserFromContext(c *gin.Context) (*models.User, bool) {
	user, exists := c.Get(UserKey)
	if !exists {
		RespondUnauthorized(c, "authentication required")
		return nil, false
	}
	userPtr, ok := user.(*models.User)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid user data in context"})
		return nil, false
	}
	return userPtr, true
}

// GetUserIDFromContext extracts the user ID from the Gin context.
// If the user is not authenticated, it automatically responds with 401 Unauthorized.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		RespondUnauthorized(c, "authentication required")
		return "", false
	}
	userIDStr, ok := userID.(string)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid user ID in context"})
		return "", false
	}
	return userIDStr, true
}

// OptionalUserID returns the user ID when the request is authenticated.
func OptionalUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// GetLocale returns the request language chosen by the locale middleware.
func GetLocale(c *gin.Context) language.Tag {
	if v, ok := c.Get(LocaleKey); ok {
		if tag, ok := v.(language.Tag); ok {
			return tag
		}
	}
	return language.English
}
