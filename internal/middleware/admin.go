package middleware

import (
	"github.com/communehq/commune/internal/util"
	"github.com/gin-gonic/gin"
)

// RequireAdmin lets through only administrators. It must run after
// RequireAuth, whose user lookup already carries the admin flag.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := util.GetUserFromContext(c)
		if !ok {
			c.Abort()
			return
		}
		if !user.IsAdmin {
			util.RespondForbidden(c, "admin access required")
			return
		}
		c.Next()
	}
}
