package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/costbook_backend/config"
	"github.com/mmdatafocus/costbook_backend/utils"
)

// RequireAdmin lets through tokens issued with the admin claim and users
// whose email is on the ADMIN_EMAILS allow-list.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if _, ok := utils.GetUserIdFromContext(ctx); !ok {
			abortUnauthorized(c)
			return
		}
		isAdmin, _ := utils.GetIsAdminFromContext(ctx)
		email, _ := utils.GetEmailFromContext(ctx)
		if !isAdmin && !config.IsAdminEmail(email) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "kind": "permission"})
			return
		}
		c.Next()
	}
}
