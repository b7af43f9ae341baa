package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/costbook_backend/config"
	"github.com/mmdatafocus/costbook_backend/models"
	"github.com/mmdatafocus/costbook_backend/utils"
)

const bearerPrefix = "Bearer "

// AuthMiddleware resolves the bearer token into the request context.
// Requests without a token pass through anonymous; a bad or revoked
// token is rejected.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")
		if auth == "" {
			c.Next()
			return
		}
		if !strings.HasPrefix(auth, bearerPrefix) {
			abortUnauthorized(c)
			return
		}
		token := strings.TrimSpace(auth[len(bearerPrefix):])

		claim, err := utils.ParseClaims(token)
		if err != nil {
			abortUnauthorized(c)
			return
		}
		revoked, err := models.IsTokenRevoked(claim)
		if err != nil {
			config.LogError(config.GetLogger(), "AuthMiddleware", "IsTokenRevoked", "redis lookup", claim.UserId, err)
		}
		if revoked {
			abortUnauthorized(c)
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), token)
		ctx = utils.SetTokenIdInContext(ctx, claim.Id)
		ctx = utils.SetUserIdInContext(ctx, claim.UserId)
		ctx = utils.SetEmailInContext(ctx, claim.Email)
		ctx = utils.SetIsAdminInContext(ctx, claim.Admin)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireUser rejects anonymous requests.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := utils.GetUserIdFromContext(c.Request.Context()); !ok {
			abortUnauthorized(c)
			return
		}
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "kind": "authentication"})
}
