package middleware

import (
	"net/http"
	"strings"

	"github.com/lawweapons/bevisdrive/utils"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware accepts bearer tokens issued by the identity provider and
// stores the owner id for handlers.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(c, http.StatusUnauthorized, "missing bearer token")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.Error(c, http.StatusUnauthorized, "malformed authorization header")
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(parts[1])
		if err != nil {
			utils.Error(c, http.StatusUnauthorized, "token is invalid or expired")
			c.Abort()
			return
		}

		c.Set("owner_id", claims.OwnerID())
		c.Set("email", claims.Email)
		c.Next()
	}
}
