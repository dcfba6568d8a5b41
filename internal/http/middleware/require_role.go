package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireRole пропускает запрос только для пользователей с указанной ролью.
// Применяется после AuthMiddleware.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		current, ok := c.Get(ContextRoleKey)
		if !ok || current.(string) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "недостаточно прав"})
			return
		}
		c.Next()
	}
}
