package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/CHUDOAL/Valve-sait/internal/apperr"
	"github.com/CHUDOAL/Valve-sait/internal/models"
)

func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	roleSet := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		roleSet[role] = struct{}{}
	}

	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			Abort(c, apperr.Unauthenticated("authentication required"))
			return
		}

		if _, ok := roleSet[user.Role]; !ok {
			Abort(c, apperr.Forbidden("insufficient permissions"))
			return
		}

		c.Next()
	}
}
