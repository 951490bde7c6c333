package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/CHUDOAL/Valve-sait/internal/apperr"
	"github.com/CHUDOAL/Valve-sait/internal/models"
)

const currentUserKey = "current_user"

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.User, error)
}

// SessionToken reads the session cookie, falling back to a bearer token.
func SessionToken(c *gin.Context, cookieName string) string {
	if token, err := c.Cookie(cookieName); err == nil && token != "" {
		return token
	}
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}

func Auth(auth Authenticator, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionToken(c, cookieName)
		if token == "" {
			Abort(c, apperr.Unauthenticated("authentication required"))
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			Abort(c, err)
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the user stored by Auth.
func CurrentUser(c *gin.Context) (models.User, bool) {
	val, ok := c.Get(currentUserKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := val.(models.User)
	return user, ok
}
