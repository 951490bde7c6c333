package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CHUDOAL/Valve-sait/internal/middleware"
)

// ListEmployees is the manager view of every active employee, used to pick
// task assignees.
func (h HandlerSet) ListEmployees(c *gin.Context) {
	users, err := h.profiles.ListEmployees(c.Request.Context())
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	items := make([]gin.H, 0, len(users))
	for _, user := range users {
		items = append(items, gin.H{
			"id":       user.ID,
			"username": user.DisplayName,
			"email":    user.Email,
			"avatar":   user.AvatarRef,
			"bio":      user.Bio,
		})
	}

	c.JSON(http.StatusOK, items)
}
