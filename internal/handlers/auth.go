package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/CHUDOAL/Valve-sait/internal/apperr"
	"github.com/CHUDOAL/Valve-sait/internal/middleware"
	"github.com/CHUDOAL/Valve-sait/internal/models"
	"github.com/CHUDOAL/Valve-sait/internal/service"
)

type registerRequest struct {
	Username    string  `json:"username"`
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	Role        string  `json:"role"`
	Bio         *string `json:"bio"`
	Description *string `json:"description"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Avatar    *string   `json:"avatar"`
	Bio       *string   `json:"bio"`
	CreatedAt time.Time `json:"createdAt"`
}

func newUserResponse(user models.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Username:  user.DisplayName,
		Email:     user.Email,
		Role:      string(user.Role),
		Avatar:    user.AvatarRef,
		Bio:       user.Bio,
		CreatedAt: user.CreatedAt,
	}
}

func (h HandlerSet) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Abort(c, apperr.Validation("invalid_body", "request body must be JSON"))
		return
	}

	bio := req.Bio
	if bio == nil {
		bio = req.Description
	}
	result, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		DisplayName: req.Username,
		Email:       req.Email,
		Password:    req.Password,
		Role:        models.UserRole(req.Role),
		Bio:         bio,
	}, clientInfo(c))
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	h.sendAuthResponse(c, http.StatusCreated, result)
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Abort(c, apperr.Validation("invalid_body", "request body must be JSON"))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	}, clientInfo(c))
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	h.sendAuthResponse(c, http.StatusOK, result)
}

func (h HandlerSet) Logout(c *gin.Context) {
	token := middleware.SessionToken(c, h.cfg.Security.CookieName)
	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		middleware.Abort(c, err)
		return
	}

	h.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h HandlerSet) Me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user))
}

func (h HandlerSet) sendAuthResponse(c *gin.Context, status int, result service.AuthResult) {
	h.setSessionCookie(c, result.Token, int(time.Until(result.ExpiresAt).Seconds()))
	c.JSON(status, gin.H{
		"user":      newUserResponse(result.User),
		"expiresAt": result.ExpiresAt.UTC(),
	})
}

func (h HandlerSet) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.Security.CookieName, value, maxAge, "/", "", h.cfg.Security.CookieSecure, true)
}

func clientInfo(c *gin.Context) service.ClientInfo {
	return service.ClientInfo{
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	}
}
