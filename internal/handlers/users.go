package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CHUDOAL/Valve-sait/internal/apperr"
	"github.com/CHUDOAL/Valve-sait/internal/middleware"
	"github.com/CHUDOAL/Valve-sait/internal/service"
)

type updateProfileRequest struct {
	Username    *string `json:"username"`
	Bio         *string `json:"bio"`
	Description *string `json:"description"`
}

func (h HandlerSet) UpdateProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Abort(c, apperr.Validation("invalid_body", "request body must be JSON"))
		return
	}
	bio := req.Bio
	if bio == nil {
		bio = req.Description
	}

	updated, err := h.profiles.Update(c.Request.Context(), user, service.ProfileUpdate{
		DisplayName: req.Username,
		Bio:         bio,
	})
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, newUserResponse(updated))
}

func (h HandlerSet) GetUser(c *gin.Context) {
	user, err := h.profiles.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user))
}

func (h HandlerSet) UploadAvatar(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	upload, closeFile, err := h.formUpload(c, "file")
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	if upload == nil {
		middleware.Abort(c, apperr.Validation("missing_file", "file is required"))
		return
	}
	defer closeFile()

	ref, err := h.profiles.UploadAvatar(c.Request.Context(), user, *upload)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"avatar": ref})
}
