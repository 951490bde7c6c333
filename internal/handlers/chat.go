package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CHUDOAL/Valve-sait/internal/chat"
	"github.com/CHUDOAL/Valve-sait/internal/middleware"
)

func (h HandlerSet) PostMessage(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	upload, closeFile, err := h.formUpload(c, "file")
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	if upload != nil {
		defer closeFile()
	}

	view, err := h.chat.Submit(c.Request.Context(), user, chat.Submission{
		Text:       c.PostForm("text"),
		Attachment: upload,
	})
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h HandlerSet) ListMessages(c *gin.Context) {
	views, err := h.chat.History(c.Request.Context())
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h HandlerSet) AIChat(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	result, err := h.chat.AITurn(c.Request.Context(), user, c.PostForm("message"))
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// StreamTicket hands out a short-lived token for clients that cannot send
// the session cookie on the websocket upgrade.
func (h HandlerSet) StreamTicket(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	ticket, expiresAt, err := h.auth.IssueStreamTicket(user)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ticket": ticket, "expiresAt": expiresAt.UTC()})
}
