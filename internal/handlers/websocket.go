package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/CHUDOAL/Valve-sait/internal/hub"
	"github.com/CHUDOAL/Valve-sait/internal/middleware"
)

// ChatSocket upgrades the request and registers the connection for chat
// fan-out. Identity is optional; when present it is only used for logs.
func (h HandlerSet) ChatSocket(c *gin.Context) {
	userID := h.socketIdentity(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	connID := uuid.NewString()
	logger := h.log.With().Str("conn_id", connID).Str("user_id", userID).Logger()
	client := hub.NewClient(connID, userID, conn, hub.ClientOptions{
		SendBuffer: h.cfg.Chat.SendBuffer,
		WriteWait:  h.cfg.Chat.WriteWait,
		PongWait:   h.cfg.Chat.PongWait,
	}, logger)

	h.hub.Register(client)
	logger.Debug().Int("connections", h.hub.Len()).Msg("websocket connected")

	go client.WritePump()
	client.ReadPump(h.hub)

	logger.Debug().Int("connections", h.hub.Len()).Msg("websocket disconnected")
}

func (h HandlerSet) socketIdentity(c *gin.Context) string {
	ctx := c.Request.Context()
	if ticket := c.Query("ticket"); ticket != "" {
		if user, err := h.auth.AuthenticateTicket(ctx, ticket); err == nil {
			return user.ID
		}
	}
	if token := middleware.SessionToken(c, h.cfg.Security.CookieName); token != "" {
		if user, err := h.auth.Authenticate(ctx, token); err == nil {
			return user.ID
		}
	}
	return ""
}

// originChecker accepts same-host origins and, when configured, the CORS
// allow list. An empty list accepts every origin.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		set[strings.TrimSpace(origin)] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := set[origin]; ok {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}
