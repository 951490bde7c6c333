package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/CHUDOAL/Valve-sait/internal/chat"
	"github.com/CHUDOAL/Valve-sait/internal/config"
	"github.com/CHUDOAL/Valve-sait/internal/hub"
	"github.com/CHUDOAL/Valve-sait/internal/middleware"
	"github.com/CHUDOAL/Valve-sait/internal/models"
	"github.com/CHUDOAL/Valve-sait/internal/service"
	"github.com/CHUDOAL/Valve-sait/internal/storage"
)

// HealthCheck is one dependency probed by /healthz.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

type Deps struct {
	Config   *config.AppConfig
	Auth     *service.AuthService
	Profiles *service.ProfileService
	Tasks    *service.TaskService
	Chat     *chat.Service
	Hub      *hub.Hub
	Media    storage.Backend
	Checks   []HealthCheck
}

type HandlerSet struct {
	log      zerolog.Logger
	cfg      *config.AppConfig
	auth     *service.AuthService
	profiles *service.ProfileService
	tasks    *service.TaskService
	chat     *chat.Service
	hub      *hub.Hub
	media    storage.Backend
	checks   []HealthCheck
	upgrader websocket.Upgrader
}

func NewHandlerSet(log zerolog.Logger, deps Deps) HandlerSet {
	return HandlerSet{
		log:      log,
		cfg:      deps.Config,
		auth:     deps.Auth,
		profiles: deps.Profiles,
		tasks:    deps.Tasks,
		chat:     deps.Chat,
		hub:      deps.Hub,
		media:    deps.Media,
		checks:   deps.Checks,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(deps.Config.AllowCORSOrigins),
		},
	}
}

func (h HandlerSet) Mount(router *gin.Engine) {
	router.GET("/healthz", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET(strings.TrimSuffix(h.cfg.Storage.PublicPrefix, "/")+"/*key", h.ServeMedia)
	router.GET("/ws/chat", h.ChatSocket)

	api := router.Group("/api")
	api.POST("/register", h.Register)
	api.POST("/login", h.Login)
	api.POST("/logout", h.Logout)

	protected := api.Group("")
	protected.Use(middleware.Auth(h.auth, h.cfg.Security.CookieName))
	{
		protected.GET("/user", h.Me)
		protected.PATCH("/user", h.UpdateProfile)
		protected.GET("/user/:id", h.GetUser)
		protected.POST("/upload-avatar", h.UploadAvatar)

		protected.GET("/users", middleware.RequireRoles(models.UserRoleManager), h.ListEmployees)

		protected.POST("/tasks", middleware.RequireRoles(models.UserRoleManager), h.CreateTask)
		protected.GET("/tasks", h.ListTasks)
		protected.PATCH("/tasks/:id", h.UpdateTask)

		chatGroup := protected.Group("/chat")
		chatGroup.POST("/message", h.PostMessage)
		chatGroup.GET("/messages", h.ListMessages)
		chatGroup.POST("/ai", h.AIChat)
		chatGroup.GET("/ticket", h.StreamTicket)
	}
}

func currentUser(c *gin.Context) (models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication_required", "message": "authentication required"})
	}
	return user, ok
}
