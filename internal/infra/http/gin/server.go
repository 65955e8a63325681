package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"hostal/internal/infra/config"
	"hostal/internal/infra/obs"
)

// ChatHTTP exposes the chat endpoints.
type ChatHTTP interface {
	ListForUser(c *gin.Context)
	GetOrCreate(c *gin.Context)
	Get(c *gin.Context)
	RefreshActivity(c *gin.Context)
	ListMessages(c *gin.Context)
	SendMessage(c *gin.Context)
	MarkMessageRead(c *gin.Context)
	ListUnread(c *gin.Context)
	DeleteMessage(c *gin.Context)
}

type Handlers struct {
	Chat ChatHTTP
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	// Route shape kept compatible with the mobile clients.
	if h.Chat != nil {
		chats := router.Group("/api/chats")
		chats.GET("/usuario/:usuarioId", h.Chat.ListForUser)
		chats.POST("", h.Chat.GetOrCreate)
		chats.GET("/:chatId", h.Chat.Get)
		chats.PUT("/:chatId/actividad", h.Chat.RefreshActivity)
		chats.GET("/:chatId/mensajes", h.Chat.ListMessages)
		chats.POST("/:chatId/mensajes", h.Chat.SendMessage)
		chats.PUT("/mensajes/:mensajeId/leido", h.Chat.MarkMessageRead)
		chats.GET("/mensajes/no-leidos/:chatId/usuario/:usuarioId", h.Chat.ListUnread)
		chats.DELETE("/mensajes/:mensajeId", h.Chat.DeleteMessage)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
