package http

import (
	"fmt"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/trvo-dev/quizhub-server/internal/auth"
	"github.com/trvo-dev/quizhub-server/internal/chat"
	"github.com/trvo-dev/quizhub-server/internal/config"
	"github.com/trvo-dev/quizhub-server/internal/store"
)

// NewServer builds the HTTP server with REST and WebSocket routes.
func NewServer(hub *chat.Hub, authService *auth.Service, st store.Store, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	apiHandlers := NewAPIHandlers(authService, logger)
	chatHandlers := NewChatHandlers(st, hub, logger)
	discussionHandlers := NewDiscussionHandlers(st, hub, logger)
	wsHandler := NewWSHandler(hub, authService, st, cfg.WriteTimeout, logger)

	router.POST("/api/auth/register", apiHandlers.Register)
	router.POST("/api/auth/login", apiHandlers.Login)

	api := router.Group("/api", AuthMiddleware(authService, logger))
	{
		api.GET("/chat/messages", chatHandlers.ListMessages)
		api.GET("/chat/online", chatHandlers.OnlineUsers)
		api.GET("/chat/private/:user_id", chatHandlers.ListPrivateMessages)
		api.DELETE("/chat/private/:user_id", chatHandlers.DeletePrivateMessages)

		api.DELETE("/chat/messages/:message_id", RequireAdmin(logger), chatHandlers.DeleteMessage)
		api.DELETE("/chat/messages", RequireAdmin(logger), chatHandlers.DeleteAllMessages)

		api.POST("/discussions", discussionHandlers.Add)
		api.GET("/discussions", discussionHandlers.List)
		api.DELETE("/discussions/:quiz_id", discussionHandlers.Remove)
		api.GET("/discussions/:quiz_id/messages", discussionHandlers.ListMessages)
		api.GET("/discussions/:quiz_id/online", discussionHandlers.OnlineUsers)
	}

	// Socket endpoints authenticate via a token query parameter because
	// browser WebSocket APIs cannot set custom headers.
	router.GET("/ws/chat", wsHandler.Community)
	router.GET("/ws/discussion/:quiz_id", wsHandler.Discussion)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	fmt.Fprint(c.Writer, "ok")
}
