package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"chat-app-server/internal/config"
	"chat-app-server/internal/handlers"
	"chat-app-server/internal/media"
	"chat-app-server/internal/middleware"
	"chat-app-server/internal/realtime"
	"chat-app-server/internal/service"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, hub *realtime.Hub) {
	// Initialize handlers
	resolver := media.NewStoreResolver(db, cfg.AppURL)
	messageService := service.NewMessageService(db, resolver, hub)

	authHandler := handlers.NewAuthHandler(db, cfg)
	messageHandler := handlers.NewMessageHandler(messageService)
	attachmentHandler := handlers.NewAttachmentHandler(db)
	wsHandler := handlers.NewWSHandler(hub, cfg)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		// Messaging routes
		messageRoutes := private.Group("/messages")
		{
			// Directory of users to start a conversation with. Registered
			// before /:id so "peers" is not swallowed by the param route.
			messageRoutes.GET("/peers", messageHandler.GetPeers)

			// Full conversation history with the given user
			messageRoutes.GET("/:id", messageHandler.GetMessages)

			// Send a message to the given user
			messageRoutes.POST("/send/:id", messageHandler.SendMessage)

			// Edit / soft-delete a previously sent message
			messageRoutes.PATCH("/edit/:messageId", messageHandler.EditMessage)
			messageRoutes.DELETE("/delete/:messageId", messageHandler.DeleteMessage)
		}

		// Resolved media is served back from here
		private.GET("/attachments/:id", attachmentHandler.GetAttachment)
	}

	// Realtime channel; authenticated via token query parameter in the handler
	router.GET("/ws", wsHandler.Connect)

	// Operational endpoints
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
