package http

import (
	"github.com/gin-gonic/gin"

	"botgpt/internal/bootstrap"
	"botgpt/internal/transport/http/handler"
	"botgpt/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	authHandler := handler.NewAuthHandler(app.AuthService)
	conversationHandler := handler.NewConversationHandler(app.ChatService)
	documentHandler := handler.NewDocumentHandler(app.DocumentService)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.JWTAuth(app.Config.Auth.JWTSecret), authHandler.Me)

	authed := v1.Group("")
	authed.Use(middleware.JWTAuth(app.Config.Auth.JWTSecret))

	authed.POST("/conversations", conversationHandler.Start)
	authed.GET("/conversations", conversationHandler.List)
	authed.GET("/conversations/:id", conversationHandler.Get)
	authed.POST("/conversations/:id/messages", conversationHandler.Continue)
	authed.DELETE("/conversations/:id", conversationHandler.Delete)
	authed.POST("/conversations/:id/documents", documentHandler.Link)

	authed.POST("/documents/upload", documentHandler.Upload)
	authed.POST("/documents/url", documentHandler.IngestURL)
	authed.GET("/documents", documentHandler.List)
	authed.DELETE("/documents/:id", documentHandler.Delete)

	return router
}
