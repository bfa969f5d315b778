package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cozee/docchat/internal/middleware"
)

type RouterDeps struct {
	Auth            *AuthHandler
	Resources       *ResourceHandler
	Chats           *ChatHandler
	Shares          *ShareHandler
	JWTSecret       []byte
	RateLimitWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	limited := api.Group("")
	limited.Use(middleware.RateLimit(deps.RateLimitWindow))
	limited.POST("/auth/register", deps.Auth.Register)
	limited.POST("/auth/login", deps.Auth.Login)
	limited.GET("/public/shares/:token", deps.Shares.Resolve)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))

	authGroup.POST("/resources/upload", deps.Resources.Upload)
	authGroup.POST("/resources/url", deps.Resources.AddURL)
	authGroup.POST("/resources/batch", deps.Resources.CreateBatch)
	authGroup.GET("/resources", deps.Resources.List)
	authGroup.GET("/resources/:id", deps.Resources.Get)
	authGroup.GET("/resources/:id/status", deps.Resources.Status)
	authGroup.DELETE("/resources/:id", deps.Resources.Delete)

	authGroup.POST("/chats", deps.Chats.Create)
	authGroup.GET("/chats", deps.Chats.List)
	authGroup.GET("/chats/:id", deps.Chats.Get)
	authGroup.PUT("/chats/:id", deps.Chats.Rename)
	authGroup.DELETE("/chats/:id", deps.Chats.Delete)
	authGroup.POST("/chats/:id/messages", deps.Chats.SendMessage)
	authGroup.POST("/chats/:id/messages/stream", deps.Chats.SendMessageStream)

	authGroup.POST("/shares", deps.Shares.Create)
	authGroup.GET("/shares", deps.Shares.List)
	authGroup.DELETE("/shares/:id", deps.Shares.Delete)
}
