package router

import (
	"github.com/labstack/echo/v4"

	"pasarchat/internal/adapter/api/handler"
	"pasarchat/internal/adapter/api/middleware"
)

// SetupChatRouter mounts the chat REST API. Every route requires a user.
func SetupChatRouter(e *echo.Echo, chatHandler *handler.ChatHandler, authMiddleware *middleware.AuthMiddleware) {
	chatGroup := e.Group("/v1/chats")
	chatGroup.Use(authMiddleware.Authenticate)

	chatGroup.POST("", chatHandler.OpenChat)                 // POST /v1/chats - open or get a chat
	chatGroup.GET("", chatHandler.GetInbox)                  // GET /v1/chats - inbox
	chatGroup.GET("/:id", chatHandler.GetChat)               // GET /v1/chats/:id
	chatGroup.PUT("/:id/read", chatHandler.MarkRead)         // PUT /v1/chats/:id/read
	chatGroup.PUT("/:id/archive", chatHandler.SetArchived)   // PUT /v1/chats/:id/archive
	chatGroup.GET("/:id/messages", chatHandler.GetMessages)  // GET /v1/chats/:id/messages
	chatGroup.POST("/:id/messages", chatHandler.SendMessage) // POST /v1/chats/:id/messages
}
