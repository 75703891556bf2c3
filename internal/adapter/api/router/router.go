package router

import (
	"github.com/labstack/echo/v4"

	"pasarchat/internal/adapter/api/handler"
	"pasarchat/internal/adapter/api/middleware"
)

// Setup mounts every route group on e.
func Setup(e *echo.Echo, handlers *handler.Handlers, authMiddleware *middleware.AuthMiddleware, environment string) {
	SetupHealthRouter(e, handlers.Health)
	SetupDevRouter(e, environment, handlers.DevToken, handlers.DevListing)
	SetupChatRouter(e, handlers.Chat, authMiddleware)
	SetupWebSocketRouter(e, handlers.WebSocket, authMiddleware)
}
