package router

import (
	"github.com/labstack/echo/v4"

	"pasarchat/internal/adapter/api/handler"
)

// SetupHealthRouter mounts the unauthenticated health checks.
func SetupHealthRouter(e *echo.Echo, healthHandler *handler.HealthHandler) {
	e.GET("/health", healthHandler.CheckHealth)
	e.GET("/storage-health", healthHandler.CheckStorageHealth)
}
