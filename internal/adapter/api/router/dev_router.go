package router

import (
	"github.com/labstack/echo/v4"

	"pasarchat/internal/adapter/api/handler"
)

// SetupDevRouter mounts helper endpoints in development only.
func SetupDevRouter(e *echo.Echo, environment string, devTokenHandler *handler.DevTokenHandler, devListingHandler *handler.DevListingHandler) {
	if environment != "development" {
		return
	}

	if devTokenHandler != nil {
		e.POST("/v1/dev/token", devTokenHandler.GenerateToken)
	}
	if devListingHandler != nil {
		e.POST("/v1/dev/listings", devListingHandler.PutListing)
	}
}
