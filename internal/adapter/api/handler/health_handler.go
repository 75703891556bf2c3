package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	storageDriver string
	store         Pinger
}

// NewHealthHandler takes a nil store when nothing needs probing.
func NewHealthHandler(storageDriver string, store Pinger) *HealthHandler {
	return &HealthHandler{
		storageDriver: storageDriver,
		store:         store,
	}
}

// CheckHealth reports liveness without touching storage.
func (h *HealthHandler) CheckHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "Server is running",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// CheckStorageHealth pings the configured store.
func (h *HealthHandler) CheckStorageHealth(c echo.Context) error {
	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
		defer cancel()

		if err := h.store.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "Storage connection failed",
				"driver": h.storageDriver,
				"error":  err.Error(),
			})
		}
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "Storage connected successfully",
		"driver": h.storageDriver,
	})
}

// PingFunc adapts a plain function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }
