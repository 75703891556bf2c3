package handler

import (
	"net/http"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	ws "pasarchat/internal/infrastructure/websocket"
	"pasarchat/pkg/logger"
)

type WebSocketHandler struct {
	gateway  *ws.Gateway
	upgrader gorillaws.Upgrader
}

// NewWebSocketHandler accepts upgrades from allowedOrigins, or from any
// origin when the list is empty.
func NewWebSocketHandler(gateway *ws.Gateway, allowedOrigins []string) *WebSocketHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	return &WebSocketHandler{
		gateway: gateway,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				_, ok := allowed[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

// HandleWebSocket upgrades the request and serves the connection until it
// closes. Authentication is optional here; room actions check it.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		logger.Warn("WebSocket upgrade failed: %v", err)
		return nil
	}

	h.gateway.Serve(c.Request().Context(), conn)
	return nil
}
