package handler

import (
	ws "pasarchat/internal/infrastructure/websocket"
	"pasarchat/internal/usecase"
)

// Handlers groups every HTTP handler the router mounts. DevToken and
// DevListing are nil outside development.
type Handlers struct {
	Chat       *ChatHandler
	WebSocket  *WebSocketHandler
	Health     *HealthHandler
	DevToken   *DevTokenHandler
	DevListing *DevListingHandler
}

type Deps struct {
	ChatUseCase    *usecase.ChatUseCase
	Gateway        *ws.Gateway
	AllowedOrigins []string
	StorageDriver  string
	Store          Pinger
	TokenIssuer    TokenIssuer
	ListingSeeder  ListingSeeder
}

// Setup builds the handlers. Optional development handlers are built only
// when their dependency is set.
func Setup(deps Deps) *Handlers {
	h := &Handlers{
		Chat:      NewChatHandler(deps.ChatUseCase),
		WebSocket: NewWebSocketHandler(deps.Gateway, deps.AllowedOrigins),
		Health:    NewHealthHandler(deps.StorageDriver, deps.Store),
	}
	if deps.TokenIssuer != nil {
		h.DevToken = NewDevTokenHandler(deps.TokenIssuer)
	}
	if deps.ListingSeeder != nil {
		h.DevListing = NewDevListingHandler(deps.ListingSeeder)
	}
	return h
}
