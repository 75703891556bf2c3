package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"pasarchat/internal/domain/entity"
	"pasarchat/internal/infrastructure/ratelimit"
	"pasarchat/internal/usecase"
	"pasarchat/pkg/errors"
	"pasarchat/pkg/logger"
)

// Inbound frame types.
const (
	TypeJoin   = "join"
	TypeLeave  = "leave"
	TypeTyping = "typing"
	TypePing   = "ping"
)

// Outbound frame types. message:new and message:read come from the usecase.
const (
	TypeJoined = "joined"
	TypeLeft   = "left"
	TypePong   = "pong"
	TypeError  = "error"
)

// Error frame codes.
const (
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeRateLimited     = "RATE_LIMITED"
	CodeUnavailable     = "UNAVAILABLE"
)

// InboundFrame is what clients send.
type InboundFrame struct {
	Type      string `json:"type"`
	ChatID    string `json:"chat_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// WSMessage is every frame the server writes.
type WSMessage struct {
	Type      string      `json:"type"`
	ChatID    string      `json:"chat_id,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ChatAuthorizer loads a chat only when userID takes part in it.
type ChatAuthorizer interface {
	GetChatForParticipant(ctx context.Context, chatID, userID string) (*entity.Chat, error)
}

// IdentityResolver returns the authenticated user id carried by ctx.
type IdentityResolver func(ctx context.Context) (string, bool)

// Gateway runs the per-connection protocol on top of a Manager.
type Gateway struct {
	manager  *Manager
	chats    ChatAuthorizer
	identity IdentityResolver
	limiter  *ratelimit.RateLimiter
}

// NewGateway serves connections on top of manager. Membership is checked
// through chats on every join, leave and typing frame; limiter throttles
// frames per connection and typing per user.
func NewGateway(manager *Manager, chats ChatAuthorizer, identity IdentityResolver, limiter *ratelimit.RateLimiter) *Gateway {
	return &Gateway{
		manager:  manager,
		chats:    chats,
		identity: identity,
		limiter:  limiter,
	}
}

// Serve blocks until the connection closes. ctx must carry the identity of
// the upgraded request.
func (g *Gateway) Serve(ctx context.Context, conn *websocket.Conn) {
	uid, _ := g.identity(ctx)
	client := newClient(ctx, conn, uid)
	if uid != "" {
		g.manager.Join(usecase.UserRoom(uid), client)
	}
	logger.Debug("WebSocket client %s connected (user=%q)", client.ID, uid)

	go client.WritePump()
	client.ReadPump(g.handleFrame)

	g.manager.RemoveClient(client)
	client.close()
	logger.Debug("WebSocket client %s disconnected", client.ID)
}

func (g *Gateway) handleFrame(client *Client, raw []byte) {
	var frame InboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		g.sendError(client, frame, CodeInvalidArgument, "Invalid frame")
		return
	}

	if ok, _ := g.limiter.Allow(client.ID, ratelimit.ActionWSFrame); !ok {
		g.sendError(client, frame, CodeRateLimited, "Too many frames")
		return
	}

	switch frame.Type {
	case TypePing:
		g.send(client, &WSMessage{Type: TypePong, RequestID: frame.RequestID})
	case TypeJoin:
		g.handleJoin(client, frame)
	case TypeLeave:
		g.handleLeave(client, frame)
	case TypeTyping:
		g.handleTyping(client, frame)
	default:
		g.sendError(client, frame, CodeInvalidArgument, "Unknown frame type: "+frame.Type)
	}
}

func (g *Gateway) handleJoin(client *Client, frame InboundFrame) {
	if _, ok := g.authorize(client, frame); !ok {
		return
	}
	g.manager.Join(usecase.ChatRoom(frame.ChatID), client)
	g.send(client, &WSMessage{Type: TypeJoined, ChatID: frame.ChatID, RequestID: frame.RequestID})
}

func (g *Gateway) handleLeave(client *Client, frame InboundFrame) {
	if _, ok := g.authorize(client, frame); !ok {
		return
	}
	g.manager.Leave(usecase.ChatRoom(frame.ChatID), client)
	g.send(client, &WSMessage{Type: TypeLeft, ChatID: frame.ChatID, RequestID: frame.RequestID})
}

// handleTyping broadcasts to the chat room except the originating connection.
func (g *Gateway) handleTyping(client *Client, frame InboundFrame) {
	uid, ok := g.authorize(client, frame)
	if !ok {
		return
	}
	if allowed, _ := g.limiter.Allow(uid, ratelimit.ActionTyping); !allowed {
		g.sendError(client, frame, CodeRateLimited, "Too many typing events")
		return
	}

	data, err := json.Marshal(&WSMessage{
		Type:      usecase.EventTyping,
		ChatID:    frame.ChatID,
		Data:      usecase.TypingEvent{ChatID: frame.ChatID, UserID: uid},
		Timestamp: g.timestamp(),
	})
	if err != nil {
		logger.Error("Error marshaling typing event: %v", err)
		return
	}
	g.manager.broadcast(usecase.ChatRoom(frame.ChatID), data, client)
}

// authorize re-resolves the caller and checks chat membership. Membership is
// never cached on the connection. On failure an error frame has been sent.
func (g *Gateway) authorize(client *Client, frame InboundFrame) (string, bool) {
	uid, ok := g.identity(client.ctx)
	if !ok {
		g.sendError(client, frame, CodeUnauthorized, "Authentication required")
		return "", false
	}
	if frame.ChatID == "" {
		g.sendError(client, frame, CodeInvalidArgument, "chat_id is required")
		return "", false
	}

	if _, err := g.chats.GetChatForParticipant(client.ctx, frame.ChatID, uid); err != nil {
		code, message := frameError(err)
		if code == CodeUnavailable {
			logger.Error("Authorizing %s on chat %s failed: %v", uid, frame.ChatID, err)
		}
		g.sendError(client, frame, code, message)
		return "", false
	}
	return uid, true
}

func frameError(err error) (string, string) {
	var appErr *errors.AppError
	if !errors.As(err, &appErr) {
		return CodeUnavailable, "Service unavailable"
	}

	switch appErr.Code {
	case errors.CodeNotFound:
		return CodeNotFound, appErr.Message
	case errors.CodeForbidden:
		return CodeForbidden, appErr.Message
	case errors.CodeValidation, errors.CodeBadRequest:
		return CodeInvalidArgument, appErr.Message
	case errors.CodeUnauthorized:
		return CodeUnauthorized, appErr.Message
	default:
		return CodeUnavailable, "Service unavailable"
	}
}

func (g *Gateway) sendError(client *Client, frame InboundFrame, code, message string) {
	g.send(client, &WSMessage{
		Type:      TypeError,
		ChatID:    frame.ChatID,
		RequestID: frame.RequestID,
		Data:      ErrorData{Code: code, Message: message},
	})
}

func (g *Gateway) send(client *Client, msg *WSMessage) {
	if msg.Timestamp == "" {
		msg.Timestamp = g.timestamp()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Error("Error marshaling %s frame: %v", msg.Type, err)
		return
	}
	if !client.enqueue(data) {
		logger.Warn("Dropping %s frame for client %s", msg.Type, client.ID)
	}
}

func (g *Gateway) timestamp() string {
	return g.manager.now().UTC().Format(time.RFC3339Nano)
}
