package handler

import (
	"time"

	"github.com/labstack/echo/v4"

	"pasarchat/internal/usecase"
	"pasarchat/pkg/response"
	"pasarchat/pkg/utils"
)

type ChatHandler struct {
	chatUseCase *usecase.ChatUseCase
}

// NewChatHandler serves the /v1/chats routes. Every route expects the uid
// set by the auth middleware.
func NewChatHandler(chatUseCase *usecase.ChatUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
	}
}

type openChatRequest struct {
	OtherUserID string  `json:"other_user_id" validate:"required,notblank"`
	ListingID   *string `json:"listing_id"`
}

type sendMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

type markReadRequest struct {
	UpTo *time.Time `json:"up_to"`
}

type archiveRequest struct {
	Archived bool `json:"archived"`
}

type markReadResponse struct {
	ChatID string    `json:"chat_id"`
	UpTo   time.Time `json:"up_to"`
	Count  int       `json:"count"`
}

// OpenChat returns the chat with another user, creating it on first contact.
func (h *ChatHandler) OpenChat(c echo.Context) error {
	var req openChatRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	chat, err := h.chatUseCase.OpenOrGetChat(c.Request().Context(), userID, req.OtherUserID, req.ListingID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, chat)
}

// GetInbox lists the caller's chats, most recent activity first.
func (h *ChatHandler) GetInbox(c echo.Context) error {
	userID := c.Get("uid").(string)
	page := utils.GetPaginationParams(c, usecase.DefaultInboxPageSize)

	chats, err := h.chatUseCase.GetInbox(c.Request().Context(), userID, page.Limit, page.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paged(c, chats, page.Limit, page.Offset)
}

// GetChat returns one chat the caller takes part in.
func (h *ChatHandler) GetChat(c echo.Context) error {
	userID := c.Get("uid").(string)

	chat, err := h.chatUseCase.GetChatForParticipant(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, chat)
}

// GetMessages pages backwards through history. next_before is set while a
// full page came back.
func (h *ChatHandler) GetMessages(c echo.Context) error {
	ctx := c.Request().Context()
	userID := c.Get("uid").(string)
	chatID := c.Param("id")

	before, err := utils.ParseTimeParam(c, "before")
	if err != nil {
		return response.Error(c, err)
	}
	page := utils.GetPaginationParams(c, usecase.DefaultMessagePageSize)

	if _, err := h.chatUseCase.GetChatForParticipant(ctx, chatID, userID); err != nil {
		return response.Error(c, err)
	}

	messages, err := h.chatUseCase.GetMessages(ctx, chatID, page.Limit, before)
	if err != nil {
		return response.Error(c, err)
	}

	var nextBefore *time.Time
	if len(messages) == page.Limit {
		last := messages[len(messages)-1].CreatedAt
		nextBefore = &last
	}

	return response.Cursor(c, messages, page.Limit, nextBefore)
}

// SendMessage stores a message from the caller and answers 201 with it.
// Rate limited senders get 429 with Retry-After.
func (h *ChatHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	message, err := h.chatUseCase.SendMessage(c.Request().Context(), c.Param("id"), userID, req.Content)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

// MarkRead marks messages addressed to the caller as read, up to now when
// up_to is omitted.
func (h *ChatHandler) MarkRead(c echo.Context) error {
	var req markReadRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return response.Error(c, err)
		}
	}

	ctx := c.Request().Context()
	userID := c.Get("uid").(string)
	chatID := c.Param("id")

	if _, err := h.chatUseCase.GetChatForParticipant(ctx, chatID, userID); err != nil {
		return response.Error(c, err)
	}

	upTo := time.Now().UTC()
	if req.UpTo != nil {
		upTo = req.UpTo.UTC()
	}

	count, err := h.chatUseCase.MarkRead(ctx, chatID, userID, upTo)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, markReadResponse{ChatID: chatID, UpTo: upTo, Count: count})
}

// SetArchived hides or restores the chat in the caller's own inbox.
func (h *ChatHandler) SetArchived(c echo.Context) error {
	var req archiveRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	chat, err := h.chatUseCase.SetArchived(c.Request().Context(), c.Param("id"), userID, req.Archived)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, chat)
}
