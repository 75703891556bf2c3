package usecase

import "time"

const (
	EventMessageNew  = "message:new"
	EventMessageRead = "message:read"
	EventTyping      = "typing"
)

// UserRoom is the personal room every connection of a user joins.
func UserRoom(userID string) string { return "user:" + userID }

// ChatRoom is joined explicitly by clients viewing a chat.
func ChatRoom(chatID string) string { return "chat:" + chatID }

type MessageReadEvent struct {
	ChatID      string    `json:"chat_id"`
	ReaderID    string    `json:"reader_id"`
	OtherUserID string    `json:"other_user_id,omitempty"`
	UpTo        time.Time `json:"up_to"`
	Count       int       `json:"count"`
}

type TypingEvent struct {
	ChatID string `json:"chat_id"`
	UserID string `json:"user_id"`
}
