package repository

import (
	"context"
	"time"

	"pasarchat/internal/domain/entity"
)

// ChatRepository returns errors.NotFound for missing chats and
// errors.Conflict when Add would duplicate a (buyer, seller, listing) triple.
type ChatRepository interface {
	FindByParticipants(ctx context.Context, buyerID, sellerID string, listingID *string) (*entity.Chat, error)
	GetByID(ctx context.Context, id string) (*entity.Chat, error)
	Add(ctx context.Context, chat *entity.Chat) error
	// GetInbox orders by LastMessageAt, falling back to CreatedAt, newest first.
	GetInbox(ctx context.Context, userID string, take, skip int) ([]*entity.Chat, error)
	SetArchived(ctx context.Context, chatID string, role entity.ParticipantRole, archived bool) error
}

type MessageRepository interface {
	// CountSentSince counts messages by senderID with CreatedAt >= since.
	CountSentSince(ctx context.Context, senderID string, since time.Time) (int, error)
	// OldestSentSince returns the earliest CreatedAt >= since among messages
	// by senderID. ok is false when there are none.
	OldestSentSince(ctx context.Context, senderID string, since time.Time) (oldest time.Time, ok bool, err error)
	// GetMessages returns newest first, strictly older than before when set.
	GetMessages(ctx context.Context, chatID string, take int, before *time.Time) ([]*entity.Message, error)
	// MarkReadUpTo flags unread messages addressed to readerID with
	// CreatedAt <= upTo in one bulk operation and returns how many changed.
	MarkReadUpTo(ctx context.Context, chatID, readerID string, upTo time.Time) (int, error)
}

// Tx is the write set of a UnitOfWork. Nothing is visible until commit.
type Tx interface {
	AddMessage(ctx context.Context, message *entity.Message) error
	// UpdateLastMessageTimestamp advances the chat's lastMessageAt to at, never
	// backwards. It reports false when the chat does not exist.
	UpdateLastMessageTimestamp(ctx context.Context, chatID string, at time.Time) (bool, error)
}

// UnitOfWork commits everything fn staged when fn returns nil, and
// discards it otherwise.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
