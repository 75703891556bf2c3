package entity

import "time"

// MaxMessageLength is counted in characters after trimming.
const MaxMessageLength = 2000

// Message is one chat line. ListingID is copied from the chat at send time.
type Message struct {
	ID         string    `json:"id" firestore:"id" db:"id"`
	ChatID     string    `json:"chat_id" firestore:"chatId" db:"chat_id"`
	SenderID   string    `json:"sender_id" firestore:"senderId" db:"sender_id"`
	ReceiverID string    `json:"receiver_id" firestore:"receiverId" db:"receiver_id"`
	ListingID  *string   `json:"listing_id,omitempty" firestore:"listingId,omitempty" db:"listing_id"`
	Content    string    `json:"content" firestore:"content" db:"content"`
	CreatedAt  time.Time `json:"created_at" firestore:"createdAt" db:"created_at"`
	IsRead     bool      `json:"is_read" firestore:"isRead" db:"is_read"`
}
