package entity

import "time"

type ParticipantRole string

const (
	RoleBuyer  ParticipantRole = "buyer"
	RoleSeller ParticipantRole = "seller"
)

// Chat is a conversation between exactly one buyer and one seller,
// optionally scoped to a listing. (BuyerID, SellerID, ListingID) is unique.
type Chat struct {
	ID             string     `json:"id" firestore:"id" db:"id"`
	BuyerID        string     `json:"buyer_id" firestore:"buyerId" db:"buyer_id"`
	SellerID       string     `json:"seller_id" firestore:"sellerId" db:"seller_id"`
	ListingID      *string    `json:"listing_id,omitempty" firestore:"listingId" db:"listing_id"`
	CreatedAt      time.Time  `json:"created_at" firestore:"createdAt" db:"created_at"`
	LastMessageAt  *time.Time `json:"last_message_at,omitempty" firestore:"lastMessageAt" db:"last_message_at"`
	BuyerArchived  bool       `json:"buyer_archived" firestore:"buyerArchived" db:"buyer_archived"`
	SellerArchived bool       `json:"seller_archived" firestore:"sellerArchived" db:"seller_archived"`
}

// IsParticipant reports whether userID is the buyer or the seller.
func (c *Chat) IsParticipant(userID string) bool {
	return userID != "" && (c.BuyerID == userID || c.SellerID == userID)
}

// RoleOf returns the role userID plays in the chat, or false if it plays none.
func (c *Chat) RoleOf(userID string) (ParticipantRole, bool) {
	switch {
	case userID == "":
		return "", false
	case c.BuyerID == userID:
		return RoleBuyer, true
	case c.SellerID == userID:
		return RoleSeller, true
	}
	return "", false
}

// OtherParticipant returns the counterpart of userID. Callers must check
// IsParticipant first.
func (c *Chat) OtherParticipant(userID string) string {
	if c.BuyerID == userID {
		return c.SellerID
	}
	return c.BuyerID
}

// ActivityAt is the inbox ordering key.
func (c *Chat) ActivityAt() time.Time {
	if c.LastMessageAt != nil {
		return *c.LastMessageAt
	}
	return c.CreatedAt
}

// ArchivedFor reports whether the participant in role has archived the chat.
func (c *Chat) ArchivedFor(role ParticipantRole) bool {
	if role == RoleBuyer {
		return c.BuyerArchived
	}
	return c.SellerArchived
}

// SetArchivedFor changes only the flag belonging to role.
func (c *Chat) SetArchivedFor(role ParticipantRole, archived bool) {
	if role == RoleBuyer {
		c.BuyerArchived = archived
	} else {
		c.SellerArchived = archived
	}
}
