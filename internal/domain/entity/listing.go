package entity

import "time"

// Listing is the slice of a catalog product the chat service needs: who sells it.
type Listing struct {
	ID        string     `json:"id" firestore:"id" db:"id"`
	SellerID  string     `json:"seller_id" firestore:"sellerId" db:"seller_id"`
	Title     string     `json:"title" firestore:"title" db:"title"`
	CreatedAt time.Time  `json:"created_at" firestore:"createdAt" db:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" firestore:"deletedAt,omitempty" db:"deleted_at"`
}
