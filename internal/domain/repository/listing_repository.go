package repository

import "context"

// ListingRepository answers ownership questions against the listing catalog.
type ListingRepository interface {
	IsOwnerOfListing(ctx context.Context, userID, listingID string) (bool, error)
}
