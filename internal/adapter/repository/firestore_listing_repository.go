package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"pasarchat/internal/domain/entity"
	"pasarchat/internal/domain/repository"
	"pasarchat/pkg/errors"
)

// Listings live in the marketplace catalog's products collection.
const listingsCollection = "products"

type firestoreListingRepository struct {
	client *firestore.Client
}

// NewFirestoreListingRepository reads ownership from product documents.
func NewFirestoreListingRepository(client *firestore.Client) repository.ListingRepository {
	return &firestoreListingRepository{
		client: client,
	}
}

func (r *firestoreListingRepository) IsOwnerOfListing(ctx context.Context, userID, listingID string) (bool, error) {
	doc, err := r.client.Collection(listingsCollection).Doc(listingID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, errors.Internal("Failed to get listing", err)
	}

	var listing entity.Listing
	if err := doc.DataTo(&listing); err != nil {
		return false, errors.Internal("Failed to parse listing data", err)
	}
	return listing.SellerID != "" && listing.SellerID == userID, nil
}
