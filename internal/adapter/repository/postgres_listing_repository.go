package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"pasarchat/internal/domain/repository"
	"pasarchat/pkg/errors"
)

type postgresListingRepository struct {
	db *sqlx.DB
}

// NewPostgresListingRepository reads ownership from the listings table.
func NewPostgresListingRepository(db *sqlx.DB) repository.ListingRepository {
	return &postgresListingRepository{
		db: db,
	}
}

func (r *postgresListingRepository) IsOwnerOfListing(ctx context.Context, userID, listingID string) (bool, error) {
	const op = "repository.postgres.IsOwnerOfListing"

	var sellerID string
	err := r.db.GetContext(ctx, &sellerID, `SELECT seller_id FROM listings WHERE id = $1`, listingID)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, errors.Internal("Failed to get listing", fmt.Errorf("%s: %w", op, err))
	}
	return sellerID == userID, nil
}
