package handler

import (
	"strings"

	"github.com/labstack/echo/v4"

	"pasarchat/pkg/response"
)

// ListingSeeder registers listing ownership in stores that have no catalog
// of their own.
type ListingSeeder interface {
	PutListing(listingID, sellerID string)
}

type DevListingHandler struct {
	seeder ListingSeeder
}

// NewDevListingHandler serves POST /v1/dev/listings.
func NewDevListingHandler(seeder ListingSeeder) *DevListingHandler {
	return &DevListingHandler{
		seeder: seeder,
	}
}

type putListingRequest struct {
	ID       string `json:"id" validate:"required,notblank,max=128"`
	SellerID string `json:"seller_id" validate:"required,notblank,max=128"`
}

type putListingResponse struct {
	ID       string `json:"id"`
	SellerID string `json:"seller_id"`
}

// PutListing makes seller_id the owner of listing id, replacing any earlier
// owner, so listing chats can be opened against the in-memory store.
func (h *DevListingHandler) PutListing(c echo.Context) error {
	var req putListingRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	id, sellerID := strings.TrimSpace(req.ID), strings.TrimSpace(req.SellerID)
	h.seeder.PutListing(id, sellerID)

	return response.Created(c, putListingResponse{
		ID:       id,
		SellerID: sellerID,
	})
}
