package model

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// ListingStatus is the review and sale state of a listing.
type ListingStatus string

// Listing statuses.
const (
	ListingDraft         ListingStatus = "draft"
	ListingPendingReview ListingStatus = "pending_review"
	ListingPublished     ListingStatus = "published"
	ListingRejected      ListingStatus = "rejected"
	ListingUnderOffer    ListingStatus = "under_offer"
	ListingSold          ListingStatus = "sold"
)

var listingTransitions = map[ListingStatus][]ListingStatus{
	ListingDraft:         {ListingPendingReview},
	ListingRejected:      {ListingPendingReview},
	ListingPendingReview: {ListingPublished, ListingRejected},
	ListingPublished:     {ListingUnderOffer},
	ListingUnderOffer:    {ListingSold},
	ListingSold:          nil,
}

// Valid reports whether s is a known listing status.
func (s ListingStatus) Valid() bool {
	_, ok := listingTransitions[s]
	return ok
}

// CanTransitionTo reports whether the listing state machine allows s -> next.
func (s ListingStatus) CanTransitionTo(next ListingStatus) bool {
	return slices.Contains(listingTransitions[s], next)
}

// Editable reports whether the owner may still change the listing's details.
func (s ListingStatus) Editable() bool {
	return s == ListingDraft || s == ListingRejected
}

// Listing is a property put up for sale by an owner.
type Listing struct {
	ID           int64           `json:"id"`
	OwnerID      int64           `json:"owner_id"`
	Title        string          `json:"title"`
	Address      string          `json:"address"`
	PropertyType string          `json:"property_type,omitempty"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Status       ListingStatus   `json:"status"`
	ReviewNote   string          `json:"review_note,omitempty"`
	Version      int64           `json:"version"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	DeletedAt    *time.Time      `json:"deleted_at,omitempty"`

	PropertyDetails
	Photos []ListingPhoto `json:"photos,omitempty"`
}

// ListingAttrs are the owner-editable fields of a listing.
type ListingAttrs struct {
	Title        string          `json:"title"`
	Address      string          `json:"address"`
	PropertyType string          `json:"property_type"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`

	PropertyDetails
}

// PropertyDetails is the optional structured part of a listing: the rest
// of the address and the size of the property.
type PropertyDetails struct {
	Address2      string  `json:"address2,omitempty"`
	City          string  `json:"city,omitempty"`
	State         string  `json:"state,omitempty"`
	ZipCode       string  `json:"zip_code,omitempty"`
	SquareFootage int     `json:"square_footage,omitempty"`
	Bedrooms      int     `json:"bedrooms,omitempty"`
	Bathrooms     float64 `json:"bathrooms,omitempty"` // half baths count 0.5
	Garage        int     `json:"garage,omitempty"`    // car spaces
}

// MaxListingPhotos is how many photos one listing can carry.
const MaxListingPhotos = 10

// ListingPhoto is a stored photo attached to a listing.
type ListingPhoto struct {
	ID        int64     `json:"id"`
	ListingID int64     `json:"listing_id"`
	Ref       string    `json:"ref"`
	CreatedAt time.Time `json:"created_at"`
}

// ListingFilter narrows listing queries. Zero values match everything.
type ListingFilter struct {
	OwnerID int64
	Status  ListingStatus
}
