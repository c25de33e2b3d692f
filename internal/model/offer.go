package model

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// OfferStatus is the decision state of an offer.
type OfferStatus string

// Offer statuses.
const (
	OfferPending   OfferStatus = "pending"
	OfferAccepted  OfferStatus = "accepted"
	OfferRejected  OfferStatus = "rejected"
	OfferWithdrawn OfferStatus = "withdrawn"
)

var offerTransitions = map[OfferStatus][]OfferStatus{
	OfferPending:   {OfferAccepted, OfferRejected, OfferWithdrawn},
	OfferAccepted:  nil,
	OfferRejected:  nil,
	OfferWithdrawn: nil,
}

// Valid reports whether s is a known offer status.
func (s OfferStatus) Valid() bool {
	_, ok := offerTransitions[s]
	return ok
}

// CanTransitionTo reports whether the offer state machine allows s -> next.
func (s OfferStatus) CanTransitionTo(next OfferStatus) bool {
	return slices.Contains(offerTransitions[s], next)
}

// OfferType is how the investor intends to pay.
type OfferType string

// Offer types.
const (
	OfferCash     OfferType = "cash"
	OfferFinanced OfferType = "financed"
	OfferCreative OfferType = "creative"
)

// Valid reports whether t is a known offer type.
func (t OfferType) Valid() bool {
	return t == OfferCash || t == OfferFinanced || t == OfferCreative
}

// Offer is an investor's bid on a listing.
type Offer struct {
	ID          int64           `json:"id"`
	ListingID   int64           `json:"listing_id"`
	InvestorID  int64           `json:"investor_id"`
	Amount      decimal.Decimal `json:"amount"`
	Type        OfferType       `json:"type"`
	Status      OfferStatus     `json:"status"`
	Note        string          `json:"note,omitempty"`
	SubmittedAt time.Time       `json:"submitted_at"`
	DecidedAt   *time.Time      `json:"decided_at,omitempty"`
	DecidedBy   *int64          `json:"decided_by,omitempty"`

	// Joined fields (not always populated).
	ListingAddress string `json:"listing_address,omitempty"`
	CompanyName    string `json:"company_name,omitempty"`
}

// OfferFilter narrows offer queries. Zero values match everything.
type OfferFilter struct {
	ListingID  int64
	InvestorID int64
	Status     OfferStatus
}
