package market

import (
	"context"
	"strings"

	"github.com/erazemk/nepremicnine/internal/model"
)

// Moderation is the admin review of listings and investor verifications.
type Moderation struct {
	*engine
	gate *Gate
}

// noListingCheck is the authorize step for admin-only transitions.
func noListingCheck(*model.Listing) error { return nil }

// ApproveListing publishes a listing waiting for review.
func (m *Moderation) ApproveListing(ctx context.Context, actor Actor, id int64) (*model.Listing, error) {
	if err := actor.require(model.RoleAdmin); err != nil {
		return nil, err
	}
	return m.transition(ctx, actor, id, model.ListingPublished, "", "listing approved", noListingCheck)
}

// RejectListing sends a listing back to its owner with an optional note.
func (m *Moderation) RejectListing(ctx context.Context, actor Actor, id int64, note string) (*model.Listing, error) {
	if err := actor.require(model.RoleAdmin); err != nil {
		return nil, err
	}
	return m.transition(ctx, actor, id, model.ListingRejected, strings.TrimSpace(note), "listing rejected", noListingCheck)
}

// ReviewVerification decides a pending investor verification.
func (m *Moderation) ReviewVerification(ctx context.Context, actor Actor, investorID int64, decision model.VerificationStatus, note string) (*model.InvestorProfile, error) {
	return m.gate.Review(ctx, actor, investorID, decision, note)
}
