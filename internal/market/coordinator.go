package market

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/nepremicnine/internal/model"
	"github.com/erazemk/nepremicnine/internal/store"
)

// Coordinator decides offers and carries listings through the sale.
type Coordinator struct {
	*engine
}

// Decision is the outcome of accepting an offer.
type Decision struct {
	Offer    *model.Offer   `json:"offer"`
	Listing  *model.Listing `json:"listing"`
	Rejected []int64        `json:"rejected_offer_ids"`
}

// loadForDecision fetches the listing and offer and checks that actor may
// decide on them.
func loadForDecision(ctx context.Context, tx *sql.Tx, actor Actor, listingID, offerID int64) (*model.Listing, *model.Offer, error) {
	listing, err := store.GetListing(ctx, tx, listingID)
	if err != nil {
		return nil, nil, err
	}
	if listing == nil {
		return nil, nil, fmt.Errorf("%w: listing %d", ErrNotFound, listingID)
	}
	if !actor.owns(listing) && !actor.is(model.RoleAdmin) {
		return nil, nil, fmt.Errorf("%w: only the owner or an admin can decide offers", ErrAuthorization)
	}

	offer, err := store.GetOffer(ctx, tx, offerID)
	if err != nil {
		return nil, nil, err
	}
	if offer == nil || offer.ListingID != listingID {
		return nil, nil, fmt.Errorf("%w: offer %d on listing %d", ErrNotFound, offerID, listingID)
	}
	return listing, offer, nil
}

// AcceptOffer accepts one pending offer, rejects every other pending offer
// on the listing and puts the listing under offer, all or nothing.
func (c *Coordinator) AcceptOffer(ctx context.Context, actor Actor, listingID, offerID int64) (*Decision, error) {
	if err := actor.require(model.RoleOwner, model.RoleAdmin); err != nil {
		return nil, err
	}

	unlock := c.locks.lock(listingID)
	defer unlock()

	now := c.now()
	d := &Decision{}
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		listing, offer, err := loadForDecision(ctx, tx, actor, listingID, offerID)
		if err != nil {
			return err
		}
		if listing.Status != model.ListingPublished || offer.Status != model.OfferPending {
			return ErrAlreadyDecided
		}

		// Claim the listing first: the version guard stops a writer in
		// another process before the accepted-offer index would.
		ok, err := store.SetListingStatus(ctx, tx, listingID, model.ListingPublished, model.ListingUnderOffer, listing.Version, "", now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyDecided
		}

		ok, err = store.SetOfferStatus(ctx, tx, offerID, model.OfferPending, model.OfferAccepted, &actor.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyDecided
		}

		d.Rejected, err = store.RejectPendingOffers(ctx, tx, listingID, offerID, actor.ID, now)
		if err != nil {
			return err
		}

		if d.Offer, err = store.GetOffer(ctx, tx, offerID); err != nil {
			return err
		}
		d.Listing, err = store.GetListing(ctx, tx, listingID)
		return err
	})
	if err != nil {
		return nil, err
	}

	events := []event{
		{"offer accepted", model.EntityOffer, offerID, fmt.Sprintf("%s %s", d.Offer.Amount, d.Offer.Type)},
		{"listing under offer", model.EntityListing, listingID, fmt.Sprintf("offer %d accepted", offerID)},
	}
	for _, id := range d.Rejected {
		events = append(events, event{"offer rejected", model.EntityOffer, id, fmt.Sprintf("offer %d accepted", offerID)})
	}
	c.record(ctx, actor, now, events...)
	return d, nil
}

// RejectOffer declines a single pending offer. Other offers and the listing
// are untouched.
func (c *Coordinator) RejectOffer(ctx context.Context, actor Actor, listingID, offerID int64) (*model.Offer, error) {
	if err := actor.require(model.RoleOwner, model.RoleAdmin); err != nil {
		return nil, err
	}

	unlock := c.locks.lock(listingID)
	defer unlock()

	now := c.now()
	var updated *model.Offer
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		_, offer, err := loadForDecision(ctx, tx, actor, listingID, offerID)
		if err != nil {
			return err
		}
		if offer.Status != model.OfferPending {
			return ErrAlreadyDecided
		}

		ok, err := store.SetOfferStatus(ctx, tx, offerID, model.OfferPending, model.OfferRejected, &actor.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyDecided
		}

		updated, err = store.GetOffer(ctx, tx, offerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.record(ctx, actor, now, event{"offer rejected", model.EntityOffer, offerID, ""})
	return updated, nil
}

// CompleteSale marks a listing under offer as sold.
func (c *Coordinator) CompleteSale(ctx context.Context, actor Actor, listingID int64) (*model.Listing, error) {
	if err := actor.require(model.RoleOwner, model.RoleAdmin); err != nil {
		return nil, err
	}
	return c.transition(ctx, actor, listingID, model.ListingSold, "", "listing sold",
		func(l *model.Listing) error {
			if !actor.owns(l) && !actor.is(model.RoleAdmin) {
				return fmt.Errorf("%w: only the owner or an admin can complete a sale", ErrAuthorization)
			}
			return nil
		})
}
