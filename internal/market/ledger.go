package market

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/erazemk/nepremicnine/internal/model"
	"github.com/erazemk/nepremicnine/internal/store"
)

// Ledger records investor offers.
type Ledger struct {
	*engine
	gate *Gate
}

// OfferInput is what an investor submits.
type OfferInput struct {
	Amount decimal.Decimal `json:"amount"`
	Type   model.OfferType `json:"type"`
	Note   string          `json:"note"`
}

// Submit places a pending offer on a published listing. Checks run in
// order: input, listing existence and status, investor verification.
func (l *Ledger) Submit(ctx context.Context, actor Actor, listingID int64, in OfferInput) (*model.Offer, error) {
	if err := actor.require(model.RoleInvestor); err != nil {
		return nil, err
	}
	if err := validateMoney("amount", in.Amount); err != nil {
		return nil, err
	}
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown offer type %q", ErrValidation, in.Type)
	}
	in.Note = strings.TrimSpace(in.Note)

	unlock := l.locks.lock(listingID)
	defer unlock()

	now := l.now()
	var offer *model.Offer
	err := l.withTx(ctx, func(tx *sql.Tx) error {
		listing, err := store.GetListing(ctx, tx, listingID)
		if err != nil {
			return err
		}
		if listing == nil {
			return fmt.Errorf("%w: listing %d", ErrNotFound, listingID)
		}
		if listing.Status != model.ListingPublished {
			return fmt.Errorf("%w: listing is %s and not accepting offers", ErrStateConflict, listing.Status)
		}
		if listing.OwnerID == actor.ID {
			return fmt.Errorf("%w: cannot make an offer on your own listing", ErrAuthorization)
		}

		verified, err := l.gate.IsVerified(ctx, tx, actor.ID)
		if err != nil {
			return err
		}
		if !verified {
			return ErrVerificationRequired
		}

		id, err := store.CreateOffer(ctx, tx, listingID, actor.ID, in.Amount, in.Type, in.Note, now)
		if err != nil {
			return err
		}
		if id == 0 {
			return fmt.Errorf("%w: listing is no longer accepting offers", ErrStateConflict)
		}

		offer, err = store.GetOffer(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	l.record(ctx, actor, now, event{"offer submitted", model.EntityOffer, offer.ID,
		fmt.Sprintf("%s %s on listing %d", offer.Amount, offer.Type, listingID)})
	return offer, nil
}

// Withdraw retracts actor's pending offer.
func (l *Ledger) Withdraw(ctx context.Context, actor Actor, offerID int64) (*model.Offer, error) {
	if err := actor.require(model.RoleInvestor); err != nil {
		return nil, err
	}

	// The listing id never changes, so it is safe to read before locking.
	o, err := store.GetOffer(ctx, l.db, offerID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("%w: offer %d", ErrNotFound, offerID)
	}
	if o.InvestorID != actor.ID {
		return nil, fmt.Errorf("%w: only the submitting investor can withdraw an offer", ErrAuthorization)
	}

	unlock := l.locks.lock(o.ListingID)
	defer unlock()

	now := l.now()
	var updated *model.Offer
	err = l.withTx(ctx, func(tx *sql.Tx) error {
		current, err := store.GetOffer(ctx, tx, offerID)
		if err != nil {
			return err
		}
		if !current.Status.CanTransitionTo(model.OfferWithdrawn) {
			return fmt.Errorf("%w: offer is %s", ErrStateConflict, current.Status)
		}

		ok, err := store.SetOfferStatus(ctx, tx, offerID, model.OfferPending, model.OfferWithdrawn, nil, now)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: offer changed concurrently", ErrStateConflict)
		}

		updated, err = store.GetOffer(ctx, tx, offerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	l.record(ctx, actor, now, event{"offer withdrawn", model.EntityOffer, offerID, ""})
	return updated, nil
}

// Get returns an offer to its investor, the listing owner or an admin.
func (l *Ledger) Get(ctx context.Context, actor Actor, offerID int64) (*model.Offer, error) {
	o, err := store.GetOffer(ctx, l.db, offerID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("%w: offer %d", ErrNotFound, offerID)
	}

	if actor.is(model.RoleAdmin) || (actor.is(model.RoleInvestor) && o.InvestorID == actor.ID) {
		return o, nil
	}
	if actor.is(model.RoleOwner) {
		listing, err := store.GetListing(ctx, l.db, o.ListingID)
		if err != nil {
			return nil, err
		}
		if listing != nil && actor.owns(listing) {
			return o, nil
		}
	}
	return nil, fmt.Errorf("%w: cannot view offer %d", ErrAuthorization, offerID)
}

// ForListing returns every offer on a listing to its owner or an admin.
func (l *Ledger) ForListing(ctx context.Context, actor Actor, listingID int64) ([]model.Offer, error) {
	if err := actor.require(model.RoleOwner, model.RoleAdmin); err != nil {
		return nil, err
	}

	listing, err := store.GetListing(ctx, l.db, listingID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, fmt.Errorf("%w: listing %d", ErrNotFound, listingID)
	}
	if !actor.owns(listing) && !actor.is(model.RoleAdmin) {
		return nil, fmt.Errorf("%w: only the owner can view offers on a listing", ErrAuthorization)
	}

	return store.ListOffers(ctx, l.db, model.OfferFilter{ListingID: listingID})
}

// Mine returns actor's own offers, optionally narrowed to one status.
func (l *Ledger) Mine(ctx context.Context, actor Actor, status model.OfferStatus) ([]model.Offer, error) {
	if err := actor.require(model.RoleInvestor); err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	return store.ListOffers(ctx, l.db, model.OfferFilter{InvestorID: actor.ID, Status: status})
}
