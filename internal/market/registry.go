package market

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"github.com/erazemk/nepremicnine/internal/model"
	"github.com/erazemk/nepremicnine/internal/store"
)

// Registry manages listings on behalf of their owners.
type Registry struct {
	*engine
}

func validateListing(attrs model.ListingAttrs) (model.ListingAttrs, error) {
	attrs.Title = strings.TrimSpace(attrs.Title)
	attrs.Address = strings.TrimSpace(attrs.Address)
	attrs.PropertyType = strings.TrimSpace(attrs.PropertyType)
	attrs.Description = strings.TrimSpace(attrs.Description)

	switch {
	case attrs.Title == "":
		return attrs, fmt.Errorf("%w: title is required", ErrValidation)
	case attrs.Address == "":
		return attrs, fmt.Errorf("%w: address is required", ErrValidation)
	case attrs.Description == "":
		return attrs, fmt.Errorf("%w: description is required", ErrValidation)
	}
	if err := validateMoney("price", attrs.Price); err != nil {
		return attrs, err
	}
	return attrs, validateDetails(&attrs.PropertyDetails)
}

func validateDetails(d *model.PropertyDetails) error {
	d.Address2 = strings.TrimSpace(d.Address2)
	d.City = strings.TrimSpace(d.City)
	d.State = strings.TrimSpace(d.State)
	d.ZipCode = strings.TrimSpace(d.ZipCode)

	switch {
	case d.SquareFootage < 0 || d.SquareFootage > 10_000_000:
		return fmt.Errorf("%w: square footage out of range", ErrValidation)
	case d.Bedrooms < 0 || d.Bedrooms > 100:
		return fmt.Errorf("%w: bedrooms out of range", ErrValidation)
	case d.Bathrooms < 0 || d.Bathrooms > 100 || d.Bathrooms != math.Round(d.Bathrooms*2)/2:
		return fmt.Errorf("%w: bathrooms must be a multiple of 0.5", ErrValidation)
	case d.Garage < 0 || d.Garage > 100:
		return fmt.Errorf("%w: garage out of range", ErrValidation)
	case len(d.ZipCode) > 16:
		return fmt.Errorf("%w: zip code too long", ErrValidation)
	}
	return nil
}

// Create adds a draft listing owned by actor.
func (r *Registry) Create(ctx context.Context, actor Actor, attrs model.ListingAttrs) (*model.Listing, error) {
	if err := actor.require(model.RoleOwner); err != nil {
		return nil, err
	}
	attrs, err := validateListing(attrs)
	if err != nil {
		return nil, err
	}

	now := r.now()
	l, err := store.CreateListing(ctx, r.db, actor.ID, attrs, now)
	if err != nil {
		return nil, err
	}

	r.record(ctx, actor, now, event{"listing created", model.EntityListing, l.ID, l.Address})
	return l, nil
}

// SubmitForReview sends a draft or rejected listing to moderation.
func (r *Registry) SubmitForReview(ctx context.Context, actor Actor, id int64) (*model.Listing, error) {
	if err := actor.require(model.RoleOwner); err != nil {
		return nil, err
	}
	return r.transition(ctx, actor, id, model.ListingPendingReview, "", "listing submitted for review",
		func(l *model.Listing) error {
			if !actor.owns(l) {
				return fmt.Errorf("%w: only the owner can submit a listing", ErrAuthorization)
			}
			return nil
		})
}

// Edit replaces the details of a draft or rejected listing.
func (r *Registry) Edit(ctx context.Context, actor Actor, id int64, attrs model.ListingAttrs) (*model.Listing, error) {
	if err := actor.require(model.RoleOwner); err != nil {
		return nil, err
	}
	attrs, err := validateListing(attrs)
	if err != nil {
		return nil, err
	}

	unlock := r.locks.lock(id)
	defer unlock()

	now := r.now()
	var updated *model.Listing
	err = r.withTx(ctx, func(tx *sql.Tx) error {
		l, err := store.GetListing(ctx, tx, id)
		if err != nil {
			return err
		}
		if l == nil {
			return fmt.Errorf("%w: listing %d", ErrNotFound, id)
		}
		if !actor.owns(l) {
			return fmt.Errorf("%w: only the owner can edit a listing", ErrAuthorization)
		}
		if !l.Status.Editable() {
			return fmt.Errorf("%w: listing is %s and can no longer be edited", ErrStateConflict, l.Status)
		}

		ok, err := store.UpdateListingDetails(ctx, tx, id, attrs, now)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: listing changed while editing", ErrStateConflict)
		}

		updated, err = store.GetListing(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	r.record(ctx, actor, now, event{"listing edited", model.EntityListing, id, updated.Address})
	if err := store.LoadListingPhotos(ctx, r.db, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a listing that has no accepted offer. Pending offers on it
// are rejected in the same transaction.
func (r *Registry) Delete(ctx context.Context, actor Actor, id int64) error {
	if err := actor.require(model.RoleOwner, model.RoleAdmin); err != nil {
		return err
	}

	unlock := r.locks.lock(id)
	defer unlock()

	now := r.now()
	var rejected []int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		l, err := store.GetListing(ctx, tx, id)
		if err != nil {
			return err
		}
		if l == nil {
			return fmt.Errorf("%w: listing %d", ErrNotFound, id)
		}
		if !actor.owns(l) && !actor.is(model.RoleAdmin) {
			return fmt.Errorf("%w: only the owner or an admin can delete a listing", ErrAuthorization)
		}

		accepted, err := store.CountOffers(ctx, tx, id, model.OfferAccepted)
		if err != nil {
			return err
		}
		if accepted > 0 {
			return fmt.Errorf("%w: listing has an accepted offer", ErrStateConflict)
		}

		rejected, err = store.RejectPendingOffers(ctx, tx, id, 0, actor.ID, now)
		if err != nil {
			return err
		}

		ok, err := store.DeleteListing(ctx, tx, id, l.Version, now)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: listing changed while deleting", ErrStateConflict)
		}
		return nil
	})
	if err != nil {
		return err
	}

	events := []event{{"listing deleted", model.EntityListing, id, fmt.Sprintf("%d pending offers rejected", len(rejected))}}
	for _, offerID := range rejected {
		events = append(events, event{"offer rejected", model.EntityOffer, offerID, "listing deleted"})
	}
	r.record(ctx, actor, now, events...)
	return nil
}

// publiclyVisible reports whether anyone may look at a listing in status s.
func publiclyVisible(s model.ListingStatus) bool {
	return s == model.ListingPublished || s == model.ListingUnderOffer || s == model.ListingSold
}

// Get returns a listing. Owners and admins see every status; everyone else
// only sees listings that have passed moderation.
func (r *Registry) Get(ctx context.Context, actor Actor, id int64) (*model.Listing, error) {
	if err := actor.require(model.RoleAdmin, model.RoleOwner, model.RoleInvestor); err != nil {
		return nil, err
	}

	l, err := store.GetListing(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	if l == nil || !(actor.owns(l) || actor.is(model.RoleAdmin) || publiclyVisible(l.Status)) {
		return nil, fmt.Errorf("%w: listing %d", ErrNotFound, id)
	}
	if err := store.LoadListingPhotos(ctx, r.db, l); err != nil {
		return nil, err
	}
	return l, nil
}

// List returns the listings actor may browse. Investors see published
// listings, owners their own and admins everything.
func (r *Registry) List(ctx context.Context, actor Actor, filter model.ListingFilter) ([]model.Listing, error) {
	if err := actor.require(model.RoleAdmin, model.RoleOwner, model.RoleInvestor); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, filter.Status)
	}

	switch actor.Role {
	case model.RoleInvestor:
		filter = model.ListingFilter{Status: model.ListingPublished}
	case model.RoleOwner:
		filter.OwnerID = actor.ID
	}

	listings, err := store.ListListings(ctx, r.db, filter)
	if err != nil {
		return nil, err
	}
	ptrs := make([]*model.Listing, len(listings))
	for i := range listings {
		ptrs[i] = &listings[i]
	}
	if err := store.LoadListingPhotos(ctx, r.db, ptrs...); err != nil {
		return nil, err
	}
	return listings, nil
}

// ReviewQueue returns listings waiting for moderation, oldest first.
func (r *Registry) ReviewQueue(ctx context.Context, actor Actor) ([]model.Listing, error) {
	if err := actor.require(model.RoleAdmin); err != nil {
		return nil, err
	}
	return store.ListingsAwaitingReview(ctx, r.db)
}

// transition moves listing id to status to under the listing lock. authorize
// runs against the current row before the state check.
func (e *engine) transition(ctx context.Context, actor Actor, id int64, to model.ListingStatus, note, action string, authorize func(*model.Listing) error) (*model.Listing, error) {
	unlock := e.locks.lock(id)
	defer unlock()

	now := e.now()
	var updated *model.Listing
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		l, err := store.GetListing(ctx, tx, id)
		if err != nil {
			return err
		}
		if l == nil {
			return fmt.Errorf("%w: listing %d", ErrNotFound, id)
		}
		if err := authorize(l); err != nil {
			return err
		}
		if !l.Status.CanTransitionTo(to) {
			return fmt.Errorf("%w: listing is %s, cannot move to %s", ErrStateConflict, l.Status, to)
		}

		ok, err := store.SetListingStatus(ctx, tx, id, l.Status, to, l.Version, note, now)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: listing changed concurrently", ErrStateConflict)
		}

		updated, err = store.GetListing(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.record(ctx, actor, now, event{action, model.EntityListing, id, note})
	if err := store.LoadListingPhotos(ctx, e.db, updated); err != nil {
		return nil, err
	}
	return updated, nil
}
