package market

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/nepremicnine/internal/model"
	"github.com/erazemk/nepremicnine/internal/store"
)

// editablePhotos loads listing id inside tx and checks that actor may change
// its photos.
func editablePhotos(ctx context.Context, tx *sql.Tx, actor Actor, id int64) (*model.Listing, error) {
	l, err := store.GetListing(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, fmt.Errorf("%w: listing %d", ErrNotFound, id)
	}
	if !actor.owns(l) {
		return nil, fmt.Errorf("%w: only the owner can change listing photos", ErrAuthorization)
	}
	if !l.Status.Editable() {
		return nil, fmt.Errorf("%w: listing is %s and can no longer be edited", ErrStateConflict, l.Status)
	}
	return l, nil
}

// AddPhoto attaches a stored photo to a draft or rejected listing.
func (r *Registry) AddPhoto(ctx context.Context, actor Actor, id int64, ref string) (*model.Listing, error) {
	if err := actor.require(model.RoleOwner); err != nil {
		return nil, err
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: photo reference is required", ErrValidation)
	}

	unlock := r.locks.lock(id)
	defer unlock()

	now := r.now()
	var updated *model.Listing
	var photoID int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := editablePhotos(ctx, tx, actor, id); err != nil {
			return err
		}

		n, err := store.CountListingPhotos(ctx, tx, id)
		if err != nil {
			return err
		}
		if n >= model.MaxListingPhotos {
			return fmt.Errorf("%w: a listing can have at most %d photos", ErrValidation, model.MaxListingPhotos)
		}

		photoID, err = store.AddListingPhoto(ctx, tx, id, ref, now)
		if err != nil {
			return err
		}
		if photoID == 0 {
			return fmt.Errorf("%w: listing changed while adding a photo", ErrStateConflict)
		}

		updated, err = store.GetListing(ctx, tx, id)
		if err != nil {
			return err
		}
		return store.LoadListingPhotos(ctx, tx, updated)
	})
	if err != nil {
		return nil, err
	}

	r.record(ctx, actor, now, event{"listing photo added", model.EntityListing, id, fmt.Sprintf("photo %d", photoID)})
	return updated, nil
}

// RemovePhoto detaches a photo from a draft or rejected listing.
func (r *Registry) RemovePhoto(ctx context.Context, actor Actor, id, photoID int64) (*model.Listing, error) {
	if err := actor.require(model.RoleOwner); err != nil {
		return nil, err
	}

	unlock := r.locks.lock(id)
	defer unlock()

	now := r.now()
	var updated *model.Listing
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := editablePhotos(ctx, tx, actor, id); err != nil {
			return err
		}

		ok, err := store.DeleteListingPhoto(ctx, tx, id, photoID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: photo %d on listing %d", ErrNotFound, photoID, id)
		}

		updated, err = store.GetListing(ctx, tx, id)
		if err != nil {
			return err
		}
		return store.LoadListingPhotos(ctx, tx, updated)
	})
	if err != nil {
		return nil, err
	}

	r.record(ctx, actor, now, event{"listing photo removed", model.EntityListing, id, fmt.Sprintf("photo %d", photoID)})
	return updated, nil
}
