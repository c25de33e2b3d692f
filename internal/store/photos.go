package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/nepremicnine/internal/model"
)

// AddListingPhoto attaches ref to a listing. The insert only happens while
// the listing is editable and below model.MaxListingPhotos; otherwise the
// returned id is 0.
func AddListingPhoto(ctx context.Context, q Querier, listingID int64, ref string, now time.Time) (int64, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO listing_photos (listing_id, ref, created_at)
		 SELECT ?, ?, ?
		 WHERE EXISTS (SELECT 1 FROM listings
		               WHERE id = ? AND deleted_at IS NULL AND status IN (?, ?))
		   AND (SELECT COUNT(*) FROM listing_photos WHERE listing_id = ?) < ?`,
		listingID, ref, now.UTC(),
		listingID, model.ListingDraft, model.ListingRejected,
		listingID, model.MaxListingPhotos,
	)
	if err != nil {
		return 0, fmt.Errorf("adding listing photo: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("adding listing photo: %w", err)
	}
	if n == 0 {
		return 0, nil
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting photo id: %w", err)
	}
	return id, nil
}

// CountListingPhotos returns how many photos a listing has.
func CountListingPhotos(ctx context.Context, q Querier, listingID int64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM listing_photos WHERE listing_id = ?`, listingID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting listing photos: %w", err)
	}
	return n, nil
}

// DeleteListingPhoto detaches a photo from a listing. Returns false if the
// photo does not belong to the listing. The blob itself is left for the
// orphan purge.
func DeleteListingPhoto(ctx context.Context, q Querier, listingID, photoID int64) (bool, error) {
	result, err := q.ExecContext(ctx,
		`DELETE FROM listing_photos WHERE id = ? AND listing_id = ?`, photoID, listingID,
	)
	if err != nil {
		return false, fmt.Errorf("deleting listing photo: %w", err)
	}
	return affectedOne(result)
}

// LoadListingPhotos fills the Photos field of each listing, oldest photo first.
func LoadListingPhotos(ctx context.Context, q Querier, listings ...*model.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	byID := make(map[int64]*model.Listing, len(listings))
	args := make([]any, 0, len(listings))
	for _, l := range listings {
		l.Photos = nil
		byID[l.ID] = l
		args = append(args, l.ID)
	}

	rows, err := q.QueryContext(ctx,
		`SELECT id, listing_id, ref, created_at FROM listing_photos
		 WHERE listing_id IN (?`+strings.Repeat(", ?", len(args)-1)+`)
		 ORDER BY created_at, id`, args...,
	)
	if err != nil {
		return fmt.Errorf("listing photos: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p model.ListingPhoto
		if err := rows.Scan(&p.ID, &p.ListingID, &p.Ref, &p.CreatedAt); err != nil {
			return fmt.Errorf("scanning photo: %w", err)
		}
		if l := byID[p.ListingID]; l != nil {
			l.Photos = append(l.Photos, p)
		}
	}
	return rows.Err()
}
