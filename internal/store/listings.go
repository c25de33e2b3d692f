package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/nepremicnine/internal/model"
)

const listingColumns = `id, owner_id, title, address, property_type, description, price,
	address2, city, state, zip_code, square_footage, bedrooms, bathrooms, garage,
	status, review_note, version, created_at, updated_at, deleted_at`

// CreateListing inserts a new draft listing.
func CreateListing(ctx context.Context, q Querier, ownerID int64, attrs model.ListingAttrs, now time.Time) (*model.Listing, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO listings (owner_id, title, address, property_type, description, price,
		     address2, city, state, zip_code, square_footage, bedrooms, bathrooms, garage,
		     status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ownerID, attrs.Title, attrs.Address, attrs.PropertyType, attrs.Description, attrs.Price,
		attrs.Address2, attrs.City, attrs.State, attrs.ZipCode,
		attrs.SquareFootage, attrs.Bedrooms, attrs.Bathrooms, attrs.Garage,
		model.ListingDraft, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating listing: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting listing id: %w", err)
	}

	return GetListing(ctx, q, id)
}

// GetListing returns a non-deleted listing by ID.
func GetListing(ctx context.Context, q Querier, id int64) (*model.Listing, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE id = ? AND deleted_at IS NULL`, id,
	)
	l, err := scanListing(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting listing: %w", err)
	}
	return l, nil
}

// ListListings returns non-deleted listings matching the filter, newest first.
func ListListings(ctx context.Context, q Querier, filter model.ListingFilter) ([]model.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE deleted_at IS NULL`
	var args []any

	if filter.OwnerID > 0 {
		query += ` AND owner_id = ?`
		args = append(args, filter.OwnerID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}

	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing listings: %w", err)
	}
	defer rows.Close()

	var listings []model.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning listing: %w", err)
		}
		listings = append(listings, *l)
	}
	return listings, rows.Err()
}

// ListingsAwaitingReview returns listings in pending_review, oldest first.
func ListingsAwaitingReview(ctx context.Context, q Querier) ([]model.Listing, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+listingColumns+` FROM listings
		 WHERE deleted_at IS NULL AND status = ?
		 ORDER BY updated_at, id`, model.ListingPendingReview,
	)
	if err != nil {
		return nil, fmt.Errorf("listing review queue: %w", err)
	}
	defer rows.Close()

	var listings []model.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning listing: %w", err)
		}
		listings = append(listings, *l)
	}
	return listings, rows.Err()
}

// UpdateListingDetails rewrites the owner-editable fields. Only listings in
// an editable status are touched; returns false if none matched.
func UpdateListingDetails(ctx context.Context, q Querier, id int64, attrs model.ListingAttrs, now time.Time) (bool, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE listings
		 SET title = ?, address = ?, property_type = ?, description = ?, price = ?,
		     address2 = ?, city = ?, state = ?, zip_code = ?,
		     square_footage = ?, bedrooms = ?, bathrooms = ?, garage = ?, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL AND status IN (?, ?)`,
		attrs.Title, attrs.Address, attrs.PropertyType, attrs.Description, attrs.Price,
		attrs.Address2, attrs.City, attrs.State, attrs.ZipCode,
		attrs.SquareFootage, attrs.Bedrooms, attrs.Bathrooms, attrs.Garage, now,
		id, model.ListingDraft, model.ListingRejected,
	)
	if err != nil {
		return false, fmt.Errorf("updating listing: %w", err)
	}
	return affectedOne(result)
}

// SetListingStatus moves a listing from one status to another, guarded by
// the expected current status and version. Returns false when the row has
// moved on (another writer got there first).
func SetListingStatus(ctx context.Context, q Querier, id int64, from, to model.ListingStatus, version int64, note string, now time.Time) (bool, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE listings
		 SET status = ?, review_note = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND status = ? AND version = ? AND deleted_at IS NULL`,
		to, note, now, id, from, version,
	)
	if err != nil {
		return false, fmt.Errorf("setting listing status: %w", err)
	}
	return affectedOne(result)
}

// DeleteListing soft-deletes a listing at the given version.
func DeleteListing(ctx context.Context, q Querier, id, version int64, now time.Time) (bool, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE listings SET deleted_at = ?, version = version + 1
		 WHERE id = ? AND version = ? AND deleted_at IS NULL`,
		now, id, version,
	)
	if err != nil {
		return false, fmt.Errorf("deleting listing: %w", err)
	}
	return affectedOne(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (*model.Listing, error) {
	l := &model.Listing{}
	var propertyType, reviewNote sql.NullString
	d := &l.PropertyDetails
	err := row.Scan(&l.ID, &l.OwnerID, &l.Title, &l.Address, &propertyType, &l.Description, &l.Price,
		&d.Address2, &d.City, &d.State, &d.ZipCode, &d.SquareFootage, &d.Bedrooms, &d.Bathrooms, &d.Garage,
		&l.Status, &reviewNote, &l.Version, &l.CreatedAt, &l.UpdatedAt, &l.DeletedAt)
	if err != nil {
		return nil, err
	}
	l.PropertyType = propertyType.String
	l.ReviewNote = reviewNote.String
	return l, nil
}
