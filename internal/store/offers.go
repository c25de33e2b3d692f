package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/nepremicnine/internal/model"
)

const offerSelect = `SELECT o.id, o.listing_id, o.investor_id, o.amount, o.type, o.status, o.note,
	        o.submitted_at, o.decided_at, o.decided_by,
	        l.address AS listing_address, COALESCE(p.company_name, '') AS company_name
	 FROM offers o
	 JOIN listings l ON l.id = o.listing_id
	 LEFT JOIN investor_profiles p ON p.investor_id = o.investor_id`

// CreateOffer records a pending offer, but only while the listing is still
// published. Returns (0, nil) if the listing left published before the
// insert ran, so no offer is ever left pending on a decided listing.
func CreateOffer(ctx context.Context, q Querier, listingID, investorID int64, amount decimal.Decimal, offerType model.OfferType, note string, now time.Time) (int64, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO offers (listing_id, investor_id, amount, type, status, note, submitted_at)
		 SELECT ?, ?, ?, ?, ?, ?, ?
		 WHERE EXISTS (
		     SELECT 1 FROM listings WHERE id = ? AND status = ? AND deleted_at IS NULL
		 )`,
		listingID, investorID, amount, offerType, model.OfferPending, note, now,
		listingID, model.ListingPublished,
	)
	if err != nil {
		return 0, fmt.Errorf("creating offer: %w", err)
	}

	ok, err := affectedOne(result)
	if err != nil {
		return 0, fmt.Errorf("creating offer: %w", err)
	}
	if !ok {
		return 0, nil
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting offer id: %w", err)
	}
	return id, nil
}

// GetOffer returns an offer by ID.
func GetOffer(ctx context.Context, q Querier, id int64) (*model.Offer, error) {
	o, err := scanOffer(q.QueryRowContext(ctx, offerSelect+` WHERE o.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting offer: %w", err)
	}
	return o, nil
}

// ListOffers returns offers matching the filter, oldest first.
func ListOffers(ctx context.Context, q Querier, filter model.OfferFilter) ([]model.Offer, error) {
	query := offerSelect + ` WHERE 1=1`
	var args []any

	if filter.ListingID > 0 {
		query += ` AND o.listing_id = ?`
		args = append(args, filter.ListingID)
	}
	if filter.InvestorID > 0 {
		query += ` AND o.investor_id = ?`
		args = append(args, filter.InvestorID)
	}
	if filter.Status != "" {
		query += ` AND o.status = ?`
		args = append(args, filter.Status)
	}

	query += ` ORDER BY o.submitted_at, o.id`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing offers: %w", err)
	}
	defer rows.Close()

	var offers []model.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning offer: %w", err)
		}
		offers = append(offers, *o)
	}
	return offers, rows.Err()
}

// CountOffers counts the offers on a listing with the given status.
func CountOffers(ctx context.Context, q Querier, listingID int64, status model.OfferStatus) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM offers WHERE listing_id = ? AND status = ?`,
		listingID, status,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting offers: %w", err)
	}
	return n, nil
}

// SetOfferStatus moves one offer from -> to. decidedBy is recorded for
// owner/admin decisions and left NULL for withdrawals. Returns false when
// the offer is no longer in the expected status.
func SetOfferStatus(ctx context.Context, q Querier, id int64, from, to model.OfferStatus, decidedBy *int64, now time.Time) (bool, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE offers SET status = ?, decided_at = ?, decided_by = ?
		 WHERE id = ? AND status = ?`,
		to, now, decidedBy, id, from,
	)
	if err != nil {
		return false, fmt.Errorf("setting offer status: %w", err)
	}
	return affectedOne(result)
}

// RejectPendingOffers rejects every pending offer on a listing except
// exceptID (0 rejects all of them). Returns the IDs it rejected.
func RejectPendingOffers(ctx context.Context, q Querier, listingID, exceptID int64, decidedBy int64, now time.Time) ([]int64, error) {
	rows, err := q.QueryContext(ctx,
		`UPDATE offers SET status = ?, decided_at = ?, decided_by = ?
		 WHERE listing_id = ? AND status = ? AND id != ?
		 RETURNING id`,
		model.OfferRejected, now, decidedBy, listingID, model.OfferPending, exceptID,
	)
	if err != nil {
		return nil, fmt.Errorf("rejecting pending offers: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning rejected offer id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanOffer(row rowScanner) (*model.Offer, error) {
	o := &model.Offer{}
	var note sql.NullString
	err := row.Scan(&o.ID, &o.ListingID, &o.InvestorID, &o.Amount, &o.Type, &o.Status, &note,
		&o.SubmittedAt, &o.DecidedAt, &o.DecidedBy,
		&o.ListingAddress, &o.CompanyName)
	if err != nil {
		return nil, err
	}
	o.Note = note.String
	return o, nil
}
