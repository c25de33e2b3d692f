package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/nepremicnine/internal/model"
)

const profileColumns = `investor_id, company_name, representative_name, representative_title, address,
	id_document_ref, status, review_note, submitted_at, reviewed_at, reviewed_by`

// GetInvestorProfile returns an investor's verification profile, or nil if
// the investor never submitted one.
func GetInvestorProfile(ctx context.Context, q Querier, investorID int64) (*model.InvestorProfile, error) {
	p, err := scanProfile(q.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM investor_profiles WHERE investor_id = ?`, investorID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting investor profile: %w", err)
	}
	return p, nil
}

// GetVerificationStatus returns the investor's verification status;
// investors without a profile are unverified.
func GetVerificationStatus(ctx context.Context, q Querier, investorID int64) (model.VerificationStatus, error) {
	var status model.VerificationStatus
	err := q.QueryRowContext(ctx,
		`SELECT status FROM investor_profiles WHERE investor_id = ?`, investorID,
	).Scan(&status)
	if err == sql.ErrNoRows {
		return model.VerificationUnverified, nil
	}
	if err != nil {
		return "", fmt.Errorf("getting verification status: %w", err)
	}
	return status, nil
}

// SubmitInvestorProfile creates or replaces the investor's profile and puts
// it in pending_review. An existing profile is only replaced while it is
// unverified or rejected; returns false otherwise.
func SubmitInvestorProfile(ctx context.Context, q Querier, investorID int64, attrs model.ProfileAttrs, now time.Time) (bool, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO investor_profiles
		     (investor_id, company_name, representative_name, representative_title, address,
		      id_document_ref, status, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (investor_id) DO UPDATE SET
		     company_name = excluded.company_name,
		     representative_name = excluded.representative_name,
		     representative_title = excluded.representative_title,
		     address = excluded.address,
		     id_document_ref = excluded.id_document_ref,
		     status = excluded.status,
		     review_note = NULL,
		     submitted_at = excluded.submitted_at,
		     reviewed_at = NULL,
		     reviewed_by = NULL
		 WHERE investor_profiles.status IN (?, ?)`,
		investorID, attrs.CompanyName, attrs.RepresentativeName, attrs.RepresentativeTitle, attrs.Address,
		attrs.IDDocumentRef, model.VerificationPendingReview, now,
		model.VerificationUnverified, model.VerificationRejected,
	)
	if err != nil {
		return false, fmt.Errorf("submitting investor profile: %w", err)
	}
	return affectedOne(result)
}

// SetVerificationStatus records a review decision, guarded by the expected
// current status.
func SetVerificationStatus(ctx context.Context, q Querier, investorID int64, from, to model.VerificationStatus, reviewerID int64, note string, now time.Time) (bool, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE investor_profiles
		 SET status = ?, review_note = ?, reviewed_at = ?, reviewed_by = ?
		 WHERE investor_id = ? AND status = ?`,
		to, note, now, reviewerID, investorID, from,
	)
	if err != nil {
		return false, fmt.Errorf("setting verification status: %w", err)
	}
	return affectedOne(result)
}

// ListInvestorProfiles returns profiles, optionally filtered by status,
// oldest submission first.
func ListInvestorProfiles(ctx context.Context, q Querier, status model.VerificationStatus) ([]model.InvestorProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM investor_profiles`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY submitted_at, investor_id`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing investor profiles: %w", err)
	}
	defer rows.Close()

	var profiles []model.InvestorProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning investor profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

func scanProfile(row rowScanner) (*model.InvestorProfile, error) {
	p := &model.InvestorProfile{}
	var reviewNote sql.NullString
	err := row.Scan(&p.InvestorID, &p.CompanyName, &p.RepresentativeName, &p.RepresentativeTitle, &p.Address,
		&p.IDDocumentRef, &p.Status, &reviewNote, &p.SubmittedAt, &p.ReviewedAt, &p.ReviewedBy)
	if err != nil {
		return nil, err
	}
	p.ReviewNote = reviewNote.String
	return p, nil
}
