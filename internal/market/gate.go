package market

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/nepremicnine/internal/model"
	"github.com/erazemk/nepremicnine/internal/store"
)

// Gate tracks investor identity verification. Only verified investors may
// make offers.
type Gate struct {
	*engine
}

func validateProfile(attrs model.ProfileAttrs) (model.ProfileAttrs, error) {
	attrs.CompanyName = strings.TrimSpace(attrs.CompanyName)
	attrs.RepresentativeName = strings.TrimSpace(attrs.RepresentativeName)
	attrs.RepresentativeTitle = strings.TrimSpace(attrs.RepresentativeTitle)
	attrs.Address = strings.TrimSpace(attrs.Address)
	attrs.IDDocumentRef = strings.TrimSpace(attrs.IDDocumentRef)

	required := []struct{ name, value string }{
		{"company name", attrs.CompanyName},
		{"representative name", attrs.RepresentativeName},
		{"representative title", attrs.RepresentativeTitle},
		{"address", attrs.Address},
		{"ID document", attrs.IDDocumentRef},
	}
	for _, f := range required {
		if f.value == "" {
			return attrs, fmt.Errorf("%w: %s is required", ErrValidation, f.name)
		}
	}
	return attrs, nil
}

// SubmitVerification files actor's identity details for review. Allowed
// from unverified and rejected.
func (g *Gate) SubmitVerification(ctx context.Context, actor Actor, attrs model.ProfileAttrs) (*model.InvestorProfile, error) {
	if err := actor.require(model.RoleInvestor); err != nil {
		return nil, err
	}
	attrs, err := validateProfile(attrs)
	if err != nil {
		return nil, err
	}

	now := g.now()
	var profile *model.InvestorProfile
	err = g.withTx(ctx, func(tx *sql.Tx) error {
		status, err := store.GetVerificationStatus(ctx, tx, actor.ID)
		if err != nil {
			return err
		}
		if !status.CanTransitionTo(model.VerificationPendingReview) {
			return fmt.Errorf("%w: verification is %s", ErrStateConflict, status)
		}

		ok, err := store.SubmitInvestorProfile(ctx, tx, actor.ID, attrs, now)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: verification changed concurrently", ErrStateConflict)
		}

		profile, err = store.GetInvestorProfile(ctx, tx, actor.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	g.record(ctx, actor, now, event{"verification submitted", model.EntityVerification, actor.ID, attrs.CompanyName})
	return profile, nil
}

// Review approves (verified) or rejects a pending verification.
func (g *Gate) Review(ctx context.Context, actor Actor, investorID int64, decision model.VerificationStatus, note string) (*model.InvestorProfile, error) {
	if err := actor.require(model.RoleAdmin); err != nil {
		return nil, err
	}
	if decision != model.VerificationVerified && decision != model.VerificationRejected {
		return nil, fmt.Errorf("%w: decision must be %s or %s", ErrValidation, model.VerificationVerified, model.VerificationRejected)
	}
	note = strings.TrimSpace(note)

	now := g.now()
	var profile *model.InvestorProfile
	err := g.withTx(ctx, func(tx *sql.Tx) error {
		current, err := store.GetInvestorProfile(ctx, tx, investorID)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("%w: no verification for investor %d", ErrNotFound, investorID)
		}
		if !current.Status.CanTransitionTo(decision) {
			return fmt.Errorf("%w: verification is %s", ErrStateConflict, current.Status)
		}

		ok, err := store.SetVerificationStatus(ctx, tx, investorID, current.Status, decision, actor.ID, note, now)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: verification changed concurrently", ErrStateConflict)
		}

		profile, err = store.GetInvestorProfile(ctx, tx, investorID)
		return err
	})
	if err != nil {
		return nil, err
	}

	action := "verification approved"
	if decision == model.VerificationRejected {
		action = "verification rejected"
	}
	g.record(ctx, actor, now, event{action, model.EntityVerification, investorID, note})
	return profile, nil
}

// IsVerified reports whether the investor may make offers. q may be a
// transaction the caller owns.
func (g *Gate) IsVerified(ctx context.Context, q store.Querier, investorID int64) (bool, error) {
	status, err := store.GetVerificationStatus(ctx, q, investorID)
	if err != nil {
		return false, err
	}
	return status == model.VerificationVerified, nil
}

// Profile returns an investor's verification record. Investors may only
// read their own; one that never submitted gets an unverified placeholder.
func (g *Gate) Profile(ctx context.Context, actor Actor, investorID int64) (*model.InvestorProfile, error) {
	self := actor.is(model.RoleInvestor) && actor.ID == investorID
	if !self && !actor.is(model.RoleAdmin) {
		return nil, fmt.Errorf("%w: cannot view another investor's verification", ErrAuthorization)
	}

	p, err := store.GetInvestorProfile(ctx, g.db, investorID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		if self {
			return &model.InvestorProfile{InvestorID: investorID, Status: model.VerificationUnverified}, nil
		}
		return nil, fmt.Errorf("%w: no verification for investor %d", ErrNotFound, investorID)
	}
	return p, nil
}

// Pending returns verifications awaiting review.
func (g *Gate) Pending(ctx context.Context, actor Actor) ([]model.InvestorProfile, error) {
	if err := actor.require(model.RoleAdmin); err != nil {
		return nil, err
	}
	return store.ListInvestorProfiles(ctx, g.db, model.VerificationPendingReview)
}
