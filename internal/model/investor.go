package model

import (
	"slices"
	"time"
)

// VerificationStatus is an investor's identity-verification state.
type VerificationStatus string

// Verification statuses.
const (
	VerificationUnverified    VerificationStatus = "unverified"
	VerificationPendingReview VerificationStatus = "pending_review"
	VerificationVerified      VerificationStatus = "verified"
	VerificationRejected      VerificationStatus = "rejected"
)

var verificationTransitions = map[VerificationStatus][]VerificationStatus{
	VerificationUnverified:    {VerificationPendingReview},
	VerificationRejected:      {VerificationPendingReview},
	VerificationPendingReview: {VerificationVerified, VerificationRejected},
	VerificationVerified:      nil,
}

// Valid reports whether s is a known verification status.
func (s VerificationStatus) Valid() bool {
	_, ok := verificationTransitions[s]
	return ok
}

// CanTransitionTo reports whether the verification state machine allows s -> next.
func (s VerificationStatus) CanTransitionTo(next VerificationStatus) bool {
	return slices.Contains(verificationTransitions[s], next)
}

// InvestorProfile holds the identity documents an investor submits for
// verification. Investors without a profile are unverified.
type InvestorProfile struct {
	InvestorID          int64              `json:"investor_id"`
	CompanyName         string             `json:"company_name"`
	RepresentativeName  string             `json:"representative_name"`
	RepresentativeTitle string             `json:"representative_title"`
	Address             string             `json:"address"`
	IDDocumentRef       string             `json:"id_document_ref"`
	Status              VerificationStatus `json:"verification_status"`
	ReviewNote          string             `json:"review_note,omitempty"`
	SubmittedAt         time.Time          `json:"submitted_at"`
	ReviewedAt          *time.Time         `json:"reviewed_at,omitempty"`
	ReviewedBy          *int64             `json:"reviewed_by,omitempty"`
}

// ProfileAttrs are the investor-supplied verification fields.
type ProfileAttrs struct {
	CompanyName         string `json:"company_name"`
	RepresentativeName  string `json:"representative_name"`
	RepresentativeTitle string `json:"representative_title"`
	Address             string `json:"address"`
	IDDocumentRef       string `json:"id_document_ref"`
}
