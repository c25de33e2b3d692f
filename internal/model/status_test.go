package model

import "testing"

func TestListingTransitions(t *testing.T) {
	tests := []struct {
		from, to ListingStatus
		allowed  bool
	}{
		{ListingDraft, ListingPendingReview, true},
		{ListingRejected, ListingPendingReview, true},
		{ListingPendingReview, ListingPublished, true},
		{ListingPendingReview, ListingRejected, true},
		{ListingPublished, ListingUnderOffer, true},
		{ListingUnderOffer, ListingSold, true},
		{ListingDraft, ListingPublished, false},
		{ListingPublished, ListingSold, false},
		{ListingSold, ListingPublished, false},
		{ListingUnderOffer, ListingPublished, false},
		{"bogus", ListingPendingReview, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.allowed {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}

func TestListingEditable(t *testing.T) {
	for _, s := range []ListingStatus{ListingDraft, ListingRejected} {
		if !s.Editable() {
			t.Errorf("%s should be editable", s)
		}
	}
	for _, s := range []ListingStatus{ListingPendingReview, ListingPublished, ListingUnderOffer, ListingSold} {
		if s.Editable() {
			t.Errorf("%s should not be editable", s)
		}
	}
}

func TestOfferTransitions(t *testing.T) {
	for _, next := range []OfferStatus{OfferAccepted, OfferRejected, OfferWithdrawn} {
		if !OfferPending.CanTransitionTo(next) {
			t.Errorf("pending -> %s should be allowed", next)
		}
	}
	for _, from := range []OfferStatus{OfferAccepted, OfferRejected, OfferWithdrawn} {
		for _, next := range []OfferStatus{OfferPending, OfferAccepted, OfferRejected, OfferWithdrawn} {
			if from.CanTransitionTo(next) {
				t.Errorf("%s -> %s should be rejected", from, next)
			}
		}
	}
}

func TestVerificationTransitions(t *testing.T) {
	tests := []struct {
		from, to VerificationStatus
		allowed  bool
	}{
		{VerificationUnverified, VerificationPendingReview, true},
		{VerificationRejected, VerificationPendingReview, true},
		{VerificationPendingReview, VerificationVerified, true},
		{VerificationPendingReview, VerificationRejected, true},
		{VerificationUnverified, VerificationVerified, false},
		{VerificationVerified, VerificationPendingReview, false},
		{VerificationVerified, VerificationRejected, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.allowed {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}

func TestOfferTypeValid(t *testing.T) {
	for _, ot := range []OfferType{OfferCash, OfferFinanced, OfferCreative} {
		if !ot.Valid() {
			t.Errorf("%s should be valid", ot)
		}
	}
	if OfferType("barter").Valid() {
		t.Error("barter should not be valid")
	}
}
