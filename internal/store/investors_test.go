package store

import (
	"context"
	"testing"
	"time"

	"github.com/erazemk/nepremicnine/internal/db"
	"github.com/erazemk/nepremicnine/internal/model"
)

func testProfile() model.ProfileAttrs {
	return model.ProfileAttrs{
		CompanyName:         "ABC Corp",
		RepresentativeName:  "John Smith",
		RepresentativeTitle: "CEO",
		Address:             "1 Market St",
		IDDocumentRef:       "documents/abc.jpg",
	}
}

func TestInvestorWithoutProfileIsUnverified(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	investor, _ := CreateUser(ctx, database, "ivan", "hash", model.RoleInvestor)

	status, err := GetVerificationStatus(ctx, database, investor.ID)
	if err != nil {
		t.Fatalf("GetVerificationStatus: %v", err)
	}
	if status != model.VerificationUnverified {
		t.Errorf("expected unverified, got %s", status)
	}

	p, _ := GetInvestorProfile(ctx, database, investor.ID)
	if p != nil {
		t.Error("expected no profile")
	}
}

func TestSubmitAndReviewProfile(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	admin, _ := CreateUser(ctx, database, "admin", "hash", model.RoleAdmin)
	investor, _ := CreateUser(ctx, database, "ivan", "hash", model.RoleInvestor)

	ok, err := SubmitInvestorProfile(ctx, database, investor.ID, testProfile(), now)
	if err != nil || !ok {
		t.Fatalf("SubmitInvestorProfile: ok=%v err=%v", ok, err)
	}

	// Resubmission while pending is refused.
	ok, _ = SubmitInvestorProfile(ctx, database, investor.ID, testProfile(), now)
	if ok {
		t.Error("expected resubmission while pending to be refused")
	}

	ok, _ = SetVerificationStatus(ctx, database, investor.ID, model.VerificationPendingReview, model.VerificationRejected, admin.ID, "blurry ID", now)
	if !ok {
		t.Fatal("expected rejection to succeed")
	}

	p, _ := GetInvestorProfile(ctx, database, investor.ID)
	if p.Status != model.VerificationRejected || p.ReviewNote != "blurry ID" || p.ReviewedBy == nil || *p.ReviewedBy != admin.ID {
		t.Errorf("unexpected profile after rejection: %+v", p)
	}

	// Rejected investors may resubmit; review fields reset.
	attrs := testProfile()
	attrs.IDDocumentRef = "documents/clear.jpg"
	ok, _ = SubmitInvestorProfile(ctx, database, investor.ID, attrs, now)
	if !ok {
		t.Fatal("expected resubmission after rejection")
	}

	p, _ = GetInvestorProfile(ctx, database, investor.ID)
	if p.Status != model.VerificationPendingReview || p.ReviewNote != "" || p.ReviewedBy != nil || p.IDDocumentRef != "documents/clear.jpg" {
		t.Errorf("unexpected profile after resubmission: %+v", p)
	}

	pending, _ := ListInvestorProfiles(ctx, database, model.VerificationPendingReview)
	if len(pending) != 1 {
		t.Errorf("expected 1 pending profile, got %d", len(pending))
	}
}
