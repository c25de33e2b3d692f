package market

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/erazemk/nepremicnine/internal/activity"
	"github.com/erazemk/nepremicnine/internal/db"
	"github.com/erazemk/nepremicnine/internal/model"
	"github.com/erazemk/nepremicnine/internal/store"
)

type fixture struct {
	db       *sql.DB
	svc      *Service
	sink     *activity.DBSink
	admin    Actor
	owner    Actor
	investor Actor
}

func newActor(t *testing.T, database *sql.DB, name, role string) Actor {
	t.Helper()
	u, err := store.CreateUser(context.Background(), database, name, "hash", role)
	if err != nil {
		t.Fatalf("CreateUser %s: %v", name, err)
	}
	return Actor{ID: u.ID, Role: u.Role, Name: u.Username}
}

// setup returns a service with an admin, an owner and a verified investor.
func setup(t *testing.T) *fixture {
	t.Helper()
	database := db.NewTestDB(t)
	sink := activity.NewDBSink(database)

	f := &fixture{
		db:       database,
		svc:      New(database, sink),
		sink:     sink,
		admin:    newActor(t, database, "admin", model.RoleAdmin),
		owner:    newActor(t, database, "olga", model.RoleOwner),
		investor: newActor(t, database, "ivan", model.RoleInvestor),
	}
	f.verify(t, f.investor)
	return f
}

func (f *fixture) verify(t *testing.T, investor Actor) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.svc.Gate.SubmitVerification(ctx, investor, profileAttrs()); err != nil {
		t.Fatalf("SubmitVerification: %v", err)
	}
	if _, err := f.svc.Moderation.ReviewVerification(ctx, f.admin, investor.ID, model.VerificationVerified, ""); err != nil {
		t.Fatalf("ReviewVerification: %v", err)
	}
}

// published creates a listing priced at price and takes it through review.
func (f *fixture) published(t *testing.T, price int64) *model.Listing {
	t.Helper()
	ctx := context.Background()

	l, err := f.svc.Registry.Create(ctx, f.owner, listingAttrs(price))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.svc.Registry.SubmitForReview(ctx, f.owner, l.ID); err != nil {
		t.Fatalf("SubmitForReview: %v", err)
	}
	l, err = f.svc.Moderation.ApproveListing(ctx, f.admin, l.ID)
	if err != nil {
		t.Fatalf("ApproveListing: %v", err)
	}
	return l
}

func (f *fixture) offer(t *testing.T, investor Actor, listingID, amount int64, offerType model.OfferType) *model.Offer {
	t.Helper()
	o, err := f.svc.Ledger.Submit(context.Background(), investor, listingID, OfferInput{
		Amount: decimal.NewFromInt(amount),
		Type:   offerType,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return o
}

func (f *fixture) offerStatus(t *testing.T, id int64) model.OfferStatus {
	t.Helper()
	o, err := store.GetOffer(context.Background(), f.db, id)
	if err != nil || o == nil {
		t.Fatalf("GetOffer %d: %v", id, err)
	}
	return o.Status
}

func (f *fixture) listingStatus(t *testing.T, id int64) model.ListingStatus {
	t.Helper()
	l, err := store.GetListing(context.Background(), f.db, id)
	if err != nil || l == nil {
		t.Fatalf("GetListing %d: %v", id, err)
	}
	return l.Status
}

func (f *fixture) offerCount(t *testing.T, listingID int64) int {
	t.Helper()
	offers, err := store.ListOffers(context.Background(), f.db, model.OfferFilter{ListingID: listingID})
	if err != nil {
		t.Fatalf("ListOffers: %v", err)
	}
	return len(offers)
}

func listingAttrs(price int64) model.ListingAttrs {
	return model.ListingAttrs{
		Title:       "Family home",
		Address:     "123 Main St",
		Description: "4BR/3BA",
		Price:       decimal.NewFromInt(price),
	}
}

func profileAttrs() model.ProfileAttrs {
	return model.ProfileAttrs{
		CompanyName:         "ABC Corp",
		RepresentativeName:  "John Smith",
		RepresentativeTitle: "CEO",
		Address:             "1 Market St",
		IDDocumentRef:       "documents/abc.jpg",
	}
}

func expectErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected %v, got %v", target, err)
	}
}

func TestAcceptScenario(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	l, err := f.svc.Registry.Create(ctx, f.owner, listingAttrs(350000))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if l.Status != model.ListingDraft {
		t.Fatalf("expected draft, got %s", l.Status)
	}

	l, _ = f.svc.Registry.SubmitForReview(ctx, f.owner, l.ID)
	if l.Status != model.ListingPendingReview {
		t.Fatalf("expected pending_review, got %s", l.Status)
	}

	l, _ = f.svc.Moderation.ApproveListing(ctx, f.admin, l.ID)
	if l.Status != model.ListingPublished {
		t.Fatalf("expected published, got %s", l.Status)
	}

	o := f.offer(t, f.investor, l.ID, 340000, model.OfferCash)
	if o.Status != model.OfferPending {
		t.Fatalf("expected pending offer, got %s", o.Status)
	}

	d, err := f.svc.Coordinator.AcceptOffer(ctx, f.owner, l.ID, o.ID)
	if err != nil {
		t.Fatalf("AcceptOffer: %v", err)
	}
	if d.Offer.Status != model.OfferAccepted {
		t.Errorf("expected accepted offer, got %s", d.Offer.Status)
	}
	if d.Listing.Status != model.ListingUnderOffer {
		t.Errorf("expected under_offer listing, got %s", d.Listing.Status)
	}
	if d.Offer.DecidedBy == nil || *d.Offer.DecidedBy != f.owner.ID {
		t.Errorf("expected decided_by owner, got %v", d.Offer.DecidedBy)
	}
}

func TestAcceptRejectsOtherPendingOffers(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	other := newActor(t, f.db, "ines", model.RoleInvestor)
	f.verify(t, other)

	l := f.published(t, 350000)
	low := f.offer(t, f.investor, l.ID, 300000, model.OfferCash)
	high := f.offer(t, other, l.ID, 310000, model.OfferFinanced)

	d, err := f.svc.Coordinator.AcceptOffer(ctx, f.owner, l.ID, high.ID)
	if err != nil {
		t.Fatalf("AcceptOffer: %v", err)
	}

	if got := f.offerStatus(t, low.ID); got != model.OfferRejected {
		t.Errorf("expected 300000 offer rejected, got %s", got)
	}
	if got := f.offerStatus(t, high.ID); got != model.OfferAccepted {
		t.Errorf("expected 310000 offer accepted, got %s", got)
	}
	if len(d.Rejected) != 1 || d.Rejected[0] != low.ID {
		t.Errorf("expected rejected ids [%d], got %v", low.ID, d.Rejected)
	}
	if got := f.listingStatus(t, l.ID); got != model.ListingUnderOffer {
		t.Errorf("expected under_offer, got %s", got)
	}

	// The losing offer cannot be accepted afterwards.
	_, err = f.svc.Coordinator.AcceptOffer(ctx, f.owner, l.ID, low.ID)
	expectErr(t, err, ErrAlreadyDecided)
	expectErr(t, err, ErrStateConflict)
}

func TestSubmitOfferOnNonPublishedListing(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	draft, _ := f.svc.Registry.Create(ctx, f.owner, listingAttrs(100000))
	_, err := f.svc.Ledger.Submit(ctx, f.investor, draft.ID, OfferInput{Amount: decimal.NewFromInt(90000), Type: model.OfferCash})
	expectErr(t, err, ErrStateConflict)

	l := f.published(t, 200000)
	o := f.offer(t, f.investor, l.ID, 190000, model.OfferCash)
	if _, err := f.svc.Coordinator.AcceptOffer(ctx, f.owner, l.ID, o.ID); err != nil {
		t.Fatalf("AcceptOffer: %v", err)
	}

	_, err = f.svc.Ledger.Submit(ctx, f.investor, l.ID, OfferInput{Amount: decimal.NewFromInt(195000), Type: model.OfferCash})
	expectErr(t, err, ErrStateConflict)

	if n := f.offerCount(t, draft.ID); n != 0 {
		t.Errorf("expected no offers on draft, got %d", n)
	}
	if n := f.offerCount(t, l.ID); n != 1 {
		t.Errorf("expected only the accepted offer, got %d", n)
	}
}

func TestSubmitOfferRequiresVerification(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	l := f.published(t, 350000)

	unverified := newActor(t, f.db, "uma", model.RoleInvestor)
	_, err := f.svc.Ledger.Submit(ctx, unverified, l.ID, OfferInput{Amount: decimal.NewFromInt(1), Type: model.OfferCash})
	expectErr(t, err, ErrVerificationRequired)

	// Pending review is still not verified.
	if _, err := f.svc.Gate.SubmitVerification(ctx, unverified, profileAttrs()); err != nil {
		t.Fatalf("SubmitVerification: %v", err)
	}
	_, err = f.svc.Ledger.Submit(ctx, unverified, l.ID, OfferInput{Amount: decimal.NewFromInt(1), Type: model.OfferCash})
	expectErr(t, err, ErrVerificationRequired)

	if n := f.offerCount(t, l.ID); n != 0 {
		t.Errorf("expected no offers recorded, got %d", n)
	}
}

func TestSubmitOfferCheckOrder(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	unverified := newActor(t, f.db, "uma", model.RoleInvestor)
	draft, _ := f.svc.Registry.Create(ctx, f.owner, listingAttrs(100000))

	tests := []struct {
		name      string
		actor     Actor
		listingID int64
		in        OfferInput
		want      error
	}{
		{"zero amount beats missing listing", f.investor, 9999, OfferInput{Amount: decimal.Zero, Type: model.OfferCash}, ErrValidation},
		{"negative amount", f.investor, draft.ID, OfferInput{Amount: decimal.NewFromInt(-5), Type: model.OfferCash}, ErrValidation},
		{"unknown type", f.investor, draft.ID, OfferInput{Amount: decimal.NewFromInt(5), Type: "barter"}, ErrValidation},
		{"missing listing", f.investor, 9999, OfferInput{Amount: decimal.NewFromInt(5), Type: model.OfferCash}, ErrNotFound},
		{"draft beats unverified", unverified, draft.ID, OfferInput{Amount: decimal.NewFromInt(5), Type: model.OfferCash}, ErrStateConflict},
		{"owner cannot offer", f.owner, draft.ID, OfferInput{Amount: decimal.NewFromInt(5), Type: model.OfferCash}, ErrAuthorization},
		{"zero actor", Actor{}, draft.ID, OfferInput{Amount: decimal.NewFromInt(5), Type: model.OfferCash}, ErrAuthorization},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Ledger.Submit(ctx, tt.actor, tt.listingID, tt.in)
			expectErr(t, err, tt.want)
		})
	}
}

func TestWithdrawTwice(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	l := f.published(t, 350000)
	o := f.offer(t, f.investor, l.ID, 300000, model.OfferCash)

	withdrawn, err := f.svc.Ledger.Withdraw(ctx, f.investor, o.ID)
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if withdrawn.Status != model.OfferWithdrawn {
		t.Fatalf("expected withdrawn, got %s", withdrawn.Status)
	}

	_, err = f.svc.Ledger.Withdraw(ctx, f.investor, o.ID)
	expectErr(t, err, ErrStateConflict)

	if got := f.offerStatus(t, o.ID); got != model.OfferWithdrawn {
		t.Errorf("state changed after failed withdraw: %s", got)
	}

	// A withdrawn offer cannot be accepted.
	_, err = f.svc.Coordinator.AcceptOffer(ctx, f.owner, l.ID, o.ID)
	expectErr(t, err, ErrAlreadyDecided)
}

func TestWithdrawSomeoneElsesOffer(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	other := newActor(t, f.db, "ines", model.RoleInvestor)
	l := f.published(t, 350000)
	o := f.offer(t, f.investor, l.ID, 300000, model.OfferCash)

	_, err := f.svc.Ledger.Withdraw(ctx, other, o.ID)
	expectErr(t, err, ErrAuthorization)

	_, err = f.svc.Ledger.Withdraw(ctx, f.investor, 9999)
	expectErr(t, err, ErrNotFound)
}

func TestRejectOfferLeavesListing(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	l := f.published(t, 350000)
	a := f.offer(t, f.investor, l.ID, 300000, model.OfferCash)
	b := f.offer(t, f.investor, l.ID, 310000, model.OfferCreative)

	rejected, err := f.svc.Coordinator.RejectOffer(ctx, f.owner, l.ID, a.ID)
	if err != nil {
		t.Fatalf("RejectOffer: %v", err)
	}
	if rejected.Status != model.OfferRejected {
		t.Errorf("expected rejected, got %s", rejected.Status)
	}
	if got := f.offerStatus(t, b.ID); got != model.OfferPending {
		t.Errorf("expected other offer still pending, got %s", got)
	}
	if got := f.listingStatus(t, l.ID); got != model.ListingPublished {
		t.Errorf("expected listing still published, got %s", got)
	}

	_, err = f.svc.Coordinator.RejectOffer(ctx, f.owner, l.ID, a.ID)
	expectErr(t, err, ErrAlreadyDecided)
}

func TestDecisionAuthorization(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	stranger := newActor(t, f.db, "oskar", model.RoleOwner)
	l := f.published(t, 350000)
	o := f.offer(t, f.investor, l.ID, 300000, model.OfferCash)

	_, err := f.svc.Coordinator.AcceptOffer(ctx, stranger, l.ID, o.ID)
	expectErr(t, err, ErrAuthorization)

	_, err = f.svc.Coordinator.AcceptOffer(ctx, f.investor, l.ID, o.ID)
	expectErr(t, err, ErrAuthorization)

	_, err = f.svc.Coordinator.RejectOffer(ctx, stranger, l.ID, o.ID)
	expectErr(t, err, ErrAuthorization)

	other := f.published(t, 100000)
	_, err = f.svc.Coordinator.AcceptOffer(ctx, f.owner, other.ID, o.ID)
	expectErr(t, err, ErrNotFound)

	// Admins may decide on any listing.
	if _, err := f.svc.Coordinator.AcceptOffer(ctx, f.admin, l.ID, o.ID); err != nil {
		t.Fatalf("admin AcceptOffer: %v", err)
	}
}

func TestCompleteSale(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	l := f.published(t, 350000)

	_, err := f.svc.Coordinator.CompleteSale(ctx, f.owner, l.ID)
	expectErr(t, err, ErrStateConflict)

	o := f.offer(t, f.investor, l.ID, 340000, model.OfferCash)
	f.svc.Coordinator.AcceptOffer(ctx, f.owner, l.ID, o.ID)

	sold, err := f.svc.Coordinator.CompleteSale(ctx, f.owner, l.ID)
	if err != nil {
		t.Fatalf("CompleteSale: %v", err)
	}
	if sold.Status != model.ListingSold {
		t.Errorf("expected sold, got %s", sold.Status)
	}
}

func TestFailedOperationsRecordNothing(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	l := f.published(t, 350000)

	before, _ := f.sink.List(ctx, model.ActivityFilter{Limit: 1000})

	f.svc.Ledger.Submit(ctx, f.investor, l.ID, OfferInput{Amount: decimal.Zero, Type: model.OfferCash})
	f.svc.Moderation.ApproveListing(ctx, f.admin, l.ID)
	f.svc.Registry.SubmitForReview(ctx, f.owner, l.ID)

	after, _ := f.sink.List(ctx, model.ActivityFilter{Limit: 1000})
	if len(after) != len(before) {
		t.Errorf("expected no new activity, got %d new events", len(after)-len(before))
	}
}

func TestAcceptRecordsActivity(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	l := f.published(t, 350000)
	a := f.offer(t, f.investor, l.ID, 300000, model.OfferCash)
	b := f.offer(t, f.investor, l.ID, 310000, model.OfferCash)

	f.svc.Coordinator.AcceptOffer(ctx, f.owner, l.ID, b.ID)

	events, _ := f.sink.List(ctx, model.ActivityFilter{EntityType: model.EntityOffer})
	actions := map[int64]string{}
	for _, e := range events {
		if _, seen := actions[e.EntityID]; !seen {
			actions[e.EntityID] = e.Action
		}
	}
	if actions[b.ID] != "offer accepted" {
		t.Errorf("expected latest event for accepted offer, got %q", actions[b.ID])
	}
	if actions[a.ID] != "offer rejected" {
		t.Errorf("expected latest event for superseded offer, got %q", actions[a.ID])
	}
}

type failingSink struct{}

func (failingSink) Record(context.Context, model.ActivityEvent) error {
	return errors.New("sink unavailable")
}

func TestSinkFailureKeepsCommittedChange(t *testing.T) {
	database := db.NewTestDB(t)
	svc := New(database, failingSink{})
	owner := newActor(t, database, "olga", model.RoleOwner)

	l, err := svc.Registry.Create(context.Background(), owner, listingAttrs(100000))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, _ := store.GetListing(context.Background(), database, l.ID)
	if got == nil {
		t.Error("expected listing to be committed despite sink failure")
	}
}
