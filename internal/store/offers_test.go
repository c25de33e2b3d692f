package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/nepremicnine/internal/db"
	"github.com/erazemk/nepremicnine/internal/model"
)

// publishedListing creates an owner, an investor and a published listing.
func publishedListing(t *testing.T, database *sql.DB) (*model.Listing, *model.User) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	owner := newOwner(t, database, "olga")
	investor, err := CreateUser(ctx, database, "ivan", "hash", model.RoleInvestor)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	l, _ := CreateListing(ctx, database, owner.ID, testAttrs(350000), now)
	SetListingStatus(ctx, database, l.ID, model.ListingDraft, model.ListingPendingReview, 1, "", now)
	SetListingStatus(ctx, database, l.ID, model.ListingPendingReview, model.ListingPublished, 2, "", now)

	l, _ = GetListing(ctx, database, l.ID)
	return l, investor
}

func TestCreateOfferOnPublishedListing(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	l, investor := publishedListing(t, database)

	id, err := CreateOffer(ctx, database, l.ID, investor.ID, decimal.NewFromInt(340000), model.OfferCash, "", time.Now().UTC())
	if err != nil {
		t.Fatalf("CreateOffer: %v", err)
	}
	if id == 0 {
		t.Fatal("expected offer to be created")
	}

	o, _ := GetOffer(ctx, database, id)
	if o.Status != model.OfferPending || o.Type != model.OfferCash {
		t.Errorf("unexpected offer: %+v", o)
	}
	if o.ListingAddress != "123 Main St" {
		t.Errorf("expected joined listing address, got %q", o.ListingAddress)
	}
}

func TestCreateOfferRefusedWhenNotPublished(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	l, investor := publishedListing(t, database)

	SetListingStatus(ctx, database, l.ID, model.ListingPublished, model.ListingUnderOffer, l.Version, "", now)

	id, err := CreateOffer(ctx, database, l.ID, investor.ID, decimal.NewFromInt(1), model.OfferCash, "", now)
	if err != nil {
		t.Fatalf("CreateOffer: %v", err)
	}
	if id != 0 {
		t.Error("expected no offer on a listing under offer")
	}

	n, _ := CountOffers(ctx, database, l.ID, model.OfferPending)
	if n != 0 {
		t.Errorf("expected no pending offers, got %d", n)
	}
}

func TestRejectPendingOffersSkipsWinner(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	l, investor := publishedListing(t, database)

	a, _ := CreateOffer(ctx, database, l.ID, investor.ID, decimal.NewFromInt(300000), model.OfferCash, "", now)
	b, _ := CreateOffer(ctx, database, l.ID, investor.ID, decimal.NewFromInt(310000), model.OfferFinanced, "", now)
	c, _ := CreateOffer(ctx, database, l.ID, investor.ID, decimal.NewFromInt(320000), model.OfferCreative, "", now)
	SetOfferStatus(ctx, database, c, model.OfferPending, model.OfferWithdrawn, nil, now)

	rejected, err := RejectPendingOffers(ctx, database, l.ID, b, l.OwnerID, now)
	if err != nil {
		t.Fatalf("RejectPendingOffers: %v", err)
	}
	if len(rejected) != 1 || rejected[0] != a {
		t.Errorf("expected only offer %d rejected, got %v", a, rejected)
	}

	got, _ := GetOffer(ctx, database, c)
	if got.Status != model.OfferWithdrawn {
		t.Errorf("withdrawn offer must stay withdrawn, got %s", got.Status)
	}
}

func TestOneAcceptedOfferPerListingIndex(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	l, investor := publishedListing(t, database)

	a, _ := CreateOffer(ctx, database, l.ID, investor.ID, decimal.NewFromInt(300000), model.OfferCash, "", now)
	b, _ := CreateOffer(ctx, database, l.ID, investor.ID, decimal.NewFromInt(310000), model.OfferCash, "", now)

	if ok, err := SetOfferStatus(ctx, database, a, model.OfferPending, model.OfferAccepted, &l.OwnerID, now); err != nil || !ok {
		t.Fatalf("accept a: ok=%v err=%v", ok, err)
	}
	if _, err := SetOfferStatus(ctx, database, b, model.OfferPending, model.OfferAccepted, &l.OwnerID, now); err == nil {
		t.Error("expected unique index to refuse a second accepted offer")
	}
}

func TestSetOfferStatusGuarded(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	l, investor := publishedListing(t, database)

	id, _ := CreateOffer(ctx, database, l.ID, investor.ID, decimal.NewFromInt(300000), model.OfferCash, "", now)

	ok, _ := SetOfferStatus(ctx, database, id, model.OfferPending, model.OfferWithdrawn, nil, now)
	if !ok {
		t.Fatal("expected first withdraw to succeed")
	}
	ok, _ = SetOfferStatus(ctx, database, id, model.OfferPending, model.OfferWithdrawn, nil, now)
	if ok {
		t.Error("expected second withdraw to match nothing")
	}

	mine, _ := ListOffers(ctx, database, model.OfferFilter{InvestorID: investor.ID})
	if len(mine) != 1 || mine[0].Status != model.OfferWithdrawn {
		t.Errorf("unexpected offers: %+v", mine)
	}
}
