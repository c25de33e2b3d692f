package market

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/erazemk/nepremicnine/internal/model"
	"github.com/erazemk/nepremicnine/internal/store"
)

func TestConcurrentAcceptsOneWinner(t *testing.T) {
	for i := range 10 {
		t.Run(fmt.Sprintf("round%d", i), func(t *testing.T) {
			f := setup(t)
			ctx := context.Background()
			l := f.published(t, 350000)
			a := f.offer(t, f.investor, l.ID, 300000, model.OfferCash)
			b := f.offer(t, f.investor, l.ID, 310000, model.OfferFinanced)

			var wg sync.WaitGroup
			errs := make([]error, 2)
			for j, id := range []int64{a.ID, b.ID} {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, errs[j] = f.svc.Coordinator.AcceptOffer(ctx, f.owner, l.ID, id)
				}()
			}
			wg.Wait()

			var wins, decided int
			for _, err := range errs {
				switch {
				case err == nil:
					wins++
				case errors.Is(err, ErrAlreadyDecided):
					decided++
				default:
					t.Fatalf("unexpected error: %v", err)
				}
			}
			if wins != 1 || decided != 1 {
				t.Fatalf("expected one winner and one already decided, got %d and %d", wins, decided)
			}

			accepted, _ := store.CountOffers(ctx, f.db, l.ID, model.OfferAccepted)
			rejected, _ := store.CountOffers(ctx, f.db, l.ID, model.OfferRejected)
			if accepted != 1 || rejected != 1 {
				t.Errorf("expected 1 accepted and 1 rejected, got %d and %d", accepted, rejected)
			}
		})
	}
}

func TestConcurrentMixedOperations(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	l := f.published(t, 500000)

	investors := []Actor{f.investor}
	for i := range 4 {
		inv := newActor(t, f.db, fmt.Sprintf("investor%d", i), model.RoleInvestor)
		f.verify(t, inv)
		investors = append(investors, inv)
	}

	var initial []*model.Offer
	for i, inv := range investors {
		initial = append(initial, f.offer(t, inv, l.ID, int64(400000+i*1000), model.OfferCash))
	}

	var wg sync.WaitGroup
	for i, o := range initial {
		wg.Add(3)
		go func() {
			defer wg.Done()
			f.svc.Coordinator.AcceptOffer(ctx, f.owner, l.ID, o.ID)
		}()
		go func() {
			defer wg.Done()
			f.svc.Ledger.Withdraw(ctx, investors[i], o.ID)
		}()
		go func() {
			defer wg.Done()
			f.svc.Ledger.Submit(ctx, investors[i], l.ID, OfferInput{
				Amount: decimal.NewFromInt(int64(450000 + i)),
				Type:   model.OfferFinanced,
			})
		}()
	}
	wg.Wait()

	offers, err := store.ListOffers(ctx, f.db, model.OfferFilter{ListingID: l.ID})
	if err != nil {
		t.Fatalf("ListOffers: %v", err)
	}

	counts := map[model.OfferStatus]int{}
	for _, o := range offers {
		counts[o.Status]++
	}
	if counts[model.OfferAccepted] > 1 {
		t.Fatalf("more than one accepted offer: %v", counts)
	}

	status := f.listingStatus(t, l.ID)
	if counts[model.OfferAccepted] == 1 {
		if status != model.ListingUnderOffer {
			t.Errorf("accepted offer but listing is %s", status)
		}
		if counts[model.OfferPending] != 0 {
			t.Errorf("pending offers left after accept: %v", counts)
		}
	} else if status != model.ListingPublished {
		t.Errorf("no accepted offer but listing is %s", status)
	}

	if n := f.svc.Coordinator.locks.size(); n != 0 {
		t.Errorf("expected all listing locks released, %d held", n)
	}
}

func TestLockSetSerializesPerKey(t *testing.T) {
	s := newLockSet()

	var mu sync.Mutex
	inside := map[int64]int{}
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := int64(i % 3)
			unlock := s.lock(key)
			defer unlock()

			mu.Lock()
			inside[key]++
			if inside[key] > 1 {
				t.Errorf("two holders of lock %d", key)
			}
			mu.Unlock()

			mu.Lock()
			inside[key]--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if n := s.size(); n != 0 {
		t.Errorf("expected empty lock set, got %d", n)
	}
}
