package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/erazemk/nepremicnine/internal/db"
	"github.com/erazemk/nepremicnine/internal/store"
)

func TestRunOncePurges(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	store.RevokeToken(ctx, database, "expired", now.Add(-time.Hour))
	store.RevokeToken(ctx, database, "live", now.Add(time.Hour))
	store.PutBlob(ctx, database, "documents/old", "image/jpeg", []byte{1}, now.Add(-48*time.Hour))
	store.PutBlob(ctx, database, "documents/new", "image/jpeg", []byte{2}, now)

	j := New(database, 24*time.Hour)
	if err := j.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if revoked, _ := store.IsTokenRevoked(ctx, database, "expired"); revoked {
		t.Error("expected expired token purged")
	}
	if revoked, _ := store.IsTokenRevoked(ctx, database, "live"); !revoked {
		t.Error("expected live token kept")
	}
	if data, _, _ := store.GetBlob(ctx, database, "documents/old"); data != nil {
		t.Error("expected old orphan purged")
	}
	if data, _, _ := store.GetBlob(ctx, database, "documents/new"); data == nil {
		t.Error("expected recent upload kept")
	}
}

func TestStartRejectsBadSpec(t *testing.T) {
	j := New(db.NewTestDB(t), time.Hour)
	if err := j.Start(context.Background(), "every tuesday"); err == nil {
		t.Error("expected error for invalid cron spec")
	}
}

func TestStartAndStop(t *testing.T) {
	j := New(db.NewTestDB(t), time.Hour)
	if err := j.Start(context.Background(), "@every 1h"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	j.Stop()
}
