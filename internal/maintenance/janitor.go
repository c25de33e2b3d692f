// Package maintenance runs periodic cleanup jobs against the database.
package maintenance

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/erazemk/nepremicnine/internal/store"
)

// Janitor purges expired revoked tokens and uploaded documents no
// investor profile refers to.
type Janitor struct {
	db        *sql.DB
	orphanAge time.Duration
	cron      *cron.Cron
	now       func() time.Time
}

// New returns a janitor. Uploads younger than orphanAge are kept so an
// investor can still attach them to a verification.
func New(db *sql.DB, orphanAge time.Duration) *Janitor {
	return &Janitor{
		db:        db,
		orphanAge: orphanAge,
		cron:      cron.New(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RunOnce runs every job once.
func (j *Janitor) RunOnce(ctx context.Context) error {
	now := j.now()

	tokens, err := store.PurgeRevokedTokens(ctx, j.db, now)
	if err != nil {
		return fmt.Errorf("purging revoked tokens: %w", err)
	}

	blobs, err := store.PurgeOrphanBlobs(ctx, j.db, now.Add(-j.orphanAge))
	if err != nil {
		return fmt.Errorf("purging orphan blobs: %w", err)
	}

	if tokens > 0 || blobs > 0 {
		slog.Info("maintenance done", "revoked_tokens", tokens, "orphan_blobs", blobs)
	}
	return nil
}

// Start schedules RunOnce on the cron spec.
func (j *Janitor) Start(ctx context.Context, spec string) error {
	_, err := j.cron.AddFunc(spec, func() {
		if err := j.RunOnce(ctx); err != nil {
			slog.Error("maintenance failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	slog.Info("maintenance scheduled", "schedule", spec)
	j.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running job to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}
