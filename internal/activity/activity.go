// Package activity records the append-only log of state changes made in the
// marketplace and serves it back to administrators.
package activity

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/nepremicnine/internal/model"
	"github.com/erazemk/nepremicnine/internal/store"
)

// Sink receives activity events after the change they describe has been
// committed.
type Sink interface {
	Record(ctx context.Context, e model.ActivityEvent) error
}

// DBSink appends events to the activity_events table.
type DBSink struct {
	db *sql.DB
}

// NewDBSink returns a sink backed by db.
func NewDBSink(db *sql.DB) *DBSink {
	return &DBSink{db: db}
}

// Record stores e.
func (s *DBSink) Record(ctx context.Context, e model.ActivityEvent) error {
	if e.CreatedAt.IsZero() {
		return fmt.Errorf("recording %s: missing timestamp", e.Action)
	}
	e.CreatedAt = e.CreatedAt.UTC()
	if err := store.InsertActivity(ctx, s.db, &e); err != nil {
		return fmt.Errorf("recording %s: %w", e.Action, err)
	}
	return nil
}

// List returns the feed for filter, newest first.
func (s *DBSink) List(ctx context.Context, filter model.ActivityFilter) ([]model.ActivityEvent, error) {
	return store.ListActivity(ctx, s.db, filter)
}

// Discard drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Record(context.Context, model.ActivityEvent) error { return nil }
