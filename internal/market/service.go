// Package market enforces the listing and offer lifecycle: who may do what,
// in which state, and the atomic accept cascade.
//
// Every mutation on a listing or its offers runs under that listing's lock
// and inside one SQL transaction. The lock is always taken before the
// transaction begins, and nothing inside a transaction touches the
// database outside it.
package market

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/nepremicnine/internal/activity"
	"github.com/erazemk/nepremicnine/internal/logging"
	"github.com/erazemk/nepremicnine/internal/model"
)

// Service bundles the marketplace components over one database.
type Service struct {
	Registry    *Registry
	Gate        *Gate
	Ledger      *Ledger
	Coordinator *Coordinator
	Moderation  *Moderation
}

// engine is the state shared by all components.
type engine struct {
	db    *sql.DB
	locks *lockSet
	sink  activity.Sink
	now   func() time.Time
}

// New wires the components. A nil sink discards activity events.
func New(db *sql.DB, sink activity.Sink) *Service {
	if sink == nil {
		sink = activity.Discard
	}
	e := &engine{
		db:    db,
		locks: newLockSet(),
		sink:  sink,
		now:   func() time.Time { return time.Now().UTC() },
	}

	gate := &Gate{e}
	return &Service{
		Registry:    &Registry{e},
		Gate:        gate,
		Ledger:      &Ledger{engine: e, gate: gate},
		Coordinator: &Coordinator{e},
		Moderation:  &Moderation{engine: e, gate: gate},
	}
}

// withTx runs fn in a transaction, committing only if fn succeeds.
func (e *engine) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// event describes one committed change.
type event struct {
	action     string
	entityType string
	entityID   int64
	details    string
}

// record writes an audit log line for each event and hands it to the sink.
// The change is already committed, so sink failures are only logged.
func (e *engine) record(ctx context.Context, actor Actor, at time.Time, events ...event) {
	logger := logging.FromContext(ctx)
	for _, ev := range events {
		logger.Info(ev.action,
			"actor", actor.ID,
			"role", actor.Role,
			ev.entityType, ev.entityID,
			"details", ev.details,
		)

		err := e.sink.Record(ctx, model.ActivityEvent{
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     ev.action,
			EntityType: ev.entityType,
			EntityID:   ev.entityID,
			Details:    ev.details,
			CreatedAt:  at,
		})
		if err != nil {
			logger.Error("failed to record activity", "action", ev.action, "error", err)
		}
	}
}
