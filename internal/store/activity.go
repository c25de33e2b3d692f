package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/erazemk/nepremicnine/internal/model"
)

// DefaultActivityLimit caps the activity feed when no limit is given.
const DefaultActivityLimit = 100

// MaxActivityLimit is the largest page the feed returns.
const MaxActivityLimit = 1000

// InsertActivity appends an event to the activity log.
func InsertActivity(ctx context.Context, q Querier, e *model.ActivityEvent) error {
	result, err := q.ExecContext(ctx,
		`INSERT INTO activity_events (actor_id, actor_role, action, entity_type, entity_id, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ActorID, e.ActorRole, e.Action, e.EntityType, e.EntityID, e.Details, e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording activity: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting activity id: %w", err)
	}
	e.ID = id
	return nil
}

// ListActivity returns the newest events first. Search matches action,
// details and actor username case-insensitively.
func ListActivity(ctx context.Context, q Querier, filter model.ActivityFilter) ([]model.ActivityEvent, error) {
	query := `SELECT a.id, a.actor_id, a.actor_role, a.action, a.entity_type, a.entity_id,
	                 COALESCE(a.details, ''), a.created_at, COALESCE(u.username, '')
	          FROM activity_events a
	          LEFT JOIN users u ON u.id = a.actor_id
	          WHERE 1=1`
	var args []any

	if filter.EntityType != "" {
		query += ` AND a.entity_type = ?`
		args = append(args, filter.EntityType)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query += ` AND (LOWER(a.action) LIKE ? OR LOWER(COALESCE(a.details, '')) LIKE ? OR LOWER(COALESCE(u.username, '')) LIKE ?)`
		args = append(args, like, like, like)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	limit = min(limit, MaxActivityLimit)
	query += ` ORDER BY a.created_at DESC, a.id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	defer rows.Close()

	var events []model.ActivityEvent
	for rows.Next() {
		var e model.ActivityEvent
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActorRole, &e.Action, &e.EntityType, &e.EntityID,
			&e.Details, &e.CreatedAt, &e.ActorName); err != nil {
			return nil, fmt.Errorf("scanning activity: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
