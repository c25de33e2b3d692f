package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: the admin activity feed filters by entity type and
	// sorts by time.
	`CREATE INDEX IF NOT EXISTS idx_activity_entity
	     ON activity_events(entity_type, created_at)`,
	// Migration 2: verification queue lookups by status.
	`CREATE INDEX IF NOT EXISTS idx_investor_profiles_status
	     ON investor_profiles(status)`,
}

// Migrate ensures the schema and runs the migrations.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return err
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
