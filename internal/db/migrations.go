package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: databases created before revocation support lack the table.
	`CREATE TABLE IF NOT EXISTS revoked_tokens (
	     jti        TEXT PRIMARY KEY,
	     expires_at DATETIME NOT NULL
	 )`,
	// Migration 2: current-holder lookups filter on both columns.
	`CREATE INDEX IF NOT EXISTS idx_asset_assignments_current
	     ON asset_assignments(asset_id, action, latest_assignment_flag)`,
}

func migrate(db *sql.DB) error {
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}
	return nil
}
