package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS organizations (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'manager', 'user')),
    org_id        TEXT REFERENCES organizations(id),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS departments (
    id         TEXT PRIMARY KEY,
    org_id     TEXT NOT NULL REFERENCES organizations(id),
    name       TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS employees (
    id            TEXT PRIMARY KEY,
    org_id        TEXT NOT NULL REFERENCES organizations(id),
    emp_code      TEXT NOT NULL UNIQUE,
    name          TEXT NOT NULL,
    department_id TEXT REFERENCES departments(id),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS asset_types (
    id              TEXT PRIMARY KEY,
    org_id          TEXT NOT NULL REFERENCES organizations(id),
    name            TEXT NOT NULL,
    assignment_type TEXT NOT NULL CHECK (assignment_type IN ('User', 'Department')),
    created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS asset_group_headers (
    id         TEXT PRIMARY KEY,
    org_id     TEXT NOT NULL REFERENCES organizations(id),
    name       TEXT NOT NULL,
    created_by TEXT NOT NULL,
    created_on DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    changed_by TEXT,
    changed_on DATETIME
);

CREATE TABLE IF NOT EXISTS assets (
    id            TEXT PRIMARY KEY,
    org_id        TEXT NOT NULL REFERENCES organizations(id),
    asset_type_id TEXT NOT NULL REFERENCES asset_types(id),
    name          TEXT NOT NULL,
    serial_number TEXT,
    description   TEXT,
    image         BLOB,
    image_mime    TEXT,
    group_id      TEXT REFERENCES asset_group_headers(id),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE INDEX IF NOT EXISTS idx_assets_group ON assets(group_id);

CREATE TABLE IF NOT EXISTS asset_group_members (
    id       TEXT PRIMARY KEY,
    group_id TEXT NOT NULL REFERENCES asset_group_headers(id),
    asset_id TEXT NOT NULL UNIQUE REFERENCES assets(id)
);

CREATE INDEX IF NOT EXISTS idx_asset_group_members_group ON asset_group_members(group_id);

CREATE TABLE IF NOT EXISTS asset_assignments (
    id                     TEXT PRIMARY KEY,
    asset_id               TEXT NOT NULL REFERENCES assets(id),
    org_id                 TEXT NOT NULL REFERENCES organizations(id),
    department_id          TEXT REFERENCES departments(id),
    employee_int_id        TEXT REFERENCES employees(id),
    action                 TEXT NOT NULL CHECK (action IN ('A', 'C')),
    action_on              DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    action_by              TEXT NOT NULL,
    latest_assignment_flag INTEGER NOT NULL DEFAULT 0 CHECK (latest_assignment_flag IN (0, 1)),
    assigned_on            DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_asset_assignments_asset ON asset_assignments(asset_id);
CREATE INDEX IF NOT EXISTS idx_asset_assignments_department ON asset_assignments(department_id);
CREATE INDEX IF NOT EXISTS idx_asset_assignments_employee ON asset_assignments(employee_int_id);

CREATE TABLE IF NOT EXISTS id_sequences (
    kind  TEXT PRIMARY KEY,
    value INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist,
// then applies pending migrations.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return migrate(db)
}
