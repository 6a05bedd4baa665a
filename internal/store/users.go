package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/riobizsols/assetledger/internal/model"
)

const userColumns = `id, username, password_hash, role, org_id, created_at, deleted_at`

func scanUser(s rowScanner) (*model.User, error) {
	u := &model.User{}
	var org sql.NullString
	if err := s.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &org, &u.CreatedAt, &u.DeletedAt); err != nil {
		return nil, err
	}
	u.OrgID = org.String
	return u, nil
}

// CreateUser creates a new user. orgID may be empty for users that act
// across organizations.
func CreateUser(ctx context.Context, db *sql.DB, username, passwordHash, role, orgID string) (*model.User, error) {
	if !model.ValidRole(role) {
		return nil, fmt.Errorf("role %q: %w", role, ErrValidation)
	}
	result, err := db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, role, org_id) VALUES (?, ?, ?, ?)`,
		username, passwordHash, role, nullable(&orgID),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("user %s: %w", username, ErrDuplicateIdentifier)
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	return GetUser(ctx, db, id)
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, db *sql.DB, id int64) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUserByUsername returns the active user with the given username.
func GetUserByUsername(ctx context.Context, db *sql.DB, username string) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ? AND deleted_at IS NULL`, username,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by username: %w", err)
	}
	return u, nil
}

// ListUsers returns all non-deleted users.
func ListUsers(ctx context.Context, db *sql.DB) ([]model.User, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE deleted_at IS NULL ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// CountUsers returns the number of active users.
func CountUsers(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE deleted_at IS NULL`,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, db *sql.DB, id int64, passwordHash string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ? AND deleted_at IS NULL`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteUser soft-deletes a user.
func DeleteUser(ctx context.Context, db *sql.DB, id int64) error {
	res, err := db.ExecContext(ctx,
		`UPDATE users SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return nil
}
