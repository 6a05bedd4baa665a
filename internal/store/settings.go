package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
)

const jwtSecretKey = "jwt_secret"

// GetSetting returns a setting value and whether it exists.
func GetSetting(ctx context.Context, db *sql.DB, key string) (string, bool, error) {
	var value string
	err := db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getting setting %s: %w", key, err)
	}
	return value, true, nil
}

// PutSetting stores a setting, replacing any previous value.
func PutSetting(ctx context.Context, db *sql.DB, key, value string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("storing setting %s: %w", key, err)
	}
	return nil
}

// GetJWTSecret returns the token signing secret, generating and storing one
// on first use. Concurrent first calls agree on a single value.
func GetJWTSecret(ctx context.Context, db *sql.DB) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}

	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`,
		jwtSecretKey, hex.EncodeToString(buf),
	)
	if err != nil {
		return "", fmt.Errorf("storing jwt secret: %w", err)
	}

	secret, ok, err := GetSetting(ctx, db, jwtSecretKey)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("jwt secret missing after insert")
	}
	return secret, nil
}
