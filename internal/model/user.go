package model

import (
	"errors"
	"time"
)

// User represents an authentication user. A user may act for one organization.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	OrgID        string     `json:"org_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Roles.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleUser    = "user"
)

// RoleAtLeast checks if role meets or exceeds the minimum required role.
func RoleAtLeast(role, minimum string) bool {
	levels := map[string]int{
		RoleAdmin:   3,
		RoleManager: 2,
		RoleUser:    1,
	}
	have, ok := levels[role]
	if !ok {
		return false
	}
	want, ok := levels[minimum]
	if !ok {
		return false
	}
	return have >= want
}

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// ErrPasswordTooShort is returned for passwords under MinPasswordLength.
var ErrPasswordTooShort = errors.New("password must be at least 8 characters")

// ValidatePassword checks password strength requirements.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleManager || role == RoleUser
}
