package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Error categories. Store functions wrap these with %w; callers test with
// errors.Is.
var (
	ErrValidation          = errors.New("validation failed")
	ErrAssetNotConfigured  = errors.New("asset not configured")
	ErrMissingActor        = errors.New("missing actor")
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
	ErrNotFound            = errors.New("not found")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrConnectivity        = errors.New("connectivity failure")
)

var categories = []error{
	ErrValidation,
	ErrAssetNotConfigured,
	ErrMissingActor,
	ErrDuplicateIdentifier,
	ErrNotFound,
	ErrConstraintViolation,
	ErrConnectivity,
}

// Category returns the category err belongs to, or nil when it is
// unclassified.
func Category(err error) error {
	for _, c := range categories {
		if errors.Is(err, c) {
			return c
		}
	}
	return nil
}

// Classify attaches a category to a raw database error based on the SQLite
// primary result code. Already classified and unrecognized errors are
// returned unchanged. The original message is kept.
func Classify(err error) error {
	if err == nil || Category(err) != nil {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %w", ErrConnectivity, err)
	}

	var se *sqlite.Error
	if !errors.As(err, &se) {
		return err
	}

	switch se.Code() & 0xff {
	case sqlite3.SQLITE_CONSTRAINT:
		return fmt.Errorf("%w: %w", ErrConstraintViolation, err)
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED, sqlite3.SQLITE_CANTOPEN,
		sqlite3.SQLITE_IOERR, sqlite3.SQLITE_FULL, sqlite3.SQLITE_NOTADB:
		return fmt.Errorf("%w: %w", ErrConnectivity, err)
	}
	return err
}

// ClassName returns a short label for err's category, used as a metrics label.
func ClassName(err error) string {
	switch Category(Classify(err)) {
	case ErrValidation:
		return "validation"
	case ErrAssetNotConfigured:
		return "asset_not_configured"
	case ErrMissingActor:
		return "missing_actor"
	case ErrDuplicateIdentifier:
		return "duplicate"
	case ErrNotFound:
		return "not_found"
	case ErrConstraintViolation:
		return "constraint"
	case ErrConnectivity:
		return "connectivity"
	}
	return "internal"
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
