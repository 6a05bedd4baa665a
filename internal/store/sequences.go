package store

import (
	"context"
	"fmt"
)

// IDGenerator hands out unique, human-readable identifiers such as
// "AGH000042". Implementations must never return the same value twice for a
// kind.
type IDGenerator interface {
	Next(ctx context.Context, q Querier, kind string, width int) (string, error)
}

// SequenceGenerator is an IDGenerator backed by the id_sequences table.
// When q is a transaction the increment rolls back with it.
type SequenceGenerator struct{}

// Next increments the counter for kind and formats it zero-padded to width.
func (SequenceGenerator) Next(ctx context.Context, q Querier, kind string, width int) (string, error) {
	if kind == "" || width <= 0 {
		return "", fmt.Errorf("sequence %q width %d: %w", kind, width, ErrValidation)
	}

	var n int64
	err := q.QueryRowContext(ctx,
		`INSERT INTO id_sequences (kind, value) VALUES (?, 1)
		 ON CONFLICT (kind) DO UPDATE SET value = value + 1
		 RETURNING value`, kind,
	).Scan(&n)
	if err != nil {
		return "", fmt.Errorf("advancing sequence %s: %w", kind, err)
	}

	return fmt.Sprintf("%s%0*d", kind, width, n), nil
}
