package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/riobizsols/assetledger/internal/model"
)

// CreateAssetType registers an asset type and its assignment rule.
func CreateAssetType(ctx context.Context, q Querier, at model.AssetType) (*model.AssetType, error) {
	if at.ID == "" || at.OrgID == "" || at.Name == "" {
		return nil, fmt.Errorf("asset type id, org and name are required: %w", ErrValidation)
	}
	if !model.ValidAssignmentType(at.AssignmentType) {
		return nil, fmt.Errorf("assignment type %q: %w", at.AssignmentType, ErrValidation)
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO asset_types (id, org_id, name, assignment_type) VALUES (?, ?, ?, ?)`,
		at.ID, at.OrgID, at.Name, at.AssignmentType,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("asset type %s: %w", at.ID, ErrDuplicateIdentifier)
		}
		return nil, fmt.Errorf("creating asset type: %w", err)
	}
	return GetAssetType(ctx, q, at.ID)
}

// GetAssetType returns an asset type by ID.
func GetAssetType(ctx context.Context, q Querier, id string) (*model.AssetType, error) {
	at := &model.AssetType{}
	err := q.QueryRowContext(ctx,
		`SELECT id, org_id, name, assignment_type, created_at FROM asset_types WHERE id = ?`, id,
	).Scan(&at.ID, &at.OrgID, &at.Name, &at.AssignmentType, &at.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting asset type: %w", err)
	}
	return at, nil
}

// ListAssetTypes returns asset types, optionally filtered by organization.
func ListAssetTypes(ctx context.Context, q Querier, orgID string) ([]model.AssetType, error) {
	query := `SELECT id, org_id, name, assignment_type, created_at FROM asset_types`
	var args []any
	if orgID != "" {
		query += ` WHERE org_id = ?`
		args = append(args, orgID)
	}
	query += ` ORDER BY name`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing asset types: %w", err)
	}
	defer rows.Close()

	var types []model.AssetType
	for rows.Next() {
		var at model.AssetType
		if err := rows.Scan(&at.ID, &at.OrgID, &at.Name, &at.AssignmentType, &at.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning asset type: %w", err)
		}
		types = append(types, at)
	}
	return types, rows.Err()
}

// AssignmentTypeOf returns the assignment type configured for an asset type.
func AssignmentTypeOf(ctx context.Context, q Querier, assetTypeID string) (string, error) {
	var t string
	err := q.QueryRowContext(ctx,
		`SELECT assignment_type FROM asset_types WHERE id = ?`, assetTypeID,
	).Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("asset type %s: %w", assetTypeID, ErrAssetNotConfigured)
	}
	if err != nil {
		return "", fmt.Errorf("getting assignment type: %w", err)
	}
	return t, nil
}

// ResolveAssetAssignmentType follows an asset to its type and returns the
// type's assignment rule. Deleted assets are not resolved.
func ResolveAssetAssignmentType(ctx context.Context, q Querier, assetID string) (string, error) {
	var typeID string
	err := q.QueryRowContext(ctx,
		`SELECT asset_type_id FROM assets WHERE id = ? AND deleted_at IS NULL`, assetID,
	).Scan(&typeID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("asset %s: %w", assetID, ErrAssetNotConfigured)
	}
	if err != nil {
		return "", fmt.Errorf("resolving asset type: %w", err)
	}
	return AssignmentTypeOf(ctx, q, typeID)
}
