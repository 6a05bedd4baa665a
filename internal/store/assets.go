package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/riobizsols/assetledger/internal/model"
)

const assetColumns = `id, org_id, asset_type_id, name, serial_number, description, image_mime,
	group_id, created_at, updated_at, deleted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(s rowScanner) (*model.Asset, error) {
	a := &model.Asset{}
	var serial, description, imageMime, groupID sql.NullString
	if err := s.Scan(&a.ID, &a.OrgID, &a.AssetTypeID, &a.Name, &serial, &description, &imageMime,
		&groupID, &a.CreatedAt, &a.UpdatedAt, &a.DeletedAt); err != nil {
		return nil, err
	}
	a.SerialNumber = serial.String
	a.Description = description.String
	a.ImageMime = imageMime.String
	a.GroupID = strPtr(groupID)
	return a, nil
}

// CreateAsset creates a new asset. The group pointer starts empty; it is only
// ever set by the group store.
func CreateAsset(ctx context.Context, q Querier, a model.Asset) (*model.Asset, error) {
	if a.ID == "" || a.OrgID == "" || a.AssetTypeID == "" || a.Name == "" {
		return nil, fmt.Errorf("asset id, org, type and name are required: %w", ErrValidation)
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO assets (id, org_id, asset_type_id, name, serial_number, description)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.OrgID, a.AssetTypeID, a.Name, a.SerialNumber, a.Description,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("asset %s: %w", a.ID, ErrDuplicateIdentifier)
		}
		return nil, fmt.Errorf("creating asset: %w", err)
	}
	return GetAsset(ctx, q, a.ID)
}

// GetAsset returns an asset by ID, including soft-deleted ones.
func GetAsset(ctx context.Context, q Querier, id string) (*model.Asset, error) {
	a, err := scanAsset(q.QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting asset: %w", err)
	}
	return a, nil
}

// ListAssets returns non-deleted assets, optionally filtered by organization
// and current group.
func ListAssets(ctx context.Context, q Querier, orgID, groupID string) ([]model.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE deleted_at IS NULL`
	var args []any
	if orgID != "" {
		query += ` AND org_id = ?`
		args = append(args, orgID)
	}
	if groupID != "" {
		query += ` AND group_id = ?`
		args = append(args, groupID)
	}
	query += ` ORDER BY name, id`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}
	defer rows.Close()

	var assets []model.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning asset: %w", err)
		}
		assets = append(assets, *a)
	}
	return assets, rows.Err()
}

// UpdateAsset updates an asset's descriptive fields. The group pointer is not
// touched.
func UpdateAsset(ctx context.Context, q Querier, id, name, serialNumber, description string) (*model.Asset, error) {
	if name == "" {
		return nil, fmt.Errorf("asset name is required: %w", ErrValidation)
	}
	res, err := q.ExecContext(ctx,
		`UPDATE assets SET name = ?, serial_number = ?, description = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		name, serialNumber, description, id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating asset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("asset %s: %w", id, ErrNotFound)
	}
	return GetAsset(ctx, q, id)
}

// DeleteAsset soft-deletes an asset. Its group membership row and group
// pointer are removed in the same transaction so the two never disagree.
func DeleteAsset(ctx context.Context, db *sql.DB, id string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE assets SET group_id = NULL, deleted_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`, id,
	)
	if err != nil {
		return fmt.Errorf("deleting asset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("asset %s: %w", id, ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM asset_group_members WHERE asset_id = ?`, id,
	); err != nil {
		return fmt.Errorf("removing asset from group: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing asset delete: %w", err)
	}
	return nil
}

// SetAssetImage sets an asset's photo.
func SetAssetImage(ctx context.Context, q Querier, id string, image []byte, mime string) error {
	res, err := q.ExecContext(ctx,
		`UPDATE assets SET image = ?, image_mime = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		image, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting asset image: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("asset %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetAssetImage returns an asset's photo and MIME type. A missing asset or
// photo yields a nil slice.
func GetAssetImage(ctx context.Context, q Querier, id string) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT image, image_mime FROM assets WHERE id = ?`, id,
	).Scan(&image, &mime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting asset image: %w", err)
	}
	return image, mime.String, nil
}
