package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/riobizsols/assetledger/internal/model"
)

// Identifier kinds for group rows.
const (
	GroupHeaderKind = "AGH"
	GroupMemberKind = "AGD"
)

// GroupStore owns asset group headers and membership rows, and keeps each
// asset's group_id pointer equal to the group of its membership row (or NULL
// when it has none). Every mutation runs in one transaction.
type GroupStore struct {
	DB          *sql.DB
	IDs         IDGenerator
	HeaderWidth int
	MemberWidth int
}

// NewGroupStore returns a GroupStore with default identifier widths.
func NewGroupStore(db *sql.DB, ids IDGenerator) *GroupStore {
	if ids == nil {
		ids = SequenceGenerator{}
	}
	return &GroupStore{DB: db, IDs: ids, HeaderWidth: 6, MemberWidth: 8}
}

// CreateGroup creates a group with the given member assets and points every
// member at it.
func (s *GroupStore) CreateGroup(ctx context.Context, orgID, name string, assetIDs []string, actor string) (*model.Group, error) {
	if orgID == "" || name == "" {
		return nil, fmt.Errorf("group org and name are required: %w", ErrValidation)
	}
	if actor == "" {
		return nil, fmt.Errorf("acting user is required: %w", ErrValidation)
	}
	assetIDs = dedupe(assetIDs)

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := checkGroupAssets(ctx, tx, orgID, assetIDs); err != nil {
		return nil, err
	}

	headerID, err := s.IDs.Next(ctx, tx, GroupHeaderKind, s.HeaderWidth)
	if err != nil {
		return nil, fmt.Errorf("generating group id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO asset_group_headers (id, org_id, name, created_by) VALUES (?, ?, ?, ?)`,
		headerID, orgID, name, actor,
	); err != nil {
		return nil, fmt.Errorf("creating group header: %w", err)
	}

	if err := s.insertMembers(ctx, tx, headerID, assetIDs); err != nil {
		return nil, err
	}
	if err := pointAssetsAt(ctx, tx, headerID, assetIDs); err != nil {
		return nil, err
	}

	g, err := GetGroup(ctx, tx, headerID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing group create: %w", err)
	}
	return g, nil
}

// UpdateGroup renames a group and replaces its whole membership with
// assetIDs. Assets dropped from the group get their pointer cleared.
func (s *GroupStore) UpdateGroup(ctx context.Context, headerID, name string, assetIDs []string, actor string) (*model.Group, error) {
	if name == "" {
		return nil, fmt.Errorf("group name is required: %w", ErrValidation)
	}
	if actor == "" {
		return nil, fmt.Errorf("acting user is required: %w", ErrValidation)
	}
	assetIDs = dedupe(assetIDs)

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	orgID, err := groupOrg(ctx, tx, headerID)
	if err != nil {
		return nil, err
	}
	current, err := memberAssetIDs(ctx, tx, headerID)
	if err != nil {
		return nil, err
	}
	if err := checkGroupAssets(ctx, tx, orgID, assetIDs); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE asset_group_headers SET name = ?, changed_by = ?, changed_on = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		name, actor, headerID,
	); err != nil {
		return nil, fmt.Errorf("updating group header: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM asset_group_members WHERE group_id = ?`, headerID,
	); err != nil {
		return nil, fmt.Errorf("clearing group members: %w", err)
	}

	if err := clearAssetPointers(ctx, tx, headerID, difference(current, assetIDs)); err != nil {
		return nil, err
	}
	if err := s.insertMembers(ctx, tx, headerID, assetIDs); err != nil {
		return nil, err
	}
	if err := pointAssetsAt(ctx, tx, headerID, assetIDs); err != nil {
		return nil, err
	}

	g, err := GetGroup(ctx, tx, headerID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing group update: %w", err)
	}
	return g, nil
}

// DeleteGroup removes a group, its membership rows and every member's
// pointer to it.
func (s *GroupStore) DeleteGroup(ctx context.Context, headerID string) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := groupOrg(ctx, tx, headerID); err != nil {
		return err
	}
	current, err := memberAssetIDs(ctx, tx, headerID)
	if err != nil {
		return err
	}

	if err := clearAssetPointers(ctx, tx, headerID, current); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM asset_group_members WHERE group_id = ?`, headerID,
	); err != nil {
		return fmt.Errorf("deleting group members: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM asset_group_headers WHERE id = ?`, headerID,
	); err != nil {
		return fmt.Errorf("deleting group header: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing group delete: %w", err)
	}
	return nil
}

// GetGroup returns a group with its members, or nil when it does not exist.
func (s *GroupStore) GetGroup(ctx context.Context, headerID string) (*model.Group, error) {
	return GetGroup(ctx, s.DB, headerID)
}

// ListGroups returns the group headers of an organization with member counts.
func (s *GroupStore) ListGroups(ctx context.Context, orgID string) ([]model.GroupHeader, error) {
	return ListGroups(ctx, s.DB, orgID)
}

// insertMembers writes one membership row per asset, asking the generator
// for each row ID in turn.
func (s *GroupStore) insertMembers(ctx context.Context, tx *sql.Tx, headerID string, assetIDs []string) error {
	for _, assetID := range assetIDs {
		memberID, err := s.IDs.Next(ctx, tx, GroupMemberKind, s.MemberWidth)
		if err != nil {
			return fmt.Errorf("generating member id: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO asset_group_members (id, group_id, asset_id) VALUES (?, ?, ?)`,
			memberID, headerID, assetID,
		); err != nil {
			return fmt.Errorf("adding asset %s to group: %w", assetID, err)
		}
	}
	return nil
}

func pointAssetsAt(ctx context.Context, tx *sql.Tx, headerID string, assetIDs []string) error {
	if len(assetIDs) == 0 {
		return nil
	}
	in, args := inList(assetIDs)
	if _, err := tx.ExecContext(ctx,
		`UPDATE assets SET group_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id IN (`+in+`)`,
		append([]any{headerID}, args...)...,
	); err != nil {
		return fmt.Errorf("setting group pointers: %w", err)
	}
	return nil
}

// clearAssetPointers only clears pointers still aimed at headerID.
func clearAssetPointers(ctx context.Context, tx *sql.Tx, headerID string, assetIDs []string) error {
	if len(assetIDs) == 0 {
		return nil
	}
	in, args := inList(assetIDs)
	if _, err := tx.ExecContext(ctx,
		`UPDATE assets SET group_id = NULL, updated_at = CURRENT_TIMESTAMP
		 WHERE group_id = ? AND id IN (`+in+`)`,
		append([]any{headerID}, args...)...,
	); err != nil {
		return fmt.Errorf("clearing group pointers: %w", err)
	}
	return nil
}

func groupOrg(ctx context.Context, q Querier, headerID string) (string, error) {
	var orgID string
	err := q.QueryRowContext(ctx,
		`SELECT org_id FROM asset_group_headers WHERE id = ?`, headerID,
	).Scan(&orgID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("group %s: %w", headerID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("getting group: %w", err)
	}
	return orgID, nil
}

func memberAssetIDs(ctx context.Context, q Querier, headerID string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT asset_id FROM asset_group_members WHERE group_id = ? ORDER BY id`, headerID,
	)
	if err != nil {
		return nil, fmt.Errorf("reading group members: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning group member: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// checkGroupAssets fails with ErrNotFound unless every asset exists, is not
// deleted and belongs to orgID.
func checkGroupAssets(ctx context.Context, q Querier, orgID string, assetIDs []string) error {
	if len(assetIDs) == 0 {
		return nil
	}
	in, args := inList(assetIDs)
	rows, err := q.QueryContext(ctx,
		`SELECT id FROM assets WHERE org_id = ? AND deleted_at IS NULL AND id IN (`+in+`)`,
		append([]any{orgID}, args...)...,
	)
	if err != nil {
		return fmt.Errorf("checking group assets: %w", err)
	}
	defer rows.Close()

	found := make(map[string]bool, len(assetIDs))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scanning asset id: %w", err)
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("checking group assets: %w", err)
	}

	for _, id := range assetIDs {
		if !found[id] {
			return fmt.Errorf("asset %s in organization %s: %w", id, orgID, ErrNotFound)
		}
	}
	return nil
}

// GetGroup returns a group header and its members joined with asset details.
// A missing group yields nil, nil.
func GetGroup(ctx context.Context, q Querier, headerID string) (*model.Group, error) {
	g := &model.Group{}
	var changedBy sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT h.id, h.org_id, h.name, h.created_by, h.created_on, h.changed_by, h.changed_on,
		        (SELECT COUNT(*) FROM asset_group_members m WHERE m.group_id = h.id)
		 FROM asset_group_headers h WHERE h.id = ?`, headerID,
	).Scan(&g.ID, &g.OrgID, &g.Name, &g.CreatedBy, &g.CreatedOn, &changedBy, &g.ChangedOn, &g.MemberCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting group: %w", err)
	}
	g.ChangedBy = strPtr(changedBy)

	rows, err := q.QueryContext(ctx,
		`SELECT m.id, m.group_id, m.asset_id, a.name, a.serial_number, a.asset_type_id
		 FROM asset_group_members m
		 JOIN assets a ON a.id = m.asset_id
		 WHERE m.group_id = ?
		 ORDER BY m.id`, headerID,
	)
	if err != nil {
		return nil, fmt.Errorf("getting group members: %w", err)
	}
	defer rows.Close()

	g.Members = []model.GroupMember{}
	for rows.Next() {
		var m model.GroupMember
		var serial sql.NullString
		if err := rows.Scan(&m.ID, &m.GroupID, &m.AssetID, &m.AssetName, &serial, &m.TypeID); err != nil {
			return nil, fmt.Errorf("scanning group member: %w", err)
		}
		m.SerialNo = serial.String
		g.Members = append(g.Members, m)
	}
	return g, rows.Err()
}

// ListGroups returns group headers, optionally filtered by organization,
// each with its member count.
func ListGroups(ctx context.Context, q Querier, orgID string) ([]model.GroupHeader, error) {
	query := `SELECT h.id, h.org_id, h.name, h.created_by, h.created_on, h.changed_by, h.changed_on,
	                 COUNT(m.id)
	          FROM asset_group_headers h
	          LEFT JOIN asset_group_members m ON m.group_id = h.id`
	var args []any
	if orgID != "" {
		query += ` WHERE h.org_id = ?`
		args = append(args, orgID)
	}
	query += ` GROUP BY h.id ORDER BY h.created_on DESC, h.id DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing groups: %w", err)
	}
	defer rows.Close()

	var headers []model.GroupHeader
	for rows.Next() {
		var h model.GroupHeader
		var changedBy sql.NullString
		if err := rows.Scan(&h.ID, &h.OrgID, &h.Name, &h.CreatedBy, &h.CreatedOn, &changedBy, &h.ChangedOn, &h.MemberCount); err != nil {
			return nil, fmt.Errorf("scanning group: %w", err)
		}
		h.ChangedBy = strPtr(changedBy)
		headers = append(headers, h)
	}
	return headers, rows.Err()
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// difference returns the members of a not present in b.
func difference(a, b []string) []string {
	keep := make(map[string]bool, len(b))
	for _, id := range b {
		keep[id] = true
	}
	var out []string
	for _, id := range a {
		if !keep[id] {
			out = append(out, id)
		}
	}
	return out
}
