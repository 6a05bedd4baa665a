package store

import (
	"context"
	"errors"
	"testing"
)

// failingIDs fails on the nth call and delegates to the sequence before that.
type failingIDs struct {
	failOn int
	calls  int
}

var errGeneratorDown = errors.New("generator unavailable")

func (f *failingIDs) Next(ctx context.Context, q Querier, kind string, width int) (string, error) {
	f.calls++
	if f.calls == f.failOn {
		return "", errGeneratorDown
	}
	return SequenceGenerator{}.Next(ctx, q, kind, width)
}

func TestCreateGroupSetsPointers(t *testing.T) {
	database := newSeededDB(t)
	groups := NewGroupStore(database, nil)
	ctx := context.Background()

	g, err := groups.CreateGroup(ctx, "ORG001", "G1", []string{"A100", "A101"}, "admin")
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if g.ID != "AGH000001" {
		t.Errorf("expected header id AGH000001, got %q", g.ID)
	}
	if len(g.Members) != 2 || g.MemberCount != 2 {
		t.Fatalf("expected 2 members, got %d (count %d)", len(g.Members), g.MemberCount)
	}
	if g.Members[0].ID != "AGD00000001" || g.Members[1].ID != "AGD00000002" {
		t.Errorf("unexpected member ids %q, %q", g.Members[0].ID, g.Members[1].ID)
	}
	if g.Members[0].AssetName != "Asset A100" {
		t.Errorf("expected joined asset name, got %q", g.Members[0].AssetName)
	}

	for _, id := range []string{"A100", "A101"} {
		p := groupPointer(t, database, id)
		if p == nil || *p != g.ID {
			t.Errorf("%s pointer = %v, want %s", id, p, g.ID)
		}
	}
	if p := groupPointer(t, database, "A102"); p != nil {
		t.Errorf("A102 should not be grouped, got %s", *p)
	}
	if n := countRows(t, database, `SELECT COUNT(*) FROM asset_group_members WHERE group_id = ?`, g.ID); n != 2 {
		t.Errorf("expected 2 membership rows, got %d", n)
	}
}

func TestCreateGroupValidation(t *testing.T) {
	database := newSeededDB(t)
	groups := NewGroupStore(database, nil)
	ctx := context.Background()

	if _, err := groups.CreateGroup(ctx, "ORG001", "", []string{"A100"}, "admin"); !errors.Is(err, ErrValidation) {
		t.Errorf("empty name: expected ErrValidation, got %v", err)
	}
	if _, err := groups.CreateGroup(ctx, "ORG001", "G1", []string{"A100"}, ""); !errors.Is(err, ErrValidation) {
		t.Errorf("no actor: expected ErrValidation, got %v", err)
	}
	if _, err := groups.CreateGroup(ctx, "ORG001", "G1", []string{"A100", "A999"}, "admin"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown asset: expected ErrNotFound, got %v", err)
	}
	if n := countRows(t, database, `SELECT COUNT(*) FROM asset_group_headers`); n != 0 {
		t.Errorf("expected no headers after failures, got %d", n)
	}
}

func TestCreateGroupDeduplicatesAssets(t *testing.T) {
	database := newSeededDB(t)
	groups := NewGroupStore(database, nil)

	g, err := groups.CreateGroup(context.Background(), "ORG001", "G1", []string{"A100", "A100", "A101"}, "admin")
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if len(g.Members) != 2 {
		t.Errorf("expected 2 members, got %d", len(g.Members))
	}
}

func TestUpdateGroupReplacesMembers(t *testing.T) {
	database := newSeededDB(t)
	groups := NewGroupStore(database, nil)
	ctx := context.Background()

	g, err := groups.CreateGroup(ctx, "ORG001", "G1", []string{"A100", "A101"}, "admin")
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	updated, err := groups.UpdateGroup(ctx, g.ID, "G1 renamed", []string{"A101", "A102"}, "manager")
	if err != nil {
		t.Fatalf("UpdateGroup: %v", err)
	}
	if updated.Name != "G1 renamed" {
		t.Errorf("expected renamed group, got %q", updated.Name)
	}
	if updated.ChangedBy == nil || *updated.ChangedBy != "manager" || updated.ChangedOn == nil {
		t.Errorf("expected changed_by/changed_on to be set, got %v %v", updated.ChangedBy, updated.ChangedOn)
	}

	if p := groupPointer(t, database, "A100"); p != nil {
		t.Errorf("A100 pointer should be cleared, got %s", *p)
	}
	for _, id := range []string{"A101", "A102"} {
		p := groupPointer(t, database, id)
		if p == nil || *p != g.ID {
			t.Errorf("%s pointer = %v, want %s", id, p, g.ID)
		}
	}
	if n := countRows(t, database, `SELECT COUNT(*) FROM asset_group_members`); n != 2 {
		t.Errorf("expected exactly 2 membership rows, got %d", n)
	}
	// Full replace issues fresh member identifiers.
	for _, m := range updated.Members {
		if m.ID == "AGD00000001" || m.ID == "AGD00000002" {
			t.Errorf("member row %s was reused", m.ID)
		}
	}
}

func TestUpdateGroupNotFound(t *testing.T) {
	database := newSeededDB(t)
	groups := NewGroupStore(database, nil)

	_, err := groups.UpdateGroup(context.Background(), "AGH999999", "X", []string{"A100"}, "admin")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if p := groupPointer(t, database, "A100"); p != nil {
		t.Errorf("A100 should stay ungrouped, got %s", *p)
	}
}

func TestDeleteGroupClearsPointers(t *testing.T) {
	database := newSeededDB(t)
	groups := NewGroupStore(database, nil)
	ctx := context.Background()

	g, err := groups.CreateGroup(ctx, "ORG001", "G1", []string{"A100", "A101"}, "admin")
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	if err := groups.DeleteGroup(ctx, g.ID); err != nil {
		t.Fatalf("DeleteGroup: %v", err)
	}
	for _, id := range []string{"A100", "A101"} {
		if p := groupPointer(t, database, id); p != nil {
			t.Errorf("%s pointer should be cleared, got %s", id, *p)
		}
	}
	if n := countRows(t, database, `SELECT COUNT(*) FROM asset_group_members`); n != 0 {
		t.Errorf("expected no membership rows, got %d", n)
	}
	if got, _ := groups.GetGroup(ctx, g.ID); got != nil {
		t.Error("expected header to be gone")
	}

	if err := groups.DeleteGroup(ctx, g.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestCreateGroupRollsBackOnMemberFailure(t *testing.T) {
	database := newSeededDB(t)
	groups := NewGroupStore(database, nil)
	ctx := context.Background()

	// A102 already belongs to another group, so the third membership insert
	// violates the one-group-per-asset constraint.
	other, err := groups.CreateGroup(ctx, "ORG001", "Other", []string{"A102"}, "admin")
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	_, err = groups.CreateGroup(ctx, "ORG001", "G1", []string{"A100", "A101", "A102"}, "admin")
	if !errors.Is(Classify(err), ErrConstraintViolation) {
		t.Fatalf("expected constraint violation, got %v", err)
	}

	if n := countRows(t, database, `SELECT COUNT(*) FROM asset_group_headers WHERE name = 'G1'`); n != 0 {
		t.Errorf("expected no G1 header, got %d", n)
	}
	if n := countRows(t, database, `SELECT COUNT(*) FROM asset_group_members WHERE group_id != ?`, other.ID); n != 0 {
		t.Errorf("expected no G1 membership rows, got %d", n)
	}
	for _, id := range []string{"A100", "A101"} {
		if p := groupPointer(t, database, id); p != nil {
			t.Errorf("%s pointer should be untouched, got %s", id, *p)
		}
	}
	if p := groupPointer(t, database, "A102"); p == nil || *p != other.ID {
		t.Errorf("A102 should still point at %s, got %v", other.ID, p)
	}
}

func TestCreateGroupRollsBackOnGeneratorFailure(t *testing.T) {
	database := newSeededDB(t)
	// Call 1 is the header, calls 2-4 the three members.
	ids := &failingIDs{failOn: 4}
	groups := NewGroupStore(database, ids)

	_, err := groups.CreateGroup(context.Background(), "ORG001", "G1", []string{"A100", "A101", "A102"}, "admin")
	if !errors.Is(err, errGeneratorDown) {
		t.Fatalf("expected generator error, got %v", err)
	}

	if n := countRows(t, database, `SELECT COUNT(*) FROM asset_group_headers`); n != 0 {
		t.Errorf("expected no headers, got %d", n)
	}
	if n := countRows(t, database, `SELECT COUNT(*) FROM asset_group_members`); n != 0 {
		t.Errorf("expected no membership rows, got %d", n)
	}
	if n := countRows(t, database, `SELECT COUNT(*) FROM assets WHERE group_id IS NOT NULL`); n != 0 {
		t.Errorf("expected no pointers, got %d", n)
	}
	if n := countRows(t, database, `SELECT COUNT(*) FROM id_sequences`); n != 0 {
		t.Errorf("expected sequence increments rolled back, got %d rows", n)
	}
}

func TestUpdateGroupRollsBackOnFailure(t *testing.T) {
	database := newSeededDB(t)
	groups := NewGroupStore(database, nil)
	ctx := context.Background()

	g, _ := groups.CreateGroup(ctx, "ORG001", "G1", []string{"A100", "A101"}, "admin")
	other, _ := groups.CreateGroup(ctx, "ORG001", "G2", []string{"A103"}, "admin")

	_, err := groups.UpdateGroup(ctx, g.ID, "G1", []string{"A102", "A103"}, "admin")
	if !errors.Is(Classify(err), ErrConstraintViolation) {
		t.Fatalf("expected constraint violation, got %v", err)
	}

	got, _ := groups.GetGroup(ctx, g.ID)
	if len(got.Members) != 2 {
		t.Errorf("expected original 2 members, got %d", len(got.Members))
	}
	for _, id := range []string{"A100", "A101"} {
		if p := groupPointer(t, database, id); p == nil || *p != g.ID {
			t.Errorf("%s pointer = %v, want %s", id, p, g.ID)
		}
	}
	if p := groupPointer(t, database, "A103"); p == nil || *p != other.ID {
		t.Errorf("A103 pointer = %v, want %s", p, other.ID)
	}
}

func TestListGroups(t *testing.T) {
	database := newSeededDB(t)
	groups := NewGroupStore(database, nil)
	ctx := context.Background()

	groups.CreateGroup(ctx, "ORG001", "G1", []string{"A100", "A101"}, "admin")
	groups.CreateGroup(ctx, "ORG001", "Empty", nil, "admin")

	list, err := groups.ListGroups(ctx, "ORG001")
	if err != nil {
		t.Fatalf("ListGroups: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(list))
	}
	counts := map[string]int{}
	for _, h := range list {
		counts[h.Name] = h.MemberCount
	}
	if counts["G1"] != 2 || counts["Empty"] != 0 {
		t.Errorf("unexpected member counts: %v", counts)
	}

	none, _ := groups.ListGroups(ctx, "ORG404")
	if len(none) != 0 {
		t.Errorf("expected no groups for unknown org, got %d", len(none))
	}
}

func TestGetGroupMissing(t *testing.T) {
	database := newSeededDB(t)

	g, err := GetGroup(context.Background(), database, "AGH000001")
	if err != nil {
		t.Fatalf("GetGroup: %v", err)
	}
	if g != nil {
		t.Errorf("expected nil, got %+v", g)
	}
}

func TestPointerMatchesMembershipAfterMixedOps(t *testing.T) {
	database := newSeededDB(t)
	groups := NewGroupStore(database, nil)
	ctx := context.Background()

	g1, _ := groups.CreateGroup(ctx, "ORG001", "G1", []string{"A100", "A101"}, "admin")
	g2, _ := groups.CreateGroup(ctx, "ORG001", "G2", []string{"A102"}, "admin")
	groups.UpdateGroup(ctx, g1.ID, "G1", []string{"A101"}, "admin")
	groups.UpdateGroup(ctx, g2.ID, "G2", []string{"A102", "A100"}, "admin")
	DeleteAsset(ctx, database, "A101")

	mismatches := countRows(t, database,
		`SELECT COUNT(*) FROM assets a
		 LEFT JOIN asset_group_members m ON m.asset_id = a.id
		 WHERE COALESCE(a.group_id, '') != COALESCE(m.group_id, '')`)
	if mismatches != 0 {
		t.Errorf("found %d assets whose pointer disagrees with membership", mismatches)
	}
	if p := groupPointer(t, database, "A100"); p == nil || *p != g2.ID {
		t.Errorf("A100 pointer = %v, want %s", p, g2.ID)
	}
}

func TestGroupScenario(t *testing.T) {
	database := newSeededDB(t)
	groups := NewGroupStore(database, nil)
	ctx := context.Background()

	g, err := groups.CreateGroup(ctx, "ORG001", "Printers", []string{"A100", "A101"}, "admin")
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if _, err := groups.UpdateGroup(ctx, g.ID, "Printers", []string{"A101"}, "admin"); err != nil {
		t.Fatalf("UpdateGroup: %v", err)
	}
	if p := groupPointer(t, database, "A100"); p != nil {
		t.Errorf("A100 pointer should be null, got %s", *p)
	}
	if p := groupPointer(t, database, "A101"); p == nil || *p != g.ID {
		t.Errorf("A101 pointer = %v, want %s", p, g.ID)
	}
}
