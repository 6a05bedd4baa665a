package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/riobizsols/assetledger/internal/db"
	"github.com/riobizsols/assetledger/internal/model"
)

// newSeededDB returns a test database with one organization, a department,
// an employee, a user-assigned type AT01 with assets A100-A103 and a
// department-assigned type AT02 with asset A200.
func newSeededDB(t *testing.T) *sql.DB {
	t.Helper()
	database := db.NewTestDB(t)
	ctx := context.Background()

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("seeding: %v", err)
		}
	}

	_, err := CreateOrganization(ctx, database, "ORG001", "Acme")
	must(err)
	_, err = CreateDepartment(ctx, database, model.Department{ID: "D1", OrgID: "ORG001", Name: "IT"})
	must(err)
	dept := "D1"
	_, err = CreateEmployee(ctx, database, model.Employee{ID: "E50", OrgID: "ORG001", EmpCode: "EMP050", Name: "Ana", DepartmentID: &dept})
	must(err)
	_, err = CreateAssetType(ctx, database, model.AssetType{ID: "AT01", OrgID: "ORG001", Name: "Laptop", AssignmentType: model.AssignmentTypeUser})
	must(err)
	_, err = CreateAssetType(ctx, database, model.AssetType{ID: "AT02", OrgID: "ORG001", Name: "Printer", AssignmentType: model.AssignmentTypeDepartment})
	must(err)

	for _, id := range []string{"A100", "A101", "A102", "A103"} {
		_, err = CreateAsset(ctx, database, model.Asset{ID: id, OrgID: "ORG001", AssetTypeID: "AT01", Name: "Asset " + id})
		must(err)
	}
	_, err = CreateAsset(ctx, database, model.Asset{ID: "A200", OrgID: "ORG001", AssetTypeID: "AT02", Name: "Printer A200"})
	must(err)

	return database
}

func groupPointer(t *testing.T, q Querier, assetID string) *string {
	t.Helper()
	a, err := GetAsset(context.Background(), q, assetID)
	if err != nil {
		t.Fatalf("GetAsset(%s): %v", assetID, err)
	}
	if a == nil {
		t.Fatalf("asset %s missing", assetID)
	}
	return a.GroupID
}

func countRows(t *testing.T, q Querier, query string, args ...any) int {
	t.Helper()
	var n int
	if err := q.QueryRowContext(context.Background(), query, args...).Scan(&n); err != nil {
		t.Fatalf("counting rows: %v", err)
	}
	return n
}

func ptr[T any](v T) *T { return &v }
