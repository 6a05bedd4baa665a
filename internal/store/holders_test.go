package store

import (
	"context"
	"errors"
	"testing"

	"github.com/riobizsols/assetledger/internal/model"
)

func TestResolveEmployee(t *testing.T) {
	database := newSeededDB(t)
	ctx := context.Background()

	byID, err := ResolveEmployee(ctx, database, "E50")
	if err != nil || byID == nil || byID.EmpCode != "EMP050" {
		t.Fatalf("by id: got %+v, %v", byID, err)
	}
	byCode, err := ResolveEmployee(ctx, database, "EMP050")
	if err != nil || byCode == nil || byCode.ID != "E50" {
		t.Fatalf("by code: got %+v, %v", byCode, err)
	}
	if byCode.DepartmentID == nil || *byCode.DepartmentID != "D1" {
		t.Errorf("expected department D1, got %v", byCode.DepartmentID)
	}

	missing, err := ResolveEmployee(ctx, database, "nobody")
	if err != nil || missing != nil {
		t.Errorf("missing: got %+v, %v", missing, err)
	}
}

func TestCreateEmployeeDuplicateCode(t *testing.T) {
	database := newSeededDB(t)

	_, err := CreateEmployee(context.Background(), database, model.Employee{ID: "E51", OrgID: "ORG001", EmpCode: "EMP050", Name: "Bor"})
	if !errors.Is(err, ErrDuplicateIdentifier) {
		t.Fatalf("expected ErrDuplicateIdentifier, got %v", err)
	}
}

func TestListHolders(t *testing.T) {
	database := newSeededDB(t)
	ctx := context.Background()

	CreateDepartment(ctx, database, model.Department{ID: "D2", OrgID: "ORG001", Name: "Finance"})
	CreateEmployee(ctx, database, model.Employee{ID: "E51", OrgID: "ORG001", EmpCode: "EMP051", Name: "Bor"})

	depts, err := ListDepartments(ctx, database, "ORG001")
	if err != nil {
		t.Fatal(err)
	}
	if len(depts) != 2 || depts[0].Name != "Finance" {
		t.Errorf("expected 2 departments sorted by name, got %+v", depts)
	}

	all, _ := ListEmployees(ctx, database, "ORG001", "")
	if len(all) != 2 {
		t.Errorf("expected 2 employees, got %d", len(all))
	}
	inIT, _ := ListEmployees(ctx, database, "ORG001", "D1")
	if len(inIT) != 1 || inIT[0].ID != "E50" {
		t.Errorf("expected E50 in D1, got %+v", inIT)
	}
}
