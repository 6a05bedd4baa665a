package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/riobizsols/assetledger/internal/model"
)

const assignmentColumns = `id, asset_id, org_id, department_id, employee_int_id, action,
	action_on, action_by, latest_assignment_flag, assigned_on`

// newestFirst orders ledger reads by action time, breaking ties on the
// second-resolution timestamp with insertion order.
const newestFirst = ` ORDER BY action_on DESC, rowid DESC`

func scanAssignment(s rowScanner) (*model.Assignment, error) {
	a := &model.Assignment{}
	var dept, emp sql.NullString
	if err := s.Scan(&a.ID, &a.AssetID, &a.OrgID, &dept, &emp, &a.Action,
		&a.ActionOn, &a.ActionBy, &a.Latest, &a.AssignedOn); err != nil {
		return nil, err
	}
	a.DepartmentID = strPtr(dept)
	a.EmployeeID = strPtr(emp)
	return a, nil
}

// AssignmentExists reports whether an assignment with the given ID exists.
func AssignmentExists(ctx context.Context, q Querier, id string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM asset_assignments WHERE id = ?`, id,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking assignment: %w", err)
	}
	return n > 0, nil
}

// CreateAssignment appends a ledger row with a caller-supplied ID. Action and
// latest flag are stored as given. An existing ID fails with
// ErrDuplicateIdentifier, whether caught by the existence check or by the
// primary key when a concurrent insert wins the race.
func CreateAssignment(ctx context.Context, q Querier, a model.Assignment) (*model.Assignment, error) {
	if a.ID == "" || a.AssetID == "" || a.OrgID == "" {
		return nil, fmt.Errorf("assignment id, asset and org are required: %w", ErrValidation)
	}
	if !model.ValidAction(a.Action) {
		return nil, fmt.Errorf("action %q: %w", a.Action, ErrValidation)
	}
	if a.ActionBy == "" {
		return nil, fmt.Errorf("acting user is required: %w", ErrValidation)
	}

	exists, err := AssignmentExists(ctx, q, a.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("assignment %s: %w", a.ID, ErrDuplicateIdentifier)
	}

	_, err = q.ExecContext(ctx,
		`INSERT INTO asset_assignments
		     (id, asset_id, org_id, department_id, employee_int_id, action, action_by, latest_assignment_flag)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.AssetID, a.OrgID, nullable(a.DepartmentID), nullable(a.EmployeeID),
		a.Action, a.ActionBy, a.Latest,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("assignment %s: %w", a.ID, ErrDuplicateIdentifier)
		}
		return nil, fmt.Errorf("creating assignment: %w", err)
	}

	return GetAssignment(ctx, q, a.ID)
}

// CheckAssignmentOrg fails with ErrNotFound unless the asset and every
// given holder exist in orgID. Deleted assets do not count.
func CheckAssignmentOrg(ctx context.Context, q Querier, orgID, assetID string, departmentID, employeeID *string) error {
	asset, err := GetAsset(ctx, q, assetID)
	if err != nil {
		return err
	}
	if asset == nil || asset.DeletedAt != nil || asset.OrgID != orgID {
		return fmt.Errorf("asset %s in organization %s: %w", assetID, orgID, ErrNotFound)
	}

	if departmentID != nil && *departmentID != "" {
		d, err := GetDepartment(ctx, q, *departmentID)
		if err != nil {
			return err
		}
		if d == nil || d.OrgID != orgID {
			return fmt.Errorf("department %s in organization %s: %w", *departmentID, orgID, ErrNotFound)
		}
	}
	if employeeID != nil && *employeeID != "" {
		e, err := GetEmployee(ctx, q, *employeeID)
		if err != nil {
			return err
		}
		if e == nil || e.OrgID != orgID {
			return fmt.Errorf("employee %s in organization %s: %w", *employeeID, orgID, ErrNotFound)
		}
	}
	return nil
}

// MutateAssignment applies a partial update to an assignment. Fields left nil
// in the patch are untouched. The action timestamp is always refreshed; the
// original assigned_on is never changed.
func MutateAssignment(ctx context.Context, q Querier, id string, p model.AssignmentPatch) (*model.Assignment, error) {
	sets := []string{"action_on = CURRENT_TIMESTAMP"}
	var args []any

	if p.DepartmentID != nil {
		sets = append(sets, "department_id = ?")
		args = append(args, nullable(p.DepartmentID))
	}
	if p.AssetID != nil {
		if *p.AssetID == "" {
			return nil, fmt.Errorf("asset cannot be cleared: %w", ErrValidation)
		}
		sets = append(sets, "asset_id = ?")
		args = append(args, *p.AssetID)
	}
	if p.OrgID != nil {
		if *p.OrgID == "" {
			return nil, fmt.Errorf("org cannot be cleared: %w", ErrValidation)
		}
		sets = append(sets, "org_id = ?")
		args = append(args, *p.OrgID)
	}
	if p.EmployeeID != nil {
		sets = append(sets, "employee_int_id = ?")
		args = append(args, nullable(p.EmployeeID))
	}
	if p.Action != nil {
		if !model.ValidAction(*p.Action) {
			return nil, fmt.Errorf("action %q: %w", *p.Action, ErrValidation)
		}
		sets = append(sets, "action = ?")
		args = append(args, *p.Action)
	}
	if p.Latest != nil {
		sets = append(sets, "latest_assignment_flag = ?")
		args = append(args, *p.Latest)
	}
	if p.ActionBy != nil && *p.ActionBy != "" {
		sets = append(sets, "action_by = ?")
		args = append(args, *p.ActionBy)
	}

	args = append(args, id)
	res, err := q.ExecContext(ctx,
		`UPDATE asset_assignments SET `+strings.Join(sets, ", ")+` WHERE id = ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("updating assignment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("updating assignment: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("assignment %s: %w", id, ErrNotFound)
	}

	return GetAssignment(ctx, q, id)
}

// ForceLatestFlag sets the latest flag on every active, currently-latest
// assignment for an asset and returns the affected rows.
func ForceLatestFlag(ctx context.Context, q Querier, assetID string, flag bool) ([]model.Assignment, error) {
	rows, err := q.QueryContext(ctx,
		`UPDATE asset_assignments SET latest_assignment_flag = ?
		 WHERE asset_id = ? AND action = ? AND latest_assignment_flag = 1
		 RETURNING id`,
		flag, assetID, model.ActionActive,
	)
	if err != nil {
		return nil, fmt.Errorf("forcing latest flag: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning assignment id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("forcing latest flag: %w", err)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("forcing latest flag: %w", err)
	}

	affected := make([]model.Assignment, 0, len(ids))
	for _, id := range ids {
		a, err := GetAssignment(ctx, q, id)
		if err != nil {
			return nil, err
		}
		if a != nil {
			affected = append(affected, *a)
		}
	}
	return affected, nil
}

// GetAssignment returns an assignment by ID.
func GetAssignment(ctx context.Context, q Querier, id string) (*model.Assignment, error) {
	a, err := scanAssignment(q.QueryRowContext(ctx,
		`SELECT `+assignmentColumns+` FROM asset_assignments WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting assignment: %w", err)
	}
	return a, nil
}

// AssignmentFilter narrows ledger reads. Zero fields do not filter.
// Employee matches either the internal employee ID or an employee code.
type AssignmentFilter struct {
	AssetID      string
	DepartmentID string
	Employee     string
	Action       string
	OrgID        string
	CurrentOnly  bool
}

// ListAssignments returns ledger rows matching f, most recent first.
func ListAssignments(ctx context.Context, q Querier, f AssignmentFilter) ([]model.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM asset_assignments WHERE 1=1`
	var args []any

	if f.AssetID != "" {
		query += ` AND asset_id = ?`
		args = append(args, f.AssetID)
	}
	if f.DepartmentID != "" {
		query += ` AND department_id = ?`
		args = append(args, f.DepartmentID)
	}
	if f.Employee != "" {
		query += ` AND (employee_int_id = ? OR employee_int_id IN (SELECT id FROM employees WHERE emp_code = ?))`
		args = append(args, f.Employee, f.Employee)
	}
	if f.Action != "" {
		query += ` AND action = ?`
		args = append(args, f.Action)
	}
	if f.OrgID != "" {
		query += ` AND org_id = ?`
		args = append(args, f.OrgID)
	}
	if f.CurrentOnly {
		query += ` AND action = 'A' AND latest_assignment_flag = 1`
	}
	query += newestFirst

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing assignments: %w", err)
	}
	defer rows.Close()

	var out []model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning assignment: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// ListAssignmentsByAsset returns the assignment history of an asset.
func ListAssignmentsByAsset(ctx context.Context, q Querier, assetID string) ([]model.Assignment, error) {
	return ListAssignments(ctx, q, AssignmentFilter{AssetID: assetID})
}

// ListAssignmentsByDepartment returns assignments held by a department.
func ListAssignmentsByDepartment(ctx context.Context, q Querier, departmentID string) ([]model.Assignment, error) {
	return ListAssignments(ctx, q, AssignmentFilter{DepartmentID: departmentID})
}

// ListAssignmentsByEmployee returns assignments held by an employee, given
// either the internal ID or the employee code.
func ListAssignmentsByEmployee(ctx context.Context, q Querier, employee string) ([]model.Assignment, error) {
	return ListAssignments(ctx, q, AssignmentFilter{Employee: employee})
}

// ListAssignmentsByAction returns assignments with the given action code.
func ListAssignmentsByAction(ctx context.Context, q Querier, action string) ([]model.Assignment, error) {
	return ListAssignments(ctx, q, AssignmentFilter{Action: action})
}

// ListAssignmentsByOrg returns all assignments of an organization.
func ListAssignmentsByOrg(ctx context.Context, q Querier, orgID string) ([]model.Assignment, error) {
	return ListAssignments(ctx, q, AssignmentFilter{OrgID: orgID})
}

// ListActiveForEmployee returns the assets an employee currently holds.
func ListActiveForEmployee(ctx context.Context, q Querier, employee string) ([]model.Assignment, error) {
	return ListAssignments(ctx, q, AssignmentFilter{Employee: employee, CurrentOnly: true})
}
