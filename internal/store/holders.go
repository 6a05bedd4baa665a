package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/riobizsols/assetledger/internal/model"
)

// CreateOrganization creates a new organization.
func CreateOrganization(ctx context.Context, q Querier, id, name string) (*model.Organization, error) {
	if id == "" || name == "" {
		return nil, fmt.Errorf("organization id and name are required: %w", ErrValidation)
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO organizations (id, name) VALUES (?, ?)`,
		id, name,
	)
	if err != nil {
		return nil, fmt.Errorf("creating organization: %w", err)
	}
	return GetOrganization(ctx, q, id)
}

// GetOrganization returns an organization by ID.
func GetOrganization(ctx context.Context, q Querier, id string) (*model.Organization, error) {
	o := &model.Organization{}
	err := q.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM organizations WHERE id = ?`, id,
	).Scan(&o.ID, &o.Name, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting organization: %w", err)
	}
	return o, nil
}

// CreateDepartment creates a department in an organization.
func CreateDepartment(ctx context.Context, q Querier, d model.Department) (*model.Department, error) {
	if d.ID == "" || d.OrgID == "" || d.Name == "" {
		return nil, fmt.Errorf("department id, org and name are required: %w", ErrValidation)
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO departments (id, org_id, name) VALUES (?, ?, ?)`,
		d.ID, d.OrgID, d.Name,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("department %s: %w", d.ID, ErrDuplicateIdentifier)
		}
		return nil, fmt.Errorf("creating department: %w", err)
	}
	return GetDepartment(ctx, q, d.ID)
}

// GetDepartment returns a department by ID.
func GetDepartment(ctx context.Context, q Querier, id string) (*model.Department, error) {
	d := &model.Department{}
	err := q.QueryRowContext(ctx,
		`SELECT id, org_id, name, created_at FROM departments WHERE id = ?`, id,
	).Scan(&d.ID, &d.OrgID, &d.Name, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting department: %w", err)
	}
	return d, nil
}

// ListDepartments returns departments, optionally filtered by organization.
func ListDepartments(ctx context.Context, q Querier, orgID string) ([]model.Department, error) {
	query := `SELECT id, org_id, name, created_at FROM departments`
	var args []any
	if orgID != "" {
		query += ` WHERE org_id = ?`
		args = append(args, orgID)
	}
	query += ` ORDER BY name`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing departments: %w", err)
	}
	defer rows.Close()

	var depts []model.Department
	for rows.Next() {
		var d model.Department
		if err := rows.Scan(&d.ID, &d.OrgID, &d.Name, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning department: %w", err)
		}
		depts = append(depts, d)
	}
	return depts, rows.Err()
}

const employeeColumns = `id, org_id, emp_code, name, department_id, created_at`

// CreateEmployee creates an employee. The employee code must be unique.
func CreateEmployee(ctx context.Context, q Querier, e model.Employee) (*model.Employee, error) {
	if e.ID == "" || e.OrgID == "" || e.EmpCode == "" || e.Name == "" {
		return nil, fmt.Errorf("employee id, org, code and name are required: %w", ErrValidation)
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO employees (id, org_id, emp_code, name, department_id) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.OrgID, e.EmpCode, e.Name, nullable(e.DepartmentID),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("employee %s/%s: %w", e.ID, e.EmpCode, ErrDuplicateIdentifier)
		}
		return nil, fmt.Errorf("creating employee: %w", err)
	}
	return GetEmployee(ctx, q, e.ID)
}

// GetEmployee returns an employee by internal ID.
func GetEmployee(ctx context.Context, q Querier, id string) (*model.Employee, error) {
	return getEmployee(ctx, q, `SELECT `+employeeColumns+` FROM employees WHERE id = ?`, id)
}

// ResolveEmployee returns the employee whose internal ID or employee code
// equals ref. The internal ID wins when both match different rows.
func ResolveEmployee(ctx context.Context, q Querier, ref string) (*model.Employee, error) {
	return getEmployee(ctx, q,
		`SELECT `+employeeColumns+` FROM employees
		 WHERE id = ? OR emp_code = ?
		 ORDER BY CASE WHEN id = ? THEN 0 ELSE 1 END
		 LIMIT 1`, ref, ref, ref)
}

func getEmployee(ctx context.Context, q Querier, query string, args ...any) (*model.Employee, error) {
	e := &model.Employee{}
	var dept sql.NullString
	err := q.QueryRowContext(ctx, query, args...).
		Scan(&e.ID, &e.OrgID, &e.EmpCode, &e.Name, &dept, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting employee: %w", err)
	}
	e.DepartmentID = strPtr(dept)
	return e, nil
}

// ListEmployees returns employees, optionally filtered by organization and
// department.
func ListEmployees(ctx context.Context, q Querier, orgID, departmentID string) ([]model.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE 1=1`
	var args []any
	if orgID != "" {
		query += ` AND org_id = ?`
		args = append(args, orgID)
	}
	if departmentID != "" {
		query += ` AND department_id = ?`
		args = append(args, departmentID)
	}
	query += ` ORDER BY name`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing employees: %w", err)
	}
	defer rows.Close()

	var emps []model.Employee
	for rows.Next() {
		var e model.Employee
		var dept sql.NullString
		if err := rows.Scan(&e.ID, &e.OrgID, &e.EmpCode, &e.Name, &dept, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning employee: %w", err)
		}
		e.DepartmentID = strPtr(dept)
		emps = append(emps, e)
	}
	return emps, rows.Err()
}
