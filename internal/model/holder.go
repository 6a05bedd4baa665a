package model

import "time"

// Organization owns assets, departments and employees.
type Organization struct {
	ID        string    `json:"org_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Department can hold assets whose type is department-assigned.
type Department struct {
	ID        string    `json:"dept_id"`
	OrgID     string    `json:"org_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Employee can hold assets whose type is user-assigned. ID is the internal
// employee identifier; EmpCode is the human-facing code.
type Employee struct {
	ID           string    `json:"employee_int_id"`
	OrgID        string    `json:"org_id"`
	EmpCode      string    `json:"emp_code"`
	Name         string    `json:"name"`
	DepartmentID *string   `json:"dept_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
