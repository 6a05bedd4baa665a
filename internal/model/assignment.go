package model

import "time"

// Assignment is one row of the assignment ledger. An assignment starts
// active (A) and is cancelled (C) in place when the asset is unassigned.
type Assignment struct {
	ID           string    `json:"asset_assign_id"`
	AssetID      string    `json:"asset_id"`
	OrgID        string    `json:"org_id"`
	DepartmentID *string   `json:"dept_id"`
	EmployeeID   *string   `json:"employee_int_id"`
	Action       string    `json:"action"`
	ActionOn     time.Time `json:"action_on"`
	ActionBy     string    `json:"action_by"`
	Latest       bool      `json:"latest_assignment_flag"`
	AssignedOn   time.Time `json:"assigned_on"`
}

// Assignment actions.
const (
	ActionActive    = "A"
	ActionCancelled = "C"
)

// ValidAction reports whether a is a recognized action code.
func ValidAction(a string) bool {
	return a == ActionActive || a == ActionCancelled
}

// AssignmentPatch lists the mutable assignment fields. Nil fields are left
// untouched.
type AssignmentPatch struct {
	DepartmentID *string
	AssetID      *string
	OrgID        *string
	EmployeeID   *string
	Action       *string
	Latest       *bool
	ActionBy     *string
}

// Empty reports whether the patch changes no data column.
func (p AssignmentPatch) Empty() bool {
	return p.DepartmentID == nil && p.AssetID == nil && p.OrgID == nil &&
		p.EmployeeID == nil && p.Action == nil && p.Latest == nil
}

// Assignment scopes, used to route notifications and audit lines.
const (
	ScopeDepartment = "department"
	ScopeEmployee   = "employee"
)
