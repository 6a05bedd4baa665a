package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riobizsols/assetledger/internal/metrics"
	"github.com/riobizsols/assetledger/internal/model"
	"github.com/riobizsols/assetledger/internal/store"
)

// AssignRequest describes a new assignment. Latest must be set explicitly;
// false is a valid value. Action defaults to active.
type AssignRequest struct {
	AssignmentID string
	AssetID      string
	OrgID        string
	DepartmentID *string
	EmployeeID   *string
	Action       string
	Latest       *bool
	Actor        string
}

// AssignResult is a created assignment, the assignment type it was checked
// against and any rows whose latest flag was cleared to make room for it.
type AssignResult struct {
	Assignment     *model.Assignment
	AssignmentType string
	Superseded     []model.Assignment
}

// UpdateResult is an updated assignment and whether it is department- or
// employee-scoped.
type UpdateResult struct {
	Assignment *model.Assignment
	Scope      string
}

// Assignments enforces assignment-type rules and drives the ledger.
type Assignments struct {
	db     *sql.DB
	events *Dispatcher
}

// NewAssignments returns an assignment orchestrator.
func NewAssignments(db *sql.DB, events *Dispatcher) *Assignments {
	return &Assignments{db: db, events: events}
}

// AssignAsset records a new assignment after checking the asset type's rule:
// user-assigned assets need an employee, department-assigned assets never
// carry one.
func (s *Assignments) AssignAsset(ctx context.Context, req AssignRequest) (res *AssignResult, err error) {
	defer func() { s.record("assign", err) }()

	if err := validateAssign(req); err != nil {
		return nil, err
	}
	if !present(req.DepartmentID) && !present(req.EmployeeID) {
		return nil, invalid("dept_id or employee_int_id is required")
	}
	s.events.Emit(ctx, Event{Op: "assign", Step: "assignment requested", Actor: req.Actor,
		Attrs: []any{"asset_id", req.AssetID, "asset_assign_id", req.AssignmentID}})

	return s.create(ctx, "assign", req, true)
}

// AssignToEmployee records an assignment to an employee without consulting
// the asset type.
func (s *Assignments) AssignToEmployee(ctx context.Context, req AssignRequest) (res *AssignResult, err error) {
	defer func() { s.record("assign_employee", err) }()

	if err := validateAssign(req); err != nil {
		return nil, err
	}
	if !present(req.EmployeeID) {
		return nil, fmt.Errorf("employee_int_id is required: %w", store.ErrMissingActor)
	}
	s.events.Emit(ctx, Event{Op: "assign_employee", Step: "assignment requested", Actor: req.Actor,
		Attrs: []any{"asset_id", req.AssetID, "employee_int_id", *req.EmployeeID}})

	return s.create(ctx, "assign_employee", req, false)
}

func (s *Assignments) create(ctx context.Context, op string, req AssignRequest, checkType bool) (*AssignResult, error) {
	if req.Action == "" {
		req.Action = model.ActionActive
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res := &AssignResult{}
	if checkType {
		res.AssignmentType, err = store.ResolveAssetAssignmentType(ctx, tx, req.AssetID)
		if err != nil {
			return nil, err
		}
		switch res.AssignmentType {
		case model.AssignmentTypeUser:
			if !present(req.EmployeeID) {
				return nil, fmt.Errorf("asset %s requires an employee: %w", req.AssetID, store.ErrMissingActor)
			}
		case model.AssignmentTypeDepartment:
			req.EmployeeID = nil
			if !present(req.DepartmentID) {
				return nil, fmt.Errorf("asset %s requires a department: %w", req.AssetID, store.ErrMissingActor)
			}
		default:
			return nil, fmt.Errorf("asset %s has assignment type %q: %w", req.AssetID, res.AssignmentType, store.ErrAssetNotConfigured)
		}
	} else {
		res.AssignmentType = model.AssignmentTypeUser
	}

	if err := store.CheckAssignmentOrg(ctx, tx, req.OrgID, req.AssetID, req.DepartmentID, req.EmployeeID); err != nil {
		return nil, err
	}

	exists, err := store.AssignmentExists(ctx, tx, req.AssignmentID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("assignment %s: %w", req.AssignmentID, store.ErrDuplicateIdentifier)
	}

	if req.Action == model.ActionActive && *req.Latest {
		res.Superseded, err = store.ForceLatestFlag(ctx, tx, req.AssetID, false)
		if err != nil {
			return nil, err
		}
	}

	res.Assignment, err = store.CreateAssignment(ctx, tx, model.Assignment{
		ID:           req.AssignmentID,
		AssetID:      req.AssetID,
		OrgID:        req.OrgID,
		DepartmentID: req.DepartmentID,
		EmployeeID:   req.EmployeeID,
		Action:       req.Action,
		ActionBy:     req.Actor,
		Latest:       *req.Latest,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing assignment: %w", err)
	}

	s.events.Emit(ctx, Event{Op: op, Step: "assignment created", Actor: req.Actor,
		Attrs: []any{"asset_assign_id", res.Assignment.ID, "asset_id", res.Assignment.AssetID,
			"assignment_type", res.AssignmentType, "superseded", len(res.Superseded)}})
	return res, nil
}

// UpdateAssignment applies a partial update, typically action C to
// unassign. When the updated row ends up active and latest, whether set by
// the patch or carried over, the flag is cleared on the asset's other rows
// first.
func (s *Assignments) UpdateAssignment(ctx context.Context, id string, patch model.AssignmentPatch, actor string) (res *UpdateResult, err error) {
	defer func() { s.record("update", err) }()

	if id == "" {
		return nil, invalid("asset_assign_id is required")
	}
	if actor == "" {
		return nil, invalid("acting user is required")
	}
	if patch.AssetID != nil && *patch.AssetID == "" {
		return nil, invalid("asset_id cannot be cleared")
	}
	if patch.OrgID != nil && *patch.OrgID == "" {
		return nil, invalid("org_id cannot be cleared")
	}
	patch.ActionBy = &actor

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := store.GetAssignment(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("assignment %s: %w", id, store.ErrNotFound)
	}

	// The row's resulting state decides whether it becomes the asset's
	// current holder, not just the fields present in the patch.
	action := existing.Action
	if patch.Action != nil {
		action = *patch.Action
	}
	assetID := existing.AssetID
	if patch.AssetID != nil {
		assetID = *patch.AssetID
	}
	latest := existing.Latest
	if patch.Latest != nil {
		latest = *patch.Latest
	}
	orgID := existing.OrgID
	if patch.OrgID != nil {
		orgID = *patch.OrgID
	}

	if patch.AssetID != nil || patch.OrgID != nil || present(patch.DepartmentID) || present(patch.EmployeeID) {
		dept, emp := existing.DepartmentID, existing.EmployeeID
		if patch.DepartmentID != nil {
			dept = patch.DepartmentID
		}
		if patch.EmployeeID != nil {
			emp = patch.EmployeeID
		}
		if err := store.CheckAssignmentOrg(ctx, tx, orgID, assetID, dept, emp); err != nil {
			return nil, err
		}
	}

	if action == model.ActionActive && latest {
		if _, err := store.ForceLatestFlag(ctx, tx, assetID, false); err != nil {
			return nil, err
		}
		// ForceLatestFlag also clears this row when it already sits on assetID.
		patch.Latest = &latest
	}

	updated, err := store.MutateAssignment(ctx, tx, id, patch)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing assignment update: %w", err)
	}

	res = &UpdateResult{Assignment: updated, Scope: scopeOf(patch, existing)}
	s.events.Emit(ctx, Event{Op: "update", Step: "assignment updated", Actor: actor,
		Attrs: []any{"asset_assign_id", id, "action", updated.Action, "scope", res.Scope}})
	return res, nil
}

// scopeOf prefers the fields supplied in the patch over the stored ones.
func scopeOf(patch model.AssignmentPatch, existing *model.Assignment) string {
	switch {
	case present(patch.EmployeeID):
		return model.ScopeEmployee
	case present(patch.DepartmentID):
		return model.ScopeDepartment
	case present(existing.EmployeeID):
		return model.ScopeEmployee
	case present(existing.DepartmentID):
		return model.ScopeDepartment
	}
	return ""
}

// GetAssignment returns an assignment or ErrNotFound.
func (s *Assignments) GetAssignment(ctx context.Context, id string) (*model.Assignment, error) {
	a, err := store.GetAssignment(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("assignment %s: %w", id, store.ErrNotFound)
	}
	return a, nil
}

// ListAssignments returns ledger rows matching f, most recent first.
func (s *Assignments) ListAssignments(ctx context.Context, f store.AssignmentFilter) ([]model.Assignment, error) {
	return store.ListAssignments(ctx, s.db, f)
}

// DepartmentAssignments lists a department's assignments.
func (s *Assignments) DepartmentAssignments(ctx context.Context, departmentID string, currentOnly bool) ([]model.Assignment, error) {
	d, err := store.GetDepartment(ctx, s.db, departmentID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("department %s: %w", departmentID, store.ErrNotFound)
	}
	return store.ListAssignments(ctx, s.db, store.AssignmentFilter{DepartmentID: departmentID, CurrentOnly: currentOnly})
}

// EmployeeAssignments lists an employee's assignments. ref is an internal
// employee ID or an employee code.
func (s *Assignments) EmployeeAssignments(ctx context.Context, ref string, currentOnly bool) ([]model.Assignment, error) {
	e, err := store.ResolveEmployee(ctx, s.db, ref)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("employee %s: %w", ref, store.ErrNotFound)
	}
	return store.ListAssignments(ctx, s.db, store.AssignmentFilter{Employee: e.ID, CurrentOnly: currentOnly})
}

// ActiveForEmployee lists the assets an employee currently holds.
func (s *Assignments) ActiveForEmployee(ctx context.Context, ref string) ([]model.Assignment, error) {
	return s.EmployeeAssignments(ctx, ref, true)
}

// AssetHistory lists every assignment of an asset.
func (s *Assignments) AssetHistory(ctx context.Context, assetID string) ([]model.Assignment, error) {
	a, err := store.GetAsset(ctx, s.db, assetID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("asset %s: %w", assetID, store.ErrNotFound)
	}
	return store.ListAssignmentsByAsset(ctx, s.db, assetID)
}

func (s *Assignments) record(op string, err error) {
	if err == nil {
		metrics.RecordAssignment(op, "")
		return
	}
	metrics.RecordAssignment(op, store.ClassName(err))
}

func validateAssign(req AssignRequest) error {
	switch {
	case req.AssignmentID == "":
		return invalid("asset_assign_id is required")
	case req.AssetID == "":
		return invalid("asset_id is required")
	case req.OrgID == "":
		return invalid("org_id is required")
	case req.Latest == nil:
		return invalid("latest_assignment_flag is required")
	case req.Actor == "":
		return invalid("acting user is required")
	case req.Action != "" && !model.ValidAction(req.Action):
		return invalid("action must be A or C")
	}
	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%s: %w", msg, store.ErrValidation)
}

func present(s *string) bool {
	return s != nil && *s != ""
}
