package api

import (
	"net/http"

	"github.com/riobizsols/assetledger/internal/model"
	"github.com/riobizsols/assetledger/internal/service"
	"github.com/riobizsols/assetledger/internal/store"
)

// AssignmentsHandler handles the assignment ledger endpoints.
type AssignmentsHandler struct {
	Assignments *service.Assignments
}

// assignRequest is the body of both assign endpoints. The latest flag must
// be present; false is accepted.
type assignRequest struct {
	ID           string  `json:"asset_assign_id" validate:"required"`
	AssetID      string  `json:"asset_id" validate:"required"`
	OrgID        string  `json:"org_id" validate:"required"`
	DepartmentID *string `json:"dept_id"`
	EmployeeID   *string `json:"employee_int_id"`
	Action       string  `json:"action" validate:"omitempty,oneof=A C"`
	Latest       *bool   `json:"latest_assignment_flag" validate:"required"`
}

type updateAssignmentRequest struct {
	DepartmentID *string `json:"dept_id"`
	AssetID      *string `json:"asset_id"`
	OrgID        *string `json:"org_id"`
	EmployeeID   *string `json:"employee_int_id"`
	Action       *string `json:"action" validate:"omitempty,oneof=A C"`
	Latest       *bool   `json:"latest_assignment_flag"`
}

func (req assignRequest) toService(actor string) service.AssignRequest {
	return service.AssignRequest{
		AssignmentID: req.ID,
		AssetID:      req.AssetID,
		OrgID:        req.OrgID,
		DepartmentID: req.DepartmentID,
		EmployeeID:   req.EmployeeID,
		Action:       req.Action,
		Latest:       req.Latest,
		Actor:        actor,
	}
}

// Assign handles POST /api/assignments.
func (h *AssignmentsHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if !decodeValid(w, r, &req) {
		return
	}

	res, err := h.Assignments.AssignAsset(r.Context(), req.toService(actor(r)))
	if err != nil {
		storeError(w, r, "assign asset", err)
		return
	}

	jsonResponse(w, http.StatusCreated, map[string]any{
		"message":         "asset assigned",
		"assignment":      res.Assignment,
		"assignment_type": res.AssignmentType,
	})
}

// AssignToEmployee handles POST /api/assignments/employee.
func (h *AssignmentsHandler) AssignToEmployee(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if !decodeValid(w, r, &req) {
		return
	}

	res, err := h.Assignments.AssignToEmployee(r.Context(), req.toService(actor(r)))
	if err != nil {
		storeError(w, r, "assign asset to employee", err)
		return
	}

	jsonResponse(w, http.StatusCreated, map[string]any{
		"message":    "asset assigned to employee",
		"assignment": res.Assignment,
	})
}

// List handles GET /api/assignments.
func (h *AssignmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rows, err := h.Assignments.ListAssignments(r.Context(), store.AssignmentFilter{
		AssetID:      q.Get("asset_id"),
		DepartmentID: q.Get("department_id"),
		Employee:     q.Get("employee"),
		Action:       q.Get("action"),
		OrgID:        orgParam(r),
		CurrentOnly:  currentOnly(r),
	})
	if err != nil {
		storeError(w, r, "list assignments", err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(rows))
}

// Get handles GET /api/assignments/{id}.
func (h *AssignmentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.Assignments.GetAssignment(r.Context(), r.PathValue("id"))
	if err != nil {
		storeError(w, r, "get assignment", err)
		return
	}
	jsonResponse(w, http.StatusOK, a)
}

// Update handles PUT /api/assignments/{id}. Sending action C unassigns.
func (h *AssignmentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateAssignmentRequest
	if !decodeValid(w, r, &req) {
		return
	}

	patch := model.AssignmentPatch{
		DepartmentID: req.DepartmentID,
		AssetID:      req.AssetID,
		OrgID:        req.OrgID,
		EmployeeID:   req.EmployeeID,
		Action:       req.Action,
		Latest:       req.Latest,
	}
	if patch.Empty() {
		jsonError(w, http.StatusBadRequest, "no fields to update")
		return
	}

	res, err := h.Assignments.UpdateAssignment(r.Context(), r.PathValue("id"), patch, actor(r))
	if err != nil {
		storeError(w, r, "update assignment", err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"message":    "assignment updated",
		"assignment": res.Assignment,
		"scope":      res.Scope,
	})
}
