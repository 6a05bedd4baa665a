package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/riobizsols/assetledger/internal/model"
	"github.com/riobizsols/assetledger/internal/service"
	"github.com/riobizsols/assetledger/internal/store"
)

// HoldersHandler handles departments, employees and the assignment views
// scoped to them.
type HoldersHandler struct {
	DB          *sql.DB
	Assignments *service.Assignments
}

type createDepartmentRequest struct {
	ID    string `json:"dept_id" validate:"required"`
	OrgID string `json:"org_id"`
	Name  string `json:"name" validate:"required"`
}

type createEmployeeRequest struct {
	ID           string  `json:"employee_int_id" validate:"required"`
	OrgID        string  `json:"org_id"`
	EmpCode      string  `json:"emp_code" validate:"required"`
	Name         string  `json:"name" validate:"required"`
	DepartmentID *string `json:"dept_id"`
}

// ListDepartments handles GET /api/departments.
func (h *HoldersHandler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	depts, err := store.ListDepartments(r.Context(), h.DB, orgParam(r))
	if err != nil {
		storeError(w, r, "list departments", err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(depts))
}

// CreateDepartment handles POST /api/departments.
func (h *HoldersHandler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	var req createDepartmentRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if req.OrgID == "" {
		req.OrgID = orgParam(r)
	}

	dept, err := store.CreateDepartment(r.Context(), h.DB, model.Department{
		ID:    req.ID,
		OrgID: req.OrgID,
		Name:  req.Name,
	})
	if err != nil {
		storeError(w, r, "create department", err)
		return
	}

	slog.Info("department created", "user", actor(r), "dept_id", dept.ID)
	jsonResponse(w, http.StatusCreated, map[string]any{"message": "department created", "department": dept})
}

// DepartmentAssignments handles GET /api/departments/{id}/assignments.
func (h *HoldersHandler) DepartmentAssignments(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Assignments.DepartmentAssignments(r.Context(), r.PathValue("id"), currentOnly(r))
	if err != nil {
		storeError(w, r, "list department assignments", err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(rows))
}

// ListEmployees handles GET /api/employees.
func (h *HoldersHandler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	emps, err := store.ListEmployees(r.Context(), h.DB, orgParam(r), r.URL.Query().Get("department_id"))
	if err != nil {
		storeError(w, r, "list employees", err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(emps))
}

// CreateEmployee handles POST /api/employees.
func (h *HoldersHandler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req createEmployeeRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if req.OrgID == "" {
		req.OrgID = orgParam(r)
	}

	emp, err := store.CreateEmployee(r.Context(), h.DB, model.Employee{
		ID:           req.ID,
		OrgID:        req.OrgID,
		EmpCode:      req.EmpCode,
		Name:         req.Name,
		DepartmentID: req.DepartmentID,
	})
	if err != nil {
		storeError(w, r, "create employee", err)
		return
	}

	slog.Info("employee created", "user", actor(r), "employee_int_id", emp.ID, "emp_code", emp.EmpCode)
	jsonResponse(w, http.StatusCreated, map[string]any{"message": "employee created", "employee": emp})
}

// EmployeeAssignments handles GET /api/employees/{ref}/assignments. ref is
// an internal employee id or an employee code.
func (h *HoldersHandler) EmployeeAssignments(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Assignments.EmployeeAssignments(r.Context(), r.PathValue("ref"), currentOnly(r))
	if err != nil {
		storeError(w, r, "list employee assignments", err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(rows))
}

// currentOnly reads the "current" query flag.
func currentOnly(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("current"))
	return v
}
