package api

import (
	"database/sql"
	"net/http"

	"github.com/riobizsols/assetledger/internal/auth"
	"github.com/riobizsols/assetledger/internal/imaging"
	"github.com/riobizsols/assetledger/internal/metrics"
	"github.com/riobizsols/assetledger/internal/model"
	"github.com/riobizsols/assetledger/internal/service"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	DB          *sql.DB
	Signer      *auth.Signer
	Assignments *service.Assignments
	Groups      *service.Groups
	Imaging     imaging.Options
	// MetricsPath serves Prometheus metrics when non-empty.
	MetricsPath string
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: d.DB, Signer: d.Signer}
	usersHandler := &UsersHandler{DB: d.DB}
	holdersHandler := &HoldersHandler{DB: d.DB, Assignments: d.Assignments}
	assetsHandler := &AssetsHandler{DB: d.DB, Assignments: d.Assignments, Imaging: d.Imaging}
	assignmentsHandler := &AssignmentsHandler{Assignments: d.Assignments}
	groupsHandler := &GroupsHandler{Groups: d.Groups}

	authMW := AuthMiddleware(d.Signer, d.DB)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireManager := RequireRole(model.RoleManager)

	read := func(h http.HandlerFunc) http.Handler { return authMW(h) }
	write := func(h http.HandlerFunc) http.Handler { return authMW(requireManager(h)) }
	admin := func(h http.HandlerFunc) http.Handler { return authMW(requireAdmin(h)) }

	// Public.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/health", health(d.DB))
	if d.MetricsPath != "" {
		mux.Handle("GET "+d.MetricsPath, metrics.Handler())
	}

	mux.Handle("PUT /api/auth/password", read(authHandler.ChangePassword))
	mux.Handle("POST /api/auth/logout", read(authHandler.Logout))

	// Users (admin only).
	mux.Handle("GET /api/users", admin(usersHandler.List))
	mux.Handle("POST /api/users", admin(usersHandler.Create))
	mux.Handle("DELETE /api/users/{id}", admin(usersHandler.Delete))

	// Holders.
	mux.Handle("GET /api/departments", read(holdersHandler.ListDepartments))
	mux.Handle("POST /api/departments", write(holdersHandler.CreateDepartment))
	mux.Handle("GET /api/departments/{id}/assignments", read(holdersHandler.DepartmentAssignments))
	mux.Handle("GET /api/employees", read(holdersHandler.ListEmployees))
	mux.Handle("POST /api/employees", write(holdersHandler.CreateEmployee))
	mux.Handle("GET /api/employees/{ref}/assignments", read(holdersHandler.EmployeeAssignments))

	// Asset types and assets.
	mux.Handle("GET /api/asset-types", read(assetsHandler.ListAssetTypes))
	mux.Handle("POST /api/asset-types", write(assetsHandler.CreateAssetType))
	mux.Handle("GET /api/assets", read(assetsHandler.List))
	mux.Handle("POST /api/assets", write(assetsHandler.Create))
	mux.Handle("GET /api/assets/{id}", read(assetsHandler.Get))
	mux.Handle("PUT /api/assets/{id}", write(assetsHandler.Update))
	mux.Handle("DELETE /api/assets/{id}", write(assetsHandler.Delete))
	mux.Handle("GET /api/assets/{id}/image", read(assetsHandler.GetImage))
	mux.Handle("PUT /api/assets/{id}/image", write(assetsHandler.UploadImage))
	mux.Handle("GET /api/assets/{id}/assignments", read(assetsHandler.History))

	// Assignment ledger.
	mux.Handle("POST /api/assignments", write(assignmentsHandler.Assign))
	mux.Handle("POST /api/assignments/employee", write(assignmentsHandler.AssignToEmployee))
	mux.Handle("GET /api/assignments", read(assignmentsHandler.List))
	mux.Handle("GET /api/assignments/{id}", read(assignmentsHandler.Get))
	mux.Handle("PUT /api/assignments/{id}", write(assignmentsHandler.Update))

	// Asset groups.
	mux.Handle("GET /api/groups", read(groupsHandler.List))
	mux.Handle("POST /api/groups", write(groupsHandler.Create))
	mux.Handle("GET /api/groups/{id}", read(groupsHandler.Get))
	mux.Handle("PUT /api/groups/{id}", write(groupsHandler.Update))
	mux.Handle("DELETE /api/groups/{id}", write(groupsHandler.Delete))

	return RequestIDMiddleware(LoggingMiddleware(RecoverMiddleware(mux)))
}

func health(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			jsonError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
