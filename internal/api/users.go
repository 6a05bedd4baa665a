package api

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/riobizsols/assetledger/internal/model"
	"github.com/riobizsols/assetledger/internal/store"
)

// UsersHandler handles user management endpoints (admin only).
type UsersHandler struct {
	DB *sql.DB
}

type createUserRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=admin manager user"`
	OrgID    string `json:"org_id"`
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers(r.Context(), h.DB)
	if err != nil {
		storeError(w, r, "list users", err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(users))
}

// Create handles POST /api/users.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeValid(w, r, &req) {
		return
	}

	if err := model.ValidatePassword(req.Password); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user, err := store.CreateUser(r.Context(), h.DB, req.Username, string(hash), req.Role, req.OrgID)
	if err != nil {
		storeError(w, r, "create user", err)
		return
	}

	slog.Info("user created", "user", actor(r), "new_user", req.Username, "role", req.Role)
	jsonResponse(w, http.StatusCreated, map[string]any{"message": "user created", "user": user})
}

// Delete handles DELETE /api/users/{id}.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	// Prevent self-deletion.
	claims := GetClaims(r.Context())
	if claims != nil && claims.UserID == id {
		jsonError(w, http.StatusBadRequest, "cannot delete yourself")
		return
	}

	target, _ := store.GetUser(r.Context(), h.DB, id)
	targetName := fmt.Sprintf("id:%d", id)
	if target != nil {
		targetName = target.Username
	}

	if err := store.DeleteUser(r.Context(), h.DB, id); err != nil {
		storeError(w, r, "delete user", err)
		return
	}

	slog.Info("user deleted", "user", actor(r), "deleted_user", targetName)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "user deleted"})
}
