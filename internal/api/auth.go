package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/riobizsols/assetledger/internal/auth"
	"github.com/riobizsols/assetledger/internal/model"
	"github.com/riobizsols/assetledger/internal/store"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	DB     *sql.DB
	Signer *auth.Signer
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeValid(w, r, &req) {
		return
	}

	user, err := store.GetUserByUsername(r.Context(), h.DB, req.Username)
	if err != nil {
		storeError(w, r, "look up user", err)
		return
	}
	if user == nil {
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		slog.Warn("login failed", "username", req.Username, "remote", r.RemoteAddr)
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.Signer.Issue(user)
	if err != nil {
		slog.Error("failed to issue token", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	slog.Info("user logged in", "user", user.Username, "role", user.Role)
	jsonResponse(w, http.StatusOK, loginResponse{Token: token, User: user})
}

// Logout handles POST /api/auth/logout. The presented token is revoked
// until it would have expired.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	expires := time.Now().Add(h.Signer.TTL)
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	if err := store.RevokeToken(r.Context(), h.DB, claims.ID, expires); err != nil {
		storeError(w, r, "revoke token", err)
		return
	}

	slog.Info("user logged out", "user", claims.Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// ChangePassword handles PUT /api/auth/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req changePasswordRequest
	if !decodeValid(w, r, &req) {
		return
	}

	if err := model.ValidatePassword(req.NewPassword); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, claims.UserID)
	if err != nil {
		storeError(w, r, "look up user", err)
		return
	}
	if user == nil || user.DeletedAt != nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		jsonError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	if err := store.UpdateUserPassword(r.Context(), h.DB, claims.UserID, string(hash)); err != nil {
		storeError(w, r, "update password", err)
		return
	}

	slog.Info("user changed own password", "user", claims.Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password updated"})
}
