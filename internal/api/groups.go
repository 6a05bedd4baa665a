package api

import (
	"net/http"

	"github.com/riobizsols/assetledger/internal/service"
)

// GroupsHandler handles asset group endpoints.
type GroupsHandler struct {
	Groups *service.Groups
}

type createGroupRequest struct {
	OrgID    string   `json:"org_id"`
	Name     string   `json:"text" validate:"required"`
	AssetIDs []string `json:"asset_ids" validate:"omitempty,dive,required"`
}

type updateGroupRequest struct {
	Name     string   `json:"text" validate:"required"`
	AssetIDs []string `json:"asset_ids" validate:"omitempty,dive,required"`
}

// List handles GET /api/groups.
func (h *GroupsHandler) List(w http.ResponseWriter, r *http.Request) {
	groups, err := h.Groups.ListGroups(r.Context(), orgParam(r))
	if err != nil {
		storeError(w, r, "list groups", err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(groups))
}

// Create handles POST /api/groups.
func (h *GroupsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if req.OrgID == "" {
		req.OrgID = orgParam(r)
	}

	g, err := h.Groups.CreateGroup(r.Context(), req.OrgID, req.Name, req.AssetIDs, actor(r))
	if err != nil {
		storeError(w, r, "create group", err)
		return
	}
	jsonResponse(w, http.StatusCreated, map[string]any{"message": "group created", "group": g})
}

// Get handles GET /api/groups/{id}.
func (h *GroupsHandler) Get(w http.ResponseWriter, r *http.Request) {
	g, err := h.Groups.GetGroup(r.Context(), r.PathValue("id"))
	if err != nil {
		storeError(w, r, "get group", err)
		return
	}
	jsonResponse(w, http.StatusOK, g)
}

// Update handles PUT /api/groups/{id}. The asset list replaces the current
// membership.
func (h *GroupsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateGroupRequest
	if !decodeValid(w, r, &req) {
		return
	}

	g, err := h.Groups.UpdateGroup(r.Context(), r.PathValue("id"), req.Name, req.AssetIDs, actor(r))
	if err != nil {
		storeError(w, r, "update group", err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"message": "group updated", "group": g})
}

// Delete handles DELETE /api/groups/{id}.
func (h *GroupsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Groups.DeleteGroup(r.Context(), r.PathValue("id"), actor(r)); err != nil {
		storeError(w, r, "delete group", err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "group deleted"})
}
