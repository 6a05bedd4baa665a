package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/riobizsols/assetledger/internal/imaging"
	"github.com/riobizsols/assetledger/internal/model"
	"github.com/riobizsols/assetledger/internal/service"
	"github.com/riobizsols/assetledger/internal/store"
)

// maxUploadBytes bounds the multipart body of an image upload.
const maxUploadBytes = 10 << 20

// AssetsHandler handles asset types, assets and asset photos.
type AssetsHandler struct {
	DB          *sql.DB
	Assignments *service.Assignments
	Imaging     imaging.Options
}

type createAssetTypeRequest struct {
	ID             string `json:"asset_type_id" validate:"required"`
	OrgID          string `json:"org_id"`
	Name           string `json:"name" validate:"required"`
	AssignmentType string `json:"assignment_type" validate:"required,oneof=User Department"`
}

type createAssetRequest struct {
	ID           string `json:"asset_id" validate:"required"`
	OrgID        string `json:"org_id"`
	AssetTypeID  string `json:"asset_type_id" validate:"required"`
	Name         string `json:"name" validate:"required"`
	SerialNumber string `json:"serial_number"`
	Description  string `json:"description"`
}

type updateAssetRequest struct {
	Name         string `json:"name" validate:"required"`
	SerialNumber string `json:"serial_number"`
	Description  string `json:"description"`
}

// ListAssetTypes handles GET /api/asset-types.
func (h *AssetsHandler) ListAssetTypes(w http.ResponseWriter, r *http.Request) {
	types, err := store.ListAssetTypes(r.Context(), h.DB, orgParam(r))
	if err != nil {
		storeError(w, r, "list asset types", err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(types))
}

// CreateAssetType handles POST /api/asset-types.
func (h *AssetsHandler) CreateAssetType(w http.ResponseWriter, r *http.Request) {
	var req createAssetTypeRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if req.OrgID == "" {
		req.OrgID = orgParam(r)
	}

	at, err := store.CreateAssetType(r.Context(), h.DB, model.AssetType{
		ID:             req.ID,
		OrgID:          req.OrgID,
		Name:           req.Name,
		AssignmentType: req.AssignmentType,
	})
	if err != nil {
		storeError(w, r, "create asset type", err)
		return
	}

	slog.Info("asset type created", "user", actor(r), "asset_type_id", at.ID, "assignment_type", at.AssignmentType)
	jsonResponse(w, http.StatusCreated, map[string]any{"message": "asset type created", "asset_type": at})
}

// List handles GET /api/assets.
func (h *AssetsHandler) List(w http.ResponseWriter, r *http.Request) {
	assets, err := store.ListAssets(r.Context(), h.DB, orgParam(r), r.URL.Query().Get("group_id"))
	if err != nil {
		storeError(w, r, "list assets", err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(assets))
}

// Create handles POST /api/assets.
func (h *AssetsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAssetRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if req.OrgID == "" {
		req.OrgID = orgParam(r)
	}

	asset, err := store.CreateAsset(r.Context(), h.DB, model.Asset{
		ID:           req.ID,
		OrgID:        req.OrgID,
		AssetTypeID:  req.AssetTypeID,
		Name:         req.Name,
		SerialNumber: req.SerialNumber,
		Description:  req.Description,
	})
	if err != nil {
		storeError(w, r, "create asset", err)
		return
	}

	slog.Info("asset created", "user", actor(r), "asset_id", asset.ID)
	jsonResponse(w, http.StatusCreated, map[string]any{"message": "asset created", "asset": asset})
}

// Get handles GET /api/assets/{id}.
func (h *AssetsHandler) Get(w http.ResponseWriter, r *http.Request) {
	asset, err := store.GetAsset(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		storeError(w, r, "get asset", err)
		return
	}
	if asset == nil {
		jsonError(w, http.StatusNotFound, "asset not found")
		return
	}
	jsonResponse(w, http.StatusOK, asset)
}

// Update handles PUT /api/assets/{id}.
func (h *AssetsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateAssetRequest
	if !decodeValid(w, r, &req) {
		return
	}

	asset, err := store.UpdateAsset(r.Context(), h.DB, r.PathValue("id"), req.Name, req.SerialNumber, req.Description)
	if err != nil {
		storeError(w, r, "update asset", err)
		return
	}

	slog.Info("asset updated", "user", actor(r), "asset_id", asset.ID)
	jsonResponse(w, http.StatusOK, map[string]any{"message": "asset updated", "asset": asset})
}

// Delete handles DELETE /api/assets/{id}.
func (h *AssetsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := store.DeleteAsset(r.Context(), h.DB, id); err != nil {
		storeError(w, r, "delete asset", err)
		return
	}

	slog.Info("asset deleted", "user", actor(r), "asset_id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "asset deleted"})
}

// History handles GET /api/assets/{id}/assignments.
func (h *AssetsHandler) History(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Assignments.AssetHistory(r.Context(), r.PathValue("id"))
	if err != nil {
		storeError(w, r, "get asset history", err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(rows))
}

// UploadImage handles PUT /api/assets/{id}/image.
func (h *AssetsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	photo, err := imaging.Process(file, h.Imaging)
	switch {
	case errors.Is(err, imaging.ErrUnsupported):
		jsonError(w, http.StatusBadRequest, "image must be JPEG, PNG, or WebP")
		return
	case errors.Is(err, imaging.ErrTooLarge):
		jsonError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	case err != nil:
		slog.Error("failed to process image", "error", err, "asset_id", id)
		jsonError(w, http.StatusBadRequest, "could not decode image")
		return
	}

	if err := store.SetAssetImage(r.Context(), h.DB, id, photo.Data, photo.MIME); err != nil {
		storeError(w, r, "save image", err)
		return
	}

	slog.Info("asset image uploaded", "user", actor(r), "asset_id", id, "width", photo.Width, "height", photo.Height)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "image uploaded"})
}

// GetImage handles GET /api/assets/{id}/image.
func (h *AssetsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	data, mime, err := store.GetAssetImage(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		storeError(w, r, "get image", err)
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}
