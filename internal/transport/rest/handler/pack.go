package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"clearquest/internal/model"
	"clearquest/internal/repository"
	"clearquest/internal/service"
)

// PackHandler handles follow-up pack endpoints
type PackHandler struct {
	packs repository.PackRepo
}

// NewPackHandler creates a new pack handler
func NewPackHandler(packs repository.PackRepo) *PackHandler {
	return &PackHandler{packs: packs}
}

// Upsert handles PUT /v1/packs/{packId}
func (h *PackHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	packID := mux.Vars(r)["packId"]

	var pack model.FollowUpPack
	if err := json.NewDecoder(r.Body).Decode(&pack); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	pack.PackID = packID

	if err := h.packs.Upsert(r.Context(), &pack); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, &pack)
}

// Get handles GET /v1/packs/{packId}. The response includes the resolved
// fact-model category so admins can see which packs run under the
// discretion engine.
func (h *PackHandler) Get(w http.ResponseWriter, r *http.Request) {
	packID := mux.Vars(r)["packId"]

	pack, err := h.packs.GetByPackID(r.Context(), packID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if pack == nil {
		writeError(w, http.StatusNotFound, "pack not found")
		return
	}

	categoryID, mapped := service.MapPackIDToCategory(packID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"pack":       pack,
		"categoryId": categoryID,
		"mapped":     mapped,
	})
}

// List handles GET /v1/packs
func (h *PackHandler) List(w http.ResponseWriter, r *http.Request) {
	packs, err := h.packs.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"packs": packs})
}

// Delete handles DELETE /v1/packs/{packId}
func (h *PackHandler) Delete(w http.ResponseWriter, r *http.Request) {
	packID := mux.Vars(r)["packId"]

	if err := h.packs.Delete(r.Context(), packID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ResolveCategory handles GET /v1/packs/{packId}/category. It answers the
// mapping question without requiring the pack to exist yet.
func (h *PackHandler) ResolveCategory(w http.ResponseWriter, r *http.Request) {
	packID := mux.Vars(r)["packId"]

	categoryID, mapped := service.MapPackIDToCategory(packID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"packId":     packID,
		"categoryId": categoryID,
		"mapped":     mapped,
	})
}
