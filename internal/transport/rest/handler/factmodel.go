package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"clearquest/internal/model"
	"clearquest/internal/service"
)

// FactModelHandler handles fact model registry endpoints
type FactModelHandler struct {
	registry *service.Registry
}

// NewFactModelHandler creates a new fact model handler
func NewFactModelHandler(registry *service.Registry) *FactModelHandler {
	return &FactModelHandler{registry: registry}
}

// FactModelRequest is the request body for creating or updating a fact model
type FactModelRequest struct {
	CategoryID        string          `json:"categoryId"`
	CategoryLabel     string          `json:"categoryLabel"`
	MandatoryFacts    []model.FactKey `json:"mandatoryFacts"`
	OptionalFacts     []model.FactKey `json:"optionalFacts"`
	SeverityFacts     []model.FactKey `json:"severityFacts"`
	ReadyForAIProbing bool            `json:"isReadyForAiProbing"`
}

// Create handles POST /v1/fact-models
func (h *FactModelHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req FactModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fm := &model.FactModel{
		CategoryID:        req.CategoryID,
		CategoryLabel:     req.CategoryLabel,
		MandatoryFacts:    req.MandatoryFacts,
		OptionalFacts:     req.OptionalFacts,
		SeverityFacts:     req.SeverityFacts,
		ReadyForAIProbing: req.ReadyForAIProbing,
	}

	created, err := h.registry.CreateFactModel(r.Context(), fm)
	if err != nil {
		if strings.Contains(err.Error(), "already exists") || strings.Contains(err.Error(), "required") {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// List handles GET /v1/fact-models
func (h *FactModelHandler) List(w http.ResponseWriter, r *http.Request) {
	models, err := h.registry.AllFactModels(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"factModels": models})
}

// GetByCategory handles GET /v1/fact-models/{categoryId}
func (h *FactModelHandler) GetByCategory(w http.ResponseWriter, r *http.Request) {
	categoryID := mux.Vars(r)["categoryId"]

	fm, err := h.registry.FactModelForCategory(r.Context(), categoryID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if fm == nil {
		writeError(w, http.StatusNotFound, "fact model not found")
		return
	}

	writeJSON(w, http.StatusOK, fm)
}

// Update handles PUT /v1/fact-models/{id}
func (h *FactModelHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req FactModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fm := &model.FactModel{
		ID:                id,
		CategoryID:        req.CategoryID,
		CategoryLabel:     req.CategoryLabel,
		MandatoryFacts:    req.MandatoryFacts,
		OptionalFacts:     req.OptionalFacts,
		SeverityFacts:     req.SeverityFacts,
		ReadyForAIProbing: req.ReadyForAIProbing,
	}

	if err := h.registry.UpdateFactModel(r.Context(), fm); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, fm)
}

// Delete handles DELETE /v1/fact-models/{id}
func (h *FactModelHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.registry.DeleteFactModel(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
