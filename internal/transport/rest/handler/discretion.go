package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"clearquest/internal/cache"
	"clearquest/internal/model"
	"clearquest/internal/repository"
)

// DiscretionHandler handles discretion config and decision trace endpoints
type DiscretionHandler struct {
	configs     repository.ConfigRepo
	configCache cache.ConfigCache
	traces      repository.TraceRepo
}

// NewDiscretionHandler creates a new discretion handler
func NewDiscretionHandler(configs repository.ConfigRepo, configCache cache.ConfigCache, traces repository.TraceRepo) *DiscretionHandler {
	return &DiscretionHandler{
		configs:     configs,
		configCache: configCache,
		traces:      traces,
	}
}

// GetConfig handles GET /v1/discretion/config
func (h *DiscretionHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.configs.GetDiscretionConfig(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, cfg)
}

// PutConfig handles PUT /v1/discretion/config. Legacy verbosity names in
// the payload are normalized before persisting.
func (h *DiscretionHandler) PutConfig(w http.ResponseWriter, r *http.Request) {
	var cfg model.DiscretionConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cfg.TraceVerbosity = model.NormalizeVerbosity(string(cfg.TraceVerbosity))

	if cfg.MaxProbesPerIncident <= 0 {
		writeError(w, http.StatusBadRequest, "maxProbesPerIncident must be positive")
		return
	}
	if cfg.MaxNonSubstantiveResponses <= 0 {
		writeError(w, http.StatusBadRequest, "maxNonSubstantiveResponses must be positive")
		return
	}

	if err := h.configs.PutDiscretionConfig(r.Context(), &cfg); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := h.configCache.Invalidate(r.Context()); err != nil {
		logrus.WithError(err).Warn("failed to invalidate discretion config cache")
	}

	writeJSON(w, http.StatusOK, &cfg)
}

// ListSessionTraces handles GET /v1/sessions/{sessionId}/traces
func (h *DiscretionHandler) ListSessionTraces(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	traces, err := h.traces.ListBySession(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"traces": traces})
}

// ListIncidentTraces handles GET /v1/incidents/{incidentId}/traces
func (h *DiscretionHandler) ListIncidentTraces(w http.ResponseWriter, r *http.Request) {
	incidentID := mux.Vars(r)["incidentId"]

	traces, err := h.traces.ListByIncident(r.Context(), incidentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"traces": traces})
}
