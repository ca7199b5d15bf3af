package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"clearquest/internal/model"
	"clearquest/internal/service"
	"clearquest/internal/transport/rest/middleware"
)

// SessionHandler handles interview session endpoints
type SessionHandler struct {
	sessions   *service.Sessions
	transcript *service.Transcript
	authSvc    *service.AuthService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *service.Sessions, transcript *service.Transcript, authSvc *service.AuthService) *SessionHandler {
	return &SessionHandler{
		sessions:   sessions,
		transcript: transcript,
		authSvc:    authSvc,
	}
}

// CreateSessionRequest is the request body for creating a session
type CreateSessionRequest struct {
	CandidateID  string `json:"candidateId"`
	DepartmentID string `json:"departmentId"`
}

// DiscloseRequest is the request body for a "Yes" disclosure
type DiscloseRequest struct {
	QuestionID   string `json:"questionId"`
	QuestionCode string `json:"questionCode"`
	PackID       string `json:"packId"`
}

// AnswerRequest is the request body for answering a probe
type AnswerRequest struct {
	IncidentID string `json:"incidentId"`
	Text       string `json:"text"`
}

// Create handles POST /v1/sessions. It returns the session plus a
// candidate token scoped to it.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CandidateID == "" {
		writeError(w, http.StatusBadRequest, "candidateId is required")
		return
	}

	session, err := h.sessions.CreateSession(r.Context(), req.CandidateID, req.DepartmentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	token, err := h.authSvc.IssueCandidateToken(session.ID, req.CandidateID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"session":        session,
		"candidateToken": token,
	})
}

// List handles GET /v1/sessions
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessions.ListSessions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

// Get handles GET /v1/sessions/{sessionId}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	session, err := h.sessions.GetSession(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// Transcript handles GET /v1/sessions/{sessionId}/transcript. Admins see
// the full transcript including invisible audit entries.
func (h *SessionHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	session, err := h.sessions.GetSession(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"transcript": session.Transcript,
		"version":    session.TranscriptVersion,
	})
}

// SelfCheck handles GET /v1/sessions/{sessionId}/transcript/selfcheck
func (h *SessionHandler) SelfCheck(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	report, err := h.transcript.SelfCheck(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// Disclose handles POST /v1/interview/disclose (candidate)
func (h *SessionHandler) Disclose(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())
	if sessionID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req DiscloseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PackID == "" {
		writeError(w, http.StatusBadRequest, "packId is required")
		return
	}

	result, err := h.sessions.RecordDisclosure(r.Context(), sessionID, req.QuestionID, req.QuestionCode, req.PackID)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Answer handles POST /v1/interview/answer (candidate)
func (h *SessionHandler) Answer(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())
	if sessionID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.IncidentID == "" {
		writeError(w, http.StatusBadRequest, "incidentId is required")
		return
	}

	result, err := h.sessions.SubmitAnswer(r.Context(), sessionID, req.IncidentID, req.Text)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Resume handles POST /v1/interview/resume (candidate). The response
// transcript is filtered to candidate-visible entries.
func (h *SessionHandler) Resume(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())
	if sessionID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	session, err := h.sessions.ResumeSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	visible := make([]model.TranscriptEntry, 0, len(session.Transcript))
	for _, e := range session.Transcript {
		if e.VisibleToCandidate {
			visible = append(visible, e)
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessionId":  session.ID,
		"status":     session.Status,
		"transcript": visible,
	})
}

// Complete handles POST /v1/interview/complete (candidate)
func (h *SessionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())
	if sessionID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.sessions.CompleteSession(r.Context(), sessionID); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}
