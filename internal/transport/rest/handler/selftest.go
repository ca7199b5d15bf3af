package handler

import (
	"net/http"

	"clearquest/internal/service"
)

// SelfTestHandler handles the deployment self-test endpoint
type SelfTestHandler struct {
	selfTest *service.SelfTest
}

// NewSelfTestHandler creates a new self-test handler
func NewSelfTestHandler(selfTest *service.SelfTest) *SelfTestHandler {
	return &SelfTestHandler{selfTest: selfTest}
}

// Run handles POST /v1/selftest
func (h *SelfTestHandler) Run(w http.ResponseWriter, r *http.Request) {
	result := h.selfTest.Run(r.Context())

	status := http.StatusOK
	if !result.OK {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, result)
}
