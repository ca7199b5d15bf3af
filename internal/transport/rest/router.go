package rest

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"clearquest/internal/cache"
	"clearquest/internal/repository"
	"clearquest/internal/service"
	"clearquest/internal/transport/rest/handler"
	"clearquest/internal/transport/rest/middleware"
	"clearquest/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService *service.AuthService
	Sessions    *service.Sessions
	Transcript  *service.Transcript
	Registry    *service.Registry
	SelfTest    *service.SelfTest
	Packs       repository.PackRepo
	Configs     repository.ConfigRepo
	Traces      repository.TraceRepo
	ConfigCache cache.ConfigCache
	WSHub       *ws.Hub
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	factModelHandler := handler.NewFactModelHandler(c.Registry)
	packHandler := handler.NewPackHandler(c.Packs)
	discretionHandler := handler.NewDiscretionHandler(c.Configs, c.ConfigCache, c.Traces)
	sessionHandler := handler.NewSessionHandler(c.Sessions, c.Transcript, c.AuthService)
	selfTestHandler := handler.NewSelfTestHandler(c.SelfTest)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware)

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")

	// WebSocket routes (public with token in query param)
	v1.HandleFunc("/ws/sessions/{sessionId}/monitor", wsHandler.MonitorWS).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Admin routes (require admin auth)
	adminRoutes := v1.NewRoute().Subrouter()
	adminRoutes.Use(authMW.RequireAdmin)

	adminRoutes.HandleFunc("/fact-models", factModelHandler.Create).Methods("POST", "OPTIONS")
	adminRoutes.HandleFunc("/fact-models", factModelHandler.List).Methods("GET", "OPTIONS")
	adminRoutes.HandleFunc("/fact-models/{categoryId}", factModelHandler.GetByCategory).Methods("GET", "OPTIONS")
	adminRoutes.HandleFunc("/fact-models/{id}", factModelHandler.Update).Methods("PUT", "OPTIONS")
	adminRoutes.HandleFunc("/fact-models/{id}", factModelHandler.Delete).Methods("DELETE", "OPTIONS")

	adminRoutes.HandleFunc("/packs", packHandler.List).Methods("GET", "OPTIONS")
	adminRoutes.HandleFunc("/packs/{packId}", packHandler.Upsert).Methods("PUT", "OPTIONS")
	adminRoutes.HandleFunc("/packs/{packId}", packHandler.Get).Methods("GET", "OPTIONS")
	adminRoutes.HandleFunc("/packs/{packId}", packHandler.Delete).Methods("DELETE", "OPTIONS")
	adminRoutes.HandleFunc("/packs/{packId}/category", packHandler.ResolveCategory).Methods("GET", "OPTIONS")

	adminRoutes.HandleFunc("/discretion/config", discretionHandler.GetConfig).Methods("GET", "OPTIONS")
	adminRoutes.HandleFunc("/discretion/config", discretionHandler.PutConfig).Methods("PUT", "OPTIONS")

	adminRoutes.HandleFunc("/sessions", sessionHandler.Create).Methods("POST", "OPTIONS")
	adminRoutes.HandleFunc("/sessions", sessionHandler.List).Methods("GET", "OPTIONS")
	adminRoutes.HandleFunc("/sessions/{sessionId}", sessionHandler.Get).Methods("GET", "OPTIONS")
	adminRoutes.HandleFunc("/sessions/{sessionId}/transcript", sessionHandler.Transcript).Methods("GET", "OPTIONS")
	adminRoutes.HandleFunc("/sessions/{sessionId}/transcript/selfcheck", sessionHandler.SelfCheck).Methods("GET", "OPTIONS")
	adminRoutes.HandleFunc("/sessions/{sessionId}/traces", discretionHandler.ListSessionTraces).Methods("GET", "OPTIONS")
	adminRoutes.HandleFunc("/incidents/{incidentId}/traces", discretionHandler.ListIncidentTraces).Methods("GET", "OPTIONS")

	adminRoutes.HandleFunc("/selftest", selfTestHandler.Run).Methods("POST", "OPTIONS")

	// Candidate routes (require candidate auth)
	candidateRoutes := v1.NewRoute().Subrouter()
	candidateRoutes.Use(authMW.RequireCandidate)

	candidateRoutes.HandleFunc("/interview/disclose", sessionHandler.Disclose).Methods("POST", "OPTIONS")
	candidateRoutes.HandleFunc("/interview/answer", sessionHandler.Answer).Methods("POST", "OPTIONS")
	candidateRoutes.HandleFunc("/interview/resume", sessionHandler.Resume).Methods("POST", "OPTIONS")
	candidateRoutes.HandleFunc("/interview/complete", sessionHandler.Complete).Methods("POST", "OPTIONS")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		allowedMethods := os.Getenv("CORS_ALLOWED_METHODS")
		if allowedMethods == "" {
			allowedMethods = "GET, POST, PUT, DELETE, OPTIONS"
		}

		allowedHeaders := os.Getenv("CORS_ALLOWED_HEADERS")
		if allowedHeaders == "" {
			allowedHeaders = "Content-Type, Authorization"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
