// Package api is the gateway's HTTP facade: a thin gorilla/mux router
// exposing the assembler, related-orders aggregator, sync orchestrator, and
// cache admin over JSON (spec.md §6). Grounded on the teacher's
// internal/api/server.go (mux.Router + rs/cors wiring, PathPrefix
// subrouters) and internal/api/handlers_jobs.go (JSON response idiom), with
// the teacher's session/auth/Compass/M3/Infor client plumbing dropped: this
// gateway authenticates upstream with a service account (internal/upstream),
// not per-user OAuth, so there is no session to thread through handlers.
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/ashgrove-systems/mto-gateway/internal/assemble"
	"github.com/ashgrove-systems/mto-gateway/internal/cacheadmin"
	"github.com/ashgrove-systems/mto-gateway/internal/config"
	"github.com/ashgrove-systems/mto-gateway/internal/related"
	"github.com/ashgrove-systems/mto-gateway/internal/syncjob"
)

// Server is the gateway's HTTP facade.
type Server struct {
	assembler    *assemble.Assembler
	related      *related.Aggregator
	orchestrator *syncjob.Orchestrator
	cacheAdmin   *cacheadmin.Admin
	liveSync     *config.LiveSyncConfig
	log          *zap.Logger
	router       *mux.Router
	corsOrigins  string
}

// NewServer builds a Server over the gateway's already-wired components.
func NewServer(assembler *assemble.Assembler, relatedAgg *related.Aggregator, orchestrator *syncjob.Orchestrator, cacheAdmin *cacheadmin.Admin, liveSync *config.LiveSyncConfig, log *zap.Logger, corsOrigins string) *Server {
	s := &Server{
		assembler:    assembler,
		related:      relatedAgg,
		orchestrator: orchestrator,
		cacheAdmin:   cacheAdmin,
		liveSync:     liveSync,
		log:          log,
		router:       mux.NewRouter(),
		corsOrigins:  corsOrigins,
	}
	s.setupRoutes()
	return s
}

// Router returns the CORS-wrapped handler to pass to http.Server.
func (s *Server) Router() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{s.corsOrigins},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})
	return c.Handler(s.router)
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	api.HandleFunc("/mto/{mto}/status", s.handleGetStatus).Methods("GET")
	api.HandleFunc("/mto/{mto}/related", s.handleGetRelatedOrders).Methods("GET")

	api.HandleFunc("/sync/trigger", s.handleTriggerSync).Methods("POST")
	api.HandleFunc("/sync/status", s.handleGetSyncStatus).Methods("GET")
	api.HandleFunc("/sync/config", s.handleUpdateSyncConfig).Methods("PATCH")
	api.HandleFunc("/sync/history", s.handleGetSyncHistory).Methods("GET")

	api.HandleFunc("/cache/stats", s.handleCacheStats).Methods("GET")
	api.HandleFunc("/cache", s.handleClearCache).Methods("DELETE")
	api.HandleFunc("/cache/warm", s.handleWarmCache).Methods("POST")
	api.HandleFunc("/cache/reset-stats", s.handleResetCacheStats).Methods("POST")
	api.HandleFunc("/cache/hot", s.handleHotMTOs).Methods("GET")
	api.HandleFunc("/cache/{mto}", s.handleInvalidateCache).Methods("DELETE")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// NewHTTPServer is exposed for cmd/server to build the *http.Server with
// the teacher's timeout values (cmd/server/main.go).
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
