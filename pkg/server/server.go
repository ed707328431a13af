// Package server exposes the graph store to the UI boundary over HTTP.
// All mutations flow through these routes; the rendering collaborator
// only ever consumes the display-graph output.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/vocablink/vocablink/pkg/backup"
	"github.com/vocablink/vocablink/pkg/cache"
	"github.com/vocablink/vocablink/pkg/config"
	"github.com/vocablink/vocablink/pkg/graph"
	"github.com/vocablink/vocablink/pkg/notes"
	"github.com/vocablink/vocablink/pkg/search"
)

// Server represents the HTTP server
type Server struct {
	config *config.Config
	repo   *graph.Repository
	notes  *notes.Repository
	backup *backup.Service
	search *search.Index
	cache  cache.Cache
	logger zerolog.Logger
	router *chi.Mux
}

// New creates a new server instance
func New(
	cfg *config.Config,
	repo *graph.Repository,
	noteRepo *notes.Repository,
	backupSvc *backup.Service,
	searchIndex *search.Index,
	cacheInstance cache.Cache,
	logger zerolog.Logger,
) *Server {
	s := &Server{
		config: cfg,
		repo:   repo,
		notes:  noteRepo,
		backup: backupSvc,
		search: searchIndex,
		cache:  cacheInstance,
		logger: logger,
		router: chi.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/version", s.handleVersion)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.awaitReady)

		// Nodes
		r.Post("/nodes", s.handleCreateNode)
		r.Get("/nodes", s.handleListNodes)
		r.Get("/nodes/{id}", s.handleGetNode)
		r.Patch("/nodes/{id}", s.handlePatchNode)
		r.Delete("/nodes/{id}", s.handleDeleteNode)

		// Traversal
		r.Get("/nodes/{id}/neighbors", s.handleNeighbors)
		r.Get("/nodes/{id}/words", s.handleNeighborWords)
		r.Get("/nodes/{id}/suggestions", s.handleSuggestions)
		r.Get("/nodes/{id}/detail", s.handleNodeDetail)
		r.Get("/nodes/{id}/edges", s.handleConnectedEdges)

		// Notes
		r.Get("/nodes/{id}/note", s.handleGetNote)
		r.Put("/nodes/{id}/note", s.handlePutNote)
		r.Delete("/nodes/{id}/note", s.handleDeleteNote)

		// Edges
		r.Post("/edges", s.handleCreateEdge)
		r.Delete("/edges/{id}", s.handleDeleteEdge)
		r.Delete("/edges", s.handleDeleteEdgesBetween)

		// Display graph
		r.Get("/graph", s.handleGraph)

		// Reference data
		r.Get("/languages", s.handleLanguages)
		r.Get("/pos", s.handlePOS)

		// Search
		r.Get("/search", s.handleSearch)
		r.Get("/search/forms", s.handleSearchForms)

		// Backup / restore
		r.Get("/export", s.handleExport)
		r.Post("/import", s.handleImport)
	})
}

// awaitReady holds requests until reference-data reconciliation has
// completed, bounded by the request context
func (s *Server) awaitReady(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-s.repo.Ready():
			next.ServeHTTP(w, r)
		case <-r.Context().Done():
			s.writeError(w, http.StatusServiceUnavailable, "store not ready")
		}
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info().Str("addr", addr).Msg("Starting server")
	return http.ListenAndServe(addr, s.router)
}

// Handler returns the HTTP handler (useful for testing)
func (s *Server) Handler() http.Handler {
	return s.router
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": config.Version,
		"ready":   s.repo.IsReady(),
	})
}

// handleVersion returns server version
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"version": config.Version,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": message,
			"status":  status,
		},
	})
}

// invalidate drops cached read results after any committed mutation
func (s *Server) invalidate(r *http.Request) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Flush(r.Context()); err != nil {
		s.logger.Warn().Err(err).Msg("Cache flush failed")
	}
}
