package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vocablink/vocablink/pkg/backup"
	"github.com/vocablink/vocablink/pkg/graph"
	"github.com/vocablink/vocablink/pkg/models"
	"github.com/vocablink/vocablink/pkg/search"
	"github.com/vocablink/vocablink/pkg/storage"
)

const graphCacheKey = "graph"

// =============================================================================
// Node handlers
// =============================================================================

type createNodeRequest struct {
	Type models.NodeType `json:"type"`
	Text string          `json:"text"`
}

func (s *Server) handleCreateNode(w http.ResponseWriter, r *http.Request) {
	var req createNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Type.Valid() {
		s.writeError(w, http.StatusBadRequest, "unknown node type: "+string(req.Type))
		return
	}
	if models.Sanitize(req.Text) == "" {
		s.writeError(w, http.StatusBadRequest, "text must not be empty")
		return
	}

	node, err := s.repo.CreateNewNode(r.Context(), req.Type, req.Text)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			s.writeError(w, http.StatusConflict, "a node with this text already exists")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.invalidate(r)
	s.writeJSON(w, http.StatusCreated, node)
}

func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	nodeType := models.NodeType(r.URL.Query().Get("type"))
	if !nodeType.Valid() {
		s.writeError(w, http.StatusBadRequest, "unknown node type: "+string(nodeType))
		return
	}
	nodes, err := s.repo.GetAllNodesByType(r.Context(), nodeType)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if nodes == nil {
		nodes = []models.Node{}
	}
	s.writeJSON(w, http.StatusOK, nodes)
}

func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	node, err := s.repo.GetNodeFromId(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if node == nil {
		s.writeError(w, http.StatusNotFound, "node not found")
		return
	}
	s.writeJSON(w, http.StatusOK, node)
}

type patchNodeRequest struct {
	Text  *string   `json:"text,omitempty"`
	Forms *[]string `json:"forms,omitempty"`
}

func (s *Server) handlePatchNode(w http.ResponseWriter, r *http.Request) {
	var req patchNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var patch models.NodePatch
	switch {
	case req.Text != nil && req.Forms != nil:
		s.writeError(w, http.StatusBadRequest, "patch exactly one field")
		return
	case req.Text != nil:
		patch = models.TextPatch(models.Sanitize(*req.Text))
	case req.Forms != nil:
		patch = models.FormsPatch(*req.Forms)
	default:
		s.writeError(w, http.StatusBadRequest, "no patchable field given")
		return
	}

	if err := s.repo.UpdateNode(r.Context(), chi.URLParam(r, "id"), patch); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			s.writeError(w, http.StatusConflict, "a node with this text already exists")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.invalidate(r)
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "updated"})
}

func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.DeleteNodeAndConnectedEdges(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.invalidate(r)
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// =============================================================================
// Traversal handlers
// =============================================================================

func (s *Server) handleNeighbors(w http.ResponseWriter, r *http.Request) {
	direction := graph.BySource
	if r.URL.Query().Get("by") == string(graph.ByTarget) {
		direction = graph.ByTarget
	}
	neighbors, err := s.repo.GetNeighborsNodesByNodeId(r.Context(), chi.URLParam(r, "id"), direction)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if neighbors == nil {
		neighbors = []models.LinkedNode{}
	}
	s.writeJSON(w, http.StatusOK, neighbors)
}

func (s *Server) handleNeighborWords(w http.ResponseWriter, r *http.Request) {
	words, err := s.repo.GetNeighborWords(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if words == nil {
		words = []models.Node{}
	}
	s.writeJSON(w, http.StatusOK, words)
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	words, err := s.repo.GetSecondDegreeWordNeighbors(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if words == nil {
		words = []models.Node{}
	}
	s.writeJSON(w, http.StatusOK, words)
}

func (s *Server) handleNodeDetail(w http.ResponseWriter, r *http.Request) {
	node, err := s.repo.GetNodeFromId(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if node == nil {
		s.writeError(w, http.StatusNotFound, "node not found")
		return
	}
	detailed, err := s.repo.AddDetailToNode(r.Context(), *node)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, detailed)
}

func (s *Server) handleConnectedEdges(w http.ResponseWriter, r *http.Request) {
	edges, err := s.repo.GetConnectedEdgesByNodeId(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if edges == nil {
		edges = []models.Edge{}
	}
	s.writeJSON(w, http.StatusOK, edges)
}

// =============================================================================
// Note handlers
// =============================================================================

func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	note, err := s.notes.GetWordNoteById(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"note": note})
}

type putNoteRequest struct {
	Note string `json:"note"`
}

func (s *Server) handlePutNote(w http.ResponseWriter, r *http.Request) {
	var req putNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.notes.UpdateWordNoteById(r.Context(), chi.URLParam(r, "id"), req.Note); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "updated"})
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := s.notes.DeleteWordNoteById(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// =============================================================================
// Edge handlers
// =============================================================================

type createEdgeRequest struct {
	Type     models.EdgeType `json:"type"`
	SourceID string          `json:"sourceId"`
	TargetID string          `json:"targetId"`
	TwoWay   bool            `json:"twoWay,omitempty"`
}

// handleCreateEdge inserts the edge, and the reverse edge as a second
// row when the caller asks for a symmetric relation. The store itself
// treats every edge as strictly directed.
func (s *Server) handleCreateEdge(w http.ResponseWriter, r *http.Request) {
	var req createEdgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Type.Valid() {
		s.writeError(w, http.StatusBadRequest, "unknown edge type: "+string(req.Type))
		return
	}
	for _, id := range []string{req.SourceID, req.TargetID} {
		node, err := s.repo.GetNodeFromId(r.Context(), id)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if node == nil {
			s.writeError(w, http.StatusBadRequest, "endpoint node not found: "+id)
			return
		}
	}

	edge, err := s.repo.CreateNewEdge(r.Context(), req.Type, req.SourceID, req.TargetID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	created := []models.Edge{*edge}

	if req.TwoWay && req.Type.TwoWay() {
		reverse, err := s.repo.CreateNewEdge(r.Context(), req.Type, req.TargetID, req.SourceID)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		created = append(created, *reverse)
	}

	s.invalidate(r)
	s.writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteEdge(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.DeleteEdge(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.invalidate(r)
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

func (s *Server) handleDeleteEdgesBetween(w http.ResponseWriter, r *http.Request) {
	sourceID := r.URL.Query().Get("sourceId")
	targetID := r.URL.Query().Get("targetId")
	if sourceID == "" || targetID == "" {
		s.writeError(w, http.StatusBadRequest, "sourceId and targetId are required")
		return
	}
	deleted, err := s.repo.DeleteEdgeByNodesId(r.Context(), sourceID, targetID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.invalidate(r)
	s.writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

// =============================================================================
// Display graph and reference data
// =============================================================================

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	if s.cache != nil {
		if cached, err := s.cache.Get(r.Context(), graphCacheKey); err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(cached)
			return
		}
	}

	displayGraph, err := s.repo.GetGraphForDisplay(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	body, err := json.Marshal(displayGraph)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if s.cache != nil {
		if err := s.cache.Set(r.Context(), graphCacheKey, body); err != nil {
			s.logger.Warn().Err(err).Msg("Cache set failed")
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	s.listNodesByType(w, r, models.NodeLanguage)
}

func (s *Server) handlePOS(w http.ResponseWriter, r *http.Request) {
	s.listNodesByType(w, r, models.NodePOS)
}

func (s *Server) listNodesByType(w http.ResponseWriter, r *http.Request, nodeType models.NodeType) {
	nodes, err := s.repo.GetAllNodesByType(r.Context(), nodeType)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if nodes == nil {
		nodes = []models.Node{}
	}
	s.writeJSON(w, http.StatusOK, nodes)
}

// =============================================================================
// Search handlers
// =============================================================================

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	index := models.NodeWord
	if r.URL.Query().Get("index") == string(models.NodeRoman) {
		index = models.NodeRoman
	}

	opts := &search.NodeOptions{Limit: s.searchLimit(r)}
	if exclude := r.URL.Query().Get("exclude"); exclude != "" {
		opts.ExcludeIDs = strings.Split(exclude, ",")
	}
	s.writeJSON(w, http.StatusOK, s.search.QueryNodeByText(query, index, opts))
}

func (s *Server) handleSearchForms(w http.ResponseWriter, r *http.Request) {
	opts := &search.TextOptions{Limit: s.searchLimit(r)}
	if exclude := r.URL.Query().Get("exclude"); exclude != "" {
		opts.ExcludeTexts = strings.Split(exclude, ",")
	}
	s.writeJSON(w, http.StatusOK, s.search.QueryTextsByText(r.URL.Query().Get("q"), opts))
}

func (s *Server) searchLimit(r *http.Request) int {
	if val := r.URL.Query().Get("limit"); val != "" {
		if limit, err := strconv.Atoi(val); err == nil && limit > 0 {
			return limit
		}
	}
	return s.config.SearchLimit
}

// =============================================================================
// Backup handlers
// =============================================================================

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	blob, err := s.backup.Export(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+backup.FileName+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(blob)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	blob, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	if err := s.backup.Import(r.Context(), blob); err != nil {
		s.invalidate(r)
		if errors.Is(err, backup.ErrRestoreFailed) {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.invalidate(r)
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "imported"})
}
