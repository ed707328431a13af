// Package graph implements the repository over the vocabulary graph:
// node/edge lifecycle, relationship traversal, derived relationship
// data and the reference-data bootstrap.
package graph

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vocablink/vocablink/pkg/models"
	"github.com/vocablink/vocablink/pkg/storage"
)

// Direction selects which endpoint of an edge is matched against the
// reference node in neighbor lookups
type Direction string

const (
	// BySource matches edges where the node is the source, returning targets
	BySource Direction = "source"
	// ByTarget matches edges where the node is the target, returning sources
	ByTarget Direction = "target"
)

// Listener is invoked after a committed mutation touching nodes of the
// given type. Invocations are asynchronous with respect to the write.
type Listener func(nodeType models.NodeType)

// Repository provides CRUD and traversal operations over the graph
// store. Construct with New and call Init before using operations that
// depend on reference data.
type Repository struct {
	store  storage.Store
	logger zerolog.Logger

	ready     chan struct{}
	readyOnce sync.Once

	mu          sync.RWMutex
	languageIDs map[string]string // language text -> node id
	posIDs      map[string]string // POS text -> node id
	listeners   []Listener
}

// New creates a repository over the given store
func New(store storage.Store, logger zerolog.Logger) *Repository {
	return &Repository{
		store:       store,
		logger:      logger.With().Str("component", "graph").Logger(),
		ready:       make(chan struct{}),
		languageIDs: make(map[string]string),
		posIDs:      make(map[string]string),
	}
}

// Init reconciles reference data against the canonical lists and marks
// the repository ready. Callers depending on reference-data lookups
// must wait on Ready before proceeding.
func (r *Repository) Init(ctx context.Context) error {
	if err := r.Reconcile(ctx); err != nil {
		return err
	}
	r.readyOnce.Do(func() { close(r.ready) })
	return nil
}

// Ready is closed once Init has completed
func (r *Repository) Ready() <-chan struct{} {
	return r.ready
}

// IsReady reports whether Init has completed
func (r *Repository) IsReady() bool {
	select {
	case <-r.ready:
		return true
	default:
		return false
	}
}

// Reconcile checks the stored Language and POS node counts against the
// canonical lists. A mismatch resets the reference data only: all
// Language/POS nodes are deleted and reseeded; word and edge data is
// untouched. Reseeding strictly follows delete completion.
func (r *Repository) Reconcile(ctx context.Context) error {
	langCount, err := r.store.CountNodesByType(ctx, models.NodeLanguage)
	if err != nil {
		return fmt.Errorf("failed to count languages: %w", err)
	}
	posCount, err := r.store.CountNodesByType(ctx, models.NodePOS)
	if err != nil {
		return fmt.Errorf("failed to count POS tags: %w", err)
	}

	if langCount != len(models.AllLanguages) || posCount != len(models.AllPOS) {
		r.logger.Info().
			Int("languages", langCount).
			Int("pos", posCount).
			Msg("Reference data count mismatch, resetting")
		return r.resetReferenceData(ctx)
	}

	langNodes, err := r.store.NodesByType(ctx, models.NodeLanguage)
	if err != nil {
		return err
	}
	posNodes, err := r.store.NodesByType(ctx, models.NodePOS)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.languageIDs = nodesMap(langNodes)
	r.posIDs = nodesMap(posNodes)
	r.mu.Unlock()

	return nil
}

func (r *Repository) resetReferenceData(ctx context.Context) error {
	if _, err := r.store.DeleteNodesByType(ctx, models.NodeLanguage); err != nil {
		return fmt.Errorf("failed to delete language nodes: %w", err)
	}
	if _, err := r.store.DeleteNodesByType(ctx, models.NodePOS); err != nil {
		return fmt.Errorf("failed to delete POS nodes: %w", err)
	}

	languages := referenceNodes(models.AllLanguages, models.NodeLanguage)
	if err := r.store.InsertNodes(ctx, languages); err != nil {
		return fmt.Errorf("failed to seed languages: %w", err)
	}
	posTags := referenceNodes(models.AllPOS, models.NodePOS)
	if err := r.store.InsertNodes(ctx, posTags); err != nil {
		return fmt.Errorf("failed to seed POS tags: %w", err)
	}

	r.mu.Lock()
	r.languageIDs = nodesMap(languages)
	r.posIDs = nodesMap(posTags)
	r.mu.Unlock()

	r.logger.Info().
		Int("languages", len(languages)).
		Int("pos", len(posTags)).
		Msg("Reference data seeded")
	return nil
}

func referenceNodes(texts []string, nodeType models.NodeType) []models.Node {
	nodes := make([]models.Node, len(texts))
	now := time.Now().UnixMilli()
	for i, text := range texts {
		nodes[i] = models.Node{
			ID:        models.NewID(),
			Text:      text,
			Type:      nodeType,
			CreatedAt: now,
		}
	}
	return nodes
}

func nodesMap(nodes []models.Node) map[string]string {
	m := make(map[string]string, len(nodes))
	for _, node := range nodes {
		m[node.Text] = node.ID
	}
	return m
}

// LanguageID resolves a canonical language name to its node id
func (r *Repository) LanguageID(text string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.languageIDs[text]
	return id, ok
}

// POSID resolves a canonical part-of-speech tag to its node id
func (r *Repository) POSID(text string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.posIDs[text]
	return id, ok
}

// =============================================================================
// Mutation notifications
// =============================================================================

// Subscribe registers a listener invoked after committed mutations
// affecting Word or Romanization nodes. The search index subscribes
// here to rebuild itself.
func (r *Repository) Subscribe(fn Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// NotifyChanged broadcasts a committed mutation of the given node type
// to all listeners. Only Word and Romanization mutations are broadcast;
// other types have no subscribers to serve.
func (r *Repository) NotifyChanged(nodeType models.NodeType) {
	if nodeType != models.NodeWord && nodeType != models.NodeRoman {
		return
	}
	r.mu.RLock()
	listeners := make([]Listener, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.RUnlock()

	for _, fn := range listeners {
		go fn(nodeType)
	}
}

// =============================================================================
// Node and edge lifecycle
// =============================================================================

// CreateNewNode sanitizes the text, stamps id and creation time, and
// inserts the node. A duplicate text surfaces storage.ErrConflict.
func (r *Repository) CreateNewNode(ctx context.Context, nodeType models.NodeType, text string) (*models.Node, error) {
	node := models.Node{
		ID:        models.NewID(),
		Text:      models.Sanitize(text),
		Type:      nodeType,
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := r.store.InsertNode(ctx, node); err != nil {
		return nil, err
	}
	r.NotifyChanged(nodeType)
	return &node, nil
}

// CreateNewEdge stamps id and creation time and inserts the edge
// unconditionally; no duplicate-edge check is made. The caller inserts
// the reverse edge itself when the type is symmetric.
func (r *Repository) CreateNewEdge(ctx context.Context, edgeType models.EdgeType, sourceID, targetID string) (*models.Edge, error) {
	edge := models.Edge{
		ID:        models.NewID(),
		Type:      edgeType,
		SourceID:  sourceID,
		TargetID:  targetID,
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := r.store.InsertEdge(ctx, edge); err != nil {
		return nil, err
	}
	return &edge, nil
}

// GetNodeFromId returns the node or (nil, nil) when absent
func (r *Repository) GetNodeFromId(ctx context.Context, nodeID string) (*models.Node, error) {
	node, err := r.store.GetNode(ctx, nodeID)
	if err == storage.ErrNotFound {
		return nil, nil
	}
	return node, err
}

// UpdateNode applies a single-field patch to the node
func (r *Repository) UpdateNode(ctx context.Context, nodeID string, patch models.NodePatch) error {
	if _, err := r.store.PatchNode(ctx, nodeID, patch); err != nil {
		return err
	}
	if node, err := r.store.GetNode(ctx, nodeID); err == nil {
		r.NotifyChanged(node.Type)
	}
	return nil
}

// DeleteNodeAndConnectedEdges removes the node and every edge where it
// is source or target as one atomic batch
func (r *Repository) DeleteNodeAndConnectedEdges(ctx context.Context, nodeID string) error {
	node, err := r.GetNodeFromId(ctx, nodeID)
	if err != nil {
		return err
	}
	if err := r.store.DeleteNodeCascade(ctx, nodeID); err != nil {
		return err
	}
	if node != nil {
		r.NotifyChanged(node.Type)
	}
	return nil
}

// DeleteEdge removes a single edge; absent ids are not an error
func (r *Repository) DeleteEdge(ctx context.Context, edgeID string) error {
	return r.store.DeleteEdge(ctx, edgeID)
}

// DeleteEdgeByNodesId deletes every directed edge from sourceID to
// targetID and returns the count deleted; zero matches is not an error
func (r *Repository) DeleteEdgeByNodesId(ctx context.Context, sourceID, targetID string) (int64, error) {
	return r.store.DeleteEdgesBetween(ctx, sourceID, targetID)
}

// DeleteAllTables clears nodes, edges and annotations. Used only as a
// pre-step of the import protocol.
func (r *Repository) DeleteAllTables(ctx context.Context) error {
	if err := r.store.ClearAll(ctx); err != nil {
		return err
	}
	r.NotifyChanged(models.NodeWord)
	r.NotifyChanged(models.NodeRoman)
	return nil
}

// =============================================================================
// Queries and traversal
// =============================================================================

// GetAllNodesByType returns every node of the given type
func (r *Repository) GetAllNodesByType(ctx context.Context, nodeType models.NodeType) ([]models.Node, error) {
	return r.store.NodesByType(ctx, nodeType)
}

// GetAllEdges returns every edge
func (r *Repository) GetAllEdges(ctx context.Context) ([]models.Edge, error) {
	return r.store.AllEdges(ctx)
}

// GetConnectedEdgesByNodeId returns edges where the node is source or
// target; a self-loop appears once
func (r *Repository) GetConnectedEdgesByNodeId(ctx context.Context, nodeID string) ([]models.Edge, error) {
	return r.store.ConnectedEdges(ctx, nodeID)
}

// GetNeighborsNodesByNodeId performs a one-hop neighbor lookup in the
// chosen direction, pairing each edge with the node at its far end.
// Pairs whose node is missing (dangling edges) are silently dropped.
func (r *Repository) GetNeighborsNodesByNodeId(ctx context.Context, nodeID string, direction Direction) ([]models.LinkedNode, error) {
	var edges []models.Edge
	var err error
	if direction == ByTarget {
		edges, err = r.store.EdgesByTarget(ctx, nodeID)
	} else {
		edges, err = r.store.EdgesBySource(ctx, nodeID)
	}
	if err != nil {
		return nil, err
	}

	farIDs := make([]string, len(edges))
	for i, edge := range edges {
		if direction == ByTarget {
			farIDs[i] = edge.SourceID
		} else {
			farIDs[i] = edge.TargetID
		}
	}

	nodes, err := r.store.GetNodes(ctx, farIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Node, len(nodes))
	for _, node := range nodes {
		byID[node.ID] = node
	}

	linked := make([]models.LinkedNode, 0, len(edges))
	for i, edge := range edges {
		node, ok := byID[farIDs[i]]
		if !ok {
			continue
		}
		linked = append(linked, models.LinkedNode{
			Node:          node,
			LinkedEdgeID:  edge.ID,
			EdgeType:      edge.Type,
			EdgeCreatedAt: edge.CreatedAt,
		})
	}
	return linked, nil
}

// GetNeighborWords returns one-hop neighbors in either direction,
// filtered to Word nodes and excluding the node itself
func (r *Repository) GetNeighborWords(ctx context.Context, nodeID string) ([]models.Node, error) {
	edges, err := r.store.ConnectedEdges(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var neighborIDs []string
	for _, edge := range edges {
		for _, id := range []string{edge.SourceID, edge.TargetID} {
			if id == nodeID || seen[id] {
				continue
			}
			seen[id] = true
			neighborIDs = append(neighborIDs, id)
		}
	}

	nodes, err := r.store.GetNodes(ctx, neighborIDs)
	if err != nil {
		return nil, err
	}
	words := nodes[:0]
	for _, node := range nodes {
		if node.Type == models.NodeWord {
			words = append(words, node)
		}
	}
	return words, nil
}

// GetSecondDegreeWordNeighbors discovers words reachable via exactly
// two "means" hops: the meanings of the node's first-degree word
// neighbors, excluding the origin and anything already reachable in one
// hop. Results keep first-encounter order.
func (r *Repository) GetSecondDegreeWordNeighbors(ctx context.Context, nodeID string) ([]models.Node, error) {
	firstDegree, err := r.GetNeighborWords(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	firstSet := make(map[string]bool, len(firstDegree))
	firstIDs := make([]string, len(firstDegree))
	for i, node := range firstDegree {
		firstSet[node.ID] = true
		firstIDs[i] = node.ID
	}

	edges, err := r.store.EdgesBySourceIn(ctx, firstIDs)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var candidateIDs []string
	for _, edge := range edges {
		if edge.Type != models.EdgeMeans {
			continue
		}
		if edge.TargetID == nodeID || firstSet[edge.TargetID] || seen[edge.TargetID] {
			continue
		}
		seen[edge.TargetID] = true
		candidateIDs = append(candidateIDs, edge.TargetID)
	}

	nodes, err := r.store.GetNodes(ctx, candidateIDs)
	if err != nil {
		return nil, err
	}
	words := nodes[:0]
	for _, node := range nodes {
		if node.Type == models.NodeWord {
			words = append(words, node)
		}
	}
	return words, nil
}

// AddDetailToNode enriches a node with its neighbor and connecting edge
// ids by scanning its connected edges once
func (r *Repository) AddDetailToNode(ctx context.Context, node models.Node) (*models.NodeWithRelation, error) {
	edges, err := r.store.ConnectedEdges(ctx, node.ID)
	if err != nil {
		return nil, err
	}

	detailed := models.NodeWithRelation{
		Node:            node,
		NeighborsNodeID: []string{},
		ConnectedEdgeID: []string{},
	}
	for _, edge := range edges {
		switch node.ID {
		case edge.SourceID:
			detailed.NeighborsNodeID = append(detailed.NeighborsNodeID, edge.TargetID)
			detailed.ConnectedEdgeID = append(detailed.ConnectedEdgeID, edge.ID)
		case edge.TargetID:
			detailed.NeighborsNodeID = append(detailed.NeighborsNodeID, edge.SourceID)
			detailed.ConnectedEdgeID = append(detailed.ConnectedEdgeID, edge.ID)
		}
	}
	return &detailed, nil
}

// GetGraphForDisplay builds the full visible graph: every edge, and the
// set of nodes referenced by at least one edge. Nodes with zero
// incident edges never appear.
func (r *Repository) GetGraphForDisplay(ctx context.Context) (*models.DisplayGraph, error) {
	edges, err := r.store.AllEdges(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var linkedIDs []string
	links := make([]models.DisplayLink, len(edges))
	for i, edge := range edges {
		links[i] = models.DisplayLink{
			ID:     edge.ID,
			Source: edge.SourceID,
			Target: edge.TargetID,
			Type:   edge.Type,
		}
		for _, id := range []string{edge.SourceID, edge.TargetID} {
			if !seen[id] {
				seen[id] = true
				linkedIDs = append(linkedIDs, id)
			}
		}
	}

	nodes, err := r.store.GetNodes(ctx, linkedIDs)
	if err != nil {
		return nil, err
	}
	if nodes == nil {
		nodes = []models.Node{}
	}
	return &models.DisplayGraph{Nodes: nodes, Links: links}, nil
}
