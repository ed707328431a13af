package storage

import (
	"context"
	"errors"

	"github.com/vocablink/vocablink/pkg/models"
)

var (
	// ErrNotFound is returned when an entity is not found
	ErrNotFound = errors.New("entity not found")
	// ErrConflict is returned when an insert violates a uniqueness constraint
	ErrConflict = errors.New("uniqueness conflict")
	// ErrSchemaTooNew is returned when the on-disk schema version is
	// newer than this build understands
	ErrSchemaTooNew = errors.New("schema version newer than supported")
)

// Store defines the durable three-table storage backend: nodes, edges
// and node annotations. Point lookups on missing ids return ErrNotFound;
// bulk lookups silently skip missing ids.
type Store interface {
	// Node operations
	InsertNode(ctx context.Context, node models.Node) error
	InsertNodes(ctx context.Context, nodes []models.Node) error
	GetNode(ctx context.Context, id string) (*models.Node, error)
	GetNodes(ctx context.Context, ids []string) ([]models.Node, error)
	PatchNode(ctx context.Context, id string, patch models.NodePatch) (int64, error)
	DeleteNode(ctx context.Context, id string) error
	DeleteNodesByType(ctx context.Context, nodeType models.NodeType) (int64, error)
	NodesByType(ctx context.Context, nodeType models.NodeType) ([]models.Node, error)
	CountNodesByType(ctx context.Context, nodeType models.NodeType) (int, error)
	AllNodes(ctx context.Context) ([]models.Node, error)

	// Edge operations
	InsertEdge(ctx context.Context, edge models.Edge) error
	InsertEdges(ctx context.Context, edges []models.Edge) error
	AllEdges(ctx context.Context) ([]models.Edge, error)
	EdgesBySource(ctx context.Context, sourceID string) ([]models.Edge, error)
	EdgesByTarget(ctx context.Context, targetID string) ([]models.Edge, error)
	EdgesBySourceIn(ctx context.Context, sourceIDs []string) ([]models.Edge, error)
	ConnectedEdges(ctx context.Context, nodeID string) ([]models.Edge, error)
	DeleteEdge(ctx context.Context, id string) error
	DeleteEdgesBetween(ctx context.Context, sourceID, targetID string) (int64, error)

	// DeleteNodeCascade removes a node and every edge referencing it as
	// source or target in a single atomic batch, so no reader can ever
	// observe a committed state with dangling edges.
	DeleteNodeCascade(ctx context.Context, id string) error

	// Annotation operations
	GetAnnotation(ctx context.Context, id string) (*models.NodeAnnotation, error)
	UpdateAnnotation(ctx context.Context, id, note string) (int64, error)
	InsertAnnotation(ctx context.Context, annotation models.NodeAnnotation) error
	DeleteAnnotation(ctx context.Context, id string) error

	// Whole-store operations
	ClearAll(ctx context.Context) error
	Dump(ctx context.Context) (*Snapshot, error)
	Load(ctx context.Context, snap *Snapshot) error
	SchemaVersion(ctx context.Context) (int, error)

	Close() error
}

// Snapshot is the full contents of every table plus the schema version
// it was taken at. It is the unit of the backup/restore protocol.
type Snapshot struct {
	SchemaVersion int                     `json:"schemaVersion"`
	Nodes         []models.Node           `json:"nodes"`
	Edges         []models.Edge           `json:"edges"`
	Annotations   []models.NodeAnnotation `json:"nodeAnnotations"`
}
