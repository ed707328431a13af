package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/vocablink/vocablink/pkg/models"
)

// CurrentSchemaVersion is the schema this build declares. Opening a
// store recorded at a lower version applies the missing additive
// migrations; a higher recorded version fails with ErrSchemaTooNew.
const CurrentSchemaVersion = 3

// SQLiteStore implements Store using a local SQLite database
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
	config SQLiteConfig
}

// SQLiteConfig holds SQLite-specific configuration
type SQLiteConfig struct {
	EnableWAL   bool
	CacheSize   int // Page cache size in KB
	BusyTimeout int // Milliseconds to wait on locked database
}

// DefaultSQLiteConfig returns sensible defaults for single-user usage
func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		EnableWAL:   true,
		CacheSize:   2048,
		BusyTimeout: 5000,
	}
}

// migrations holds the additive schema steps, one per version. A fresh
// database replays all of them; an existing database replays only the
// steps above its recorded version. No step rewrites existing data.
var migrations = []string{
	// v1: core graph tables
	`CREATE TABLE IF NOT EXISTS nodes (
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		type TEXT NOT NULL,
		forms TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_nodes_text ON nodes(text);
	CREATE TABLE IF NOT EXISTS edges (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		source_id TEXT NOT NULL,
		target_id TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_id);
	CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id);`,

	// v2: note side-store
	`CREATE TABLE IF NOT EXISTS node_annotations (
		id TEXT PRIMARY KEY,
		note TEXT NOT NULL
	);`,

	// v3: node type index for reference-data reconciliation scans
	`CREATE INDEX IF NOT EXISTS idx_nodes_type ON nodes(type);`,
}

// NewSQLiteStore opens (or creates) the database at dbPath and brings
// its schema up to CurrentSchemaVersion
func NewSQLiteStore(dbPath string, config SQLiteConfig) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "vocab.db"
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{
		db:     db,
		dbPath: dbPath,
		config: config,
	}

	if err := store.initialize(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

// initialize applies pragmas and runs any pending additive migrations
func (s *SQLiteStore) initialize(ctx context.Context) error {
	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA cache_size = -%d", s.config.CacheSize),
		fmt.Sprintf("PRAGMA busy_timeout = %d", s.config.BusyTimeout),
	}
	if s.config.EnableWAL {
		pragmas = append([]string{"PRAGMA journal_mode = WAL"}, pragmas...)
	}

	for _, pragma := range pragmas {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create version table: %w", err)
	}

	current, err := s.recordedVersion(ctx)
	if err != nil {
		return err
	}
	if current > CurrentSchemaVersion {
		return fmt.Errorf("%w: recorded %d, supported %d",
			ErrSchemaTooNew, current, CurrentSchemaVersion)
	}

	for version := current + 1; version <= CurrentSchemaVersion; version++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, migrations[version-1]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration to v%d failed: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record schema version: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}

	return nil
}

func (s *SQLiteStore) recordedVersion(ctx context.Context) (int, error) {
	var version sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		"SELECT MAX(version) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}

// SchemaVersion returns the recorded schema version
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recordedVersion(ctx)
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func wrapConflict(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

func marshalForms(forms []string) (any, error) {
	if len(forms) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(forms)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal forms: %w", err)
	}
	return string(data), nil
}

func scanNode(scan func(dest ...any) error) (models.Node, error) {
	var node models.Node
	var forms sql.NullString
	if err := scan(&node.ID, &node.Text, &node.Type, &forms, &node.CreatedAt); err != nil {
		return node, err
	}
	if forms.Valid && forms.String != "" {
		if err := json.Unmarshal([]byte(forms.String), &node.Forms); err != nil {
			return node, fmt.Errorf("failed to unmarshal forms: %w", err)
		}
	}
	return node, nil
}

const nodeColumns = "id, text, type, forms, created_at"

// =============================================================================
// Node operations
// =============================================================================

// InsertNode inserts a single node. Duplicate id or text surfaces ErrConflict.
func (s *SQLiteStore) InsertNode(ctx context.Context, node models.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	forms, err := marshalForms(node.Forms)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO nodes (id, text, type, forms, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, node.ID, node.Text, node.Type, forms, node.CreatedAt)
	return wrapConflict(err)
}

// InsertNodes bulk-inserts nodes in one transaction
func (s *SQLiteStore) InsertNodes(ctx context.Context, nodes []models.Node) error {
	if len(nodes) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertNodesTx(ctx, tx, nodes); err != nil {
		return err
	}
	return tx.Commit()
}

func insertNodesTx(ctx context.Context, tx *sql.Tx, nodes []models.Node) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO nodes (id, text, type, forms, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, node := range nodes {
		forms, err := marshalForms(node.Forms)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, node.ID, node.Text, node.Type, forms, node.CreatedAt); err != nil {
			return wrapConflict(err)
		}
	}
	return nil
}

// GetNode retrieves a node by id, returning ErrNotFound when absent
func (s *SQLiteStore) GetNode(ctx context.Context, id string) (*models.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+nodeColumns+" FROM nodes WHERE id = ?", id)
	node, err := scanNode(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query node: %w", err)
	}
	return &node, nil
}

// GetNodes bulk-fetches nodes by id; missing ids are silently skipped.
// Result order follows the input id order.
func (s *SQLiteStore) GetNodes(ctx context.Context, ids []string) ([]models.Node, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+nodeColumns+" FROM nodes WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]models.Node, len(ids))
	for rows.Next() {
		node, err := scanNode(rows.Scan)
		if err != nil {
			return nil, err
		}
		byID[node.ID] = node
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	results := make([]models.Node, 0, len(byID))
	for _, id := range ids {
		if node, ok := byID[id]; ok {
			results = append(results, node)
		}
	}
	return results, nil
}

// PatchNode applies a single-field patch and reports rows affected
func (s *SQLiteStore) PatchNode(ctx context.Context, id string, patch models.NodePatch) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result sql.Result
	var err error
	switch p := patch.(type) {
	case models.TextPatch:
		result, err = s.db.ExecContext(ctx,
			"UPDATE nodes SET text = ? WHERE id = ?", string(p), id)
	case models.FormsPatch:
		var forms any
		forms, err = marshalForms([]string(p))
		if err != nil {
			return 0, err
		}
		result, err = s.db.ExecContext(ctx,
			"UPDATE nodes SET forms = ? WHERE id = ?", forms, id)
	default:
		return 0, fmt.Errorf("unknown patch field: %s", patch.PatchField())
	}
	if err != nil {
		return 0, wrapConflict(err)
	}
	return result.RowsAffected()
}

// DeleteNode removes a node row; deleting an absent id is not an error
func (s *SQLiteStore) DeleteNode(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM nodes WHERE id = ?", id)
	return err
}

// DeleteNodesByType removes every node of the given type
func (s *SQLiteStore) DeleteNodesByType(ctx context.Context, nodeType models.NodeType) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, "DELETE FROM nodes WHERE type = ?", nodeType)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// NodesByType returns all nodes of the given type in insertion order
func (s *SQLiteStore) NodesByType(ctx context.Context, nodeType models.NodeType) ([]models.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryNodes(ctx,
		"SELECT "+nodeColumns+" FROM nodes WHERE type = ? ORDER BY created_at, id", nodeType)
}

// CountNodesByType counts nodes of the given type
func (s *SQLiteStore) CountNodesByType(ctx context.Context, nodeType models.NodeType) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM nodes WHERE type = ?", nodeType).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count nodes: %w", err)
	}
	return count, nil
}

// AllNodes returns every node row
func (s *SQLiteStore) AllNodes(ctx context.Context) ([]models.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryNodes(ctx,
		"SELECT "+nodeColumns+" FROM nodes ORDER BY created_at, id")
}

func (s *SQLiteStore) queryNodes(ctx context.Context, query string, args ...any) ([]models.Node, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	var results []models.Node
	for rows.Next() {
		node, err := scanNode(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, node)
	}
	return results, rows.Err()
}

// =============================================================================
// Edge operations
// =============================================================================

const edgeColumns = "id, type, source_id, target_id, created_at"

func scanEdge(scan func(dest ...any) error) (models.Edge, error) {
	var edge models.Edge
	err := scan(&edge.ID, &edge.Type, &edge.SourceID, &edge.TargetID, &edge.CreatedAt)
	return edge, err
}

// InsertEdge inserts a single edge row
func (s *SQLiteStore) InsertEdge(ctx context.Context, edge models.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO edges (id, type, source_id, target_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, edge.ID, edge.Type, edge.SourceID, edge.TargetID, edge.CreatedAt)
	return wrapConflict(err)
}

// InsertEdges bulk-inserts edges in one transaction
func (s *SQLiteStore) InsertEdges(ctx context.Context, edges []models.Edge) error {
	if len(edges) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertEdgesTx(ctx, tx, edges); err != nil {
		return err
	}
	return tx.Commit()
}

func insertEdgesTx(ctx context.Context, tx *sql.Tx, edges []models.Edge) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO edges (id, type, source_id, target_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, edge := range edges {
		if _, err := stmt.ExecContext(ctx, edge.ID, edge.Type, edge.SourceID, edge.TargetID, edge.CreatedAt); err != nil {
			return wrapConflict(err)
		}
	}
	return nil
}

// AllEdges returns every edge row
func (s *SQLiteStore) AllEdges(ctx context.Context) ([]models.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryEdges(ctx,
		"SELECT "+edgeColumns+" FROM edges ORDER BY created_at, id")
}

// EdgesBySource returns edges whose source is the given node
func (s *SQLiteStore) EdgesBySource(ctx context.Context, sourceID string) ([]models.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryEdges(ctx,
		"SELECT "+edgeColumns+" FROM edges WHERE source_id = ? ORDER BY created_at, id", sourceID)
}

// EdgesByTarget returns edges whose target is the given node
func (s *SQLiteStore) EdgesByTarget(ctx context.Context, targetID string) ([]models.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryEdges(ctx,
		"SELECT "+edgeColumns+" FROM edges WHERE target_id = ? ORDER BY created_at, id", targetID)
}

// EdgesBySourceIn returns edges whose source is any of the given nodes
func (s *SQLiteStore) EdgesBySourceIn(ctx context.Context, sourceIDs []string) ([]models.Edge, error) {
	if len(sourceIDs) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	placeholders := strings.Repeat("?,", len(sourceIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(sourceIDs))
	for i, id := range sourceIDs {
		args[i] = id
	}
	return s.queryEdges(ctx,
		"SELECT "+edgeColumns+" FROM edges WHERE source_id IN ("+placeholders+") ORDER BY created_at, id",
		args...)
}

// ConnectedEdges returns edges where the node is source or target.
// A self-loop matches both predicates but appears exactly once.
func (s *SQLiteStore) ConnectedEdges(ctx context.Context, nodeID string) ([]models.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryEdges(ctx,
		"SELECT "+edgeColumns+" FROM edges WHERE source_id = ? OR target_id = ? ORDER BY created_at, id",
		nodeID, nodeID)
}

// DeleteEdge removes an edge row; deleting an absent id is not an error
func (s *SQLiteStore) DeleteEdge(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM edges WHERE id = ?", id)
	return err
}

// DeleteEdgesBetween removes all edges from sourceID to targetID and
// returns how many were deleted; zero matches is not an error
func (s *SQLiteStore) DeleteEdgesBetween(ctx context.Context, sourceID, targetID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM edges WHERE source_id = ? AND target_id = ?", sourceID, targetID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteNodeCascade removes the node and all its incident edges in one
// transaction
func (s *SQLiteStore) DeleteNodeCascade(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM edges WHERE source_id = ? OR target_id = ?", id, id); err != nil {
		return fmt.Errorf("failed to delete connected edges: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM nodes WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete node: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) queryEdges(ctx context.Context, query string, args ...any) ([]models.Edge, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	var results []models.Edge
	for rows.Next() {
		edge, err := scanEdge(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, edge)
	}
	return results, rows.Err()
}

// =============================================================================
// Annotation operations
// =============================================================================

// GetAnnotation retrieves a note row by node id, ErrNotFound when absent
func (s *SQLiteStore) GetAnnotation(ctx context.Context, id string) (*models.NodeAnnotation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var annotation models.NodeAnnotation
	err := s.db.QueryRowContext(ctx,
		"SELECT id, note FROM node_annotations WHERE id = ?", id).
		Scan(&annotation.ID, &annotation.Note)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query annotation: %w", err)
	}
	return &annotation, nil
}

// UpdateAnnotation updates an existing note row and reports rows affected
func (s *SQLiteStore) UpdateAnnotation(ctx context.Context, id, note string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		"UPDATE node_annotations SET note = ? WHERE id = ?", note, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// InsertAnnotation inserts a new note row
func (s *SQLiteStore) InsertAnnotation(ctx context.Context, annotation models.NodeAnnotation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO node_annotations (id, note) VALUES (?, ?)",
		annotation.ID, annotation.Note)
	return wrapConflict(err)
}

// DeleteAnnotation removes a note row; absent id is not an error
func (s *SQLiteStore) DeleteAnnotation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM node_annotations WHERE id = ?", id)
	return err
}

// =============================================================================
// Whole-store operations
// =============================================================================

// ClearAll empties every table in a single transaction
func (s *SQLiteStore) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"edges", "nodes", "node_annotations"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// Dump reads the full contents of every table. Pure read, no mutation.
func (s *SQLiteStore) Dump(ctx context.Context) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	version, err := s.recordedVersion(ctx)
	if err != nil {
		return nil, err
	}

	nodes, err := s.queryNodes(ctx,
		"SELECT "+nodeColumns+" FROM nodes ORDER BY created_at, id")
	if err != nil {
		return nil, err
	}
	edges, err := s.queryEdges(ctx,
		"SELECT "+edgeColumns+" FROM edges ORDER BY created_at, id")
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id, note FROM node_annotations ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query annotations: %w", err)
	}
	defer rows.Close()

	var annotations []models.NodeAnnotation
	for rows.Next() {
		var annotation models.NodeAnnotation
		if err := rows.Scan(&annotation.ID, &annotation.Note); err != nil {
			return nil, err
		}
		annotations = append(annotations, annotation)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &Snapshot{
		SchemaVersion: version,
		Nodes:         nodes,
		Edges:         edges,
		Annotations:   annotations,
	}, nil
}

// Load replaces the full contents of every table with the snapshot in
// one transaction; a failure mid-load leaves the tables untouched
func (s *SQLiteStore) Load(ctx context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"edges", "nodes", "node_annotations"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if err := insertNodesTx(ctx, tx, snap.Nodes); err != nil {
		return fmt.Errorf("failed to load nodes: %w", err)
	}
	if err := insertEdgesTx(ctx, tx, snap.Edges); err != nil {
		return fmt.Errorf("failed to load edges: %w", err)
	}
	for _, annotation := range snap.Annotations {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO node_annotations (id, note) VALUES (?, ?)",
			annotation.ID, annotation.Note); err != nil {
			return fmt.Errorf("failed to load annotations: %w", wrapConflict(err))
		}
	}
	return tx.Commit()
}
